// Package blob reads and writes preprocessed sample archives and aggregates
// them for training. The four parallel arrays of an archive are modeled as a
// single aligned table so shuffling and truncation can never desynchronize
// video/audio/noise correspondence.
package blob

import (
	"fmt"
	"math/rand"

	"clearvoice/internal/tensor"
)

// Table holds the four parallel sample arrays. Entries at the same index
// across all columns originate from the same (archive, row) pair.
type Table struct {
	Video  *tensor.Tensor
	Mixed  *tensor.Tensor
	Speech *tensor.Tensor
	Noise  *tensor.Tensor
}

// NewTable validates that all four columns share the same leading dimension.
func NewTable(video, mixed, speech, noise *tensor.Tensor) (*Table, error) {
	if video == nil || mixed == nil || speech == nil || noise == nil {
		return nil, fmt.Errorf("blob: table requires all four columns")
	}
	n := video.Len()
	for name, col := range map[string]*tensor.Tensor{
		"mixed_spectrograms":  mixed,
		"speech_spectrograms": speech,
		"noise_spectrograms":  noise,
	} {
		if col.Len() != n {
			return nil, fmt.Errorf("blob: column %s has %d samples, video_samples has %d", name, col.Len(), n)
		}
	}
	return &Table{Video: video, Mixed: mixed, Speech: speech, Noise: noise}, nil
}

// Len returns the shared sample count.
func (t *Table) Len() int { return t.Video.Len() }

// Shuffle applies one random permutation to all four columns. Applying the
// same permutation everywhere is what keeps the table aligned; the columns
// are never permuted independently.
func (t *Table) Shuffle(rng *rand.Rand) error {
	perm := rng.Perm(t.Len())
	return t.permute(perm)
}

func (t *Table) permute(perm []int) error {
	video, err := t.Video.Take(perm)
	if err != nil {
		return fmt.Errorf("blob: permute video_samples: %w", err)
	}
	mixed, err := t.Mixed.Take(perm)
	if err != nil {
		return fmt.Errorf("blob: permute mixed_spectrograms: %w", err)
	}
	speech, err := t.Speech.Take(perm)
	if err != nil {
		return fmt.Errorf("blob: permute speech_spectrograms: %w", err)
	}
	noise, err := t.Noise.Take(perm)
	if err != nil {
		return fmt.Errorf("blob: permute noise_spectrograms: %w", err)
	}
	t.Video, t.Mixed, t.Speech, t.Noise = video, mixed, speech, noise
	return nil
}

// Truncate keeps the first n samples of every column. Called after Shuffle,
// the retained subset is a uniform random sample rather than a prefix bias.
func (t *Table) Truncate(n int) error {
	if n >= t.Len() {
		return nil
	}
	video, err := t.Video.Truncate(n)
	if err != nil {
		return err
	}
	mixed, err := t.Mixed.Truncate(n)
	if err != nil {
		return err
	}
	speech, err := t.Speech.Truncate(n)
	if err != nil {
		return err
	}
	noise, err := t.Noise.Truncate(n)
	if err != nil {
		return err
	}
	t.Video, t.Mixed, t.Speech, t.Noise = video, mixed, speech, noise
	return nil
}

// ConcatTables joins tables along the sample axis in input order.
func ConcatTables(tables []*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("blob: nothing to concatenate")
	}
	videos := make([]*tensor.Tensor, len(tables))
	mixeds := make([]*tensor.Tensor, len(tables))
	speeches := make([]*tensor.Tensor, len(tables))
	noises := make([]*tensor.Tensor, len(tables))
	for i, table := range tables {
		videos[i] = table.Video
		mixeds[i] = table.Mixed
		speeches[i] = table.Speech
		noises[i] = table.Noise
	}

	video, err := tensor.Concat(videos)
	if err != nil {
		return nil, fmt.Errorf("blob: concatenate video_samples: %w", err)
	}
	mixed, err := tensor.Concat(mixeds)
	if err != nil {
		return nil, fmt.Errorf("blob: concatenate mixed_spectrograms: %w", err)
	}
	speech, err := tensor.Concat(speeches)
	if err != nil {
		return nil, fmt.Errorf("blob: concatenate speech_spectrograms: %w", err)
	}
	noise, err := tensor.Concat(noises)
	if err != nil {
		return nil, fmt.Errorf("blob: concatenate noise_spectrograms: %w", err)
	}
	return NewTable(video, mixed, speech, noise)
}
