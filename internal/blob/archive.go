package blob

import (
	"fmt"
	"math/rand"
	"time"

	"clearvoice/internal/services"
	"clearvoice/internal/tensor"
)

// Archive array names. These match the NumPy archive layout consumed by the
// external network tool.
const (
	ArrayVideoSamples       = "video_samples"
	ArrayMixedSpectrograms  = "mixed_spectrograms"
	ArraySpeechSpectrograms = "speech_spectrograms"
	ArrayNoiseSpectrograms  = "noise_spectrograms"
)

// Write persists the table as a four-array NPZ archive at path.
func Write(path string, table *Table) error {
	return tensor.WriteNPZ(path, map[string]*tensor.Tensor{
		ArrayVideoSamples:       table.Video,
		ArrayMixedSpectrograms:  table.Mixed,
		ArraySpeechSpectrograms: table.Speech,
		ArrayNoiseSpectrograms:  table.Noise,
	})
}

// Load reads one archive fully into memory. A missing array or disagreeing
// sample counts are validation errors: training integrity cannot be
// compromised, so there is no partial recovery at this stage.
func Load(path string) (*Table, error) {
	entries, err := tensor.ReadNPZ(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "blob", "load", fmt.Sprintf("read archive %s", path), err)
	}

	columns := make(map[string]*tensor.Tensor, 4)
	for _, name := range []string{ArrayVideoSamples, ArrayMixedSpectrograms, ArraySpeechSpectrograms, ArrayNoiseSpectrograms} {
		col, ok := entries[name]
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "blob", "load",
				fmt.Sprintf("archive %s is missing array %q", path, name), nil)
		}
		columns[name] = col
	}

	table, err := NewTable(columns[ArrayVideoSamples], columns[ArrayMixedSpectrograms],
		columns[ArraySpeechSpectrograms], columns[ArrayNoiseSpectrograms])
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "blob", "load", fmt.Sprintf("archive %s", path), err)
	}
	return table, nil
}

// Aggregate loads the archives in order, concatenates them, shuffles all
// four columns with a single shared permutation, and optionally truncates to
// maxSamples. A nil rng draws a time-seeded source; alignment never depends
// on the seed.
func Aggregate(paths []string, maxSamples int, rng *rand.Rand) (*Table, error) {
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "blob", "aggregate", "no archive paths given", nil)
	}
	tables := make([]*Table, 0, len(paths))
	for _, path := range paths {
		table, err := Load(path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	combined, err := ConcatTables(tables)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "blob", "aggregate", "archives disagree on sample shapes", err)
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if err := combined.Shuffle(rng); err != nil {
		return nil, err
	}
	if maxSamples > 0 {
		if err := combined.Truncate(maxSamples); err != nil {
			return nil, err
		}
	}
	return combined, nil
}
