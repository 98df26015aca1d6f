package prediction

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clearvoice/internal/fileutil"
	"clearvoice/internal/media"
	"clearvoice/internal/tensor"
)

// Record is one sample's complete set of prediction artifacts. Once saved it
// is never rewritten.
type Record struct {
	Speaker    string
	VideoPath  string
	SpeechPath string
	NoisePath  string

	Mixture  *media.AudioSignal
	Enhanced *media.AudioSignal
	Network  *media.AudioSignal

	MixtureSpec  *tensor.Tensor
	EnhancedSpec *tensor.Tensor
	NetworkSpec  *tensor.Tensor
}

// Storage writes prediction records under a run directory.
type Storage struct {
	run *Run
}

// NewStorage returns storage rooted at the given run.
func NewStorage(run *Run) *Storage {
	return &Storage{run: run}
}

// Save persists one record at <run>/<speaker>/<videoStem>_<noiseStem>/ and
// returns the sample directory. The speaker directory is created on demand;
// the sample directory must not already exist, so the same triple can never
// be written twice within a run.
func (s *Storage) Save(record Record) (string, error) {
	speakerDir := filepath.Join(s.run.Root(), record.Speaker)
	if err := os.MkdirAll(speakerDir, 0o755); err != nil {
		return "", fmt.Errorf("prediction: create speaker directory: %w", err)
	}

	name := stem(record.VideoPath) + "_" + stem(record.NoisePath)
	sampleDir := filepath.Join(speakerDir, name)
	if err := os.Mkdir(sampleDir, 0o755); err != nil {
		return "", fmt.Errorf("prediction: create sample directory: %w", err)
	}

	if err := fileutil.CopyFile(record.SpeechPath, filepath.Join(sampleDir, "source.wav")); err != nil {
		return "", fmt.Errorf("prediction: copy source recording: %w", err)
	}

	signals := []struct {
		name   string
		signal *media.AudioSignal
	}{
		{"mixture.wav", record.Mixture},
		{"enhanced.wav", record.Enhanced},
		{"nn.wav", record.Network},
	}
	for _, entry := range signals {
		if err := media.WriteWAV(filepath.Join(sampleDir, entry.name), entry.signal); err != nil {
			return "", err
		}
	}

	specs := []struct {
		name string
		spec *tensor.Tensor
	}{
		{"mixture.npy", record.MixtureSpec},
		{"enhanced.npy", record.EnhancedSpec},
		{"nn.npy", record.NetworkSpec},
	}
	for _, entry := range specs {
		if err := tensor.WriteNPYFile(filepath.Join(sampleDir, entry.name), entry.spec); err != nil {
			return "", err
		}
	}

	return sampleDir, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
