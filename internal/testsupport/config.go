// Package testsupport provides shared fixtures for package tests: configs
// seeded with per-test temp directories and corpus/media file builders.
package testsupport

import (
	"path/filepath"
	"testing"

	"clearvoice/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Shuffling is disabled so dataset listings are deterministic.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Preprocess.Shuffle = false
	cfg.Preprocess.MaxFiles = 50
	cfg.Predict.MaxSamplesPerSpeaker = 5
	cfg.Predict.MaxCleanReferences = 2
	cfg.Predict.Shuffle = false

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithDatasetDirs sets the corpus role roots on the test config.
func WithDatasetDirs(train, validation, test string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Datasets.TrainDir = train
		cfg.Datasets.ValidationDir = validation
		cfg.Datasets.TestDir = test
	}
}

// WithNoiseDirs sets the noise source roots on the test config.
func WithNoiseDirs(dirs ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Datasets.NoiseDirs = dirs
	}
}
