package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"clearvoice/internal/config"
)

func TestLoadAppliesDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Preprocess.MaxFiles != 1500 {
		t.Fatalf("unexpected max_files default: %d", cfg.Preprocess.MaxFiles)
	}
	if !cfg.Predict.Shuffle {
		t.Fatal("predict sampling should shuffle by default")
	}
	if cfg.Tools.DSPBinary != "clearvoice-dsp" {
		t.Fatalf("unexpected dsp binary default: %q", cfg.Tools.DSPBinary)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[datasets]
train_dir = "` + filepath.Join(dir, "train") + `"
test_dir = "` + filepath.Join(dir, "test") + `"
noise_dirs = ["` + filepath.Join(dir, "noise") + `", ""]

[predict]
max_samples_per_speaker = 4

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Predict.MaxSamplesPerSpeaker != 4 {
		t.Fatalf("override not applied: %d", cfg.Predict.MaxSamplesPerSpeaker)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format not normalized: %q", cfg.Logging.Format)
	}
	if len(cfg.Datasets.NoiseDirs) != 1 {
		t.Fatalf("empty noise dir not dropped: %v", cfg.Datasets.NoiseDirs)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[preprocess]
max_files = 0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for max_files = 0")
	}
}

func TestDatasetRoot(t *testing.T) {
	cfg := config.Default()
	cfg.Datasets.TestDir = "/corpus/test"

	root, err := cfg.DatasetRoot(config.RoleTest)
	if err != nil {
		t.Fatalf("DatasetRoot failed: %v", err)
	}
	if root != "/corpus/test" {
		t.Fatalf("unexpected root %q", root)
	}

	if _, err := cfg.DatasetRoot(config.RoleValidation); err == nil {
		t.Fatal("expected error for unconfigured validation root")
	}
	if _, err := cfg.DatasetRoot(config.DatasetRole("bogus")); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
