package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// DatasetRole identifies which partition of the corpus a root path serves.
type DatasetRole string

const (
	RoleTrain      DatasetRole = "train"
	RoleValidation DatasetRole = "validation"
	RoleTest       DatasetRole = "test"
)

// Datasets maps corpus roles to root directories. Roles are explicit
// configuration; no path is ever derived from another by string surgery.
type Datasets struct {
	TrainDir      string   `toml:"train_dir"`
	ValidationDir string   `toml:"validation_dir"`
	TestDir       string   `toml:"test_dir"`
	NoiseDirs     []string `toml:"noise_dirs"`
}

// Preprocess contains settings for turning raw media into tensor blobs.
type Preprocess struct {
	MaxFiles        int  `toml:"max_files"`
	SliceDurationMS int  `toml:"slice_duration_ms"`
	VideoSlices     int  `toml:"video_slices"`
	VideoFrameRate  int  `toml:"video_frame_rate"`
	Shuffle         bool `toml:"shuffle"`
}

// Predict contains per-speaker sampling limits for prediction passes.
type Predict struct {
	MaxSamplesPerSpeaker int  `toml:"max_samples_per_speaker"`
	MaxCleanReferences   int  `toml:"max_clean_references"`
	Shuffle              bool `toml:"shuffle"`
}

// Tools names the external helper binaries the pipeline drives.
type Tools struct {
	DSPBinary      string `toml:"dsp_binary"`
	NetworkBinary  string `toml:"network_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clearvoice.
//
// Configuration sections by subsystem:
//   - Paths: staging and log directories
//   - Datasets: corpus role to root directory mapping plus noise roots
//   - Preprocess: framing parameters and file caps
//   - Predict: per-speaker sampling limits
//   - Tools: external DSP and network helper binaries
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Datasets   Datasets   `toml:"datasets"`
	Preprocess Preprocess `toml:"preprocess"`
	Predict    Predict    `toml:"predict"`
	Tools      Tools      `toml:"tools"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/clearvoice/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. It reports the resolved
// path and whether a file was actually found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("clearvoice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// DatasetRoot resolves the configured root for a corpus role. A missing
// mapping is a configuration error, never a derived path.
func (c *Config) DatasetRoot(role DatasetRole) (string, error) {
	var root string
	switch role {
	case RoleTrain:
		root = c.Datasets.TrainDir
	case RoleValidation:
		root = c.Datasets.ValidationDir
	case RoleTest:
		root = c.Datasets.TestDir
	default:
		return "", fmt.Errorf("unknown dataset role %q", role)
	}
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("datasets.%s_dir is not configured", role)
	}
	return root, nil
}

// EnsureDirectories creates the working directories the pipeline needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes the embedded sample configuration to target.
func CreateSample(target string) error {
	return os.WriteFile(target, []byte(sampleConfig), 0o644)
}

// ExpandPath expands a leading ~ to the current user's home directory and
// returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}
