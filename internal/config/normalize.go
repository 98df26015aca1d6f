package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDatasets(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = ExpandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatasets() error {
	var err error
	if strings.TrimSpace(c.Datasets.TrainDir) != "" {
		if c.Datasets.TrainDir, err = ExpandPath(c.Datasets.TrainDir); err != nil {
			return fmt.Errorf("datasets.train_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Datasets.ValidationDir) != "" {
		if c.Datasets.ValidationDir, err = ExpandPath(c.Datasets.ValidationDir); err != nil {
			return fmt.Errorf("datasets.validation_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Datasets.TestDir) != "" {
		if c.Datasets.TestDir, err = ExpandPath(c.Datasets.TestDir); err != nil {
			return fmt.Errorf("datasets.test_dir: %w", err)
		}
	}
	noiseDirs := make([]string, 0, len(c.Datasets.NoiseDirs))
	for _, dir := range c.Datasets.NoiseDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, err := ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("datasets.noise_dirs: %w", err)
		}
		noiseDirs = append(noiseDirs, expanded)
	}
	c.Datasets.NoiseDirs = noiseDirs
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.DSPBinary = strings.TrimSpace(c.Tools.DSPBinary)
	if c.Tools.DSPBinary == "" {
		c.Tools.DSPBinary = defaultDSPBinary
	}
	c.Tools.NetworkBinary = strings.TrimSpace(c.Tools.NetworkBinary)
	if c.Tools.NetworkBinary == "" {
		c.Tools.NetworkBinary = defaultNetworkBinary
	}
	if c.Tools.TimeoutSeconds <= 0 {
		c.Tools.TimeoutSeconds = defaultToolTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
