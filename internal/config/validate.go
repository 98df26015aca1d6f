package config

import (
	"fmt"
)

// Validate checks cross-field constraints after normalization.
func (c *Config) Validate() error {
	if err := c.validatePreprocess(); err != nil {
		return err
	}
	if err := c.validatePredict(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePreprocess() error {
	if c.Preprocess.MaxFiles <= 0 {
		return fmt.Errorf("preprocess.max_files must be positive, got %d", c.Preprocess.MaxFiles)
	}
	if c.Preprocess.SliceDurationMS <= 0 {
		return fmt.Errorf("preprocess.slice_duration_ms must be positive, got %d", c.Preprocess.SliceDurationMS)
	}
	if c.Preprocess.VideoSlices <= 0 {
		return fmt.Errorf("preprocess.video_slices must be positive, got %d", c.Preprocess.VideoSlices)
	}
	if c.Preprocess.VideoFrameRate <= 0 {
		return fmt.Errorf("preprocess.video_frame_rate must be positive, got %d", c.Preprocess.VideoFrameRate)
	}
	return nil
}

func (c *Config) validatePredict() error {
	if c.Predict.MaxSamplesPerSpeaker <= 0 {
		return fmt.Errorf("predict.max_samples_per_speaker must be positive, got %d", c.Predict.MaxSamplesPerSpeaker)
	}
	if c.Predict.MaxCleanReferences < 0 {
		return fmt.Errorf("predict.max_clean_references must not be negative, got %d", c.Predict.MaxCleanReferences)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
