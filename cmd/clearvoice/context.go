package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"clearvoice/internal/config"
	"clearvoice/internal/logging"
	"clearvoice/internal/processing"
	"clearvoice/internal/runs"
	"clearvoice/internal/services/dsp"
	"clearvoice/internal/services/enhancer"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openStore() (*runs.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return runs.Open(cfg)
}

// newPreprocessor builds the default pipeline against the configured helper
// binaries, staging intermediates under the staging directory.
func (c *commandContext) newPreprocessor(logger *slog.Logger) (*processing.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := c.newDSPClient()
	if err != nil {
		return nil, err
	}
	return processing.NewPipeline(client, cfg.Paths.StagingDir, cfg.Preprocess, logger), nil
}

func (c *commandContext) newDSPClient() (*dsp.CLI, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return dsp.NewCLI(cfg.Paths.StagingDir,
		dsp.WithBinary(cfg.Tools.DSPBinary),
		dsp.WithTimeout(toolTimeout(cfg))), nil
}

func (c *commandContext) newEnhancerClient(modelCacheDir string) (*enhancer.CLI, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return enhancer.NewCLI(cfg.Paths.StagingDir, modelCacheDir,
		enhancer.WithBinary(cfg.Tools.NetworkBinary),
		enhancer.WithTimeout(toolTimeout(cfg))), nil
}

func toolTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Tools.TimeoutSeconds) * time.Second
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
