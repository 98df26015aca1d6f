package config

const (
	defaultStagingDir      = "~/.local/share/clearvoice/staging"
	defaultLogDir          = "~/.local/share/clearvoice/logs"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultMaxFiles        = 1500
	defaultSliceDurationMS = 200
	defaultVideoSlices     = 15
	defaultVideoFrameRate  = 25
	defaultMaxSamples      = 10
	defaultMaxCleanRefs    = 3
	defaultDSPBinary       = "clearvoice-dsp"
	defaultNetworkBinary   = "clearvoice-net"
	defaultToolTimeout     = 600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Preprocess: Preprocess{
			MaxFiles:        defaultMaxFiles,
			SliceDurationMS: defaultSliceDurationMS,
			VideoSlices:     defaultVideoSlices,
			VideoFrameRate:  defaultVideoFrameRate,
			Shuffle:         true,
		},
		Predict: Predict{
			MaxSamplesPerSpeaker: defaultMaxSamples,
			MaxCleanReferences:   defaultMaxCleanRefs,
			Shuffle:              true,
		},
		Tools: Tools{
			DSPBinary:      defaultDSPBinary,
			NetworkBinary:  defaultNetworkBinary,
			TimeoutSeconds: defaultToolTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
