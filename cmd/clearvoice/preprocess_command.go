package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"clearvoice/internal/config"
	"clearvoice/internal/preprocess"
)

func newPreprocessCommand(ctx *commandContext) *cobra.Command {
	var (
		datasetDir      string
		noiseDirs       []string
		outPath         string
		speakers        []string
		ignoredSpeakers []string
	)

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Index a corpus and write a preprocessed tensor blob",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			root, err := resolveDatasetDir(cfg, datasetDir, config.RoleTrain)
			if err != nil {
				return err
			}
			noise := noiseDirs
			if len(noise) == 0 {
				noise = cfg.Datasets.NoiseDirs
			}
			if len(noise) == 0 {
				return fmt.Errorf("no noise directories: pass --noise-dir or set datasets.noise_dirs")
			}

			out, err := config.ExpandPath(outPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			pre, err := ctx.newPreprocessor(logger)
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			workflow := preprocess.New(cfg, pre, store, logger)
			count, err := workflow.Run(cmd.Context(), preprocess.Params{
				DatasetRoot:    root,
				NoiseDirs:      noise,
				OutputPath:     out,
				Speakers:       speakers,
				IgnoreSpeakers: ignoredSpeakers,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d slices to %s\n", count, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset-dir", "", "Corpus root (defaults to datasets.train_dir)")
	cmd.Flags().StringArrayVar(&noiseDirs, "noise-dir", nil, "Noise recording directory (repeatable)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output blob path (.npz)")
	cmd.Flags().StringArrayVar(&speakers, "speaker", nil, "Restrict to a speaker (repeatable)")
	cmd.Flags().StringArrayVar(&ignoredSpeakers, "ignore-speaker", nil, "Exclude a speaker (repeatable)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// resolveDatasetDir prefers an explicit flag and falls back to the configured
// role mapping.
func resolveDatasetDir(cfg *config.Config, flagValue string, role config.DatasetRole) (string, error) {
	if flagValue != "" {
		return config.ExpandPath(flagValue)
	}
	root, err := cfg.DatasetRoot(role)
	if err != nil {
		return "", fmt.Errorf("no --dataset-dir given and %w", err)
	}
	return root, nil
}
