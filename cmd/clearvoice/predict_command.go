package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clearvoice/internal/config"
	"clearvoice/internal/norm"
	"clearvoice/internal/prediction"
	"clearvoice/internal/reconstruct"
)

func newPredictCommand(ctx *commandContext) *cobra.Command {
	var (
		datasetDir      string
		validationDir   string
		noiseDirs       []string
		modelCacheDir   string
		normalization   string
		outDir          string
		speakers        []string
		ignoredSpeakers []string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Enhance held-out samples and store the reconstructed audio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			root, err := resolveDatasetDir(cfg, datasetDir, config.RoleTest)
			if err != nil {
				return err
			}
			validationRoot := validationDir
			if validationRoot == "" {
				// The validation mapping is optional here: without it the
				// pass simply skips clean references.
				validationRoot, _ = cfg.DatasetRoot(config.RoleValidation)
			}
			noise := noiseDirs
			if len(noise) == 0 {
				noise = cfg.Datasets.NoiseDirs
			}
			if len(noise) == 0 {
				return fmt.Errorf("no noise directories: pass --noise-dir or set datasets.noise_dirs")
			}

			modelDir, err := config.ExpandPath(modelCacheDir)
			if err != nil {
				return err
			}
			normPath, err := config.ExpandPath(normalization)
			if err != nil {
				return err
			}
			out, err := config.ExpandPath(outDir)
			if err != nil {
				return err
			}
			normalizer, err := norm.Load(normPath)
			if err != nil {
				return err
			}

			pre, err := ctx.newPreprocessor(logger)
			if err != nil {
				return err
			}
			dspClient, err := ctx.newDSPClient()
			if err != nil {
				return err
			}
			net, err := ctx.newEnhancerClient(modelDir)
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			loop := prediction.NewLoop(cfg, pre, net, reconstruct.New(dspClient), normalizer, store, logger)
			report, err := loop.Run(cmd.Context(), prediction.Params{
				DatasetRoot:    root,
				ValidationRoot: validationRoot,
				NoiseDirs:      noise,
				OutputRoot:     out,
				Speakers:       speakers,
				IgnoreSpeakers: ignoredSpeakers,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Predicted %d samples (%d failed)\n",
				report.Succeeded(), report.Failed())
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset-dir", "", "Corpus root to predict on (defaults to datasets.test_dir)")
	cmd.Flags().StringVar(&validationDir, "validation-dir", "", "Clean reference corpus root (defaults to datasets.validation_dir)")
	cmd.Flags().StringArrayVar(&noiseDirs, "noise-dir", nil, "Noise recording directory (repeatable)")
	cmd.Flags().StringVar(&modelCacheDir, "model-cache-dir", "", "Model checkpoint directory")
	cmd.Flags().StringVar(&normalization, "normalization-cache", "", "Fitted video normalizer path")
	cmd.Flags().StringVar(&outDir, "out", "", "Prediction output root")
	cmd.Flags().StringArrayVar(&speakers, "speaker", nil, "Restrict to a speaker (repeatable)")
	cmd.Flags().StringArrayVar(&ignoredSpeakers, "ignore-speaker", nil, "Exclude a speaker (repeatable)")
	_ = cmd.MarkFlagRequired("model-cache-dir")
	_ = cmd.MarkFlagRequired("normalization-cache")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
