package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clearvoice/internal/config"
	"clearvoice/internal/train"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var (
		trainBlobs      []string
		validationBlobs []string
		normalization   string
		modelCacheDir   string
		tensorboardDir  string
		maxSamples      int
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the enhancement network from preprocessed blobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			modelDir, err := config.ExpandPath(modelCacheDir)
			if err != nil {
				return err
			}
			normPath, err := config.ExpandPath(normalization)
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

			workflow := train.New(cfg, net, store, logger)
			err = workflow.Run(cmd.Context(), train.Params{
				TrainBlobs:        trainBlobs,
				ValidationBlobs:   validationBlobs,
				NormalizationPath: normPath,
				ModelCacheDir:     modelDir,
				TensorboardDir:    tensorboardDir,
				MaxSamples:        maxSamples,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Model written to %s\n", modelDir)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&trainBlobs, "train-blob", nil, "Training blob path (repeatable)")
	cmd.Flags().StringArrayVar(&validationBlobs, "validation-blob", nil, "Validation blob path (repeatable)")
	cmd.Flags().StringVar(&normalization, "normalization-cache", "", "Where to persist the fitted video normalizer")
	cmd.Flags().StringVar(&modelCacheDir, "model-cache-dir", "", "Model checkpoint directory")
	cmd.Flags().StringVar(&tensorboardDir, "tensorboard-dir", "", "Training curve output directory")
	cmd.Flags().IntVar(&maxSamples, "max-samples", 0, "Cap aggregated training samples (0 keeps all)")
	_ = cmd.MarkFlagRequired("train-blob")
	_ = cmd.MarkFlagRequired("validation-blob")
	_ = cmd.MarkFlagRequired("normalization-cache")
	_ = cmd.MarkFlagRequired("model-cache-dir")

	return cmd
}
