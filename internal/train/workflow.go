// Package train drives a training session: blob aggregation, video
// normalization, and the hand-off to the network helper. The model cache is
// guarded by a file lock so two sessions can never write checkpoints into the
// same directory.
package train

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"clearvoice/internal/blob"
	"clearvoice/internal/config"
	"clearvoice/internal/logging"
	"clearvoice/internal/norm"
	"clearvoice/internal/runs"
	"clearvoice/internal/services"
	"clearvoice/internal/services/enhancer"
)

// Params names the inputs and artifacts of one training session.
type Params struct {
	TrainBlobs        []string
	ValidationBlobs   []string
	NormalizationPath string
	ModelCacheDir     string
	TensorboardDir    string
	// MaxSamples caps the aggregated training table after shuffling.
	// Zero keeps everything.
	MaxSamples int
}

// Workflow drives one training session.
type Workflow struct {
	cfg    *config.Config
	net    enhancer.Client
	store  *runs.Store
	logger *slog.Logger
}

// New wires the workflow. store may be nil when run bookkeeping is not wanted.
func New(cfg *config.Config, net enhancer.Client, store *runs.Store, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workflow{
		cfg:    cfg,
		net:    net,
		store:  store,
		logger: logging.NewComponentLogger(logger, "train"),
	}
}

// Run aggregates the blobs, fits and persists the video normalizer, and hands
// the archives to the network helper.
func (w *Workflow) Run(ctx context.Context, params Params) error {
	if len(params.TrainBlobs) == 0 {
		return fmt.Errorf("train: at least one training blob is required")
	}
	if len(params.ValidationBlobs) == 0 {
		return fmt.Errorf("train: at least one validation blob is required")
	}
	if err := os.MkdirAll(params.ModelCacheDir, 0o755); err != nil {
		return fmt.Errorf("train: ensure model cache dir: %w", err)
	}

	lock := flock.New(filepath.Join(params.ModelCacheDir, ".train.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("train: acquire model cache lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("train: another training session holds the model cache at %s", params.ModelCacheDir)
	}
	defer func() { _ = lock.Unlock() }()

	var runID int64
	if w.store != nil {
		stored, err := w.store.NewRun(ctx, runs.KindTrain, params.ModelCacheDir)
		if err != nil {
			return err
		}
		runID = stored.ID
		ctx = services.WithRunID(ctx, stored.CorrelationID)
	}

	err = w.train(ctx, params)
	w.finishRun(ctx, runID, err)
	return err
}

func (w *Workflow) train(ctx context.Context, params Params) error {
	aggregateCtx := services.WithStage(ctx, "aggregate")
	trainTable, err := blob.Aggregate(params.TrainBlobs, params.MaxSamples, nil)
	if err != nil {
		return err
	}
	w.logger.InfoContext(aggregateCtx, "aggregated training blobs",
		logging.Int("archives", len(params.TrainBlobs)),
		logging.Int("samples", trainTable.Len()))

	validationTable, err := blob.Aggregate(params.ValidationBlobs, params.MaxSamples, nil)
	if err != nil {
		return err
	}
	w.logger.InfoContext(aggregateCtx, "aggregated validation blobs",
		logging.Int("archives", len(params.ValidationBlobs)),
		logging.Int("samples", validationTable.Len()))

	// The normalizer is fit on training video only, applied to both splits,
	// and persisted before training starts so prediction can always reload
	// the exact state the model saw.
	normalizer := norm.New()
	if err := normalizer.Fit(trainTable.Video); err != nil {
		return err
	}
	if err := normalizer.Apply(trainTable.Video); err != nil {
		return err
	}
	if err := normalizer.Apply(validationTable.Video); err != nil {
		return err
	}
	if err := normalizer.Save(params.NormalizationPath); err != nil {
		return err
	}

	if err := os.MkdirAll(w.cfg.Paths.StagingDir, 0o755); err != nil {
		return fmt.Errorf("train: ensure staging dir: %w", err)
	}
	stagingDir, err := os.MkdirTemp(w.cfg.Paths.StagingDir, "train-")
	if err != nil {
		return fmt.Errorf("train: create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(stagingDir) }()

	request := enhancer.TrainRequest{
		TrainArchive:   filepath.Join(stagingDir, "train.npz"),
		ModelDir:       params.ModelCacheDir,
		TensorboardDir: params.TensorboardDir,
	}
	request.ValidationArchive = filepath.Join(stagingDir, "validation.npz")
	if err := blob.Write(request.TrainArchive, trainTable); err != nil {
		return err
	}
	if err := blob.Write(request.ValidationArchive, validationTable); err != nil {
		return err
	}

	trainCtx := services.WithStage(ctx, "train")
	if err := w.net.Train(trainCtx, request); err != nil {
		return err
	}
	w.logger.InfoContext(trainCtx, "training finished",
		logging.String("model_cache", params.ModelCacheDir),
		logging.String("normalization", params.NormalizationPath))
	return nil
}

func (w *Workflow) finishRun(ctx context.Context, runID int64, runErr error) {
	if w.store == nil || runID == 0 {
		return
	}
	status := runs.StatusCompleted
	message := ""
	if runErr != nil {
		status = runs.StatusFailed
		message = runErr.Error()
	}
	if err := w.store.UpdateRunStatus(ctx, runID, status, message); err != nil {
		w.logger.WarnContext(ctx, "failed to update run status", logging.Error(err))
	}
}
