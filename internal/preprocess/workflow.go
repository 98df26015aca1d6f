// Package preprocess builds training blobs: it indexes (video, speech, noise)
// triples, preprocesses each one, and writes the aligned table as a single
// NPZ archive. Unlike prediction, any failure aborts the whole pass: a blob
// with silently missing samples would poison training.
package preprocess

import (
	"context"
	"fmt"
	"log/slog"

	"clearvoice/internal/blob"
	"clearvoice/internal/config"
	"clearvoice/internal/dataset"
	"clearvoice/internal/logging"
	"clearvoice/internal/processing"
	"clearvoice/internal/runs"
	"clearvoice/internal/services"
)

// Params identifies the corpus slice and the output archive of one pass.
type Params struct {
	DatasetRoot    string
	NoiseDirs      []string
	OutputPath     string
	Speakers       []string
	IgnoreSpeakers []string
}

// Workflow drives one preprocess pass.
type Workflow struct {
	cfg    *config.Config
	pre    processing.Preprocessor
	store  *runs.Store
	logger *slog.Logger
}

// New wires the workflow. store may be nil when run bookkeeping is not wanted.
func New(cfg *config.Config, pre processing.Preprocessor, store *runs.Store, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workflow{
		cfg:    cfg,
		pre:    pre,
		store:  store,
		logger: logging.NewComponentLogger(logger, "preprocess"),
	}
}

// Run indexes the corpus, preprocesses every triple, and writes the blob.
// It returns the number of slices in the written archive.
func (w *Workflow) Run(ctx context.Context, params Params) (int, error) {
	speechDataset, err := dataset.NewAudioVisualDataset(params.DatasetRoot)
	if err != nil {
		return 0, err
	}
	speakerIDs, err := dataset.SelectSpeakers(speechDataset, params.Speakers, params.IgnoreSpeakers)
	if err != nil {
		return 0, err
	}

	videoPaths, speechPaths, noisePaths, err := dataset.ListData(
		params.DatasetRoot, speakerIDs, params.NoiseDirs,
		w.cfg.Preprocess.MaxFiles, w.cfg.Preprocess.Shuffle)
	if err != nil {
		return 0, err
	}
	if len(videoPaths) == 0 {
		return 0, fmt.Errorf("preprocess: no (video, speech, noise) triples under %s", params.DatasetRoot)
	}

	var runID int64
	if w.store != nil {
		stored, err := w.store.NewRun(ctx, runs.KindPreprocess, params.OutputPath)
		if err != nil {
			return 0, err
		}
		runID = stored.ID
		ctx = services.WithRunID(ctx, stored.CorrelationID)
	}

	w.logger.InfoContext(ctx, "preprocess started",
		logging.Int("speakers", len(speakerIDs)),
		logging.Int("triples", len(videoPaths)),
		logging.String("out", params.OutputPath))

	count, err := w.buildBlob(ctx, videoPaths, speechPaths, noisePaths, params.OutputPath)
	w.finishRun(ctx, runID, err)
	if err != nil {
		return 0, err
	}

	w.logger.InfoContext(ctx, "preprocess finished",
		logging.Int("slices", count),
		logging.String("out", params.OutputPath))
	return count, nil
}

func (w *Workflow) buildBlob(ctx context.Context, videoPaths, speechPaths, noisePaths []string, outputPath string) (int, error) {
	tables := make([]*blob.Table, 0, len(videoPaths))
	for i := range videoPaths {
		triple := processing.Triple{
			VideoPath:  videoPaths[i],
			SpeechPath: speechPaths[i],
			NoisePath:  noisePaths[i],
		}
		sampleCtx := services.WithSample(ctx, triple.VideoPath)
		sample, err := w.pre.Preprocess(sampleCtx, triple)
		if err != nil {
			return 0, fmt.Errorf("preprocess %s: %w", triple.VideoPath, err)
		}
		table, err := sample.Table()
		sample.Cleanup()
		if err != nil {
			return 0, err
		}
		tables = append(tables, table)
	}

	combined, err := blob.ConcatTables(tables)
	if err != nil {
		return 0, err
	}
	if err := blob.Write(outputPath, combined); err != nil {
		return 0, err
	}
	return combined.Len(), nil
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
