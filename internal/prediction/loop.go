package prediction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clearvoice/internal/config"
	"clearvoice/internal/dataset"
	"clearvoice/internal/logging"
	"clearvoice/internal/norm"
	"clearvoice/internal/processing"
	"clearvoice/internal/reconstruct"
	"clearvoice/internal/runs"
	"clearvoice/internal/services"
	"clearvoice/internal/services/enhancer"
)

// nowFunc is swapped in tests to pin run-directory timestamps.
var nowFunc = time.Now

// Params identifies the corpus slices and output location of one run.
type Params struct {
	DatasetRoot    string
	ValidationRoot string
	NoiseDirs      []string
	OutputRoot     string
	Speakers       []string
	IgnoreSpeakers []string
}

// Loop drives the prediction pass. A failure inside one triple is recorded
// and skipped; only setup failures abort the run.
type Loop struct {
	cfg           *config.Config
	pre           processing.Preprocessor
	net           enhancer.Client
	reconstructor *reconstruct.Reconstructor
	normalizer    *norm.VideoNormalizer
	store         *runs.Store
	logger        *slog.Logger
}

// NewLoop wires the prediction loop. store may be nil when run bookkeeping
// is not wanted.
func NewLoop(
	cfg *config.Config,
	pre processing.Preprocessor,
	net enhancer.Client,
	reconstructor *reconstruct.Reconstructor,
	normalizer *norm.VideoNormalizer,
	store *runs.Store,
	logger *slog.Logger,
) *Loop {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loop{
		cfg:           cfg,
		pre:           pre,
		net:           net,
		reconstructor: reconstructor,
		normalizer:    normalizer,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "prediction"),
	}
}

// Run executes the pass and returns the per-sample report. The report is
// valid even when some samples failed; Run itself errors only on setup
// problems such as unreadable datasets or an unfitted normalizer.
func (l *Loop) Run(ctx context.Context, params Params) (*Report, error) {
	if !l.normalizer.Fitted() {
		return nil, fmt.Errorf("prediction: video normalizer is not fitted")
	}

	speechDataset, err := dataset.NewAudioVisualDataset(params.DatasetRoot)
	if err != nil {
		return nil, err
	}
	speakerIDs, err := dataset.SelectSpeakers(speechDataset, params.Speakers, params.IgnoreSpeakers)
	if err != nil {
		return nil, err
	}

	run, err := NewRun(params.OutputRoot, nowFunc())
	if err != nil {
		return nil, err
	}
	storage := NewStorage(run)

	var runID int64
	if l.store != nil {
		stored, err := l.store.NewRun(ctx, runs.KindPredict, run.Root())
		if err != nil {
			return nil, err
		}
		runID = stored.ID
		ctx = services.WithRunID(ctx, stored.CorrelationID)
	}

	l.logger.InfoContext(ctx, "prediction run started",
		logging.String("root", run.Root()),
		logging.Int("speakers", len(speakerIDs)))

	report := &Report{}
	for _, speakerID := range speakerIDs {
		speakerCtx := services.WithSpeaker(ctx, speakerID)
		if err := l.runSpeaker(speakerCtx, params, speakerID, storage, runID, report); err != nil {
			l.finishRun(ctx, runID, report, err)
			return nil, err
		}
	}

	l.finishRun(ctx, runID, report, nil)
	l.logger.InfoContext(ctx, "prediction run finished",
		logging.String("root", run.Root()),
		logging.Int("succeeded", report.Succeeded()),
		logging.Int("failed", report.Failed()))
	return report, nil
}

func (l *Loop) runSpeaker(ctx context.Context, params Params, speakerID string, storage *Storage, runID int64, report *Report) error {
	videoPaths, speechPaths, noisePaths, err := dataset.ListData(
		params.DatasetRoot, []string{speakerID}, params.NoiseDirs,
		l.cfg.Predict.MaxSamplesPerSpeaker, l.cfg.Predict.Shuffle)
	if err != nil {
		return err
	}

	l.gatherCleanReferences(ctx, params, speakerID)

	for i := range videoPaths {
		triple := processing.Triple{
			VideoPath:  videoPaths[i],
			SpeechPath: speechPaths[i],
			NoisePath:  noisePaths[i],
		}
		tripleCtx := services.WithSample(ctx, triple.VideoPath)
		outcome := l.processTriple(tripleCtx, speakerID, triple, storage)
		report.add(outcome)
		l.recordOutcome(ctx, runID, speakerID, triple, outcome)

		if outcome.Err != nil {
			l.logger.ErrorContext(tripleCtx, "sample failed, skipping",
				logging.String("video", triple.VideoPath),
				logging.String("noise", triple.NoisePath),
				logging.Error(outcome.Err))
			// A broken invocation (bad configuration, missing caches)
			// will fail every remaining triple the same way.
			if services.IsSetup(outcome.Err) {
				return outcome.Err
			}
		}
	}
	return nil
}

// gatherCleanReferences computes spectrograms of held-out clean speech for
// the speaker. They are a listening/debugging aid; failures only log.
func (l *Loop) gatherCleanReferences(ctx context.Context, params Params, speakerID string) {
	if params.ValidationRoot == "" || l.cfg.Predict.MaxCleanReferences <= 0 {
		return
	}
	_, cleanPaths, _, err := dataset.ListData(
		params.ValidationRoot, []string{speakerID}, params.NoiseDirs,
		l.cfg.Predict.MaxCleanReferences, l.cfg.Predict.Shuffle)
	if err != nil {
		l.logger.WarnContext(ctx, "no clean references for speaker", logging.Error(err))
		return
	}
	for _, cleanPath := range cleanPaths {
		spec, err := l.pre.CleanSpectrogram(ctx, cleanPath)
		if err != nil {
			l.logger.WarnContext(ctx, "clean reference failed",
				logging.String("speech", cleanPath),
				logging.Error(err))
			continue
		}
		l.logger.DebugContext(ctx, "clean reference",
			logging.String("speech", cleanPath),
			logging.Int("slices", spec.Len()))
	}
}

func (l *Loop) processTriple(ctx context.Context, speakerID string, triple processing.Triple, storage *Storage) Outcome {
	outcome := Outcome{Speaker: speakerID, VideoPath: triple.VideoPath, NoisePath: triple.NoisePath}

	sample, err := l.pre.Preprocess(ctx, triple)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	defer sample.Cleanup()

	if err := l.normalizer.Apply(sample.Video); err != nil {
		outcome.Err = err
		return outcome
	}

	table, err := sample.Table()
	if err != nil {
		outcome.Err = err
		return outcome
	}
	loss, err := l.net.Evaluate(ctx, table)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Loss = loss
	l.logger.InfoContext(ctx, "sample loss",
		logging.String("video", triple.VideoPath),
		logging.Float64("loss", loss))

	enhancedSlices, err := l.net.Predict(ctx, sample.Mixed, sample.Video)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	enhancedSpec, err := reconstruct.AssembleSlices(enhancedSlices)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	mixtureSpec, err := reconstruct.AssembleSlices(sample.Mixed)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	networkSpec, err := reconstruct.AssembleSlices(sample.Speech)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	trimmed, err := reconstruct.TrimToShared(enhancedSpec, mixtureSpec, networkSpec)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	enhancedSpec, mixtureSpec, networkSpec = trimmed[0], trimmed[1], trimmed[2]

	matchSamples := len(sample.MixedSignal.Samples)
	enhancedSignal, err := l.reconstructor.Signal(ctx, enhancedSpec, sample.MixedWavPath, sample.VideoFrameRate, sample.Peak, matchSamples)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	networkSignal, err := l.reconstructor.Signal(ctx, networkSpec, sample.MixedWavPath, sample.VideoFrameRate, sample.Peak, matchSamples)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	dir, err := storage.Save(Record{
		Speaker:      speakerID,
		VideoPath:    triple.VideoPath,
		SpeechPath:   triple.SpeechPath,
		NoisePath:    triple.NoisePath,
		Mixture:      sample.MixedSignal,
		Enhanced:     enhancedSignal,
		Network:      networkSignal,
		MixtureSpec:  mixtureSpec,
		EnhancedSpec: enhancedSpec,
		NetworkSpec:  networkSpec,
	})
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.OutputDir = dir
	return outcome
}

func (l *Loop) recordOutcome(ctx context.Context, runID int64, speakerID string, triple processing.Triple, outcome Outcome) {
	if l.store == nil || runID == 0 {
		return
	}
	record := runs.SampleRecord{
		Speaker:    speakerID,
		VideoPath:  triple.VideoPath,
		SpeechPath: triple.SpeechPath,
		NoisePath:  triple.NoisePath,
		OutputDir:  outcome.OutputDir,
	}
	if outcome.Err != nil {
		record.Status = runs.SampleFailed
		record.ErrorMessage = outcome.Err.Error()
	} else {
		record.Status = runs.SampleSucceeded
		loss := outcome.Loss
		record.Loss = &loss
	}
	if _, err := l.store.RecordSample(ctx, runID, record); err != nil {
		l.logger.WarnContext(ctx, "failed to record sample outcome", logging.Error(err))
	}
}

func (l *Loop) finishRun(ctx context.Context, runID int64, report *Report, runErr error) {
	if l.store == nil || runID == 0 {
		return
	}
	status := runs.StatusCompleted
	message := ""
	if runErr != nil {
		status = runs.StatusFailed
		message = runErr.Error()
	} else if report.Failed() > 0 {
		message = fmt.Sprintf("%d of %d samples failed", report.Failed(), len(report.Outcomes))
	}
	if err := l.store.UpdateRunStatus(ctx, runID, status, message); err != nil {
		l.logger.WarnContext(ctx, "failed to update run status", logging.Error(err))
	}
}
