// Package processing turns one (video, speech, noise) triple into the aligned
// tensors a training blob or a prediction pass needs. Mixing and loudness
// bookkeeping happen here; spectro-temporal transforms are delegated to the
// DSP helper.
package processing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"clearvoice/internal/blob"
	"clearvoice/internal/config"
	"clearvoice/internal/logging"
	"clearvoice/internal/media"
	"clearvoice/internal/services/dsp"
	"clearvoice/internal/tensor"
)

// Triple names the three source files of one sample.
type Triple struct {
	VideoPath  string
	SpeechPath string
	NoisePath  string
}

// Sample is the preprocessed form of one triple. The four tensors share the
// same slice count along the leading axis. The mixture is kept both as a
// signal (original loudness, for playback artifacts) and as a peak-normalized
// WAV on disk (the network input and the phase source for reconstruction).
type Sample struct {
	Video  *tensor.Tensor
	Mixed  *tensor.Tensor
	Speech *tensor.Tensor
	Noise  *tensor.Tensor

	MixedSignal    *media.AudioSignal
	MixedWavPath   string
	Peak           float64
	VideoFrameRate float64

	dir string
}

// Table reinterprets the sample as a single-source blob table.
func (s *Sample) Table() (*blob.Table, error) {
	return blob.NewTable(s.Video, s.Mixed, s.Speech, s.Noise)
}

// Cleanup removes the sample's staging files. Safe to call more than once.
func (s *Sample) Cleanup() {
	if s.dir != "" {
		_ = os.RemoveAll(s.dir)
		s.dir = ""
	}
}

// Preprocessor is the contract the preprocess and predict workflows depend on.
type Preprocessor interface {
	// Preprocess converts one triple into an aligned sample.
	Preprocess(ctx context.Context, triple Triple) (*Sample, error)
	// CleanSpectrogram computes the spectrogram of a clean speech recording,
	// used as a per-speaker reference during prediction.
	CleanSpectrogram(ctx context.Context, speechPath string) (*tensor.Tensor, error)
}

// Pipeline is the default Preprocessor, built on the DSP helper client.
type Pipeline struct {
	dsp     dsp.Client
	workDir string
	cfg     config.Preprocess
	logger  *slog.Logger
}

// NewPipeline constructs a pipeline staging intermediate files under workDir.
func NewPipeline(client dsp.Client, workDir string, cfg config.Preprocess, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		dsp:     client,
		workDir: workDir,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "processing"),
	}
}

// Preprocess implements Preprocessor. The returned sample owns staging files;
// the caller must Cleanup once the artifacts are no longer needed.
func (p *Pipeline) Preprocess(ctx context.Context, triple Triple) (*Sample, error) {
	video, frameRate, err := p.dsp.VideoTensor(ctx, triple.VideoPath)
	if err != nil {
		return nil, err
	}

	speech, err := media.ReadWAV(triple.SpeechPath)
	if err != nil {
		return nil, err
	}
	noise, err := media.ReadWAV(triple.NoisePath)
	if err != nil {
		return nil, err
	}
	mixed, err := media.Mix(speech, noise)
	if err != nil {
		return nil, fmt.Errorf("mix %s with %s: %w", triple.SpeechPath, triple.NoisePath, err)
	}
	normalizedMixed, peak := mixed.Normalized()

	dir, err := p.stageDir()
	if err != nil {
		return nil, err
	}
	sample := &Sample{
		MixedSignal:    mixed,
		Peak:           peak,
		VideoFrameRate: frameRate,
		dir:            dir,
	}
	if err := p.fillSpectrograms(ctx, sample, video, normalizedMixed, speech, mixed, frameRate); err != nil {
		sample.Cleanup()
		return nil, err
	}

	p.logger.DebugContext(ctx, "preprocessed triple",
		logging.String("video", triple.VideoPath),
		logging.String("speech", triple.SpeechPath),
		logging.String("noise", triple.NoisePath),
		logging.Int("slices", sample.Video.Len()),
		logging.Float64("peak", peak))
	return sample, nil
}

func (p *Pipeline) fillSpectrograms(ctx context.Context, sample *Sample, video *tensor.Tensor, normalizedMixed, speech, mixed *media.AudioSignal, frameRate float64) error {
	mixedPath := filepath.Join(sample.dir, "mixed.wav")
	if err := media.WriteWAV(mixedPath, normalizedMixed); err != nil {
		return err
	}
	speechPath := filepath.Join(sample.dir, "speech.wav")
	if err := media.WriteWAV(speechPath, speech); err != nil {
		return err
	}
	// The interference actually present in the mixture is the tiled noise
	// segment, recovered exactly as mixture minus speech.
	noisePath := filepath.Join(sample.dir, "noise.wav")
	if err := media.WriteWAV(noisePath, residual(mixed, speech)); err != nil {
		return err
	}

	opts := dsp.SpectrogramOptions{
		SliceDurationMS: p.cfg.SliceDurationMS,
		VideoSlices:     p.cfg.VideoSlices,
		FrameRate:       frameRate,
	}
	mixedSpec, err := p.dsp.Spectrogram(ctx, mixedPath, opts)
	if err != nil {
		return err
	}
	speechSpec, err := p.dsp.Spectrogram(ctx, speechPath, opts)
	if err != nil {
		return err
	}
	noiseSpec, err := p.dsp.Spectrogram(ctx, noisePath, opts)
	if err != nil {
		return err
	}

	video, mixedSpec, speechSpec, noiseSpec, err = alignSliceCounts(video, mixedSpec, speechSpec, noiseSpec)
	if err != nil {
		return err
	}
	sample.Video = video
	sample.Mixed = mixedSpec
	sample.Speech = speechSpec
	sample.Noise = noiseSpec
	sample.MixedWavPath = mixedPath
	return nil
}

// CleanSpectrogram implements Preprocessor. Clean references use the
// configured default frame rate since no video accompanies them.
func (p *Pipeline) CleanSpectrogram(ctx context.Context, speechPath string) (*tensor.Tensor, error) {
	return p.dsp.Spectrogram(ctx, speechPath, dsp.SpectrogramOptions{
		SliceDurationMS: p.cfg.SliceDurationMS,
		VideoSlices:     p.cfg.VideoSlices,
		FrameRate:       float64(p.cfg.VideoFrameRate),
	})
}

// alignSliceCounts trims all tensors to the shortest leading dimension so a
// sample can never contribute misaligned rows to a blob table.
func alignSliceCounts(tensors ...*tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, *tensor.Tensor, *tensor.Tensor, error) {
	n := tensors[0].Len()
	for _, t := range tensors[1:] {
		if t.Len() < n {
			n = t.Len()
		}
	}
	out := make([]*tensor.Tensor, len(tensors))
	for i, t := range tensors {
		trimmed, err := t.Truncate(n)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		out[i] = trimmed
	}
	return out[0], out[1], out[2], out[3], nil
}

func residual(mixed, speech *media.AudioSignal) *media.AudioSignal {
	samples := make([]float64, len(mixed.Samples))
	for i := range samples {
		s := 0.0
		if i < len(speech.Samples) {
			s = speech.Samples[i]
		}
		samples[i] = mixed.Samples[i] - s
	}
	return &media.AudioSignal{SampleRate: mixed.SampleRate, Samples: samples}
}

func (p *Pipeline) stageDir() (string, error) {
	if err := os.MkdirAll(p.workDir, 0o755); err != nil {
		return "", fmt.Errorf("processing: ensure work dir: %w", err)
	}
	dir, err := os.MkdirTemp(p.workDir, "sample-")
	if err != nil {
		return "", fmt.Errorf("processing: create sample dir: %w", err)
	}
	return dir, nil
}
