// Package dsp drives the external clearvoice-dsp helper, the numeric
// collaborator that turns media files into spectro-temporal tensors and
// inverts spectrograms back to audio. Only the tensor-shape and metadata
// contracts live here; the transform mathematics belong to the helper.
package dsp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clearvoice/internal/media"
	"clearvoice/internal/services"
	"clearvoice/internal/tensor"
)

// DefaultBinary is the helper executable name used when none is configured.
const DefaultBinary = "clearvoice-dsp"

// SpectrogramOptions carry the framing parameters that must match between
// training and inference.
type SpectrogramOptions struct {
	SliceDurationMS int
	VideoSlices     int
	FrameRate       float64
}

// Client describes the DSP helper behaviour the pipeline depends on.
type Client interface {
	// VideoTensor extracts the fixed-shape video tensor and reports the
	// source frame rate.
	VideoTensor(ctx context.Context, videoPath string) (*tensor.Tensor, float64, error)
	// Spectrogram computes the sliced spectrogram tensor of an audio file.
	Spectrogram(ctx context.Context, audioPath string, opts SpectrogramOptions) (*tensor.Tensor, error)
	// InvertSpectrogram reconstructs a time-domain signal from a full
	// spectrogram, borrowing phase from the given reference recording.
	InvertSpectrogram(ctx context.Context, spec *tensor.Tensor, phaseSourcePath string, frameRate float64) (*media.AudioSignal, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default helper binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithCommandRunner replaces process execution, for tests.
func WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) Option {
	return func(c *CLI) {
		c.commandRunner = runner
	}
}

// WithTimeout bounds each helper invocation. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *CLI) {
		c.timeout = timeout
	}
}

// CLI wraps the clearvoice-dsp command-line helper. Inputs and outputs are
// exchanged through files under workDir.
type CLI struct {
	binary        string
	workDir       string
	timeout       time.Duration
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewCLI constructs a client that stages exchange files under workDir.
func NewCLI(workDir string, opts ...Option) *CLI {
	cli := &CLI{binary: DefaultBinary, workDir: workDir}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

type videoMeta struct {
	FrameRate float64 `json:"frame_rate"`
}

// VideoTensor implements Client.
func (c *CLI) VideoTensor(ctx context.Context, videoPath string) (*tensor.Tensor, float64, error) {
	dir, cleanup, err := c.tempDir("video")
	if err != nil {
		return nil, 0, err
	}
	defer cleanup()

	outPath := filepath.Join(dir, "video.npy")
	metaPath := filepath.Join(dir, "meta.json")
	err = c.run(ctx, "video-tensor",
		"--input", videoPath,
		"--out", outPath,
		"--meta", metaPath,
	)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrExternalTool, "dsp", "video-tensor", videoPath, err)
	}

	ts, err := tensor.ReadNPYFile(outPath)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrExternalTool, "dsp", "video-tensor", "helper produced no readable tensor", err)
	}
	metaRaw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrExternalTool, "dsp", "video-tensor", "helper produced no metadata", err)
	}
	var meta videoMeta
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, 0, services.Wrap(services.ErrExternalTool, "dsp", "video-tensor", "malformed metadata", err)
	}
	if meta.FrameRate <= 0 {
		return nil, 0, services.Wrap(services.ErrExternalTool, "dsp", "video-tensor",
			fmt.Sprintf("invalid frame rate %f for %s", meta.FrameRate, videoPath), nil)
	}
	return ts, meta.FrameRate, nil
}

// Spectrogram implements Client.
func (c *CLI) Spectrogram(ctx context.Context, audioPath string, opts SpectrogramOptions) (*tensor.Tensor, error) {
	dir, cleanup, err := c.tempDir("spec")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	outPath := filepath.Join(dir, "spectrogram.npy")
	err = c.run(ctx, "spectrogram",
		"--input", audioPath,
		"--slice-duration-ms", strconv.Itoa(opts.SliceDurationMS),
		"--video-slices", strconv.Itoa(opts.VideoSlices),
		"--frame-rate", formatRate(opts.FrameRate),
		"--out", outPath,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "dsp", "spectrogram", audioPath, err)
	}
	ts, err := tensor.ReadNPYFile(outPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "dsp", "spectrogram", "helper produced no readable tensor", err)
	}
	return ts, nil
}

// InvertSpectrogram implements Client.
func (c *CLI) InvertSpectrogram(ctx context.Context, spec *tensor.Tensor, phaseSourcePath string, frameRate float64) (*media.AudioSignal, error) {
	dir, cleanup, err := c.tempDir("istft")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	specPath := filepath.Join(dir, "spectrogram.npy")
	if err := tensor.WriteNPYFile(specPath, spec); err != nil {
		return nil, err
	}
	outPath := filepath.Join(dir, "signal.wav")
	err = c.run(ctx, "istft",
		"--spectrogram", specPath,
		"--phase-source", phaseSourcePath,
		"--frame-rate", formatRate(frameRate),
		"--out", outPath,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "dsp", "istft", phaseSourcePath, err)
	}
	signal, err := media.ReadWAV(outPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "dsp", "istft", "helper produced no readable audio", err)
	}
	return signal, nil
}

func (c *CLI) run(ctx context.Context, subcommand string, args ...string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	cmdArgs := append([]string{subcommand}, args...)
	if c.commandRunner != nil {
		return c.commandRunner(ctx, c.binary, cmdArgs...)
	}
	cmd := exec.CommandContext(ctx, c.binary, cmdArgs...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", c.binary, subcommand, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (c *CLI) tempDir(prefix string) (string, func(), error) {
	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("dsp: ensure work dir: %w", err)
	}
	dir, err := os.MkdirTemp(c.workDir, prefix+"-")
	if err != nil {
		return "", nil, fmt.Errorf("dsp: create temp dir: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
