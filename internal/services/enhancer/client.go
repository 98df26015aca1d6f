// Package enhancer drives the external clearvoice-net helper, which owns the
// audio-visual enhancement network. Training archives, evaluation batches and
// prediction inputs are exchanged as NPZ/NPY files; this package never
// inspects the network itself.
package enhancer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"clearvoice/internal/blob"
	"clearvoice/internal/services"
	"clearvoice/internal/tensor"
)

// DefaultBinary is the helper executable name used when none is configured.
const DefaultBinary = "clearvoice-net"

// TrainRequest names the artifacts a training run consumes and produces.
type TrainRequest struct {
	// TrainArchive is the NPZ blob holding the aggregated training tables.
	TrainArchive string
	// ValidationArchive is the NPZ blob used for held-out evaluation.
	ValidationArchive string
	// ModelDir is where the helper persists checkpoints.
	ModelDir string
	// TensorboardDir receives training curves; optional.
	TensorboardDir string
}

// Client describes the network helper behaviour the pipeline depends on.
type Client interface {
	// Train runs a full training session over the given archives.
	Train(ctx context.Context, req TrainRequest) error
	// Evaluate reports the loss of the current model on one batch.
	Evaluate(ctx context.Context, table *blob.Table) (float64, error)
	// Predict runs inference and returns the enhanced spectrogram slices,
	// matching the shape of the mixed input.
	Predict(ctx context.Context, mixed, video *tensor.Tensor) (*tensor.Tensor, error)
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

// CLI wraps the clearvoice-net command-line helper. modelDir points at the
// model cache shared between training and prediction.
type CLI struct {
	binary        string
	workDir       string
	modelDir      string
	timeout       time.Duration
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewCLI constructs a client staging exchange files under workDir and
// loading/saving model state under modelDir.
func NewCLI(workDir, modelDir string, opts ...Option) *CLI {
	cli := &CLI{binary: DefaultBinary, workDir: workDir, modelDir: modelDir}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Train implements Client.
func (c *CLI) Train(ctx context.Context, req TrainRequest) error {
	if req.TrainArchive == "" {
		return services.Wrap(services.ErrValidation, "enhancer", "train", "training archive path is required", nil)
	}
	args := []string{
		"--train", req.TrainArchive,
		"--model-dir", req.ModelDir,
	}
	if req.ValidationArchive != "" {
		args = append(args, "--validation", req.ValidationArchive)
	}
	if req.TensorboardDir != "" {
		args = append(args, "--tensorboard-dir", req.TensorboardDir)
	}
	if err := c.run(ctx, "train", args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "enhancer", "train", req.TrainArchive, err)
	}
	return nil
}

type evalResult struct {
	Loss float64 `json:"loss"`
}

// Evaluate implements Client.
func (c *CLI) Evaluate(ctx context.Context, table *blob.Table) (float64, error) {
	dir, cleanup, err := c.tempDir("eval")
	if err != nil {
		return 0, err
	}
	defer cleanup()

	batchPath := filepath.Join(dir, "batch.npz")
	if err := blob.Write(batchPath, table); err != nil {
		return 0, err
	}
	outPath := filepath.Join(dir, "result.json")
	err = c.run(ctx, "evaluate",
		"--batch", batchPath,
		"--model-dir", c.modelDir,
		"--out", outPath,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "enhancer", "evaluate", "", err)
	}
	raw, err := os.ReadFile(outPath)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "enhancer", "evaluate", "helper produced no result", err)
	}
	var result evalResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "enhancer", "evaluate", "malformed result", err)
	}
	return result.Loss, nil
}

// Predict implements Client.
func (c *CLI) Predict(ctx context.Context, mixed, video *tensor.Tensor) (*tensor.Tensor, error) {
	dir, cleanup, err := c.tempDir("predict")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	mixedPath := filepath.Join(dir, "mixed.npy")
	if err := tensor.WriteNPYFile(mixedPath, mixed); err != nil {
		return nil, err
	}
	videoPath := filepath.Join(dir, "video.npy")
	if err := tensor.WriteNPYFile(videoPath, video); err != nil {
		return nil, err
	}
	outPath := filepath.Join(dir, "enhanced.npy")
	err = c.run(ctx, "predict",
		"--mixed", mixedPath,
		"--video", videoPath,
		"--model-dir", c.modelDir,
		"--out", outPath,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "enhancer", "predict", "", err)
	}
	enhanced, err := tensor.ReadNPYFile(outPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "enhancer", "predict", "helper produced no readable tensor", err)
	}
	if !sameShape(enhanced, mixed) {
		return nil, services.Wrap(services.ErrExternalTool, "enhancer", "predict",
			fmt.Sprintf("enhanced shape %v does not match mixed shape %v", enhanced.Shape(), mixed.Shape()), nil)
	}
	return enhanced, nil
}

func sameShape(a, b *tensor.Tensor) bool {
	as, bs := a.Shape(), b.Shape()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
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
		return "", nil, fmt.Errorf("enhancer: ensure work dir: %w", err)
	}
	dir, err := os.MkdirTemp(c.workDir, prefix+"-")
	if err != nil {
		return "", nil, fmt.Errorf("enhancer: create temp dir: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
