// Package norm computes and applies the video normalization statistics that
// must stay identical between training and every later inference run.
package norm

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"clearvoice/internal/tensor"
)

// ErrNotFitted is returned when Apply is called before Fit.
var ErrNotFitted = errors.New("normalizer has not been fitted")

// VideoNormalizer holds the affine statistics for video tensors. Fit mutates
// the state once per training run; Apply is deterministic thereafter.
type VideoNormalizer struct {
	state state
}

type state struct {
	Mean   float64 `msgpack:"mean"`
	Std    float64 `msgpack:"std"`
	Fitted bool    `msgpack:"fitted"`
}

// New returns an unfitted normalizer.
func New() *VideoNormalizer {
	return &VideoNormalizer{}
}

// Fit computes mean and standard deviation over the full batch. A constant
// batch normalizes with unit scale so Apply stays well defined.
func (n *VideoNormalizer) Fit(video *tensor.Tensor) error {
	data := video.Data()
	if len(data) == 0 {
		return fmt.Errorf("norm: cannot fit on an empty batch")
	}

	var sum float64
	for _, v := range data {
		sum += float64(v)
	}
	mean := sum / float64(len(data))

	var sq float64
	for _, v := range data {
		d := float64(v) - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(data)))
	if std == 0 {
		std = 1
	}

	n.state = state{Mean: mean, Std: std, Fitted: true}
	return nil
}

// Apply normalizes the tensor in place using the fitted statistics. It may
// be called any number of times and always produces the same output for the
// same input.
func (n *VideoNormalizer) Apply(video *tensor.Tensor) error {
	if !n.state.Fitted {
		return ErrNotFitted
	}
	data := video.Data()
	mean := float32(n.state.Mean)
	inv := float32(1 / n.state.Std)
	for i := range data {
		data[i] = (data[i] - mean) * inv
	}
	return nil
}

// Fitted reports whether Fit has run.
func (n *VideoNormalizer) Fitted() bool { return n.state.Fitted }

// Save persists the fitted state to path. Saving an unfitted normalizer is
// an error; the cache must always hold usable statistics.
func (n *VideoNormalizer) Save(path string) error {
	if !n.state.Fitted {
		return ErrNotFitted
	}
	payload, err := msgpack.Marshal(n.state)
	if err != nil {
		return fmt.Errorf("norm: encode state: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("norm: write %s: %w", path, err)
	}
	return nil
}

// Load reads previously fitted state from path.
func Load(path string) (*VideoNormalizer, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("norm: read %s: %w", path, err)
	}
	var st state
	if err := msgpack.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("norm: decode %s: %w", path, err)
	}
	if !st.Fitted {
		return nil, fmt.Errorf("norm: %s holds unfitted state", path)
	}
	return &VideoNormalizer{state: st}, nil
}
