// Package reconstruct turns per-slice network outputs back into audio: slice
// assembly along the time axis, shared-length trimming across the compared
// spectrograms, and inverse transform with the mixture's phase, gain and
// duration restored.
package reconstruct

import (
	"context"
	"fmt"

	"clearvoice/internal/media"
	"clearvoice/internal/services/dsp"
	"clearvoice/internal/tensor"
)

// AssembleSlices concatenates a sliced spectrogram [slices, freq, time] along
// the time axis into one full spectrogram [freq, slices*time], preserving
// slice order.
func AssembleSlices(sliced *tensor.Tensor) (*tensor.Tensor, error) {
	shape := sliced.Shape()
	if len(shape) != 3 {
		return nil, fmt.Errorf("reconstruct: sliced spectrogram has shape %v, want [slices, freq, time]", shape)
	}
	slices, freq, sliceTime := shape[0], shape[1], shape[2]

	full, err := tensor.New(freq, slices*sliceTime)
	if err != nil {
		return nil, err
	}
	for i := 0; i < slices; i++ {
		for f := 0; f < freq; f++ {
			for tt := 0; tt < sliceTime; tt++ {
				full.Set(sliced.At(i, f, tt), f, i*sliceTime+tt)
			}
		}
	}
	return full, nil
}

// TrimToShared cuts full spectrograms [freq, time] to their shortest shared
// time extent so mixture, enhanced and raw network outputs stay comparable
// frame for frame. Frequency extents must already agree.
func TrimToShared(specs ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("reconstruct: nothing to trim")
	}
	freq := -1
	minTime := -1
	for i, spec := range specs {
		shape := spec.Shape()
		if len(shape) != 2 {
			return nil, fmt.Errorf("reconstruct: spectrogram %d has shape %v, want [freq, time]", i, shape)
		}
		if freq < 0 {
			freq = shape[0]
		} else if shape[0] != freq {
			return nil, fmt.Errorf("reconstruct: spectrogram %d has %d frequency bins, want %d", i, shape[0], freq)
		}
		if minTime < 0 || shape[1] < minTime {
			minTime = shape[1]
		}
	}

	out := make([]*tensor.Tensor, len(specs))
	for i, spec := range specs {
		timeLen := spec.Shape()[1]
		if timeLen == minTime {
			out[i] = spec
			continue
		}
		trimmed, err := tensor.New(freq, minTime)
		if err != nil {
			return nil, err
		}
		for f := 0; f < freq; f++ {
			for tt := 0; tt < minTime; tt++ {
				trimmed.Set(spec.At(f, tt), f, tt)
			}
		}
		out[i] = trimmed
	}
	return out, nil
}

// Reconstructor inverts full spectrograms through the DSP helper.
type Reconstructor struct {
	dsp dsp.Client
}

// New returns a reconstructor backed by the given DSP client.
func New(client dsp.Client) *Reconstructor {
	return &Reconstructor{dsp: client}
}

// Signal inverts a full spectrogram to the time domain. The mixture recording
// at phaseSourcePath supplies the phase, gain rescales the result back to the
// mixture's loudness, and matchSamples pins the duration to the mixture's.
func (r *Reconstructor) Signal(ctx context.Context, full *tensor.Tensor, phaseSourcePath string, frameRate, gain float64, matchSamples int) (*media.AudioSignal, error) {
	signal, err := r.dsp.InvertSpectrogram(ctx, full, phaseSourcePath, frameRate)
	if err != nil {
		return nil, err
	}
	signal.Scale(gain)
	signal.MatchLength(matchSamples)
	return signal, nil
}
