package reconstruct

import (
	"context"
	"errors"
	"testing"

	"clearvoice/internal/media"
	"clearvoice/internal/services/dsp"
	"clearvoice/internal/tensor"
)

func mustTensor(t *testing.T, data []float32, shape ...int) *tensor.Tensor {
	t.Helper()
	ts, err := tensor.FromData(data, shape...)
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	return ts
}

func TestAssembleSlicesPreservesOrderAlongTime(t *testing.T) {
	// Two slices, two frequency bins, two frames per slice. Values encode
	// (slice, freq, frame) as s*100 + f*10 + t.
	sliced := mustTensor(t, []float32{
		0, 1, 10, 11, // slice 0
		100, 101, 110, 111, // slice 1
	}, 2, 2, 2)

	full, err := AssembleSlices(sliced)
	if err != nil {
		t.Fatalf("AssembleSlices: %v", err)
	}
	want := mustTensor(t, []float32{
		0, 1, 100, 101, // freq 0: slice 0 frames, then slice 1 frames
		10, 11, 110, 111, // freq 1
	}, 2, 4)
	if !full.Equal(want) {
		t.Errorf("assembled = %v %v, want %v", full.Shape(), full.Data(), want.Data())
	}
}

func TestAssembleSlicesRejectsWrongRank(t *testing.T) {
	flat := mustTensor(t, []float32{1, 2, 3, 4}, 2, 2)
	if _, err := AssembleSlices(flat); err == nil {
		t.Fatal("expected an error for a rank-2 input")
	}
}

func TestTrimToSharedCutsToShortest(t *testing.T) {
	a := mustTensor(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := mustTensor(t, []float32{7, 8, 9, 10}, 2, 2)

	trimmed, err := TrimToShared(a, b)
	if err != nil {
		t.Fatalf("TrimToShared: %v", err)
	}
	wantA := mustTensor(t, []float32{1, 2, 4, 5}, 2, 2)
	if !trimmed[0].Equal(wantA) {
		t.Errorf("trimmed a = %v, want %v", trimmed[0].Data(), wantA.Data())
	}
	if trimmed[1] != b {
		t.Error("already-short spectrogram should pass through untouched")
	}
}

func TestTrimToSharedRejectsFrequencyMismatch(t *testing.T) {
	a := mustTensor(t, []float32{1, 2}, 1, 2)
	b := mustTensor(t, []float32{1, 2, 3, 4}, 2, 2)
	if _, err := TrimToShared(a, b); err == nil {
		t.Fatal("expected an error for mismatched frequency bins")
	}
}

type invertFunc func(ctx context.Context, spec *tensor.Tensor, phaseSourcePath string, frameRate float64) (*media.AudioSignal, error)

type fakeInverter struct{ invert invertFunc }

func (f *fakeInverter) VideoTensor(context.Context, string) (*tensor.Tensor, float64, error) {
	return nil, 0, errors.New("not used")
}

func (f *fakeInverter) Spectrogram(context.Context, string, dsp.SpectrogramOptions) (*tensor.Tensor, error) {
	return nil, errors.New("not used")
}

func (f *fakeInverter) InvertSpectrogram(ctx context.Context, spec *tensor.Tensor, phaseSourcePath string, frameRate float64) (*media.AudioSignal, error) {
	return f.invert(ctx, spec, phaseSourcePath, frameRate)
}

func TestSignalRestoresGainAndDuration(t *testing.T) {
	var gotPhase string
	var gotRate float64
	r := New(&fakeInverter{invert: func(_ context.Context, _ *tensor.Tensor, phase string, rate float64) (*media.AudioSignal, error) {
		gotPhase, gotRate = phase, rate
		return &media.AudioSignal{SampleRate: 16000, Samples: []float64{0.1, 0.2, 0.3, 0.4, 0.5}}, nil
	}})

	full := mustTensor(t, []float32{1, 2}, 1, 2)
	signal, err := r.Signal(context.Background(), full, "mixed.wav", 25, 2, 3)
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if gotPhase != "mixed.wav" || gotRate != 25 {
		t.Errorf("inverter saw phase=%q rate=%f", gotPhase, gotRate)
	}
	want := []float64{0.2, 0.4, 0.6}
	if len(signal.Samples) != len(want) {
		t.Fatalf("samples = %d, want %d", len(signal.Samples), len(want))
	}
	for i, v := range want {
		if d := signal.Samples[i] - v; d > 1e-9 || d < -1e-9 {
			t.Errorf("sample %d = %f, want %f", i, signal.Samples[i], v)
		}
	}
}

func TestSignalPropagatesInverterFailure(t *testing.T) {
	r := New(&fakeInverter{invert: func(context.Context, *tensor.Tensor, string, float64) (*media.AudioSignal, error) {
		return nil, errors.New("istft failed")
	}})

	full := mustTensor(t, []float32{1, 2}, 1, 2)
	if _, err := r.Signal(context.Background(), full, "mixed.wav", 25, 1, 2); err == nil {
		t.Fatal("expected inverter failure to propagate")
	}
}
