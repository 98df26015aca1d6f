package media_test

import (
	"math"
	"path/filepath"
	"testing"

	"clearvoice/internal/media"
)

func TestMixTilesShortNoise(t *testing.T) {
	speech := &media.AudioSignal{SampleRate: 16000, Samples: []float64{0.1, 0.2, 0.3, 0.4}}
	noise := &media.AudioSignal{SampleRate: 16000, Samples: []float64{0.05, -0.05}}

	mixed, err := media.Mix(speech, noise)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}
	want := []float64{0.15, 0.15, 0.35, 0.35}
	for i, v := range want {
		if math.Abs(mixed.Samples[i]-v) > 1e-9 {
			t.Fatalf("sample %d: got %f, want %f", i, mixed.Samples[i], v)
		}
	}
}

func TestMixRejectsRateMismatch(t *testing.T) {
	speech := &media.AudioSignal{SampleRate: 16000, Samples: []float64{0}}
	noise := &media.AudioSignal{SampleRate: 8000, Samples: []float64{0}}
	if _, err := media.Mix(speech, noise); err == nil {
		t.Fatal("expected sample rate mismatch error")
	}
}

func TestNormalizedRestoresWithGain(t *testing.T) {
	signal := &media.AudioSignal{SampleRate: 16000, Samples: []float64{0.25, -0.5, 0.1}}

	normalized, gain := signal.Normalized()
	if math.Abs(gain-0.5) > 1e-9 {
		t.Fatalf("expected gain 0.5, got %f", gain)
	}
	if p := normalized.Peak(); math.Abs(p-1) > 1e-9 {
		t.Fatalf("expected unit peak, got %f", p)
	}

	normalized.Scale(gain)
	for i := range signal.Samples {
		if math.Abs(normalized.Samples[i]-signal.Samples[i]) > 1e-9 {
			t.Fatalf("sample %d not restored", i)
		}
	}
}

func TestMatchLength(t *testing.T) {
	signal := &media.AudioSignal{SampleRate: 16000, Samples: []float64{1, 2, 3}}
	signal.MatchLength(5)
	if len(signal.Samples) != 5 || signal.Samples[4] != 0 {
		t.Fatalf("expected zero-padded length 5, got %v", signal.Samples)
	}
	signal.MatchLength(2)
	if len(signal.Samples) != 2 || signal.Samples[1] != 2 {
		t.Fatalf("expected truncation to 2, got %v", signal.Samples)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	samples := make([]float64, 1600)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}
	signal := &media.AudioSignal{SampleRate: 16000, Samples: samples}

	if err := media.WriteWAV(path, signal); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}
	back, err := media.ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if back.SampleRate != 16000 {
		t.Fatalf("sample rate changed: %d", back.SampleRate)
	}
	if len(back.Samples) != len(samples) {
		t.Fatalf("length changed: %d vs %d", len(back.Samples), len(samples))
	}
	for i := range samples {
		if math.Abs(back.Samples[i]-samples[i]) > 1.0/float64(1<<14) {
			t.Fatalf("sample %d drifted: got %f, want %f", i, back.Samples[i], samples[i])
		}
	}
}

func TestWriteWAVRejectsEmptySignal(t *testing.T) {
	dir := t.TempDir()
	if err := media.WriteWAV(filepath.Join(dir, "empty.wav"), &media.AudioSignal{SampleRate: 16000}); err == nil {
		t.Fatal("expected error for empty signal")
	}
}
