package norm_test

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"clearvoice/internal/norm"
	"clearvoice/internal/tensor"
)

func batch(t *testing.T, values ...float32) *tensor.Tensor {
	t.Helper()
	ts, err := tensor.FromData(values, len(values), 1)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestApplyBeforeFitFails(t *testing.T) {
	n := norm.New()
	if err := n.Apply(batch(t, 1, 2, 3)); !errors.Is(err, norm.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}

func TestApplyIsDeterministic(t *testing.T) {
	n := norm.New()
	if err := n.Fit(batch(t, 1, 2, 3, 4)); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	a := batch(t, 1, 2, 3, 4)
	b := batch(t, 1, 2, 3, 4)
	if err := n.Apply(a); err != nil {
		t.Fatal(err)
	}
	if err := n.Apply(b); err != nil {
		t.Fatal(err)
	}
	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Fatalf("apply not deterministic at %d: %f vs %f", i, a.Data()[i], b.Data()[i])
		}
	}

	// Fitted statistics for 1..4: mean 2.5, population std sqrt(1.25).
	want := (1.0 - 2.5) / math.Sqrt(1.25)
	if math.Abs(float64(a.Data()[0])-want) > 1e-6 {
		t.Fatalf("unexpected normalized value %f, want %f", a.Data()[0], want)
	}
}

func TestFitOnConstantBatch(t *testing.T) {
	n := norm.New()
	if err := n.Fit(batch(t, 5, 5, 5)); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	ts := batch(t, 5, 5, 5)
	if err := n.Apply(ts); err != nil {
		t.Fatal(err)
	}
	for _, v := range ts.Data() {
		if v != 0 {
			t.Fatalf("constant batch should normalize to zero, got %f", v)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normalization.bin")

	n := norm.New()
	if err := n.Fit(batch(t, 0, 10)); err != nil {
		t.Fatal(err)
	}
	if err := n.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := norm.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	a := batch(t, 0, 10)
	b := batch(t, 0, 10)
	if err := n.Apply(a); err != nil {
		t.Fatal(err)
	}
	if err := loaded.Apply(b); err != nil {
		t.Fatal(err)
	}
	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Fatalf("loaded state diverges at %d", i)
		}
	}
}

func TestSaveUnfittedFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normalization.bin")
	if err := norm.New().Save(path); !errors.Is(err, norm.ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := norm.Load(filepath.Join(t.TempDir(), "absent.bin")); err == nil {
		t.Fatal("expected error for missing cache")
	}
}
