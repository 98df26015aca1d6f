package tensor_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"clearvoice/internal/tensor"
)

func sequential(t *testing.T, shape ...int) *tensor.Tensor {
	t.Helper()
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	data := make([]float32, size)
	for i := range data {
		data[i] = float32(i)
	}
	ts, err := tensor.FromData(data, shape...)
	if err != nil {
		t.Fatalf("FromData failed: %v", err)
	}
	return ts
}

func TestConcatPreservesOrder(t *testing.T) {
	a := sequential(t, 2, 3)
	b := sequential(t, 4, 3)

	joined, err := tensor.Concat([]*tensor.Tensor{a, b})
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	if got := joined.Len(); got != 6 {
		t.Fatalf("expected 6 rows, got %d", got)
	}
	if joined.At(0, 0) != 0 || joined.At(2, 0) != 0 || joined.At(5, 2) != 11 {
		t.Fatalf("unexpected element order: %v", joined.Data())
	}
}

func TestConcatRejectsShapeMismatch(t *testing.T) {
	a := sequential(t, 2, 3)
	b := sequential(t, 2, 4)
	if _, err := tensor.Concat([]*tensor.Tensor{a, b}); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestTakeGathersRows(t *testing.T) {
	ts := sequential(t, 4, 2)
	picked, err := ts.Take([]int{3, 1})
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if picked.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", picked.Len())
	}
	if picked.At(0, 0) != 6 || picked.At(1, 1) != 3 {
		t.Fatalf("unexpected gathered rows: %v", picked.Data())
	}
}

func TestTakeRejectsOutOfRange(t *testing.T) {
	ts := sequential(t, 2, 2)
	if _, err := ts.Take([]int{0, 2}); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestTruncate(t *testing.T) {
	ts := sequential(t, 5, 2)
	short, err := ts.Truncate(3)
	if err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	if short.Len() != 3 || short.At(2, 1) != 5 {
		t.Fatalf("unexpected truncation: %v", short.Data())
	}
}

func TestNPYRoundTrip(t *testing.T) {
	ts := sequential(t, 2, 3, 4)

	var buf bytes.Buffer
	if err := tensor.WriteNPY(&buf, ts); err != nil {
		t.Fatalf("WriteNPY failed: %v", err)
	}
	// Header block must be 64-byte aligned per the format spec; the payload
	// holds 24 float32 values.
	if buf.Len()%64 != 24*4%64 {
		t.Fatalf("unexpected stream length %d", buf.Len())
	}

	back, err := tensor.ReadNPY(&buf)
	if err != nil {
		t.Fatalf("ReadNPY failed: %v", err)
	}
	if !back.Equal(ts) {
		t.Fatalf("round trip mismatch: %v vs %v", back.Shape(), ts.Shape())
	}
}

func TestNPYRejectsForeignDtype(t *testing.T) {
	var buf bytes.Buffer
	ts := sequential(t, 2)
	if err := tensor.WriteNPY(&buf, ts); err != nil {
		t.Fatalf("WriteNPY failed: %v", err)
	}
	raw := bytes.Replace(buf.Bytes(), []byte("'<f4'"), []byte("'<f8'"), 1)
	if _, err := tensor.ReadNPY(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected dtype rejection")
	}
}

func TestNPZRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "samples.npz")

	entries := map[string]*tensor.Tensor{
		"video_samples":      sequential(t, 2, 4),
		"mixed_spectrograms": sequential(t, 2, 3, 5),
	}
	if err := tensor.WriteNPZ(path, entries); err != nil {
		t.Fatalf("WriteNPZ failed: %v", err)
	}

	back, err := tensor.ReadNPZ(path)
	if err != nil {
		t.Fatalf("ReadNPZ failed: %v", err)
	}
	if len(back) != 2 {
		t.Fatalf("expected 2 members, got %d", len(back))
	}
	for name, want := range entries {
		got, ok := back[name]
		if !ok {
			t.Fatalf("missing member %s", name)
		}
		if !got.Equal(want) {
			t.Fatalf("member %s mismatch", name)
		}
	}
}
