package blob_test

import (
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"clearvoice/internal/blob"
	"clearvoice/internal/services"
	"clearvoice/internal/tensor"
)

// markedTable builds a table whose every row is tagged with a unique id so
// tests can verify four-way alignment after shuffling. Column values are the
// row id plus a per-column offset.
func markedTable(t *testing.T, base, rows int) *blob.Table {
	t.Helper()
	column := func(offset float32, dims ...int) *tensor.Tensor {
		shape := append([]int{rows}, dims...)
		ts, err := tensor.New(shape...)
		if err != nil {
			t.Fatal(err)
		}
		for row := 0; row < rows; row++ {
			rowData := ts.Row(row)
			for i := range rowData {
				rowData[i] = float32(base+row) + offset
			}
		}
		return ts
	}
	table, err := blob.NewTable(
		column(0, 2),
		column(0.25, 3, 2),
		column(0.5, 3, 2),
		column(0.75, 3, 2),
	)
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func checkAligned(t *testing.T, table *blob.Table) {
	t.Helper()
	for row := 0; row < table.Len(); row++ {
		id := table.Video.Row(row)[0]
		if table.Mixed.Row(row)[0] != id+0.25 ||
			table.Speech.Row(row)[0] != id+0.5 ||
			table.Noise.Row(row)[0] != id+0.75 {
			t.Fatalf("row %d desynchronized: video=%v mixed=%v speech=%v noise=%v",
				row, id, table.Mixed.Row(row)[0], table.Speech.Row(row)[0], table.Noise.Row(row)[0])
		}
	}
}

func writeArchive(t *testing.T, dir, name string, table *blob.Table) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := blob.Write(path, table); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return path
}

func TestAggregateCountsAndAlignment(t *testing.T) {
	dir := t.TempDir()
	a := writeArchive(t, dir, "a.npz", markedTable(t, 0, 4))
	b := writeArchive(t, dir, "b.npz", markedTable(t, 100, 7))

	table, err := blob.Aggregate([]string{a, b}, 0, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if table.Len() != 11 {
		t.Fatalf("expected 4+7=11 samples, got %d", table.Len())
	}
	checkAligned(t, table)

	// Every source row must appear exactly once.
	seen := map[float32]bool{}
	for row := 0; row < table.Len(); row++ {
		id := table.Video.Row(row)[0]
		if seen[id] {
			t.Fatalf("row id %v duplicated by permutation", id)
		}
		seen[id] = true
	}
}

func TestAggregateTruncatesAfterShuffle(t *testing.T) {
	dir := t.TempDir()
	a := writeArchive(t, dir, "a.npz", markedTable(t, 0, 6))
	b := writeArchive(t, dir, "b.npz", markedTable(t, 100, 6))

	table, err := blob.Aggregate([]string{a, b}, 5, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if table.Len() != 5 {
		t.Fatalf("expected truncation to 5, got %d", table.Len())
	}
	checkAligned(t, table)

	// With a permutation applied before truncation the retained subset is
	// not simply the first archive's prefix.
	fromSecond := false
	for row := 0; row < table.Len(); row++ {
		if table.Video.Row(row)[0] >= 100 {
			fromSecond = true
		}
	}
	if !fromSecond {
		t.Fatal("truncated subset looks like a prefix, not a shuffled sample")
	}
}

func TestLoadRejectsMissingArray(t *testing.T) {
	dir := t.TempDir()
	table := markedTable(t, 0, 2)
	path := filepath.Join(dir, "broken.npz")
	err := tensor.WriteNPZ(path, map[string]*tensor.Tensor{
		blob.ArrayVideoSamples:      table.Video,
		blob.ArrayMixedSpectrograms: table.Mixed,
		// speech and noise arrays deliberately absent
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := blob.Load(path); err == nil {
		t.Fatal("expected missing-array error")
	} else if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation classification, got %v", err)
	}
}

func TestNewTableRejectsCountMismatch(t *testing.T) {
	good := markedTable(t, 0, 3)
	short := markedTable(t, 0, 2)
	if _, err := blob.NewTable(good.Video, good.Mixed, good.Speech, short.Noise); err == nil {
		t.Fatal("expected sample count mismatch error")
	}
}

func TestAggregateRejectsShapeDisagreement(t *testing.T) {
	dir := t.TempDir()
	a := writeArchive(t, dir, "a.npz", markedTable(t, 0, 3))

	// Second archive with different trailing spectrogram dims.
	video, _ := tensor.New(2, 2)
	spec, _ := tensor.New(2, 4, 4)
	other, err := blob.NewTable(video, spec, spec, spec)
	if err != nil {
		t.Fatal(err)
	}
	b := writeArchive(t, dir, "b.npz", other)

	if _, err := blob.Aggregate([]string{a, b}, 0, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected shape disagreement error")
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	table := markedTable(t, 40, 3)
	path := writeArchive(t, dir, "round.npz", table)

	back, err := blob.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !back.Video.Equal(table.Video) || !back.Noise.Equal(table.Noise) {
		t.Fatal("round trip altered data")
	}
}
