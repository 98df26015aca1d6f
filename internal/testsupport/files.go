package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"clearvoice/internal/media"
)

// WriteWAV writes a playable mono 16 kHz tone of the given duration to path.
func WriteWAV(t testing.TB, path string, seconds float64) {
	t.Helper()
	WriteWAVTone(t, path, seconds, 440)
}

// WriteWAVTone writes a sine tone at the given frequency so distinct fixture
// files carry distinct content.
func WriteWAVTone(t testing.TB, path string, seconds, freq float64) {
	t.Helper()
	const sampleRate = 16000
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	n := int(seconds * sampleRate)
	if n <= 0 {
		n = 1
	}
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.4 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	if err := media.WriteWAV(path, &media.AudioSignal{SampleRate: sampleRate, Samples: samples}); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}

// WriteSpeaker lays out one speaker directory with paired audio/video
// recordings for each stem. Video files carry placeholder bytes; only their
// presence matters to the indexer.
func WriteSpeaker(t testing.TB, root, speakerID string, stems ...string) {
	t.Helper()
	for _, stem := range stems {
		WriteWAV(t, filepath.Join(root, speakerID, "audio", stem+".wav"), 0.1)
		videoPath := filepath.Join(root, speakerID, "video", stem+".mp4")
		if err := os.MkdirAll(filepath.Dir(videoPath), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", videoPath, err)
		}
		if err := os.WriteFile(videoPath, []byte("video:"+stem), 0o644); err != nil {
			t.Fatalf("write video %s: %v", videoPath, err)
		}
	}
}

// WriteNoise writes one noise recording per name into dir.
func WriteNoise(t testing.TB, dir string, names ...string) {
	t.Helper()
	for i, name := range names {
		WriteWAVTone(t, filepath.Join(dir, name+".wav"), 0.1, 100+10*float64(i))
	}
}
