// Package dataset enumerates the audio-visual corpus: speakers, paired
// video/speech recordings, and independently sourced noise files.
package dataset

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	audioSubdir = "audio"
	videoSubdir = "video"
)

var videoExtensions = []string{".mp4", ".mpg", ".mov", ".avi", ".mkv"}

// AudioVisualDataset exposes one corpus root holding per-speaker directories,
// each with paired video/ and audio/ recordings named by a shared stem.
type AudioVisualDataset struct {
	root string
}

// NewAudioVisualDataset validates the root directory and returns the dataset.
func NewAudioVisualDataset(root string) (*AudioVisualDataset, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("dataset root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset root %s is not a directory", root)
	}
	return &AudioVisualDataset{root: root}, nil
}

// Root returns the dataset root directory.
func (d *AudioVisualDataset) Root() string { return d.root }

// ListSpeakers returns the sorted speaker identifiers under the root.
func (d *AudioVisualDataset) ListSpeakers() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("list speakers in %s: %w", d.root, err)
	}
	speakers := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			speakers = append(speakers, entry.Name())
		}
	}
	sort.Strings(speakers)
	return speakers, nil
}

// SamplePair is one utterance: a video recording and its clean speech track.
type SamplePair struct {
	VideoPath  string
	SpeechPath string
}

// Subset is an ordered selection of sample pairs.
type Subset struct {
	pairs []SamplePair
}

// Subset collects the paired recordings for the given speakers, in speaker
// order then stem order, optionally shuffled, optionally capped at maxFiles.
func (d *AudioVisualDataset) Subset(speakerIDs []string, maxFiles int, shuffle bool) (*Subset, error) {
	var pairs []SamplePair
	for _, speakerID := range speakerIDs {
		speakerPairs, err := d.speakerPairs(speakerID)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, speakerPairs...)
	}
	if shuffle {
		shuffleRand().Shuffle(len(pairs), func(i, j int) {
			pairs[i], pairs[j] = pairs[j], pairs[i]
		})
	}
	if maxFiles > 0 && len(pairs) > maxFiles {
		pairs = pairs[:maxFiles]
	}
	return &Subset{pairs: pairs}, nil
}

func (d *AudioVisualDataset) speakerPairs(speakerID string) ([]SamplePair, error) {
	audioDir := filepath.Join(d.root, speakerID, audioSubdir)
	videoDir := filepath.Join(d.root, speakerID, videoSubdir)

	entries, err := os.ReadDir(audioDir)
	if err != nil {
		return nil, fmt.Errorf("list speech files for speaker %s: %w", speakerID, err)
	}

	var pairs []SamplePair
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		videoPath, ok := findVideo(videoDir, stem)
		if !ok {
			continue // unpaired recording; the indexer only yields full pairs
		}
		pairs = append(pairs, SamplePair{
			VideoPath:  videoPath,
			SpeechPath: filepath.Join(audioDir, entry.Name()),
		})
	}
	return pairs, nil
}

func findVideo(videoDir, stem string) (string, bool) {
	for _, ext := range videoExtensions {
		candidate := filepath.Join(videoDir, stem+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// Size returns the number of pairs in the subset.
func (s *Subset) Size() int { return len(s.pairs) }

// VideoPaths returns the video file paths in subset order.
func (s *Subset) VideoPaths() []string {
	out := make([]string, len(s.pairs))
	for i, pair := range s.pairs {
		out[i] = pair.VideoPath
	}
	return out
}

// SpeechPaths returns the speech file paths in subset order.
func (s *Subset) SpeechPaths() []string {
	out := make([]string, len(s.pairs))
	for i, pair := range s.pairs {
		out[i] = pair.SpeechPath
	}
	return out
}

// AudioDataset exposes one or more flat directories of audio recordings,
// used for interference noise. Files are not tied to any speaker.
type AudioDataset struct {
	dirs []string
}

// NewAudioDataset returns a dataset over the given directories.
func NewAudioDataset(dirs []string) *AudioDataset {
	return &AudioDataset{dirs: append([]string(nil), dirs...)}
}

// Subset lists the audio file paths across all directories in directory then
// name order, optionally shuffled, optionally capped at maxFiles.
func (d *AudioDataset) Subset(maxFiles int, shuffle bool) ([]string, error) {
	var paths []string
	for _, dir := range d.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list noise files in %s: %w", dir, err)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	if shuffle {
		shuffleRand().Shuffle(len(paths), func(i, j int) {
			paths[i], paths[j] = paths[j], paths[i]
		})
	}
	if maxFiles > 0 && len(paths) > maxFiles {
		paths = paths[:maxFiles]
	}
	return paths, nil
}

func shuffleRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
