package dataset

import (
	"fmt"

	"clearvoice/internal/services"
)

// SelectSpeakers resolves the speaker set for a run. With no explicit list it
// discovers every speaker under the root. Entries in ignored are removed; an
// ignored identifier that is not present in the base list is a lookup error,
// since it indicates a broken invocation.
func SelectSpeakers(d *AudioVisualDataset, explicit, ignored []string) ([]string, error) {
	var speakerIDs []string
	if len(explicit) == 0 {
		discovered, err := d.ListSpeakers()
		if err != nil {
			return nil, err
		}
		speakerIDs = discovered
	} else {
		speakerIDs = append([]string(nil), explicit...)
	}

	for _, ignoredID := range ignored {
		idx := -1
		for i, id := range speakerIDs {
			if id == ignoredID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, services.Wrap(services.ErrNotFound, "dataset", "select speakers",
				fmt.Sprintf("ignored speaker %q is not in the speaker list", ignoredID), nil)
		}
		speakerIDs = append(speakerIDs[:idx], speakerIDs[idx+1:]...)
	}
	return speakerIDs, nil
}

// ListData produces the three equal-length path sequences for a run: video,
// speech, and noise. The sequences are clipped to min(paired samples, noise
// files); excess items are silently dropped so noise scarcity never blocks
// speech processing.
func ListData(root string, speakerIDs []string, noiseDirs []string, maxFiles int, shuffle bool) (video, speech, noise []string, err error) {
	speechDataset, err := NewAudioVisualDataset(root)
	if err != nil {
		return nil, nil, nil, err
	}
	speechSubset, err := speechDataset.Subset(speakerIDs, maxFiles, shuffle)
	if err != nil {
		return nil, nil, nil, err
	}

	noisePaths, err := NewAudioDataset(noiseDirs).Subset(maxFiles, shuffle)
	if err != nil {
		return nil, nil, nil, err
	}

	n := speechSubset.Size()
	if len(noisePaths) < n {
		n = len(noisePaths)
	}
	return speechSubset.VideoPaths()[:n], speechSubset.SpeechPaths()[:n], noisePaths[:n], nil
}
