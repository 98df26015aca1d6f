// Package prediction runs the inference pass: per-speaker sample selection,
// enhancement through the network helper, audio reconstruction, and durable
// storage of the per-sample artifacts and outcomes.
package prediction

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const runTimestampLayout = "2006-01-02_15-04-05"

// Run is the root directory of one prediction pass. It is created exactly
// once, named by the start time at second resolution, and handed explicitly
// to everything that writes under it.
type Run struct {
	root      string
	startedAt time.Time
}

// NewRun creates the timestamped run directory under outputRoot. A second
// run starting within the same second collides and fails.
func NewRun(outputRoot string, now time.Time) (*Run, error) {
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("prediction: ensure output root: %w", err)
	}
	root := filepath.Join(outputRoot, now.Format(runTimestampLayout))
	if err := os.Mkdir(root, 0o755); err != nil {
		return nil, fmt.Errorf("prediction: create run directory: %w", err)
	}
	return &Run{root: root, startedAt: now}, nil
}

// Root returns the run directory.
func (r *Run) Root() string { return r.root }

// StartedAt returns the run start time.
func (r *Run) StartedAt() time.Time { return r.startedAt }
