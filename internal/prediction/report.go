package prediction

// Outcome records how one triple fared during a run.
type Outcome struct {
	Speaker   string
	VideoPath string
	NoisePath string
	OutputDir string
	Loss      float64
	Err       error
}

// Report aggregates the per-sample outcomes of one prediction run.
type Report struct {
	Outcomes []Outcome
}

func (r *Report) add(outcome Outcome) {
	r.Outcomes = append(r.Outcomes, outcome)
}

// Succeeded counts samples that produced artifacts.
func (r *Report) Succeeded() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts samples that were skipped after an error.
func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}
