package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"clearvoice/internal/config"
)

// Requirement defines an external dependency clearvoice relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Default returns the requirements for the helper binaries named in cfg.
func Default(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "DSP helper",
			Command:     cfg.Tools.DSPBinary,
			Description: "video tensor extraction, spectrograms, and inverse STFT",
		},
		{
			Name:        "Network helper",
			Command:     cfg.Tools.NetworkBinary,
			Description: "model training, evaluation, and prediction",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
