package buildmatrix

import (
	"encoding/json"
	"time"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// Status classifies the outcome of a job or a step.
type Status string

const (
	// StatusPassed means every command returned zero.
	StatusPassed Status = "passed"
	// StatusFailed means a command returned non-zero.
	StatusFailed Status = "failed"
	// StatusSkipped marks steps behind a failed one.
	StatusSkipped Status = "skipped"
	// StatusCancelled marks jobs and steps stopped before completion.
	StatusCancelled Status = "cancelled"
)

// StepResult is the outcome of one command.
type StepResult struct {
	Phase    string        `json:"phase"`
	Command  string        `json:"command"`
	Status   Status        `json:"status"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// JobResult is the outcome of one job.
type JobResult struct {
	Name     string        `json:"name"`
	Platform string        `json:"platform,omitempty"`
	Status   Status        `json:"status"`
	Steps    []StepResult  `json:"steps,omitempty"`
	Duration time.Duration `json:"duration_ns"`

	index int
}

// Report is the outcome of one build-matrix run.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Jobs      []JobResult   `json:"jobs"`
}

// Succeeded reports whether every job passed.
func (r *Report) Succeeded() bool {
	for _, job := range r.Jobs {
		if job.Status != StatusPassed {
			return false
		}
	}

	return true
}

// Counts tallies the jobs by status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, job := range r.Jobs {
		counts[job.Status]++
	}

	return counts
}

// WriteFile writes the report as indented JSON, atomically.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to marshal report")
	}

	err = renameio.WriteFile(path, data, 0o644)
	if err != nil {
		return errors.Wrapf(err, "unable to write report %s", path)
	}

	return nil
}
