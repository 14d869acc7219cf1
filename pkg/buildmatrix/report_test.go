package buildmatrix_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/serpentine/pkg/buildmatrix"
)

func TestReportSucceeded(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		statuses []buildmatrix.Status
		want     bool
	}{
		"all passed": {
			statuses: []buildmatrix.Status{buildmatrix.StatusPassed, buildmatrix.StatusPassed},
			want:     true,
		},
		"one failed": {
			statuses: []buildmatrix.Status{buildmatrix.StatusPassed, buildmatrix.StatusFailed},
			want:     false,
		},
		"one cancelled": {
			statuses: []buildmatrix.Status{buildmatrix.StatusCancelled},
			want:     false,
		},
		"no jobs": {
			want: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			report := &buildmatrix.Report{}
			for _, status := range tc.statuses {
				report.Jobs = append(report.Jobs, buildmatrix.JobResult{Status: status})
			}

			assert.Equal(t, tc.want, report.Succeeded())
		})
	}
}

func TestReportCounts(t *testing.T) {
	t.Parallel()

	report := &buildmatrix.Report{
		Jobs: []buildmatrix.JobResult{
			{Status: buildmatrix.StatusPassed},
			{Status: buildmatrix.StatusPassed},
			{Status: buildmatrix.StatusFailed},
			{Status: buildmatrix.StatusCancelled},
		},
	}

	counts := report.Counts()
	assert.Equal(t, 2, counts[buildmatrix.StatusPassed])
	assert.Equal(t, 1, counts[buildmatrix.StatusFailed])
	assert.Equal(t, 1, counts[buildmatrix.StatusCancelled])
	assert.Equal(t, 0, counts[buildmatrix.StatusSkipped])
}

func TestReportWriteFile(t *testing.T) {
	t.Parallel()

	report := &buildmatrix.Report{
		RunID:     "3f1c0c9a-0000-4000-8000-000000000000",
		StartedAt: time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC),
		Duration:  90 * time.Second,
		Jobs: []buildmatrix.JobResult{
			{
				Name:     "x86/x64",
				Platform: "x64",
				Status:   buildmatrix.StatusFailed,
				Duration: time.Minute,
				Steps: []buildmatrix.StepResult{
					{Phase: "install", Command: "make deps", Status: buildmatrix.StatusPassed, Output: "done\n"},
					{Phase: "install", Command: "make lint", Status: buildmatrix.StatusFailed, ExitCode: 2},
				},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, report.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got buildmatrix.Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *report, got)

	// A passing step with no output keeps the report lean.
	assert.NotContains(t, string(data), `"output": ""`)
}

func TestReportWriteFileMissingDir(t *testing.T) {
	t.Parallel()

	report := &buildmatrix.Report{RunID: "r"}
	path := filepath.Join(t.TempDir(), "missing", "report.json")

	require.Error(t, report.WriteFile(path))
}
