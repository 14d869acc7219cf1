package buildmatrix

import "fmt"

const (
	// TargetArchVar is the matrix variable jobs are usually named after.
	TargetArchVar = "TARGET_ARCH"
	// PlatformVar carries the job's platform into its environment.
	PlatformVar = "PLATFORM"
)

// Phase is one named group of commands of a job.
type Phase struct {
	Name     string
	Commands Commands
}

// Job is one expanded entry of the build matrix.
type Job struct {
	// Index is the position of the job in the expanded matrix.
	Index int
	// Name identifies the job in logs and reports. Names are unique within
	// one expansion.
	Name string
	// Platform the job was expanded for, empty when the config names none.
	Platform string
	// Env is the job's environment: global variables overlaid with the
	// matrix row, plus PLATFORM.
	Env EnvMap
	// Phases run strictly in order.
	Phases []Phase
}

// Jobs expands the config into its build matrix: platforms in file order,
// matrix rows within each platform. Without a matrix every platform gets one
// job with the global variables; without platforms a single unnamed platform
// is assumed.
func (c *Config) Jobs() []Job {
	platforms := []string(c.Platform)
	if len(platforms) == 0 {
		platforms = []string{""}
	}

	rows := c.Environment.Matrix
	if len(rows) == 0 {
		rows = []EnvMap{nil}
	}

	phases := c.phases()
	seen := map[string]int{}
	jobs := make([]Job, 0, len(platforms)*len(rows))

	for _, platform := range platforms {
		for rowIdx, row := range rows {
			env := c.Environment.Global.merge(row)
			if platform != "" {
				env = env.set(PlatformVar, platform)
			}

			jobs = append(jobs, Job{
				Index:    len(jobs),
				Name:     jobName(env, rowIdx, platform, seen),
				Platform: platform,
				Env:      env,
				Phases:   phases,
			})
		}
	}

	return jobs
}

// jobName derives a stable, unique name: the row's TARGET_ARCH (or its
// index), the platform, and a counter when that still collides.
func jobName(env EnvMap, rowIdx int, platform string, seen map[string]int) string {
	name, ok := env.Get(TargetArchVar)
	if !ok || name == "" {
		name = fmt.Sprintf("job-%d", rowIdx)
	}

	if platform != "" {
		name += "/" + platform
	}

	seen[name]++
	if seen[name] > 1 {
		name = fmt.Sprintf("%s (%d)", name, seen[name])
	}

	return name
}

func (c *Config) phases() []Phase {
	phases := make([]Phase, 0, 3)

	if len(c.Install) > 0 {
		phases = append(phases, Phase{Name: "install", Commands: c.Install})
	}

	if !c.Build.Off && len(c.Build.Commands) > 0 {
		phases = append(phases, Phase{Name: "build", Commands: c.Build.Commands})
	}

	if len(c.TestScript) > 0 {
		phases = append(phases, Phase{Name: "test_script", Commands: c.TestScript})
	}

	return phases
}
