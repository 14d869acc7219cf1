package buildmatrix

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/askiada/serpentine/pkg/pipeline"
)

const defaultWaitDelay = 10 * time.Second

// Runner executes the jobs of a build matrix through the platform shell.
type Runner struct {
	shell      string
	workers    int
	fastFinish bool
	isolated   bool
	stream     io.Writer
	logger     zerolog.Logger
	waitDelay  time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// Workers sets how many jobs run at once.
func Workers(n int) Option {
	return func(r *Runner) {
		r.workers = n
	}
}

// FastFinish cancels the remaining jobs as soon as one fails.
func FastFinish(enabled bool) Option {
	return func(r *Runner) {
		r.fastFinish = enabled
	}
}

// IsolatedEnv runs commands with only the job variables instead of
// overlaying them on the parent environment.
func IsolatedEnv(enabled bool) Option {
	return func(r *Runner) {
		r.isolated = enabled
	}
}

// Shell overrides the platform shell.
func Shell(shell string) Option {
	return func(r *Runner) {
		r.shell = shell
	}
}

// Stream mirrors the combined output of every command to w while it is also
// captured for the report.
func Stream(w io.Writer) Option {
	return func(r *Runner) {
		r.stream = w
	}
}

// WithLogger sets the runner's logger. The zero logger stays silent.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner builds a runner. Without options jobs run one at a time through
// the platform shell, overlaid on the parent environment.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		shell:     defaultShell(),
		workers:   1,
		waitDelay: defaultWaitDelay,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.workers < 1 {
		r.workers = 1
	}
	if r.shell == "" {
		r.shell = defaultShell()
	}

	return r
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}

	return "sh"
}

func shellArgs(shell, command string) []string {
	base := strings.ToLower(filepath.Base(shell))
	if base == "cmd" || base == "cmd.exe" {
		return []string{"/c", command}
	}

	return []string{"-c", command}
}

// Run executes every job of cfg and returns the full report. Failed jobs do
// not stop the others unless fast finish is on. A cancelled context is not
// an error: the report marks every job that never finished as cancelled.
func (r *Runner) Run(ctx context.Context, cfg *Config) (*Report, error) {
	if cfg == nil {
		return nil, ErrConfigMustBeSet
	}

	jobs := cfg.Jobs()

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Jobs:      make([]JobResult, len(jobs)),
	}

	for i, job := range jobs {
		report.Jobs[i] = JobResult{
			Name:     job.Name,
			Platform: job.Platform,
			Status:   StatusCancelled,
			index:    i,
		}
	}

	r.logger.Info().
		Str("event", "run.start").
		Str("run_id", report.RunID).
		Int("jobs", len(jobs)).
		Int("workers", r.workers).
		Bool("fast_finish", r.fastFinish).
		Msg("starting build matrix")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipe, err := pipeline.New(runCtx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create runner pipeline")
	}

	source, err := pipeline.AddSource(pipe, "jobs", func(ctx context.Context, out chan<- Job) error {
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- job:
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add job source")
	}

	executed, err := pipeline.AddStage(pipe, "execute", source, func(ctx context.Context, job Job) (JobResult, error) {
		return r.runJob(ctx, job), nil
	}, pipeline.StageConcurrency[JobResult](r.workers))
	if err != nil {
		return nil, errors.Wrap(err, "unable to add execute stage")
	}

	err = pipeline.AddSink(pipe, "collect", executed, func(_ context.Context, res JobResult) error {
		report.Jobs[res.index] = res

		if res.Status == StatusFailed && r.fastFinish {
			cancel()
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add collect sink")
	}

	err = pipe.Run()
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, errors.Wrap(err, "unable to run build matrix")
	}

	report.Duration = time.Since(report.StartedAt)

	r.logger.Info().
		Str("event", "run.finished").
		Str("run_id", report.RunID).
		Bool("success", report.Succeeded()).
		Dur("duration", report.Duration).
		Msg("build matrix finished")

	return report, nil
}

// runJob walks the job's phases in order. The first failing step skips
// everything after it; cancellation marks the rest cancelled.
func (r *Runner) runJob(ctx context.Context, job Job) JobResult {
	logger := r.logger.With().Str("job", job.Name).Logger()

	logger.Info().
		Str("event", "job.start").
		Str("platform", job.Platform).
		Msg("starting job")

	res := JobResult{
		Name:     job.Name,
		Platform: job.Platform,
		Status:   StatusPassed,
		index:    job.Index,
	}

	start := time.Now()
	env := r.environ(job)

	for _, phase := range job.Phases {
		for _, cmd := range phase.Commands {
			if res.Status == StatusFailed {
				res.Steps = append(res.Steps, StepResult{Phase: phase.Name, Command: cmd.Line, Status: StatusSkipped})

				continue
			}

			if ctx.Err() != nil {
				res.Status = StatusCancelled
				res.Steps = append(res.Steps, StepResult{Phase: phase.Name, Command: cmd.Line, Status: StatusCancelled})

				continue
			}

			step := r.runCommand(ctx, logger, phase.Name, cmd, env)
			res.Steps = append(res.Steps, step)

			if step.Status != StatusPassed {
				res.Status = step.Status
			}
		}
	}

	res.Duration = time.Since(start)

	logger.Info().
		Str("event", "job.finished").
		Str("status", string(res.Status)).
		Dur("duration", res.Duration).
		Msg("job finished")

	return res
}

// environ builds the process environment of a job. Job variables are
// appended last so they win over the parent environment.
func (r *Runner) environ(job Job) []string {
	var base []string
	if !r.isolated {
		base = os.Environ()
	}

	env := make([]string, 0, len(base)+len(job.Env))
	env = append(env, base...)

	for _, v := range job.Env {
		env = append(env, v.Name+"="+v.Value)
	}

	return env
}

func (r *Runner) runCommand(ctx context.Context, logger zerolog.Logger, phase string, command Command, env []string) StepResult {
	step := StepResult{Phase: phase, Command: command.Line, Status: StatusPassed}

	logger.Info().
		Str("event", "step.start").
		Str("phase", phase).
		Str("command", command.Line).
		Msg("running command")

	var output bytes.Buffer
	out := io.Writer(&output)
	if r.stream != nil {
		out = io.MultiWriter(&output, r.stream)
	}

	cmd := exec.CommandContext(ctx, r.shell, shellArgs(r.shell, command.Line)...)
	cmd.Env = env
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = r.waitDelay

	start := time.Now()
	err := cmd.Run()
	step.Duration = time.Since(start)
	step.Output = output.String()

	switch {
	case err == nil:
	case ctx.Err() != nil:
		step.Status = StatusCancelled
		step.ExitCode = -1
	default:
		step.Status = StatusFailed
		step.ExitCode = -1

		exitErr := &exec.ExitError{}
		if errors.As(err, &exitErr) {
			step.ExitCode = exitErr.ExitCode()
		} else {
			if step.Output != "" {
				step.Output += "\n"
			}
			step.Output += err.Error()
		}
	}

	evt := logger.Info()
	if step.Status == StatusFailed {
		evt = logger.Error()
	}
	evt.Str("event", "step.finished").
		Str("phase", phase).
		Str("status", string(step.Status)).
		Int("exit_code", step.ExitCode).
		Dur("duration", step.Duration).
		Msg("command finished")

	return step
}
