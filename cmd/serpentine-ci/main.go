// serpentine-ci runs a build-matrix configuration locally: every platform ×
// matrix-row job, phases in order, fail-fast per job.
//
// Usage:
//
//	serpentine-ci [flags] [config.yml]
//	serpentine-ci --workers 4 --report report.json .serpentine-ci.yml
//	serpentine-ci --watch
//
// The config path defaults to .serpentine-ci.yml. SERPENTINE_CI_SHELL,
// SERPENTINE_CI_WORKERS, SERPENTINE_CI_LOG_LEVEL and SERPENTINE_CI_LOG_FORMAT
// set defaults for the matching flags.
//
// Exit codes:
//   - 0: every job passed
//   - 1: a job failed, or the runner itself failed
//   - 2: usage error
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/askiada/serpentine/internal/logging"
	"github.com/askiada/serpentine/pkg/buildmatrix"
)

var Version = "dev"

const defaultConfigPath = ".serpentine-ci.yml"

// envOptions are the SERPENTINE_CI_* environment defaults.
type envOptions struct {
	Shell     string `envconfig:"SHELL"`
	Workers   int    `envconfig:"WORKERS" default:"1"`
	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
}

type settings struct {
	configPath string
	shell      string
	workers    int
	fastFinish bool
	isolated   bool
	reportPath string
	watch      bool
	debounce   time.Duration
}

func main() {
	var env envOptions

	err := envconfig.Process("serpentine_ci", &env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid SERPENTINE_CI_* environment: %v\n", err)
		os.Exit(2)
	}

	var (
		cfg         settings
		logLevel    string
		logFormat   string
		showVersion bool
	)

	flag.StringVar(&cfg.shell, "shell", env.Shell, "shell used to run commands (defaults to the platform shell)")
	flag.IntVar(&cfg.workers, "workers", env.Workers, "how many jobs run at once")
	flag.IntVar(&cfg.workers, "w", env.Workers, "how many jobs run at once (shorthand)")
	flag.BoolVar(&cfg.fastFinish, "fast-finish", false, "cancel the remaining jobs as soon as one fails")
	flag.BoolVar(&cfg.isolated, "isolated-env", false, "run commands with only the job variables")
	flag.StringVar(&cfg.reportPath, "report", "", "write the JSON run report to this file")
	flag.StringVar(&cfg.reportPath, "r", "", "write the JSON run report to this file (shorthand)")
	flag.BoolVar(&cfg.watch, "watch", false, "re-run whenever the config file changes")
	flag.DurationVar(&cfg.debounce, "debounce", buildmatrix.DefaultDebounce, "how long to coalesce config changes in watch mode")
	flag.StringVar(&logLevel, "log-level", env.LogLevel, "log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", env.LogFormat, "log format (json or console)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(Version)
		os.Exit(0)
	}

	if flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Error: at most one config path is accepted")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  serpentine-ci [flags] [config.yml]")
		os.Exit(2)
	}

	cfg.configPath = defaultConfigPath
	if flag.NArg() == 1 {
		cfg.configPath = flag.Arg(0)
	}

	logging.Configure(logging.Config{Level: logLevel, Format: logFormat, Service: "serpentine-ci"})
	logger := logging.WithComponent("runner")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ok, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}

	if !ok {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg settings, logger zerolog.Logger) (bool, error) {
	opts := []buildmatrix.Option{
		buildmatrix.Workers(cfg.workers),
		buildmatrix.FastFinish(cfg.fastFinish),
		buildmatrix.IsolatedEnv(cfg.isolated),
		buildmatrix.Stream(os.Stdout),
		buildmatrix.WithLogger(logger),
	}
	if cfg.shell != "" {
		opts = append(opts, buildmatrix.Shell(cfg.shell))
	}

	runner := buildmatrix.NewRunner(opts...)

	if cfg.watch {
		return watch(ctx, runner, cfg, logger)
	}

	matrix, err := buildmatrix.Load(cfg.configPath)
	if err != nil {
		return false, errors.Wrap(err, "unable to load config")
	}

	report, err := runner.Run(ctx, matrix)
	if err != nil {
		return false, errors.Wrap(err, "unable to run build matrix")
	}

	err = finishRun(report, cfg.reportPath, logger)
	if err != nil {
		return false, err
	}

	return report.Succeeded(), nil
}

// watch keeps re-running the config until the context ends. Its exit status
// reflects the last completed run.
func watch(ctx context.Context, runner *buildmatrix.Runner, cfg settings, logger zerolog.Logger) (bool, error) {
	lastOK := true

	err := runner.Watch(ctx, cfg.configPath, cfg.debounce, func(report *buildmatrix.Report, err error) {
		if err != nil {
			lastOK = false

			logger.Error().Err(err).Msg("run failed")

			return
		}

		finishErr := finishRun(report, cfg.reportPath, logger)
		if finishErr != nil {
			logger.Error().Err(finishErr).Msg("unable to write report")
		}

		lastOK = report.Succeeded() && finishErr == nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return false, errors.Wrap(err, "unable to watch config")
	}

	return lastOK, nil
}

func finishRun(report *buildmatrix.Report, reportPath string, logger zerolog.Logger) error {
	counts := report.Counts()

	logger.Info().
		Str("run_id", report.RunID).
		Int("passed", counts[buildmatrix.StatusPassed]).
		Int("failed", counts[buildmatrix.StatusFailed]).
		Int("cancelled", counts[buildmatrix.StatusCancelled]).
		Bool("success", report.Succeeded()).
		Msg("run summary")

	if reportPath == "" {
		return nil
	}

	err := report.WriteFile(reportPath)
	if err != nil {
		return errors.Wrap(err, "unable to write report")
	}

	logger.Info().Str("file", reportPath).Msg("report written")

	return nil
}
