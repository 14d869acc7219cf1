// serpentine bins two contact matrices with the serpentine procedure and
// writes the binned matrices, the log-ratio map and optional SVG plots.
//
// Usage:
//
//	serpentine -a wt.dade -b mut.dade --out results/
//	serpentine --demo --svg
//
// Exit codes:
//   - 0: binning finished and every output was written
//   - 1: runtime failure (unreadable input, binning error, write error)
//   - 2: usage error
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/serpentine/internal/logging"
	"github.com/askiada/serpentine/pkg/dade"
	"github.com/askiada/serpentine/pkg/pipeline"
	"github.com/askiada/serpentine/pkg/pipeline/drawer"
	"github.com/askiada/serpentine/pkg/pipeline/measure"
	"github.com/askiada/serpentine/pkg/render"
	"github.com/askiada/serpentine/pkg/serpentine"
)

var Version = "dev"

const (
	defaultDemoSize = 300
	demoSeedA       = 15
	demoSeedB       = 80
)

type settings struct {
	inputA       string
	inputB       string
	threshold    float64
	minThreshold float64
	iterations   int
	parallel     int
	triangular   bool
	seed         int64
	outDir       string
	svg          bool
	filter       bool
	drawFile     string
	demo         bool
	demoSize     int
	trendBins    int
}

func main() {
	var (
		cfg         settings
		logLevel    string
		logFormat   string
		showVersion bool
	)

	flag.StringVar(&cfg.inputA, "a", "", "DADE file of the first matrix")
	flag.StringVar(&cfg.inputB, "b", "", "DADE file of the second matrix")
	flag.Float64Var(&cfg.threshold, "threshold", serpentine.DefaultThreshold, "signal level at which a group stops merging")
	flag.Float64Var(&cfg.threshold, "t", serpentine.DefaultThreshold, "signal level at which a group stops merging (shorthand)")
	flag.Float64Var(&cfg.minThreshold, "min-threshold", serpentine.DefaultMinThreshold, "signal level below which a group always keeps merging")
	flag.Float64Var(&cfg.minThreshold, "m", serpentine.DefaultMinThreshold, "signal level below which a group always keeps merging (shorthand)")
	flag.IntVar(&cfg.iterations, "iterations", serpentine.DefaultIterations, "number of randomised passes to average")
	flag.IntVar(&cfg.parallel, "parallel", serpentine.DefaultParallel, "how many passes run at once")
	flag.BoolVar(&cfg.triangular, "triangular", true, "bin the lower triangle of square symmetric matrices")
	flag.Int64Var(&cfg.seed, "seed", 0, "seed for reproducible runs (0 picks one)")
	flag.StringVar(&cfg.outDir, "out", "serpentine-out", "output directory")
	flag.StringVar(&cfg.outDir, "o", "serpentine-out", "output directory (shorthand)")
	flag.BoolVar(&cfg.svg, "svg", false, "also write SVG heatmaps and MD scatter plots")
	flag.BoolVar(&cfg.filter, "filter", false, "drop outstanding low/high coverage bins before binning")
	flag.StringVar(&cfg.drawFile, "draw", "", "write a Graphviz file of the binning pipeline with stage timings")
	flag.BoolVar(&cfg.demo, "demo", false, "run on randomly generated symmetric matrices instead of input files")
	flag.IntVar(&cfg.demoSize, "demo-size", defaultDemoSize, "size of the demo matrices")
	flag.IntVar(&cfg.trendBins, "trend-bins", serpentine.DefaultTrendBins, "bin count of the MD-trend estimation")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", "console", "log format (json or console)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(Version)
		os.Exit(0)
	}

	if !cfg.demo && (cfg.inputA == "" || cfg.inputB == "") {
		fmt.Fprintln(os.Stderr, "Error: either --demo or both -a and -b are required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  serpentine -a wt.dade -b mut.dade --out results/")
		fmt.Fprintln(os.Stderr, "  serpentine --demo --svg")
		os.Exit(2)
	}

	logging.Configure(logging.Config{Level: logLevel, Format: logFormat, Service: "serpentine"})
	logger := logging.WithComponent("cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("binning failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg settings, logger zerolog.Logger) error {
	a, b, labels, err := loadInputs(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.filter {
		a, b, labels, err = filterInputs(a, b, labels, logger)
		if err != nil {
			return err
		}
	}

	before, err := serpentine.MDBefore(a, b, cfg.trendBins, cfg.triangular)
	if err != nil {
		return errors.Wrap(err, "unable to estimate the raw MD trend")
	}

	logger.Info().
		Float64("threshold", before.Threshold).
		Bool("fallback", before.Fallback).
		Msg("suggested binning threshold from the raw matrices")

	opts := serpentine.Options{
		Threshold:    cfg.threshold,
		MinThreshold: cfg.minThreshold,
		Iterations:   cfg.iterations,
		Parallel:     cfg.parallel,
		Triangular:   cfg.triangular,
		Seed:         cfg.seed,
		Logger:       logging.WithComponent("binning"),
	}

	if cfg.drawFile != "" {
		m := measure.NewDefaultMeasure()
		opts.PipelineOptions = []pipeline.Option{
			drawer.PipelineDrawer(drawer.NewDOTDrawer(cfg.drawFile), m),
			measure.PipelineMeasure(m),
		}
	}

	result, err := serpentine.Bin(ctx, a, b, opts)
	if err != nil {
		return errors.Wrap(err, "unable to bin the matrices")
	}

	after, err := serpentine.MDAfter(result.A, result.B, result.LogRatio, cfg.trendBins, cfg.triangular)
	if err != nil {
		return errors.Wrap(err, "unable to estimate the binned MD trend")
	}

	logger.Info().
		Float64("trend", after.Value).
		Msg("flat trend of the binned log ratio")

	err = writeOutputs(cfg, result, labels, before, after, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("dir", cfg.outDir).Msg("binning finished")

	return nil
}

func loadInputs(cfg settings, logger zerolog.Logger) (a, b *mat.Dense, labels []string, err error) {
	if cfg.demo {
		logger.Info().Int("size", cfg.demoSize).Msg("generating demo matrices")

		seedA, seedB := int64(demoSeedA), int64(demoSeedB)
		if cfg.seed != 0 {
			seedA, seedB = cfg.seed, cfg.seed+1
		}

		return demoMatrix(cfg.demoSize, seedA), demoMatrix(cfg.demoSize, seedB), nil, nil
	}

	a, labels, err = dade.Load(cfg.inputA)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "unable to load matrix A")
	}

	b, _, err = dade.Load(cfg.inputB)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "unable to load matrix B")
	}

	return a, b, labels, nil
}

// demoMatrix builds a random symmetric matrix, M + Mᵀ of uniform values
// scaled to 10.
func demoMatrix(size int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // demo data only

	m := mat.NewDense(size, size, nil)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			m.Set(i, j, rng.Float64()*10)
		}
	}

	var sym mat.Dense
	sym.Add(m, m.T())

	return &sym
}

// filterInputs drops the bins flagged as coverage outliers in either matrix
// from both of them.
func filterInputs(a, b *mat.Dense, labels []string, logger zerolog.Logger) (*mat.Dense, *mat.Dense, []string, error) {
	drop := serpentine.OutstandingFilter(a)
	for i, flagged := range serpentine.OutstandingFilter(b) {
		drop[i] = drop[i] || flagged
	}

	dropped := 0
	for _, flagged := range drop {
		if flagged {
			dropped++
		}
	}

	logger.Info().Int("bins", dropped).Msg("dropping outstanding bins")

	if dropped == 0 {
		return a, b, labels, nil
	}

	fa, err := serpentine.FilterMatrix(a, drop)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "unable to filter matrix A")
	}

	fb, err := serpentine.FilterMatrix(b, drop)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "unable to filter matrix B")
	}

	var kept []string
	for i, label := range labels {
		if !drop[i] {
			kept = append(kept, label)
		}
	}

	return fa, fb, kept, nil
}

func writeOutputs(cfg settings, result *serpentine.Result, labels []string, before, after *serpentine.Trend, logger zerolog.Logger) error {
	err := os.MkdirAll(cfg.outDir, 0o755)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", cfg.outDir)
	}

	logRatio := result.LogRatio
	if cfg.triangular {
		logRatio = mirrorLower(logRatio)
	}

	outputs := map[string]*mat.Dense{
		"a_binned.dade": result.A,
		"b_binned.dade": result.B,
		"logratio.dade": logRatio,
	}

	for name, matrix := range outputs {
		path := filepath.Join(cfg.outDir, name)

		err = dade.Save(path, matrix, labels)
		if err != nil {
			return errors.Wrapf(err, "unable to save %s", name)
		}

		logger.Debug().Str("file", path).Msg("matrix written")
	}

	if !cfg.svg {
		return nil
	}

	return writePlots(cfg, result, before, after)
}

func writePlots(cfg settings, result *serpentine.Result, before, after *serpentine.Trend) error {
	diff, err := render.Differential(result.LogRatio, after.Value, cfg.triangular)
	if err != nil {
		return errors.Wrap(err, "unable to prepare the differential map")
	}

	plots := map[string]func(f *os.File) error{
		"a_binned.svg": func(f *os.File) error {
			return render.Heatmap(f, result.A, render.HeatmapOptions{Log10: true, Title: "binned matrix A"})
		},
		"b_binned.svg": func(f *os.File) error {
			return render.Heatmap(f, result.B, render.HeatmapOptions{Log10: true, Title: "binned matrix B"})
		},
		"logratio.svg": func(f *os.File) error {
			return render.Heatmap(f, diff, render.HeatmapOptions{Palette: render.Diverging(), Min: -2, Max: 2, Title: "log ratio"})
		},
		"md_before.svg": func(f *os.File) error {
			return writeScatter(f, before, 0)
		},
		"md_after.svg": func(f *os.File) error {
			return writeScatter(f, after, after.Value)
		},
	}

	for name, plot := range plots {
		err = writePlot(filepath.Join(cfg.outDir, name), plot)
		if err != nil {
			return errors.Wrapf(err, "unable to write %s", name)
		}
	}

	return nil
}

func writeScatter(f *os.File, trend *serpentine.Trend, flat float64) error {
	return render.MDScatter(f, trend.Mean, trend.Diff, render.ScatterOptions{
		Trend:     flat,
		TrendX:    trend.BinMean,
		TrendY:    trend.BinDiff,
		SpreadY:   trend.BinSpread,
		Threshold: trend.Threshold,
	})
}

func writePlot(path string, plot func(f *os.File) error) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "unable to create file")
	}

	err = plot(file)
	if err != nil {
		file.Close()

		return err
	}

	return errors.Wrap(file.Close(), "unable to close file")
}

// mirrorLower reflects the lower triangle above the diagonal, so the DADE
// writer's upper-diagonal rows carry the triangular log-ratio values. NaN
// cells (groups with no signal in either matrix) pass through unchanged;
// the DADE format round-trips them.
func mirrorLower(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)

	for i := 0; i < rows; i++ {
		for j := 0; j <= i && j < cols; j++ {
			v := m.At(i, j)
			out.Set(i, j, v)
			out.Set(j, i, v)
		}
	}

	return out
}
