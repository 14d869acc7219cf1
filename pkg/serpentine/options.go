package serpentine

import (
	"math"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/serpentine/pkg/pipeline"
)

const (
	// DefaultThreshold is the signal level at which a group stops merging.
	DefaultThreshold = 40.0
	// DefaultMinThreshold is the signal level below which a group always
	// keeps merging.
	DefaultMinThreshold = 10.0
	// DefaultIterations is the number of randomised passes averaged by Bin.
	DefaultIterations = 10
	// DefaultParallel bounds how many passes run at once.
	DefaultParallel = 16
	// DefaultTrendBins is the bin count of the MD-trend estimation.
	DefaultTrendBins = 10
)

// Options tune a binning run.
type Options struct {
	// Threshold is the signal both matrices must reach before a group stops
	// merging.
	Threshold float64
	// MinThreshold forces a group to keep merging while either matrix stays
	// below it. It must be lower than Threshold.
	MinThreshold float64
	// Iterations is the number of independent randomised passes averaged by
	// Bin.
	Iterations int
	// Parallel bounds how many passes run at once.
	Parallel int
	// Triangular restricts binning to the lower triangle of square
	// symmetric matrices and symmetrises the results.
	Triangular bool
	// Seed makes runs reproducible. Zero picks a time-derived seed.
	Seed int64
	// Logger receives progress events. The zero value stays silent.
	Logger zerolog.Logger
	// PipelineOptions observe the binning pipeline, to measure or draw it.
	PipelineOptions []pipeline.Option
}

// DefaultOptions returns the options used when nothing is overridden.
func DefaultOptions() Options {
	return Options{
		Threshold:    DefaultThreshold,
		MinThreshold: DefaultMinThreshold,
		Iterations:   DefaultIterations,
		Parallel:     DefaultParallel,
	}
}

func validate(a, b *mat.Dense, opts Options) error {
	if a == nil {
		return errors.Wrap(ErrMatrixMustBeSet, "matrix A")
	}

	if b == nil {
		return errors.Wrap(ErrMatrixMustBeSet, "matrix B")
	}

	aRows, aCols := a.Dims()
	bRows, bCols := b.Dims()

	if aRows != bRows || aCols != bCols {
		return errors.Wrapf(ErrShapeMismatch, "%dx%d vs %dx%d", aRows, aCols, bRows, bCols)
	}

	if opts.Triangular && aRows != aCols {
		return errors.Wrapf(ErrNotSquare, "%dx%d", aRows, aCols)
	}

	if opts.MinThreshold >= opts.Threshold {
		return errors.Wrapf(ErrThresholdOrder, "min %v, max %v", opts.MinThreshold, opts.Threshold)
	}

	return nil
}

// flatten copies a matrix into a row-major slice, so the merge loop can
// address cells by a single index.
func flatten(m mat.Matrix) ([]float64, int, int) {
	rows, cols := m.Dims()
	data := make([]float64, rows*cols)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data[i*cols+j] = m.At(i, j)
		}
	}

	return data, rows, cols
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
