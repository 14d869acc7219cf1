package serpentine

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// madScale turns a median absolute deviation into a consistent estimator of
// the standard deviation for normally distributed data.
const madScale = 1.4826

// median returns the middle value of xs, or the mean of the two middle
// values when the length is even. It does not modify xs.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}

	return (sorted[mid-1] + sorted[mid]) / 2
}

// MAD returns the median absolute deviation of xs, unscaled.
func MAD(xs []float64) float64 {
	med := median(xs)

	dev := make([]float64, len(xs))
	for i, x := range xs {
		dev[i] = math.Abs(x - med)
	}

	return median(dev)
}

// OutstandingFilter flags the columns of m whose log10 coverage sits more
// than three robust standard deviations away from the median coverage.
// The returned slice is true for every column to drop.
func OutstandingFilter(m *mat.Dense) []bool {
	rows, cols := m.Dims()

	norm := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		norm[j] = math.Log10(floats.Sum(col))
	}

	med := median(norm)
	sigma := madScale * MAD(norm)

	flagged := make([]bool, cols)
	for j, v := range norm {
		flagged[j] = v < med-3*sigma || v > med+3*sigma
	}

	return flagged
}

// FilterMatrix removes the rows and columns of m flagged by drop. The matrix
// must be square and drop must have one entry per row.
func FilterMatrix(m *mat.Dense, drop []bool) (*mat.Dense, error) {
	rows, cols := m.Dims()
	if rows != cols {
		return nil, errors.Wrapf(ErrFilterSize, "matrix is %dx%d", rows, cols)
	}

	if len(drop) != rows {
		return nil, errors.Wrapf(ErrFilterSize, "%d flags for %d rows", len(drop), rows)
	}

	keep := make([]int, 0, rows)
	for i, d := range drop {
		if !d {
			keep = append(keep, i)
		}
	}

	if len(keep) == 0 {
		return nil, ErrEmptyFilter
	}

	out := mat.NewDense(len(keep), len(keep), nil)
	for oi, i := range keep {
		for oj, j := range keep {
			out.Set(oi, oj, m.At(i, j))
		}
	}

	return out, nil
}
