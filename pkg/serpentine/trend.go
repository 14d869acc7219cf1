package serpentine

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minSaneThreshold is the smallest contact sum the trend estimator will ever
// recommend as a binning threshold.
const minSaneThreshold = 25.0

// Trend summarises an MD cloud: the per-bin medians of the mean/ratio pairs,
// the flat trend value of the high-coverage tail, and a suggested binning
// threshold.
type Trend struct {
	// Mean and Diff hold the finite points of the cloud.
	Mean []float64
	Diff []float64

	// BinMean, BinDiff and BinSpread hold the per-bin median mean, median
	// ratio and scaled MAD of the ratios.
	BinMean   []float64
	BinDiff   []float64
	BinSpread []float64

	// Value is the trend of the high-coverage tail, in log2 units.
	Value float64
	// Threshold is the suggested binning threshold, in contact units.
	Threshold float64
	// Fallback reports that no reliable threshold could be derived and
	// Threshold was clamped to the minimum sane value.
	Fallback bool
}

// MDTrend bins the (mean, diff) cloud into equal-width mean intervals and
// derives the tail trend and a binning threshold from the bin statistics.
// Non-finite points are ignored.
func MDTrend(mean, diff []float64, bins int) (*Trend, error) {
	if bins <= 0 {
		return nil, errors.Wrapf(ErrTrendBins, "%d", bins)
	}

	if len(mean) != len(diff) {
		return nil, errors.Wrapf(ErrCloudSize, "%d means, %d diffs", len(mean), len(diff))
	}

	fm := make([]float64, 0, len(mean))
	fd := make([]float64, 0, len(diff))
	for i := range mean {
		if isFinite(mean[i]) && isFinite(diff[i]) {
			fm = append(fm, mean[i])
			fd = append(fd, diff[i])
		}
	}

	if len(fm) == 0 {
		return nil, ErrNoFiniteData
	}

	lo, hi := fm[0], fm[0]
	for _, m := range fm {
		lo = math.Min(lo, m)
		hi = math.Max(hi, m)
	}

	width := (hi - lo) / float64(bins)
	if width == 0 {
		width = 1
	}

	binned := make([][]int, bins)
	for i, m := range fm {
		idx := int((m - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}

		binned[idx] = append(binned[idx], i)
	}

	tr := &Trend{
		Mean:      fm,
		Diff:      fd,
		BinMean:   make([]float64, bins),
		BinDiff:   make([]float64, bins),
		BinSpread: make([]float64, bins),
	}

	for k, idxs := range binned {
		if len(idxs) == 0 {
			continue
		}

		ms := make([]float64, len(idxs))
		ds := make([]float64, len(idxs))
		for i, idx := range idxs {
			ms[i] = fm[idx]
			ds[i] = fd[idx]
		}

		tr.BinMean[k] = median(ms)
		tr.BinDiff[k] = median(ds)
		tr.BinSpread[k] = madScale * MAD(ds)
	}

	tail := bins
	if tail > 3 {
		tail = 3
	}

	tr.Value = stat.Mean(tr.BinDiff[bins-tail:], nil)
	tailMean := stat.Mean(tr.BinSpread[bins-tail:], nil)
	tailStd := stat.PopStdDev(tr.BinSpread[bins-tail:], nil)

	x := math.NaN()
	for k := 0; k < bins; k++ {
		if math.Abs(tr.BinSpread[k]-tailMean) > 2*tailStd {
			x = tr.BinMean[k]
		}
	}

	if math.IsNaN(x) {
		positive := make([]float64, 0, len(fm))
		for _, m := range fm {
			if m > 0 {
				positive = append(positive, m)
			}
		}

		x = percentile(positive, 99)
	}

	if !isFinite(x) || x < math.Log2(minSaneThreshold) {
		x = math.Log2(minSaneThreshold)
		tr.Fallback = true
	}

	tr.Threshold = math.Pow(2, x)

	return tr, nil
}

// MDBefore builds the MD trend of two raw matrices, with the ratio taken as
// log2(B/A) per cell.
func MDBefore(a, b *mat.Dense, bins int, triangular bool) (*Trend, error) {
	err := checkCloudShapes(a, b, nil, triangular)
	if err != nil {
		return nil, err
	}

	mean, diff := mdCloud(a, b, nil, triangular)

	return MDTrend(mean, diff, bins)
}

// MDAfter builds the MD trend of two binned matrices, with the ratio taken
// from the differential matrix d.
func MDAfter(a, b, d *mat.Dense, bins int, triangular bool) (*Trend, error) {
	err := checkCloudShapes(a, b, d, triangular)
	if err != nil {
		return nil, err
	}

	mean, diff := mdCloud(a, b, d, triangular)

	return MDTrend(mean, diff, bins)
}

func checkCloudShapes(a, b, d *mat.Dense, triangular bool) error {
	if a == nil {
		return errors.Wrap(ErrMatrixMustBeSet, "matrix A")
	}

	if b == nil {
		return errors.Wrap(ErrMatrixMustBeSet, "matrix B")
	}

	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return errors.Wrapf(ErrShapeMismatch, "A is %dx%d, B is %dx%d", ar, ac, br, bc)
	}

	if d != nil {
		dr, dc := d.Dims()
		if ar != dr || ac != dc {
			return errors.Wrapf(ErrShapeMismatch, "A is %dx%d, D is %dx%d", ar, ac, dr, dc)
		}
	}

	if triangular && ar != ac {
		return errors.Wrapf(ErrNotSquare, "%dx%d", ar, ac)
	}

	return nil
}

// mdCloud flattens the matrices into a (mean, diff) cloud. In triangular
// mode only the lower triangle contributes and the mean is the log2 of the
// averaged cell values; in rectangular mode every cell contributes and the
// mean is half the log2 of the summed cell values. When d is nil the diff is
// log2(B/A), otherwise it is read from d.
func mdCloud(a, b, d *mat.Dense, triangular bool) ([]float64, []float64) {
	rows, cols := a.Dims()

	mean := make([]float64, 0, rows*cols)
	diff := make([]float64, 0, rows*cols)

	appendPoint := func(i, j int) {
		av := a.At(i, j)
		bv := b.At(i, j)

		var m float64
		if triangular {
			m = math.Log2((av + bv) / 2)
		} else {
			m = math.Log2(av+bv) / 2
		}

		var dv float64
		if d != nil {
			dv = d.At(i, j)
		} else {
			dv = math.Log2(bv / av)
		}

		mean = append(mean, m)
		diff = append(diff, dv)
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if triangular && j > i {
				continue
			}

			appendPoint(i, j)
		}
	}

	return mean, diff
}

// percentile returns the p-th percentile of xs with linear interpolation
// between the two nearest ranks. It does not modify xs.
func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	pos := (float64(len(sorted)) - 1) * p / 100
	lower := int(math.Floor(pos))
	if lower == len(sorted)-1 {
		return sorted[lower]
	}

	frac := pos - float64(lower)

	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
