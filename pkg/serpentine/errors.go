package serpentine

import "github.com/pkg/errors"

var (
	// ErrMatrixMustBeSet is returned when an input matrix is nil.
	ErrMatrixMustBeSet = errors.New("matrix must be set")
	// ErrShapeMismatch is returned when the two matrices differ in shape.
	ErrShapeMismatch = errors.New("matrices must have identical shape")
	// ErrNotSquare is returned when triangular binning is asked of a
	// non-square matrix.
	ErrNotSquare = errors.New("matrices must be square")
	// ErrThresholdOrder is returned when the minimal threshold is not lower
	// than the maximal one.
	ErrThresholdOrder = errors.New("minimal threshold must be lower than maximal")
	// ErrIterations is returned when a binning run is asked for no iterations.
	ErrIterations = errors.New("iterations must be greater than 0")
	// ErrFilterSize is returned when a filter does not match the matrix size.
	ErrFilterSize = errors.New("filter length must match matrix dimension")
	// ErrEmptyFilter is returned when a filter keeps no row at all.
	ErrEmptyFilter = errors.New("filter keeps nothing")
	// ErrCloudSize is returned when the mean and diff vectors of a cloud
	// differ in length.
	ErrCloudSize = errors.New("mean and diff must have the same length")
	// ErrTrendBins is returned when a trend is asked for no bins.
	ErrTrendBins = errors.New("bins must be greater than 0")
	// ErrNoFiniteData is returned when a cloud holds no finite pair to bucket.
	ErrNoFiniteData = errors.New("no finite values to bucket")
)
