package render

import "github.com/pkg/errors"

var (
	// ErrMatrixMustBeSet is returned when a plot is asked of a nil matrix.
	ErrMatrixMustBeSet = errors.New("matrix must be set")
	// ErrCloudMismatch is returned when the coordinate slices of a scatter
	// plot differ in length.
	ErrCloudMismatch = errors.New("coordinate slices must have the same length")
	// ErrNoFinitePoint is returned when a scatter plot holds nothing to draw.
	ErrNoFinitePoint = errors.New("no finite point to plot")
)
