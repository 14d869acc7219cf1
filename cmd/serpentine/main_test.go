package main

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/serpentine/pkg/dade"
)

func TestMirrorLower(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	d := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		2, nan, 0,
		3, 4, 5,
	})

	out := mirrorLower(d)

	assert.Equal(t, 2.0, out.At(1, 0))
	assert.Equal(t, 2.0, out.At(0, 1))
	assert.Equal(t, 4.0, out.At(2, 1))
	assert.Equal(t, 4.0, out.At(1, 2))
	assert.True(t, math.IsNaN(out.At(1, 1)), "empty-group cells must stay NaN")

	// The input is left alone.
	assert.Equal(t, 0.0, d.At(0, 1))
}

func TestMirrorLowerNaNRoundTripsThroughDADE(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	d := mat.NewDense(2, 2, []float64{
		nan, 0,
		-1.5, 2.25,
	})

	var buf bytes.Buffer
	err := dade.Write(&buf, mirrorLower(d), nil)
	require.NoError(t, err)

	loaded, _, err := dade.Read(&buf)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(loaded.At(0, 0)))
	assert.Equal(t, -1.5, loaded.At(1, 0))
	assert.Equal(t, -1.5, loaded.At(0, 1))
	assert.Equal(t, 2.25, loaded.At(1, 1))
}

func TestDemoMatrixSymmetric(t *testing.T) {
	t.Parallel()

	m := demoMatrix(12, 7)

	rows, cols := m.Dims()
	require.Equal(t, 12, rows)
	require.Equal(t, 12, cols)

	assert.True(t, mat.Equal(m, m.T()))
	assert.True(t, mat.Equal(m, demoMatrix(12, 7)))
}
