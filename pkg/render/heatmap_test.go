package render_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/serpentine/pkg/render"
)

func TestHeatmap(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(2, 2, []float64{0, 1, 2, 3})

	var buf bytes.Buffer
	err := render.Heatmap(&buf, m, render.HeatmapOptions{CellSize: 10, Title: "contacts"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `width="20" height="20"`)
	assert.Contains(t, out, "<title>contacts</title>")
	assert.Equal(t, 4, strings.Count(out, "<rect"))

	// Range is derived from the data: 0 maps to white, 3 to black.
	assert.Contains(t, out, `x="0" y="0" width="10" height="10" fill="#ffffff"`)
	assert.Contains(t, out, `x="10" y="10" width="10" height="10" fill="#000000"`)
}

func TestHeatmapNeutralCells(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(1, 3, []float64{0, 10, 1000})

	var buf bytes.Buffer
	err := render.Heatmap(&buf, m, render.HeatmapOptions{Log10: true})
	require.NoError(t, err)

	out := buf.String()

	// log10(0) has no finite value, the cell comes out neutral.
	assert.Contains(t, out, `fill="#cccccc"`)
	assert.Contains(t, out, `fill="#ffffff"`)
	assert.Contains(t, out, `fill="#000000"`)
}

func TestHeatmapFixedRange(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(1, 1, []float64{10})

	var buf bytes.Buffer
	err := render.Heatmap(&buf, m, render.HeatmapOptions{Min: -3, Max: 3, Palette: render.Diverging()})
	require.NoError(t, err)

	// 10 clamps to the top of the range.
	assert.Contains(t, buf.String(), `fill="#800000"`)
}

func TestHeatmapNilMatrix(t *testing.T) {
	t.Parallel()

	err := render.Heatmap(&bytes.Buffer{}, nil, render.HeatmapOptions{})
	require.ErrorIs(t, err, render.ErrMatrixMustBeSet)
}

func TestHeatmapDeterministic(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(3, 3, []float64{5, 1, 2, 1, 8, 3, 2, 3, 9})

	var first, second bytes.Buffer
	require.NoError(t, render.Heatmap(&first, m, render.HeatmapOptions{}))
	require.NoError(t, render.Heatmap(&second, m, render.HeatmapOptions{}))

	assert.Equal(t, first.String(), second.String())
}

func TestDifferential(t *testing.T) {
	t.Parallel()

	d := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	t.Run("rectangular", func(t *testing.T) {
		t.Parallel()

		out, err := render.Differential(d, 1, false)
		require.NoError(t, err)

		want := mat.NewDense(2, 2, []float64{0, 1, 2, 3})
		assert.True(t, mat.Equal(want, out))
	})

	t.Run("triangular blanks the upper triangle", func(t *testing.T) {
		t.Parallel()

		out, err := render.Differential(d, 1, true)
		require.NoError(t, err)

		assert.Equal(t, 0.0, out.At(0, 0))
		assert.True(t, math.IsNaN(out.At(0, 1)))
		assert.Equal(t, 2.0, out.At(1, 0))
		assert.Equal(t, 3.0, out.At(1, 1))
	})

	t.Run("nil matrix", func(t *testing.T) {
		t.Parallel()

		_, err := render.Differential(nil, 0, false)
		require.ErrorIs(t, err, render.ErrMatrixMustBeSet)
	})
}
