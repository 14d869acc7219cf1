package serpentine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/serpentine/pkg/serpentine"
)

func TestMAD(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		xs   []float64
		want float64
	}{
		"odd length":    {xs: []float64{1, 2, 3, 4, 5}, want: 1},
		"even length":   {xs: []float64{1, 2, 3, 4}, want: 1},
		"constant":      {xs: []float64{3, 3, 3}, want: 0},
		"single value":  {xs: []float64{42}, want: 0},
		"with outlier":  {xs: []float64{1, 1, 1, 1, 100}, want: 0},
		"spread values": {xs: []float64{-5, 0, 5}, want: 5},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.InDelta(t, tc.want, serpentine.MAD(tc.xs), 1e-12)
		})
	}
}

func TestOutstandingFilter(t *testing.T) {
	t.Parallel()

	// Four columns summing to 100, one of negligible coverage.
	m := mat.NewDense(5, 5, []float64{
		20, 20, 20, 20, 0.0002,
		20, 20, 20, 20, 0.0002,
		20, 20, 20, 20, 0.0002,
		20, 20, 20, 20, 0.0002,
		20, 20, 20, 20, 0.0002,
	})

	flagged := serpentine.OutstandingFilter(m)
	assert.Equal(t, []bool{false, false, false, false, true}, flagged)
}

func TestOutstandingFilterNothingFlagged(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(3, 3, []float64{
		1, 2, 3,
		1, 2, 3,
		1, 2, 3,
	})

	flagged := serpentine.OutstandingFilter(m)
	assert.Equal(t, []bool{false, false, false}, flagged)
}

func TestFilterMatrix(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(3, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})

	got, err := serpentine.FilterMatrix(m, []bool{false, true, false})
	require.NoError(t, err)

	want := mat.NewDense(2, 2, []float64{
		1, 3,
		7, 9,
	})
	assert.True(t, mat.Equal(want, got))
}

func TestFilterMatrixErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		m       *mat.Dense
		drop    []bool
		wantErr error
	}{
		"not square": {
			m:       mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}),
			drop:    []bool{false, false},
			wantErr: serpentine.ErrFilterSize,
		},
		"wrong length": {
			m:       mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			drop:    []bool{false},
			wantErr: serpentine.ErrFilterSize,
		},
		"drops everything": {
			m:       mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			drop:    []bool{true, true},
			wantErr: serpentine.ErrEmptyFilter,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := serpentine.FilterMatrix(tc.m, tc.drop)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
