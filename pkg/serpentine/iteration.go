package serpentine

import (
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Iteration performs a single randomised binning pass over A and B. It
// returns the binned copies of both matrices and the log2(B/A) ratio matrix;
// the inputs are never modified.
//
// Groups below the thresholds merge with one uniformly chosen neighbour per
// sweep, until a sweep no longer changes the group count. A mergeable group
// whose neighbours were all absorbed into it is left alone.
func Iteration(a, b *mat.Dense, opts Options) (*mat.Dense, *mat.Dense, *mat.Dense, error) {
	err := validate(a, b, opts)
	if err != nil {
		return nil, nil, nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducibility, not secrecy

	u, rows, cols := flatten(a)
	v, _, _ := flatten(b)

	var gr *grid
	if opts.Triangular {
		gr = newTriGrid(u, v, rows)
	} else {
		gr = newRectGrid(u, v, rows, cols)
	}

	mergeGroups(gr, rng, opts)

	for _, grp := range gr.groups {
		if grp == nil {
			continue
		}

		meanA := grp.sumA / float64(len(grp.cells))
		meanB := grp.sumB / float64(len(grp.cells))

		for _, cell := range grp.cells {
			u[cell] = meanA
			v[cell] = meanB
		}
	}

	if opts.Triangular {
		return finalizeTriangular(u, v, rows)
	}

	return finalizeRect(u, v, rows, cols)
}

// mergeGroups runs merge sweeps until the live group count reaches a
// fixpoint. Every sweep walks the groups in a fresh random permutation.
func mergeGroups(gr *grid, rng *rand.Rand, opts Options) {
	start := len(gr.groups)
	seen := start
	sweep := 0
	previous, current := 0, 1

	for current != previous {
		logSweep(opts.Logger, sweep, seen, start)

		sweep++
		seen = 0

		for _, idx := range rng.Perm(len(gr.groups)) {
			grp := gr.groups[idx]
			if grp == nil {
				continue
			}

			seen++

			belowThreshold := grp.sumA < opts.Threshold && grp.sumB < opts.Threshold
			belowMin := grp.sumA < opts.MinThreshold || grp.sumB < opts.MinThreshold

			if !belowThreshold && !belowMin {
				continue
			}

			// A lone group below threshold has nothing left to merge with.
			if len(grp.neighs) == 0 {
				continue
			}

			gr.merge(idx, grp.neighs.pick(rng))
		}

		previous = current
		current = gr.live
	}

	logSweep(opts.Logger, sweep, seen, start)
	opts.Logger.Debug().
		Int("sweeps", sweep).
		Int("serpentines", gr.live).
		Msg("merge converged")
}

func logSweep(logger zerolog.Logger, sweep, total, start int) {
	logger.Debug().
		Int("sweep", sweep).
		Int("serpentines", total).
		Float64("percent", 100*float64(total)/float64(start)).
		Msg("merging serpentines")
}

func finalizeRect(u, v []float64, rows, cols int) (*mat.Dense, *mat.Dense, *mat.Dense, error) {
	d := make([]float64, len(u))
	for i, value := range v {
		d[i] = math.Log2(value / u[i])
	}

	return mat.NewDense(rows, cols, u), mat.NewDense(rows, cols, v), mat.NewDense(rows, cols, d), nil
}

// finalizeTriangular derives the ratio from the binned lower triangle, then
// symmetrises both matrices from it. The upper triangle of the ratio stays
// zero.
func finalizeTriangular(u, v []float64, n int) (*mat.Dense, *mat.Dense, *mat.Dense, error) {
	d := make([]float64, len(u))

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			lower := i*n + j
			d[lower] = math.Log2(v[lower] / u[lower])
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			u[i*n+j] = u[j*n+i]
			v[i*n+j] = v[j*n+i]
		}
	}

	return mat.NewDense(n, n, u), mat.NewDense(n, n, v), mat.NewDense(n, n, d), nil
}
