package serpentine

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/askiada/serpentine/pkg/pipeline"
)

// Result holds the outcome of a binning run, averaged over all iterations.
type Result struct {
	// A and B are the binned input matrices.
	A *mat.Dense
	B *mat.Dense
	// LogRatio is the averaged log2(B/A) differential matrix. In triangular
	// mode only its lower triangle carries values.
	LogRatio *mat.Dense
}

type iterationSeed struct {
	index int
	seed  int64
}

type iterationOutput struct {
	index int
	a     *mat.Dense
	b     *mat.Dense
	d     *mat.Dense
}

// Bin runs Iterations independent binning passes over A and B and averages
// them. Up to Parallel passes run at once; the first failing pass cancels
// the rest.
func Bin(ctx context.Context, a, b *mat.Dense, opts Options) (*Result, error) {
	err := validate(a, b, opts)
	if err != nil {
		return nil, err
	}

	if opts.Iterations <= 0 {
		return nil, errors.Wrapf(ErrIterations, "%d", opts.Iterations)
	}

	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}

	baseSeed := opts.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	opts.Logger.Info().
		Int("iterations", opts.Iterations).
		Int("parallel", parallel).
		Msg("starting binning passes")

	outputs := make([]*iterationOutput, opts.Iterations)

	pipe, err := pipeline.New(ctx, opts.PipelineOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create binning pipeline")
	}

	seeds, err := pipeline.AddSource(pipe, "seeds", func(ctx context.Context, out chan<- iterationSeed) error {
		for i := 0; i < opts.Iterations; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- iterationSeed{index: i, seed: deriveSeed(baseSeed, i)}:
			}
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add seed source")
	}

	binned, err := pipeline.AddStage(pipe, "bin", seeds, func(_ context.Context, in iterationSeed) (*iterationOutput, error) {
		iterOpts := opts
		iterOpts.Seed = in.seed
		iterOpts.Logger = opts.Logger.With().Int("iteration", in.index).Logger()

		ai, bi, di, err := Iteration(a, b, iterOpts)
		if err != nil {
			return nil, errors.Wrapf(err, "iteration %d", in.index)
		}

		return &iterationOutput{index: in.index, a: ai, b: bi, d: di}, nil
	}, pipeline.StageConcurrency[*iterationOutput](parallel))
	if err != nil {
		return nil, errors.Wrap(err, "unable to add binning stage")
	}

	err = pipeline.AddSink(pipe, "accumulate", binned, func(_ context.Context, in *iterationOutput) error {
		outputs[in.index] = in

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add accumulate sink")
	}

	err = pipe.Run()
	if err != nil {
		return nil, errors.Wrap(err, "unable to run binning pipeline")
	}

	// The passes arrive in scheduling order, so the sink only parks them.
	// Summing in iteration order keeps a fixed seed bit-reproducible;
	// float addition is sensitive to the fold order.
	rows, cols := a.Dims()
	sumA := mat.NewDense(rows, cols, nil)
	sumB := mat.NewDense(rows, cols, nil)
	sumD := mat.NewDense(rows, cols, nil)

	for _, out := range outputs {
		sumA.Add(sumA, out.a)
		sumB.Add(sumB, out.b)
		sumD.Add(sumD, out.d)
	}

	factor := 1 / float64(opts.Iterations)
	sumA.Scale(factor, sumA)
	sumB.Scale(factor, sumB)
	sumD.Scale(factor, sumD)

	return &Result{A: sumA, B: sumB, LogRatio: sumD}, nil
}

// deriveSeed spreads the run seed over the iterations. Zero is reserved for
// "pick a time-derived seed", so it is never handed to an iteration.
func deriveSeed(base int64, index int) int64 {
	seed := base + int64(index) + 1
	if seed == 0 {
		return math.MinInt64
	}

	return seed
}
