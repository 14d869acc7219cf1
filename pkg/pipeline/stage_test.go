package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/serpentine/pkg/pipeline"
)

func TestAddStageNilPipe(t *testing.T) {
	t.Parallel()

	_, err := pipeline.AddStage(nil, "stage", nil, func(ctx context.Context, in int) (int, error) {
		return in, nil
	})
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddStageNilInput(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)
	_, err = pipeline.AddStage(pipe, "stage", nil, func(ctx context.Context, in int) (int, error) {
		return in, nil
	})
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
	require.NoError(t, pipe.Run())
}

func TestAddStage(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		concurrency int
	}{
		"sequential":     {concurrency: 1},
		"zero value":     {concurrency: 0},
		"concurrent 2":   {concurrency: 2},
		"concurrent 100": {concurrency: 100},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got []int

			pipe, err := pipeline.New(context.Background())
			require.NoError(t, err)

			step := pipeline.Step[int]{
				Output: createInputChan(t, 10),
			}
			outputChan, err := pipeline.AddStage(pipe, "stage", &step, func(ctx context.Context, in int) (int, error) {
				return in * 10, nil
			}, pipeline.StageConcurrency[int](tc.concurrency))
			require.NoError(t, err)

			done := make(chan struct{})

			go func() {
				got = processOutputChan(t, outputChan.Output)
				done <- struct{}{}
			}()

			err = pipe.Run()
			require.NoError(t, err)
			<-done
			assert.ElementsMatch(t, []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90}, got)
		})
	}
}

func TestAddStageError(t *testing.T) {
	t.Parallel()

	var got []int

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	source, err := pipeline.AddSource(pipe, "source", func(ctx context.Context, out chan<- int) error {
		return sendRange(ctx, out, 10)
	})
	require.NoError(t, err)

	outputChan, err := pipeline.AddStage(pipe, "stage", source, func(ctx context.Context, in int) (int, error) {
		if in == 5 {
			return 0, assert.AnError
		}

		return in, nil
	})
	require.NoError(t, err)

	done := make(chan struct{})

	go func() {
		got = processOutputChan(t, outputChan.Output)
		done <- struct{}{}
	}()

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
	<-done

	_ = got
}

func TestAddStageCancel(t *testing.T) {
	t.Parallel()

	var got []int

	ctx, cancel := context.WithCancel(context.Background())
	pipe, err := pipeline.New(ctx)
	require.NoError(t, err)

	source, err := pipeline.AddSource(pipe, "source", func(ctx context.Context, out chan<- int) error {
		for i := range 10 {
			if i == 5 {
				cancel()
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- i:
			}
		}

		return nil
	})
	require.NoError(t, err)

	outputChan, err := pipeline.AddStage(pipe, "stage", source, func(ctx context.Context, in int) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
			return in, nil
		}
	})
	require.NoError(t, err)

	done := make(chan struct{})

	go func() {
		got = processOutputChan(t, outputChan.Output)
		done <- struct{}{}
	}()

	err = pipe.Run()
	require.ErrorIs(t, err, context.Canceled)
	<-done

	_ = got
}

func TestAddStageOneToManyNilPipe(t *testing.T) {
	t.Parallel()

	_, err := pipeline.AddStageOneToMany(nil, "stage", nil, func(ctx context.Context, in int) ([]int, error) {
		return []int{in}, nil
	})
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddStageOneToMany(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		concurrency int
		expected    []int
	}{
		"sequential": {
			concurrency: 1,
			expected:    []int{0, 0, 1, 10, 2, 20, 3, 30, 4, 40},
		},
		"concurrent 4": {
			concurrency: 4,
			expected:    []int{0, 0, 1, 10, 2, 20, 3, 30, 4, 40},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got []int

			pipe, err := pipeline.New(context.Background())
			require.NoError(t, err)

			step := pipeline.Step[int]{
				Output: createInputChan(t, 5),
			}
			outputChan, err := pipeline.AddStageOneToMany(pipe, "expand", &step, func(ctx context.Context, in int) ([]int, error) {
				return []int{in, in * 10}, nil
			}, pipeline.StageConcurrency[int](tc.concurrency))
			require.NoError(t, err)

			done := make(chan struct{})

			go func() {
				got = processOutputChan(t, outputChan.Output)
				done <- struct{}{}
			}()

			err = pipe.Run()
			require.NoError(t, err)
			<-done
			assert.ElementsMatch(t, tc.expected, got)
		})
	}
}

func TestAddStageOneToManyEmpty(t *testing.T) {
	t.Parallel()

	var got []int

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	step := pipeline.Step[int]{
		Output: createInputChan(t, 5),
	}
	outputChan, err := pipeline.AddStageOneToMany(pipe, "filter", &step, func(ctx context.Context, in int) ([]int, error) {
		if in%2 == 0 {
			return nil, nil
		}

		return []int{in}, nil
	})
	require.NoError(t, err)

	done := make(chan struct{})

	go func() {
		got = processOutputChan(t, outputChan.Output)
		done <- struct{}{}
	}()

	err = pipe.Run()
	require.NoError(t, err)
	<-done
	assert.ElementsMatch(t, []int{1, 3}, got)
}

func TestAddStageBufferSize(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	step := pipeline.Step[int]{
		Output: createInputChan(t, 5),
	}

	// With a buffer at least as large as the input, the stage drains
	// completely even though the consumer starts after Run.
	outputChan, err := pipeline.AddStage(pipe, "buffered", &step, func(ctx context.Context, in int) (int, error) {
		return in, nil
	}, pipeline.StageBufferSize[int](5))
	require.NoError(t, err)

	err = pipe.Run()
	require.NoError(t, err)

	got := processOutputChan(t, outputChan.Output)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, got)
}
