package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/serpentine/pkg/pipeline"
)

func TestAddSinkNilPipe(t *testing.T) {
	t.Parallel()

	err := pipeline.AddSink(nil, "sink", nil, func(ctx context.Context, in int) error {
		return nil
	})
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddSinkNilInput(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)
	err = pipeline.AddSink(pipe, "sink", nil, func(ctx context.Context, in int) error {
		return nil
	})
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
	require.NoError(t, pipe.Run())
}

func TestAddSink(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	step := pipeline.Step[int]{
		Output: createInputChan(t, 10),
	}

	got := []int{}
	err = pipeline.AddSink(pipe, "sink", &step, func(ctx context.Context, in int) error {
		got = append(got, in)

		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestAddSinkError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	source, err := pipeline.AddSource(pipe, "source", func(ctx context.Context, out chan<- int) error {
		return sendRange(ctx, out, 10)
	})
	require.NoError(t, err)

	got := []int{}
	err = pipeline.AddSink(pipe, "sink", source, func(ctx context.Context, in int) error {
		if in == 5 {
			return assert.AnError
		}

		got = append(got, in)

		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
	// The sink stops at the first error.
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestAddSinkFromChan(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	step := pipeline.Step[int]{
		Output: createInputChan(t, 10),
	}

	sum := 0
	err = pipeline.AddSinkFromChan(pipe, "sink", &step, func(ctx context.Context, in <-chan int) error {
		for elem := range in {
			sum += elem
		}

		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	require.NoError(t, err)
	assert.Equal(t, 45, sum)
}

func TestAddSinkFromChanError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	source, err := pipeline.AddSource(pipe, "source", func(ctx context.Context, out chan<- int) error {
		return sendRange(ctx, out, 10)
	})
	require.NoError(t, err)

	err = pipeline.AddSinkFromChan(pipe, "sink", source, func(ctx context.Context, in <-chan int) error {
		for elem := range in {
			if elem == 5 {
				return assert.AnError
			}
		}

		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
}
