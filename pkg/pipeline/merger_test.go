package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/serpentine/pkg/pipeline"
)

func TestAddMergerNilPipe(t *testing.T) {
	t.Parallel()

	step := pipeline.Step[int]{Output: make(chan int)}
	_, err := pipeline.AddMerger(nil, "merger", &step)
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestAddMergerNoInput(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)
	_, err = pipeline.AddMerger[int](pipe, "merger")
	require.ErrorIs(t, err, pipeline.ErrMergerInput)
	require.NoError(t, pipe.Run())
}

func TestAddMergerNilInput(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)
	_, err = pipeline.AddMerger(pipe, "merger", (*pipeline.Step[int])(nil))
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
	require.NoError(t, pipe.Run())
}

func TestAddMerger(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	step1 := pipeline.Step[int]{
		Output: createInputChan(t, 5),
	}
	step2 := pipeline.Step[int]{
		Output: createInputChan(t, 5),
	}

	outputChan, err := pipeline.AddMerger(pipe, "merger", &step1, &step2)
	require.NoError(t, err)

	var got []int

	done := make(chan struct{})

	go func() {
		got = processOutputChan(t, outputChan.Output)
		done <- struct{}{}
	}()

	err = pipe.Run()
	require.NoError(t, err)
	<-done
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 0, 1, 2, 3, 4}, got)
}

func TestAddMergerError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	source1, err := pipeline.AddSource(pipe, "source 1", func(ctx context.Context, out chan<- int) error {
		return sendRange(ctx, out, 5)
	})
	require.NoError(t, err)

	source2, err := pipeline.AddSource(pipe, "source 2", func(ctx context.Context, out chan<- int) error {
		return assert.AnError
	})
	require.NoError(t, err)

	merged, err := pipeline.AddMerger(pipe, "merger", source1, source2)
	require.NoError(t, err)

	err = pipeline.AddSink(pipe, "sink", merged, func(ctx context.Context, in int) error {
		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
}

func TestMergeSources(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	sources := make([]*pipeline.Step[int], 3)
	for i := range sources {
		base := i * 10

		source, err := pipeline.AddSource(pipe, "source "+string(rune('a'+i)), func(ctx context.Context, out chan<- int) error {
			for j := range 3 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case out <- base + j:
				}
			}

			return nil
		})
		require.NoError(t, err)

		sources[i] = source
	}

	merged, err := pipeline.AddMerger(pipe, "merger", sources...)
	require.NoError(t, err)

	got := []int{}
	err = pipeline.AddSink(pipe, "sink", merged, func(ctx context.Context, in int) error {
		got = append(got, in)

		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2, 10, 11, 12, 20, 21, 22}, got)
}
