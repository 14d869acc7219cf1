package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func runSequential[I any, O any](ctx context.Context, p *Pipeline, workerID int, input *Step[I], output *Step[O], stageFn func(context.Context, I) (O, error)) error {
outer:
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "worker %d", workerID)
		case in, ok := <-input.Output:
			if !ok {
				break outer
			}

			startFn := time.Now()
			out, err := stageFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "worker %d", workerID)
			}
			endFn := time.Since(startFn)

			// Check the context again so workers already past the input
			// receive stop pushing elements once the pipeline is cancelled.
			select {
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "worker %d", workerID)
			case output.Output <- out:
				err := p.onStageOutput(input.details(), output.Info, time.Since(start)-endFn, endFn)
				if err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func runConcurrent[I any, O any](ctx context.Context, p *Pipeline, input *Step[I], output *Step[O], stageFn func(context.Context, I) (O, error)) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Info.Concurrent)

	// Start all the workers eagerly. Each one stops on the first error.
	for workerID := 0; workerID < output.Info.Concurrent; workerID++ {
		errGrp.Go(func() error {
			return runSequential(dCtx, p, workerID, input, output, stageFn)
		})
	}

	return errGrp.Wait()
}

func runSequentialMany[I any, O any](ctx context.Context, p *Pipeline, workerID int, input *Step[I], output *Step[O], stageFn func(context.Context, I) ([]O, error)) error {
outer:
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "worker %d", workerID)
		case in, ok := <-input.Output:
			if !ok {
				break outer
			}

			startFn := time.Now()
			outs, err := stageFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "worker %d", workerID)
			}
			endFn := time.Since(startFn)

			for _, out := range outs {
				select {
				case <-ctx.Done():
					return errors.Wrapf(ctx.Err(), "worker %d", workerID)
				case output.Output <- out:
					err := p.onStageOutput(input.details(), output.Info, time.Since(start)-endFn, endFn)
					if err != nil {
						return err
					}
				}
			}
		}
	}

	return nil
}

func runConcurrentMany[I any, O any](ctx context.Context, p *Pipeline, input *Step[I], output *Step[O], stageFn func(context.Context, I) ([]O, error)) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Info.Concurrent)

	for workerID := 0; workerID < output.Info.Concurrent; workerID++ {
		errGrp.Go(func() error {
			return runSequentialMany(dCtx, p, workerID, input, output, stageFn)
		})
	}

	return errGrp.Wait()
}

func prepareStage[I any, O any](p *Pipeline, name string, input *Step[I], opts ...StepOption[O]) (*Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := &Step[O]{
		Info: &StageInfo{
			Kind:       KindStage,
			Name:       name,
			Concurrent: 1,
		},
	}
	for _, opt := range opts {
		opt(step)
	}

	if step.Info.Concurrent < 1 {
		step.Info.Concurrent = 1
	}

	step.Output = make(chan O, step.Info.BufferSize)

	err := p.register(step.Info)
	if err != nil {
		return nil, err
	}

	for _, opt := range p.opts {
		err := opt.PrepareStage(input.details(), step.Info)
		if err != nil {
			return nil, errors.Wrap(err, "unable to prepare stage")
		}
	}

	return step, nil
}

func startStage[O any](p *Pipeline, name string, output *Step[O], runFn func(ctx context.Context) error) (*Step[O], error) {
	errC := make(chan error, 1)
	p.errcList.add(newErrorChan(name, errC))

	go func() {
		defer func() {
			if !output.keepOpen {
				close(output.Output)
			}
			close(errC)
		}()

		err := runFn(p.ctx)
		if err != nil {
			errC <- err
		}
	}()

	return output, nil
}

// AddStage registers a stage that transforms every element of input. With
// StageConcurrency the stage function runs on several workers at once.
func AddStage[I any, O any](p *Pipeline, name string, input *Step[I], stageFn func(ctx context.Context, in I) (O, error), opts ...StepOption[O]) (*Step[O], error) {
	output, err := prepareStage(p, name, input, opts...)
	if err != nil {
		return nil, err
	}

	return startStage(p, name, output, func(ctx context.Context) error {
		if output.Info.Concurrent == 1 {
			return runSequential(ctx, p, 1, input, output, stageFn)
		}

		return runConcurrent(ctx, p, input, output, stageFn)
	})
}

// AddStageOneToMany registers a stage that expands every element of input
// into zero or more elements.
func AddStageOneToMany[I any, O any](p *Pipeline, name string, input *Step[I], stageFn func(ctx context.Context, in I) ([]O, error), opts ...StepOption[O]) (*Step[O], error) {
	output, err := prepareStage(p, name, input, opts...)
	if err != nil {
		return nil, err
	}

	return startStage(p, name, output, func(ctx context.Context) error {
		if output.Info.Concurrent == 1 {
			return runSequentialMany(ctx, p, 1, input, output, stageFn)
		}

		return runConcurrentMany(ctx, p, input, output, stageFn)
	})
}
