package pipeline

import (
	"context"

	"github.com/pkg/errors"
)

// AddSource registers a stage that feeds the pipeline from outside. The
// source function must push its elements to out and return once done, or as
// soon as ctx is cancelled.
func AddSource[O any](p *Pipeline, name string, sourceFn func(ctx context.Context, out chan<- O) error, opts ...StepOption[O]) (*Step[O], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	step := &Step[O]{
		Info: &StageInfo{
			Kind:       KindSource,
			Name:       name,
			Concurrent: 1,
		},
	}
	for _, opt := range opts {
		opt(step)
	}

	step.Output = make(chan O, step.Info.BufferSize)

	err := p.register(step.Info)
	if err != nil {
		return nil, err
	}

	for _, opt := range p.opts {
		err := opt.PrepareStage(Start, step.Info)
		if err != nil {
			return nil, errors.Wrap(err, "unable to prepare source")
		}
	}

	errC := make(chan error, 1)
	p.errcList.add(newErrorChan(name, errC))

	go func() {
		defer func() {
			if !step.keepOpen {
				close(step.Output)
			}
			close(errC)
		}()

		err := sourceFn(p.ctx, step.Output)
		if err != nil {
			errC <- err
		}
	}()

	return step, nil
}
