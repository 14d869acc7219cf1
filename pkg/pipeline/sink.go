package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

func prepareSink[I any](p *Pipeline, name string, input *Step[I]) (*StageInfo, error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	info := &StageInfo{
		Kind:       KindSink,
		Name:       name,
		Concurrent: 1,
	}

	err := p.register(info)
	if err != nil {
		return nil, err
	}

	for _, opt := range p.opts {
		err := opt.PrepareSink(input.details(), info)
		if err != nil {
			return nil, errors.Wrap(err, "unable to prepare sink")
		}
	}

	return info, nil
}

// AddSink registers the terminal stage of a pipeline branch. The sink
// function runs once per element, in input order, and the first error stops
// the whole pipeline.
func AddSink[I any](p *Pipeline, name string, input *Step[I], sinkFn func(ctx context.Context, in I) error) error {
	info, err := prepareSink(p, name, input)
	if err != nil {
		return err
	}

	errC := make(chan error, 1)
	p.errcList.add(newErrorChan(name, errC))

	go func() {
		defer close(errC)

	outer:
		for {
			start := time.Now()
			select {
			case <-p.ctx.Done():
				errC <- p.ctx.Err()

				return
			case in, ok := <-input.Output:
				if !ok {
					break outer
				}

				startFn := time.Now()
				err := sinkFn(p.ctx, in)
				if err != nil {
					errC <- err

					return
				}
				endFn := time.Since(startFn)

				err = p.onSinkOutput(input.details(), info, time.Since(start)-endFn, endFn)
				if err != nil {
					errC <- err

					return
				}
			}
		}

		err := p.afterSink(info, time.Since(p.startTime))
		if err != nil {
			errC <- err
		}
	}()

	return nil
}

// AddSinkFromChan registers a sink that consumes the input channel directly,
// for sinks that need to see the whole stream rather than one element at a
// time.
func AddSinkFromChan[I any](p *Pipeline, name string, input *Step[I], sinkFn func(ctx context.Context, in <-chan I) error) error {
	info, err := prepareSink(p, name, input)
	if err != nil {
		return err
	}

	errC := make(chan error, 1)
	p.errcList.add(newErrorChan(name, errC))

	go func() {
		defer close(errC)

		err := sinkFn(p.ctx, input.Output)
		if err != nil {
			errC <- err

			return
		}

		err = p.afterSink(info, time.Since(p.startTime))
		if err != nil {
			errC <- err
		}
	}()

	return nil
}
