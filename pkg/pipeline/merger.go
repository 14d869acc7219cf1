package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func forwardMerger[I any](ctx context.Context, p *Pipeline, input, output *Step[I]) error {
	for {
		start := time.Now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case output.Output <- in:
				err := p.onMergerOutput(input.details(), output.Info, time.Since(start))
				if err != nil {
					return err
				}
			}
		}
	}
}

// AddMerger funnels several steps of the same type into a single step. The
// output order only reflects the order in which the inputs produce.
func AddMerger[I any](p *Pipeline, name string, inputs ...*Step[I]) (*Step[I], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if len(inputs) == 0 {
		return nil, ErrMergerInput
	}

	for _, input := range inputs {
		if input == nil {
			return nil, ErrInputMustBeSet
		}
	}

	output := &Step[I]{
		Info: &StageInfo{
			Kind:       KindMerger,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan I),
	}

	err := p.register(output.Info)
	if err != nil {
		return nil, err
	}

	parents := make([]*StageInfo, len(inputs))
	for i, input := range inputs {
		parents[i] = input.details()
	}

	for _, opt := range p.opts {
		err := opt.PrepareMerger(parents, output.Info)
		if err != nil {
			return nil, errors.Wrap(err, "unable to prepare merger")
		}
	}

	errC := make(chan error, 1)
	p.errcList.add(newErrorChan(name, errC))

	go func() {
		defer func() {
			close(output.Output)
			close(errC)
		}()

		errGrp, dCtx := errgroup.WithContext(p.ctx)
		for _, input := range inputs {
			errGrp.Go(func() error {
				return forwardMerger(dCtx, p, input, output)
			})
		}

		err := errGrp.Wait()
		if err != nil {
			errC <- err
		}
	}()

	return output, nil
}
