package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Pipeline wires sources, stages and sinks into a single runnable unit.
// Every Add call starts the goroutines of the stage immediately; Run only
// waits for completion and stops everything on the first error.
type Pipeline struct {
	ctx       context.Context
	cancel    context.CancelFunc
	errcList  *errorChans
	opts      []Option
	stages    map[string]struct{}
	startTime time.Time
}

// New creates an empty pipeline bound to ctx. The options are initialised in
// order and receive lifecycle notifications while stages are added and run.
func New(ctx context.Context, opts ...Option) (*Pipeline, error) {
	runCtx, cancel := context.WithCancel(ctx)
	pipe := &Pipeline{
		ctx:       runCtx,
		cancel:    cancel,
		errcList:  &errorChans{},
		opts:      opts,
		stages:    map[string]struct{}{},
		startTime: time.Now(),
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			cancel()

			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// Run waits for every registered stage to finish. It returns the first error
// encountered and cancels all remaining stages.
func (p *Pipeline) Run() error {
	defer p.cancel()

	err := waitForPipeline(p.errcList.list...)
	if err != nil {
		return err
	}

	return p.finishRun()
}

// waitForPipeline waits for results from all error channels.
// It returns early on the first error.
func waitForPipeline(errs ...*errorChan) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}

func (p *Pipeline) register(info *StageInfo) error {
	if _, ok := p.stages[info.Name]; ok {
		return errors.Wrap(ErrDuplicateStage, info.Name)
	}

	p.stages[info.Name] = struct{}{}

	return nil
}

func (p *Pipeline) onStageOutput(parent, stage *StageInfo, iterationDuration, computationDuration time.Duration) error {
	for _, opt := range p.opts {
		err := opt.OnStageOutput(parent, stage, iterationDuration, computationDuration)
		if err != nil {
			return errors.Wrap(err, "unable to run on stage output")
		}
	}

	return nil
}

func (p *Pipeline) onSplitterOutput(parent, splitter *StageInfo, iterationDuration, computationDuration time.Duration) error {
	for _, opt := range p.opts {
		err := opt.OnSplitterOutput(parent, splitter, iterationDuration, computationDuration)
		if err != nil {
			return errors.Wrap(err, "unable to run on splitter output")
		}
	}

	return nil
}

func (p *Pipeline) onMergerOutput(parent, merger *StageInfo, iterationDuration time.Duration) error {
	for _, opt := range p.opts {
		err := opt.OnMergerOutput(parent, merger, iterationDuration)
		if err != nil {
			return errors.Wrap(err, "unable to run on merger output")
		}
	}

	return nil
}

func (p *Pipeline) onSinkOutput(parent, sink *StageInfo, iterationDuration, computationDuration time.Duration) error {
	for _, opt := range p.opts {
		err := opt.OnSinkOutput(parent, sink, iterationDuration, computationDuration)
		if err != nil {
			return errors.Wrap(err, "unable to run on sink output")
		}
	}

	return nil
}

func (p *Pipeline) afterSink(sink *StageInfo, totalDuration time.Duration) error {
	for _, opt := range p.opts {
		err := opt.AfterSink(sink, totalDuration)
		if err != nil {
			return errors.Wrap(err, "unable to run after sink")
		}
	}

	return nil
}
