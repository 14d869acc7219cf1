package pipeline

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrPipelineMustBeSet is returned when a stage is added to a nil pipeline.
	ErrPipelineMustBeSet = errors.New("pipeline must be set")
	// ErrInputMustBeSet is returned when a stage is wired to a nil input step.
	ErrInputMustBeSet = errors.New("input step must be set")
	// ErrDuplicateStage is returned when two stages are registered under the same name.
	ErrDuplicateStage = errors.New("stage name already registered")
	// ErrSplitterTotal is returned when a splitter is created with no branches.
	ErrSplitterTotal = errors.New("total must be greater than 0")
	// ErrMergerInput is returned when a merger is created with no inputs.
	ErrMergerInput = errors.New("merger needs at least one input")
)

type errorChans struct {
	mu   sync.Mutex
	list []*errorChan
}

func (ec *errorChans) add(errChan *errorChan) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.list = append(ec.list, errChan)
}

type errorChan struct {
	c    <-chan error
	name string
}

func newErrorChan(name string, c <-chan error) *errorChan {
	return &errorChan{
		c:    c,
		name: name,
	}
}

// mergeErrors merges multiple channels of errors.
// Based on https://blog.golang.org/pipelines.
func mergeErrors(cs ...*errorChan) <-chan error {
	var wg sync.WaitGroup
	// Every stage pushes at most one error to its channel, so a capacity of
	// len(cs) guarantees the forwarding goroutines never block even when the
	// consumer returns early on the first error.
	out := make(chan error, len(cs))

	// Start an output goroutine for each input channel in cs. output copies
	// values from c to out until c is closed, then calls wg.Done.
	output := func(c *errorChan) {
		defer wg.Done()

		if c.c == nil {
			return
		}

		for n := range c.c {
			out <- errors.Wrap(n, c.name)
		}
	}

	wg.Add(len(cs))

	for _, c := range cs {
		go output(c)
	}

	// Close out once all the output goroutines are done. This must start
	// after the wg.Add call.
	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
