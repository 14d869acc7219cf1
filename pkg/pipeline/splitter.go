package pipeline

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Splitter duplicates every element of a step to a fixed number of branches.
type Splitter[I any] struct {
	mu         sync.Mutex
	currIdx    int
	info       *StageInfo
	branches   []*Step[I]
	bufferSize int
	Total      int
}

// Get returns the next unclaimed branch. It returns false once all branches
// have been handed out.
func (s *Splitter[I]) Get() (*Step[I], bool) {
	s.mu.Lock()
	defer func() {
		s.currIdx++
		s.mu.Unlock()
	}()

	if s.currIdx >= len(s.branches) {
		return nil, false
	}

	return s.branches[s.currIdx], true
}

// AddSplitter registers a splitter that duplicates input to total branches.
// Every branch carries a small buffer, one element by default, so a slow
// consumer stalls the others as little as possible.
func AddSplitter[I any](p *Pipeline, name string, input *Step[I], total int, opts ...SplitterOption[I]) (*Splitter[I], error) {
	if p == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	if total <= 0 {
		return nil, ErrSplitterTotal
	}

	splitter := &Splitter[I]{
		Total: total,
		info: &StageInfo{
			Kind:       KindSplitter,
			Name:       name,
			Concurrent: 1,
		},
	}
	for _, opt := range opts {
		opt(splitter)
	}

	if splitter.bufferSize < 1 {
		splitter.bufferSize = 1
	}
	splitter.info.BufferSize = splitter.bufferSize

	err := p.register(splitter.info)
	if err != nil {
		return nil, err
	}

	for _, opt := range p.opts {
		err := opt.PrepareSplitter(input.details(), splitter.info)
		if err != nil {
			return nil, errors.Wrap(err, "unable to prepare splitter")
		}
	}

	buffers := make([]chan I, total)
	splitter.branches = make([]*Step[I], total)

	for i := range buffers {
		buffers[i] = make(chan I, splitter.bufferSize)
		splitter.branches[i] = &Step[I]{
			Info:   splitter.info,
			Output: make(chan I),
		}
	}

	errC := make(chan error, 1)
	p.errcList.add(newErrorChan(name, errC))

	wgrp := &sync.WaitGroup{}
	wgrp.Add(total)

	for i, buf := range buffers {
		go func() {
			defer wgrp.Done()
			defer close(splitter.branches[i].Output)

			for {
				select {
				case <-p.ctx.Done():
					return
				case elem, ok := <-buf:
					if !ok {
						return
					}

					select {
					case <-p.ctx.Done():
						return
					case splitter.branches[i].Output <- elem:
					}
				}
			}
		}()
	}

	go func() {
		defer func() {
			for _, buf := range buffers {
				close(buf)
			}
			wgrp.Wait()
			close(errC)
		}()

		for {
			start := time.Now()
			select {
			case <-p.ctx.Done():
				errC <- p.ctx.Err()

				return
			case in, ok := <-input.Output:
				if !ok {
					return
				}

				startFn := time.Now()
				for _, buf := range buffers {
					select {
					case <-p.ctx.Done():
						errC <- p.ctx.Err()

						return
					case buf <- in:
					}
				}
				endFn := time.Since(startFn)

				err := p.onSplitterOutput(input.details(), splitter.info, time.Since(start)-endFn, endFn)
				if err != nil {
					errC <- err

					return
				}
			}
		}
	}()

	return splitter, nil
}
