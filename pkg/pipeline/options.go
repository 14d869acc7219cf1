package pipeline

import "time"

// Option observes the lifecycle of a pipeline. Implementations receive a
// callback when a stage is registered, every time an element crosses a stage
// boundary and when the whole pipeline finishes.
type Option interface {
	// New initialises the option.
	New() error

	stageOption
	splitterOption
	mergerOption
	sinkOption

	// Finish runs after the pipeline completed without error.
	Finish() error
}

type stageOption interface {
	// PrepareStage runs when a source or a stage is registered.
	PrepareStage(parent, stage *StageInfo) error
	// OnStageOutput runs every time a stage pushes an element downstream.
	OnStageOutput(parent, stage *StageInfo, iterationDuration, computationDuration time.Duration) error
}

type splitterOption interface {
	// PrepareSplitter runs when a splitter is registered.
	PrepareSplitter(parent, splitter *StageInfo) error
	// OnSplitterOutput runs every time a splitter fans an element out.
	OnSplitterOutput(parent, splitter *StageInfo, iterationDuration, computationDuration time.Duration) error
}

type mergerOption interface {
	// PrepareMerger runs when a merger is registered.
	PrepareMerger(parents []*StageInfo, merger *StageInfo) error
	// OnMergerOutput runs every time a merger forwards an element.
	OnMergerOutput(parent, merger *StageInfo, iterationDuration time.Duration) error
}

type sinkOption interface {
	// PrepareSink runs when a sink is registered.
	PrepareSink(parent, sink *StageInfo) error
	// OnSinkOutput runs every time a sink consumes an element.
	OnSinkOutput(parent, sink *StageInfo, iterationDuration, computationDuration time.Duration) error
	// AfterSink runs once a sink drained its input.
	AfterSink(sink *StageInfo, totalDuration time.Duration) error
}

// StepOption tunes a single step at registration time.
type StepOption[O any] func(s *Step[O])

// StageConcurrency runs the stage function on n goroutines. The output
// order is not preserved when n is greater than one.
func StageConcurrency[O any](n int) StepOption[O] {
	return func(s *Step[O]) {
		s.Info.Concurrent = n
	}
}

// StageBufferSize gives the output channel of the stage a buffer of size n.
func StageBufferSize[O any](n int) StepOption[O] {
	return func(s *Step[O]) {
		s.Info.BufferSize = n
	}
}

// StageKeepOpen leaves the output channel open when the stage function
// returns, for functions that close the channel themselves.
func StageKeepOpen[O any]() StepOption[O] {
	return func(s *Step[O]) {
		s.keepOpen = true
	}
}

// SplitterOption tunes a splitter at registration time.
type SplitterOption[I any] func(s *Splitter[I])

// SplitterBufferSize sets the per-branch buffer of a splitter. A larger
// buffer lets a slow branch lag behind the others.
func SplitterBufferSize[I any](n int) SplitterOption[I] {
	return func(s *Splitter[I]) {
		s.bufferSize = n
	}
}
