// Package pipeline runs a set of stages connected by channels.
//
// A pipeline starts with one or more sources, moves elements through stages,
// splitters and mergers, and ends in sinks. Every stage runs on its own
// goroutines as soon as it is registered; Run waits for all of them and
// stops the whole pipeline on the first error.
//
// Stages are generic over their element types, so a pipeline is assembled
// with free functions rather than methods:
//
//	pipe, err := pipeline.New(ctx)
//	seeds, err := pipeline.AddSource(pipe, "seeds", produce)
//	grids, err := pipeline.AddStage(pipe, "bin", seeds, bin, pipeline.StageConcurrency[*Grid](16))
//	err = pipeline.AddSink(pipe, "accumulate", grids, accumulate)
//	err = pipe.Run()
//
// Options passed to New observe the lifecycle of every stage. They are used
// to measure stage timings and to draw the pipeline as a Graphviz file, see
// the measure and drawer subpackages.
package pipeline
