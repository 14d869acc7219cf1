package measure

import (
	"time"

	"github.com/askiada/serpentine/pkg/pipeline"
)

type pipelineMeasure struct {
	Measure
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(pipeline.Start.Name, 1)
	pm.AddMetric(pipeline.End.Name, 1)

	return nil
}

func (pm *pipelineMeasure) PrepareStage(_, stage *pipeline.StageInfo) error {
	pm.AddMetric(stage.Name, stage.Concurrent)

	return nil
}

func (pm *pipelineMeasure) PrepareSplitter(_, splitter *pipeline.StageInfo) error {
	pm.AddMetric(splitter.Name, splitter.Concurrent)

	return nil
}

func (pm *pipelineMeasure) PrepareMerger(_ []*pipeline.StageInfo, merger *pipeline.StageInfo) error {
	pm.AddMetric(merger.Name, merger.Concurrent)

	return nil
}

func (pm *pipelineMeasure) PrepareSink(_, sink *pipeline.StageInfo) error {
	pm.AddMetric(sink.Name, sink.Concurrent)

	return nil
}

func (pm *pipelineMeasure) OnStageOutput(parent, stage *pipeline.StageInfo, iterationDuration, computationDuration time.Duration) error {
	pm.GetMetric(stage.Name).AddDuration(computationDuration)
	pm.GetMetric(stage.Name).AddTransportDuration(parent.Name, iterationDuration)

	return nil
}

func (pm *pipelineMeasure) OnSplitterOutput(parent, splitter *pipeline.StageInfo, iterationDuration, computationDuration time.Duration) error {
	pm.GetMetric(splitter.Name).AddDuration(computationDuration)
	pm.GetMetric(splitter.Name).AddTransportDuration(parent.Name, iterationDuration)

	return nil
}

func (pm *pipelineMeasure) OnMergerOutput(parent, merger *pipeline.StageInfo, iterationDuration time.Duration) error {
	pm.GetMetric(merger.Name).AddTransportDuration(parent.Name, iterationDuration)

	return nil
}

func (pm *pipelineMeasure) OnSinkOutput(parent, sink *pipeline.StageInfo, iterationDuration, computationDuration time.Duration) error {
	pm.GetMetric(sink.Name).AddDuration(computationDuration)
	pm.GetMetric(sink.Name).AddTransportDuration(parent.Name, iterationDuration)

	return nil
}

func (pm *pipelineMeasure) AfterSink(sink *pipeline.StageInfo, totalDuration time.Duration) error {
	pm.GetMetric(sink.Name).SetTotalDuration(totalDuration)

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	return nil
}

// PipelineMeasure exposes a Measure as a pipeline option, recording one
// metric per stage while the pipeline runs.
func PipelineMeasure(measure Measure) pipeline.Option {
	return &pipelineMeasure{measure}
}
