package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/serpentine/pkg/pipeline"
	"github.com/askiada/serpentine/pkg/pipeline/measure"
)

type pipelineDrawer struct {
	Drawer
	m         measure.Measure
	startTime time.Time
}

func (pd *pipelineDrawer) New() error {
	err := pd.AddStage(pipeline.Start.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start stage to drawer")
	}

	err = pd.AddStage(pipeline.End.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end stage to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) PrepareStage(parent, stage *pipeline.StageInfo) error {
	err := pd.AddStage(stage.Name)
	if err != nil {
		return err
	}

	return pd.AddLink(parent.Name, stage.Name)
}

func (pd *pipelineDrawer) PrepareSplitter(parent, splitter *pipeline.StageInfo) error {
	err := pd.AddStage(splitter.Name)
	if err != nil {
		return err
	}

	return pd.AddLink(parent.Name, splitter.Name)
}

func (pd *pipelineDrawer) PrepareMerger(parents []*pipeline.StageInfo, merger *pipeline.StageInfo) error {
	err := pd.AddStage(merger.Name)
	if err != nil {
		return err
	}

	for _, parent := range parents {
		err := pd.AddLink(parent.Name, merger.Name)
		if err != nil {
			return err
		}
	}

	return nil
}

func (pd *pipelineDrawer) PrepareSink(parent, sink *pipeline.StageInfo) error {
	err := pd.AddStage(sink.Name)
	if err != nil {
		return err
	}

	err = pd.AddLink(parent.Name, sink.Name)
	if err != nil {
		return err
	}

	return pd.AddLink(sink.Name, pipeline.End.Name)
}

func (pd *pipelineDrawer) OnStageOutput(_, _ *pipeline.StageInfo, _, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) OnSplitterOutput(_, _ *pipeline.StageInfo, _, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) OnMergerOutput(_, _ *pipeline.StageInfo, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) OnSinkOutput(_, _ *pipeline.StageInfo, _, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) AfterSink(_ *pipeline.StageInfo, _ time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) Finish() error {
	if pd.m != nil {
		err := pd.SetTotalTime(pipeline.End.Name, pd.startTime)
		if err != nil {
			return errors.Wrap(err, "unable to set total time")
		}

		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer exposes a Drawer as a pipeline option. The measure may be
// nil, in which case the drawing only shows the pipeline shape.
func PipelineDrawer(drw Drawer, m measure.Measure) pipeline.Option {
	return &pipelineDrawer{drw, m, time.Now()}
}
