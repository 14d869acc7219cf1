package drawer

import (
	"time"

	"github.com/askiada/serpentine/pkg/pipeline/measure"
)

// Drawer renders the shape of a pipeline.
type Drawer interface {
	// AddStage adds a stage to the drawing.
	AddStage(name string) error
	// AddLink adds a link between a parent and a child stage.
	AddLink(parentName, childName string) error
	// SetTotalTime annotates a stage with the time elapsed since start.
	SetTotalTime(name string, start time.Time) error
	// AddMeasure annotates the drawing with the timings of a measure.
	AddMeasure(m measure.Measure) error
	// Draw writes the drawing to its destination.
	Draw() error
}
