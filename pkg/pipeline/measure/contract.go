package measure

import "time"

// Measure collects one Metric per pipeline stage.
type Measure interface {
	AddMetric(name string, concurrent int) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric accumulates the durations observed for a single stage.
type Metric interface {
	// AddDuration records one execution of the stage function.
	AddDuration(elapsed time.Duration)
	// AddTransportDuration records the time an element spent travelling
	// from inputStage to this stage.
	AddTransportDuration(inputStage string, elapsed time.Duration)
	// AVGDuration returns the mean execution time of the stage function.
	AVGDuration() time.Duration
	// AVGTransportDuration returns the mean transport time per input stage,
	// normalised by the stage concurrency.
	AVGTransportDuration() map[string]*TransportInfo
	SetTotalDuration(total time.Duration)
	GetTotalDuration() time.Duration
}
