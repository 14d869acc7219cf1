package pipeline

// StageKind describes the role of a stage inside a pipeline.
type StageKind string

const (
	// KindSource feeds the pipeline from outside.
	KindSource StageKind = "source"
	// KindStage transforms elements one by one.
	KindStage StageKind = "stage"
	// KindSplitter duplicates elements to several branches.
	KindSplitter StageKind = "splitter"
	// KindMerger funnels several steps into one.
	KindMerger StageKind = "merger"
	// KindSink consumes elements at the end of a branch.
	KindSink StageKind = "sink"
)

// StageInfo carries the identity of a stage as seen by pipeline options.
type StageInfo struct {
	Kind       StageKind
	Name       string
	Concurrent int
	BufferSize int
}

// Start and End are the virtual stages delimiting every pipeline. Options
// receive Start as the parent of sources and of steps built by hand, and
// End as the terminus of every sink.
var (
	Start = &StageInfo{Kind: KindSource, Name: "start", Concurrent: 1}
	End   = &StageInfo{Kind: KindSink, Name: "end", Concurrent: 1}
)

// Step is a typed edge between two stages. Steps are returned by AddSource,
// AddStage, AddMerger and Splitter.Get. A Step built by hand only needs
// Output; the pipeline treats it as fed from outside.
type Step[O any] struct {
	Output   chan O
	Info     *StageInfo
	keepOpen bool
}

func (s *Step[O]) details() *StageInfo {
	if s == nil || s.Info == nil {
		return Start
	}

	return s.Info
}
