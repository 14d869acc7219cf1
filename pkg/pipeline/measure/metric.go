package measure

import (
	"sync"
	"time"
)

// TransportInfo is the accumulated transport time coming from one input stage.
type TransportInfo struct {
	Elapsed time.Duration
	total   int64
}

// DefaultMetric is the in-memory Metric used by DefaultMeasure.
type DefaultMetric struct {
	mu            sync.Mutex
	allTransports map[string]*TransportInfo
	stepElapsed   time.Duration
	endDuration   time.Duration
	total         int64
	concurrent    int
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.stepElapsed += elapsed
}

func (mt *DefaultMetric) SetTotalDuration(total time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.endDuration = total
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.endDuration
}

func (mt *DefaultMetric) AddTransportDuration(inputStage string, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.allTransports[inputStage] == nil {
		mt.allTransports[inputStage] = &TransportInfo{}
	}

	info := mt.allTransports[inputStage]
	info.Elapsed += elapsed
	info.total++
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.total == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.stepElapsed) / float64(mt.total)))
}

// AVGTransportDuration leaves the accumulated values untouched and returns
// a fresh map, so it can be called any number of times.
func (mt *DefaultMetric) AVGTransportDuration() map[string]*TransportInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	out := make(map[string]*TransportInfo, len(mt.allTransports))

	for name, info := range mt.allTransports {
		avg := info.Elapsed
		if info.total > 0 {
			avg = round(time.Duration(float64(info.Elapsed) / float64(info.total) / float64(mt.concurrent)))
		}

		out[name] = &TransportInfo{Elapsed: avg, total: info.total}
	}

	return out
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Minute:
		d = d.Round(time.Second)
	case d > time.Second:
		d = d.Round(10 * time.Millisecond)
	case d > time.Millisecond:
		d = d.Round(time.Microsecond)
	}

	return d
}
