package hooks

import (
	"fmt"
	"strings"
	"time"

	"github.com/rcrowley/go-metrics"
)

const (
	stepTimerPrefix = "step.time."
	stepErrPrefix   = "step.errors."
	categoryPrefix  = "errors."
)

// Metrics is a core.MetricsCollector backed by a go-metrics registry, so the
// numbers can be shipped with any go-metrics reporter.
type Metrics struct {
	registry metrics.Registry

	throughput metrics.Counter
	searches   metrics.Counter
	achieved   metrics.Counter
	attempts   metrics.Histogram
}

// NewMetrics registers its instruments in r; nil means a private registry.
func NewMetrics(r metrics.Registry) *Metrics {
	if r == nil {
		r = metrics.NewRegistry()
	}
	return &Metrics{
		registry:   r,
		throughput: metrics.GetOrRegisterCounter("throughput.bytes", r),
		searches:   metrics.GetOrRegisterCounter("compress.searches", r),
		achieved:   metrics.GetOrRegisterCounter("compress.achieved", r),
		attempts: metrics.GetOrRegisterHistogram("compress.attempts", r,
			metrics.NewUniformSample(1028)),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() metrics.Registry { return m.registry }

func (m *Metrics) RecordProcessingTime(stepName string, d time.Duration) {
	metrics.GetOrRegisterTimer(stepTimerPrefix+stepName, m.registry).Update(d)
}

func (m *Metrics) RecordThroughput(bytes int64) { m.throughput.Inc(bytes) }

func (m *Metrics) RecordError(stepName string, category string) {
	metrics.GetOrRegisterCounter(stepErrPrefix+stepName, m.registry).Inc(1)
	metrics.GetOrRegisterCounter(categoryPrefix+category, m.registry).Inc(1)
}

func (m *Metrics) RecordSearch(attempts int, achieved bool) {
	m.searches.Inc(1)
	if achieved {
		m.achieved.Inc(1)
	}
	m.attempts.Update(int64(attempts))
}

// Snapshot returns a copy of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		StepDurationsMs:  make(map[string]int64),
		StepCalls:        make(map[string]int64),
		StepErrors:       make(map[string]int64),
		ErrorsByCategory: make(map[string]int64),
		TotalThroughputB: m.throughput.Count(),
		Searches:         m.searches.Count(),
		SearchesAchieved: m.achieved.Count(),
		MeanAttempts:     m.attempts.Mean(),
	}
	m.registry.Each(func(name string, i interface{}) {
		switch v := i.(type) {
		case metrics.Timer:
			if step, ok := strings.CutPrefix(name, stepTimerPrefix); ok {
				snap.StepCalls[step] = v.Count()
				snap.StepDurationsMs[step] = v.Sum() / int64(time.Millisecond)
			}
		case metrics.Counter:
			if step, ok := strings.CutPrefix(name, stepErrPrefix); ok {
				snap.StepErrors[step] = v.Count()
			} else if cat, ok := strings.CutPrefix(name, categoryPrefix); ok {
				snap.ErrorsByCategory[cat] = v.Count()
			}
		}
	})
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	StepDurationsMs  map[string]int64
	StepCalls        map[string]int64
	StepErrors       map[string]int64
	ErrorsByCategory map[string]int64
	TotalThroughputB int64

	Searches         int64
	SearchesAchieved int64
	MeanAttempts     float64
}

// String renders a one-line summary.
func (s MetricsSnapshot) String() string {
	return fmt.Sprintf("steps=%d errors=%d bytes=%d searches=%d achieved=%d mean_attempts=%.2f",
		len(s.StepCalls), sum(s.StepErrors), s.TotalThroughputB, s.Searches, s.SearchesAchieved, s.MeanAttempts)
}

func sum(m map[string]int64) int64 {
	var n int64
	for _, v := range m {
		n += v
	}
	return n
}
