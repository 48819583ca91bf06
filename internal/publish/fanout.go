package publish

import (
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/engine"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/metrics"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"
)

// Fanout forwards every publish call to each sink in order.
type Fanout struct {
	sinks []engine.Publisher
}

func NewFanout(sinks ...engine.Publisher) *Fanout {
	out := make([]engine.Publisher, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out}
}

func (f *Fanout) PublishQueue(mutations []models.Mutation) {
	for _, s := range f.sinks {
		s.PublishQueue(mutations)
	}
}

func (f *Fanout) PublishStatus(status models.EngineStatus) {
	for _, s := range f.sinks {
		s.PublishStatus(status)
	}
}

func (f *Fanout) PublishLog(entry models.LogEntry) {
	for _, s := range f.sinks {
		s.PublishLog(entry)
	}
}

// MetricsPublisher feeds Prometheus from publish callbacks, keeping the
// engine itself metrics-agnostic.
type MetricsPublisher struct{}

func NewMetricsPublisher() *MetricsPublisher {
	metrics.Register()
	return &MetricsPublisher{}
}

func (MetricsPublisher) PublishQueue(mutations []models.Mutation) {
	metrics.SetQueueDepth(len(mutations))
}

func (MetricsPublisher) PublishStatus(status models.EngineStatus) {
	metrics.IncStatus(string(status))
}

func (MetricsPublisher) PublishLog(entry models.LogEntry) {
	metrics.IncProcessed(string(entry.Status))
}
