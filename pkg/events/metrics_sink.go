package events

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts events in Prometheus.
type MetricsSink struct {
	events           *prometheus.CounterVec
	interruptibility *prometheus.CounterVec
	adaptations      *prometheus.CounterVec
}

// NewMetricsSink creates a metrics sink and registers its collectors with
// reg. When reg is nil a private registry is used, so several engines can
// coexist in one process (and in tests) without duplicate registration.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &MetricsSink{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "remindsense",
				Name:      "events_total",
				Help:      "Total number of engine events by name",
			},
			[]string{"event"},
		),
		interruptibility: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "remindsense",
				Subsystem: "context",
				Name:      "interruptibility_total",
				Help:      "Context analyses by resulting interruptibility level",
			},
			[]string{"level"},
		),
		adaptations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "remindsense",
				Subsystem: "strategy",
				Name:      "adaptations_total",
				Help:      "Strategy adaptations by feedback type and helpfulness",
			},
			[]string{"feedback_type", "helpful"},
		),
	}

	for _, c := range []prometheus.Collector{s.events, s.interruptibility, s.adaptations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Emit implements Sink.
func (s *MetricsSink) Emit(e Event) {
	s.events.WithLabelValues(e.Name).Inc()

	switch e.Name {
	case ContextAnalyzed:
		if level, ok := e.Payload["interruptibility"].(string); ok {
			s.interruptibility.WithLabelValues(level).Inc()
		}
	case StrategyAdapted:
		ft, _ := e.Payload["feedback_type"].(string)
		helpful := "false"
		if h, ok := e.Payload["was_helpful"].(bool); ok && h {
			helpful = "true"
		}
		s.adaptations.WithLabelValues(ft, helpful).Inc()
	}
}
