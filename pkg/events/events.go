// Package events defines the notifications emitted by the engine and the
// sinks that receive them.
//
// Events are delivered synchronously to a single Sink. Use Multi to fan out
// to several sinks, for example a LogSink and a MetricsSink.
package events

import (
	"time"
)

// Event names.
const (
	BehaviorLearned       = "behavior:learned"
	BehaviorLearningError = "behavior:learning:error"
	ContextAnalyzed       = "context:analyzed"
	ContextLearned        = "context:learned"
	ContextChanged        = "context:changed"
	StrategyAdapted       = "strategy:adapted"
	StrategyUpdated       = "strategy:updated"
)

// Event is one notification.
type Event struct {
	// Name is one of the event name constants.
	Name string

	// UserID identifies the user the event concerns.
	UserID string

	// Timestamp is when the event was produced.
	Timestamp time.Time

	// Payload carries event-specific values. Sinks must not modify it.
	Payload map[string]interface{}
}

// Sink receives events. Implementations must be safe for concurrent use and
// must not block for long; Emit is called on the caller's goroutine.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit implements Sink.
func (f SinkFunc) Emit(e Event) {
	f(e)
}

// Nop is a Sink that discards every event.
var Nop Sink = SinkFunc(func(Event) {})

type multiSink []Sink

// Multi returns a Sink that forwards every event to each of sinks in order.
// Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}
