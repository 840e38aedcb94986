package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/contextual/sources"
	"github.com/oceanbase/remindsense-go/pkg/events"
	"github.com/oceanbase/remindsense-go/pkg/feedback"
	"github.com/oceanbase/remindsense-go/pkg/storage"
)

// ClientOption configures optional dependencies of a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger      *zap.Logger
	now         func() time.Time
	sinks       []events.Sink
	sources     []sources.Source
	registerer  prometheus.Registerer
	stateStore  storage.StateStore
	interpreter feedback.Interpreter
}

// WithLogger sets the logger. Without it the client builds one from
// Config.Logging.
//
// Example:
//
//	logger, _ := zap.NewDevelopment()
//	client, _ := core.NewClient(cfg, core.WithLogger(logger))
func WithLogger(logger *zap.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithClock overrides the wall clock of every component, mainly for tests.
func WithClock(now func() time.Time) ClientOption {
	return func(o *clientOptions) {
		o.now = now
	}
}

// WithSink adds an event sink. Events are delivered to every added sink in
// addition to the log and metrics sinks.
//
// Example:
//
//	client, _ := core.NewClient(cfg, core.WithSink(events.SinkFunc(func(e events.Event) {
//	    fmt.Println(e.Name, e.UserID)
//	})))
func WithSink(sink events.Sink) ClientOption {
	return func(o *clientOptions) {
		if sink != nil {
			o.sinks = append(o.sinks, sink)
		}
	}
}

// WithSources replaces the context sources. A TimeSource among them becomes
// the provider's clock; otherwise one is created in Config.Context's zone.
func WithSources(srcs ...sources.Source) ClientOption {
	return func(o *clientOptions) {
		o.sources = append(o.sources, srcs...)
	}
}

// WithRegisterer registers metrics with reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) ClientOption {
	return func(o *clientOptions) {
		o.registerer = reg
	}
}

// WithStateStore uses store for persistence instead of the one described by
// Config.Store. The client closes it on Close.
func WithStateStore(store storage.StateStore) ClientOption {
	return func(o *clientOptions) {
		o.stateStore = store
	}
}

// WithInterpreter sets the feedback comment interpreter instead of the one
// derived from Config.LLM.
func WithInterpreter(i feedback.Interpreter) ClientOption {
	return func(o *clientOptions) {
		o.interpreter = i
	}
}

func applyOptions(opts []ClientOption) *clientOptions {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
