package events

import (
	"go.uber.org/zap"
)

// LogSink writes every event to a zap logger.
type LogSink struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

// NewLogSink creates a sink that logs events at debug level, except
// behavior:learning:error which is logged as a warning.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{
		logger: logger.Named("events"),
		level:  zap.NewAtomicLevelAt(zap.DebugLevel),
	}
}

// Emit implements Sink.
func (s *LogSink) Emit(e Event) {
	fields := make([]zap.Field, 0, len(e.Payload)+2)
	fields = append(fields,
		zap.String("user_id", e.UserID),
		zap.Time("timestamp", e.Timestamp))
	for k, v := range e.Payload {
		fields = append(fields, zap.Any(k, v))
	}

	if e.Name == BehaviorLearningError {
		s.logger.Warn(e.Name, fields...)
		return
	}
	if ce := s.logger.Check(s.level.Level(), e.Name); ce != nil {
		ce.Write(fields...)
	}
}
