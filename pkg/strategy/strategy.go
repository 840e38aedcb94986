// Package strategy provides the per-user timing strategy: it turns context
// and learned patterns into an optimized delivery time, adapts the user's
// reminder strategy from feedback, and sizes reminder batches.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/contextual"
	"github.com/oceanbase/remindsense-go/pkg/events"
	"github.com/oceanbase/remindsense-go/pkg/feedback"
	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
)

// TimingStrategy owns the per-user ReminderStrategy.
//
// Example usage:
//
//	ts, err := strategy.New(repo, provider, strategy.WithSink(sink))
//	timing := ts.OptimizeReminderTiming(ctx, reminder)
//	fmt.Println(timing.OptimizedTime, timing.Reasoning)
type TimingStrategy struct {
	repo        storage.Repository
	provider    *contextual.Provider
	interpreter feedback.Interpreter

	node *snowflake.Node

	sink   events.Sink
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a TimingStrategy.
type Option func(*TimingStrategy)

// WithInterpreter sets the feedback comment interpreter.
func WithInterpreter(i feedback.Interpreter) Option {
	return func(s *TimingStrategy) {
		if i != nil {
			s.interpreter = i
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *TimingStrategy) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSink sets the event sink.
func WithSink(sink events.Sink) Option {
	return func(s *TimingStrategy) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithClock overrides the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TimingStrategy) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDNode shares a snowflake node with other components.
func WithIDNode(node *snowflake.Node) Option {
	return func(s *TimingStrategy) {
		if node != nil {
			s.node = node
		}
	}
}

// New creates a timing strategy.
func New(repo storage.Repository, provider *contextual.Provider, opts ...Option) (*TimingStrategy, error) {
	if repo == nil || provider == nil {
		return nil, fmt.Errorf("strategy.New: repository and provider are required: %w", model.ErrInvalidInput)
	}
	s := &TimingStrategy{
		repo:        repo,
		provider:    provider,
		interpreter: feedback.NewKeywordInterpreter(),
		sink:        events.Nop,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.node == nil {
		node, err := snowflake.NewNode(2)
		if err != nil {
			return nil, fmt.Errorf("strategy.New: failed to create snowflake node: %w", err)
		}
		s.node = node
	}
	return s, nil
}

// DefaultStrategy returns the strategy a new user starts with.
func DefaultStrategy(userID string, now time.Time) *model.ReminderStrategy {
	return &model.ReminderStrategy{
		UserID: userID,
		TimingPreferences: model.TimingPreferences{
			PreferredHours:    []int{9, 10, 11, 14, 15, 16, 19, 20},
			AvoidHours:        []int{0, 1, 2, 3, 4, 5, 6, 22, 23},
			WeekendAdjustment: 60,
		},
		PriorityHandling: model.PriorityHandling{
			AllowHighPriorityInterruption: true,
			HighPriorityAdvanceMinutes:    15,
			LowPriorityDelayMinutes:       30,
		},
		ContextAdjustments: map[model.Activity]int{
			model.ActivityWorking:     15,
			model.ActivityEating:      20,
			model.ActivityExercising:  30,
			model.ActivitySocializing: 10,
		},
		BatchingPreferences: model.BatchingPreferences{
			MaxBatchSize:     3,
			PrioritizeByType: true,
			TypePreferences:  map[string]float64{},
		},
		DeliveryPreferences: model.DeliveryPreferences{
			MethodPenalties: map[model.DeliveryMethod]float64{},
		},
		Confidence:  0.5,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// ensureStrategy creates the user's strategy on first use.
func (s *TimingStrategy) ensureStrategy(st *model.UserState) *model.ReminderStrategy {
	if st.Strategy == nil {
		st.Strategy = DefaultStrategy(st.UserID, s.now())
	}
	return st.Strategy
}

// load returns a copy of the user's strategy and the number of recorded
// adaptations, creating the strategy when the user has none.
func (s *TimingStrategy) load(ctx context.Context, userID string) (*model.ReminderStrategy, int, error) {
	st, err := s.repo.View(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if st.Strategy != nil {
		return st.Strategy, len(st.Adaptations), nil
	}

	var strat *model.ReminderStrategy
	var n int
	err = s.repo.Update(ctx, userID, func(st *model.UserState) error {
		strat = s.ensureStrategy(st).Clone()
		n = len(st.Adaptations)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return strat, n, nil
}

// GetUserStrategy returns a copy of the user's reminder strategy, creating
// it with defaults on first use.
func (s *TimingStrategy) GetUserStrategy(ctx context.Context, userID string) (*model.ReminderStrategy, error) {
	if userID == "" {
		return nil, fmt.Errorf("GetUserStrategy: user ID is required: %w", model.ErrInvalidInput)
	}
	strat, _, err := s.load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetUserStrategy: %w", err)
	}
	return strat, nil
}

// GetAdaptationHistory returns the user's recorded adaptations, oldest
// first.
func (s *TimingStrategy) GetAdaptationHistory(ctx context.Context, userID string) ([]model.StrategyAdaptation, error) {
	if userID == "" {
		return nil, fmt.Errorf("GetAdaptationHistory: user ID is required: %w", model.ErrInvalidInput)
	}
	st, err := s.repo.View(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetAdaptationHistory: %w", err)
	}
	return st.Adaptations, nil
}

func (s *TimingStrategy) emit(name, userID string, payload map[string]interface{}) {
	s.sink.Emit(events.Event{
		Name:      name,
		UserID:    userID,
		Timestamp: s.now(),
		Payload:   payload,
	})
}
