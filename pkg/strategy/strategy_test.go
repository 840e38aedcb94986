package strategy_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/remindsense-go/pkg/contextual"
	"github.com/oceanbase/remindsense-go/pkg/contextual/sources"
	"github.com/oceanbase/remindsense-go/pkg/events"
	"github.com/oceanbase/remindsense-go/pkg/intelligence"
	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage/memory"
	"github.com/oceanbase/remindsense-go/pkg/strategy"
)

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) Emit(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, e.Name)
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.names {
		if got == name {
			n++
		}
	}
	return n
}

// wednesday returns 2026-10-14 at the given hour and minute, UTC.
func wednesday(hour, minute int) time.Time {
	return time.Date(2026, 10, 14, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	strategy *strategy.TimingStrategy
	patterns *intelligence.PatternStore
	repo     *memory.Repository
	manual   *sources.ManualSource
	sink     *recorder
}

func setup(t *testing.T, now time.Time) *fixture {
	t.Helper()
	clock := func() time.Time { return now }
	f := &fixture{
		repo:   memory.New(),
		manual: sources.NewManualSource(),
		sink:   &recorder{},
	}

	var err error
	f.patterns, err = intelligence.NewPatternStore(f.repo, nil, intelligence.WithClock(clock))
	require.NoError(t, err)
	provider, err := contextual.NewProvider(f.repo, f.patterns,
		contextual.WithSources(sources.NewTimeSource(time.UTC), f.manual),
		contextual.WithClock(clock),
		contextual.WithSink(f.sink),
	)
	require.NoError(t, err)
	f.strategy, err = strategy.New(f.repo, provider, strategy.WithClock(clock), strategy.WithSink(f.sink))
	require.NoError(t, err)
	return f
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := strategy.New(nil, nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestGetUserStrategy_Defaults(t *testing.T) {
	f := setup(t, wednesday(20, 0))
	ctx := context.Background()

	strat, err := f.strategy.GetUserStrategy(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, "user_001", strat.UserID)
	assert.Equal(t, 3, strat.BatchingPreferences.MaxBatchSize)
	assert.Equal(t, 0.5, strat.Confidence)
	assert.Equal(t, 60, strat.TimingPreferences.WeekendAdjustment)
	assert.Equal(t, 15, strat.ContextAdjustments[model.ActivityWorking])
	assert.True(t, strat.PriorityHandling.AllowHighPriorityInterruption)

	// Mutating the copy does not touch the stored strategy.
	strat.BatchingPreferences.MaxBatchSize = 9
	again, err := f.strategy.GetUserStrategy(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 3, again.BatchingPreferences.MaxBatchSize)

	_, err = f.strategy.GetUserStrategy(ctx, "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestAdaptReminderStrategy_FrequencyComplaintShrinksBatches(t *testing.T) {
	f := setup(t, wednesday(20, 0))
	ctx := context.Background()

	record, err := f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
		FeedbackType: model.FeedbackFrequency,
		Rating:       2,
		WasHelpful:   false,
		Comment:      "too many reminders at once",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "3->2", record.Changes["max_batch_size"])
	assert.InDelta(t, 0.195, record.Strength, 1e-9)

	strat, err := f.strategy.GetUserStrategy(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 2, strat.BatchingPreferences.MaxBatchSize)
	assert.Equal(t, 1, f.sink.count(events.StrategyAdapted))
	assert.Equal(t, 1, f.sink.count(events.StrategyUpdated))

	// Repeated complaints never go below one.
	for i := 0; i < 3; i++ {
		_, err = f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
			FeedbackType: model.FeedbackFrequency,
			Rating:       1,
			Comment:      "way too often",
		}, nil)
		require.NoError(t, err)
	}
	strat, err = f.strategy.GetUserStrategy(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 1, strat.BatchingPreferences.MaxBatchSize)

	// Without a volume complaint nothing changes.
	record, err = f.strategy.AdaptReminderStrategy(ctx, "user_002", &model.ReminderFeedback{
		FeedbackType: model.FeedbackFrequency,
		Rating:       2,
		Comment:      "meh",
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, record.Changes)
}

func TestAdaptReminderStrategy_Timing(t *testing.T) {
	f := setup(t, wednesday(20, 0))
	ctx := context.Background()

	record, err := f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
		FeedbackType: model.FeedbackTiming,
		Rating:       1,
		Activity:     model.ActivityWorking,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "-30", record.Changes["context_adjustments.WORKING"])

	_, err = f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
		FeedbackType: model.FeedbackTiming,
		Rating:       2,
		Activity:     model.ActivityEating,
	}, nil)
	require.NoError(t, err)

	_, err = f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
		FeedbackType: model.FeedbackTiming,
		Rating:       5,
		WasHelpful:   true,
	}, nil)
	require.NoError(t, err)

	strat, err := f.strategy.GetUserStrategy(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, -15, strat.ContextAdjustments[model.ActivityWorking])
	assert.Equal(t, 5, strat.ContextAdjustments[model.ActivityEating])
	assert.InDelta(t, 0.6, strat.Confidence, 1e-9)

	// Timing feedback is also learned as context feedback.
	st, err := f.repo.View(ctx, "user_001")
	require.NoError(t, err)
	assert.Len(t, st.LearningSessions, 3)
	assert.Len(t, st.Adaptations, 3)
}

func TestAdaptReminderStrategy_UnhelpfulTimingIsNotLearnedAsPositive(t *testing.T) {
	f := setup(t, wednesday(20, 0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
			FeedbackType: model.FeedbackTiming,
			Rating:       5,
			WasHelpful:   false,
		}, nil)
		require.NoError(t, err)
	}

	st, err := f.repo.View(ctx, "user_001")
	require.NoError(t, err)
	assert.Empty(t, st.Patterns, "unhelpful feedback must not create a pattern")
	require.Len(t, st.LearningSessions, 3)
	for _, session := range st.LearningSessions {
		assert.Equal(t, model.OutcomeNegative, session.Kind)
		assert.False(t, session.Created)
	}
}

func TestAdaptReminderStrategy_DeliveryMethod(t *testing.T) {
	f := setup(t, wednesday(20, 0))
	ctx := context.Background()
	reminder := &model.Reminder{ID: "r1", UserID: "user_001", DeliveryMethods: []model.DeliveryMethod{model.DeliveryVoice}}

	record, err := f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
		FeedbackType: model.FeedbackDeliveryMethod,
		Rating:       2,
	}, reminder)
	require.NoError(t, err)
	assert.Equal(t, "r1", record.ReminderID)

	_, err = f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
		FeedbackType:   model.FeedbackDeliveryMethod,
		Rating:         5,
		WasHelpful:     true,
		DeliveryMethod: model.DeliveryVisual,
	}, reminder)
	require.NoError(t, err)

	strat, err := f.strategy.GetUserStrategy(ctx, "user_001")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, strat.DeliveryPreferences.MethodPenalties[model.DeliveryVoice], 1e-9)
	assert.Equal(t, []model.DeliveryMethod{model.DeliveryVisual}, strat.DeliveryPreferences.PreferredMethods)
}

func TestAdaptReminderStrategy_GeneralAndTypePreference(t *testing.T) {
	f := setup(t, wednesday(20, 0))
	ctx := context.Background()
	meds := &model.Reminder{ID: "r1", UserID: "user_001", Type: "medication"}

	record, err := f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
		FeedbackType: model.FeedbackGeneral,
		Rating:       4,
		WasHelpful:   true,
	}, meds)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, record.Strength, 1e-9)
	assert.Equal(t, "medication", record.ReminderType)

	_, err = f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
		FeedbackType: model.FeedbackGeneral,
		Rating:       2,
	}, &model.Reminder{ID: "r2", Type: "chores"})
	require.NoError(t, err)

	// Unrated and helpful is neutral.
	record, err = f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
		FeedbackType: model.FeedbackGeneral,
		WasHelpful:   true,
	}, meds)
	require.NoError(t, err)
	assert.Empty(t, record.Changes)
	assert.InDelta(t, 0.1, record.Strength, 1e-9)

	strat, err := f.strategy.GetUserStrategy(ctx, "user_001")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, strat.Confidence, 1e-9)
	assert.InDelta(t, 0.15, strat.BatchingPreferences.TypePreferences["medication"], 1e-9)
	assert.InDelta(t, -0.195, strat.BatchingPreferences.TypePreferences["chores"], 1e-9)

	history, err := f.strategy.GetAdaptationHistory(ctx, "user_001")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "r1", history[0].ReminderID)
	assert.Equal(t, "r2", history[1].ReminderID)
}

func TestAdaptReminderStrategy_RejectsInvalidFeedback(t *testing.T) {
	f := setup(t, wednesday(20, 0))
	ctx := context.Background()

	cases := []struct {
		name   string
		userID string
		fb     *model.ReminderFeedback
	}{
		{"no user", "", &model.ReminderFeedback{FeedbackType: model.FeedbackGeneral, Rating: 3}},
		{"no feedback", "user_001", nil},
		{"rating too high", "user_001", &model.ReminderFeedback{FeedbackType: model.FeedbackGeneral, Rating: 6}},
		{"negative rating", "user_001", &model.ReminderFeedback{FeedbackType: model.FeedbackGeneral, Rating: -1}},
		{"unknown type", "user_001", &model.ReminderFeedback{FeedbackType: "VIBES", Rating: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.strategy.AdaptReminderStrategy(ctx, tc.userID, tc.fb, nil)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}

	history, err := f.strategy.GetAdaptationHistory(ctx, "user_001")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Zero(t, f.sink.count(events.StrategyAdapted))
}

func TestAnalyzeUserBehaviorPatterns(t *testing.T) {
	f := setup(t, wednesday(20, 0))
	ctx := context.Background()

	analysis, err := f.strategy.AnalyzeUserBehaviorPatterns(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 0.5, analysis.Effectiveness)
	assert.Zero(t, analysis.TotalAdaptations)
	assert.Len(t, analysis.Recommendations, 1)

	office := &model.UserContext{
		CurrentActivity: model.ActivityWorking,
		Location:        model.Location{Name: "office", Type: model.LocationWork, Confidence: 0.9},
		TimeOfDay:       model.NewTimeOfDay(wednesday(10, 0), false),
	}
	for i := 0; i < 3; i++ {
		_, err := f.patterns.LearnFromContext(ctx, "user_001", office, model.LearningOutcome{Kind: model.OutcomePositive, Confidence: 1})
		require.NoError(t, err)
	}
	for i := 0; i < 4; i++ {
		_, err := f.strategy.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
			FeedbackType: model.FeedbackFrequency,
			Rating:       1,
			Comment:      "too many",
		}, nil)
		require.NoError(t, err)
	}

	analysis, err = f.strategy.AnalyzeUserBehaviorPatterns(ctx, "user_001")
	require.NoError(t, err)
	assert.Zero(t, analysis.Effectiveness)
	assert.Equal(t, 4, analysis.TotalAdaptations)
	assert.Equal(t, 4, analysis.FeedbackByType[model.FeedbackFrequency])
	require.Len(t, analysis.TopPatterns, 1)
	assert.Equal(t, model.PatternWorkHours, analysis.TopPatterns[0].Type)
	assert.Len(t, analysis.Recommendations, 3)

	_, err = f.strategy.AnalyzeUserBehaviorPatterns(ctx, "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
