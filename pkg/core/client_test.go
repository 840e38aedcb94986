package core_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/core"
	"github.com/oceanbase/remindsense-go/pkg/events"
	"github.com/oceanbase/remindsense-go/pkg/model"
)

// wednesdayEvening is the fixed clock of every client test.
var wednesdayEvening = time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC)

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) Emit(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, e.Name)
}

func (r *recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func testConfig() *core.Config {
	cfg := core.DefaultConfig()
	cfg.Context.Timezone = "UTC"
	cfg.Decay.Enabled = false
	return cfg
}

func newClient(t *testing.T, cfg *core.Config, opts ...core.ClientOption) *core.Client {
	t.Helper()
	opts = append([]core.ClientOption{
		core.WithLogger(zap.NewNop()),
		core.WithClock(func() time.Time { return wednesdayEvening }),
	}, opts...)
	client, err := core.NewClient(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func eveningAtHome() *model.UserContext {
	return &model.UserContext{
		UserID:          "user_001",
		CurrentActivity: model.ActivityRelaxing,
		Location:        model.Location{Name: "living room", Type: model.LocationHome, Confidence: 0.9},
		Availability:    model.AvailabilityAvailable,
		TimeOfDay:       model.NewTimeOfDay(wednesdayEvening, false),
		LastUpdated:     wednesdayEvening,
	}
}

func TestNewClient_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Provider = "redis"
	_, err := core.NewClient(cfg, core.WithLogger(zap.NewNop()))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	cfg = testConfig()
	cfg.Decay.Enabled = true
	cfg.Decay.Schedule = "every now and then"
	_, err = core.NewClient(cfg, core.WithLogger(zap.NewNop()))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestClient_LearnAndPredict(t *testing.T) {
	rec := &recorder{}
	client := newClient(t, testConfig(), core.WithSink(rec))
	ctx := context.Background()

	res, err := client.LearnFromContext(ctx, "user_001", eveningAtHome(), model.LearningOutcome{Kind: model.OutcomePositive, Confidence: 0.8})
	require.NoError(t, err)
	require.NotNil(t, res.Pattern)
	assert.True(t, res.Outcome.Created)
	assert.Equal(t, []string{events.BehaviorLearned, events.ContextLearned}, rec.Names())

	patterns, err := client.GetPatterns(ctx, "user_001")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, res.Pattern.ID, patterns[0].ID)

	stats, err := client.GetLearningStats(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPatterns)

	prediction := client.PredictOptimalTiming(ctx, "user_001", &model.Reminder{
		ID:          "r1",
		UserID:      "user_001",
		Priority:    model.PriorityMedium,
		TriggerTime: wednesdayEvening,
	}, eveningAtHome())
	require.NotNil(t, prediction)
	assert.False(t, prediction.SuggestedTime.Before(wednesdayEvening))
}

func TestClient_ErrorClassification(t *testing.T) {
	client := newClient(t, testConfig())
	ctx := context.Background()

	_, err := client.LearnFromContext(ctx, "", eveningAtHome(), model.LearningOutcome{Kind: model.OutcomePositive})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.NotErrorIs(t, err, core.ErrStorageOperation)

	_, err = client.GetUserStrategy(ctx, "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = client.AnalyzeUserContext(ctx, "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = client.LearnFromContext(cancelled, "user_001", eveningAtHome(), model.LearningOutcome{Kind: model.OutcomePositive, Confidence: 1})
	assert.ErrorIs(t, err, core.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)

	var engineErr *core.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "LearnFromContext", engineErr.Op)

	patterns, err := client.GetPatterns(ctx, "user_001")
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestClient_StrategyRoundTrip(t *testing.T) {
	client := newClient(t, testConfig())
	ctx := context.Background()

	timing := client.OptimizeReminderTiming(ctx, &model.Reminder{
		ID:          "r1",
		UserID:      "user_001",
		Priority:    model.PriorityMedium,
		TriggerTime: wednesdayEvening.Add(30 * time.Minute),
	})
	require.NotNil(t, timing)
	assert.False(t, timing.Fallback)
	assert.False(t, timing.OptimizedTime.Before(wednesdayEvening))

	adaptation, err := client.AdaptReminderStrategy(ctx, "user_001", &model.ReminderFeedback{
		FeedbackType: model.FeedbackFrequency,
		Rating:       2,
		Comment:      "too many reminders at once",
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, adaptation)

	strat, err := client.GetUserStrategy(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 2, strat.BatchingPreferences.MaxBatchSize)

	history, err := client.GetAdaptationHistory(ctx, "user_001")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	analysis, err := client.AnalyzeUserBehaviorPatterns(ctx, "user_001")
	require.NoError(t, err)
	assert.NotNil(t, analysis)
}

func TestClient_ContextOperations(t *testing.T) {
	rec := &recorder{}
	client := newClient(t, testConfig(), core.WithSink(rec))
	ctx := context.Background()

	_, ok := client.GetCurrentContext("user_001")
	assert.False(t, ok)

	uctx, err := client.AnalyzeUserContext(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, "user_001", uctx.UserID)
	assert.Equal(t, 20, uctx.TimeOfDay.Hour)

	cached, ok := client.GetCurrentContext("user_001")
	require.True(t, ok)
	assert.Equal(t, uctx.LastUpdated, cached.LastUpdated)

	dnd := model.AvailabilityDoNotDisturb
	updated, err := client.UpdateContextModel("user_001", model.ContextUpdate{Availability: &dnd})
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityDoNotDisturb, updated.Availability)
	assert.Equal(t, model.InterruptibilityNone, updated.Interruptibility)
	assert.Contains(t, rec.Names(), events.ContextChanged)

	reminder := &model.Reminder{ID: "r1", UserID: "user_001", Priority: model.PriorityLow, TriggerTime: wednesdayEvening}
	decision := client.ShouldDeferReminder(ctx, reminder, updated)
	assert.True(t, decision.ShouldDefer)
	assert.True(t, client.PredictOptimalReminderTime(ctx, reminder, updated).After(wednesdayEvening))

	batches := client.BatchReminders([]*model.Reminder{reminder}, updated)
	assert.Len(t, batches, 1)
	assert.Len(t, client.OptimizeReminderBatching(ctx, []*model.Reminder{reminder}, "user_001"), 1)
}

func TestClient_Metrics(t *testing.T) {
	client := newClient(t, testConfig())
	_, err := client.LearnFromContext(context.Background(), "user_001", eveningAtHome(), model.LearningOutcome{Kind: model.OutcomePositive, Confidence: 1})
	require.NoError(t, err)

	require.NotNil(t, client.Gatherer())
	families, err := client.Gatherer().Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "remindsense_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "event" {
					counts[l.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 1.0, counts[events.BehaviorLearned])
	assert.Equal(t, 1.0, counts[events.ContextLearned])
}

func TestClient_MetricsOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := newClient(t, testConfig(), core.WithRegisterer(reg))
	assert.Equal(t, prometheus.Gatherer(reg), client.Gatherer())

	cfg := testConfig()
	cfg.Metrics.Enabled = false
	assert.Nil(t, newClient(t, cfg).Gatherer())
}

func TestClient_SQLitePersistence(t *testing.T) {
	cfg := testConfig()
	cfg.Store = core.StoreConfig{
		Provider: core.StoreSQLite,
		SQLite:   &core.SQLiteConfig{DBPath: filepath.Join(t.TempDir(), "state.db")},
	}
	ctx := context.Background()

	first, err := core.NewClient(cfg, core.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	res, err := first.LearnFromContext(ctx, "user_001", eveningAtHome(), model.LearningOutcome{Kind: model.OutcomePositive, Confidence: 0.5})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newClient(t, cfg)
	patterns, err := second.GetPatterns(ctx, "user_001")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, res.Pattern.ID, patterns[0].ID)
	assert.InDelta(t, res.Pattern.Confidence, patterns[0].Confidence, 1e-9)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	cfg := testConfig()
	cfg.Decay.Enabled = true
	client, err := core.NewClient(cfg, core.WithLogger(zap.NewNop()))
	require.NoError(t, err)

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}

func TestNewClient_LLMProviders(t *testing.T) {
	for _, provider := range []string{"anthropic", "openai", "qwen"} {
		t.Run(provider, func(t *testing.T) {
			cfg := testConfig()
			cfg.LLM = &core.LLMConfig{Provider: provider, APIKey: "test-key"}
			client := newClient(t, cfg)
			assert.NotNil(t, client.TimingStrategy())
		})
	}
}
