package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/contextual"
	"github.com/oceanbase/remindsense-go/pkg/contextual/sources"
	"github.com/oceanbase/remindsense-go/pkg/events"
	"github.com/oceanbase/remindsense-go/pkg/feedback"
	"github.com/oceanbase/remindsense-go/pkg/intelligence"
	"github.com/oceanbase/remindsense-go/pkg/llm"
	"github.com/oceanbase/remindsense-go/pkg/llm/anthropic"
	openaiLLM "github.com/oceanbase/remindsense-go/pkg/llm/openai"
	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
	"github.com/oceanbase/remindsense-go/pkg/storage/memory"
	"github.com/oceanbase/remindsense-go/pkg/storage/oceanbase"
	postgresStore "github.com/oceanbase/remindsense-go/pkg/storage/postgres"
	sqliteStore "github.com/oceanbase/remindsense-go/pkg/storage/sqlite"
	"github.com/oceanbase/remindsense-go/pkg/strategy"
)

// llmBaseURLs holds the endpoint of each supported LLM provider. An empty
// URL means the client's default. Every provider except anthropic speaks
// the OpenAI chat API.
var llmBaseURLs = map[string]string{
	"anthropic": anthropic.DefaultBaseURL,
	"openai":    "",
	"deepseek":  "https://api.deepseek.com/v1",
	"qwen":      "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"ollama":    "http://localhost:11434/v1",
}

var llmDefaultModels = map[string]string{
	"anthropic": anthropic.DefaultModel,
	"openai":    openaiLLM.DefaultModel,
	"deepseek":  "deepseek-chat",
	"qwen":      "qwen-plus",
	"ollama":    "llama3.1",
}

// Client is the RemindSense engine.
//
// It wires together:
//   - the per-user state repository (optionally backed by a database)
//   - the behavior pattern store
//   - the context snapshot provider
//   - the timing strategy
//   - event delivery to logs, metrics and caller sinks
//   - the periodic pattern decay sweep
//
// The client is safe for concurrent use from multiple goroutines.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	timing := client.OptimizeReminderTiming(ctx, &model.Reminder{
//	    ID:          "r1",
//	    UserID:      "user_001",
//	    Priority:    model.PriorityMedium,
//	    TriggerTime: time.Now(),
//	})
type Client struct {
	config *Config

	repo     *memory.Repository
	patterns *intelligence.PatternStore
	provider *contextual.Provider
	strategy *strategy.TimingStrategy
	sweeper  *intelligence.Sweeper

	llm      llm.Provider
	gatherer prometheus.Gatherer

	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewClient creates a new RemindSense client.
//
// Parameters:
//   - cfg: Configuration (nil uses DefaultConfig)
//   - opts: Optional logger, clock, sinks, sources, metrics registerer,
//     state store and feedback interpreter
//
// Returns a new Client instance, or an error wrapping ErrInvalidConfig or
// ErrStorageOperation if initialization fails.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = NewLogger(cfg.Logging); err != nil {
			return nil, err
		}
	}
	now := o.now
	if now == nil {
		now = time.Now
	}

	store := o.stateStore
	if store == nil {
		var err error
		if store, err = initStateStore(cfg.Store); err != nil {
			return nil, NewEngineError("NewClient", fmt.Errorf("%w: %w", ErrStorageOperation, err))
		}
	}

	c := &Client{config: cfg, logger: logger}

	repoOpts := []memory.Option{memory.WithLogger(logger.Named("repository")), memory.WithClock(now)}
	if store != nil {
		repoOpts = append(repoOpts, memory.WithStateStore(store))
	}
	c.repo = memory.New(repoOpts...)

	sinks := []events.Sink{events.NewLogSink(logger)}
	if cfg.Metrics.Enabled {
		reg := o.registerer
		if reg == nil {
			r := prometheus.NewRegistry()
			reg, c.gatherer = r, r
		} else if g, ok := reg.(prometheus.Gatherer); ok {
			c.gatherer = g
		}
		ms, err := events.NewMetricsSink(reg)
		if err != nil {
			c.repo.Close()
			return nil, NewEngineError("NewClient", err)
		}
		sinks = append(sinks, ms)
	}
	sink := events.Multi(append(sinks, o.sinks...)...)

	patterns, err := intelligence.NewPatternStore(c.repo, cfg.Learning,
		intelligence.WithLogger(logger.Named("patterns")),
		intelligence.WithSink(sink),
		intelligence.WithClock(now))
	if err != nil {
		c.repo.Close()
		return nil, NewEngineError("NewClient", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	c.patterns = patterns

	loc, _ := cfg.Context.Location()
	providerOpts := []contextual.Option{
		contextual.WithTimeSource(sources.NewTimeSource(loc)),
		contextual.WithTTL(cfg.Context.CacheTTL()),
		contextual.WithLogger(logger.Named("context")),
		contextual.WithSink(sink),
		contextual.WithClock(now),
	}
	if len(o.sources) > 0 {
		providerOpts = append(providerOpts, contextual.WithSources(o.sources...))
	}
	if c.provider, err = contextual.NewProvider(c.repo, patterns, providerOpts...); err != nil {
		c.repo.Close()
		return nil, NewEngineError("NewClient", err)
	}

	interpreter := o.interpreter
	if interpreter == nil && cfg.LLM != nil {
		if c.llm, err = initLLM(cfg.LLM); err != nil {
			c.repo.Close()
			return nil, NewEngineError("NewClient", err)
		}
		interpreter = feedback.NewLLMInterpreter(c.llm, logger.Named("feedback"))
	}
	strategyOpts := []strategy.Option{
		strategy.WithLogger(logger.Named("strategy")),
		strategy.WithSink(sink),
		strategy.WithClock(now),
	}
	if interpreter != nil {
		strategyOpts = append(strategyOpts, strategy.WithInterpreter(interpreter))
	}
	if c.strategy, err = strategy.New(c.repo, c.provider, strategyOpts...); err != nil {
		c.closeResources()
		return nil, NewEngineError("NewClient", err)
	}

	if cfg.Decay.Enabled {
		if c.sweeper, err = intelligence.NewSweeper(patterns, c.repo.Users, cfg.Decay.Schedule, logger.Named("sweeper")); err != nil {
			c.closeResources()
			return nil, NewEngineError("NewClient", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
		}
		c.sweeper.Start()
	}

	logger.Info("remindsense client started",
		zap.String("store", storeName(cfg.Store.Provider, o.stateStore != nil)),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Bool("decay_sweep", cfg.Decay.Enabled),
		zap.Bool("llm_feedback", c.llm != nil))
	return c, nil
}

// initStateStore opens the persistence backend named by cfg. The memory
// provider has none.
func initStateStore(cfg StoreConfig) (storage.StateStore, error) {
	switch cfg.Provider {
	case "", StoreMemory:
		return nil, nil
	case StoreSQLite:
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:    cfg.SQLite.DBPath,
			TableName: cfg.SQLite.TableName,
		})
	case StorePostgres:
		return postgresStore.NewClient(&postgresStore.Config{
			Host:      cfg.Postgres.Host,
			Port:      cfg.Postgres.Port,
			User:      cfg.Postgres.User,
			Password:  cfg.Postgres.Password,
			DBName:    cfg.Postgres.DBName,
			TableName: cfg.Postgres.TableName,
			SSLMode:   cfg.Postgres.SSLMode,
		})
	case StoreOceanBase:
		return oceanbase.NewClient(&oceanbase.Config{
			Host:      cfg.OceanBase.Host,
			Port:      cfg.OceanBase.Port,
			User:      cfg.OceanBase.User,
			Password:  cfg.OceanBase.Password,
			DBName:    cfg.OceanBase.DBName,
			TableName: cfg.OceanBase.TableName,
		})
	default:
		return nil, ErrInvalidConfig
	}
}

// initLLM initializes the LLM provider.
func initLLM(cfg *LLMConfig) (llm.Provider, error) {
	provider := strings.ToLower(cfg.Provider)
	baseURL, ok := llmBaseURLs[provider]
	if !ok {
		return nil, ErrInvalidConfig
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = llmDefaultModels[provider]
	}
	if provider == "anthropic" {
		return anthropic.NewClient(&anthropic.Config{
			APIKey:  cfg.APIKey,
			Model:   modelName,
			BaseURL: baseURL,
		})
	}
	return openaiLLM.NewClient(&openaiLLM.Config{
		APIKey:  cfg.APIKey,
		Model:   modelName,
		BaseURL: baseURL,
	})
}

func storeName(provider string, injected bool) string {
	switch {
	case injected:
		return "custom"
	case provider == "":
		return StoreMemory
	default:
		return provider
	}
}

// wrapErr tags err with the operation and classifies it as cancellation,
// caller error or storage failure.
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewEngineError(op, fmt.Errorf("%w: %w", ErrCancelled, err))
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotFound):
		return NewEngineError(op, err)
	default:
		return NewEngineError(op, fmt.Errorf("%w: %w", ErrStorageOperation, err))
	}
}

// PatternStore returns the behavior pattern store.
func (c *Client) PatternStore() *intelligence.PatternStore { return c.patterns }

// ContextProvider returns the context snapshot provider.
func (c *Client) ContextProvider() *contextual.Provider { return c.provider }

// TimingStrategy returns the timing strategy.
func (c *Client) TimingStrategy() *strategy.TimingStrategy { return c.strategy }

// Gatherer returns the metrics registry, or nil when metrics are disabled
// or registered with a Registerer that cannot gather.
func (c *Client) Gatherer() prometheus.Gatherer { return c.gatherer }

// LearnFromContext records a delivery outcome observed in uctx: the
// matching pattern is reinforced or weakened (or created) and the context
// is kept as a context pattern.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: The user the outcome belongs to
//   - uctx: The context snapshot the outcome was observed in
//   - outcome: The observed outcome
//
// Returns the learning result, or an error if the input is invalid or the
// state cannot be stored.
func (c *Client) LearnFromContext(ctx context.Context, userID string, uctx *model.UserContext, outcome model.LearningOutcome) (*intelligence.LearningResult, error) {
	res, err := c.provider.LearnFromContext(ctx, userID, uctx, outcome)
	if err != nil {
		return nil, wrapErr("LearnFromContext", err)
	}
	return res, nil
}

// LearnFromUserFeedback learns from explicit feedback about the user's
// context and applies the user's corrections to the snapshot.
func (c *Client) LearnFromUserFeedback(ctx context.Context, userID string, fb *model.ContextFeedback) (*intelligence.LearningResult, error) {
	res, err := c.provider.LearnFromUserFeedback(ctx, userID, fb)
	if err != nil {
		return nil, wrapErr("LearnFromUserFeedback", err)
	}
	return res, nil
}

// PredictOptimalTiming predicts the best delivery time from learned
// patterns alone. It never fails; see intelligence.TimingPrediction.
func (c *Client) PredictOptimalTiming(ctx context.Context, userID string, reminder *model.Reminder, uctx *model.UserContext) *intelligence.TimingPrediction {
	return c.patterns.PredictOptimalTiming(ctx, userID, reminder, uctx)
}

// GetPatterns returns the user's behavior patterns, highest confidence
// first.
func (c *Client) GetPatterns(ctx context.Context, userID string) ([]*model.BehaviorPattern, error) {
	p, err := c.patterns.GetPatterns(ctx, userID)
	return p, wrapErr("GetPatterns", err)
}

// GetAdaptationStrategy returns the user's pattern-level adaptation
// strategy.
func (c *Client) GetAdaptationStrategy(ctx context.Context, userID string) (*model.AdaptationStrategy, error) {
	s, err := c.patterns.GetAdaptationStrategy(ctx, userID)
	return s, wrapErr("GetAdaptationStrategy", err)
}

// GetLearningStats summarizes what has been learned about the user.
func (c *Client) GetLearningStats(ctx context.Context, userID string) (*intelligence.LearningStats, error) {
	s, err := c.patterns.GetLearningStats(ctx, userID)
	return s, wrapErr("GetLearningStats", err)
}

// DecayPatterns applies recency decay to the user's patterns now, outside
// the sweep schedule.
func (c *Client) DecayPatterns(ctx context.Context, userID string) (*intelligence.DecayResult, error) {
	r, err := c.patterns.Decay(ctx, userID)
	return r, wrapErr("DecayPatterns", err)
}

// AnalyzeUserContext returns the user's current context snapshot,
// refreshing it when the cached one is stale.
func (c *Client) AnalyzeUserContext(ctx context.Context, userID string) (*model.UserContext, error) {
	uctx, err := c.provider.AnalyzeUserContext(ctx, userID)
	return uctx, wrapErr("AnalyzeUserContext", err)
}

// GetCurrentContext returns the cached context snapshot without refreshing.
func (c *Client) GetCurrentContext(userID string) (*model.UserContext, bool) {
	return c.provider.GetCurrentContext(userID)
}

// UpdateContextModel applies a partial context update.
func (c *Client) UpdateContextModel(userID string, update model.ContextUpdate) (*model.UserContext, error) {
	uctx, err := c.provider.UpdateContextModel(userID, update)
	return uctx, wrapErr("UpdateContextModel", err)
}

// ShouldDeferReminder decides whether reminder should wait for a better
// moment given uctx.
func (c *Client) ShouldDeferReminder(ctx context.Context, reminder *model.Reminder, uctx *model.UserContext) *model.DeferralDecision {
	return c.provider.ShouldDeferReminder(ctx, reminder, uctx)
}

// PredictOptimalReminderTime returns the context-aware delivery time for
// reminder.
func (c *Client) PredictOptimalReminderTime(ctx context.Context, reminder *model.Reminder, uctx *model.UserContext) time.Time {
	return c.provider.PredictOptimalReminderTime(ctx, reminder, uctx)
}

// BatchReminders groups reminders by priority and trigger proximity.
func (c *Client) BatchReminders(reminders []*model.Reminder, uctx *model.UserContext) [][]*model.Reminder {
	return c.provider.BatchReminders(reminders, uctx)
}

// OptimizeReminderTiming computes the delivery time for reminder. It never
// fails; on error the original time is returned with low confidence.
func (c *Client) OptimizeReminderTiming(ctx context.Context, reminder *model.Reminder) *strategy.OptimizedTiming {
	return c.strategy.OptimizeReminderTiming(ctx, reminder)
}

// AdaptReminderStrategy adapts the user's strategy from feedback about a
// delivered reminder.
func (c *Client) AdaptReminderStrategy(ctx context.Context, userID string, fb *model.ReminderFeedback, reminder *model.Reminder) (*model.StrategyAdaptation, error) {
	a, err := c.strategy.AdaptReminderStrategy(ctx, userID, fb, reminder)
	return a, wrapErr("AdaptReminderStrategy", err)
}

// OptimizeReminderBatching groups reminders for delivery within the user's
// batch size.
func (c *Client) OptimizeReminderBatching(ctx context.Context, reminders []*model.Reminder, userID string) [][]*model.Reminder {
	return c.strategy.OptimizeReminderBatching(ctx, reminders, userID)
}

// AnalyzeUserBehaviorPatterns reports reminder effectiveness and
// recommendations for the user.
func (c *Client) AnalyzeUserBehaviorPatterns(ctx context.Context, userID string) (*strategy.BehaviorAnalysis, error) {
	a, err := c.strategy.AnalyzeUserBehaviorPatterns(ctx, userID)
	return a, wrapErr("AnalyzeUserBehaviorPatterns", err)
}

// GetUserStrategy returns the user's reminder strategy.
func (c *Client) GetUserStrategy(ctx context.Context, userID string) (*model.ReminderStrategy, error) {
	s, err := c.strategy.GetUserStrategy(ctx, userID)
	return s, wrapErr("GetUserStrategy", err)
}

// GetAdaptationHistory returns the user's strategy adaptations, oldest
// first.
func (c *Client) GetAdaptationHistory(ctx context.Context, userID string) ([]model.StrategyAdaptation, error) {
	h, err := c.strategy.GetAdaptationHistory(ctx, userID)
	return h, wrapErr("GetAdaptationHistory", err)
}

// Close stops the decay sweep and releases the state store and LLM client.
// It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.sweeper != nil {
			c.sweeper.Stop()
		}
		c.closeErr = c.closeResources()
		_ = c.logger.Sync()
	})
	return c.closeErr
}

func (c *Client) closeResources() error {
	var errs []error
	if c.llm != nil {
		if err := c.llm.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrStorageOperation, err))
	}
	return NewEngineError("Close", errors.Join(errs...))
}
