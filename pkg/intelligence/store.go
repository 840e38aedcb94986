package intelligence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/events"
	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
)

// PatternStore learns, decays and queries per-user behavior patterns.
//
// All mutations go through the injected storage.Repository, so every update
// for a user is serialized by that user's lock and applied all-or-nothing.
// Different users never contend.
//
// Example usage:
//
//	store, err := intelligence.NewPatternStore(repo, intelligence.DefaultConfig(),
//	    intelligence.WithSink(sink))
//	result, err := store.LearnFromContext(ctx, "user_001", snapshot, model.LearningOutcome{
//	    Kind:       model.OutcomePositive,
//	    Confidence: 0.9,
//	})
type PatternStore struct {
	repo   storage.Repository
	config *Config
	decay  *RecencyDecay

	// node generates pattern and session IDs.
	node *snowflake.Node

	sink   events.Sink
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a PatternStore.
type Option func(*PatternStore)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *PatternStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSink sets the event sink.
func WithSink(sink events.Sink) Option {
	return func(s *PatternStore) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithClock overrides the clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *PatternStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDNode shares a snowflake node with other components.
func WithIDNode(node *snowflake.Node) Option {
	return func(s *PatternStore) {
		if node != nil {
			s.node = node
		}
	}
}

// NewPatternStore creates a pattern store over repo.
//
// Parameters:
//   - repo: Per-user state repository
//   - cfg: Tunable constants (nil uses DefaultConfig)
//   - opts: Optional logger, sink, clock and ID node
//
// Returns an error if the configuration is invalid or the ID generator
// cannot be created.
func NewPatternStore(repo storage.Repository, cfg *Config, opts ...Option) (*PatternStore, error) {
	if repo == nil {
		return nil, fmt.Errorf("NewPatternStore: repository is required: %w", model.ErrInvalidInput)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewPatternStore: %w", err)
	}

	s := &PatternStore{
		repo:   repo,
		config: cfg,
		decay:  NewRecencyDecay(cfg.RecencyHorizonDays),
		sink:   events.Nop,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.node == nil {
		node, err := snowflake.NewNode(1)
		if err != nil {
			return nil, fmt.Errorf("NewPatternStore: failed to create snowflake node: %w", err)
		}
		s.node = node
	}
	return s, nil
}

// Config returns the store configuration.
func (s *PatternStore) Config() *Config {
	return s.config
}

// LearningResult describes the effect of one learning outcome.
type LearningResult struct {
	// Outcome is the recorded learning session.
	Outcome model.LearningOutcome

	// Pattern is a copy of the updated or created pattern, or nil when the
	// outcome neither matched nor created one.
	Pattern *model.BehaviorPattern

	// Pruned is the number of patterns removed by pruning and capping.
	Pruned int
}

// LearnFromContext records an outcome observed in the given context.
//
// The outcome updates the best-matching existing pattern (at least
// MinMatchingFeatures of hour window, weekday, activity and location must
// agree) by ±outcome.Confidence × LearningRate. A POSITIVE outcome with no
// match creates a new pattern. Afterwards patterns below PruneThreshold are
// removed, the set is capped at MaxPatterns by confidence, and the
// pattern-level adaptation strategy is adjusted.
//
// Parameters:
//   - ctx: Context for cancellation; a cancelled call leaves no trace
//   - userID: The user the outcome belongs to
//   - uctx: The context snapshot the outcome was observed in
//   - outcome: Kind, Confidence, FromFeedback and extra Metadata are read
//
// Returns the learning result, or an error wrapping model.ErrInvalidInput
// for malformed input.
func (s *PatternStore) LearnFromContext(
	ctx context.Context,
	userID string,
	uctx *model.UserContext,
	outcome model.LearningOutcome,
) (*LearningResult, error) {
	if userID == "" || uctx == nil {
		return nil, fmt.Errorf("LearnFromContext: user ID and context are required: %w", model.ErrInvalidInput)
	}
	switch outcome.Kind {
	case model.OutcomePositive, model.OutcomeNegative, model.OutcomeNeutral:
	default:
		return nil, fmt.Errorf("LearnFromContext: unknown outcome kind %q: %w", outcome.Kind, model.ErrInvalidInput)
	}

	confidence := clamp(outcome.Confidence, 0, 1)
	now := s.now()
	features := extractFeatures(uctx)
	for k, v := range outcome.Metadata {
		features[k] = v
	}

	var result LearningResult
	err := s.repo.Update(ctx, userID, func(st *model.UserState) error {
		result = LearningResult{}
		session := model.LearningOutcome{
			ID:           s.node.Generate().Int64(),
			Kind:         outcome.Kind,
			Confidence:   confidence,
			FromFeedback: outcome.FromFeedback,
			Metadata:     model.CloneMetadata(features),
			ObservedAt:   now,
		}

		if p := s.bestMatch(st.Patterns, features); p != nil {
			var delta float64
			switch outcome.Kind {
			case model.OutcomePositive:
				delta = confidence * s.config.LearningRate
			case model.OutcomeNegative:
				delta = -confidence * s.config.LearningRate
			}
			before := p.Confidence
			p.Confidence = s.clampConfidence(p.Confidence + delta)
			p.Frequency++
			p.LastObserved = now
			if p.Metadata == nil {
				p.Metadata = make(map[string]interface{}, len(features))
			}
			for k, v := range features {
				p.Metadata[k] = v
			}
			session.PatternID = p.ID
			session.ConfidenceDelta = p.Confidence - before
			result.Pattern = p.Clone()
		} else if outcome.Kind == model.OutcomePositive {
			p := &model.BehaviorPattern{
				ID:           s.node.Generate().Int64(),
				Type:         classifyPattern(features, outcome.FromFeedback),
				Frequency:    1,
				Confidence:   s.clampConfidence(s.config.InitialConfidence + s.config.InitialConfidenceBoost*confidence),
				LastObserved: now,
				Metadata:     model.CloneMetadata(features),
			}
			st.Patterns = append(st.Patterns, p)
			session.PatternID = p.ID
			session.ConfidenceDelta = p.Confidence
			session.Created = true
			result.Pattern = p.Clone()
		}

		result.Pruned = s.prune(st)
		adaptReminderStrategies(st, features, outcome.Kind, now)
		st.AppendLearningSession(session)
		result.Outcome = session
		return nil
	})
	if err != nil {
		s.logger.Warn("behavior learning failed",
			zap.String("user_id", userID),
			zap.Error(err))
		s.emit(events.BehaviorLearningError, userID, map[string]interface{}{
			"error":   err.Error(),
			"outcome": string(outcome.Kind),
		})
		return nil, fmt.Errorf("LearnFromContext: %w", err)
	}

	payload := map[string]interface{}{
		"outcome":    string(result.Outcome.Kind),
		"session_id": result.Outcome.ID,
		"created":    result.Outcome.Created,
		"pruned":     result.Pruned,
	}
	if result.Pattern != nil {
		payload["pattern_id"] = result.Pattern.ID
		payload["pattern_type"] = string(result.Pattern.Type)
		payload["confidence"] = result.Pattern.Confidence
	}
	s.emit(events.BehaviorLearned, userID, payload)

	return &result, nil
}

// bestMatch returns the pattern sharing the most features with an
// observation, preferring higher confidence on ties. It returns nil when no
// pattern reaches MinMatchingFeatures.
func (s *PatternStore) bestMatch(patterns []*model.BehaviorPattern, features map[string]interface{}) *model.BehaviorPattern {
	var best *model.BehaviorPattern
	bestScore := 0
	for _, p := range patterns {
		score := matchScore(p.Metadata, features, s.config.MatchWindowHours)
		if score < s.config.MinMatchingFeatures {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && p.Confidence > best.Confidence) {
			best, bestScore = p, score
		}
	}
	return best
}

// prune drops weak patterns and enforces the per-user cap, keeping the
// highest-confidence patterns. It returns how many were removed.
func (s *PatternStore) prune(st *model.UserState) int {
	before := len(st.Patterns)
	kept := st.Patterns[:0:0]
	for _, p := range st.Patterns {
		if p.Confidence >= s.config.PruneThreshold {
			kept = append(kept, p)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	if len(kept) > s.config.MaxPatterns {
		kept = kept[:s.config.MaxPatterns]
	}
	st.Patterns = kept
	return before - len(kept)
}

func (s *PatternStore) clampConfidence(v float64) float64 {
	return clamp(v, s.config.MinConfidence, s.config.MaxConfidence)
}

func (s *PatternStore) emit(name, userID string, payload map[string]interface{}) {
	s.sink.Emit(events.Event{
		Name:      name,
		UserID:    userID,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
