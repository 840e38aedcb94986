package intelligence

import (
	"context"
	"fmt"
	"time"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// GetPatterns returns a copy of the user's patterns, highest confidence
// first.
func (s *PatternStore) GetPatterns(ctx context.Context, userID string) ([]*model.BehaviorPattern, error) {
	st, err := s.repo.View(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetPatterns: %w", err)
	}
	return st.Patterns, nil
}

// GetAdaptationStrategy returns the user's pattern-level adaptation
// strategy. Users without history get the default strategy.
func (s *PatternStore) GetAdaptationStrategy(ctx context.Context, userID string) (*model.AdaptationStrategy, error) {
	st, err := s.repo.View(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetAdaptationStrategy: %w", err)
	}
	if st.Adaptation == nil {
		return defaultAdaptation(), nil
	}
	return st.Adaptation, nil
}

// LearningStats summarizes what the store knows about a user.
type LearningStats struct {
	TotalPatterns     int                       `json:"total_patterns"`
	AverageConfidence float64                   `json:"average_confidence"`
	PatternsByType    map[model.PatternType]int `json:"patterns_by_type"`
	TotalSessions     int                       `json:"total_sessions"`
	PositiveSessions  int                       `json:"positive_sessions"`
	NegativeSessions  int                       `json:"negative_sessions"`
	LastLearnedAt     time.Time                 `json:"last_learned_at"`
}

// GetLearningStats computes learning statistics for a user.
func (s *PatternStore) GetLearningStats(ctx context.Context, userID string) (*LearningStats, error) {
	st, err := s.repo.View(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetLearningStats: %w", err)
	}

	stats := &LearningStats{
		TotalPatterns:  len(st.Patterns),
		PatternsByType: make(map[model.PatternType]int),
		TotalSessions:  len(st.LearningSessions),
	}
	var sum float64
	for _, p := range st.Patterns {
		sum += p.Confidence
		stats.PatternsByType[p.Type]++
	}
	if len(st.Patterns) > 0 {
		stats.AverageConfidence = sum / float64(len(st.Patterns))
	}
	for _, o := range st.LearningSessions {
		switch o.Kind {
		case model.OutcomePositive:
			stats.PositiveSessions++
		case model.OutcomeNegative:
			stats.NegativeSessions++
		}
		if o.ObservedAt.After(stats.LastLearnedAt) {
			stats.LastLearnedAt = o.ObservedAt
		}
	}
	return stats, nil
}

// DecayResult reports the effect of a decay pass.
type DecayResult struct {
	Decayed int
	Pruned  int
}

// Decay applies recency decay to every pattern of a user.
//
// Each confidence is multiplied by e^(-Δdays/horizon), where Δ is measured
// from the later of the last observation and the previous decay, so
// repeated passes never decay the same interval twice. Patterns that fall
// below the prune threshold are removed.
func (s *PatternStore) Decay(ctx context.Context, userID string) (*DecayResult, error) {
	now := s.now()
	var result DecayResult
	err := s.repo.Update(ctx, userID, func(st *model.UserState) error {
		result = DecayResult{}
		for _, p := range st.Patterns {
			since := p.LastObserved
			if p.DecayedAt.After(since) {
				since = p.DecayedAt
			}
			if !since.Before(now) {
				continue
			}
			p.Confidence = s.clampConfidence(s.decay.Apply(p.Confidence, since, now))
			p.DecayedAt = now
			result.Decayed++
		}
		result.Pruned = s.prune(st)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Decay: %w", err)
	}
	return &result, nil
}
