package model

import "time"

// History bounds kept per user.
const (
	MaxAdaptationHistory = 50
	MaxLearningSessions  = 1000
	MaxContextPatterns   = 50
)

// UserState is everything the engine remembers about one user. It is the
// unit guarded by the per-user lock of a storage.Repository.
type UserState struct {
	UserID string `json:"user_id"`

	// Patterns is the bounded set of learned behavior patterns.
	Patterns []*BehaviorPattern `json:"patterns,omitempty"`

	// Adaptation is the pattern-level adaptation strategy (nil until the
	// first learning outcome).
	Adaptation *AdaptationStrategy `json:"adaptation,omitempty"`

	// LearningSessions is the bounded log of learning outcomes.
	LearningSessions []LearningOutcome `json:"learning_sessions,omitempty"`

	// ContextPatterns is the short list of recently learned contexts.
	ContextPatterns []ContextPattern `json:"context_patterns,omitempty"`

	// Strategy is the reminder strategy (nil until first use).
	Strategy *ReminderStrategy `json:"strategy,omitempty"`

	// Adaptations is the bounded log of strategy adaptations.
	Adaptations []StrategyAdaptation `json:"adaptations,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserState returns an empty state for userID.
func NewUserState(userID string) *UserState {
	return &UserState{UserID: userID}
}

// Clone returns a deep copy of s.
func (s *UserState) Clone() *UserState {
	if s == nil {
		return nil
	}
	out := &UserState{
		UserID:     s.UserID,
		Patterns:   ClonePatterns(s.Patterns),
		Adaptation: s.Adaptation.Clone(),
		Strategy:   s.Strategy.Clone(),
		UpdatedAt:  s.UpdatedAt,
	}
	if s.LearningSessions != nil {
		out.LearningSessions = make([]LearningOutcome, len(s.LearningSessions))
		for i, o := range s.LearningSessions {
			o.Metadata = CloneMetadata(o.Metadata)
			out.LearningSessions[i] = o
		}
	}
	if s.ContextPatterns != nil {
		out.ContextPatterns = make([]ContextPattern, len(s.ContextPatterns))
		for i, cp := range s.ContextPatterns {
			cp.Context = cp.Context.Clone()
			out.ContextPatterns[i] = cp
		}
	}
	if s.Adaptations != nil {
		out.Adaptations = make([]StrategyAdaptation, len(s.Adaptations))
		for i, a := range s.Adaptations {
			if a.Changes != nil {
				changes := make(map[string]string, len(a.Changes))
				for k, v := range a.Changes {
					changes[k] = v
				}
				a.Changes = changes
			}
			out.Adaptations[i] = a
		}
	}
	return out
}

// AppendLearningSession appends o, dropping the oldest entries beyond
// MaxLearningSessions.
func (s *UserState) AppendLearningSession(o LearningOutcome) {
	s.LearningSessions = appendBounded(s.LearningSessions, o, MaxLearningSessions)
}

// AppendContextPattern appends cp, dropping the oldest entries beyond
// MaxContextPatterns.
func (s *UserState) AppendContextPattern(cp ContextPattern) {
	s.ContextPatterns = appendBounded(s.ContextPatterns, cp, MaxContextPatterns)
}

// AppendAdaptation appends a, dropping the oldest entries beyond
// MaxAdaptationHistory.
func (s *UserState) AppendAdaptation(a StrategyAdaptation) {
	s.Adaptations = appendBounded(s.Adaptations, a, MaxAdaptationHistory)
}

func appendBounded[T any](list []T, item T, limit int) []T {
	list = append(list, item)
	if over := len(list) - limit; over > 0 {
		trimmed := make([]T, limit)
		copy(trimmed, list[over:])
		return trimmed
	}
	return list
}
