package model

import "time"

// TimingPreferences holds the hours a user prefers or avoids.
type TimingPreferences struct {
	PreferredHours []int `json:"preferred_hours"`
	AvoidHours     []int `json:"avoid_hours"`

	// WeekendAdjustment is added to optimized times on weekends, in minutes.
	WeekendAdjustment int `json:"weekend_adjustment"`
}

// PriorityHandling controls how priority bends the timing pipeline.
type PriorityHandling struct {
	AllowHighPriorityInterruption bool `json:"allow_high_priority_interruption"`
	HighPriorityAdvanceMinutes    int  `json:"high_priority_advance_minutes"`
	LowPriorityDelayMinutes       int  `json:"low_priority_delay_minutes"`
}

// BatchingPreferences controls reminder batching.
type BatchingPreferences struct {
	MaxBatchSize     int                `json:"max_batch_size"`
	PrioritizeByType bool               `json:"prioritize_by_type"`
	TypePreferences  map[string]float64 `json:"type_preferences,omitempty"`
}

// DeliveryPreferences records how well each delivery method is received.
type DeliveryPreferences struct {
	MethodPenalties  map[DeliveryMethod]float64 `json:"method_penalties,omitempty"`
	PreferredMethods []DeliveryMethod           `json:"preferred_methods,omitempty"`
}

// ReminderStrategy is the per-user tunable timing, batching and delivery
// policy. One exists per user, created lazily with defaults and mutated in
// place by feedback adaptation.
type ReminderStrategy struct {
	UserID              string              `json:"user_id"`
	TimingPreferences   TimingPreferences   `json:"timing_preferences"`
	PriorityHandling    PriorityHandling    `json:"priority_handling"`
	ContextAdjustments  map[Activity]int    `json:"context_adjustments,omitempty"`
	BatchingPreferences BatchingPreferences `json:"batching_preferences"`
	DeliveryPreferences DeliveryPreferences `json:"delivery_preferences"`
	Confidence          float64             `json:"confidence"`
	CreatedAt           time.Time           `json:"created_at"`
	LastUpdated         time.Time           `json:"last_updated"`
}

// Clone returns a deep copy of s.
func (s *ReminderStrategy) Clone() *ReminderStrategy {
	if s == nil {
		return nil
	}
	out := *s
	out.TimingPreferences.PreferredHours = append([]int(nil), s.TimingPreferences.PreferredHours...)
	out.TimingPreferences.AvoidHours = append([]int(nil), s.TimingPreferences.AvoidHours...)
	if s.ContextAdjustments != nil {
		out.ContextAdjustments = make(map[Activity]int, len(s.ContextAdjustments))
		for k, v := range s.ContextAdjustments {
			out.ContextAdjustments[k] = v
		}
	}
	if s.BatchingPreferences.TypePreferences != nil {
		out.BatchingPreferences.TypePreferences = make(map[string]float64, len(s.BatchingPreferences.TypePreferences))
		for k, v := range s.BatchingPreferences.TypePreferences {
			out.BatchingPreferences.TypePreferences[k] = v
		}
	}
	if s.DeliveryPreferences.MethodPenalties != nil {
		out.DeliveryPreferences.MethodPenalties = make(map[DeliveryMethod]float64, len(s.DeliveryPreferences.MethodPenalties))
		for k, v := range s.DeliveryPreferences.MethodPenalties {
			out.DeliveryPreferences.MethodPenalties[k] = v
		}
	}
	out.DeliveryPreferences.PreferredMethods = append([]DeliveryMethod(nil), s.DeliveryPreferences.PreferredMethods...)
	return &out
}

// DeferralDecision is the transient answer to "should this reminder wait?".
type DeferralDecision struct {
	ShouldDefer                bool             `json:"should_defer"`
	DeferUntil                 *time.Time       `json:"defer_until,omitempty"`
	Reason                     string           `json:"reason"`
	Confidence                 float64          `json:"confidence"`
	Score                      float64          `json:"score"`
	AlternativeDeliveryMethods []DeliveryMethod `json:"alternative_delivery_methods,omitempty"`
}

// StrategyAdaptation records one feedback event and the deltas it produced.
type StrategyAdaptation struct {
	ID           int64        `json:"id"`
	UserID       string       `json:"user_id"`
	ReminderID   string       `json:"reminder_id,omitempty"`
	ReminderType string       `json:"reminder_type,omitempty"`
	FeedbackType FeedbackType `json:"feedback_type"`
	Rating       int          `json:"rating"`
	WasHelpful   bool         `json:"was_helpful"`
	Strength     float64      `json:"strength"`

	// Changes maps a strategy field path to a human-readable delta,
	// e.g. "context_adjustments.WORKING" -> "-30".
	Changes map[string]string `json:"changes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
