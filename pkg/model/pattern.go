package model

import "time"

// Metadata keys used on behavior patterns and learning outcomes.
const (
	MetaHour             = "hour"
	MetaDayOfWeek        = "day_of_week"
	MetaIsWeekend        = "is_weekend"
	MetaActivity         = "activity"
	MetaLocation         = "location"
	MetaLocationType     = "location_type"
	MetaAvailability     = "availability"
	MetaInterruptibility = "interruptibility"
	MetaNearby           = "device_nearby"
	MetaLocationConf     = "location_confidence"
	MetaPriority         = "priority"
	MetaSource           = "source"
)

// BehaviorPattern is a learned association between a context feature set
// and a positive delivery outcome.
type BehaviorPattern struct {
	// ID is the snowflake identifier of the pattern.
	ID int64 `json:"id"`

	// Type classifies the pattern.
	Type PatternType `json:"type"`

	// Frequency is the number of observations that matched the pattern.
	Frequency int `json:"frequency"`

	// Confidence is always within [0.1, 1.0].
	Confidence float64 `json:"confidence"`

	// LastObserved is when a matching outcome was last seen.
	LastObserved time.Time `json:"last_observed"`

	// DecayedAt is when periodic decay was last applied (zero if never).
	DecayedAt time.Time `json:"decayed_at,omitempty"`

	// Metadata holds the feature values the pattern was learned from.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Clone returns a deep copy of p.
func (p *BehaviorPattern) Clone() *BehaviorPattern {
	if p == nil {
		return nil
	}
	out := *p
	out.Metadata = CloneMetadata(p.Metadata)
	return &out
}

// Hour returns the hour-of-day feature, if present.
func (p *BehaviorPattern) Hour() (int, bool) {
	return MetaInt(p.Metadata, MetaHour)
}

// Activity returns the activity feature, or "" if unset.
func (p *BehaviorPattern) Activity() Activity {
	return Activity(MetaString(p.Metadata, MetaActivity))
}

// ClonePatterns deep-copies a pattern slice.
func ClonePatterns(in []*BehaviorPattern) []*BehaviorPattern {
	if in == nil {
		return nil
	}
	out := make([]*BehaviorPattern, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// CloneMetadata copies a metadata bag one level deep.
func CloneMetadata(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MetaInt reads an integer feature. Values decoded from JSON arrive as
// float64 and are accepted.
func MetaInt(m map[string]interface{}, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case time.Weekday:
		return int(v), true
	}
	return 0, false
}

// MetaBool reads a boolean feature.
func MetaBool(m map[string]interface{}, key string) (bool, bool) {
	v, ok := m[key].(bool)
	return v, ok
}

// MetaString reads a string feature, accepting the typed enums of this
// package.
func MetaString(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case Activity:
		return string(v)
	case LocationType:
		return string(v)
	case Availability:
		return string(v)
	case PatternType:
		return string(v)
	case Priority:
		return v.String()
	case Interruptibility:
		return v.String()
	}
	return ""
}

// LearningOutcome is one observed outcome fed into the pattern store.
type LearningOutcome struct {
	// ID is the snowflake identifier of the learning session.
	ID int64 `json:"id"`

	// Kind is the polarity of the outcome.
	Kind OutcomeKind `json:"kind"`

	// Confidence scales the confidence delta (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// FromFeedback marks outcomes synthesized from explicit user feedback.
	FromFeedback bool `json:"from_feedback,omitempty"`

	// Metadata is merged into matching patterns.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// PatternID is the pattern that was updated or created (0 if none).
	PatternID int64 `json:"pattern_id,omitempty"`

	// ConfidenceDelta is the change applied to the pattern.
	ConfidenceDelta float64 `json:"confidence_delta,omitempty"`

	// Created reports whether the outcome created a new pattern.
	Created bool `json:"created,omitempty"`

	// ObservedAt is when the outcome was recorded.
	ObservedAt time.Time `json:"observed_at"`
}

// AdaptationStrategy is the pattern-level view of when a user accepts
// reminders, maintained by the pattern store.
type AdaptationStrategy struct {
	// PreferredTimes are hours (0-23) with positive outcomes, sorted.
	PreferredTimes []int `json:"preferred_times"`

	// AvoidTimes are hours (0-23) with negative outcomes, sorted.
	AvoidTimes []int `json:"avoid_times"`

	// InterruptibilityThreshold is the minimum level at which delivery was
	// accepted.
	InterruptibilityThreshold Interruptibility `json:"interruptibility_threshold"`

	// UpdatedAt is when the strategy last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of s.
func (s *AdaptationStrategy) Clone() *AdaptationStrategy {
	if s == nil {
		return nil
	}
	out := *s
	out.PreferredTimes = append([]int(nil), s.PreferredTimes...)
	out.AvoidTimes = append([]int(nil), s.AvoidTimes...)
	return &out
}

// ContextPattern is an entry of the short per-user list of recently learned
// contexts kept by the context provider.
type ContextPattern struct {
	Context    *UserContext `json:"context"`
	Outcome    OutcomeKind  `json:"outcome"`
	Confidence float64      `json:"confidence"`
	RecordedAt time.Time    `json:"recorded_at"`
}
