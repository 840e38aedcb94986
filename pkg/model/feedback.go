package model

import "time"

// Correction is a user's statement that part of an inferred context was
// wrong.
type Correction struct {
	// Field is one of "activity", "availability", "location".
	Field string `json:"field"`

	ActualValue    string `json:"actual_value"`
	PredictedValue string `json:"predicted_value"`

	// Importance weighs the correction (0.0-1.0).
	Importance float64 `json:"importance"`
}

// ReminderFeedback is a user's reaction to a delivered reminder.
type ReminderFeedback struct {
	ReminderID   string       `json:"reminder_id,omitempty"`
	FeedbackType FeedbackType `json:"feedback_type"`

	// Rating is 1-5; 0 means the user did not rate.
	Rating int `json:"rating"`

	WasHelpful bool   `json:"was_helpful"`
	Comment    string `json:"comment,omitempty"`

	// DeliveryMethod is the method the feedback is about, when known.
	DeliveryMethod DeliveryMethod `json:"delivery_method,omitempty"`

	// Activity is the activity at delivery time, when known.
	Activity Activity `json:"activity,omitempty"`

	Corrections []Correction `json:"corrections,omitempty"`
	ReceivedAt  time.Time    `json:"received_at"`
}

// EffectiveRating returns the rating with "unrated" mapped to neutral 3.
func (f *ReminderFeedback) EffectiveRating() int {
	if f.Rating == 0 {
		return 3
	}
	return f.Rating
}

// ContextFeedback is feedback about the inferred context at a delivery.
type ContextFeedback struct {
	FeedbackType FeedbackType `json:"feedback_type"`
	Rating       int          `json:"rating"`
	WasHelpful   bool         `json:"was_helpful"`

	// Context is the snapshot the delivery was decided on. When nil the
	// provider uses the cached snapshot.
	Context *UserContext `json:"context,omitempty"`

	Corrections []Correction `json:"corrections,omitempty"`
	ReceivedAt  time.Time    `json:"received_at"`
}

// Outcome converts the feedback into a learning outcome polarity and
// confidence, using the same rule as strategy adaptation: feedback marked
// unhelpful or rated 1 or 2 is negative, helpful feedback rated 4 or 5 is
// positive, and anything else is neutral. An unrated event counts as a 3.
func (f *ContextFeedback) Outcome() (OutcomeKind, float64) {
	switch {
	case f.Rating >= 1 && f.Rating <= 2:
		return OutcomeNegative, float64(6-f.Rating) / 5.0
	case !f.WasHelpful:
		return OutcomeNegative, 0.6
	case f.Rating >= 4:
		return OutcomePositive, float64(f.Rating) / 5.0
	}
	return OutcomeNeutral, 0.5
}
