// Package model defines the domain types shared by the remindsense packages.
//
// The types live in their own package so that the pattern store, the context
// provider, the timing strategy and the storage backends can exchange them
// without import cycles.
package model

import (
	"fmt"
	"strings"
)

// Activity is the inferred current activity of a user.
type Activity string

const (
	ActivitySleeping    Activity = "SLEEPING"
	ActivityWorking     Activity = "WORKING"
	ActivityEating      Activity = "EATING"
	ActivityExercising  Activity = "EXERCISING"
	ActivityRelaxing    Activity = "RELAXING"
	ActivitySocializing Activity = "SOCIALIZING"
	ActivityUnknown     Activity = "UNKNOWN"
)

// Valid reports whether a is one of the known activities.
func (a Activity) Valid() bool {
	switch a {
	case ActivitySleeping, ActivityWorking, ActivityEating, ActivityExercising,
		ActivityRelaxing, ActivitySocializing, ActivityUnknown:
		return true
	}
	return false
}

// Availability is the declared or inferred availability of a user.
type Availability string

const (
	AvailabilityAvailable    Availability = "AVAILABLE"
	AvailabilityBusy         Availability = "BUSY"
	AvailabilityAway         Availability = "AWAY"
	AvailabilityDoNotDisturb Availability = "DO_NOT_DISTURB"
)

// Valid reports whether a is one of the known availability states.
func (a Availability) Valid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityAway, AvailabilityDoNotDisturb:
		return true
	}
	return false
}

// LocationType classifies a location.
type LocationType string

const (
	LocationHome       LocationType = "HOME"
	LocationWork       LocationType = "WORK"
	LocationCommute    LocationType = "COMMUTE"
	LocationGym        LocationType = "GYM"
	LocationRestaurant LocationType = "RESTAURANT"
	LocationOutdoor    LocationType = "OUTDOOR"
	LocationUnknown    LocationType = "UNKNOWN"
)

// Valid reports whether t is one of the known location types.
func (t LocationType) Valid() bool {
	switch t {
	case LocationHome, LocationWork, LocationCommute, LocationGym,
		LocationRestaurant, LocationOutdoor, LocationUnknown:
		return true
	}
	return false
}

// Interruptibility is the ordered receptiveness of a user to being
// interrupted right now: NONE < LOW < MEDIUM < HIGH.
type Interruptibility int

const (
	InterruptibilityNone Interruptibility = iota
	InterruptibilityLow
	InterruptibilityMedium
	InterruptibilityHigh
)

var interruptibilityNames = [...]string{"NONE", "LOW", "MEDIUM", "HIGH"}

// String returns the upper-case name of the level.
func (i Interruptibility) String() string {
	if i < InterruptibilityNone || i > InterruptibilityHigh {
		return fmt.Sprintf("Interruptibility(%d)", int(i))
	}
	return interruptibilityNames[i]
}

// AtLeast reports whether i is greater than or equal to other.
func (i Interruptibility) AtLeast(other Interruptibility) bool {
	return i >= other
}

// Raise returns the next stricter-to-satisfy level, saturating at HIGH.
func (i Interruptibility) Raise() Interruptibility {
	if i >= InterruptibilityHigh {
		return InterruptibilityHigh
	}
	return i + 1
}

// MarshalText implements encoding.TextMarshaler.
func (i Interruptibility) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Interruptibility) UnmarshalText(text []byte) error {
	v, err := ParseInterruptibility(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// ParseInterruptibility parses a level name, case-insensitively.
func ParseInterruptibility(s string) (Interruptibility, error) {
	for idx, name := range interruptibilityNames {
		if strings.EqualFold(s, name) {
			return Interruptibility(idx), nil
		}
	}
	return InterruptibilityNone, fmt.Errorf("unknown interruptibility %q", s)
}

// Priority is the totally ordered urgency of a reminder.
//
// Arithmetic on priorities goes through Weight so the numeric relation is
// explicit: LOW=0, MEDIUM=1, HIGH=2, CRITICAL=3.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = [...]string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}

// Weight returns the integer weight used in scoring formulas.
func (p Priority) Weight() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	}
	return 0
}

// String returns the upper-case name of the priority.
func (p Priority) String() string {
	if p < PriorityLow || p > PriorityCritical {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	v, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePriority parses a priority name, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	for idx, name := range priorityNames {
		if strings.EqualFold(s, name) {
			return Priority(idx), nil
		}
	}
	return PriorityLow, fmt.Errorf("unknown priority %q", s)
}

// DeliveryMethod is a channel through which a reminder can be presented.
type DeliveryMethod string

const (
	DeliveryVoice  DeliveryMethod = "VOICE"
	DeliveryVisual DeliveryMethod = "VISUAL"
	DeliveryAvatar DeliveryMethod = "AVATAR"
	DeliverySound  DeliveryMethod = "SOUND"
	DeliveryMobile DeliveryMethod = "MOBILE"
)

// PatternType classifies a learned behavior pattern.
type PatternType string

const (
	PatternWakeTime           PatternType = "WAKE_TIME"
	PatternSleepTime          PatternType = "SLEEP_TIME"
	PatternWorkHours          PatternType = "WORK_HOURS"
	PatternMealTimes          PatternType = "MEAL_TIMES"
	PatternExerciseTime       PatternType = "EXERCISE_TIME"
	PatternResponsePreference PatternType = "RESPONSE_PREFERENCE"
)

// OutcomeKind is the polarity of a learning outcome.
type OutcomeKind string

const (
	OutcomePositive OutcomeKind = "POSITIVE"
	OutcomeNegative OutcomeKind = "NEGATIVE"
	OutcomeNeutral  OutcomeKind = "NEUTRAL"
)

// FeedbackType is the aspect of a delivery that feedback refers to.
type FeedbackType string

const (
	FeedbackTiming         FeedbackType = "TIMING"
	FeedbackDeliveryMethod FeedbackType = "DELIVERY_METHOD"
	FeedbackFrequency      FeedbackType = "FREQUENCY"
	FeedbackGeneral        FeedbackType = "GENERAL"
)

// Valid reports whether t is one of the known feedback types.
func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackTiming, FeedbackDeliveryMethod, FeedbackFrequency, FeedbackGeneral:
		return true
	}
	return false
}
