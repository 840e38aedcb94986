package model

import "time"

// Location is the inferred place a user is at.
type Location struct {
	// Name is a human-readable label such as "home" or the calendar event location.
	Name string `json:"name"`

	// Type classifies the location.
	Type LocationType `json:"type"`

	// Confidence is how sure the fusion is about the location (0.0-1.0).
	Confidence float64 `json:"confidence"`
}

// DeviceProximity describes how close the user is to the assistant device.
type DeviceProximity struct {
	// IsNearby reports whether the user is within presentation range.
	IsNearby bool `json:"is_nearby"`

	// Distance is the estimated distance in meters (negative when unknown).
	Distance float64 `json:"distance"`

	// LastSeen is when the user was last detected near the device.
	LastSeen time.Time `json:"last_seen"`
}

// TimeOfDay is the calendar position of a context snapshot in the user's
// time zone.
type TimeOfDay struct {
	Hour      int          `json:"hour"`
	DayOfWeek time.Weekday `json:"day_of_week"`
	IsWeekend bool         `json:"is_weekend"`
	IsHoliday bool         `json:"is_holiday"`
	TimeZone  string       `json:"time_zone"`
}

// NewTimeOfDay derives a TimeOfDay from t, which must already be in the
// user's location.
func NewTimeOfDay(t time.Time, holiday bool) TimeOfDay {
	wd := t.Weekday()
	return TimeOfDay{
		Hour:      t.Hour(),
		DayOfWeek: wd,
		IsWeekend: wd == time.Saturday || wd == time.Sunday,
		IsHoliday: holiday,
		TimeZone:  t.Location().String(),
	}
}

// UserContext is a fused snapshot of a user's current situation.
//
// A snapshot is immutable once published: refreshes replace it wholesale and
// partial updates produce a new snapshot. DO_NOT_DISTURB availability or
// SLEEPING activity always yields InterruptibilityNone.
type UserContext struct {
	UserID             string             `json:"user_id"`
	CurrentActivity    Activity           `json:"current_activity"`
	Location           Location           `json:"location"`
	Availability       Availability       `json:"availability"`
	Interruptibility   Interruptibility   `json:"interruptibility"`
	DeviceProximity    DeviceProximity    `json:"device_proximity"`
	TimeOfDay          TimeOfDay          `json:"time_of_day"`
	HistoricalPatterns []*BehaviorPattern `json:"historical_patterns,omitempty"`
	LastUpdated        time.Time          `json:"last_updated"`
}

// Clone returns a deep copy of c.
func (c *UserContext) Clone() *UserContext {
	if c == nil {
		return nil
	}
	out := *c
	out.HistoricalPatterns = ClonePatterns(c.HistoricalPatterns)
	return &out
}

// ContextUpdate carries the fields of a partial context update. Nil fields
// are left unchanged.
type ContextUpdate struct {
	CurrentActivity *Activity
	Location        *Location
	Availability    *Availability
	DeviceProximity *DeviceProximity
	TimeOfDay       *TimeOfDay
}

// Apply copies the set fields of u onto c.
func (u ContextUpdate) Apply(c *UserContext) {
	if u.CurrentActivity != nil {
		c.CurrentActivity = *u.CurrentActivity
	}
	if u.Location != nil {
		c.Location = *u.Location
	}
	if u.Availability != nil {
		c.Availability = *u.Availability
	}
	if u.DeviceProximity != nil {
		c.DeviceProximity = *u.DeviceProximity
	}
	if u.TimeOfDay != nil {
		c.TimeOfDay = *u.TimeOfDay
	}
}

// Empty reports whether the update carries no fields.
func (u ContextUpdate) Empty() bool {
	return u.CurrentActivity == nil && u.Location == nil && u.Availability == nil &&
		u.DeviceProximity == nil && u.TimeOfDay == nil
}
