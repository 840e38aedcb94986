package sources

import (
	"context"
	"sync"
	"time"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// TimeSource infers a typical context from the wall clock alone. It is
// also the fallback used when no other source votes for a field.
type TimeSource struct {
	loc *time.Location

	mu       sync.RWMutex
	holidays map[string]bool
}

// NewTimeSource creates a clock-based source for the given time zone
// (nil means time.Local).
func NewTimeSource(loc *time.Location, holidays ...time.Time) *TimeSource {
	if loc == nil {
		loc = time.Local
	}
	ts := &TimeSource{loc: loc, holidays: make(map[string]bool)}
	for _, h := range holidays {
		ts.AddHoliday(h)
	}
	return ts
}

// AddHoliday marks the calendar date of day as a holiday.
func (s *TimeSource) AddHoliday(day time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays[day.In(s.loc).Format("2006-01-02")] = true
}

// Location returns the time zone of the source.
func (s *TimeSource) Location() *time.Location {
	return s.loc
}

// IsHoliday reports whether t falls on a registered holiday.
func (s *TimeSource) IsHoliday(t time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holidays[t.In(s.loc).Format("2006-01-02")]
}

// TimeOfDay converts now into the source's time zone.
func (s *TimeSource) TimeOfDay(now time.Time) model.TimeOfDay {
	local := now.In(s.loc)
	return model.NewTimeOfDay(local, s.IsHoliday(local))
}

// Kind implements Source.
func (s *TimeSource) Kind() Kind {
	return KindTime
}

// Observe implements Source.
func (s *TimeSource) Observe(ctx context.Context, _ string, now time.Time) (*Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Infer(s.TimeOfDay(now)), nil
}

// Infer returns the clock heuristic for a time of day. Holidays are treated
// like weekends.
func (s *TimeSource) Infer(tod model.TimeOfDay) *Observation {
	obs := &Observation{Source: KindTime}
	h := tod.Hour
	offDay := tod.IsWeekend || tod.IsHoliday

	home := &model.Location{Name: "home", Type: model.LocationHome, Confidence: 0.5}

	switch {
	case h >= 23 || h < 6:
		obs.Activity, obs.ActivityConfidence = model.ActivitySleeping, 0.7
		obs.Availability, obs.AvailabilityConfidence = model.AvailabilityDoNotDisturb, 0.4
		home.Confidence = 0.6
		obs.Location = home
	case h >= 12 && h < 13, h >= 18 && h < 19:
		obs.Activity, obs.ActivityConfidence = model.ActivityEating, 0.5
		obs.Availability, obs.AvailabilityConfidence = model.AvailabilityAvailable, 0.3
		if !offDay && h == 12 {
			obs.Location = &model.Location{Name: "work", Type: model.LocationWork, Confidence: 0.3}
		} else {
			obs.Location = home
		}
	case !offDay && (h == 8 || h == 17):
		obs.Activity, obs.ActivityConfidence = model.ActivityUnknown, 0.2
		obs.Availability, obs.AvailabilityConfidence = model.AvailabilityAway, 0.3
		obs.Location = &model.Location{Name: "commute", Type: model.LocationCommute, Confidence: 0.4}
	case !offDay && h >= 9 && h < 17:
		obs.Activity, obs.ActivityConfidence = model.ActivityWorking, 0.5
		obs.Availability, obs.AvailabilityConfidence = model.AvailabilityBusy, 0.4
		obs.Location = &model.Location{Name: "work", Type: model.LocationWork, Confidence: 0.4}
	default:
		obs.Activity, obs.ActivityConfidence = model.ActivityRelaxing, 0.4
		obs.Availability, obs.AvailabilityConfidence = model.AvailabilityAvailable, 0.4
		obs.Location = home
	}
	return obs
}
