package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// CalendarEvent is an entry in a user's calendar.
type CalendarEvent struct {
	Title string
	Start time.Time
	End   time.Time

	// Location is the event place; Type classifies it.
	Location     string
	LocationType model.LocationType

	// Activity is what the user does during the event, if known.
	Activity model.Activity

	// Busy marks events that block the user (meetings) as opposed to
	// informational entries.
	Busy bool
}

// CalendarProvider returns the events of a user overlapping [from, to).
type CalendarProvider interface {
	Events(ctx context.Context, userID string, from, to time.Time) ([]CalendarEvent, error)
}

// StaticCalendar is an in-memory CalendarProvider fed by the caller.
type StaticCalendar struct {
	mu     sync.RWMutex
	events map[string][]CalendarEvent
}

// NewStaticCalendar creates an empty calendar.
func NewStaticCalendar() *StaticCalendar {
	return &StaticCalendar{events: make(map[string][]CalendarEvent)}
}

// Add adds an event for a user.
func (c *StaticCalendar) Add(userID string, ev CalendarEvent) error {
	if !ev.End.After(ev.Start) {
		return fmt.Errorf("calendar event %q ends before it starts: %w", ev.Title, model.ErrInvalidInput)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	list := append(c.events[userID], ev)
	sort.Slice(list, func(i, j int) bool { return list[i].Start.Before(list[j].Start) })
	c.events[userID] = list
	return nil
}

// Events implements CalendarProvider.
func (c *StaticCalendar) Events(ctx context.Context, userID string, from, to time.Time) ([]CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []CalendarEvent
	for _, ev := range c.events[userID] {
		if ev.Start.Before(to) && ev.End.After(from) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// CalendarSource votes from the event in progress.
type CalendarSource struct {
	provider CalendarProvider
}

// NewCalendarSource wraps a calendar provider.
func NewCalendarSource(provider CalendarProvider) *CalendarSource {
	return &CalendarSource{provider: provider}
}

// Kind implements Source.
func (s *CalendarSource) Kind() Kind {
	return KindCalendar
}

// Observe implements Source.
func (s *CalendarSource) Observe(ctx context.Context, userID string, now time.Time) (*Observation, error) {
	evs, err := s.provider.Events(ctx, userID, now, now.Add(time.Second))
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	if len(evs) == 0 {
		return nil, nil
	}

	// Busy events take precedence over informational ones.
	ev := evs[0]
	for _, e := range evs[1:] {
		if e.Busy && !ev.Busy {
			ev = e
		}
	}

	obs := &Observation{Source: KindCalendar}
	if ev.Busy {
		obs.Availability, obs.AvailabilityConfidence = model.AvailabilityBusy, 0.8
	} else {
		obs.Availability, obs.AvailabilityConfidence = model.AvailabilityAvailable, 0.4
	}

	switch {
	case ev.Activity != "":
		obs.Activity, obs.ActivityConfidence = ev.Activity, 0.7
	case ev.LocationType == model.LocationWork:
		obs.Activity, obs.ActivityConfidence = model.ActivityWorking, 0.6
	case ev.LocationType == model.LocationGym:
		obs.Activity, obs.ActivityConfidence = model.ActivityExercising, 0.6
	case ev.LocationType == model.LocationRestaurant:
		obs.Activity, obs.ActivityConfidence = model.ActivityEating, 0.6
	}

	if ev.Location != "" || ev.LocationType != "" {
		lt := ev.LocationType
		if lt == "" {
			lt = model.LocationUnknown
		}
		obs.Location = &model.Location{Name: ev.Location, Type: lt, Confidence: 0.7}
	}
	return obs, nil
}
