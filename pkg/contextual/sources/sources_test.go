package sources_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/remindsense-go/pkg/contextual/sources"
	"github.com/oceanbase/remindsense-go/pkg/model"
)

// wednesday returns 2026-10-14 at the given hour, UTC.
func wednesday(hour int) time.Time {
	return time.Date(2026, 10, 14, hour, 0, 0, 0, time.UTC)
}

func TestTimeSource_Infer(t *testing.T) {
	ts := sources.NewTimeSource(time.UTC)
	saturday := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name         string
		at           time.Time
		activity     model.Activity
		availability model.Availability
		location     model.LocationType
	}{
		{"night", wednesday(2), model.ActivitySleeping, model.AvailabilityDoNotDisturb, model.LocationHome},
		{"commute", wednesday(8), model.ActivityUnknown, model.AvailabilityAway, model.LocationCommute},
		{"office", wednesday(10), model.ActivityWorking, model.AvailabilityBusy, model.LocationWork},
		{"lunch", wednesday(12), model.ActivityEating, model.AvailabilityAvailable, model.LocationWork},
		{"dinner", wednesday(18), model.ActivityEating, model.AvailabilityAvailable, model.LocationHome},
		{"evening", wednesday(20), model.ActivityRelaxing, model.AvailabilityAvailable, model.LocationHome},
		{"weekend morning", saturday, model.ActivityRelaxing, model.AvailabilityAvailable, model.LocationHome},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs, err := ts.Observe(context.Background(), "u", tc.at)
			require.NoError(t, err)
			assert.Equal(t, sources.KindTime, obs.Source)
			assert.Equal(t, tc.activity, obs.Activity)
			assert.Equal(t, tc.availability, obs.Availability)
			require.NotNil(t, obs.Location)
			assert.Equal(t, tc.location, obs.Location.Type)
		})
	}
}

func TestTimeSource_HolidaysAndZones(t *testing.T) {
	ts := sources.NewTimeSource(time.UTC)
	ts.AddHoliday(wednesday(0))

	tod := ts.TimeOfDay(wednesday(10))
	assert.True(t, tod.IsHoliday)
	assert.False(t, tod.IsWeekend)
	assert.Equal(t, model.ActivityRelaxing, ts.Infer(tod).Activity, "holidays are treated like weekends")

	tokyo := sources.NewTimeSource(time.FixedZone("UTC+9", 9*3600))
	tod = tokyo.TimeOfDay(wednesday(19))
	assert.Equal(t, 4, tod.Hour)
	assert.Equal(t, time.Thursday, tod.DayOfWeek)
	assert.Equal(t, "UTC+9", tod.TimeZone)

	assert.Equal(t, time.Local, sources.NewTimeSource(nil).Location())
}

func TestTimeSource_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sources.NewTimeSource(time.UTC).Observe(ctx, "u", wednesday(10))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSensorSource(t *testing.T) {
	s := sources.NewSensorSource(0)
	ctx := context.Background()
	now := wednesday(22)

	obs, err := s.Observe(ctx, "u", now)
	require.NoError(t, err)
	assert.Nil(t, obs)

	s.Record("u", sources.SensorReading{Room: "Bedroom", Motion: 0.05, Light: 1, At: now.Add(-time.Minute)})
	obs, err = s.Observe(ctx, "u", now)
	require.NoError(t, err)
	assert.Equal(t, model.ActivitySleeping, obs.Activity)
	assert.Equal(t, 0.8, obs.ActivityConfidence)
	require.NotNil(t, obs.Location)
	assert.Equal(t, "bedroom", obs.Location.Name)
	assert.Equal(t, model.LocationHome, obs.Location.Type)

	s.Record("u", sources.SensorReading{Room: "kitchen", Motion: 0.3, Light: 300, At: now})
	obs, err = s.Observe(ctx, "u", now)
	require.NoError(t, err)
	assert.Equal(t, model.ActivityEating, obs.Activity)

	s.Record("u", sources.SensorReading{Room: "kitchen", Motion: 0.9, At: now})
	obs, err = s.Observe(ctx, "u", now)
	require.NoError(t, err)
	assert.Equal(t, model.ActivityExercising, obs.Activity)

	// Stale readings are ignored.
	obs, err = s.Observe(ctx, "u", now.Add(11*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestCalendarSource(t *testing.T) {
	cal := sources.NewStaticCalendar()
	src := sources.NewCalendarSource(cal)
	ctx := context.Background()

	err := cal.Add("u", sources.CalendarEvent{Title: "broken", Start: wednesday(11), End: wednesday(10)})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	require.NoError(t, cal.Add("u", sources.CalendarEvent{
		Title:        "Team sync",
		Start:        wednesday(10),
		End:          wednesday(11),
		Location:     "Room 4",
		LocationType: model.LocationWork,
		Busy:         true,
	}))
	require.NoError(t, cal.Add("u", sources.CalendarEvent{
		Title: "Focus block",
		Start: wednesday(9),
		End:   wednesday(12),
	}))

	obs, err := src.Observe(ctx, "u", wednesday(10).Add(15*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Equal(t, sources.KindCalendar, src.Kind())
	assert.Equal(t, model.AvailabilityBusy, obs.Availability)
	assert.Equal(t, 0.8, obs.AvailabilityConfidence)
	assert.Equal(t, model.ActivityWorking, obs.Activity)
	require.NotNil(t, obs.Location)
	assert.Equal(t, "Room 4", obs.Location.Name)

	// Only the informational event is in progress.
	obs, err = src.Observe(ctx, "u", wednesday(11).Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityAvailable, obs.Availability)
	assert.Empty(t, obs.Activity)
	assert.Nil(t, obs.Location)

	obs, err = src.Observe(ctx, "u", wednesday(15))
	require.NoError(t, err)
	assert.Nil(t, obs)

	evs, err := cal.Events(ctx, "u", wednesday(0), wednesday(23))
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "Focus block", evs[0].Title)
}

func TestDeviceSource(t *testing.T) {
	s := sources.NewDeviceSource(0, 0)
	ctx := context.Background()
	now := wednesday(20)

	obs, err := s.Observe(ctx, "u", now)
	require.NoError(t, err)
	assert.Nil(t, obs)

	s.Seen("u", 1.5, now.Add(-time.Minute))
	obs, err = s.Observe(ctx, "u", now)
	require.NoError(t, err)
	require.NotNil(t, obs.Proximity)
	assert.True(t, obs.Proximity.IsNearby)
	require.NotNil(t, obs.Location)
	assert.Equal(t, model.LocationHome, obs.Location.Type)

	obs, err = s.Observe(ctx, "u", now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, obs.Proximity.IsNearby)
	assert.Nil(t, obs.Location)

	s.Seen("u", 8, now)
	obs, err = s.Observe(ctx, "u", now)
	require.NoError(t, err)
	assert.False(t, obs.Proximity.IsNearby)
}

func TestManualSource(t *testing.T) {
	s := sources.NewManualSource()
	ctx := context.Background()
	now := wednesday(14)

	assert.ErrorIs(t, s.Set("u", sources.ManualStatus{Availability: "SNOOZING"}), model.ErrInvalidInput)
	assert.ErrorIs(t, s.Set("u", sources.ManualStatus{Activity: "NAPPING"}), model.ErrInvalidInput)

	require.NoError(t, s.Set("u", sources.ManualStatus{
		Availability: model.AvailabilityDoNotDisturb,
		Until:        now.Add(time.Hour),
	}))
	obs, err := s.Observe(ctx, "u", now)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityDoNotDisturb, obs.Availability)
	assert.Equal(t, 1.0, obs.AvailabilityConfidence)
	assert.Empty(t, obs.Activity)

	obs, err = s.Observe(ctx, "u", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, obs, "expired statuses are ignored")

	require.NoError(t, s.Set("u", sources.ManualStatus{Activity: model.ActivityExercising}))
	obs, err = s.Observe(ctx, "u", now.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, model.ActivityExercising, obs.Activity)

	s.Clear("u")
	obs, err = s.Observe(ctx, "u", now)
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestObservationEmpty(t *testing.T) {
	var nilObs *sources.Observation
	assert.True(t, nilObs.Empty())
	assert.True(t, (&sources.Observation{Source: sources.KindSensor}).Empty())
	assert.False(t, (&sources.Observation{Activity: model.ActivityWorking}).Empty())
}
