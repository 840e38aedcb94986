package sources

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// SensorReading is the latest ambient reading reported by the home hub.
type SensorReading struct {
	// Room is where presence was last detected, e.g. "kitchen".
	Room string

	// Motion is the normalized motion level (0.0-1.0).
	Motion float64

	// Light is the ambient light level in lux.
	Light float64

	// At is when the reading was taken.
	At time.Time
}

// SensorSource interprets pushed ambient sensor readings.
type SensorSource struct {
	maxAge time.Duration

	mu       sync.RWMutex
	readings map[string]SensorReading
}

// NewSensorSource creates a sensor source. Readings older than maxAge are
// ignored (zero means 10 minutes).
func NewSensorSource(maxAge time.Duration) *SensorSource {
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	return &SensorSource{maxAge: maxAge, readings: make(map[string]SensorReading)}
}

// Record stores the latest reading for a user.
func (s *SensorSource) Record(userID string, r SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[userID] = r
}

// Kind implements Source.
func (s *SensorSource) Kind() Kind {
	return KindSensor
}

// Observe implements Source.
func (s *SensorSource) Observe(ctx context.Context, userID string, now time.Time) (*Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	r, ok := s.readings[userID]
	s.mu.RUnlock()
	if !ok || now.Sub(r.At) > s.maxAge {
		return nil, nil
	}

	obs := &Observation{Source: KindSensor}
	room := strings.ToLower(r.Room)

	switch {
	case r.Motion >= 0.7:
		obs.Activity, obs.ActivityConfidence = model.ActivityExercising, 0.6
	case room == "bedroom" && r.Motion < 0.1 && r.Light < 5:
		obs.Activity, obs.ActivityConfidence = model.ActivitySleeping, 0.8
	case room == "kitchen" || room == "dining":
		obs.Activity, obs.ActivityConfidence = model.ActivityEating, 0.5
	case room == "office" || room == "study":
		obs.Activity, obs.ActivityConfidence = model.ActivityWorking, 0.5
	case room == "living" || room == "living room":
		obs.Activity, obs.ActivityConfidence = model.ActivityRelaxing, 0.4
	}

	if room != "" {
		obs.Location = &model.Location{Name: room, Type: model.LocationHome, Confidence: 0.8}
	}
	return obs, nil
}
