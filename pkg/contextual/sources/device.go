package sources

import (
	"context"
	"sync"
	"time"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// DeviceSource tracks how close the user is to the assistant device from
// presence pings (Bluetooth, camera or voice detection).
type DeviceSource struct {
	window   time.Duration
	distance float64

	mu    sync.RWMutex
	pings map[string]model.DeviceProximity
}

// NewDeviceSource creates a presence source. A user is nearby when seen
// within window at no more than maxDistance meters. Zero values default to
// 5 minutes and 3 meters.
func NewDeviceSource(window time.Duration, maxDistance float64) *DeviceSource {
	if window <= 0 {
		window = 5 * time.Minute
	}
	if maxDistance <= 0 {
		maxDistance = 3
	}
	return &DeviceSource{window: window, distance: maxDistance, pings: make(map[string]model.DeviceProximity)}
}

// Seen records a presence ping.
func (s *DeviceSource) Seen(userID string, distance float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings[userID] = model.DeviceProximity{Distance: distance, LastSeen: at}
}

// Kind implements Source.
func (s *DeviceSource) Kind() Kind {
	return KindDevice
}

// Observe implements Source.
func (s *DeviceSource) Observe(ctx context.Context, userID string, now time.Time) (*Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	p, ok := s.pings[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	p.IsNearby = now.Sub(p.LastSeen) <= s.window && p.Distance >= 0 && p.Distance <= s.distance
	obs := &Observation{Source: KindDevice, Proximity: &p}
	if p.IsNearby {
		// The device lives at home.
		obs.Location = &model.Location{Name: "home", Type: model.LocationHome, Confidence: 0.6}
	}
	return obs, nil
}
