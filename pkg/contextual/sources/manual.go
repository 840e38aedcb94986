package sources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// ManualStatus is a status the user declared explicitly, such as
// "do not disturb until 3pm".
type ManualStatus struct {
	Availability model.Availability
	Activity     model.Activity

	// Until is when the status expires. Zero never expires.
	Until time.Time
}

// ManualSource reports user-declared statuses with full confidence.
type ManualSource struct {
	mu       sync.RWMutex
	statuses map[string]ManualStatus
}

// NewManualSource creates an empty manual source.
func NewManualSource() *ManualSource {
	return &ManualSource{statuses: make(map[string]ManualStatus)}
}

// Set declares a status for a user, replacing any previous one.
func (s *ManualSource) Set(userID string, st ManualStatus) error {
	if st.Availability != "" && !st.Availability.Valid() {
		return fmt.Errorf("unknown availability %q: %w", st.Availability, model.ErrInvalidInput)
	}
	if st.Activity != "" && !st.Activity.Valid() {
		return fmt.Errorf("unknown activity %q: %w", st.Activity, model.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[userID] = st
	return nil
}

// Clear removes a user's declared status.
func (s *ManualSource) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, userID)
}

// Kind implements Source.
func (s *ManualSource) Kind() Kind {
	return KindManual
}

// Observe implements Source.
func (s *ManualSource) Observe(ctx context.Context, userID string, now time.Time) (*Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	st, ok := s.statuses[userID]
	s.mu.RUnlock()
	if !ok || (!st.Until.IsZero() && now.After(st.Until)) {
		return nil, nil
	}

	obs := &Observation{Source: KindManual}
	if st.Availability != "" {
		obs.Availability, obs.AvailabilityConfidence = st.Availability, 1.0
	}
	if st.Activity != "" {
		obs.Activity, obs.ActivityConfidence = st.Activity, 1.0
	}
	return obs, nil
}
