// Package sources defines the context source capability interface and its
// implementations.
//
// A source observes one aspect of a user's situation (clock, room sensors,
// calendar, device presence, explicit status) and votes for context fields
// with a confidence. The context provider polls every source and fuses the
// votes.
package sources

import (
	"context"
	"time"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// Kind identifies the type of a source. Fusion uses it to apply per-field
// source priority.
type Kind string

const (
	KindTime     Kind = "time"
	KindSensor   Kind = "sensor"
	KindCalendar Kind = "calendar"
	KindDevice   Kind = "device"
	KindManual   Kind = "manual"
	KindPattern  Kind = "pattern"
)

// Observation is one source's votes. Zero-valued fields cast no vote.
type Observation struct {
	Source Kind

	Activity           model.Activity
	ActivityConfidence float64

	Availability           model.Availability
	AvailabilityConfidence float64

	// Location carries its own confidence.
	Location *model.Location

	// Proximity is reported by device presence sources.
	Proximity *model.DeviceProximity
}

// Empty reports whether the observation casts no vote at all.
func (o *Observation) Empty() bool {
	return o == nil || (o.Activity == "" && o.Availability == "" && o.Location == nil && o.Proximity == nil)
}

// Source is a context source polled by the provider.
//
// Observe must honor ctx cancellation. A nil observation with a nil error
// means the source has nothing to report for this user right now.
type Source interface {
	Kind() Kind
	Observe(ctx context.Context, userID string, now time.Time) (*Observation, error)
}
