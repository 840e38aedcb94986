package intelligence

import (
	"math"
	"time"
)

// RecencyDecay weighs observations by age using an exponential forgetting
// curve.
//
// The weight of an observation made d days ago is:
//
//	w = e^(-d / horizonDays)
//
// With the default 30-day horizon an observation one month old counts for
// e^-1 (about 0.37) of a fresh one.
//
// Example usage:
//
//	decay := NewRecencyDecay(30)
//	w := decay.Weight(pattern.LastObserved, time.Now())
type RecencyDecay struct {
	// horizonDays is the number of days after which the weight drops to e^-1.
	horizonDays float64
}

// NewRecencyDecay creates a decay curve with the given horizon in days.
// Non-positive horizons fall back to 30 days.
func NewRecencyDecay(horizonDays float64) *RecencyDecay {
	if horizonDays <= 0 {
		horizonDays = 30
	}
	return &RecencyDecay{horizonDays: horizonDays}
}

// Weight returns the recency weight of an observation made at observed,
// seen from now.
//
// Returns a value in (0, 1]. Observations in the future (clock skew) and
// zero times weigh 1.0.
func (d *RecencyDecay) Weight(observed, now time.Time) float64 {
	if observed.IsZero() || !observed.Before(now) {
		return 1.0
	}
	days := now.Sub(observed).Hours() / 24.0
	return math.Exp(-days / d.horizonDays)
}

// Apply decays confidence for the time elapsed between since and now.
//
// Decay is multiplicative, so applying it in several steps gives the same
// result as applying it once over the whole interval.
func (d *RecencyDecay) Apply(confidence float64, since, now time.Time) float64 {
	return confidence * d.Weight(since, now)
}

// HorizonDays returns the configured horizon.
func (d *RecencyDecay) HorizonDays() float64 {
	return d.horizonDays
}
