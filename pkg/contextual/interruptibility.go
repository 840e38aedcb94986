package contextual

import (
	"math"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// Interruptibility derives the interruptibility level of a snapshot.
//
// DO_NOT_DISTURB and SLEEPING always give NONE. Otherwise a score starting
// at 0.5 is shifted by availability, activity, location and time band, and
// bucketed: below 0.1 NONE, below 0.4 LOW, below 0.7 MEDIUM, else HIGH.
func Interruptibility(uctx *model.UserContext) model.Interruptibility {
	if uctx.Availability == model.AvailabilityDoNotDisturb || uctx.CurrentActivity == model.ActivitySleeping {
		return model.InterruptibilityNone
	}
	return bucket(interruptibilityScore(uctx))
}

func interruptibilityScore(uctx *model.UserContext) float64 {
	score := 0.5

	switch uctx.Availability {
	case model.AvailabilityAvailable:
		score += 0.2
	case model.AvailabilityBusy:
		score -= 0.3
	case model.AvailabilityAway:
		score -= 0.4
	}

	switch uctx.CurrentActivity {
	case model.ActivityRelaxing:
		score += 0.3
	case model.ActivityWorking:
		score -= 0.2
	case model.ActivityEating:
		score -= 0.1
	case model.ActivityExercising:
		score -= 0.15
	case model.ActivitySocializing:
		score -= 0.1
	}

	switch uctx.Location.Type {
	case model.LocationHome:
		score += 0.1
	case model.LocationWork:
		score -= 0.1
	case model.LocationCommute:
		score -= 0.2
	}

	h := uctx.TimeOfDay.Hour
	switch {
	case h >= 22 || h < 7:
		score -= 0.4
	case h >= 12 && h <= 13:
		score -= 0.1
	}

	// Round away float noise so 0.5-0.4 lands on the 0.1 boundary.
	return math.Round(score*100) / 100
}

func bucket(score float64) model.Interruptibility {
	switch {
	case score < 0.1:
		return model.InterruptibilityNone
	case score < 0.4:
		return model.InterruptibilityLow
	case score < 0.7:
		return model.InterruptibilityMedium
	}
	return model.InterruptibilityHigh
}

// minimumInterruptibility is the level at which a reminder of priority p
// may be delivered right away.
func minimumInterruptibility(p model.Priority) model.Interruptibility {
	switch p {
	case model.PriorityCritical, model.PriorityHigh:
		return model.InterruptibilityLow
	case model.PriorityMedium:
		return model.InterruptibilityMedium
	}
	return model.InterruptibilityHigh
}
