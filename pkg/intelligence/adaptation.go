package intelligence

import (
	"sort"
	"time"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// defaultAdaptation is the pattern-level strategy of a user with no history.
func defaultAdaptation() *model.AdaptationStrategy {
	return &model.AdaptationStrategy{
		PreferredTimes:            []int{},
		AvoidTimes:                []int{},
		InterruptibilityThreshold: model.InterruptibilityMedium,
	}
}

// adaptReminderStrategies moves the observed hour between the preferred and
// avoided lists and tunes the interruptibility threshold.
//
// A POSITIVE outcome marks the hour preferred and, when the user accepted a
// delivery at a lower interruptibility than the current threshold, lowers
// the threshold to that level. A NEGATIVE outcome marks the hour avoided and
// raises the threshold one step toward HIGH. NEUTRAL outcomes change nothing.
func adaptReminderStrategies(st *model.UserState, features map[string]interface{}, kind model.OutcomeKind, now time.Time) {
	if kind != model.OutcomePositive && kind != model.OutcomeNegative {
		return
	}
	if st.Adaptation == nil {
		st.Adaptation = defaultAdaptation()
	}
	a := st.Adaptation

	hour, ok := model.MetaInt(features, model.MetaHour)
	if !ok || hour < 0 || hour > 23 {
		return
	}

	switch kind {
	case model.OutcomePositive:
		a.PreferredTimes = addHour(a.PreferredTimes, hour)
		a.AvoidTimes = removeHour(a.AvoidTimes, hour)
		if level, err := model.ParseInterruptibility(model.MetaString(features, model.MetaInterruptibility)); err == nil &&
			level < a.InterruptibilityThreshold {
			a.InterruptibilityThreshold = level
		}
	case model.OutcomeNegative:
		a.AvoidTimes = addHour(a.AvoidTimes, hour)
		a.PreferredTimes = removeHour(a.PreferredTimes, hour)
		a.InterruptibilityThreshold = a.InterruptibilityThreshold.Raise()
	}
	a.UpdatedAt = now
}

func addHour(hours []int, h int) []int {
	for _, x := range hours {
		if x == h {
			return hours
		}
	}
	hours = append(hours, h)
	sort.Ints(hours)
	return hours
}

func removeHour(hours []int, h int) []int {
	out := hours[:0]
	for _, x := range hours {
		if x != h {
			out = append(out, x)
		}
	}
	return out
}
