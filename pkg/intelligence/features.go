package intelligence

import (
	"github.com/oceanbase/remindsense-go/pkg/model"
)

// extractFeatures flattens a context snapshot into pattern metadata.
func extractFeatures(uctx *model.UserContext) map[string]interface{} {
	return map[string]interface{}{
		model.MetaHour:             uctx.TimeOfDay.Hour,
		model.MetaDayOfWeek:        int(uctx.TimeOfDay.DayOfWeek),
		model.MetaIsWeekend:        uctx.TimeOfDay.IsWeekend,
		model.MetaActivity:         string(uctx.CurrentActivity),
		model.MetaLocation:         uctx.Location.Name,
		model.MetaLocationType:     string(uctx.Location.Type),
		model.MetaAvailability:     string(uctx.Availability),
		model.MetaInterruptibility: uctx.Interruptibility.String(),
		model.MetaNearby:           uctx.DeviceProximity.IsNearby,
		model.MetaLocationConf:     uctx.Location.Confidence,
	}
}

// hourDistance is the circular distance between two hours of the day.
func hourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	d %= 24
	if d > 12 {
		d = 24 - d
	}
	return d
}

// matchScore counts the features a pattern shares with an observation:
// hour within window, same weekday, same activity, same location.
func matchScore(pattern map[string]interface{}, features map[string]interface{}, windowHours int) int {
	score := 0

	ph, pok := model.MetaInt(pattern, model.MetaHour)
	fh, fok := model.MetaInt(features, model.MetaHour)
	if pok && fok && hourDistance(ph, fh) <= windowHours {
		score++
	}

	pd, pok := model.MetaInt(pattern, model.MetaDayOfWeek)
	fd, fok := model.MetaInt(features, model.MetaDayOfWeek)
	if pok && fok && pd == fd {
		score++
	}

	if a := model.MetaString(pattern, model.MetaActivity); a != "" &&
		a == model.MetaString(features, model.MetaActivity) {
		score++
	}

	if l := locationKey(pattern); l != "" && l == locationKey(features) {
		score++
	}

	return score
}

// locationKey prefers the location name and falls back to its type.
func locationKey(m map[string]interface{}) string {
	if name := model.MetaString(m, model.MetaLocation); name != "" {
		return name
	}
	return model.MetaString(m, model.MetaLocationType)
}

// classifyPattern picks the pattern type for a new observation. The first
// matching rule wins.
func classifyPattern(features map[string]interface{}, fromFeedback bool) model.PatternType {
	if fromFeedback {
		return model.PatternResponsePreference
	}
	hour, _ := model.MetaInt(features, model.MetaHour)
	weekend, _ := model.MetaBool(features, model.MetaIsWeekend)
	activity := model.Activity(model.MetaString(features, model.MetaActivity))

	switch {
	case hour >= 6 && hour <= 8:
		return model.PatternWakeTime
	case hour >= 22 || hour <= 6:
		return model.PatternSleepTime
	case hour >= 9 && hour <= 17 && !weekend:
		return model.PatternWorkHours
	case activity == model.ActivityEating:
		return model.PatternMealTimes
	case activity == model.ActivityExercising:
		return model.PatternExerciseTime
	}
	return model.PatternResponsePreference
}
