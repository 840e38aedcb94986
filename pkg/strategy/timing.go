package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// fallbackConfidence is reported when optimization falls back to the
// original trigger time.
const fallbackConfidence = 0.3

// OptimizedTiming is the result of timing optimization.
type OptimizedTiming struct {
	ReminderID    string    `json:"reminder_id"`
	OriginalTime  time.Time `json:"original_time"`
	OptimizedTime time.Time `json:"optimized_time"`

	// Confidence is in [0, 1].
	Confidence float64 `json:"confidence"`

	// Reasoning lists the steps that shaped the result, in order.
	Reasoning []string `json:"reasoning"`

	// Deferral is the provider's deferral decision (nil on fallback).
	Deferral *model.DeferralDecision `json:"deferral,omitempty"`

	// Context is the snapshot the decision was made on (nil on fallback).
	Context *model.UserContext `json:"context,omitempty"`

	// Fallback is true when optimization failed and OptimizedTime is the
	// original trigger time.
	Fallback bool `json:"fallback"`
}

// OptimizeReminderTiming computes the delivery time for reminder.
//
// The pipeline starts from the deferral target (or the predicted optimal
// time when not deferred) and then:
//  1. snaps to the nearest preferred hour, rolling to the next day when the
//     result is not after now;
//  2. moves HIGH and CRITICAL reminders no more than
//     HighPriorityAdvanceMinutes before the original time when interruption
//     is allowed, delays deferred LOW reminders by at least
//     LowPriorityDelayMinutes, and keeps deferred reminders at or after
//     the deferral target;
//  3. adds the adjustment for the current activity and, on weekends, the
//     weekend adjustment.
//
// The result is never before now. The method never fails: on any error or
// cancellation it returns the original time with confidence 0.3 and a
// reasoning line naming the fallback.
func (s *TimingStrategy) OptimizeReminderTiming(ctx context.Context, reminder *model.Reminder) *OptimizedTiming {
	if reminder == nil {
		return s.fallback(nil, fmt.Errorf("reminder is required: %w", model.ErrInvalidInput))
	}
	if reminder.UserID == "" {
		return s.fallback(reminder, fmt.Errorf("reminder has no user: %w", model.ErrInvalidInput))
	}

	strat, adaptations, err := s.load(ctx, reminder.UserID)
	if err != nil {
		return s.fallback(reminder, err)
	}
	uctx, err := s.provider.AnalyzeUserContext(ctx, reminder.UserID)
	if err != nil {
		return s.fallback(reminder, err)
	}
	decision := s.provider.ShouldDeferReminder(ctx, reminder, uctx)

	now := s.now()
	original := reminder.TriggerTime
	reasons := []string{decision.Reason}

	var t time.Time
	if decision.ShouldDefer && decision.DeferUntil != nil {
		t = *decision.DeferUntil
		reasons = append(reasons, fmt.Sprintf("deferred to %s", t.Format(time.Kitchen)))
	} else {
		t = s.provider.PredictOptimalReminderTime(ctx, reminder, uctx)
		reasons = append(reasons, fmt.Sprintf("predicted optimal time %s", t.Format(time.Kitchen)))
	}
	if err := ctx.Err(); err != nil {
		return s.fallback(reminder, err)
	}

	// 1. Preferred hours.
	if snapped, ok := snapToPreferredHour(t, strat.TimingPreferences.PreferredHours, now); ok && !snapped.Equal(t) {
		t = snapped
		reasons = append(reasons, fmt.Sprintf("moved to preferred hour %d", t.Hour()))
	}

	// 2. Priority handling.
	ph := strat.PriorityHandling
	switch {
	case reminder.Priority >= model.PriorityHigh && ph.AllowHighPriorityInterruption:
		// Only early delivery is bounded; a deferral still pushes the
		// reminder past an unsuitable moment.
		limit := time.Duration(ph.HighPriorityAdvanceMinutes) * time.Minute
		if earliest := original.Add(-limit); t.Before(earliest) {
			t = earliest
			reasons = append(reasons, fmt.Sprintf("%s priority not advanced more than %d minutes",
				strings.ToLower(reminder.Priority.String()), ph.HighPriorityAdvanceMinutes))
		}
	case reminder.Priority == model.PriorityLow && decision.ShouldDefer:
		if earliest := original.Add(time.Duration(ph.LowPriorityDelayMinutes) * time.Minute); t.Before(earliest) {
			t = earliest
			reasons = append(reasons, fmt.Sprintf("low priority delayed at least %d minutes", ph.LowPriorityDelayMinutes))
		}
	}

	if decision.ShouldDefer && decision.DeferUntil != nil && t.Before(*decision.DeferUntil) {
		t = *decision.DeferUntil
		reasons = append(reasons, "not earlier than the deferral")
	}

	// 3. Context adjustments.
	if adj := strat.ContextAdjustments[uctx.CurrentActivity]; adj != 0 {
		t = t.Add(time.Duration(adj) * time.Minute)
		reasons = append(reasons, fmt.Sprintf("adjusted %+d minutes for %s", adj, strings.ToLower(string(uctx.CurrentActivity))))
	}
	if uctx.TimeOfDay.IsWeekend && strat.TimingPreferences.WeekendAdjustment != 0 {
		t = t.Add(time.Duration(strat.TimingPreferences.WeekendAdjustment) * time.Minute)
		reasons = append(reasons, fmt.Sprintf("adjusted %+d minutes for the weekend", strat.TimingPreferences.WeekendAdjustment))
	}

	if t.Before(now) {
		t = now
		reasons = append(reasons, "not earlier than now")
	}

	confidence := (0.7 + uctx.Location.Confidence) / 2
	if adaptations > 10 {
		confidence += 0.1
	}
	if reminder.Priority < model.PriorityHigh || ph.AllowHighPriorityInterruption {
		confidence += 0.1
	}
	if confidence > 1 {
		confidence = 1
	}

	return &OptimizedTiming{
		ReminderID:    reminder.ID,
		OriginalTime:  original,
		OptimizedTime: t,
		Confidence:    confidence,
		Reasoning:     reasons,
		Deferral:      decision,
		Context:       uctx,
	}
}

func (s *TimingStrategy) fallback(reminder *model.Reminder, err error) *OptimizedTiming {
	out := &OptimizedTiming{
		Confidence: fallbackConfidence,
		Reasoning:  []string{fmt.Sprintf("fallback to original time: %v", err)},
		Fallback:   true,
	}
	userID := ""
	if reminder != nil {
		out.ReminderID = reminder.ID
		out.OriginalTime = reminder.TriggerTime
		out.OptimizedTime = reminder.TriggerTime
		userID = reminder.UserID
	}
	s.logger.Warn("timing optimization fell back to original time",
		zap.String("user_id", userID),
		zap.Error(err))
	return out
}

// snapToPreferredHour moves t to the preferred hour closest to its own
// hour on the same day, keeping minutes and seconds. Ties go to the earlier
// hour. When the result is not after now it moves to the next day.
func snapToPreferredHour(t time.Time, preferred []int, now time.Time) (time.Time, bool) {
	best, bestDist := -1, 25
	for _, h := range preferred {
		if h < 0 || h > 23 {
			continue
		}
		d := h - t.Hour()
		if d < 0 {
			d = -d
		}
		if d < bestDist || (d == bestDist && h < best) {
			best, bestDist = h, d
		}
	}
	if best < 0 {
		return t, false
	}
	if best == t.Hour() {
		return t, true
	}
	snapped := time.Date(t.Year(), t.Month(), t.Day(), best, t.Minute(), t.Second(), 0, t.Location())
	if !snapped.After(now) {
		snapped = snapped.AddDate(0, 0, 1)
	}
	return snapped, true
}
