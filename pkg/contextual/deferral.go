package contextual

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

const (
	// deferThreshold is the score above which a reminder is deferred.
	deferThreshold = 0.6

	// minimumDeferral is the shortest postponement of a deferred reminder.
	minimumDeferral = 15 * time.Minute

	// priorityPenaltyStep is the penalty per priority step below CRITICAL.
	priorityPenaltyStep = 0.2
)

// PredictOptimalReminderTime returns when reminder should be delivered.
//
// The base time is the later of now and the trigger time. When the current
// interruptibility already satisfies the reminder's priority the base time
// is returned. Otherwise the pattern store's weighted-average delay is
// applied, capped by the priority's maximum delay.
func (p *Provider) PredictOptimalReminderTime(ctx context.Context, reminder *model.Reminder, uctx *model.UserContext) time.Time {
	now := p.now()
	if reminder == nil {
		return now
	}
	base := reminder.TriggerTime
	if base.Before(now) {
		base = now
	}
	if uctx == nil {
		return base
	}
	if uctx.Interruptibility.AtLeast(minimumInterruptibility(reminder.Priority)) {
		return base
	}

	pred := p.patterns.PredictOptimalTiming(ctx, reminder.UserID, reminder, uctx)
	if pred.Fallback {
		return base
	}
	return pred.SuggestedTime
}

// ShouldDeferReminder scores how unsuitable the current moment is for
// delivering reminder and decides whether to postpone it.
//
// The score sums penalties for availability, interruptibility and activity
// plus 0.2 per priority step below CRITICAL, clamped to [0, 1] and rounded
// to two decimals. A score above 0.6 defers the reminder to the predicted
// optimal time, but at least 15 minutes from now.
func (p *Provider) ShouldDeferReminder(ctx context.Context, reminder *model.Reminder, uctx *model.UserContext) *model.DeferralDecision {
	if reminder == nil || uctx == nil {
		return &model.DeferralDecision{Reason: "missing reminder or context", Confidence: 0}
	}

	var score float64
	var reasons []string
	add := func(v float64, reason string) {
		if v > 0 {
			score += v
			reasons = append(reasons, reason)
		}
	}

	switch uctx.Availability {
	case model.AvailabilityDoNotDisturb:
		add(0.9, "user is in do-not-disturb mode")
	case model.AvailabilityBusy:
		add(0.6, "user is busy")
	case model.AvailabilityAway:
		add(0.8, "user is away")
	}

	switch uctx.Interruptibility {
	case model.InterruptibilityNone:
		add(0.9, "user cannot be interrupted")
	case model.InterruptibilityLow:
		add(0.6, "interruptibility is low")
	case model.InterruptibilityMedium:
		add(0.3, "interruptibility is medium")
	}

	switch uctx.CurrentActivity {
	case model.ActivitySleeping:
		add(0.9, "user is sleeping")
	case model.ActivityWorking:
		add(0.5, "user is working")
	case model.ActivityEating:
		add(0.4, "user is eating")
	}

	steps := model.PriorityCritical.Weight() - reminder.Priority.Weight()
	add(float64(steps)*priorityPenaltyStep, fmt.Sprintf("%s priority", strings.ToLower(reminder.Priority.String())))

	score = math.Round(math.Min(math.Max(score, 0), 1)*100) / 100

	decision := &model.DeferralDecision{
		Score:                      score,
		AlternativeDeliveryMethods: alternativeMethods(uctx),
	}
	if score > deferThreshold {
		until := p.PredictOptimalReminderTime(ctx, reminder, uctx)
		if earliest := p.now().Add(minimumDeferral); until.Before(earliest) {
			until = earliest
		}
		decision.ShouldDefer = true
		decision.DeferUntil = &until
		decision.Confidence = score
		decision.Reason = "deferring: " + strings.Join(reasons, ", ")
		return decision
	}

	decision.Confidence = 1 - score
	if len(reasons) == 0 {
		decision.Reason = "good moment for delivery"
	} else {
		decision.Reason = "delivering despite: " + strings.Join(reasons, ", ")
	}
	return decision
}

// alternativeMethods suggests delivery methods that suit the context.
func alternativeMethods(uctx *model.UserContext) []model.DeliveryMethod {
	var out []model.DeliveryMethod
	seen := make(map[model.DeliveryMethod]bool)
	push := func(ms ...model.DeliveryMethod) {
		for _, m := range ms {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	if !uctx.DeviceProximity.IsNearby {
		push(model.DeliveryVisual)
	}
	if uctx.CurrentActivity == model.ActivityWorking {
		push(model.DeliveryVisual, model.DeliverySound)
	}
	return out
}
