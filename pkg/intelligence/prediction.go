package intelligence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// fallbackConfidence is reported when a prediction falls back to the
// original trigger time.
const fallbackConfidence = 0.3

// TimingPrediction is the pattern store's estimate of when a reminder
// should be delivered.
type TimingPrediction struct {
	// SuggestedTime is the predicted delivery time.
	SuggestedTime time.Time

	// Delay is SuggestedTime minus the base time (later of now and trigger).
	Delay time.Duration

	// Confidence is in [0, 1]. Fallback predictions stay below 0.5.
	Confidence float64

	// Reasoning explains how the time was chosen.
	Reasoning string

	// Alternatives holds up to MaxAlternatives other slots, earliest first.
	Alternatives []time.Time

	// PatternsUsed is the number of relevant patterns that were weighed.
	PatternsUsed int

	// Fallback is true when prediction failed and SuggestedTime is the
	// original trigger time.
	Fallback bool
}

// PredictOptimalTiming estimates the best delivery time for reminder.
//
// Relevant patterns are those whose hour is within MatchWindowHours of the
// current hour or whose weekend flag matches, whose activity is unset or
// equal to the current activity, and whose recorded priority does not
// exceed the reminder's. Each contributes the delay until its hour next
// occurs, weighted by confidence × recency. The weighted mean delay is
// capped by MaxDelay for the reminder's priority; with no relevant pattern
// the cap itself is used.
//
// The method never returns an error. On failure it returns the original
// trigger time with confidence below 0.5.
func (s *PatternStore) PredictOptimalTiming(
	ctx context.Context,
	userID string,
	reminder *model.Reminder,
	uctx *model.UserContext,
) *TimingPrediction {
	if reminder == nil {
		return s.fallback(userID, time.Time{}, fmt.Errorf("reminder is required: %w", model.ErrInvalidInput))
	}
	if userID == "" || uctx == nil {
		return s.fallback(userID, reminder.TriggerTime, fmt.Errorf("user ID and context are required: %w", model.ErrInvalidInput))
	}

	st, err := s.repo.View(ctx, userID)
	if err != nil {
		return s.fallback(userID, reminder.TriggerTime, err)
	}
	if err := ctx.Err(); err != nil {
		return s.fallback(userID, reminder.TriggerTime, err)
	}

	now := s.now()
	base := reminder.TriggerTime
	if base.Before(now) {
		base = now
	}
	ceiling := MaxDelay(reminder.Priority)

	var weightSum, weightedDelay float64
	var hours []int
	used := 0
	for _, p := range st.Patterns {
		if !s.relevant(p, uctx, reminder.Priority) {
			continue
		}
		hour, ok := p.Hour()
		if !ok {
			continue
		}
		w := p.Confidence * s.decay.Weight(p.LastObserved, now)
		d := nextOccurrence(base, hour).Sub(base)
		weightSum += w
		weightedDelay += w * d.Minutes()
		hours = append(hours, hour)
		used++
	}

	pred := &TimingPrediction{PatternsUsed: used}
	if used == 0 || weightSum == 0 {
		pred.Delay = ceiling
		pred.Confidence = 0.5
		pred.Reasoning = fmt.Sprintf("no relevant patterns; using the %s priority limit of %s", reminder.Priority, ceiling)
	} else {
		delay := time.Duration(weightedDelay/weightSum) * time.Minute
		if delay > ceiling {
			delay = ceiling
		}
		pred.Delay = delay
		pred.Confidence = 0.5 + 0.45*clamp(weightSum/float64(used), 0, 1)
		pred.Reasoning = fmt.Sprintf("weighted average of %d relevant patterns, capped at %s for %s priority", used, ceiling, reminder.Priority)
	}
	pred.SuggestedTime = base.Add(pred.Delay)
	pred.Alternatives = s.alternatives(hours, base, pred.SuggestedTime)
	return pred
}

// relevant reports whether p applies to the current context and priority.
func (s *PatternStore) relevant(p *model.BehaviorPattern, uctx *model.UserContext, priority model.Priority) bool {
	timeMatch := false
	if h, ok := p.Hour(); ok && hourDistance(h, uctx.TimeOfDay.Hour) <= s.config.MatchWindowHours {
		timeMatch = true
	}
	if w, ok := model.MetaBool(p.Metadata, model.MetaIsWeekend); ok && w == uctx.TimeOfDay.IsWeekend {
		timeMatch = true
	}
	if !timeMatch {
		return false
	}

	if a := p.Activity(); a != "" && a != uctx.CurrentActivity {
		return false
	}

	if name := model.MetaString(p.Metadata, model.MetaPriority); name != "" {
		if pp, err := model.ParsePriority(name); err == nil && pp > priority {
			return false
		}
	}
	return true
}

// alternatives lists the next occurrence of each distinct hour among the
// relevant patterns, skipping the suggested hour.
func (s *PatternStore) alternatives(hours []int, base, suggested time.Time) []time.Time {
	if s.config.MaxAlternatives <= 0 {
		return nil
	}

	seen := map[int]bool{suggested.Hour(): true}
	slots := make([]time.Time, 0, len(hours))
	for _, h := range hours {
		if h < 0 || h > 23 || seen[h] {
			continue
		}
		seen[h] = true
		slots = append(slots, nextOccurrence(base, h))
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	if len(slots) > s.config.MaxAlternatives {
		slots = slots[:s.config.MaxAlternatives]
	}
	return slots
}

func (s *PatternStore) fallback(userID string, original time.Time, err error) *TimingPrediction {
	s.logger.Debug("timing prediction fell back to original time",
		zap.String("user_id", userID),
		zap.Error(err))
	return &TimingPrediction{
		SuggestedTime: original,
		Confidence:    fallbackConfidence,
		Reasoning:     fmt.Sprintf("%v: %v; keeping the original time", model.ErrPredictionFailed, err),
		Fallback:      true,
	}
}

// nextOccurrence returns the first time at or after from whose hour is
// hour. A from already inside that hour is returned unchanged.
func nextOccurrence(from time.Time, hour int) time.Time {
	if from.Hour() == hour {
		return from
	}
	t := time.Date(from.Year(), from.Month(), from.Day(), hour, 0, 0, 0, from.Location())
	if t.Before(from) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
