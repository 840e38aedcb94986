package strategy

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/events"
	"github.com/oceanbase/remindsense-go/pkg/feedback"
	"github.com/oceanbase/remindsense-go/pkg/model"
)

const (
	baseStrength    = 0.1
	maxStrength     = 0.3
	generalStep     = 0.05
	timingBoost     = 0.1
	methodPenalty   = 0.1
	strongShift     = -30
	moderateShift   = -15
	maxTypeAffinity = 1.0
)

// AdaptReminderStrategy updates the user's strategy from feedback about a
// delivered reminder.
//
// Feedback is negative when it was not helpful or rated below 3, and
// positive when helpful and rated above 3; an unrated event counts as 3.
// The adaptation strength is 0.1, scaled by 1.5 for strong ratings (2 or
// less, 4 or more) and by 1.3 when not helpful, capped at 0.3.
//
// Per feedback type:
//   - TIMING: negative shifts the activity adjustment by -30 (rating below
//     2) or -15 (rating 2) minutes; positive with rating above 3 raises
//     strategy confidence by 0.1.
//   - DELIVERY_METHOD: negative adds 0.1 to the method's penalty.
//   - FREQUENCY: negative feedback complaining about too many reminders
//     shrinks MaxBatchSize by one, never below 1.
//   - GENERAL: confidence moves by ±0.05.
//
// The reminder type preference moves by ±strength. The adaptation is
// recorded, strategy:adapted and strategy:updated are emitted, and TIMING
// feedback is also fed to the context provider.
//
// Returns an error wrapping model.ErrInvalidInput for an empty user, a nil
// feedback, a rating outside 0-5 or an unknown feedback type; nothing is
// changed in that case.
func (s *TimingStrategy) AdaptReminderStrategy(
	ctx context.Context,
	userID string,
	fb *model.ReminderFeedback,
	reminder *model.Reminder,
) (*model.StrategyAdaptation, error) {
	if userID == "" || fb == nil {
		return nil, fmt.Errorf("AdaptReminderStrategy: user ID and feedback are required: %w", model.ErrInvalidInput)
	}
	if fb.Rating < 0 || fb.Rating > 5 {
		return nil, fmt.Errorf("AdaptReminderStrategy: rating %d out of range: %w", fb.Rating, model.ErrInvalidInput)
	}
	if !fb.FeedbackType.Valid() {
		return nil, fmt.Errorf("AdaptReminderStrategy: unknown feedback type %q: %w", fb.FeedbackType, model.ErrInvalidInput)
	}

	rating := fb.EffectiveRating()
	negative := !fb.WasHelpful || rating < 3
	positive := fb.WasHelpful && rating > 3
	strength := adaptationStrength(rating, fb.WasHelpful)

	// Interpret before taking the user lock; an LLM call can be slow.
	var signals feedback.Signals
	if fb.Comment != "" {
		sig, err := s.interpreter.Interpret(ctx, fb)
		if err != nil {
			s.logger.Warn("feedback interpretation failed",
				zap.String("user_id", userID),
				zap.Error(err))
		} else {
			signals = sig
		}
	}

	activity := fb.Activity
	if activity == "" {
		if cached, ok := s.provider.GetCurrentContext(userID); ok {
			activity = cached.CurrentActivity
		}
	}

	now := s.now()
	var record model.StrategyAdaptation
	var updated *model.ReminderStrategy
	err := s.repo.Update(ctx, userID, func(st *model.UserState) error {
		strat := s.ensureStrategy(st)
		changes := make(map[string]string)

		switch fb.FeedbackType {
		case model.FeedbackTiming:
			if negative && activity != "" {
				shift := 0
				switch {
				case rating < 2:
					shift = strongShift
				case rating < 3:
					shift = moderateShift
				}
				if shift != 0 {
					if strat.ContextAdjustments == nil {
						strat.ContextAdjustments = make(map[model.Activity]int)
					}
					strat.ContextAdjustments[activity] += shift
					changes["context_adjustments."+string(activity)] = strconv.Itoa(shift)
				}
			}
			if positive && rating > 3 {
				strat.Confidence = clampUnit(strat.Confidence + timingBoost)
				changes["confidence"] = fmt.Sprintf("%+.2f", timingBoost)
			}

		case model.FeedbackDeliveryMethod:
			method := fb.DeliveryMethod
			if method == "" && reminder != nil && len(reminder.DeliveryMethods) > 0 {
				method = reminder.DeliveryMethods[0]
			}
			if method != "" {
				if negative {
					if strat.DeliveryPreferences.MethodPenalties == nil {
						strat.DeliveryPreferences.MethodPenalties = make(map[model.DeliveryMethod]float64)
					}
					strat.DeliveryPreferences.MethodPenalties[method] += methodPenalty
					changes["method_penalties."+string(method)] = fmt.Sprintf("%+.2f", methodPenalty)
				} else if positive && !containsMethod(strat.DeliveryPreferences.PreferredMethods, method) {
					strat.DeliveryPreferences.PreferredMethods = append(strat.DeliveryPreferences.PreferredMethods, method)
					changes["preferred_methods"] = "+" + string(method)
				}
			}

		case model.FeedbackFrequency:
			if negative && signals.TooMany {
				before := strat.BatchingPreferences.MaxBatchSize
				after := before - 1
				if after < 1 {
					after = 1
				}
				if after != before {
					strat.BatchingPreferences.MaxBatchSize = after
					changes["max_batch_size"] = fmt.Sprintf("%d->%d", before, after)
				}
			}

		case model.FeedbackGeneral:
			switch {
			case positive:
				strat.Confidence = clampUnit(strat.Confidence + generalStep)
				changes["confidence"] = fmt.Sprintf("%+.2f", generalStep)
			case negative:
				strat.Confidence = clampUnit(strat.Confidence - generalStep)
				changes["confidence"] = fmt.Sprintf("%+.2f", -generalStep)
			}
		}

		if reminder != nil && reminder.Type != "" && (positive || negative) {
			delta := strength
			if negative {
				delta = -strength
			}
			if strat.BatchingPreferences.TypePreferences == nil {
				strat.BatchingPreferences.TypePreferences = make(map[string]float64)
			}
			v := strat.BatchingPreferences.TypePreferences[reminder.Type] + delta
			if v > maxTypeAffinity {
				v = maxTypeAffinity
			}
			if v < -maxTypeAffinity {
				v = -maxTypeAffinity
			}
			strat.BatchingPreferences.TypePreferences[reminder.Type] = v
			changes["type_preferences."+reminder.Type] = fmt.Sprintf("%+.2f", delta)
		}

		strat.LastUpdated = now
		record = model.StrategyAdaptation{
			ID:           s.node.Generate().Int64(),
			UserID:       userID,
			FeedbackType: fb.FeedbackType,
			Rating:       fb.Rating,
			WasHelpful:   fb.WasHelpful,
			Strength:     strength,
			Changes:      changes,
			CreatedAt:    now,
		}
		if reminder != nil {
			record.ReminderID = reminder.ID
			record.ReminderType = reminder.Type
		} else {
			record.ReminderID = fb.ReminderID
		}
		st.AppendAdaptation(record)
		updated = strat.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("AdaptReminderStrategy: %w", err)
	}

	s.emit(events.StrategyAdapted, userID, map[string]interface{}{
		"adaptation_id": record.ID,
		"feedback_type": string(fb.FeedbackType),
		"was_helpful":   fb.WasHelpful,
		"rating":        fb.Rating,
		"strength":      strength,
		"changes":       len(record.Changes),
	})
	s.emit(events.StrategyUpdated, userID, map[string]interface{}{
		"confidence":     updated.Confidence,
		"max_batch_size": updated.BatchingPreferences.MaxBatchSize,
	})

	// Runs after the strategy lock is released; the provider takes the
	// same user lock.
	if fb.FeedbackType == model.FeedbackTiming {
		if _, err := s.provider.LearnFromUserFeedback(ctx, userID, &model.ContextFeedback{
			FeedbackType: fb.FeedbackType,
			Rating:       fb.Rating,
			WasHelpful:   fb.WasHelpful,
			Corrections:  fb.Corrections,
			ReceivedAt:   now,
		}); err != nil {
			s.logger.Warn("context learning from timing feedback failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	out := record
	out.Changes = make(map[string]string, len(record.Changes))
	for k, v := range record.Changes {
		out.Changes[k] = v
	}
	return &out, nil
}

// adaptationStrength scales the base strength by how decisive the
// feedback is.
func adaptationStrength(rating int, helpful bool) float64 {
	strength := baseStrength
	if rating <= 2 || rating >= 4 {
		strength *= 1.5
	}
	if !helpful {
		strength *= 1.3
	}
	if strength > maxStrength {
		strength = maxStrength
	}
	return strength
}

func containsMethod(list []model.DeliveryMethod, m model.DeliveryMethod) bool {
	for _, x := range list {
		if x == m {
			return true
		}
	}
	return false
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
