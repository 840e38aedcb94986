package contextual

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/events"
	"github.com/oceanbase/remindsense-go/pkg/intelligence"
	"github.com/oceanbase/remindsense-go/pkg/model"
)

// correctionThreshold is the minimum importance for a correction to be
// applied to the cached snapshot.
const correctionThreshold = 0.5

// LearnFromContext forwards an observed outcome to the pattern store and
// records the context in the user's recent-context list. Emits
// context:learned. Only a pattern store failure is returned; failing to
// record the context is logged.
func (p *Provider) LearnFromContext(
	ctx context.Context,
	userID string,
	uctx *model.UserContext,
	outcome model.LearningOutcome,
) (*intelligence.LearningResult, error) {
	result, err := p.patterns.LearnFromContext(ctx, userID, uctx, outcome)
	if err != nil {
		return nil, fmt.Errorf("LearnFromContext: %w", err)
	}

	now := p.now()
	entry := model.ContextPattern{
		Context:    uctx.Clone(),
		Outcome:    outcome.Kind,
		Confidence: result.Outcome.Confidence,
		RecordedAt: now,
	}
	// Drop the nested pattern copy; the pattern store already has them.
	entry.Context.HistoricalPatterns = nil

	// The pattern update is already committed; losing the recent-context
	// entry must not report the whole call as failed.
	if err := p.repo.Update(ctx, userID, func(st *model.UserState) error {
		st.AppendContextPattern(entry)
		return nil
	}); err != nil {
		p.logger.Warn("recording learned context failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	payload := map[string]interface{}{
		"outcome":    string(outcome.Kind),
		"confidence": result.Outcome.Confidence,
		"activity":   string(uctx.CurrentActivity),
	}
	if result.Pattern != nil {
		payload["pattern_id"] = result.Pattern.ID
	}
	p.emit(events.ContextLearned, userID, payload)
	return result, nil
}

// LearnFromUserFeedback turns feedback about an inferred context into a
// learning outcome and applies the user's corrections.
//
// The feedback's own snapshot is used when present, otherwise the cached
// one, otherwise a fresh analysis. Corrections with importance of at least
// 0.5 are merged into the cached snapshot.
func (p *Provider) LearnFromUserFeedback(ctx context.Context, userID string, fb *model.ContextFeedback) (*intelligence.LearningResult, error) {
	if userID == "" || fb == nil {
		return nil, fmt.Errorf("LearnFromUserFeedback: user ID and feedback are required: %w", model.ErrInvalidInput)
	}
	if fb.Rating < 0 || fb.Rating > 5 {
		return nil, fmt.Errorf("LearnFromUserFeedback: rating %d out of range: %w", fb.Rating, model.ErrInvalidInput)
	}

	uctx := fb.Context
	if uctx == nil {
		if cached, ok := p.repo.CachedContext(userID); ok {
			uctx = cached
		} else {
			analyzed, err := p.AnalyzeUserContext(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("LearnFromUserFeedback: %w", err)
			}
			uctx = analyzed
		}
	}

	kind, confidence := fb.Outcome()
	result, err := p.LearnFromContext(ctx, userID, uctx, model.LearningOutcome{
		Kind:         kind,
		Confidence:   confidence,
		FromFeedback: true,
		Metadata: map[string]interface{}{
			model.MetaSource: "feedback:" + strings.ToLower(string(fb.FeedbackType)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("LearnFromUserFeedback: %w", err)
	}

	if update, ok := correctionsToUpdate(fb.Corrections); ok {
		if _, err := p.UpdateContextModel(userID, update); err != nil {
			p.logger.Warn("applying context corrections failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	return result, nil
}

// correctionsToUpdate converts important corrections into a context
// update. Unknown fields and values are ignored.
func correctionsToUpdate(corrections []model.Correction) (model.ContextUpdate, bool) {
	var update model.ContextUpdate
	for _, c := range corrections {
		if c.Importance < correctionThreshold {
			continue
		}
		value := strings.ToUpper(strings.TrimSpace(c.ActualValue))
		switch strings.ToLower(c.Field) {
		case "activity":
			if a := model.Activity(value); a.Valid() {
				update.CurrentActivity = &a
			}
		case "availability":
			if a := model.Availability(value); a.Valid() {
				update.Availability = &a
			}
		case "location":
			loc := model.Location{Confidence: c.Importance}
			if lt := model.LocationType(value); lt.Valid() {
				loc.Type = lt
				loc.Name = strings.ToLower(value)
			} else {
				loc.Type = model.LocationUnknown
				loc.Name = strings.TrimSpace(c.ActualValue)
			}
			update.Location = &loc
		}
	}
	return update, !update.Empty()
}
