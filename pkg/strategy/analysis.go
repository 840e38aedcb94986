package strategy

import (
	"context"
	"fmt"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

const (
	// effectivenessWindow is how many recent adaptations effectiveness is
	// computed over.
	effectivenessWindow = 20

	lowEffectiveness       = 0.6
	strongWorkPattern      = 0.8
	frequencyComplaintsMax = 3
)

// BehaviorAnalysis summarizes how well reminders work for a user.
type BehaviorAnalysis struct {
	UserID string `json:"user_id"`

	// Effectiveness is the helpful fraction of the last 20 adaptations, or
	// 0.5 when there are none.
	Effectiveness float64 `json:"effectiveness"`

	TotalAdaptations int                        `json:"total_adaptations"`
	FeedbackByType   map[model.FeedbackType]int `json:"feedback_by_type"`

	// TopPatterns are up to three highest-confidence patterns.
	TopPatterns []*model.BehaviorPattern `json:"top_patterns,omitempty"`

	Recommendations []string `json:"recommendations"`
}

// AnalyzeUserBehaviorPatterns reviews the user's adaptation history and
// patterns and suggests strategy changes.
func (s *TimingStrategy) AnalyzeUserBehaviorPatterns(ctx context.Context, userID string) (*BehaviorAnalysis, error) {
	if userID == "" {
		return nil, fmt.Errorf("AnalyzeUserBehaviorPatterns: user ID is required: %w", model.ErrInvalidInput)
	}
	st, err := s.repo.View(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeUserBehaviorPatterns: %w", err)
	}

	a := &BehaviorAnalysis{
		UserID:           userID,
		Effectiveness:    0.5,
		TotalAdaptations: len(st.Adaptations),
		FeedbackByType:   make(map[model.FeedbackType]int),
		Recommendations:  []string{},
	}

	recent := st.Adaptations
	if len(recent) > effectivenessWindow {
		recent = recent[len(recent)-effectivenessWindow:]
	}
	if len(recent) > 0 {
		helpful := 0
		for _, ad := range recent {
			if ad.WasHelpful {
				helpful++
			}
		}
		a.Effectiveness = float64(helpful) / float64(len(recent))
	}

	frequencyComplaints := 0
	for _, ad := range st.Adaptations {
		a.FeedbackByType[ad.FeedbackType]++
		if ad.FeedbackType == model.FeedbackFrequency && !ad.WasHelpful {
			frequencyComplaints++
		}
	}

	// Patterns are kept sorted by confidence.
	top := st.Patterns
	if len(top) > 3 {
		top = top[:3]
	}
	a.TopPatterns = top

	if a.Effectiveness < lowEffectiveness {
		a.Recommendations = append(a.Recommendations,
			"Reminder effectiveness is low; consider retuning timing preferences")
	}
	for _, p := range st.Patterns {
		if p.Type == model.PatternWorkHours && p.Confidence > strongWorkPattern {
			a.Recommendations = append(a.Recommendations,
				"Strong work-hours pattern detected; optimize reminders during work hours")
			break
		}
	}
	if frequencyComplaints > frequencyComplaintsMax {
		a.Recommendations = append(a.Recommendations,
			"Frequent complaints about reminder volume; reduce batch size or frequency")
	}
	return a, nil
}
