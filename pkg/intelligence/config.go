// Package intelligence provides the behavior pattern store: learning
// patterns from delivery outcomes, recency decay, timing prediction and the
// pattern-level adaptation strategy.
package intelligence

import (
	"fmt"
	"time"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// Config contains the tunable constants of the pattern store.
type Config struct {
	// LearningRate scales the confidence delta applied to a matched pattern
	// (delta = ±outcome confidence × LearningRate).
	LearningRate float64 `json:"learning_rate"`

	// PruneThreshold removes patterns whose confidence falls below it.
	PruneThreshold float64 `json:"prune_threshold"`

	// MinConfidence and MaxConfidence bound every pattern confidence.
	MinConfidence float64 `json:"min_confidence"`
	MaxConfidence float64 `json:"max_confidence"`

	// InitialConfidence is the base confidence of a new pattern, before
	// adding InitialConfidenceBoost × outcome confidence.
	InitialConfidence      float64 `json:"initial_confidence"`
	InitialConfidenceBoost float64 `json:"initial_confidence_boost"`

	// MaxPatterns caps the number of patterns kept per user.
	MaxPatterns int `json:"max_patterns"`

	// RecencyHorizonDays is the e^-1 horizon of the recency weight.
	RecencyHorizonDays float64 `json:"recency_horizon_days"`

	// MatchWindowHours is the circular hour distance considered "same time".
	MatchWindowHours int `json:"match_window_hours"`

	// MinMatchingFeatures is how many features must agree for an outcome
	// to update an existing pattern.
	MinMatchingFeatures int `json:"min_matching_features"`

	// MaxAlternatives caps the alternative slots of a prediction.
	MaxAlternatives int `json:"max_alternatives"`
}

// DefaultConfig returns the default pattern store configuration.
func DefaultConfig() *Config {
	return &Config{
		LearningRate:           0.1,
		PruneThreshold:         0.6,
		MinConfidence:          0.1,
		MaxConfidence:          1.0,
		InitialConfidence:      0.6,
		InitialConfidenceBoost: 0.1,
		MaxPatterns:            100,
		RecencyHorizonDays:     30,
		MatchWindowHours:       2,
		MinMatchingFeatures:    2,
		MaxAlternatives:        3,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning rate must be in (0, 1], got %v", c.LearningRate)
	}
	if c.MinConfidence < 0 || c.MaxConfidence > 1 || c.MinConfidence >= c.MaxConfidence {
		return fmt.Errorf("confidence bounds [%v, %v] are invalid", c.MinConfidence, c.MaxConfidence)
	}
	if c.PruneThreshold < c.MinConfidence || c.PruneThreshold > c.MaxConfidence {
		return fmt.Errorf("prune threshold %v outside confidence bounds", c.PruneThreshold)
	}
	if c.MaxPatterns <= 0 {
		return fmt.Errorf("max patterns must be positive, got %d", c.MaxPatterns)
	}
	if c.RecencyHorizonDays <= 0 {
		return fmt.Errorf("recency horizon must be positive, got %v", c.RecencyHorizonDays)
	}
	if c.MinMatchingFeatures < 1 || c.MinMatchingFeatures > 4 {
		return fmt.Errorf("min matching features must be in [1, 4], got %d", c.MinMatchingFeatures)
	}
	return nil
}

// MaxDelay returns the longest a reminder of priority p may be postponed.
func MaxDelay(p model.Priority) time.Duration {
	switch p {
	case model.PriorityCritical:
		return 30 * time.Minute
	case model.PriorityHigh:
		return 2 * time.Hour
	case model.PriorityMedium:
		return 4 * time.Hour
	default:
		return 8 * time.Hour
	}
}
