package storage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/remindsense-go/pkg/model"
	"github.com/oceanbase/remindsense-go/pkg/storage"
)

func TestValidateTableName(t *testing.T) {
	for _, name := range []string{"user_states", "States2", "_t"} {
		assert.NoError(t, storage.ValidateTableName(name), name)
	}
	for _, name := range []string{"", "1abc", "user-states", "t; DROP TABLE x", "a b"} {
		assert.Error(t, storage.ValidateTableName(name), name)
	}
}

func TestDecodeStateKeepsPatternMetadataUsable(t *testing.T) {
	observed := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	st := model.NewUserState("u1")
	st.Patterns = []*model.BehaviorPattern{{
		ID:           42,
		Type:         model.PatternMealTimes,
		Confidence:   0.75,
		Frequency:    3,
		LastObserved: observed,
		Metadata: map[string]interface{}{
			model.MetaHour:      19,
			model.MetaActivity:  model.ActivityEating,
			model.MetaIsWeekend: false,
		},
	}}
	st.Adaptation = &model.AdaptationStrategy{InterruptibilityThreshold: model.InterruptibilityLow}

	data, err := storage.EncodeState(st)
	require.NoError(t, err)
	got, err := storage.DecodeState(data)
	require.NoError(t, err)

	require.Len(t, got.Patterns, 1)
	p := got.Patterns[0]
	h, ok := p.Hour()
	assert.True(t, ok)
	assert.Equal(t, 19, h)
	assert.Equal(t, model.ActivityEating, p.Activity())
	assert.True(t, p.LastObserved.Equal(observed))
	assert.Equal(t, model.InterruptibilityLow, got.Adaptation.InterruptibilityThreshold)
}

func TestDecodeStateRejectsGarbage(t *testing.T) {
	_, err := storage.DecodeState([]byte("{not json"))
	assert.Error(t, err)
}
