package strategy

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// OptimizeReminderBatching groups reminders for delivery to one user.
//
// Reminders are ordered by priority and, when the strategy prioritizes by
// type, by type preference before the provider's batching runs. Batching
// regroups by trigger time, so each batch is ordered by type preference
// again before splitting. Splitting a batch larger than the user's
// MaxBatchSize pushes the least preferred types into the overflow batches.
// Every reminder appears in exactly one batch.
func (s *TimingStrategy) OptimizeReminderBatching(ctx context.Context, reminders []*model.Reminder, userID string) [][]*model.Reminder {
	strat, _, err := s.load(ctx, userID)
	if err != nil {
		s.logger.Warn("batching with default strategy",
			zap.String("user_id", userID),
			zap.Error(err))
		strat = DefaultStrategy(userID, s.now())
	}

	prefs := strat.BatchingPreferences.TypePreferences
	byType := strat.BatchingPreferences.PrioritizeByType
	ordered := make([]*model.Reminder, 0, len(reminders))
	for _, r := range reminders {
		if r != nil {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return byType && prefs[ordered[i].Type] > prefs[ordered[j].Type]
	})

	uctx, err := s.provider.AnalyzeUserContext(ctx, userID)
	if err != nil {
		s.logger.Warn("batching without fresh context",
			zap.String("user_id", userID),
			zap.Error(err))
		uctx = nil
		if cached, ok := s.provider.GetCurrentContext(userID); ok {
			uctx = cached
		}
	}
	batches := s.provider.BatchReminders(ordered, uctx)

	if byType {
		for _, b := range batches {
			sort.SliceStable(b, func(i, j int) bool {
				return prefs[b[i].Type] > prefs[b[j].Type]
			})
		}
	}
	return splitBatches(batches, strat.BatchingPreferences.MaxBatchSize)
}

// splitBatches breaks batches longer than max into consecutive chunks.
func splitBatches(batches [][]*model.Reminder, max int) [][]*model.Reminder {
	if max < 1 {
		max = 1
	}
	out := make([][]*model.Reminder, 0, len(batches))
	for _, b := range batches {
		for len(b) > max {
			out = append(out, b[:max:max])
			b = b[max:]
		}
		if len(b) > 0 {
			out = append(out, b)
		}
	}
	return out
}
