package contextual

import (
	"sort"
	"time"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// batchWindow is how far a reminder may trail the head of its batch.
const batchWindow = 5 * time.Minute

// BatchCap returns how many reminders the user can take at once in uctx:
// 5 when highly interruptible, 3 at MEDIUM, otherwise (or without a
// context) 1.
func BatchCap(uctx *model.UserContext) int {
	if uctx == nil {
		return 1
	}
	switch uctx.Interruptibility {
	case model.InterruptibilityHigh:
		return 5
	case model.InterruptibilityMedium:
		return 3
	}
	return 1
}

// BatchReminders groups reminders that can be delivered together in uctx.
//
// Reminders are ordered by priority (highest first) and then trigger time,
// keeping the input order on ties. A reminder joins the open batch when it
// has the same priority as the batch head, triggers within 5 minutes of it,
// shares a delivery method with it, and the batch is below BatchCap(uctx).
// Every input reminder appears in exactly one batch. The input slice is not
// modified.
func (p *Provider) BatchReminders(reminders []*model.Reminder, uctx *model.UserContext) [][]*model.Reminder {
	return BatchReminders(reminders, BatchCap(uctx))
}

// BatchReminders is the batching algorithm used by Provider.BatchReminders
// with an explicit batch cap. A cap below 1 is treated as 1.
func BatchReminders(reminders []*model.Reminder, maxBatch int) [][]*model.Reminder {
	if maxBatch < 1 {
		maxBatch = 1
	}
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
		return ordered[i].TriggerTime.Before(ordered[j].TriggerTime)
	})

	var batches [][]*model.Reminder
	var current []*model.Reminder
	for _, r := range ordered {
		if len(current) > 0 {
			head := current[0]
			if r.Priority == head.Priority &&
				r.TriggerTime.Sub(head.TriggerTime) <= batchWindow &&
				r.SharesMethodWith(head) &&
				len(current) < maxBatch {
				current = append(current, r)
				continue
			}
			batches = append(batches, current)
		}
		current = []*model.Reminder{r}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
