package model

import "time"

// Reminder is a scheduled reminder owned by the reminder service.
//
// The engine treats it as read-only. TriggerTime is never changed in place;
// callers apply the optimized time returned by the engine themselves.
type Reminder struct {
	// ID is the identifier assigned by the reminder service.
	ID string `json:"id"`

	// UserID identifies the user the reminder belongs to.
	UserID string `json:"user_id"`

	// Priority is the urgency of the reminder.
	Priority Priority `json:"priority"`

	// TriggerTime is when the reminder was originally scheduled to fire.
	TriggerTime time.Time `json:"trigger_time"`

	// DeliveryMethods lists the channels the reminder may be presented through.
	DeliveryMethods []DeliveryMethod `json:"delivery_methods,omitempty"`

	// Type is a free-form category such as "medication" or "appointment".
	Type string `json:"type,omitempty"`
}

// SharesMethodWith reports whether r and other have at least one delivery
// method in common.
func (r *Reminder) SharesMethodWith(other *Reminder) bool {
	for _, a := range r.DeliveryMethods {
		for _, b := range other.DeliveryMethods {
			if a == b {
				return true
			}
		}
	}
	return false
}
