package model

import "time"

// Task represents a single to-do item. Collection order is the display order.
type Task struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Category   Category   `json:"category"`
	Completed  bool       `json:"completed"`
	ReminderAt *time.Time `json:"reminderAt"`
}

func (t Task) RecordID() string {
	return t.ID
}

// Due reports whether the reminder has been reached for an incomplete task.
func (t Task) Due(now time.Time) bool {
	if t.Completed || t.ReminderAt == nil {
		return false
	}
	return !now.Before(*t.ReminderAt)
}
