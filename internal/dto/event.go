package dto

import (
	"time"

	"github.com/noah-isme/lexcal-api/internal/models"
)

// CreateEventRequest is the payload for creating a single event or a recurring template.
type CreateEventRequest struct {
	UserID                  string                 `json:"user_id" validate:"omitempty,max=64"`
	Title                   string                 `json:"title" validate:"required,max=200"`
	Description             string                 `json:"description" validate:"max=4000"`
	Location                string                 `json:"location" validate:"max=255"`
	EventType               string                 `json:"event_type" validate:"required,max=64"`
	StartTime               time.Time              `json:"start_time" validate:"required"`
	EndTime                 *time.Time             `json:"end_time"`
	IsAllDay                bool                   `json:"is_all_day"`
	BufferBefore            int                    `json:"buffer_before" validate:"gte=0,lte=1440"`
	BufferAfter             int                    `json:"buffer_after" validate:"gte=0,lte=1440"`
	TravelTimeMinutes       int                    `json:"travel_time_minutes" validate:"gte=0,lte=1440"`
	Priority                int                    `json:"priority" validate:"omitempty,priority"`
	IsRecurring             bool                   `json:"is_recurring"`
	RecurrencePattern       string                 `json:"recurrence_pattern" validate:"omitempty,recurrence_pattern"`
	RecurrenceEndDate       string                 `json:"recurrence_end_date" validate:"omitempty,datetime=2006-01-02"`
	CaseID                  *string                `json:"case_id" validate:"omitempty,max=64"`
	ReminderTime            *int                   `json:"reminder_time" validate:"omitempty,gte=0,lte=43200"`
	IsFlexible              bool                   `json:"is_flexible"`
	Participants            []models.Participant   `json:"participants" validate:"omitempty,dive"`
	NotificationPreferences map[string]interface{} `json:"notification_preferences"`
}

// UpdateEventRequest patches an event; nil fields are left untouched.
type UpdateEventRequest struct {
	Title                   *string                `json:"title" validate:"omitempty,max=200"`
	Description             *string                `json:"description" validate:"omitempty,max=4000"`
	Location                *string                `json:"location" validate:"omitempty,max=255"`
	EventType               *string                `json:"event_type" validate:"omitempty,max=64"`
	StartTime               *time.Time             `json:"start_time"`
	EndTime                 *time.Time             `json:"end_time"`
	ClearEndTime            bool                   `json:"clear_end_time"`
	IsAllDay                *bool                  `json:"is_all_day"`
	BufferBefore            *int                   `json:"buffer_before" validate:"omitempty,gte=0,lte=1440"`
	BufferAfter             *int                   `json:"buffer_after" validate:"omitempty,gte=0,lte=1440"`
	TravelTimeMinutes       *int                   `json:"travel_time_minutes" validate:"omitempty,gte=0,lte=1440"`
	Priority                *int                   `json:"priority" validate:"omitempty,priority"`
	CaseID                  *string                `json:"case_id" validate:"omitempty,max=64"`
	ReminderTime            *int                   `json:"reminder_time" validate:"omitempty,gte=0,lte=43200"`
	IsFlexible              *bool                  `json:"is_flexible"`
	Participants            []models.Participant   `json:"participants" validate:"omitempty,dive"`
	NotificationPreferences map[string]interface{} `json:"notification_preferences"`
}

// EventQuery lists events over a date range. Dates are inclusive and read in
// the practice timezone.
type EventQuery struct {
	UserID string `form:"user_id" validate:"omitempty,max=64"`
	From   string `form:"from" validate:"required,datetime=2006-01-02"`
	To     string `form:"to" validate:"required,datetime=2006-01-02"`
}

// EventResult is returned after creating or updating an event.
type EventResult struct {
	Event     *models.Event  `json:"event"`
	Conflicts []models.Event `json:"conflicts"`
	Children  int            `json:"children_created"`
}
