package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ConflictStatus is the derived conflict marker stored on an event.
type ConflictStatus string

const (
	ConflictPotential ConflictStatus = "potential"
	ConflictResolved  ConflictStatus = "resolved"
)

// RecurrencePattern names the cadence of a recurring template.
type RecurrencePattern string

const (
	RecurrenceDaily    RecurrencePattern = "daily"
	RecurrenceWeekly   RecurrencePattern = "weekly"
	RecurrenceBiweekly RecurrencePattern = "biweekly"
	RecurrenceMonthly  RecurrencePattern = "monthly"
)

// Valid reports whether the pattern is one the expander understands.
func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Priority ranks events; 1 is the most urgent.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// DefaultEventDuration applies whenever an event has no end time.
const DefaultEventDuration = 60 * time.Minute

var courtEventTypes = map[string]struct{}{
	"Court Appearance": {},
	"Hearing":          {},
	"Mention":          {},
	"Filing":           {},
}

// IsCourtEventType reports whether eventType belongs to the court-related subset.
func IsCourtEventType(eventType string) bool {
	_, ok := courtEventTypes[eventType]
	return ok
}

// Participant is one attendee stored in the participants JSON column.
type Participant struct {
	Name  string `json:"name" validate:"required"`
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

// Event is a calendar entry owned by one user, optionally linked to a case.
type Event struct {
	ID                      string             `db:"id" json:"id"`
	Title                   string             `db:"title" json:"title"`
	Description             string             `db:"description" json:"description"`
	Location                string             `db:"location" json:"location"`
	EventType               string             `db:"event_type" json:"event_type"`
	StartTime               time.Time          `db:"start_time" json:"start_time"`
	EndTime                 *time.Time         `db:"end_time" json:"end_time,omitempty"`
	IsAllDay                bool               `db:"is_all_day" json:"is_all_day"`
	BufferBefore            int                `db:"buffer_before" json:"buffer_before"`
	BufferAfter             int                `db:"buffer_after" json:"buffer_after"`
	TravelTimeMinutes       int                `db:"travel_time_minutes" json:"travel_time_minutes"`
	Priority                Priority           `db:"priority" json:"priority"`
	IsRecurring             bool               `db:"is_recurring" json:"is_recurring"`
	RecurrencePattern       *RecurrencePattern `db:"recurrence_pattern" json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate       *time.Time         `db:"recurrence_end_date" json:"recurrence_end_date,omitempty"`
	ConflictStatus          *ConflictStatus    `db:"conflict_status" json:"conflict_status,omitempty"`
	CaseID                  *string            `db:"case_id" json:"case_id,omitempty"`
	UserID                  string             `db:"user_id" json:"user_id"`
	RelatedEventID          *string            `db:"related_event_id" json:"related_event_id,omitempty"`
	ReminderTime            *int               `db:"reminder_time" json:"reminder_time,omitempty"`
	ReminderSent            bool               `db:"reminder_sent" json:"reminder_sent"`
	IsFlexible              bool               `db:"is_flexible" json:"is_flexible"`
	Participants            types.JSONText     `db:"participants" json:"participants" swaggertype:"array,object"`
	NotificationPreferences types.JSONText     `db:"notification_preferences" json:"notification_preferences" swaggertype:"object"`
	CreatedAt               time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time          `db:"updated_at" json:"updated_at"`

	Case *Case `db:"-" json:"case,omitempty"`
}

// EndOrDefault returns the end time, or start plus one hour when unset.
func (e *Event) EndOrDefault() time.Time {
	if e.EndTime != nil {
		return *e.EndTime
	}
	return e.StartTime.Add(DefaultEventDuration)
}

// EffectiveStart is the start pushed back by the leading buffer.
func (e *Event) EffectiveStart() time.Time {
	return e.StartTime.Add(-time.Duration(e.BufferBefore) * time.Minute)
}

// EffectiveEnd is the end pushed forward by the trailing buffer.
func (e *Event) EffectiveEnd() time.Time {
	return e.EndOrDefault().Add(time.Duration(e.BufferAfter) * time.Minute)
}

// IsCourtRelated reports whether the event type is a court appearance of some kind.
func (e *Event) IsCourtRelated() bool {
	return IsCourtEventType(e.EventType)
}

// DurationMinutes is end minus start, or 60 without an end time.
func (e *Event) DurationMinutes() int {
	if e.EndTime == nil {
		return int(DefaultEventDuration / time.Minute)
	}
	return int(e.EndTime.Sub(e.StartTime) / time.Minute)
}

// TotalTimeRequired adds buffers and travel to the duration.
func (e *Event) TotalTimeRequired() int {
	return e.DurationMinutes() + e.BufferBefore + e.BufferAfter + e.TravelTimeMinutes
}

// Pattern returns the recurrence pattern or the empty string.
func (e *Event) Pattern() RecurrencePattern {
	if e.RecurrencePattern == nil {
		return ""
	}
	return *e.RecurrencePattern
}

// HasConflictStatus reports whether any conflict marker is set.
func (e *Event) HasConflictStatus() bool {
	return e.ConflictStatus != nil && *e.ConflictStatus != ""
}

// SetConflictStatus assigns a status, clearing it for the empty value.
func (e *Event) SetConflictStatus(status ConflictStatus) {
	if status == "" {
		e.ConflictStatus = nil
		return
	}
	s := status
	e.ConflictStatus = &s
}

// ParticipantList decodes the participants column, ignoring malformed payloads.
func (e *Event) ParticipantList() []Participant {
	if len(e.Participants) == 0 {
		return nil
	}
	var out []Participant
	if err := json.Unmarshal(e.Participants, &out); err != nil {
		return nil
	}
	return out
}

// SetParticipants encodes the participants column.
func (e *Event) SetParticipants(participants []Participant) error {
	if participants == nil {
		participants = []Participant{}
	}
	raw, err := json.Marshal(participants)
	if err != nil {
		return err
	}
	e.Participants = types.JSONText(raw)
	return nil
}

// Preferences decodes notification_preferences into a map.
func (e *Event) Preferences() map[string]interface{} {
	out := map[string]interface{}{}
	if len(e.NotificationPreferences) == 0 {
		return out
	}
	_ = json.Unmarshal(e.NotificationPreferences, &out)
	return out
}

// ApplyDefaults fills zero values the database requires.
func (e *Event) ApplyDefaults() {
	if e.Priority == 0 {
		e.Priority = PriorityMedium
	}
	if len(e.Participants) == 0 {
		e.Participants = types.JSONText("[]")
	}
	if len(e.NotificationPreferences) == 0 {
		e.NotificationPreferences = types.JSONText("{}")
	}
}

// ReminderDueAt returns when the reminder should fire, if one is configured.
func (e *Event) ReminderDueAt() (time.Time, bool) {
	if e.ReminderTime == nil {
		return time.Time{}, false
	}
	return e.StartTime.Add(-time.Duration(*e.ReminderTime) * time.Minute), true
}

// EventFilter narrows event listings to one user and a time range.
type EventFilter struct {
	UserID string
	From   time.Time
	To     time.Time
}
