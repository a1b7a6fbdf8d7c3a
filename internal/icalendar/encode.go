// Package icalendar converts calendar events to and from RFC 5545 documents.
package icalendar

import (
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/noah-isme/lexcal-api/internal/models"
)

const (
	productID = "-//LexCal//Legal Calendar//EN"

	// PropertyConflictStatus carries the event's conflict marker.
	PropertyConflictStatus ical.ComponentProperty = "X-LEXCAL-CONFLICT-STATUS"
	// PropertyEventType carries the practice-specific event type.
	PropertyEventType ical.ComponentProperty = "X-LEXCAL-EVENT-TYPE"
	// PropertyCaseID links the event back to its case.
	PropertyCaseID ical.ComponentProperty = "X-LEXCAL-CASE-ID"
)

// EncodeOptions names the calendar in the output.
type EncodeOptions struct {
	Name   string
	Domain string
	Now    time.Time
}

// Encode renders events as a single VCALENDAR.
func Encode(events []models.Event, opts EncodeOptions) []byte {
	if opts.Domain == "" {
		opts.Domain = "lexcal.local"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for i := range events {
		e := &events[i]
		ve := cal.AddEvent(e.ID + "@" + opts.Domain)
		ve.SetDtStampTime(opts.Now.UTC())
		if !e.CreatedAt.IsZero() {
			ve.SetCreatedTime(e.CreatedAt.UTC())
		}
		if !e.UpdatedAt.IsZero() {
			ve.SetModifiedAt(e.UpdatedAt.UTC())
		}

		if e.IsAllDay {
			ve.SetAllDayStartAt(e.StartTime)
			ve.SetAllDayEndAt(e.StartTime.AddDate(0, 0, 1))
		} else {
			ve.SetStartAt(e.StartTime.UTC())
			ve.SetEndAt(e.EndOrDefault().UTC())
		}

		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		ve.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(icalPriority(e.Priority)))
		if e.EventType != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, e.EventType)
			ve.SetProperty(PropertyEventType, e.EventType)
		}
		if e.HasConflictStatus() {
			ve.SetProperty(PropertyConflictStatus, strings.ToUpper(string(*e.ConflictStatus)))
		}
		if e.CaseID != nil {
			ve.SetProperty(PropertyCaseID, *e.CaseID)
		}
		for _, p := range e.ParticipantList() {
			if p.Email == "" {
				continue
			}
			ve.AddAttendee("mailto:"+p.Email, ical.WithCN(p.Name))
		}
		if due, ok := e.ReminderDueAt(); ok {
			alarm := ve.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger("-PT" + strconv.Itoa(int(e.StartTime.Sub(due)/time.Minute)) + "M")
		}
	}
	return []byte(cal.Serialize())
}

// icalPriority maps 1/2/3 onto the RFC 5545 scale of 1 (high), 5 and 9 (low).
func icalPriority(p models.Priority) int {
	switch p {
	case models.PriorityHigh:
		return 1
	case models.PriorityLow:
		return 9
	default:
		return 5
	}
}

func fromICalPriority(v int) models.Priority {
	switch {
	case v >= 1 && v <= 4:
		return models.PriorityHigh
	case v >= 6 && v <= 9:
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}
