package icalendar

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/noah-isme/lexcal-api/internal/models"
)

// ErrEmptyDocument is returned for an empty upload.
var ErrEmptyDocument = errors.New("empty ics document")

// ParsedEvent is one VEVENT read from an upload.
type ParsedEvent struct {
	UID         string
	Title       string
	Description string
	Location    string
	EventType   string
	Start       time.Time
	End         *time.Time
	AllDay      bool
	Priority    models.Priority
	Attendees   []models.Participant
	HasRRule    bool
}

// Skipped records a VEVENT that could not be read.
type Skipped struct {
	UID    string
	Reason string
}

// Decode reads every VEVENT in body. Unreadable events are reported in the
// second return value and do not fail the document.
func Decode(body []byte, loc *time.Location) ([]ParsedEvent, []Skipped, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil, ErrEmptyDocument
	}
	if loc == nil {
		loc = time.UTC
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse calendar: %w", err)
	}

	var (
		events  []ParsedEvent
		skipped []Skipped
	)
	for _, ve := range cal.Events() {
		parsed, err := decodeEvent(ve, loc)
		if err != nil {
			skipped = append(skipped, Skipped{UID: ve.Id(), Reason: err.Error()})
			continue
		}
		events = append(events, parsed)
	}
	return events, skipped, nil
}

func decodeEvent(ve *ical.VEvent, loc *time.Location) (ParsedEvent, error) {
	out := ParsedEvent{UID: ve.Id(), Priority: models.PriorityMedium}
	out.Title = propertyValue(ve, ical.ComponentPropertySummary)
	if out.Title == "" {
		out.Title = "(untitled)"
	}
	out.Description = propertyValue(ve, ical.ComponentPropertyDescription)
	out.Location = propertyValue(ve, ical.ComponentPropertyLocation)

	out.EventType = propertyValue(ve, PropertyEventType)
	if out.EventType == "" {
		if categories := propertyValue(ve, ical.ComponentPropertyCategories); categories != "" {
			out.EventType = strings.TrimSpace(strings.Split(categories, ",")[0])
		}
	}
	if out.EventType == "" {
		out.EventType = "Imported"
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return out, fmt.Errorf("read DTSTART: %w", err)
		}
		y, m, d := start.Date()
		out.Start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, fmt.Errorf("read DTSTART: %w", err)
		}
		out.Start = start
		if end, err := ve.GetEndAt(); err == nil && !end.Before(start) {
			out.End = &end
		}
	}

	if raw := propertyValue(ve, ical.ComponentPropertyPriority); raw != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			out.Priority = fromICalPriority(n)
		}
	}
	out.HasRRule = ve.GetProperty(ical.ComponentPropertyRrule) != nil

	for _, a := range ve.Attendees() {
		email := strings.TrimPrefix(strings.TrimPrefix(a.Email(), "mailto:"), "MAILTO:")
		name := email
		if cn := a.ICalParameters[string(ical.ParameterCn)]; len(cn) > 0 && cn[0] != "" {
			name = cn[0]
		}
		if name == "" {
			continue
		}
		out.Attendees = append(out.Attendees, models.Participant{Name: name, Email: email})
	}
	return out, nil
}

func propertyValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

// isDateValue detects VALUE=DATE or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}
