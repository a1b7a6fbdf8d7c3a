package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/noah-isme/lexcal-api/internal/models"
)

// DefaultMaxOccurrences caps how many children a single template may produce.
const DefaultMaxOccurrences = 1000

var (
	// ErrIncompleteRecurrence means a recurring template lacks a pattern or end date.
	ErrIncompleteRecurrence = errors.New("recurring event requires recurrence_pattern and recurrence_end_date")
	// ErrUnsupportedPattern means the pattern is not daily, weekly, biweekly or monthly.
	ErrUnsupportedPattern = errors.New("unsupported recurrence pattern")
)

// ExpandOptions bounds an expansion.
type ExpandOptions struct {
	MaxOccurrences int
}

// Expansion is the set of children materialised from one template.
type Expansion struct {
	Children  []*models.Event
	Truncated bool
}

// Expand materialises the occurrences of a recurring template that fall
// strictly after the template's own date and on or before its end date.
// Children are unsaved copies linked back through RelatedEventID.
func Expand(template *models.Event, opts ExpandOptions) (Expansion, error) {
	if template == nil || !template.IsRecurring {
		return Expansion{}, nil
	}
	if template.RecurrencePattern == nil || *template.RecurrencePattern == "" || template.RecurrenceEndDate == nil {
		return Expansion{}, ErrIncompleteRecurrence
	}
	limit := opts.MaxOccurrences
	if limit <= 0 {
		limit = DefaultMaxOccurrences
	}

	var (
		starts    []time.Time
		truncated bool
		err       error
	)
	switch pattern := *template.RecurrencePattern; pattern {
	case models.RecurrenceDaily:
		starts, truncated, err = fixedCadence(template, rrule.DAILY, 1, limit)
	case models.RecurrenceWeekly:
		starts, truncated, err = fixedCadence(template, rrule.WEEKLY, 1, limit)
	case models.RecurrenceBiweekly:
		starts, truncated, err = fixedCadence(template, rrule.WEEKLY, 2, limit)
	case models.RecurrenceMonthly:
		starts, truncated = monthlyCadence(template, limit)
	default:
		return Expansion{}, fmt.Errorf("%w: %q", ErrUnsupportedPattern, pattern)
	}
	if err != nil {
		return Expansion{}, err
	}

	children := make([]*models.Event, 0, len(starts))
	for _, start := range starts {
		children = append(children, newChild(template, start))
	}
	return Expansion{Children: children, Truncated: truncated}, nil
}

func fixedCadence(template *models.Event, freq rrule.Frequency, interval, limit int) ([]time.Time, bool, error) {
	// dtstart is always the first occurrence; one extra tells us the cap was hit.
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:     freq,
		Interval: interval,
		Dtstart:  template.StartTime,
		Until:    untilFor(template),
		Count:    limit + 2,
	})
	if err != nil {
		return nil, false, fmt.Errorf("build recurrence rule: %w", err)
	}

	all := rule.All()
	if len(all) <= 1 {
		return nil, false, nil
	}
	occurrences := all[1:]
	if len(occurrences) > limit {
		return occurrences[:limit], true, nil
	}
	return occurrences, false, nil
}

// monthlyCadence steps one calendar month at a time. A day that does not
// exist in the target month is clamped to its last day and the clamped day
// carries into later months.
func monthlyCadence(template *models.Event, limit int) ([]time.Time, bool) {
	start := template.StartTime
	endDate := civilDate(*template.RecurrenceEndDate)

	var out []time.Time
	year, month, day := start.Date()
	for {
		month++
		if month > time.December {
			month = time.January
			year++
		}
		if last := daysIn(year, month); day > last {
			day = last
		}
		next := time.Date(year, month, day, start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
		if civilDate(next) > endDate {
			return out, false
		}
		if len(out) == limit {
			return out, true
		}
		out = append(out, next)
	}
}

// untilFor places the end date at the template's clock time so the end date
// itself is included.
func untilFor(template *models.Event) time.Time {
	end := *template.RecurrenceEndDate
	start := template.StartTime
	return time.Date(end.Year(), end.Month(), end.Day(), start.Hour(), start.Minute(), start.Second(), 0, start.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func civilDate(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// newChild copies the carried fields of template onto a new start. Buffers are
// not carried; children start unbuffered.
func newChild(template *models.Event, start time.Time) *models.Event {
	child := &models.Event{
		Title:          template.Title,
		Description:    template.Description,
		EventType:      template.EventType,
		Location:       template.Location,
		StartTime:      start,
		IsAllDay:       template.IsAllDay,
		Priority:       template.Priority,
		IsRecurring:    false,
		CaseID:         copyString(template.CaseID),
		UserID:         template.UserID,
		ReminderTime:   copyInt(template.ReminderTime),
		RelatedEventID: copyString(&template.ID),
	}
	if template.EndTime != nil {
		end := start.Add(template.EndTime.Sub(template.StartTime))
		child.EndTime = &end
	}
	child.ApplyDefaults()
	return child
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
