package scheduler

import (
	"time"

	"github.com/noah-isme/lexcal-api/internal/models"
)

const (
	defaultDayStart     = 8 * time.Hour
	defaultDayEnd       = 17 * time.Hour
	defaultSlotInterval = 30 * time.Minute
	alternativeHour     = 9
	slotTimeLayout      = "3:04 PM"
)

// SlotOptions describes the bookable business day.
type SlotOptions struct {
	DayStart time.Duration
	DayEnd   time.Duration
	Interval time.Duration
	Location *time.Location
}

func (o SlotOptions) withDefaults() SlotOptions {
	if o.DayStart <= 0 {
		o.DayStart = defaultDayStart
	}
	if o.DayEnd <= 0 {
		o.DayEnd = defaultDayEnd
	}
	if o.Interval <= 0 {
		o.Interval = defaultSlotInterval
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// SuggestSlots lists the aligned windows of the given length on date that do
// not intersect any existing event. Buffers and the all-day flag are ignored
// here; only [start, end or start+60m) blocks a slot. Court event types get
// morning slots first.
func SuggestSlots(date time.Time, duration time.Duration, eventType string, existing []*models.Event, opts SlotOptions) []models.TimeSlot {
	opts = opts.withDefaults()
	slots := []models.TimeSlot{}
	if duration <= 0 {
		return slots
	}

	y, m, d := date.In(opts.Location).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, opts.Location)
	dayEnd := midnight.Add(opts.DayEnd)

	for t := midnight.Add(opts.DayStart); !t.Add(duration).After(dayEnd); t = t.Add(opts.Interval) {
		end := t.Add(duration)
		if blocked(t, end, existing) {
			continue
		}
		slots = append(slots, models.TimeSlot{StartTime: t, EndTime: end, FormattedTime: FormatWindow(t, end)})
	}

	if models.IsCourtEventType(eventType) {
		slots = morningFirst(slots, opts.Location)
	}
	return slots
}

// NextDayAlternative offers the following day at 09:00 with the same
// duration, but only for events marked flexible.
func NextDayAlternative(event *models.Event, loc *time.Location) *models.AlternativeSuggestion {
	if event == nil || !event.IsFlexible {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := event.StartTime.In(loc).Date()
	start := time.Date(y, m, d+1, alternativeHour, 0, 0, 0, loc)
	end := start.Add(time.Duration(event.DurationMinutes()) * time.Minute)
	return &models.AlternativeSuggestion{
		StartTime:     start,
		EndTime:       end,
		FormattedTime: FormatWindow(start, end),
		Reason:        "next day morning",
	}
}

// FormatWindow renders a window as "9:00 AM - 10:00 AM".
func FormatWindow(start, end time.Time) string {
	return start.Format(slotTimeLayout) + " - " + end.Format(slotTimeLayout)
}

func blocked(start, end time.Time, existing []*models.Event) bool {
	for _, e := range existing {
		if e == nil {
			continue
		}
		if start.Before(e.EndOrDefault()) && e.StartTime.Before(end) {
			return true
		}
	}
	return false
}

func morningFirst(slots []models.TimeSlot, loc *time.Location) []models.TimeSlot {
	morning := make([]models.TimeSlot, 0, len(slots))
	afternoon := make([]models.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.StartTime.In(loc).Hour() < 12 {
			morning = append(morning, s)
		} else {
			afternoon = append(afternoon, s)
		}
	}
	return append(morning, afternoon...)
}
