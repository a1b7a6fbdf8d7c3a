// Package scheduler holds the calendar conflict engine: overlap detection,
// severity grading, batch scans, recurrence expansion and slot suggestion.
// Nothing here touches storage.
package scheduler

import (
	"time"

	"github.com/noah-isme/lexcal-api/internal/models"
)

// Overlaps reports whether two events collide once buffers are applied.
// All-day events collide only with events on the same calendar date, read in
// each event's own location.
func Overlaps(a, b *models.Event) bool {
	return overlapsIn(a, b, nil)
}

func overlapsIn(a, b *models.Event, loc *time.Location) bool {
	if a == nil || b == nil {
		return false
	}
	if a.IsAllDay || b.IsAllDay {
		return dateKey(a.StartTime, loc) == dateKey(b.StartTime, loc)
	}
	return a.EffectiveStart().Before(b.EffectiveEnd()) && b.EffectiveStart().Before(a.EffectiveEnd())
}

// Overlap is the length of the intersection of the buffered windows, never
// negative.
func Overlap(a, b *models.Event) time.Duration {
	start := a.EffectiveStart()
	if bs := b.EffectiveStart(); bs.After(start) {
		start = bs
	}
	end := a.EffectiveEnd()
	if be := b.EffectiveEnd(); be.Before(end) {
		end = be
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// OverlapMinutes is Overlap floored to whole minutes, for display.
func OverlapMinutes(a, b *models.Event) int {
	return int(Overlap(a, b) / time.Minute)
}

// dateKey renders the civil date of t. A nil loc keeps t's own location.
func dateKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}

const dateLayout = "2006-01-02"
