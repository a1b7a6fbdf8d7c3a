package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lexcal-api/internal/models"
)

func TestOverlapsIsSymmetric(t *testing.T) {
	cases := []struct {
		name string
		a, b *models.Event
	}{
		{"disjoint", event("a", "Meeting", "2024-03-04", "09:00", "10:00"), event("b", "Meeting", "2024-03-04", "11:00", "12:00")},
		{"touching", event("a", "Meeting", "2024-03-04", "09:00", "10:00"), event("b", "Meeting", "2024-03-04", "10:00", "11:00")},
		{"nested", event("a", "Meeting", "2024-03-04", "09:00", "12:00"), event("b", "Meeting", "2024-03-04", "10:00", "11:00")},
		{"open ended", event("a", "Meeting", "2024-03-04", "09:00", ""), event("b", "Meeting", "2024-03-04", "09:30", "09:45")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, Overlaps(tc.a, tc.b), Overlaps(tc.b, tc.a))
		})
	}
}

func TestOverlapsTouchingEndpointsDoNotCollide(t *testing.T) {
	a := event("a", "Meeting", "2024-03-04", "09:00", "10:00")
	b := event("b", "Meeting", "2024-03-04", "10:00", "11:00")
	assert.False(t, Overlaps(a, b))

	b.BufferBefore = 1
	assert.True(t, Overlaps(a, b))
}

func TestOverlapsBuffersOnlyWiden(t *testing.T) {
	a := event("a", "Meeting", "2024-03-04", "09:00", "10:00")
	b := event("b", "Meeting", "2024-03-04", "09:30", "10:30")
	assert.True(t, Overlaps(a, b))

	for _, buf := range []int{5, 15, 60, 240} {
		a.BufferBefore, a.BufferAfter = buf, buf
		b.BufferAfter = buf
		assert.True(t, Overlaps(a, b), "buffer %d", buf)
	}
}

func TestOverlapsDefaultsMissingEndToOneHour(t *testing.T) {
	a := event("a", "Meeting", "2024-03-04", "09:00", "")
	b := event("b", "Meeting", "2024-03-04", "09:59", "10:30")
	c := event("c", "Meeting", "2024-03-04", "10:00", "10:30")
	assert.True(t, Overlaps(a, b))
	assert.False(t, Overlaps(a, c))
}

func TestOverlapsAllDayUsesCalendarDate(t *testing.T) {
	a := event("a", "Deadline", "2024-03-04", "00:00", "")
	a.IsAllDay = true
	b := event("b", "Deadline", "2024-03-04", "23:00", "23:30")
	b.IsAllDay = true
	c := event("c", "Deadline", "2024-03-05", "00:00", "")
	c.IsAllDay = true

	assert.True(t, Overlaps(a, b))
	assert.False(t, Overlaps(a, c))

	c.BufferBefore, a.BufferAfter = 600, 600
	assert.False(t, Overlaps(a, c))

	timed := event("d", "Meeting", "2024-03-04", "15:00", "16:00")
	assert.True(t, Overlaps(a, timed))
}

func TestOverlapMinutes(t *testing.T) {
	a := event("a", "Hearing", "2024-03-04", "10:00", "11:00")
	a.BufferBefore, a.BufferAfter = 15, 15
	b := event("b", "Meeting", "2024-03-04", "10:50", "11:30")
	assert.Equal(t, 25, OverlapMinutes(a, b))
	assert.Equal(t, 25, OverlapMinutes(b, a))

	c := event("c", "Meeting", "2024-03-04", "13:00", "14:00")
	assert.Equal(t, 0, OverlapMinutes(a, c))
	assert.Zero(t, Overlap(a, c))

	d := event("d", "Meeting", "2024-03-04", "11:14", "12:00")
	d.StartTime = d.StartTime.Add(20 * time.Second)
	assert.Equal(t, 40*time.Second, Overlap(a, d))
	assert.Equal(t, 0, OverlapMinutes(a, d))
}

func TestClassify(t *testing.T) {
	t.Run("both court related is critical on one minute", func(t *testing.T) {
		a := event("a", "Hearing", "2024-03-04", "10:00", "11:00")
		b := event("b", "Filing", "2024-03-04", "10:59", "11:30")
		b.Priority = models.PriorityLow
		assert.Equal(t, models.SeverityCritical, Classify(a, b))
	})
	t.Run("high priority with long overlap is critical", func(t *testing.T) {
		a := event("a", "Meeting", "2024-03-04", "10:00", "11:00")
		a.Priority = models.PriorityHigh
		b := event("b", "Call", "2024-03-04", "10:29", "11:30")
		assert.Equal(t, models.SeverityCritical, Classify(a, b))
	})
	t.Run("high priority with exactly thirty minutes is significant", func(t *testing.T) {
		a := event("a", "Meeting", "2024-03-04", "10:00", "11:00")
		a.Priority = models.PriorityHigh
		b := event("b", "Call", "2024-03-04", "10:30", "11:30")
		assert.Equal(t, models.SeveritySignificant, Classify(a, b))
	})
	t.Run("high priority with thirty minutes and some seconds is critical", func(t *testing.T) {
		a := event("a", "Meeting", "2024-03-04", "10:00", "11:00")
		a.Priority = models.PriorityHigh
		b := event("b", "Call", "2024-03-04", "10:29", "11:30")
		b.StartTime = b.StartTime.Add(30 * time.Second)
		assert.Equal(t, 30, OverlapMinutes(a, b))
		assert.Equal(t, models.SeverityCritical, Classify(a, b))
	})
	t.Run("fifteen minutes and some seconds is significant", func(t *testing.T) {
		a := event("a", "Meeting", "2024-03-04", "10:00", "11:00")
		b := event("b", "Call", "2024-03-04", "10:44", "11:30")
		b.StartTime = b.StartTime.Add(30 * time.Second)
		assert.Equal(t, 15, OverlapMinutes(a, b))
		assert.Equal(t, models.SeveritySignificant, Classify(a, b))
	})
	t.Run("fifteen minutes or less is minor", func(t *testing.T) {
		a := event("a", "Meeting", "2024-03-04", "10:00", "11:00")
		b := event("b", "Call", "2024-03-04", "10:45", "11:30")
		assert.Equal(t, models.SeverityMinor, Classify(a, b))
	})
}

func TestHearingAndMeetingScenario(t *testing.T) {
	hearing := event("hearing", "Hearing", "2024-03-04", "10:00", "11:00")
	hearing.BufferBefore, hearing.BufferAfter = 15, 15
	meeting := event("meeting", "Meeting", "2024-03-04", "10:50", "11:30")

	assert.True(t, Overlaps(hearing, meeting))
	assert.Equal(t, models.SeveritySignificant, Classify(hearing, meeting))

	result := Scan([]*models.Event{hearing, meeting}, ScanOptions{})
	assert.Len(t, result.Pairs, 1)
	assert.Equal(t, 25, result.Pairs[0].OverlapMinutes)
	assert.Equal(t, models.ConflictPotential, statusOf(hearing))
	assert.Equal(t, models.ConflictPotential, statusOf(meeting))
}
