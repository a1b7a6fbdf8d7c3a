package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDerivedWindows(t *testing.T) {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	e := &Event{StartTime: start, BufferBefore: 15, BufferAfter: 10, TravelTimeMinutes: 20}

	assert.Equal(t, start.Add(time.Hour), e.EndOrDefault())
	assert.Equal(t, start.Add(-15*time.Minute), e.EffectiveStart())
	assert.Equal(t, start.Add(70*time.Minute), e.EffectiveEnd())
	assert.Equal(t, 60, e.DurationMinutes())
	assert.Equal(t, 105, e.TotalTimeRequired())

	end := start.Add(45 * time.Minute)
	e.EndTime = &end
	assert.Equal(t, 45, e.DurationMinutes())
	assert.Equal(t, end.Add(10*time.Minute), e.EffectiveEnd())
}

func TestEventCourtRelated(t *testing.T) {
	for _, kind := range []string{"Court Appearance", "Hearing", "Mention", "Filing"} {
		assert.True(t, (&Event{EventType: kind}).IsCourtRelated(), kind)
	}
	assert.False(t, (&Event{EventType: "hearing"}).IsCourtRelated())
	assert.False(t, (&Event{EventType: "Client Meeting"}).IsCourtRelated())
}

func TestEventParticipantsRoundTrip(t *testing.T) {
	e := &Event{}
	assert.Nil(t, e.ParticipantList())

	require.NoError(t, e.SetParticipants([]Participant{{Name: "Ana", Email: "ana@example.com"}}))
	got := e.ParticipantList()
	require.Len(t, got, 1)
	assert.Equal(t, "ana@example.com", got[0].Email)

	e.Participants = []byte("not json")
	assert.Nil(t, e.ParticipantList())
}

func TestEventApplyDefaultsAndStatus(t *testing.T) {
	e := &Event{}
	e.ApplyDefaults()
	assert.Equal(t, PriorityMedium, e.Priority)
	assert.Equal(t, "[]", e.Participants.String())
	assert.Equal(t, "{}", e.NotificationPreferences.String())
	assert.Empty(t, e.Preferences())

	assert.False(t, e.HasConflictStatus())
	e.SetConflictStatus(ConflictResolved)
	assert.True(t, e.HasConflictStatus())
	e.SetConflictStatus("")
	assert.Nil(t, e.ConflictStatus)
}

func TestRecurrencePatternValid(t *testing.T) {
	assert.True(t, RecurrenceBiweekly.Valid())
	assert.False(t, RecurrencePattern("yearly").Valid())
}
