package scheduler

import (
	"time"

	"github.com/noah-isme/lexcal-api/internal/models"
)

func at(day, clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", day+" "+clock)
	if err != nil {
		panic(err)
	}
	return t
}

func event(id, eventType, day, from, to string) *models.Event {
	start := at(day, from)
	e := &models.Event{ID: id, Title: id, EventType: eventType, StartTime: start, Priority: models.PriorityMedium, UserID: "user-1"}
	if to != "" {
		end := at(day, to)
		e.EndTime = &end
	}
	return e
}

func statusOf(e *models.Event) models.ConflictStatus {
	if e.ConflictStatus == nil {
		return ""
	}
	return *e.ConflictStatus
}
