package models

import "time"

// TimeSlot is one free window proposed by the suggester.
type TimeSlot struct {
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	FormattedTime string    `json:"formatted_time"`
}

// SlotSuggestionResponse is the payload returned for a suggestion query.
type SlotSuggestionResponse struct {
	Date           string     `json:"date"`
	AvailableSlots []TimeSlot `json:"available_slots"`
}

// AlternativeSuggestion proposes a different start for a flexible event.
type AlternativeSuggestion struct {
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	FormattedTime string    `json:"formatted_time"`
	Reason        string    `json:"reason"`
}
