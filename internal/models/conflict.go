package models

import "time"

// Severity grades an overlapping pair.
type Severity string

const (
	SeverityCritical    Severity = "critical"
	SeveritySignificant Severity = "significant"
	SeverityMinor       Severity = "minor"
)

// ConflictPair is one overlapping pair found by a scan.
type ConflictPair struct {
	EventAID       string   `json:"event_a_id"`
	EventBID       string   `json:"event_b_id"`
	EventATitle    string   `json:"event_a_title"`
	EventBTitle    string   `json:"event_b_title"`
	Date           string   `json:"date"`
	Severity       Severity `json:"severity"`
	OverlapMinutes int      `json:"overlap_minutes"`
}

// ScanSummary reports the outcome of a persisted conflict scan.
type ScanSummary struct {
	UserID        string         `json:"user_id"`
	From          time.Time      `json:"from"`
	To            time.Time      `json:"to"`
	EventsScanned int            `json:"events_scanned"`
	Flagged       int            `json:"flagged"`
	Pairs         []ConflictPair `json:"pairs"`
}
