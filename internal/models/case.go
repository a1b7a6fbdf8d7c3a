package models

import "time"

// Case is the matter an event may be attached to. The calendar only reads it.
type Case struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Title       string    `db:"title" json:"title"`
	CaseNumber  string    `db:"case_number" json:"case_number"`
	CourtName   string    `db:"court_name" json:"court_name"`
	ClientName  string    `db:"client_name" json:"client_name"`
	ClientEmail string    `db:"client_email" json:"client_email"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
