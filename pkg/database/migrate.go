package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// schema is portable across PostgreSQL and SQLite; statements are idempotent
// so Migrate runs on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS cases (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	case_number TEXT NOT NULL DEFAULT '',
	court_name TEXT NOT NULL DEFAULT '',
	client_name TEXT NOT NULL DEFAULT '',
	client_email TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	event_type TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	start_time TIMESTAMP NOT NULL,
	end_time TIMESTAMP NULL,
	is_all_day BOOLEAN NOT NULL DEFAULT FALSE,
	buffer_before INTEGER NOT NULL DEFAULT 0,
	buffer_after INTEGER NOT NULL DEFAULT 0,
	travel_time_minutes INTEGER NOT NULL DEFAULT 0,
	priority INTEGER NOT NULL DEFAULT 2,
	is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
	recurrence_pattern TEXT NULL,
	recurrence_end_date TIMESTAMP NULL,
	conflict_status TEXT NULL,
	case_id TEXT NULL,
	user_id TEXT NOT NULL,
	related_event_id TEXT NULL,
	reminder_time INTEGER NULL,
	reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
	is_flexible BOOLEAN NOT NULL DEFAULT FALSE,
	participants TEXT NOT NULL DEFAULT '[]',
	notification_preferences TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_events_user_start ON events (user_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_related ON events (related_event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_reminders ON events (reminder_sent, start_time)`,
}

// Migrate applies the schema statements in order.
func Migrate(db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
