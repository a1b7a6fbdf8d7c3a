package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lexcal-api/internal/models"
)

const eventColumns = `id, title, description, location, event_type, start_time, end_time, is_all_day, buffer_before, buffer_after,
travel_time_minutes, priority, is_recurring, recurrence_pattern, recurrence_end_date, conflict_status, case_id, user_id,
related_event_id, reminder_time, reminder_sent, is_flexible, participants, notification_preferences, created_at, updated_at`

const insertEventQuery = `INSERT INTO events (` + eventColumns + `)
VALUES (:id, :title, :description, :location, :event_type, :start_time, :end_time, :is_all_day, :buffer_before, :buffer_after,
:travel_time_minutes, :priority, :is_recurring, :recurrence_pattern, :recurrence_end_date, :conflict_status, :case_id, :user_id,
:related_event_id, :reminder_time, :reminder_sent, :is_flexible, :participants, :notification_preferences, :created_at, :updated_at)`

// EventRepository persists calendar events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns a user's events starting inside [From, To), ordered by start time.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + `
FROM events WHERE user_id = $1 AND start_time >= $2 AND start_time < $3 ORDER BY start_time ASC, id ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, filter.UserID, filter.From.UTC(), filter.To.UTC()); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetByID fetches a single event.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListByRelated returns the children materialised from a recurring template.
func (r *EventRepository) ListByRelated(ctx context.Context, templateID string) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE related_event_id = $1 ORDER BY start_time ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, templateID); err != nil {
		return nil, fmt.Errorf("list related events: %w", err)
	}
	return events, nil
}

// Create inserts one event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if err := r.insert(ctx, r.db, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// CreateWithTx inserts one event using an existing transaction.
func (r *EventRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, event *models.Event) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if err := r.insert(ctx, tx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// BulkCreateWithTx inserts events using an existing transaction.
func (r *EventRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, events []*models.Event) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	for _, event := range events {
		if err := r.insert(ctx, tx, event); err != nil {
			return fmt.Errorf("bulk insert event: %w", err)
		}
	}
	return nil
}

func (r *EventRepository) insert(ctx context.Context, exec sqlx.ExtContext, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	event.ApplyDefaults()
	_, err := sqlx.NamedExecContext(ctx, exec, insertEventQuery, storedRow(event))
	return err
}

// Update rewrites every mutable column of an event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	event.ApplyDefaults()
	const query = `UPDATE events SET title = :title, description = :description, location = :location, event_type = :event_type,
start_time = :start_time, end_time = :end_time, is_all_day = :is_all_day, buffer_before = :buffer_before, buffer_after = :buffer_after,
travel_time_minutes = :travel_time_minutes, priority = :priority, is_recurring = :is_recurring, recurrence_pattern = :recurrence_pattern,
recurrence_end_date = :recurrence_end_date, conflict_status = :conflict_status, case_id = :case_id, reminder_time = :reminder_time,
reminder_sent = :reminder_sent, is_flexible = :is_flexible, participants = :participants,
notification_preferences = :notification_preferences, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, storedRow(event)); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// UpdateConflictStatusesWithTx writes conflict_status for each event inside tx.
func (r *EventRepository) UpdateConflictStatusesWithTx(ctx context.Context, tx *sqlx.Tx, events []*models.Event) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	for _, event := range events {
		event.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, `UPDATE events SET conflict_status = $1, updated_at = $2 WHERE id = $3`, event.ConflictStatus, now, event.ID); err != nil {
			return fmt.Errorf("update conflict status: %w", err)
		}
	}
	return nil
}

// Delete removes an event. Children of a template are left in place.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// ListPendingReminders returns events with an unsent reminder starting inside [from, to].
func (r *EventRepository) ListPendingReminders(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + `
FROM events WHERE reminder_time IS NOT NULL AND reminder_sent = FALSE AND start_time >= $1 AND start_time <= $2 ORDER BY start_time ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list pending reminders: %w", err)
	}
	return events, nil
}

// MarkReminderSent flags the reminder of an event as delivered.
func (r *EventRepository) MarkReminderSent(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE events SET reminder_sent = TRUE, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

// ListUserIDs returns the distinct owners of events starting inside [from, to).
func (r *EventRepository) ListUserIDs(ctx context.Context, from, to time.Time) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT DISTINCT user_id FROM events WHERE start_time >= $1 AND start_time < $2 ORDER BY user_id`, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list event owners: %w", err)
	}
	return ids, nil
}

// storedRow returns a copy of event with every timestamp in UTC so range
// comparisons agree across drivers. The recurrence end is a calendar date and
// keeps its day. The caller's event keeps its own zone.
func storedRow(event *models.Event) *models.Event {
	row := *event
	row.StartTime = event.StartTime.UTC()
	if event.EndTime != nil {
		end := event.EndTime.UTC()
		row.EndTime = &end
	}
	if event.RecurrenceEndDate != nil {
		y, m, d := event.RecurrenceEndDate.Date()
		until := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		row.RecurrenceEndDate = &until
	}
	return &row
}
