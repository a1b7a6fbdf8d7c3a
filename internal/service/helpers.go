package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lexcal-api/internal/models"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
)

const (
	dateLayout   = "2006-01-02"
	maxRangeDays = 366
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type caseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Case, error)
}

// parseDate reads a YYYY-MM-DD string as local midnight.
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, appErrors.Validation(err, "dates must use YYYY-MM-DD")
	}
	return t, nil
}

// dateRange turns inclusive from/to dates into a half-open [start, end) window.
func dateRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := parseDate(from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	last, err := parseDate(to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if last.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	end := last.AddDate(0, 0, 1)
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "range may span at most one year")
	}
	return start, end, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// resolveOwner picks whose calendar an actor is working on. Only admins may
// name another user.
func resolveOwner(actor models.Actor, requested string) (string, error) {
	if actor.UserID == "" {
		return "", appErrors.ErrUnauthorized
	}
	if requested == "" || requested == actor.UserID {
		return actor.UserID, nil
	}
	if !actor.IsAdmin() {
		return "", appErrors.Clone(appErrors.ErrForbidden, "cannot access another user's calendar")
	}
	return requested, nil
}

func canAccess(actor models.Actor, event *models.Event) bool {
	return event != nil && (event.UserID == actor.UserID || actor.IsAdmin())
}

// notFoundOr maps a missing row to NOT_FOUND and anything else to INTERNAL_ERROR.
func notFoundOr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Internal(err, "failed to load "+what)
}

func pointers(events []models.Event) []*models.Event {
	out := make([]*models.Event, len(events))
	for i := range events {
		out[i] = &events[i]
	}
	return out
}

func values(events []*models.Event) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		out = append(out, *e)
	}
	return out
}

func withTx(ctx context.Context, provider txProvider, fn func(tx *sqlx.Tx) error) (err error) {
	if provider == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Internal(err, "failed to commit transaction")
	}
	return nil
}
