package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lexcal-api/internal/models"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// memoryEventRepo is an in-memory event store keyed by id.
type memoryEventRepo struct {
	mu        sync.Mutex
	events    map[string]*models.Event
	seq       int
	listErr   error
	bulkErr   error
	statusErr error
	updated   []string
	sent      []string
	// staged holds CreateWithTx writes until the next bulk insert succeeds.
	staged []*models.Event
}

func newMemoryEventRepo(events ...*models.Event) *memoryEventRepo {
	repo := &memoryEventRepo{events: map[string]*models.Event{}}
	for _, e := range events {
		repo.put(e)
	}
	return repo
}

func (r *memoryEventRepo) put(e *models.Event) {
	if e.ID == "" {
		r.seq++
		e.ID = fmt.Sprintf("evt-%d", r.seq)
	}
	e.ApplyDefaults()
	clone := *e
	r.events[e.ID] = &clone
}

func (r *memoryEventRepo) sorted(match func(*models.Event) bool) []models.Event {
	out := []models.Event{}
	for _, e := range r.events {
		if match(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (r *memoryEventRepo) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.sorted(func(e *models.Event) bool {
		return e.UserID == filter.UserID && !e.StartTime.Before(filter.From) && e.StartTime.Before(filter.To)
	}), nil
}

func (r *memoryEventRepo) GetByID(ctx context.Context, id string) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *e
	return &clone, nil
}

func (r *memoryEventRepo) ListByRelated(ctx context.Context, templateID string) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(e *models.Event) bool {
		return e.RelatedEventID != nil && *e.RelatedEventID == templateID
	}), nil
}

func (r *memoryEventRepo) Create(ctx context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(event)
	return nil
}

func (r *memoryEventRepo) CreateWithTx(ctx context.Context, tx *sqlx.Tx, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staged = append(r.staged, event)
	return nil
}

func (r *memoryEventRepo) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, events []*models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staged := r.staged
	r.staged = nil
	if r.bulkErr != nil {
		return r.bulkErr
	}
	for _, e := range append(staged, events...) {
		r.put(e)
	}
	return nil
}

func (r *memoryEventRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *memoryEventRepo) Update(ctx context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return sql.ErrNoRows
	}
	r.put(event)
	r.updated = append(r.updated, event.ID)
	return nil
}

func (r *memoryEventRepo) UpdateConflictStatusesWithTx(ctx context.Context, tx *sqlx.Tx, events []*models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statusErr != nil {
		return r.statusErr
	}
	for _, e := range events {
		if stored, ok := r.events[e.ID]; ok {
			stored.ConflictStatus = e.ConflictStatus
			r.updated = append(r.updated, e.ID)
		}
	}
	return nil
}

func (r *memoryEventRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.events, id)
	return nil
}

func (r *memoryEventRepo) ListPendingReminders(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(e *models.Event) bool {
		return e.ReminderTime != nil && !e.ReminderSent && !e.StartTime.Before(from) && e.StartTime.Before(to)
	}), nil
}

func (r *memoryEventRepo) MarkReminderSent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.ReminderSent = true
	r.sent = append(r.sent, id)
	return nil
}

func (r *memoryEventRepo) ListUserIDs(ctx context.Context, from, to time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]struct{}{}
	var ids []string
	for _, e := range r.sorted(func(e *models.Event) bool { return !e.StartTime.Before(from) && e.StartTime.Before(to) }) {
		if _, ok := seen[e.UserID]; !ok {
			seen[e.UserID] = struct{}{}
			ids = append(ids, e.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memoryEventRepo) status(id string) models.ConflictStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.ConflictStatus == nil {
		return ""
	}
	return *e.ConflictStatus
}

type caseStub map[string]*models.Case

func (c caseStub) FindByID(ctx context.Context, id string) (*models.Case, error) {
	found, ok := c[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return found, nil
}

type invalidatorSpy struct {
	users []string
}

func (s *invalidatorSpy) InvalidateUser(ctx context.Context, userID string) {
	s.users = append(s.users, userID)
}

func ts(value string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		panic(err)
	}
	return t
}

func tsPtr(value string) *time.Time {
	t := ts(value)
	return &t
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func attorney(id string) models.Actor {
	return models.Actor{UserID: id, Role: models.RoleAttorney}
}

func admin() models.Actor {
	return models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
}
