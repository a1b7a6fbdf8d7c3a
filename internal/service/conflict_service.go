package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/models"
	"github.com/noah-isme/lexcal-api/internal/scheduler"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
)

type conflictRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	UpdateConflictStatusesWithTx(ctx context.Context, tx *sqlx.Tx, events []*models.Event) error
	ListUserIDs(ctx context.Context, from, to time.Time) ([]string, error)
}

// ConflictService runs batch conflict scans and persists the markers they set.
type ConflictService struct {
	events    conflictRepository
	tx        txProvider
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	config    SchedulingConfig
	now       func() time.Time
}

// NewConflictService constructs a conflict service.
func NewConflictService(events conflictRepository, tx txProvider, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, config SchedulingConfig) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{
		events:    events,
		tx:        tx,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// List reports the overlapping pairs in a range without changing any event.
func (s *ConflictService) List(ctx context.Context, actor models.Actor, query dto.ConflictQuery) ([]models.ConflictPair, error) {
	owner, from, to, err := s.resolveQuery(actor, query)
	if err != nil {
		return nil, err
	}
	events, err := s.events.List(ctx, models.EventFilter{UserID: owner, From: from, To: to})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load events")
	}
	return scheduler.Detect(pointers(events), s.config.scanOptions()), nil
}

// ScanForActor runs a persisted scan on the calendar the actor may access.
func (s *ConflictService) ScanForActor(ctx context.Context, actor models.Actor, query dto.ConflictQuery) (*models.ScanSummary, error) {
	owner, from, to, err := s.resolveQuery(actor, query)
	if err != nil {
		return nil, err
	}
	return s.Scan(ctx, owner, from, to)
}

// Scan flags every unmarked event of userID in [from, to) that overlaps
// another event on the same date and writes the new markers in one
// transaction. Events already carrying a status keep it.
func (s *ConflictService) Scan(ctx context.Context, userID string, from, to time.Time) (*models.ScanSummary, error) {
	started := time.Now()
	events, err := s.events.List(ctx, models.EventFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load events")
	}

	result := scheduler.Scan(pointers(events), s.config.scanOptions())
	if len(result.Changed) > 0 {
		if err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
			if err := s.events.UpdateConflictStatusesWithTx(ctx, tx, result.Changed); err != nil {
				return appErrors.Internal(err, "failed to persist conflict status")
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	s.metrics.ObserveScan(result.Pairs, len(result.Changed), time.Since(started))
	s.logger.Debug("conflict scan complete",
		zap.String("user_id", userID),
		zap.Int("events", len(events)),
		zap.Int("pairs", len(result.Pairs)),
		zap.Int("flagged", len(result.Changed)),
	)
	return &models.ScanSummary{
		UserID:        userID,
		From:          from,
		To:            to,
		EventsScanned: len(events),
		Flagged:       len(result.Changed),
		Pairs:         result.Pairs,
	}, nil
}

// RescanAll scans every user with events in the window starting today and
// spanning the given number of days. A failing user is logged and skipped.
func (s *ConflictService) RescanAll(ctx context.Context, days int) (*dto.RescanResult, error) {
	if days <= 0 {
		days = 30
	}
	from := startOfDay(s.now(), s.config.location())
	to := from.AddDate(0, 0, days)

	users, err := s.events.ListUserIDs(ctx, from, to)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list users for rescan")
	}
	out := &dto.RescanResult{}
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		summary, err := s.Scan(ctx, userID, from, to)
		if err != nil {
			s.logger.Warn("rescan failed", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		out.Users++
		out.Flagged += summary.Flagged
		out.Pairs += len(summary.Pairs)
	}
	s.logger.Info("conflict rescan complete",
		zap.Int("users", out.Users),
		zap.Int("flagged", out.Flagged),
		zap.Int("pairs", out.Pairs),
	)
	return out, nil
}

func (s *ConflictService) resolveQuery(actor models.Actor, query dto.ConflictQuery) (string, time.Time, time.Time, error) {
	if err := s.validator.Struct(query); err != nil {
		return "", time.Time{}, time.Time{}, appErrors.Validation(err, "invalid conflict query")
	}
	owner, err := resolveOwner(actor, query.UserID)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	from, to, err := dateRange(query.From, query.To, s.config.location())
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	return owner, from, to, nil
}
