package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/models"
	"github.com/noah-isme/lexcal-api/internal/scheduler"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
)

const defaultSlotDuration = 60

type eventLister interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
}

type slotCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

// SlotConfig describes the bookable business day.
type SlotConfig struct {
	DayStart time.Duration
	DayEnd   time.Duration
	Interval time.Duration
	CacheTTL time.Duration
}

// SlotService proposes free windows on a user's calendar.
type SlotService struct {
	events    eventLister
	cache     slotCache
	validator *validator.Validate
	logger    *zap.Logger
	config    SlotConfig
	loc       *time.Location
}

// NewSlotService constructs a slot service.
func NewSlotService(events eventLister, cache slotCache, validate *validator.Validate, logger *zap.Logger, config SlotConfig, loc *time.Location) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SlotService{events: events, cache: cache, validator: validate, logger: logger, config: config, loc: loc}
}

// SuggestForActor validates a query and suggests slots on the requested calendar.
func (s *SlotService) SuggestForActor(ctx context.Context, actor models.Actor, query dto.SuggestTimesQuery) (*models.SlotSuggestionResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Validation(err, "invalid suggestion query")
	}
	owner, err := resolveOwner(actor, query.UserID)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(query.Date, s.loc)
	if err != nil {
		return nil, err
	}
	duration := query.Duration
	if duration == 0 {
		duration = defaultSlotDuration
	}
	return s.Suggest(ctx, owner, date, duration, query.EventType)
}

// Suggest lists the free aligned windows of durationMinutes on date for userID.
func (s *SlotService) Suggest(ctx context.Context, userID string, date time.Time, durationMinutes int, eventType string) (*models.SlotSuggestionResponse, error) {
	day := startOfDay(date, s.loc)
	key := SlotCacheKey(userID, day.Format(dateLayout), durationMinutes, eventType)

	var cached models.SlotSuggestionResponse
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	existing, err := s.events.List(ctx, models.EventFilter{UserID: userID, From: day, To: day.AddDate(0, 0, 1)})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load events for suggestions")
	}
	slots := scheduler.SuggestSlots(day, time.Duration(durationMinutes)*time.Minute, eventType, pointers(existing), scheduler.SlotOptions{
		DayStart: s.config.DayStart,
		DayEnd:   s.config.DayEnd,
		Interval: s.config.Interval,
		Location: s.loc,
	})

	resp := &models.SlotSuggestionResponse{Date: day.Format(dateLayout), AvailableSlots: slots}
	if s.cache != nil {
		s.cache.Set(ctx, key, resp, s.config.CacheTTL)
	}
	s.logger.Debug("slots suggested",
		zap.String("user_id", userID),
		zap.String("date", resp.Date),
		zap.Int("slots", len(slots)),
	)
	return resp, nil
}

// Alternatives returns rescheduling suggestions for a flexible event.
func (s *SlotService) Alternatives(ctx context.Context, actor models.Actor, eventID string) ([]models.AlternativeSuggestion, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, notFoundOr(err, "event")
	}
	if !canAccess(actor, event) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "event belongs to another user")
	}
	out := []models.AlternativeSuggestion{}
	if alt := scheduler.NextDayAlternative(event, s.loc); alt != nil {
		out = append(out, *alt)
	}
	return out, nil
}
