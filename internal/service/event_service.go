package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/models"
	"github.com/noah-isme/lexcal-api/internal/scheduler"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	ListByRelated(ctx context.Context, templateID string) ([]models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, event *models.Event) error
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, events []*models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
}

type slotCacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string)
}

// SchedulingConfig carries the engine settings shared by the calendar services.
type SchedulingConfig struct {
	Location          *time.Location
	RecurrenceLenient bool
	MaxOccurrences    int
	CrossMidnight     bool
}

func (c SchedulingConfig) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c SchedulingConfig) scanOptions() scheduler.ScanOptions {
	return scheduler.ScanOptions{Location: c.location(), CrossMidnight: c.CrossMidnight}
}

// dayWindow is the listing range that covers every event comparable with one
// starting at t.
func (c SchedulingConfig) dayWindow(first, last time.Time) (time.Time, time.Time) {
	from := startOfDay(first, c.location())
	to := startOfDay(last, c.location()).AddDate(0, 0, 1)
	if c.CrossMidnight {
		from = from.AddDate(0, 0, -1)
		to = to.AddDate(0, 0, 1)
	}
	return from, to
}

// EventService manages calendar events and keeps their conflict markers current.
type EventService struct {
	events    eventRepository
	cases     caseLookup
	tx        txProvider
	cache     slotCacheInvalidator
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	config    SchedulingConfig
}

// NewEventService constructs an event service.
func NewEventService(
	events eventRepository,
	cases caseLookup,
	tx txProvider,
	cache slotCacheInvalidator,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	config SchedulingConfig,
) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxOccurrences <= 0 {
		config.MaxOccurrences = scheduler.DefaultMaxOccurrences
	}
	return &EventService{
		events:    events,
		cases:     cases,
		tx:        tx,
		cache:     cache,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		config:    config,
	}
}

// List returns the events of the actor (or, for admins, another user) in a date range.
func (s *EventService) List(ctx context.Context, actor models.Actor, query dto.EventQuery) ([]models.Event, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Validation(err, "invalid event query")
	}
	owner, err := resolveOwner(actor, query.UserID)
	if err != nil {
		return nil, err
	}
	from, to, err := dateRange(query.From, query.To, s.config.location())
	if err != nil {
		return nil, err
	}
	events, err := s.events.List(ctx, models.EventFilter{UserID: owner, From: from, To: to})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list events")
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// Get returns one event with its case attached when the link resolves.
func (s *EventService) Get(ctx context.Context, actor models.Actor, id string) (*models.Event, error) {
	event, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if event.Case, err = s.resolveCase(ctx, event.CaseID); err != nil {
		return nil, err
	}
	return event, nil
}

// Create stores a new event, marks it when it collides with existing ones and
// expands it when it is a recurring template.
func (s *EventService) Create(ctx context.Context, actor models.Actor, req dto.CreateEventRequest) (*dto.EventResult, error) {
	if err := s.normalizeRecurrence(&req); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid event payload")
	}
	owner, err := resolveOwner(actor, req.UserID)
	if err != nil {
		return nil, err
	}

	event, err := s.buildEvent(req, owner)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(event); err != nil {
		return nil, err
	}
	if err := s.checkCase(ctx, event); err != nil {
		return nil, err
	}

	conflicts, err := s.CheckConflicts(ctx, event)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		event.SetConflictStatus(models.ConflictPotential)
	}

	var plan *recurrencePlan
	if event.IsRecurring {
		// children point back at the template before its row exists
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if plan, err = s.planRecurrence(ctx, event); err != nil {
			return nil, err
		}
	}

	result := &dto.EventResult{Event: event, Conflicts: conflicts}
	if plan == nil {
		if err := s.events.Create(ctx, event); err != nil {
			return nil, appErrors.Internal(err, "failed to create event")
		}
	} else {
		if err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
			if err := s.events.CreateWithTx(ctx, tx, event); err != nil {
				return appErrors.Internal(err, "failed to create event")
			}
			if err := s.events.BulkCreateWithTx(ctx, tx, plan.children); err != nil {
				return appErrors.Internal(err, "failed to persist recurring events")
			}
			return nil
		}); err != nil {
			return nil, err
		}
		s.observeRecurrence(event, plan)
		result.Children = len(plan.children)
	}
	s.invalidate(ctx, event.UserID)

	s.logger.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.Int("conflicts", len(conflicts)),
		zap.Int("children", result.Children),
	)
	return result, nil
}

// CheckConflicts lists the stored events that collide with event, excluding event itself.
func (s *EventService) CheckConflicts(ctx context.Context, event *models.Event) ([]models.Event, error) {
	from, to := s.config.dayWindow(event.StartTime, event.StartTime)
	existing, err := s.events.List(ctx, models.EventFilter{UserID: event.UserID, From: from, To: to})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load events for conflict check")
	}
	return values(scheduler.ConflictsFor(event, pointers(existing), s.config.scanOptions())), nil
}

// CreateRecurringEvents materialises and stores the children of a saved
// template in one transaction. It returns how many children were written.
func (s *EventService) CreateRecurringEvents(ctx context.Context, template *models.Event) (int, error) {
	plan, err := s.planRecurrence(ctx, template)
	if err != nil || plan == nil {
		return 0, err
	}
	if err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.events.BulkCreateWithTx(ctx, tx, plan.children); err != nil {
			return appErrors.Internal(err, "failed to persist recurring events")
		}
		return nil
	}); err != nil {
		return 0, err
	}
	s.observeRecurrence(template, plan)
	return len(plan.children), nil
}

// recurrencePlan holds the unsaved children of one template.
type recurrencePlan struct {
	children  []*models.Event
	truncated bool
	flagged   int
}

// planRecurrence expands template in the configured zone and marks children
// that collide with events already stored. A nil plan means nothing to write.
func (s *EventService) planRecurrence(ctx context.Context, template *models.Event) (*recurrencePlan, error) {
	log := s.logger.With(zap.String("template_id", template.ID), zap.String("pattern", string(template.Pattern())))

	expansion, err := scheduler.Expand(s.inLocation(template), scheduler.ExpandOptions{MaxOccurrences: s.config.MaxOccurrences})
	if err != nil {
		if s.config.RecurrenceLenient {
			log.Info("skipping expansion of malformed recurrence", zap.Error(err))
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRecurrence.Code, appErrors.ErrInvalidRecurrence.Status, err.Error())
	}
	children := expansion.Children
	if len(children) == 0 {
		return nil, nil
	}
	if expansion.Truncated {
		log.Warn("recurrence truncated", zap.Int("max_occurrences", s.config.MaxOccurrences))
	}

	from, to := s.config.dayWindow(children[0].StartTime, children[len(children)-1].StartTime)
	known, err := s.events.List(ctx, models.EventFilter{UserID: template.UserID, From: from, To: to})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load events for recurrence check")
	}
	others := make([]*models.Event, 0, len(known))
	for _, e := range pointers(known) {
		if e.ID != template.ID {
			others = append(others, e)
		}
	}
	flagged := scheduler.FlagAgainst(children, others, s.config.scanOptions())
	return &recurrencePlan{children: children, truncated: expansion.Truncated, flagged: flagged}, nil
}

// inLocation copies template with its clock times in the configured zone, so
// the cadence keeps the local wall time across DST and month ends fall on
// local dates.
func (s *EventService) inLocation(template *models.Event) *models.Event {
	loc := s.config.location()
	local := *template
	local.StartTime = template.StartTime.In(loc)
	if template.EndTime != nil {
		end := template.EndTime.In(loc)
		local.EndTime = &end
	}
	return &local
}

func (s *EventService) observeRecurrence(template *models.Event, plan *recurrencePlan) {
	s.metrics.ObserveRecurrence(template.Pattern(), len(plan.children), plan.truncated)
	s.logger.Info("recurrence expanded",
		zap.String("template_id", template.ID),
		zap.Int("children", len(plan.children)),
		zap.Int("flagged", plan.flagged),
	)
}

// Update patches an event. Its conflict marker is re-derived from scratch and
// its reminder re-armed when the start moves.
func (s *EventService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateEventRequest) (*dto.EventResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid event payload")
	}
	event, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	previousStart := event.StartTime
	previousCase := event.CaseID
	if err := applyUpdate(event, req); err != nil {
		return nil, err
	}
	if err := validateWindow(event); err != nil {
		return nil, err
	}
	if !sameString(previousCase, event.CaseID) {
		if err := s.checkCase(ctx, event); err != nil {
			return nil, err
		}
	}
	if !event.StartTime.Equal(previousStart) {
		event.ReminderSent = false
	}

	event.SetConflictStatus("")
	conflicts, err := s.CheckConflicts(ctx, event)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		event.SetConflictStatus(models.ConflictPotential)
	}
	if err := s.events.Update(ctx, event); err != nil {
		return nil, appErrors.Internal(err, "failed to update event")
	}
	s.invalidate(ctx, event.UserID)
	return &dto.EventResult{Event: event, Conflicts: conflicts}, nil
}

// Resolve marks an event's conflict as handled by the user.
func (s *EventService) Resolve(ctx context.Context, actor models.Actor, id string) (*models.Event, error) {
	event, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	event.SetConflictStatus(models.ConflictResolved)
	if err := s.events.Update(ctx, event); err != nil {
		return nil, appErrors.Internal(err, "failed to resolve conflict")
	}
	return event, nil
}

// Delete removes an event. Children of a template stay in the calendar.
func (s *EventService) Delete(ctx context.Context, actor models.Actor, id string) error {
	event, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, event.ID); err != nil {
		return appErrors.Internal(err, "failed to delete event")
	}
	s.invalidate(ctx, event.UserID)
	return nil
}

// Children lists the occurrences generated from a recurring template.
func (s *EventService) Children(ctx context.Context, actor models.Actor, id string) ([]models.Event, error) {
	template, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	children, err := s.events.ListByRelated(ctx, template.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list recurring children")
	}
	if children == nil {
		children = []models.Event{}
	}
	return children, nil
}

func (s *EventService) getOwned(ctx context.Context, actor models.Actor, id string) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "event")
	}
	if !canAccess(actor, event) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "event belongs to another user")
	}
	return event, nil
}

// normalizeRecurrence enforces complete recurrence settings, or in lenient
// mode drops what cannot be expanded.
func (s *EventService) normalizeRecurrence(req *dto.CreateEventRequest) error {
	if !req.IsRecurring {
		req.RecurrencePattern = ""
		req.RecurrenceEndDate = ""
		return nil
	}
	pattern := models.RecurrencePattern(req.RecurrencePattern)
	switch {
	case pattern.Valid() && req.RecurrenceEndDate != "":
		return nil
	case s.config.RecurrenceLenient:
		if !pattern.Valid() {
			req.RecurrencePattern = ""
		}
		return nil
	case !pattern.Valid():
		return appErrors.Clone(appErrors.ErrInvalidRecurrence, "recurrence_pattern must be daily, weekly, biweekly or monthly")
	default:
		return appErrors.Clone(appErrors.ErrInvalidRecurrence, "recurrence_end_date is required for recurring events")
	}
}

func (s *EventService) buildEvent(req dto.CreateEventRequest, owner string) (*models.Event, error) {
	event := &models.Event{
		Title:             req.Title,
		Description:       req.Description,
		Location:          req.Location,
		EventType:         req.EventType,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		IsAllDay:          req.IsAllDay,
		BufferBefore:      req.BufferBefore,
		BufferAfter:       req.BufferAfter,
		TravelTimeMinutes: req.TravelTimeMinutes,
		Priority:          models.Priority(req.Priority),
		IsRecurring:       req.IsRecurring,
		CaseID:            emptyToNil(req.CaseID),
		UserID:            owner,
		ReminderTime:      req.ReminderTime,
		IsFlexible:        req.IsFlexible,
	}
	if req.RecurrencePattern != "" {
		pattern := models.RecurrencePattern(req.RecurrencePattern)
		event.RecurrencePattern = &pattern
	}
	if req.RecurrenceEndDate != "" {
		until, err := parseDate(req.RecurrenceEndDate, s.config.location())
		if err != nil {
			return nil, err
		}
		event.RecurrenceEndDate = &until
	}
	if err := setCarriedData(event, req.Participants, req.NotificationPreferences); err != nil {
		return nil, err
	}
	event.ApplyDefaults()
	return event, nil
}

func applyUpdate(event *models.Event, req dto.UpdateEventRequest) error {
	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.EventType != nil {
		event.EventType = *req.EventType
	}
	if req.StartTime != nil {
		event.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		end := *req.EndTime
		event.EndTime = &end
	}
	if req.ClearEndTime {
		event.EndTime = nil
	}
	if req.IsAllDay != nil {
		event.IsAllDay = *req.IsAllDay
	}
	if req.BufferBefore != nil {
		event.BufferBefore = *req.BufferBefore
	}
	if req.BufferAfter != nil {
		event.BufferAfter = *req.BufferAfter
	}
	if req.TravelTimeMinutes != nil {
		event.TravelTimeMinutes = *req.TravelTimeMinutes
	}
	if req.Priority != nil {
		event.Priority = models.Priority(*req.Priority)
	}
	if req.CaseID != nil {
		event.CaseID = emptyToNil(req.CaseID)
	}
	if req.ReminderTime != nil {
		reminder := *req.ReminderTime
		event.ReminderTime = &reminder
	}
	if req.IsFlexible != nil {
		event.IsFlexible = *req.IsFlexible
	}
	if req.Participants != nil || req.NotificationPreferences != nil {
		participants := req.Participants
		if participants == nil {
			participants = event.ParticipantList()
		}
		prefs := req.NotificationPreferences
		if prefs == nil {
			prefs = event.Preferences()
		}
		return setCarriedData(event, participants, prefs)
	}
	return nil
}

func setCarriedData(event *models.Event, participants []models.Participant, prefs map[string]interface{}) error {
	if err := event.SetParticipants(participants); err != nil {
		return appErrors.Validation(err, "invalid participants")
	}
	if prefs == nil {
		prefs = map[string]interface{}{}
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return appErrors.Validation(err, "invalid notification preferences")
	}
	event.NotificationPreferences = types.JSONText(raw)
	return nil
}

func validateWindow(event *models.Event) error {
	if event.EndTime != nil && event.EndTime.Before(event.StartTime) {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must not be before start_time")
	}
	return nil
}

func (s *EventService) checkCase(ctx context.Context, event *models.Event) error {
	c, err := s.resolveCase(ctx, event.CaseID)
	if err != nil {
		return err
	}
	if event.CaseID != nil && c == nil {
		return appErrors.Clone(appErrors.ErrValidation, "case_id does not reference a known case")
	}
	if c != nil && c.UserID != event.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "case belongs to another user")
	}
	event.Case = c
	return nil
}

// resolveCase loads the linked case once; a dangling link yields nil.
func (s *EventService) resolveCase(ctx context.Context, caseID *string) (*models.Case, error) {
	if caseID == nil || s.cases == nil {
		return nil, nil
	}
	c, err := s.cases.FindByID(ctx, *caseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load case")
	}
	return c, nil
}

func (s *EventService) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.InvalidateUser(ctx, userID)
	}
}

func emptyToNil(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	out := *v
	return &out
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
