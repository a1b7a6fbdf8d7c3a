package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lexcal-api/internal/models"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
	"github.com/noah-isme/lexcal-api/pkg/jobs"
)

// ReminderJobType tags reminder jobs on the background queue.
const ReminderJobType = "event.reminder"

const defaultReminderLookahead = 30 * 24 * time.Hour

type reminderRepository interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
	ListPendingReminders(ctx context.Context, from, to time.Time) ([]models.Event, error)
	MarkReminderSent(ctx context.Context, id string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// Reminder is the message handed to a Notifier.
type Reminder struct {
	EventID    string
	Title      string
	EventType  string
	Location   string
	StartTime  time.Time
	CaseTitle  string
	Recipients []string
}

// Notifier delivers reminders.
type Notifier interface {
	Notify(ctx context.Context, reminder Reminder) error
}

// LogNotifier writes reminders to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a log notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, reminder Reminder) error {
	n.logger.Info("event reminder",
		zap.String("event_id", reminder.EventID),
		zap.String("title", reminder.Title),
		zap.Time("start_time", reminder.StartTime),
		zap.Strings("recipients", reminder.Recipients),
	)
	return nil
}

// ReminderService finds reminders that are due and delivers each one once.
type ReminderService struct {
	events    reminderRepository
	cases     caseLookup
	notifier  Notifier
	queue     jobEnqueuer
	metrics   *MetricsService
	logger    *zap.Logger
	lookahead time.Duration
	now       func() time.Time

	inflight sync.Map
}

// NewReminderService constructs a reminder service. Without a queue reminders
// are delivered inline by DispatchDue.
func NewReminderService(events reminderRepository, cases caseLookup, notifier Notifier, metrics *MetricsService, logger *zap.Logger, lookahead time.Duration) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if lookahead <= 0 {
		lookahead = defaultReminderLookahead
	}
	return &ReminderService{
		events:    events,
		cases:     cases,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		lookahead: lookahead,
		now:       time.Now,
	}
}

// UseQueue routes deliveries through a background queue.
func (s *ReminderService) UseQueue(queue jobEnqueuer) {
	s.queue = queue
}

// DispatchDue hands every unsent reminder whose time has come to the queue
// and returns how many were dispatched.
func (s *ReminderService) DispatchDue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	pending, err := s.events.ListPendingReminders(ctx, now, now.Add(s.lookahead))
	if err != nil {
		return 0, appErrors.Internal(err, "failed to list pending reminders")
	}

	dispatched := 0
	for i := range pending {
		event := &pending[i]
		due, ok := event.ReminderDueAt()
		if !ok || due.After(now) {
			continue
		}
		if _, busy := s.inflight.LoadOrStore(event.ID, struct{}{}); busy {
			continue
		}
		if s.queue == nil {
			err = s.deliver(ctx, event.ID)
		} else {
			err = s.queue.Enqueue(jobs.Job{Type: ReminderJobType, Payload: event.ID})
		}
		if err != nil {
			s.inflight.Delete(event.ID)
			s.logger.Warn("reminder dispatch failed", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		dispatched++
	}
	if dispatched > 0 {
		s.logger.Info("reminders dispatched", zap.Int("count", dispatched))
	}
	return dispatched, nil
}

// HandleJob is the queue handler for reminder jobs.
func (s *ReminderService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != ReminderJobType {
		return fmt.Errorf("unexpected job type %q", job.Type)
	}
	eventID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("reminder job %s carries %T", job.ID, job.Payload)
	}
	return s.deliver(ctx, eventID)
}

func (s *ReminderService) deliver(ctx context.Context, eventID string) error {
	defer s.inflight.Delete(eventID)

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		s.metrics.ObserveReminder("failed")
		return notFoundOr(err, "event")
	}
	if event.ReminderSent {
		s.metrics.ObserveReminder("skipped")
		return nil
	}

	reminder := Reminder{
		EventID:    event.ID,
		Title:      event.Title,
		EventType:  event.EventType,
		Location:   event.Location,
		StartTime:  event.StartTime,
		Recipients: s.recipients(ctx, event),
	}
	if c := event.Case; c != nil {
		reminder.CaseTitle = c.Title
	}
	if err := s.notifier.Notify(ctx, reminder); err != nil {
		s.metrics.ObserveReminder("failed")
		return fmt.Errorf("notify %s: %w", eventID, err)
	}
	if err := s.events.MarkReminderSent(ctx, eventID); err != nil {
		s.metrics.ObserveReminder("failed")
		return fmt.Errorf("mark reminder %s sent: %w", eventID, err)
	}
	s.metrics.ObserveReminder("sent")
	return nil
}

// recipients collects participant emails and the case client's email, deduplicated.
func (s *ReminderService) recipients(ctx context.Context, event *models.Event) []string {
	seen := map[string]struct{}{}
	add := func(email string) {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			seen[email] = struct{}{}
		}
	}
	for _, p := range event.ParticipantList() {
		add(p.Email)
	}
	if event.CaseID != nil && s.cases != nil {
		c, err := s.cases.FindByID(ctx, *event.CaseID)
		switch {
		case err == nil && c != nil:
			event.Case = c
			add(c.ClientEmail)
		case err != nil:
			s.logger.Debug("reminder case lookup failed", zap.String("case_id", *event.CaseID), zap.Error(err))
		}
	}

	out := make([]string, 0, len(seen))
	for email := range seen {
		out = append(out, email)
	}
	sort.Strings(out)
	return out
}
