package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/icalendar"
	"github.com/noah-isme/lexcal-api/internal/models"
	appErrors "github.com/noah-isme/lexcal-api/pkg/errors"
	"github.com/noah-isme/lexcal-api/pkg/export"
	"github.com/noah-isme/lexcal-api/pkg/storage"
)

const (
	feedScope          = "ics"
	feedPastWindow     = 30
	feedFutureWindow   = 180
	contentTypeICS     = "text/calendar; charset=utf-8"
	contentTypeCSV     = "text/csv; charset=utf-8"
	contentTypePDF     = "application/pdf"
	agendaTimeLayout   = "15:04"
	filenameDateLayout = "20060102"
)

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
}

type eventCreator interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateEventRequest) (*dto.EventResult, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix    string
	PublicURL    string
	CalendarName string
	Location     *time.Location
}

// ExportService renders agendas as iCalendar, CSV or PDF, serves signed
// subscription feeds and imports .ics uploads.
type ExportService struct {
	events    eventLister
	creator   eventCreator
	storage   fileStorage
	signer    *storage.FeedSigner
	csv       renderer
	pdf       renderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(events eventLister, creator eventCreator, files fileStorage, signer *storage.FeedSigner, validate *validator.Validate, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CalendarName == "" {
		cfg.CalendarName = "LexCal"
	}
	return &ExportService{
		events:    events,
		creator:   creator,
		storage:   files,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Export renders the actor's agenda over the requested range.
func (s *ExportService) Export(ctx context.Context, actor models.Actor, query dto.ExportQuery) (*dto.ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Validation(err, "invalid export query")
	}
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	from, to, err := dateRange(query.From, query.To, s.cfg.Location)
	if err != nil {
		return nil, err
	}
	return s.Render(ctx, actor.UserID, from, to, query.Format)
}

// Render loads the events of userID in [from, to) and encodes them in format.
func (s *ExportService) Render(ctx context.Context, userID string, from, to time.Time, format string) (*dto.ExportFile, error) {
	events, err := s.events.List(ctx, models.EventFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load events for export")
	}
	if format == "" {
		format = dto.FormatICS
	}

	base := fmt.Sprintf("agenda_%s_%s", from.In(s.cfg.Location).Format(filenameDateLayout), to.In(s.cfg.Location).AddDate(0, 0, -1).Format(filenameDateLayout))
	file := &dto.ExportFile{Filename: base + "." + format}
	switch format {
	case dto.FormatICS:
		file.ContentType = contentTypeICS
		file.Body = icalendar.Encode(events, icalendar.EncodeOptions{Name: s.cfg.CalendarName, Now: s.now()})
	case dto.FormatCSV:
		file.ContentType = contentTypeCSV
		file.Body, err = s.csv.Render(s.agenda(events, from, to))
	case dto.FormatPDF:
		file.ContentType = contentTypePDF
		file.Body, err = s.pdf.Render(s.agenda(events, from, to))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	s.logger.Debug("agenda exported", zap.String("user_id", userID), zap.String("format", format), zap.Int("events", len(events)))
	return file, nil
}

// Archive renders an agenda and writes it through the file storage.
func (s *ExportService) Archive(ctx context.Context, userID string, from, to time.Time, format string) (string, error) {
	if s.storage == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "export storage not configured")
	}
	file, err := s.Render(ctx, userID, from, to, format)
	if err != nil {
		return "", err
	}
	path, err := s.storage.Save(sanitizeFilename(userID)+"/"+file.Filename, file.Body)
	if err != nil {
		return "", appErrors.Internal(err, "failed to store export")
	}
	return path, nil
}

// IssueFeedToken creates a subscription URL for the actor's calendar.
func (s *ExportService) IssueFeedToken(actor models.Actor) (*dto.FeedTokenResponse, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "feed signing not configured")
	}
	token, expiresAt, err := s.signer.Generate(actor.UserID, feedScope)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign feed token")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	url := fmt.Sprintf("%s%s/feeds/%s.ics", strings.TrimRight(s.cfg.PublicURL, "/"), prefix, token)
	return &dto.FeedTokenResponse{Token: token, URL: url, ExpiresAt: expiresAt}, nil
}

// Feed serves the iCalendar feed a signed token grants.
func (s *ExportService) Feed(ctx context.Context, token string) (*dto.ExportFile, error) {
	if s.signer == nil {
		return nil, appErrors.ErrInvalidFeedToken
	}
	claims, err := s.signer.Parse(strings.TrimSuffix(token, ".ics"))
	if err != nil || claims.Scope != feedScope {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFeedToken.Code, appErrors.ErrInvalidFeedToken.Status, appErrors.ErrInvalidFeedToken.Message)
	}
	today := startOfDay(s.now(), s.cfg.Location)
	file, err := s.Render(ctx, claims.UserID, today.AddDate(0, 0, -feedPastWindow), today.AddDate(0, 0, feedFutureWindow), dto.FormatICS)
	if err != nil {
		return nil, err
	}
	file.Filename = "calendar.ics"
	return file, nil
}

// Import creates one event per readable VEVENT. Each goes through the normal
// create path, so conflicts are detected and recorded as usual. Recurrence
// rules are not expanded; only the first occurrence is imported.
func (s *ExportService) Import(ctx context.Context, actor models.Actor, body []byte) (*dto.ImportResult, error) {
	if s.creator == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "import not configured")
	}
	parsed, skipped, err := icalendar.Decode(body, s.cfg.Location)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid ics document")
	}

	result := &dto.ImportResult{Skipped: len(skipped), EventIDs: []string{}}
	for _, sk := range skipped {
		s.logger.Debug("ics event skipped", zap.String("uid", sk.UID), zap.String("reason", sk.Reason))
	}
	for _, p := range parsed {
		created, err := s.creator.Create(ctx, actor, importRequest(p))
		if err != nil {
			result.Skipped++
			s.logger.Info("ics event rejected", zap.String("uid", p.UID), zap.Error(err))
			continue
		}
		result.Imported++
		result.EventIDs = append(result.EventIDs, created.Event.ID)
		if len(created.Conflicts) > 0 {
			result.Conflicted++
		}
		if p.HasRRule {
			result.RecurringTruncated++
		}
	}
	s.logger.Info("ics import complete",
		zap.String("user_id", actor.UserID),
		zap.Int("imported", result.Imported),
		zap.Int("conflicted", result.Conflicted),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func importRequest(p icalendar.ParsedEvent) dto.CreateEventRequest {
	return dto.CreateEventRequest{
		Title:        truncateRunes(p.Title, 200),
		Description:  truncateRunes(p.Description, 4000),
		Location:     truncateRunes(p.Location, 255),
		EventType:    truncateRunes(p.EventType, 64),
		StartTime:    p.Start,
		EndTime:      p.End,
		IsAllDay:     p.AllDay,
		Priority:     int(p.Priority),
		Participants: p.Attendees,
	}
}

func (s *ExportService) agenda(events []models.Event, from, to time.Time) export.Dataset {
	loc := s.cfg.Location
	rows := make([]map[string]string, 0, len(events))
	for i := range events {
		e := &events[i]
		start := e.StartTime.In(loc)
		row := map[string]string{
			"date":     start.Format(dateLayout),
			"start":    start.Format(agendaTimeLayout),
			"end":      e.EndOrDefault().In(loc).Format(agendaTimeLayout),
			"title":    e.Title,
			"type":     e.EventType,
			"location": e.Location,
			"priority": strconv.Itoa(int(e.Priority)),
			"conflict": "",
		}
		if e.IsAllDay {
			row["start"], row["end"] = "all day", ""
		}
		if e.HasConflictStatus() {
			row["conflict"] = string(*e.ConflictStatus)
		}
		if e.CaseID != nil {
			row["case"] = *e.CaseID
		}
		rows = append(rows, row)
	}
	return export.Dataset{
		Title:    s.cfg.CalendarName + " agenda",
		Subtitle: fmt.Sprintf("%s to %s", from.In(loc).Format(dateLayout), to.In(loc).AddDate(0, 0, -1).Format(dateLayout)),
		Columns: []export.Column{
			{Key: "date", Label: "Date", Weight: 1.2},
			{Key: "start", Label: "Start", Weight: 0.8},
			{Key: "end", Label: "End", Weight: 0.8},
			{Key: "title", Label: "Title", Weight: 3},
			{Key: "type", Label: "Type", Weight: 1.5},
			{Key: "location", Label: "Location", Weight: 2},
			{Key: "case", Label: "Case", Weight: 1.5},
			{Key: "priority", Label: "Priority", Weight: 0.7},
			{Key: "conflict", Label: "Conflict", Weight: 1},
		},
		Rows: rows,
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
