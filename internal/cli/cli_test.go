package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/models"
)

type conflictStub struct {
	userID   string
	from, to time.Time
	days     int
}

func (s *conflictStub) Scan(ctx context.Context, userID string, from, to time.Time) (*models.ScanSummary, error) {
	s.userID, s.from, s.to = userID, from, to
	return &models.ScanSummary{
		UserID:        userID,
		EventsScanned: 3,
		Flagged:       2,
		Pairs: []models.ConflictPair{{
			Date: "2024-03-04", Severity: models.SeverityCritical, OverlapMinutes: 90,
			EventATitle: "Hearing", EventBTitle: "Deposition",
		}},
	}, nil
}

func (s *conflictStub) RescanAll(ctx context.Context, days int) (*dto.RescanResult, error) {
	s.days = days
	return &dto.RescanResult{Users: 4, Flagged: 5, Pairs: 2}, nil
}

type slotStub struct {
	date     time.Time
	duration int
}

func (s *slotStub) Suggest(ctx context.Context, userID string, date time.Time, durationMinutes int, eventType string) (*models.SlotSuggestionResponse, error) {
	s.date, s.duration = date, durationMinutes
	return &models.SlotSuggestionResponse{
		Date:           date.Format(dateLayout),
		AvailableSlots: []models.TimeSlot{{FormattedTime: "08:00 AM - 09:00 AM"}, {FormattedTime: "09:00 AM - 10:00 AM"}},
	}, nil
}

type archiveStub struct {
	format   string
	from, to time.Time
}

func (s *archiveStub) Archive(ctx context.Context, userID string, from, to time.Time, format string) (string, error) {
	s.format, s.from, s.to = format, from, to
	return "/exports/" + userID + "/agenda." + format, nil
}

type tokenStub struct {
	role models.UserRole
}

func (s *tokenStub) Issue(userID, email string, role models.UserRole) (string, time.Time, error) {
	s.role = role
	return "signed-token", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), nil
}

func execute(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScanCommandUsesInclusiveRange(t *testing.T) {
	stub := &conflictStub{}
	out, err := execute(t, &App{Conflicts: stub}, "scan", "user-1", "--from", "2024-03-01", "--to", "2024-03-07")
	require.NoError(t, err)

	assert.Equal(t, "user-1", stub.userID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), stub.from)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), stub.to)
	assert.Contains(t, out, "scanned 3 events, flagged 2")
	assert.Contains(t, out, "critical")
	assert.Contains(t, out, "90m")
}

func TestScanCommandRejectsReversedRange(t *testing.T) {
	_, err := execute(t, &App{Conflicts: &conflictStub{}}, "scan", "user-1", "--from", "2024-03-07", "--to", "2024-03-01")
	require.Error(t, err)
}

func TestRescanCommand(t *testing.T) {
	stub := &conflictStub{}
	out, err := execute(t, &App{Conflicts: stub}, "rescan", "--days", "14")
	require.NoError(t, err)
	assert.Equal(t, 14, stub.days)
	assert.Equal(t, "users=4 flagged=5 pairs=2\n", out)

	_, err = execute(t, &App{Conflicts: stub}, "rescan", "--days", "0")
	require.Error(t, err)
}

func TestSuggestCommand(t *testing.T) {
	stub := &slotStub{}
	out, err := execute(t, &App{Slots: stub}, "suggest", "user-1", "--date", "2024-03-04", "--duration", "90")
	require.NoError(t, err)
	assert.Equal(t, 90, stub.duration)
	assert.Equal(t, "2024-03-04", stub.date.Format(dateLayout))
	assert.Equal(t, "08:00 AM - 09:00 AM\n09:00 AM - 10:00 AM\n", out)

	_, err = execute(t, &App{Slots: stub}, "suggest", "user-1")
	require.Error(t, err, "date is required")
}

func TestExportCommand(t *testing.T) {
	stub := &archiveStub{}
	out, err := execute(t, &App{Exports: stub}, "export", "user-1", "--from", "2024-03-01", "--to", "2024-03-01", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", stub.format)
	assert.Equal(t, 24*time.Hour, stub.to.Sub(stub.from))
	assert.Equal(t, "/exports/user-1/agenda.csv\n", out)

	_, err = execute(t, &App{Exports: stub}, "export", "user-1", "--format", "xlsx")
	require.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	stub := &tokenStub{}
	out, err := execute(t, &App{Tokens: stub}, "token", "user-1", "--role", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, stub.role)
	assert.Equal(t, "signed-token\n", out)

	_, err = execute(t, &App{Tokens: stub}, "token", "user-1", "--role", "judge")
	require.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	calls := 0
	app := &App{Migrate: func(ctx context.Context) error {
		calls++
		if calls > 1 {
			return errors.New("db locked")
		}
		return nil
	}}

	out, err := execute(t, app, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "schema up to date\n", out)

	_, err = execute(t, app, "migrate")
	require.EqualError(t, err, "db locked")
}
