// Package cli implements lexcalctl, the operator command line.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/models"
)

// ConflictScanner persists conflict markers.
type ConflictScanner interface {
	Scan(ctx context.Context, userID string, from, to time.Time) (*models.ScanSummary, error)
	RescanAll(ctx context.Context, days int) (*dto.RescanResult, error)
}

// SlotSuggester proposes free windows.
type SlotSuggester interface {
	Suggest(ctx context.Context, userID string, date time.Time, durationMinutes int, eventType string) (*models.SlotSuggestionResponse, error)
}

// AgendaArchiver writes rendered agendas to storage.
type AgendaArchiver interface {
	Archive(ctx context.Context, userID string, from, to time.Time, format string) (string, error)
}

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	Issue(userID, email string, role models.UserRole) (string, time.Time, error)
}

// App holds the services the commands drive.
type App struct {
	Location  *time.Location
	Migrate   func(ctx context.Context) error
	Conflicts ConflictScanner
	Slots     SlotSuggester
	Exports   AgendaArchiver
	Tokens    TokenIssuer
}

// NewRootCmd creates the top-level "lexcalctl" command.
func NewRootCmd(app *App) *cobra.Command {
	if app.Location == nil {
		app.Location = time.UTC
	}
	root := &cobra.Command{
		Use:           "lexcalctl",
		Short:         "Operate the LexCal scheduling engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(app),
		newScanCmd(app),
		newRescanCmd(app),
		newSuggestCmd(app),
		newExportCmd(app),
		newTokenCmd(app),
	)

	return root
}
