package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/lexcal-api/internal/dto"
	"github.com/noah-isme/lexcal-api/internal/models"
)

const dateLayout = "2006-01-02"

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newScanCmd(app *App) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "scan USER_ID",
		Short: "Flag conflicting events of one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := dateWindow(from, to, app.Location)
			if err != nil {
				return err
			}
			summary, err := app.Conflicts.Scan(cmd.Context(), args[0], start, end)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanned %d events, flagged %d\n", summary.EventsScanned, summary.Flagged)
			if len(summary.Pairs) == 0 {
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tSEVERITY\tOVERLAP\tFIRST\tSECOND")
			for _, p := range summary.Pairs {
				fmt.Fprintf(w, "%s\t%s\t%dm\t%s\t%s\n", p.Date, p.Severity, p.OverlapMinutes, p.EventATitle, p.EventBTitle)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&to, "to", "", "last date, inclusive (YYYY-MM-DD), defaults to from + 30 days")
	return cmd
}

func newRescanCmd(app *App) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "rescan",
		Short: "Scan every user's upcoming events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			result, err := app.Conflicts.RescanAll(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users=%d flagged=%d pairs=%d\n", result.Users, result.Flagged, result.Pairs)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "horizon in days starting today")
	return cmd
}

func newSuggestCmd(app *App) *cobra.Command {
	var (
		date      string
		duration  int
		eventType string
	)
	cmd := &cobra.Command{
		Use:   "suggest USER_ID",
		Short: "List free slots on a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(date, app.Location)
			if err != nil {
				return err
			}
			resp, err := app.Slots.Suggest(cmd.Context(), args[0], day, duration, eventType)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(resp.AvailableSlots) == 0 {
				fmt.Fprintf(out, "no free %d minute slots on %s\n", duration, resp.Date)
				return nil
			}
			for _, slot := range resp.AvailableSlots {
				fmt.Fprintln(out, slot.FormattedTime)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&duration, "duration", 60, "duration in minutes")
	cmd.Flags().StringVar(&eventType, "type", "", "event type, e.g. \"Court Hearing\"")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var from, to, format string
	cmd := &cobra.Command{
		Use:   "export USER_ID",
		Short: "Write an agenda file to the export directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case dto.FormatICS, dto.FormatCSV, dto.FormatPDF:
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
			start, end, err := dateWindow(from, to, app.Location)
			if err != nil {
				return err
			}
			path, err := app.Exports.Archive(cmd.Context(), args[0], start, end, format)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&to, "to", "", "last date, inclusive (YYYY-MM-DD), defaults to from + 30 days")
	cmd.Flags().StringVar(&format, "format", dto.FormatICS, "ics, csv or pdf")
	return cmd
}

func newTokenCmd(app *App) *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "token USER_ID",
		Short: "Mint an access token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userRole := models.UserRole(strings.ToUpper(role))
			switch userRole {
			case models.RoleAdmin, models.RoleAttorney, models.RoleParalegal:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			token, expires, err := app.Tokens.Issue(args[0], email, userRole)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAttorney), "ADMIN, ATTORNEY or PARALEGAL")
	return cmd
}

func parseDay(raw string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates must use YYYY-MM-DD: %q", raw)
	}
	return day, nil
}

// dateWindow turns optional inclusive dates into a half-open range.
func dateWindow(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	var start time.Time
	if from == "" {
		y, m, d := time.Now().In(loc).Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	} else {
		var err error
		if start, err = parseDay(from, loc); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if to == "" {
		return start, start.AddDate(0, 0, 31), nil
	}
	last, err := parseDay(to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if last.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must not be before --from")
	}
	return start, last.AddDate(0, 0, 1), nil
}
