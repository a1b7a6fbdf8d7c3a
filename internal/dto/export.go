package dto

import "time"

// Export formats.
const (
	FormatICS = "ics"
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// ExportQuery selects the agenda to export.
type ExportQuery struct {
	From   string `form:"from" validate:"required,datetime=2006-01-02"`
	To     string `form:"to" validate:"required,datetime=2006-01-02"`
	Format string `form:"format" validate:"omitempty,oneof=ics csv pdf"`
}

// ExportFile is a rendered agenda ready to download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// FeedTokenResponse carries a calendar subscription URL.
type FeedTokenResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ImportResult reports what an .ics upload produced.
type ImportResult struct {
	Imported   int `json:"imported"`
	Conflicted int `json:"conflicted"`
	Skipped    int `json:"skipped"`
	// RecurringTruncated counts events whose RRULE was dropped after the first occurrence.
	RecurringTruncated int      `json:"recurring_truncated"`
	EventIDs           []string `json:"event_ids"`
}
