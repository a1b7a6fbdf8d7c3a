package scheduler

import (
	"time"

	"github.com/noah-isme/lexcal-api/internal/models"
)

const (
	criticalOverlap    = 30 * time.Minute
	significantOverlap = 15 * time.Minute
)

// Classify grades an overlapping pair. Callers only pass pairs for which
// Overlaps holds. Thresholds compare the exact overlap, so 30m30s is above 30
// minutes.
func Classify(a, b *models.Event) models.Severity {
	if a.IsCourtRelated() && b.IsCourtRelated() {
		return models.SeverityCritical
	}
	overlap := Overlap(a, b)
	if overlap > criticalOverlap && (a.Priority == models.PriorityHigh || b.Priority == models.PriorityHigh) {
		return models.SeverityCritical
	}
	if overlap > significantOverlap {
		return models.SeveritySignificant
	}
	return models.SeverityMinor
}
