package scheduler

import (
	"sort"
	"time"

	"github.com/noah-isme/lexcal-api/internal/models"
)

// ScanOptions controls how events are grouped into comparable sets.
type ScanOptions struct {
	// Location decides which calendar date an event falls on. Defaults to UTC.
	Location *time.Location
	// CrossMidnight also compares each day against the following day so that
	// buffers bleeding past midnight are caught.
	CrossMidnight bool
}

func (o ScanOptions) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// ScanResult lists the conflicting pairs and the events whose status moved.
type ScanResult struct {
	Pairs   []models.ConflictPair
	Changed []*models.Event
}

// Scan flags every overlapping pair of events that share a date. Events with
// no conflict status become "potential"; an existing status is never
// overwritten, so repeated scans are stable. Events are mutated in place.
func Scan(events []*models.Event, opts ScanOptions) ScanResult {
	return scan(events, opts, true)
}

// Detect reports conflicting pairs without touching any status.
func Detect(events []*models.Event, opts ScanOptions) []models.ConflictPair {
	return scan(events, opts, false).Pairs
}

func scan(events []*models.Event, opts ScanOptions, mark bool) ScanResult {
	loc := opts.location()
	groups, dates := groupByDate(events, loc)

	result := ScanResult{Pairs: []models.ConflictPair{}}
	changed := make(map[*models.Event]struct{})
	flag := func(e *models.Event) {
		if !mark || e.HasConflictStatus() {
			return
		}
		e.SetConflictStatus(models.ConflictPotential)
		if _, seen := changed[e]; !seen {
			changed[e] = struct{}{}
			result.Changed = append(result.Changed, e)
		}
	}
	record := func(date string, a, b *models.Event) {
		if !overlapsIn(a, b, loc) {
			return
		}
		result.Pairs = append(result.Pairs, newPair(date, a, b))
		flag(a)
		flag(b)
	}

	for _, date := range dates {
		group := groups[date]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				record(date, group[i], group[j])
			}
		}
		if !opts.CrossMidnight {
			continue
		}
		next := groups[nextDate(date, loc)]
		for _, a := range group {
			for _, b := range next {
				if a.IsAllDay || b.IsAllDay {
					continue
				}
				record(date, a, b)
			}
		}
	}
	return result
}

// ConflictsFor returns the candidates that collide with target, skipping target itself.
func ConflictsFor(target *models.Event, candidates []*models.Event, opts ScanOptions) []*models.Event {
	loc := opts.location()
	day := dateKey(target.StartTime, loc)
	nextDay := nextDate(day, loc)
	prevDay := prevDate(day, loc)

	var out []*models.Event
	for _, c := range candidates {
		if c == nil || c == target || (target.ID != "" && c.ID == target.ID) {
			continue
		}
		cDay := dateKey(c.StartTime, loc)
		switch {
		case cDay == day:
		case opts.CrossMidnight && (cDay == nextDay || cDay == prevDay) && !c.IsAllDay && !target.IsAllDay:
		default:
			continue
		}
		if overlapsIn(target, c, loc) {
			out = append(out, c)
		}
	}
	return out
}

// FlagAgainst marks each child "potential" when it collides with any known event.
func FlagAgainst(children, known []*models.Event, opts ScanOptions) int {
	flagged := 0
	for _, child := range children {
		if len(ConflictsFor(child, known, opts)) == 0 {
			continue
		}
		if !child.HasConflictStatus() {
			child.SetConflictStatus(models.ConflictPotential)
			flagged++
		}
	}
	return flagged
}

func newPair(date string, a, b *models.Event) models.ConflictPair {
	return models.ConflictPair{
		EventAID:       a.ID,
		EventBID:       b.ID,
		EventATitle:    a.Title,
		EventBTitle:    b.Title,
		Date:           date,
		Severity:       Classify(a, b),
		OverlapMinutes: OverlapMinutes(a, b),
	}
}

// groupByDate buckets events by local date, preserving input order in each
// bucket, and returns the dates sorted ascending.
func groupByDate(events []*models.Event, loc *time.Location) (map[string][]*models.Event, []string) {
	groups := make(map[string][]*models.Event)
	var dates []string
	for _, e := range events {
		if e == nil {
			continue
		}
		key := dateKey(e.StartTime, loc)
		if _, ok := groups[key]; !ok {
			dates = append(dates, key)
		}
		groups[key] = append(groups[key], e)
	}
	sort.Strings(dates)
	return groups, dates
}

func nextDate(date string, loc *time.Location) string {
	return shiftDate(date, loc, 1)
}

func prevDate(date string, loc *time.Location) string {
	return shiftDate(date, loc, -1)
}

func shiftDate(date string, loc *time.Location, days int) string {
	t, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, days).Format(dateLayout)
}
