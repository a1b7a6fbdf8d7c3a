package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lexcal-api/internal/models"
)

func recurring(pattern models.RecurrencePattern, day, until string) *models.Event {
	tpl := event("tpl", "Hearing", day, "10:00", "11:30")
	tpl.IsRecurring = true
	tpl.RecurrencePattern = &pattern
	end := at(until, "00:00")
	tpl.RecurrenceEndDate = &end
	return tpl
}

func dates(children []*models.Event) []string {
	out := make([]string, 0, len(children))
	for _, c := range children {
		out = append(out, c.StartTime.Format("2006-01-02"))
	}
	return out
}

func TestExpandWeeklyIncludesEndDate(t *testing.T) {
	tpl := recurring(models.RecurrenceWeekly, "2024-01-01", "2024-01-22")

	exp, err := Expand(tpl, ExpandOptions{})
	require.NoError(t, err)
	assert.False(t, exp.Truncated)
	assert.Equal(t, []string{"2024-01-08", "2024-01-15", "2024-01-22"}, dates(exp.Children))
}

func TestExpandWeeklyStopsBeforeEndDate(t *testing.T) {
	tpl := recurring(models.RecurrenceWeekly, "2024-01-01", "2024-01-20")

	exp, err := Expand(tpl, ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-08", "2024-01-15"}, dates(exp.Children))
}

func TestExpandDailyAndBiweekly(t *testing.T) {
	daily, err := Expand(recurring(models.RecurrenceDaily, "2024-02-27", "2024-03-01"), ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-28", "2024-02-29", "2024-03-01"}, dates(daily.Children))

	biweekly, err := Expand(recurring(models.RecurrenceBiweekly, "2024-01-01", "2024-02-12"), ExpandOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-15", "2024-01-29", "2024-02-12"}, dates(biweekly.Children))
}

func TestExpandMonthlyClampCarriesForward(t *testing.T) {
	cases := []struct {
		start, until string
		want         []string
	}{
		{"2023-01-31", "2023-04-30", []string{"2023-02-28", "2023-03-28", "2023-04-28"}},
		{"2024-01-31", "2024-03-31", []string{"2024-02-29", "2024-03-29"}},
		{"2023-11-30", "2024-02-29", []string{"2023-12-30", "2024-01-30", "2024-02-29"}},
	}
	for _, tc := range cases {
		t.Run(tc.start, func(t *testing.T) {
			exp, err := Expand(recurring(models.RecurrenceMonthly, tc.start, tc.until), ExpandOptions{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, dates(exp.Children))
		})
	}
}

func TestExpandEndOnOrBeforeStartYieldsNothing(t *testing.T) {
	for _, pattern := range []models.RecurrencePattern{models.RecurrenceDaily, models.RecurrenceMonthly} {
		exp, err := Expand(recurring(pattern, "2024-01-10", "2024-01-10"), ExpandOptions{})
		require.NoError(t, err)
		assert.Empty(t, exp.Children)

		exp, err = Expand(recurring(pattern, "2024-01-10", "2024-01-01"), ExpandOptions{})
		require.NoError(t, err)
		assert.Empty(t, exp.Children)
	}
}

func TestExpandCopiesTemplateFields(t *testing.T) {
	tpl := recurring(models.RecurrenceWeekly, "2024-01-01", "2024-01-08")
	caseID := "case-1"
	reminder := 30
	tpl.CaseID = &caseID
	tpl.ReminderTime = &reminder
	tpl.BufferBefore, tpl.BufferAfter = 10, 5
	tpl.Priority = models.PriorityHigh
	tpl.Location = "Court 4"

	exp, err := Expand(tpl, ExpandOptions{})
	require.NoError(t, err)
	require.Len(t, exp.Children, 1)

	child := exp.Children[0]
	assert.False(t, child.IsRecurring)
	assert.Nil(t, child.RecurrencePattern)
	require.NotNil(t, child.RelatedEventID)
	assert.Equal(t, "tpl", *child.RelatedEventID)
	assert.Equal(t, at("2024-01-08", "10:00"), child.StartTime)
	require.NotNil(t, child.EndTime)
	assert.Equal(t, 90*time.Minute, child.EndTime.Sub(child.StartTime))
	assert.Equal(t, "case-1", *child.CaseID)
	assert.Equal(t, 30, *child.ReminderTime)
	assert.Zero(t, child.BufferBefore, "buffers stay on the template")
	assert.Zero(t, child.BufferAfter)
	assert.Equal(t, models.PriorityHigh, child.Priority)
	assert.Equal(t, "Court 4", child.Location)

	caseID = "mutated"
	assert.Equal(t, "case-1", *child.CaseID)
}

func TestExpandRejectsMalformedRecurrence(t *testing.T) {
	tpl := recurring(models.RecurrenceWeekly, "2024-01-01", "2024-01-22")
	tpl.RecurrenceEndDate = nil
	_, err := Expand(tpl, ExpandOptions{})
	assert.True(t, errors.Is(err, ErrIncompleteRecurrence))

	tpl = recurring("yearly", "2024-01-01", "2024-01-22")
	_, err = Expand(tpl, ExpandOptions{})
	assert.True(t, errors.Is(err, ErrUnsupportedPattern))

	plain := event("x", "Meeting", "2024-01-01", "09:00", "10:00")
	exp, err := Expand(plain, ExpandOptions{})
	require.NoError(t, err)
	assert.Empty(t, exp.Children)
}

func TestExpandHonoursOccurrenceCap(t *testing.T) {
	daily, err := Expand(recurring(models.RecurrenceDaily, "2024-01-01", "2024-12-31"), ExpandOptions{MaxOccurrences: 5})
	require.NoError(t, err)
	assert.True(t, daily.Truncated)
	assert.Len(t, daily.Children, 5)

	monthly, err := Expand(recurring(models.RecurrenceMonthly, "2024-01-01", "2030-01-01"), ExpandOptions{MaxOccurrences: 3})
	require.NoError(t, err)
	assert.True(t, monthly.Truncated)
	assert.Equal(t, []string{"2024-02-01", "2024-03-01", "2024-04-01"}, dates(monthly.Children))
}
