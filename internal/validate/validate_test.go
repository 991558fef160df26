package validate

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickcal/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventHappyPath(t *testing.T) {
	jsonText := `{
		"title": "Team standup",
		"start": "2024-01-16 09:00",
		"end": "2024-01-16 09:30",
		"description": "Daily check-in",
		"location": "Room 4",
		"alerts": [15, 15, 60],
		"recurrence": "weekly",
		"attendees": ["a@x.com", "b@y.com", "a@x.com"]
	}`

	ev, err := Event(jsonText, time.UTC, testLogger())
	require.NoError(t, err)

	assert.Equal(t, "Team standup", ev.Title)
	assert.Equal(t, time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.Date(2024, 1, 16, 9, 30, 0, 0, time.UTC), ev.End)
	assert.Equal(t, []int{15, 15, 60}, ev.Alerts, "order and multiplicity preserved")
	assert.Equal(t, models.RecurWeekly, ev.Recurrence.Kind)
	assert.Equal(t, []string{"a@x.com", "b@y.com", "a@x.com"}, ev.Attendees, "not deduplicated")
}

func TestEventReportsEveryViolation(t *testing.T) {
	jsonText := `{"title": "", "start": "someday", "end": "later"}`

	_, err := Event(jsonText, time.UTC, testLogger())
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Violations, 3)
}

func TestEventRejectsEndBeforeStart(t *testing.T) {
	for _, end := range []string{"2024-01-16 09:00", "2024-01-16 08:00"} {
		jsonText := `{"title":"x","start":"2024-01-16 09:00","end":"` + end + `"}`

		_, err := Event(jsonText, time.UTC, testLogger())
		var se *SchemaError
		require.ErrorAs(t, err, &se, "end %s", end)
		assert.Contains(t, se.Violations[0], "end must be after start")
	}
}

func TestEventRejectsMultiDaySpan(t *testing.T) {
	jsonText := `{"title":"x","start":"2024-01-16 09:00","end":"2024-01-18 09:00"}`

	_, err := Event(jsonText, time.UTC, testLogger())
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Violations[0], "24 hours")
}

func TestEventIgnoresUnknownFields(t *testing.T) {
	jsonText := `{"title":"x","start":"2024-01-16 09:00","end":"2024-01-16 10:00","confidence":0.9,"notes":["a"]}`

	_, err := Event(jsonText, time.UTC, testLogger())
	assert.NoError(t, err)
}

func TestEventDropsBadAlertsKeepsGood(t *testing.T) {
	jsonText := `{"title":"x","start":"2024-01-16 09:00","end":"2024-01-16 10:00",
		"alerts": [15, "30", -5, "soon", 2.5, null, 60]}`

	ev, err := Event(jsonText, time.UTC, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []int{15, 30, 60}, ev.Alerts)
}

func TestEventAcceptsAlternateDatetimeLayouts(t *testing.T) {
	jsonText := `{"title":"x","start":"2024-01-16T09:00","end":"2024-01-16 10:00:00"}`

	ev, err := Event(jsonText, time.UTC, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 9, ev.Start.Hour())
	assert.Equal(t, 10, ev.End.Hour())
}

func TestRecurrenceDefaultsToNone(t *testing.T) {
	for _, rec := range []string{"", "sometimes", "every full moon"} {
		jsonText := `{"title":"x","start":"2024-01-16 09:00","end":"2024-01-16 10:00","recurrence":"` + rec + `"}`

		ev, err := Event(jsonText, time.UTC, testLogger())
		require.NoError(t, err)
		assert.Equal(t, models.RecurNone, ev.Recurrence.Kind, "recurrence %q", rec)
	}
}

func TestRecurrenceCustomRulePassesThrough(t *testing.T) {
	jsonText := `{"title":"x","start":"2024-01-16 09:00","end":"2024-01-16 10:00","recurrence":"FREQ=WEEKLY;BYDAY=MO,WE"}`

	ev, err := Event(jsonText, time.UTC, testLogger())
	require.NoError(t, err)
	assert.Equal(t, models.RecurCustom, ev.Recurrence.Kind)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,WE", ev.Recurrence.Rule)
}

func TestEventNotJSON(t *testing.T) {
	_, err := Event("not json at all", time.UTC, testLogger())
	var se *SchemaError
	assert.ErrorAs(t, err, &se)
}
