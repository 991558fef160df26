// Package validate turns the model's candidate JSON into a checked
// models.Event. It is the trust boundary between the model's loosely
// shaped output and the rest of the pipeline.
package validate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"quickcal/internal/models"
)

// SchemaError reports every violation found, not just the first, so a
// user sees the full shape of what the model got wrong.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "event failed validation: " + strings.Join(e.Violations, "; ")
}

const maxDuration = 24 * time.Hour

// Accepted datetime layouts, tried in order. The prompt asks for the
// first one; the rest tolerate model drift.
var dateTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// candidate mirrors the JSON the prompt requests. Unknown fields are
// ignored by encoding/json, which is the forward-compatibility policy.
type candidate struct {
	Title       string            `json:"title"`
	Start       string            `json:"start"`
	End         string            `json:"end"`
	Description string            `json:"description"`
	Location    string            `json:"location"`
	URL         string            `json:"url"`
	Alerts      []json.RawMessage `json:"alerts"`
	Recurrence  string            `json:"recurrence"`
	Attendees   []string          `json:"attendees"`
}

// Event validates candidate JSON text and returns the canonical event.
// Datetimes are interpreted in loc. Bad alert entries are dropped with a
// warning instead of failing the event; alerts are not worth losing a
// calendar entry over.
func Event(jsonText string, loc *time.Location, logger *slog.Logger) (*models.Event, error) {
	var c candidate
	if err := json.Unmarshal([]byte(jsonText), &c); err != nil {
		return nil, &SchemaError{Violations: []string{fmt.Sprintf("not a JSON object: %v", err)}}
	}

	var violations []string
	if strings.TrimSpace(c.Title) == "" {
		violations = append(violations, "title is missing or empty")
	}
	start, err := parseDateTime(c.Start, loc)
	if err != nil {
		violations = append(violations, fmt.Sprintf("start %q is not a datetime", c.Start))
	}
	end, err := parseDateTime(c.End, loc)
	if err != nil {
		violations = append(violations, fmt.Sprintf("end %q is not a datetime", c.End))
	}
	if !start.IsZero() && !end.IsZero() {
		if !end.After(start) {
			violations = append(violations, "end must be after start")
		} else if end.Sub(start) > maxDuration {
			violations = append(violations, "event longer than 24 hours")
		}
	}
	if len(violations) > 0 {
		return nil, &SchemaError{Violations: violations}
	}

	return &models.Event{
		Title:       strings.TrimSpace(c.Title),
		Start:       start,
		End:         end,
		Description: c.Description,
		Location:    c.Location,
		URL:         c.URL,
		Alerts:      coerceAlerts(c.Alerts, logger),
		Recurrence:  parseRecurrence(c.Recurrence),
		Attendees:   c.Attendees,
	}, nil
}

func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty datetime")
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

// coerceAlerts keeps every entry that coerces to a non-negative integer,
// in input order, duplicates included. Anything else is dropped with a
// warning.
func coerceAlerts(raw []json.RawMessage, logger *slog.Logger) []int {
	var alerts []int
	for _, entry := range raw {
		n, ok := coerceAlert(entry)
		if !ok {
			logger.Warn("Dropping unusable alert entry", "entry", string(entry))
			continue
		}
		alerts = append(alerts, n)
	}
	return alerts
}

func coerceAlert(raw json.RawMessage) (int, bool) {
	// json.Unmarshal treats null as a no-op for numeric targets, which
	// would silently coerce it to 0.
	if string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f < 0 || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// parseRecurrence maps the model's recurrence string onto the enum. A raw
// RRULE body passes through as a custom rule; anything unrecognized
// degrades to none.
func parseRecurrence(s string) models.Recurrence {
	s = strings.TrimSpace(s)
	switch models.RecurrenceKind(strings.ToLower(s)) {
	case models.RecurDaily, models.RecurWeekly, models.RecurBiweekly,
		models.RecurMonthly, models.RecurMonthlyLastWeekday:
		return models.Recurrence{Kind: models.RecurrenceKind(strings.ToLower(s))}
	}
	if strings.HasPrefix(strings.ToUpper(s), "FREQ=") {
		return models.Recurrence{Kind: models.RecurCustom, Rule: strings.ToUpper(s)}
	}
	return models.Recurrence{Kind: models.RecurNone}
}
