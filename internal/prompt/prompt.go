// Package prompt composes the instruction payload sent to the language
// model. The anchor dates are embedded in the prompt itself so that the
// model, not this program, resolves relative phrases like "tomorrow" or
// "next Friday".
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"quickcal/internal/models"
)

// ErrEmptyInput is returned when the user text is blank.
var ErrEmptyInput = errors.New("empty input text")

const dateLayout = "2006-01-02"

// Build returns the deterministic instruction string for the given user
// text and anchors. The same text and anchors always produce the same
// prompt.
func Build(text string, a models.Anchors) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You convert a natural-language phrase into a calendar event.\n")
	fmt.Fprintf(&b, "Today is %s and tomorrow is %s, timezone %s.\n\n",
		a.Today.Format(dateLayout), a.Tomorrow.Format(dateLayout), a.Timezone)
	b.WriteString(`Respond with ONLY a JSON object, no prose, with exactly these fields:
  "title":       string, short event title
  "start":       string, "YYYY-MM-DD HH:MM" local time
  "end":         string, "YYYY-MM-DD HH:MM" local time
  "description": string, may be empty
  "location":    string, may be empty
  "url":         string, may be empty
  "alerts":      array of integers, minutes before start
  "recurrence":  one of "none", "daily", "weekly", "biweekly", "monthly",
                 "monthly_last_weekday", or a raw "FREQ=..." rule
  "attendees":   array of email address strings

`)
	fmt.Fprintf(&b, "Example: \"lunch tomorrow at noon\" has \"start\": \"%s 12:00\" and \"end\": \"%s 13:00\".\n",
		a.Tomorrow.Format(dateLayout), a.Tomorrow.Format(dateLayout))
	fmt.Fprintf(&b, "If no duration is given, assume one hour. If no date is given, use today (%s).\n\n",
		a.Today.Format(dateLayout))
	fmt.Fprintf(&b, "Phrase: %s", text)
	return b.String(), nil
}
