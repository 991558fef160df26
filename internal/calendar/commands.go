// Package calendar turns a validated event into destination mutation
// commands and renders them for a concrete calendar store. The command
// list is backend-agnostic; each backend owns its own serialization and
// escaping.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quickcal/internal/models"
)

// ErrUnavailable means the destination calendar store cannot be reached.
var ErrUnavailable = errors.New("calendar destination unavailable")

// DecomposeError means start or end could not be broken into integer
// date components.
type DecomposeError struct {
	Field  string
	Reason string
}

func (e *DecomposeError) Error() string {
	return fmt.Sprintf("cannot decompose %s: %s", e.Field, e.Reason)
}

// CreationError carries the destination's own diagnostic text, verbatim.
type CreationError struct {
	Diagnostic string
}

func (e *CreationError) Error() string {
	return "calendar rejected event creation: " + e.Diagnostic
}

// DateParts is a component-wise date, for destinations that construct
// dates field by field instead of parsing strings.
type DateParts struct {
	Year, Month, Day, Hour, Minute int
}

// Command is one calendar mutation. The concrete types below are the
// full set a plan can contain.
type Command interface {
	command()
}

// CreateEvent is always the first command of a plan.
type CreateEvent struct {
	Title       string
	Description string
	Location    string
	URL         string
	Start       time.Time
	End         time.Time
	StartParts  DateParts
	EndParts    DateParts
}

// SetRecurrence attaches an encoded recurrence rule to the new event.
type SetRecurrence struct {
	Rule string
}

// AddAlarm attaches one reminder firing MinutesBefore the start.
type AddAlarm struct {
	MinutesBefore int
}

// AddAttendee invites one email address. Address validity is left to the
// destination store.
type AddAttendee struct {
	Email string
}

func (CreateEvent) command()   {}
func (SetRecurrence) command() {}
func (AddAlarm) command()      {}
func (AddAttendee) command()   {}

// Backend executes a plan against a concrete calendar store.
type Backend interface {
	Name() string
	Apply(ctx context.Context, plan []Command) error
}

// Plan converts an event into its mutation commands: the event creation
// itself, the recurrence rule if any, one alarm per alert in input order
// (duplicates kept), and one attendee binding per address in input order.
func Plan(ev *models.Event) ([]Command, error) {
	startParts, err := decompose("start", ev.Start)
	if err != nil {
		return nil, err
	}
	endParts, err := decompose("end", ev.End)
	if err != nil {
		return nil, err
	}

	plan := []Command{CreateEvent{
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		URL:         ev.URL,
		Start:       ev.Start,
		End:         ev.End,
		StartParts:  startParts,
		EndParts:    endParts,
	}}

	if rule := EncodeRecurrence(ev.Recurrence, ev.Start); rule != "" {
		plan = append(plan, SetRecurrence{Rule: rule})
	}
	for _, minutes := range ev.Alerts {
		plan = append(plan, AddAlarm{MinutesBefore: minutes})
	}
	for _, email := range ev.Attendees {
		plan = append(plan, AddAttendee{Email: email})
	}
	return plan, nil
}

func decompose(field string, t time.Time) (DateParts, error) {
	if t.IsZero() {
		return DateParts{}, &DecomposeError{Field: field, Reason: "zero time"}
	}
	year := t.Year()
	if year < 1 || year > 9999 {
		return DateParts{}, &DecomposeError{Field: field, Reason: fmt.Sprintf("year %d out of range", year)}
	}
	return DateParts{
		Year:   year,
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}, nil
}
