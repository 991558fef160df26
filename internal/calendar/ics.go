package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// buildCalendar renders a plan into a VCALENDAR with a single VEVENT,
// one VALARM child per alarm command, and one ATTENDEE property per
// attendee command. Returns the calendar and the generated UID.
func buildCalendar(plan []Command) (*ical.Calendar, string, error) {
	if len(plan) == 0 {
		return nil, "", &CreationError{Diagnostic: "empty mutation plan"}
	}
	create, ok := plan[0].(CreateEvent)
	if !ok {
		return nil, "", &CreationError{Diagnostic: "plan does not begin with event creation"}
	}

	uid := uuid.New().String()
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, create.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, create.Start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, create.End)
	if create.Description != "" {
		ve.Props.SetText(ical.PropDescription, create.Description)
	}
	if create.Location != "" {
		ve.Props.SetText(ical.PropLocation, create.Location)
	}
	if create.URL != "" {
		p := ical.NewProp(ical.PropURL)
		p.Value = create.URL
		ve.Props.Add(p)
	}

	for _, cmd := range plan[1:] {
		switch c := cmd.(type) {
		case SetRecurrence:
			// RRULE is a RECUR value, not TEXT; set raw to avoid escaping.
			p := ical.NewProp(ical.PropRecurrenceRule)
			p.Value = c.Rule
			ve.Props.Add(p)
		case AddAlarm:
			alarm := ical.NewComponent(ical.CompAlarm)
			alarm.Props.SetText(ical.PropAction, "DISPLAY")
			alarm.Props.SetText(ical.PropDescription, create.Title)
			trigger := ical.NewProp(ical.PropTrigger)
			trigger.Value = fmt.Sprintf("-PT%dM", c.MinutesBefore)
			alarm.Props.Add(trigger)
			ve.Children = append(ve.Children, alarm)
		case AddAttendee:
			p := ical.NewProp(ical.PropAttendee)
			p.Value = "mailto:" + c.Email
			ve.Props.Add(p)
		}
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//quickcal//EN")
	cal.Children = append(cal.Children, ve)
	return cal, uid, nil
}

// ICSBackend writes the event to an .ics file for import into any
// calendar application. A local write needs no remote acknowledgement;
// success is the file landing on disk.
type ICSBackend struct {
	logger *slog.Logger
	path   string // empty means <uid>.ics in the working directory
}

func NewICSBackend(logger *slog.Logger, path string) *ICSBackend {
	return &ICSBackend{logger: logger, path: path}
}

func (b *ICSBackend) Name() string { return "ics" }

func (b *ICSBackend) Apply(ctx context.Context, plan []Command) error {
	cal, uid, err := buildCalendar(plan)
	if err != nil {
		return err
	}

	path := b.path
	if path == "" {
		path = uid + ".ics"
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer f.Close()

	if err := ical.NewEncoder(f).Encode(cal); err != nil {
		return &CreationError{Diagnostic: err.Error()}
	}
	b.logger.Info("Event written to ICS file", "path", path, "uid", uid)
	return nil
}
