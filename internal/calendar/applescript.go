package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// AppleScriptBackend drives the macOS Calendar application through
// osascript. Dates are set component by component because AppleScript
// date construction from strings depends on the user's locale.
type AppleScriptBackend struct {
	logger       *slog.Logger
	calendarName string
	runner       func(ctx context.Context, script string) (stderr string, err error)
}

func NewAppleScriptBackend(logger *slog.Logger, calendarName string) *AppleScriptBackend {
	if calendarName == "" {
		calendarName = "Calendar"
	}
	return &AppleScriptBackend{
		logger:       logger,
		calendarName: calendarName,
		runner:       runOsascript,
	}
}

func (b *AppleScriptBackend) Name() string { return "applescript" }

// Apply renders the plan and hands it to osascript. A missing osascript
// binary maps to ErrUnavailable; a non-zero exit maps to CreationError
// carrying the interpreter's stderr.
func (b *AppleScriptBackend) Apply(ctx context.Context, plan []Command) error {
	script, err := b.Render(plan)
	if err != nil {
		return err
	}

	stderr, err := b.runner(ctx, script)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		diag := strings.TrimSpace(stderr)
		if diag == "" {
			diag = err.Error()
		}
		return &CreationError{Diagnostic: diag}
	}
	b.logger.Info("Event created via Calendar.app", "calendar", b.calendarName)
	return nil
}

func runOsascript(ctx context.Context, script string) (string, error) {
	if _, err := exec.LookPath("osascript"); err != nil {
		return "", fmt.Errorf("%w: osascript not found", ErrUnavailable)
	}
	cmd := exec.CommandContext(ctx, "osascript", "-")
	cmd.Stdin = strings.NewReader(script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// Render serializes the plan into one AppleScript program.
func (b *AppleScriptBackend) Render(plan []Command) (string, error) {
	if len(plan) == 0 {
		return "", &CreationError{Diagnostic: "empty mutation plan"}
	}
	create, ok := plan[0].(CreateEvent)
	if !ok {
		return "", &CreationError{Diagnostic: "plan does not begin with event creation"}
	}

	var s strings.Builder
	s.WriteString("tell application \"Calendar\"\n")
	fmt.Fprintf(&s, "\ttell calendar \"%s\"\n", escapeAppleScript(b.calendarName))
	writeDateVar(&s, "startDate", create.StartParts)
	writeDateVar(&s, "endDate", create.EndParts)

	props := []string{
		fmt.Sprintf("summary:\"%s\"", escapeAppleScript(create.Title)),
		"start date:startDate",
		"end date:endDate",
	}
	if create.Description != "" {
		props = append(props, fmt.Sprintf("description:\"%s\"", escapeAppleScript(create.Description)))
	}
	if create.Location != "" {
		props = append(props, fmt.Sprintf("location:\"%s\"", escapeAppleScript(create.Location)))
	}
	if create.URL != "" {
		props = append(props, fmt.Sprintf("url:\"%s\"", escapeAppleScript(create.URL)))
	}
	fmt.Fprintf(&s, "\t\tset newEvent to make new event with properties {%s}\n", strings.Join(props, ", "))

	for _, cmd := range plan[1:] {
		switch c := cmd.(type) {
		case SetRecurrence:
			fmt.Fprintf(&s, "\t\tset recurrence of newEvent to \"%s\"\n", escapeAppleScript(c.Rule))
		case AddAlarm:
			fmt.Fprintf(&s, "\t\ttell newEvent to make new display alarm at end with properties {trigger interval:%d}\n", -c.MinutesBefore)
		case AddAttendee:
			fmt.Fprintf(&s, "\t\ttell newEvent to make new attendee at end with properties {email:\"%s\"}\n", escapeAppleScript(c.Email))
		}
	}

	s.WriteString("\tend tell\nend tell\n")
	return s.String(), nil
}

// writeDateVar emits component-wise date construction. Seconds are
// zeroed explicitly since "current date" carries the wall clock.
func writeDateVar(s *strings.Builder, name string, p DateParts) {
	fmt.Fprintf(s, "\t\tset %s to current date\n", name)
	fmt.Fprintf(s, "\t\tset year of %s to %d\n", name, p.Year)
	fmt.Fprintf(s, "\t\tset month of %s to %d\n", name, p.Month)
	fmt.Fprintf(s, "\t\tset day of %s to %d\n", name, p.Day)
	fmt.Fprintf(s, "\t\tset hours of %s to %d\n", name, p.Hour)
	fmt.Fprintf(s, "\t\tset minutes of %s to %d\n", name, p.Minute)
	fmt.Fprintf(s, "\t\tset seconds of %s to 0\n", name)
}

// escapeAppleScript escapes backslashes and double quotes so free text
// cannot terminate the string literal or inject script.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
