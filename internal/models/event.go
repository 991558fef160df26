package models

import "time"

// RecurrenceKind enumerates the repeat frequencies the pipeline understands.
type RecurrenceKind string

const (
	RecurNone               RecurrenceKind = "none"
	RecurDaily              RecurrenceKind = "daily"
	RecurWeekly             RecurrenceKind = "weekly"
	RecurBiweekly           RecurrenceKind = "biweekly"
	RecurMonthly            RecurrenceKind = "monthly"
	RecurMonthlyLastWeekday RecurrenceKind = "monthly_last_weekday"
	RecurCustom             RecurrenceKind = "custom"
)

// Recurrence is the repeat policy for an event. Rule is only set for
// RecurCustom and holds a raw RRULE body (e.g. "FREQ=WEEKLY;BYDAY=MO,WE").
type Recurrence struct {
	Kind RecurrenceKind
	Rule string
}

// Event is the validated, canonical representation of a calendar entry.
// It is created once by the validator, optionally enriched once by the
// meeting provisioner (URL and Location only), and then consumed by the
// materializer. It is never persisted.
type Event struct {
	Title       string
	Start       time.Time
	End         time.Time
	Description string
	Location    string
	URL         string
	Alerts      []int // minutes before start, insertion order, duplicates kept
	Recurrence  Recurrence
	Attendees   []string // emails, order preserved, not deduplicated
}

// Duration returns the event length.
func (e *Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Anchors are the reference dates injected into the model prompt so that
// relative phrases ("tomorrow", "next Friday") resolve unambiguously.
// Computed once per pipeline run from the host clock.
type Anchors struct {
	Today    time.Time
	Tomorrow time.Time
	Timezone string // IANA zone name of the host location
}

// MeetingLink is the result of provisioning a video conference. It lives
// only long enough to be folded into Event.URL.
type MeetingLink struct {
	JoinURL    string
	HostURL    string
	ExternalID string
}
