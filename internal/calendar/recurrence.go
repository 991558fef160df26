package calendar

import (
	"time"

	"quickcal/internal/models"
)

// iCalendar two-letter day codes, indexed by time.Weekday.
var icalDays = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// EncodeRecurrence maps the recurrence enum onto the destination rule
// grammar. start supplies the weekday for monthly_last_weekday. The
// mapping is total: none and anything unknown encode to the empty string,
// which means no recurrence clause is emitted.
func EncodeRecurrence(r models.Recurrence, start time.Time) string {
	switch r.Kind {
	case models.RecurDaily:
		return "FREQ=DAILY;INTERVAL=1"
	case models.RecurWeekly:
		return "FREQ=WEEKLY;INTERVAL=1"
	case models.RecurBiweekly:
		return "FREQ=WEEKLY;INTERVAL=2"
	case models.RecurMonthly:
		return "FREQ=MONTHLY;INTERVAL=1"
	case models.RecurMonthlyLastWeekday:
		return "FREQ=MONTHLY;BYDAY=-1" + icalDays[start.Weekday()]
	case models.RecurCustom:
		return r.Rule
	default:
		return ""
	}
}
