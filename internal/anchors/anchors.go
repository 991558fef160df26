package anchors

import (
	"os"
	"strings"
	"time"

	"quickcal/internal/models"
)

// Resolve computes the reference dates used to ground relative time
// expressions before they reach the model. Pure function of now, except
// that naming the host zone may consult TZ or /etc/localtime.
func Resolve(now time.Time) models.Anchors {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return models.Anchors{
		Today:    today,
		Tomorrow: today.AddDate(0, 0, 1),
		Timezone: ZoneName(now.Location()),
	}
}

// ZoneName returns an IANA zone id for loc. time.Local stringifies to
// the literal "Local", which is not a zone id anything downstream can
// use, so for the local zone the name is recovered from TZ or the
// /etc/localtime symlink, falling back to UTC.
func ZoneName(loc *time.Location) string {
	name := loc.String()
	if name != "" && name != "Local" {
		return name
	}

	if tz := strings.TrimPrefix(os.Getenv("TZ"), ":"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			return tz
		}
	}

	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if i := strings.LastIndex(target, "zoneinfo/"); i >= 0 {
			return target[i+len("zoneinfo/"):]
		}
	}

	return "UTC"
}
