// Package config reads the environment into one struct so the rest of
// the program never touches os.Getenv. The .env file itself is loaded by
// main via godotenv.
package config

import (
	"os"
	"strconv"
	"time"

	"quickcal/internal/meeting"
)

// Config is everything the pipeline can be configured with. Only the API
// key is required; missing meeting credentials disable provisioning and
// the backend-specific fields only matter for their backend.
type Config struct {
	APIKey         string
	Model          string
	LLMTimeout     time.Duration
	MeetingTimeout time.Duration
	Timezone       string // IANA zone id; empty means the host zone

	Zoom meeting.Credentials

	CalendarName string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleAccount      string
	GoogleCalendarID   string

	CalDAVEndpoint string
	CalDAVUsername string
	CalDAVPassword string
}

// Load reads the environment. It never fails; required values are
// checked where they are used so errors carry context.
func Load() Config {
	return Config{
		APIKey:         os.Getenv("ANTHROPIC_API_KEY"),
		Model:          os.Getenv("LLM_MODEL"),
		LLMTimeout:     secondsEnv("LLM_TIMEOUT", 30),
		MeetingTimeout: secondsEnv("MEETING_TIMEOUT", 15),
		Timezone:       os.Getenv("TIMEZONE"),
		Zoom: meeting.Credentials{
			AccountID:    os.Getenv("ZOOM_ACCOUNT_ID"),
			ClientID:     os.Getenv("ZOOM_CLIENT_ID"),
			ClientSecret: os.Getenv("ZOOM_CLIENT_SECRET"),
			ContactEmail: os.Getenv("ZOOM_CONTACT_EMAIL"),
			ContactName:  os.Getenv("ZOOM_CONTACT_NAME"),
		},
		CalendarName:       envOr("CALENDAR_NAME", "Calendar"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleAccount:      os.Getenv("GOOGLE_ACCOUNT"),
		GoogleCalendarID:   os.Getenv("GOOGLE_CALENDAR_ID"),
		CalDAVEndpoint:     os.Getenv("CALDAV_ENDPOINT"),
		CalDAVUsername:     os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:     os.Getenv("CALDAV_PASSWORD"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func secondsEnv(key string, fallback int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}
