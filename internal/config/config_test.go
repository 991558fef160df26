package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "")
	t.Setenv("MEETING_TIMEOUT", "")
	t.Setenv("CALENDAR_NAME", "")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 15*time.Second, cfg.MeetingTimeout)
	assert.Equal(t, "Calendar", cfg.CalendarName)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-abc")
	t.Setenv("LLM_TIMEOUT", "10")
	t.Setenv("CALENDAR_NAME", "Work")
	t.Setenv("ZOOM_ACCOUNT_ID", "acct")
	t.Setenv("ZOOM_CLIENT_ID", "id")
	t.Setenv("ZOOM_CLIENT_SECRET", "secret")

	cfg := Load()

	assert.Equal(t, "sk-ant-abc", cfg.APIKey)
	assert.Equal(t, 10*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "Work", cfg.CalendarName)
	assert.True(t, cfg.Zoom.Complete())
}

func TestLoadIgnoresBadTimeout(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
}
