package meeting

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickcal/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent() *models.Event {
	return &models.Event{
		Title: "Weekly sync",
		Start: time.Date(2024, 1, 16, 14, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 16, 15, 0, 0, 0, time.UTC),
	}
}

func TestNeedsMeeting(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		location string
		want     bool
	}{
		{"zoom in text", "sync monday 2pm on zoom", "", true},
		{"trigger in location", "sync monday 2pm", "Online", true},
		{"virtual", "virtual coffee friday", "", true},
		{"call", "call with finance 3pm", "", true},
		{"plain in-person", "lunch with Sam at the deli", "Main St deli", false},
		{"term inside a word", "meet locally at the pub", "", false},
		{"recall is not call", "recall vote thursday 4pm", "", false},
		{"explicit url wins", "sync on zoom https://example.com/j/1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsMeeting(tt.text, tt.location))
		})
	}
}

func TestCredentialsComplete(t *testing.T) {
	assert.False(t, Credentials{}.Complete())
	assert.False(t, Credentials{AccountID: "a", ClientID: "b"}.Complete())
	assert.True(t, Credentials{AccountID: "a", ClientID: "b", ClientSecret: "c"}.Complete())
}

func newTestProvisioner(t *testing.T, tokenHandler, apiHandler http.HandlerFunc) *Provisioner {
	t.Helper()
	tokenServer := httptest.NewServer(tokenHandler)
	t.Cleanup(tokenServer.Close)
	apiServer := httptest.NewServer(apiHandler)
	t.Cleanup(apiServer.Close)

	p := NewProvisioner(testLogger(), Credentials{
		AccountID:    "acct-1",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		ContactEmail: "owner@example.com",
		ContactName:  "Owner",
	}, 5*time.Second)
	p.SetEndpoints(tokenServer.URL, apiServer.URL)
	return p
}

func serveToken(t *testing.T, calls *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*calls++
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		assert.Equal(t, "account_credentials", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "acct-1", r.URL.Query().Get("account_id"))
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-123", "expires_in": 3600})
	}
}

func TestProvisionCreatesMeeting(t *testing.T) {
	tokenCalls := 0
	var gotMeeting map[string]any
	var gotAuth string

	p := newTestProvisioner(t, serveToken(t, &tokenCalls), func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotMeeting))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":        87654321,
			"join_url":  "https://zoom.us/j/87654321",
			"start_url": "https://zoom.us/s/87654321",
		})
	})

	link, err := p.Provision(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, "https://zoom.us/j/87654321", link.JoinURL)
	assert.Equal(t, "https://zoom.us/s/87654321", link.HostURL)
	assert.Equal(t, "87654321", link.ExternalID)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "Weekly sync", gotMeeting["topic"])
	assert.Equal(t, float64(60), gotMeeting["duration"])
	assert.Equal(t, "UTC", gotMeeting["timezone"])
	assert.Equal(t, "owner@example.com", gotMeeting["settings"].(map[string]any)["contact_email"])
}

func TestCreateMeetingSendsRealZoneForLocalTimes(t *testing.T) {
	t.Setenv("TZ", "America/New_York")

	var gotMeeting map[string]any
	p := newTestProvisioner(t, serveToken(t, new(int)), func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotMeeting))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "join_url": "https://zoom.us/j/1"})
	})

	loc := time.FixedZone("Local", 0) // what time.Local reports when TZ was unset at startup
	ev := &models.Event{
		Title: "Sync",
		Start: time.Date(2024, 1, 16, 14, 0, 0, 0, loc),
		End:   time.Date(2024, 1, 16, 15, 0, 0, 0, loc),
	}

	_, err := p.Provision(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, "America/New_York", gotMeeting["timezone"], "never the literal Local")
}

func TestProvisionReusesCachedToken(t *testing.T) {
	tokenCalls := 0
	p := newTestProvisioner(t, serveToken(t, &tokenCalls), func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "join_url": "https://zoom.us/j/1"})
	})

	_, err := p.Provision(context.Background(), testEvent())
	require.NoError(t, err)
	_, err = p.Provision(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, 1, tokenCalls)
}

func TestProvisionTokenFailure(t *testing.T) {
	p := newTestProvisioner(t,
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
		func(w http.ResponseWriter, r *http.Request) { t.Fatal("meeting endpoint must not be called") },
	)

	_, err := p.Provision(context.Background(), testEvent())
	var pe *ProvisionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "token", pe.Stage)
}

func TestProvisionCreateFailure(t *testing.T) {
	tokenCalls := 0
	p := newTestProvisioner(t, serveToken(t, &tokenCalls), func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})

	_, err := p.Provision(context.Background(), testEvent())
	var pe *ProvisionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create", pe.Stage)
	assert.Contains(t, pe.Error(), "rate limit exceeded")
}
