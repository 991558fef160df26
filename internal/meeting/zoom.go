// Package meeting provisions Zoom links for events that look like they
// want one. Provisioning is strictly best-effort: the caller decides what
// to do when it fails, and a calendar entry without a link is still a
// calendar entry.
package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"quickcal/internal/anchors"
	"quickcal/internal/models"
)

const (
	defaultTokenURL = "https://zoom.us/oauth/token"
	defaultAPIURL   = "https://api.zoom.us/v2"

	// scheduledMeeting is Zoom's type for a meeting with a fixed start.
	scheduledMeeting = 2
)

// trigger terms that suggest the user wants a video conference.
var triggerTerms = []string{"zoom", "online", "virtual", "call", "video", "remote", "teleconference"}

// NeedsMeeting reports whether a link should be minted: the text or
// location mentions a trigger term and the text does not already carry an
// explicit URL. Terms match whole words only, so "call" does not fire
// inside "locally" or "recall".
func NeedsMeeting(userText, location string) bool {
	haystack := strings.ToLower(userText + " " + location)
	if strings.Contains(haystack, "http://") || strings.Contains(haystack, "https://") {
		return false
	}
	words := strings.FieldsFunc(haystack, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		for _, term := range triggerTerms {
			if word == term {
				return true
			}
		}
	}
	return false
}

// ProvisionError wraps any failure while minting a link. It never escapes
// the enrichment step of the pipeline.
type ProvisionError struct {
	Stage string // "token" or "create"
	Err   error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("meeting provisioning failed during %s: %v", e.Stage, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// Credentials for a Zoom server-to-server OAuth app.
type Credentials struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	ContactEmail string
	ContactName  string
}

// Complete reports whether enough is configured to attempt provisioning.
func (c Credentials) Complete() bool {
	return c.AccountID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Provisioner mints meetings through Zoom's API. Safe for concurrent use;
// the token cache is shared across invocations for the process lifetime.
type Provisioner struct {
	creds    Credentials
	tokenURL string
	apiURL   string
	http     *http.Client
	logger   *slog.Logger
	cache    *TokenCache
}

// NewProvisioner wires a provisioner with its own token cache.
func NewProvisioner(logger *slog.Logger, creds Credentials, timeout time.Duration) *Provisioner {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Provisioner{
		creds:    creds,
		tokenURL: defaultTokenURL,
		apiURL:   defaultAPIURL,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
		cache:    NewTokenCache(),
	}
}

// SetEndpoints overrides the Zoom URLs. Used by tests.
func (p *Provisioner) SetEndpoints(tokenURL, apiURL string) {
	p.tokenURL = tokenURL
	p.apiURL = apiURL
}

// Enabled reports whether provisioning can be attempted at all. Missing
// credentials disable enrichment rather than failing it.
func (p *Provisioner) Enabled() bool { return p.creds.Complete() }

// Provision acquires a token and creates a meeting matching the event's
// title and duration. It does not mutate the event; the caller folds the
// link in on success.
func (p *Provisioner) Provision(ctx context.Context, ev *models.Event) (*models.MeetingLink, error) {
	token, err := p.cache.Get(ctx, p.creds.AccountID, p.fetchToken)
	if err != nil {
		return nil, &ProvisionError{Stage: "token", Err: err}
	}

	link, err := p.createMeeting(ctx, token, ev)
	if err != nil {
		return nil, &ProvisionError{Stage: "create", Err: err}
	}
	p.logger.Info("Provisioned meeting", "id", link.ExternalID)
	return link, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// fetchToken performs the account_credentials grant. Zoom's grant type is
// non-standard, so this is a plain POST with Basic auth rather than an
// oauth2 client credentials config.
func (p *Provisioner) fetchToken(ctx context.Context) (Token, error) {
	q := url.Values{}
	q.Set("grant_type", "account_credentials")
	q.Set("account_id", p.creds.AccountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return Token{}, fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(p.creds.ClientID, p.creds.ClientSecret)

	resp, err := p.http.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Token{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(diag)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Token{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return Token{}, fmt.Errorf("token response carried no access_token")
	}
	return Token{
		Value:     tr.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

type createMeetingRequest struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	Duration  int             `json:"duration"`
	StartTime string          `json:"start_time"`
	Timezone  string          `json:"timezone"`
	Settings  meetingSettings `json:"settings"`
}

type meetingSettings struct {
	ContactEmail string `json:"contact_email,omitempty"`
	ContactName  string `json:"contact_name,omitempty"`
}

type createMeetingResponse struct {
	ID       json.Number `json:"id"`
	JoinURL  string      `json:"join_url"`
	StartURL string      `json:"start_url"`
}

func (p *Provisioner) createMeeting(ctx context.Context, token Token, ev *models.Event) (*models.MeetingLink, error) {
	body, err := json.Marshal(createMeetingRequest{
		Topic:     ev.Title,
		Type:      scheduledMeeting,
		Duration:  int(ev.Duration().Minutes()),
		StartTime: ev.Start.UTC().Format("2006-01-02T15:04:05Z"),
		Timezone:  anchors.ZoneName(ev.Start.Location()),
		Settings: meetingSettings{
			ContactEmail: p.creds.ContactEmail,
			ContactName:  p.creds.ContactName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode meeting request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/users/me/meetings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build meeting request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meeting request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("meeting endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(diag)))
	}

	var mr createMeetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("failed to decode meeting response: %w", err)
	}
	if mr.JoinURL == "" {
		return nil, fmt.Errorf("meeting response carried no join_url")
	}
	return &models.MeetingLink{
		JoinURL:    mr.JoinURL,
		HostURL:    mr.StartURL,
		ExternalID: mr.ID.String(),
	}, nil
}
