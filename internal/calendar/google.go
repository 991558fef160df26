package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const credentialsFile = "credentials.json"

// GoogleBackend inserts the event into a Google calendar through the
// Calendar API. It needs a stored OAuth token, obtained once with the
// auth command.
type GoogleBackend struct {
	service    *gcal.Service
	logger     *slog.Logger
	calendarID string
}

// NewGoogleBackend loads the token saved for accountName and builds an
// authenticated Calendar service. calendarID defaults to "primary".
func NewGoogleBackend(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName, calendarID string) (*GoogleBackend, error) {
	config, err := googleOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := tokenFromFile(tokenFileName(accountName))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Run the 'auth' command first", accountName, err)
	}

	service, err := gcal.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleBackend{service: service, logger: logger, calendarID: calendarID}, nil
}

func (b *GoogleBackend) Name() string { return "google" }

// Apply folds the plan into a single insert: alarms become reminder
// overrides, the recurrence rule becomes an RRULE line, attendees are
// passed through for the API to validate.
func (b *GoogleBackend) Apply(ctx context.Context, plan []Command) error {
	if len(plan) == 0 {
		return &CreationError{Diagnostic: "empty mutation plan"}
	}
	create, ok := plan[0].(CreateEvent)
	if !ok {
		return &CreationError{Diagnostic: "plan does not begin with event creation"}
	}

	tz := create.Start.Location().String()
	ev := &gcal.Event{
		Summary:     create.Title,
		Description: create.Description,
		Location:    create.Location,
		Start:       &gcal.EventDateTime{DateTime: create.Start.Format(time.RFC3339), TimeZone: tz},
		End:         &gcal.EventDateTime{DateTime: create.End.Format(time.RFC3339), TimeZone: tz},
	}
	if create.URL != "" {
		ev.Source = &gcal.EventSource{Title: "Meeting link", Url: create.URL}
	}

	var overrides []*gcal.EventReminder
	for _, cmd := range plan[1:] {
		switch c := cmd.(type) {
		case SetRecurrence:
			ev.Recurrence = append(ev.Recurrence, "RRULE:"+c.Rule)
		case AddAlarm:
			overrides = append(overrides, &gcal.EventReminder{Method: "popup", Minutes: int64(c.MinutesBefore)})
		case AddAttendee:
			ev.Attendees = append(ev.Attendees, &gcal.EventAttendee{Email: c.Email})
		}
	}
	if len(overrides) > 0 {
		ev.Reminders = &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		}
	}

	created, err := b.service.Events.Insert(b.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return &CreationError{Diagnostic: err.Error()}
	}
	b.logger.Info("Event created in Google Calendar", "id", created.Id, "calendar", b.calendarID)
	return nil
}

// GoogleAuthConfig is used by the auth command to run the web flow.
func GoogleAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	return googleOAuthConfig(clientID, clientSecret)
}

// googleOAuthConfig prefers explicit credentials over credentials.json.
func googleOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{gcal.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or place credentials.json in the working directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	config, err := google.ConfigFromJSON(b, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
	return config, nil
}

// ExchangeAuthCode trades the pasted authorization code for a token.
func ExchangeAuthCode(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// SaveToken writes a token to disk for later backend use.
func SaveToken(accountName string, token *oauth2.Token) error {
	f, err := os.Create(tokenFileName(accountName))
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func tokenFileName(accountName string) string {
	if accountName == "" {
		accountName = "default"
	}
	return "token-" + accountName + ".json"
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
