package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

const defaultCalDAVEndpoint = "https://caldav.icloud.com/"

// basicAuthTransport adds Basic Auth and a User-Agent to every request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "quickcal/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVBackend publishes the event to a named calendar collection on a
// CalDAV server (iCloud by default).
type CalDAVBackend struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	endpoint     string
	calendarName string
	calendarURL  string // resolved lazily on first Apply
}

func NewCalDAVBackend(logger *slog.Logger, endpoint, username, password, calendarName string) (*CalDAVBackend, error) {
	if endpoint == "" {
		endpoint = defaultCalDAVEndpoint
	}
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	return &CalDAVBackend{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     endpoint,
		calendarName: calendarName,
	}, nil
}

func (b *CalDAVBackend) Name() string { return "caldav" }

func (b *CalDAVBackend) Apply(ctx context.Context, plan []Command) error {
	cal, uid, err := buildCalendar(plan)
	if err != nil {
		return err
	}

	if b.calendarURL == "" {
		calURL, err := b.findCalendar(ctx, b.calendarName)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		b.calendarURL = calURL
	}

	// The object path must be relative to the endpoint for the webdav client.
	objectPath := path.Join(strings.TrimPrefix(b.calendarURL, b.endpoint), uid+".ics")
	writer, err := b.webdavClient.Create(ctx, objectPath)
	if err != nil {
		return &CreationError{Diagnostic: err.Error()}
	}
	defer writer.Close()

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		return &CreationError{Diagnostic: err.Error()}
	}
	b.logger.Info("Event published to CalDAV calendar", "calendar", b.calendarName, "uid", uid)
	return nil
}

// findCalendar walks principal -> home set -> calendars and returns the
// URL of the collection with the given display name.
func (b *CalDAVBackend) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := b.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}
	homeSetPath, err := b.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}
	calendars, err := b.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to list calendars: %w", err)
	}
	for _, cal := range calendars {
		if cal.Name == name {
			return strings.TrimSuffix(b.endpoint, "/") + cal.Path, nil
		}
	}
	return "", fmt.Errorf("no calendar named %q", name)
}
