package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"quickcal/internal/calendar"
	"quickcal/internal/config"
	"quickcal/internal/llm"
	"quickcal/internal/meeting"
	"quickcal/internal/pipeline"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "quickcal",
		Usage: "Turn a natural-language phrase into a calendar event.",
		Commands: []*cli.Command{
			createCommand(),
			authCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a calendar event from a phrase, e.g. 'standup tomorrow 9am, 30 min'.",
		ArgsUsage: "<phrase>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the mutation commands without touching the calendar."},
			&cli.StringFlag{Name: "backend", Value: "applescript", Usage: "Destination: applescript, ics, caldav or google."},
			&cli.BoolFlag{Name: "no-meeting", Usage: "Never provision a meeting link."},
			&cli.StringFlag{Name: "out", Usage: "Output path for the ics backend."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(envOr("LOG_LEVEL", "info"))
			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))

			cfg := config.Load()
			client, err := llm.NewClient(logger, cfg.APIKey, cfg.Model, cfg.LLMTimeout)
			if err != nil {
				return fmt.Errorf("LLM configuration invalid: %w. Set ANTHROPIC_API_KEY", err)
			}

			backend, err := buildBackend(c, logger, cfg)
			if err != nil {
				return err
			}

			loc := time.Local
			if cfg.Timezone != "" {
				loc, err = time.LoadLocation(cfg.Timezone)
				if err != nil {
					return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
				}
			}

			runner := &pipeline.Runner{
				Logger:      logger,
				Clock:       func() time.Time { return time.Now().In(loc) },
				Completer:   client,
				Enricher:    meeting.NewProvisioner(logger, cfg.Zoom, cfg.MeetingTimeout),
				Backend:     backend,
				SkipMeeting: c.Bool("no-meeting"),
			}

			if c.Bool("dry-run") {
				ev, plan, err := runner.Plan(c.Context, text)
				if err != nil {
					return err
				}
				logger.Info("Dry run, no calendar mutation performed.", "title", ev.Title)
				printPlan(plan)
				return nil
			}

			ev, err := runner.Run(c.Context, text)
			if err != nil {
				return err
			}
			fmt.Printf("Created %q, %s to %s\n", ev.Title,
				ev.Start.Format("2006-01-02 15:04"), ev.End.Format("15:04"))
			if ev.URL != "" {
				fmt.Printf("Meeting link: %s\n", ev.URL)
			}
			return nil
		},
	}
}

// buildBackend picks the destination for the materialized event.
func buildBackend(c *cli.Context, logger *slog.Logger, cfg config.Config) (calendar.Backend, error) {
	switch c.String("backend") {
	case "applescript":
		return calendar.NewAppleScriptBackend(logger, cfg.CalendarName), nil
	case "ics":
		return calendar.NewICSBackend(logger, c.String("out")), nil
	case "caldav":
		return calendar.NewCalDAVBackend(logger, cfg.CalDAVEndpoint, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalendarName)
	case "google":
		return calendar.NewGoogleBackend(c.Context, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleAccount, cfg.GoogleCalendarID)
	default:
		return nil, fmt.Errorf("unknown backend %q", c.String("backend"))
	}
}

func printPlan(plan []calendar.Command) {
	for _, cmd := range plan {
		switch c := cmd.(type) {
		case calendar.CreateEvent:
			fmt.Printf("create-event  %q %04d-%02d-%02d %02d:%02d -> %02d:%02d\n",
				c.Title, c.StartParts.Year, c.StartParts.Month, c.StartParts.Day,
				c.StartParts.Hour, c.StartParts.Minute, c.EndParts.Hour, c.EndParts.Minute)
		case calendar.SetRecurrence:
			fmt.Printf("set-recurrence %s\n", c.Rule)
		case calendar.AddAlarm:
			fmt.Printf("add-alarm     %d min before\n", c.MinutesBefore)
		case calendar.AddAttendee:
			fmt.Printf("add-attendee  %s\n", c.Email)
		}
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize a Google account for the google backend.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authorization flow.")

			cfg := config.Load()
			oauthConfig, err := calendar.GoogleAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')

			token, err := calendar.ExchangeAuthCode(context.Background(), oauthConfig, strings.TrimSpace(authCode))
			if err != nil {
				return fmt.Errorf("unable to retrieve token: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)

			if err := calendar.SaveToken(accountName, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authorized account.", "account", accountName)
			return nil
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
