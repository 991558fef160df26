// Package pipeline runs the stages that turn a free-form phrase into a
// calendar entry: anchor resolution, prompt building, completion,
// extraction, validation, optional meeting enrichment, materialization.
// Failure at any stage short-circuits the run, except enrichment, which
// is best-effort by design.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quickcal/internal/anchors"
	"quickcal/internal/calendar"
	"quickcal/internal/llm"
	"quickcal/internal/meeting"
	"quickcal/internal/models"
	"quickcal/internal/prompt"
	"quickcal/internal/validate"
)

// Completer is the LLM gateway seam.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Enricher is the meeting provisioning seam.
type Enricher interface {
	Enabled() bool
	Provision(ctx context.Context, ev *models.Event) (*models.MeetingLink, error)
}

// Runner holds one invocation's stage dependencies. A zero Clock means
// time.Now.
type Runner struct {
	Logger      *slog.Logger
	Clock       func() time.Time
	Completer   Completer
	Enricher    Enricher
	Backend     calendar.Backend
	SkipMeeting bool
}

// Run executes the full pipeline for one phrase and returns the final
// event after the destination acknowledged creation.
func (r *Runner) Run(ctx context.Context, text string) (*models.Event, error) {
	ev, plan, err := r.Plan(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := r.Backend.Apply(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to materialize event: %w", err)
	}
	r.Logger.Info("Event created", "title", ev.Title, "start", ev.Start, "backend", r.Backend.Name())
	return ev, nil
}

// Plan runs every stage except the destination call and returns the
// enriched event plus its mutation commands. Used directly for dry runs.
func (r *Runner) Plan(ctx context.Context, text string) (*models.Event, []calendar.Command, error) {
	now := time.Now()
	if r.Clock != nil {
		now = r.Clock()
	}

	p, err := prompt.Build(text, anchors.Resolve(now))
	if err != nil {
		return nil, nil, err
	}

	raw, err := r.Completer.Complete(ctx, p)
	if err != nil {
		return nil, nil, fmt.Errorf("completion failed: %w", err)
	}

	jsonText, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, nil, err
	}

	ev, err := validate.Event(jsonText, now.Location(), r.Logger)
	if err != nil {
		return nil, nil, err
	}

	r.enrich(ctx, text, ev)

	plan, err := calendar.Plan(ev)
	if err != nil {
		return nil, nil, err
	}
	return ev, plan, nil
}

// enrich mints a meeting link when the phrase asks for one. Any failure
// is logged and swallowed; the event only changes on success.
func (r *Runner) enrich(ctx context.Context, text string, ev *models.Event) {
	if r.SkipMeeting || r.Enricher == nil || !r.Enricher.Enabled() {
		return
	}
	if !meeting.NeedsMeeting(text, ev.Location) {
		return
	}

	link, err := r.Enricher.Provision(ctx, ev)
	if err != nil {
		r.Logger.Warn("Meeting provisioning failed, continuing without a link", "error", err)
		return
	}
	ev.URL = link.JoinURL
	ev.Location = "Zoom Meeting"
}
