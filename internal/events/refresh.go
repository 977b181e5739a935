package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"calview/internal/config"
	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/model"
)

// Fetcher is the subset of ics.Fetcher the refresher needs.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.FetchResult, []error)
}

// ErrAllSourcesFailed is returned when no configured source produced events;
// the previous snapshot is kept.
var ErrAllSourcesFailed = errors.New("events: all sources failed")

// Refresher rebuilds the Store snapshot from ICS sources, on demand and on a
// cron schedule.
type Refresher struct {
	store    *Store
	fetcher  Fetcher
	sources  []ics.Source
	location *time.Location
	schedule string
	hooks    []Hook
}

// Hook runs after every successful refresh performed by Run, e.g. to
// re-capture the calendar preview. Errors are logged and do not stop Run.
type Hook func(ctx context.Context) error

// NewRefresher wires a refresher. schedule is a standard five-field cron
// expression; loc is the display location used to read floating and
// all-day ICS times.
func NewRefresher(store *Store, fetcher Fetcher, sources []ics.Source, loc *time.Location, schedule string) *Refresher {
	return &Refresher{
		store:    store,
		fetcher:  fetcher,
		sources:  sources,
		location: loc,
		schedule: schedule,
	}
}

// OnRefresh registers h to run after each successful refresh in Run. It
// must be called before Run.
func (r *Refresher) OnRefresh(h Hook) {
	r.hooks = append(r.hooks, h)
}

// RefreshNow fetches and parses every source and replaces the snapshot.
// Individual source failures are logged; the snapshot is only kept
// unchanged when every source failed.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	start := time.Now()

	results, fetchErrs := r.fetcher.FetchAll(ctx, r.sources)

	collected := make([]model.CalendarEvent, 0)
	parsed := 0
	for _, res := range results {
		evs, err := ics.ParseICS(res.Source, res.Body, r.location)
		if err != nil {
			appLog.Error("events: parse failed for source", err, "id", res.Source.ID)
			continue
		}
		parsed++
		collected = append(collected, evs...)
	}

	if len(r.sources) > 0 && parsed == 0 {
		return fmt.Errorf("%w (%d fetch errors)", ErrAllSourcesFailed, len(fetchErrs))
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].Start.Before(collected[j].Start)
	})
	r.store.Replace(collected)

	appLog.Info("events refreshed",
		"sources", len(r.sources),
		"parsed", parsed,
		"fetch_errors", len(fetchErrs),
		"events", len(collected),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Run performs an initial refresh, then refreshes on the cron schedule until
// ctx is cancelled. Registered hooks run after each successful refresh.
// It returns an error only for an invalid schedule.
func (r *Refresher) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() {
		r.refreshAndNotify(ctx, "scheduled")
	}); err != nil {
		return fmt.Errorf("events: invalid refresh schedule %q: %w", r.schedule, err)
	}

	r.refreshAndNotify(ctx, "initial")

	c.Start()
	appLog.Info("events refresher started", "schedule", r.schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("events refresher stopped")
	return nil
}

func (r *Refresher) refreshAndNotify(ctx context.Context, kind string) {
	if err := r.RefreshNow(ctx); err != nil {
		appLog.Error("events: refresh failed", err, "kind", kind)
		return
	}
	for _, h := range r.hooks {
		if err := h(ctx); err != nil {
			appLog.Error("events: post-refresh hook failed", err, "kind", kind)
		}
	}
}

// SourcesFromConfig converts configured ICS entries into fetch sources,
// skipping entries with neither URL nor path.
func SourcesFromConfig(entries []config.ICSConfig) []ics.Source {
	out := make([]ics.Source, 0, len(entries))
	for _, e := range entries {
		if e.URL == "" && e.Path == "" {
			continue
		}
		out = append(out, ics.Source{ID: e.SourceID(), URL: e.URL, Path: e.Path, Category: e.Category})
	}
	return out
}
