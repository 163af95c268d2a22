// Package feed implements the classification, scoring, refresh, eviction,
// and pagination engine behind the published feed.
package feed

import (
	"context"
	"time"

	"github.com/shorebird/feedgen/internal/config"
	"github.com/shorebird/feedgen/internal/policy"
	"github.com/shorebird/feedgen/internal/source"
	"github.com/shorebird/feedgen/internal/store"
	"github.com/shorebird/feedgen/internal/telemetry"
)

// Engine owns the candidate lifecycle after ingestion: tiered score
// refresh, subscriber boosting, eviction, and page assembly.
type Engine struct {
	DB      *store.DB
	Source  source.Source
	Policy  *policy.Reloader
	Subs    *Subscribers
	Metrics telemetry.Sink

	FeedURI         string
	Tiers           []Tier
	DecayExponent   float64
	SubscriberBoost float64
	RetentionWindow time.Duration
	MinScore        float64

	refreshEvery time.Duration
	subsEvery    time.Duration
	sweepEvery   time.Duration

	stopCh chan struct{}
}

// New wires an Engine from configuration. The telemetry sink defaults to
// a no-op when nil.
func New(db *store.DB, src source.Source, pol *policy.Reloader, metrics telemetry.Sink, cfg config.Config) *Engine {
	if metrics == nil {
		metrics = telemetry.Nop{}
	}
	return &Engine{
		DB:      db,
		Source:  src,
		Policy:  pol,
		Subs:    NewSubscribers(),
		Metrics: metrics,

		FeedURI:         cfg.Feed.URI,
		Tiers:           TiersFromConfig(cfg.Scoring.Tiers),
		DecayExponent:   cfg.Scoring.DecayExponent,
		SubscriberBoost: cfg.Scoring.SubscriberBoost,
		RetentionWindow: time.Duration(cfg.Scoring.RetentionHours) * time.Hour,
		MinScore:        cfg.Scoring.MinScore,

		refreshEvery: time.Duration(cfg.Scoring.RefreshMinutes) * time.Minute,
		subsEvery:    time.Duration(cfg.Scoring.SubscriberMinutes) * time.Minute,
		sweepEvery:   time.Duration(cfg.Scoring.SweepHours) * time.Hour,

		stopCh: make(chan struct{}),
	}
}

// StartTimers launches the recurring refresh, subscriber, and sweep
// passes. The subscriber list is also fetched once up front so early
// refreshes can apply the boost.
func (e *Engine) StartTimers() {
	go func() {
		ctx := context.Background()
		e.Subs.Refresh(ctx, e.Source, e.FeedURI)

		refresh := time.NewTicker(e.refreshEvery)
		subs := time.NewTicker(e.subsEvery)
		sweep := time.NewTicker(e.sweepEvery)
		defer refresh.Stop()
		defer subs.Stop()
		defer sweep.Stop()

		for {
			select {
			case <-refresh.C:
				e.RefreshScores(ctx)
			case <-subs.C:
				e.Subs.Refresh(ctx, e.Source, e.FeedURI)
			case <-sweep.C:
				e.SweepStale()
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the engine's background goroutines. In-flight passes
// finish on their own.
func (e *Engine) Stop() {
	close(e.stopCh)
}
