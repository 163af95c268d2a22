// Package ingest consumes the upstream post stream and files matching
// posts into the candidate store.
package ingest

import (
	"context"
	"log"
	"time"

	"github.com/shorebird/feedgen/internal/feed"
	"github.com/shorebird/feedgen/internal/policy"
	"github.com/shorebird/feedgen/internal/source"
	"github.com/shorebird/feedgen/internal/store"
	"github.com/shorebird/feedgen/internal/telemetry"
)

// Ingester classifies inbound events against the current policy snapshot
// and inserts matches with a zero score; the refresh pass assigns the
// first real score.
type Ingester struct {
	DB         *store.DB
	Policy     *policy.Reloader
	Classifier feed.Classifier
	Metrics    telemetry.Sink
}

// New wires an Ingester. The telemetry sink defaults to a no-op when nil.
func New(db *store.DB, pol *policy.Reloader, cl feed.Classifier, metrics telemetry.Sink) *Ingester {
	if metrics == nil {
		metrics = telemetry.Nop{}
	}
	return &Ingester{DB: db, Policy: pol, Classifier: cl, Metrics: metrics}
}

// Run consumes events until the stream closes or ctx is cancelled.
func (in *Ingester) Run(ctx context.Context, src source.Source) error {
	events, err := src.Stream(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			in.Handle(ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Handle processes a single event. Store errors are logged and dropped:
// the stream must keep moving, and a missed insert only costs one
// candidate.
func (in *Ingester) Handle(ev source.Event) {
	switch ev.Type {
	case source.EventDelete:
		if err := in.DB.DeleteCandidates([]string{ev.URI}); err != nil {
			log.Printf("ingest: delete %s: %v", ev.URI, err)
		}
	case source.EventCreate:
		in.Metrics.Incr(telemetry.MetricSeen, 1)

		d := in.Classifier.Classify(ev, in.Policy.Current())
		if !d.Accepted {
			return
		}

		now := time.Now().UnixMilli()
		c := &store.Candidate{
			URI:        ev.URI,
			CID:        ev.CID,
			FirstSeen:  now,
			LastScored: now,
			BoostMod:   d.Boost,
		}
		if err := in.DB.InsertCandidate(c); err != nil {
			log.Printf("ingest: insert %s: %v", ev.URI, err)
			return
		}
		in.Metrics.IncrTagged(telemetry.MetricMatched, d.Keyword, 1)
	}
}
