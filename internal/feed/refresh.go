package feed

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/shorebird/feedgen/internal/telemetry"
)

// RefreshScores rescores every candidate the tier schedule selects.
// Engagement fetches run one at a time as deliberate backpressure against
// upstream rate limits. Passes may overlap (timer vs request triggered);
// the recompute is deterministic from its inputs, so a redundant write is
// harmless.
func (e *Engine) RefreshScores(ctx context.Context) {
	now := time.Now()

	candidates, err := e.DB.ListCandidates()
	if err != nil {
		log.Printf("refresh: list candidates: %v", err)
		return
	}

	updated := 0
	for i := range candidates {
		c := &candidates[i]
		if !refreshDue(e.Tiers, c, now) {
			continue
		}

		eng, err := e.Source.Engagement(ctx, c.URI)
		if err != nil {
			// Skip: the stale score and last_scored stay in place and the
			// next qualifying tier pass retries. Removal is the sweeper's
			// job, not ours.
			log.Printf("refresh: engagement for %s: %v", c.URI, err)
			continue
		}

		engagement := float64(eng.Likes+eng.Reposts) + c.BoostMod
		if e.Subs.Contains(authorFromURI(c.URI)) {
			engagement += e.SubscriberBoost
		}
		score := rankScore(engagement, c.AgeHours(now), e.DecayExponent)

		if err := e.DB.UpdateScore(c, score, now.UnixMilli()); err != nil {
			log.Printf("refresh: update score for %s: %v", c.URI, err)
			continue
		}
		updated++
	}

	if updated > 0 {
		log.Printf("refresh: updated %d score(s)", updated)
	}
	e.Metrics.Incr(telemetry.MetricRefresh, float64(updated))
}

// authorFromURI extracts the author DID from an at:// post URI
// (at://did:plc:xxx/app.bsky.feed.post/rkey).
func authorFromURI(uri string) string {
	parts := strings.Split(uri, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
