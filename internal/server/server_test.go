package server

import (
	"context"
	"testing"
	"time"

	"github.com/shorebird/feedgen/internal/config"
	"github.com/shorebird/feedgen/internal/feed"
	"github.com/shorebird/feedgen/internal/policy"
	"github.com/shorebird/feedgen/internal/source"
	"github.com/shorebird/feedgen/internal/store"
)

type staticPolicy struct {
	p *policy.Policy
}

func (s staticPolicy) Load(ctx context.Context) (*policy.Policy, error) {
	return s.p, nil
}

// quietSource fails every call; the feed path must not depend on it.
type quietSource struct{}

func (quietSource) Stream(ctx context.Context) (<-chan source.Event, error) {
	return nil, source.ErrNotFound
}

func (quietSource) Engagement(ctx context.Context, uri string) (source.Engagement, error) {
	return source.Engagement{}, source.ErrNotFound
}

func (quietSource) Endorsers(ctx context.Context, feedURI string) ([]string, error) {
	return nil, source.ErrNotFound
}

func testServer(t *testing.T, p *policy.Policy) *Server {
	t.Helper()

	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if p == nil {
		p = &policy.Policy{Keywords: []string{}}
	}
	rel, err := policy.NewReloader(context.Background(), staticPolicy{p}, time.Hour)
	if err != nil {
		t.Fatalf("NewReloader: %v", err)
	}

	cfg := config.Default()
	cfg.Feed.URI = "at://did:plc:me/app.bsky.feed.generator/vibes"

	engine := feed.New(db, quietSource{}, rel, nil, cfg)
	return New(engine, "test")
}

// seedScored inserts a candidate with a live score and a current
// last_scored so background refresh passes leave it alone.
func seedScored(t *testing.T, srv *Server, uri string, firstSeen int64, score float64) {
	t.Helper()
	c := &store.Candidate{URI: uri, CID: "c", FirstSeen: firstSeen, LastScored: time.Now().UnixMilli()}
	if err := srv.engine.DB.InsertCandidate(c); err != nil {
		t.Fatalf("insert %s: %v", uri, err)
	}
	if err := srv.engine.DB.UpdateScore(c, score, c.LastScored); err != nil {
		t.Fatalf("score %s: %v", uri, err)
	}
}
