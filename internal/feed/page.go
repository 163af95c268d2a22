package feed

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shorebird/feedgen/internal/telemetry"
)

// Item is one feed entry in serving order.
type Item struct {
	Post string `json:"post"`
}

// Page is the served feed skeleton.
type Page struct {
	Cursor string `json:"cursor,omitempty"`
	Feed   []Item `json:"feed"`
}

// GetPage assembles one ranked page. A refresh pass and a subscriber
// refresh are kicked off without waiting: the page may serve scores the
// in-flight pass is about to supersede, which is the accepted trade-off.
// Pinned posts are prepended in policy order on every page and are never
// scored or paginated.
func (e *Engine) GetPage(ctx context.Context, limit int, cursor string) (*Page, error) {
	e.Metrics.Incr(telemetry.MetricRequests, 1)

	go e.RefreshScores(context.Background())
	go e.Subs.Refresh(context.Background(), e.Source, e.FeedURI)

	var before int64
	if cursor != "" {
		v, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad cursor %q: %w", cursor, err)
		}
		before = v
	}

	rows, err := e.DB.QueryPage(0, limit, before)
	if err != nil {
		return nil, fmt.Errorf("query page: %w", err)
	}

	pinned := e.Policy.Current().PinnedPosts
	feed := make([]Item, 0, len(pinned)+len(rows))
	for _, uri := range pinned {
		feed = append(feed, Item{Post: uri})
	}
	for _, c := range rows {
		feed = append(feed, Item{Post: c.URI})
	}

	page := &Page{Feed: feed}
	if len(rows) > 0 {
		page.Cursor = strconv.FormatInt(rows[len(rows)-1].FirstSeen, 10)
	}
	return page, nil
}
