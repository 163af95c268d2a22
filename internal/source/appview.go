package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultAppviewURL = "https://public.api.bsky.app"
	httpTimeout       = 15 * time.Second
	likesPageSize     = 100
)

// Appview reads engagement counts and feed endorsers from a Bluesky
// appview over HTTP. Stream is not implemented here: the firehose
// transport is injected separately.
type Appview struct {
	http    *http.Client
	baseURL string
}

// NewAppview creates an appview client. An empty baseURL falls back to the
// public appview.
func NewAppview(baseURL string) *Appview {
	if baseURL == "" {
		baseURL = defaultAppviewURL
	}
	return &Appview{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: baseURL,
	}
}

// Stream is not supported by the appview client.
func (a *Appview) Stream(ctx context.Context) (<-chan Event, error) {
	return nil, fmt.Errorf("appview client does not stream events")
}

// Engagement fetches like and repost counts via getPostThread.
func (a *Appview) Engagement(ctx context.Context, uri string) (Engagement, error) {
	q := url.Values{}
	q.Set("uri", uri)
	q.Set("depth", "1")

	var resp struct {
		Thread struct {
			Post struct {
				LikeCount   int `json:"likeCount"`
				RepostCount int `json:"repostCount"`
			} `json:"post"`
			NotFound bool `json:"notFound"`
		} `json:"thread"`
	}
	if err := a.getJSON(ctx, "/xrpc/app.bsky.feed.getPostThread", q, &resp); err != nil {
		return Engagement{}, err
	}
	if resp.Thread.NotFound {
		return Engagement{}, ErrNotFound
	}

	return Engagement{
		Likes:   resp.Thread.Post.LikeCount,
		Reposts: resp.Thread.Post.RepostCount,
	}, nil
}

// Endorsers pages through getLikes for the published feed record and
// returns the full list of liking actors.
func (a *Appview) Endorsers(ctx context.Context, feedURI string) ([]string, error) {
	var actors []string
	cursor := ""

	for {
		q := url.Values{}
		q.Set("uri", feedURI)
		q.Set("limit", fmt.Sprintf("%d", likesPageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp struct {
			Cursor string `json:"cursor"`
			Likes  []struct {
				Actor struct {
					DID string `json:"did"`
				} `json:"actor"`
			} `json:"likes"`
		}
		if err := a.getJSON(ctx, "/xrpc/app.bsky.feed.getLikes", q, &resp); err != nil {
			return nil, err
		}

		for _, l := range resp.Likes {
			actors = append(actors, l.Actor.DID)
		}
		if resp.Cursor == "" || len(resp.Likes) == 0 {
			break
		}
		cursor = resp.Cursor
	}

	return actors, nil
}

func (a *Appview) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
