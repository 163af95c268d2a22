package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shorebird/feedgen/internal/policy"
)

func getJSON(t *testing.T, srv *Server, url string, wantStatus int) map[string]any {
	t.Helper()
	req := httptest.NewRequest("GET", url, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != wantStatus {
		t.Fatalf("GET %s: status = %d, want %d; body: %s", url, w.Code, wantStatus, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("GET %s: bad json: %v", url, err)
	}
	return resp
}

func feedURIs(resp map[string]any) []string {
	var uris []string
	items, _ := resp["feed"].([]any)
	for _, it := range items {
		m, _ := it.(map[string]any)
		uris = append(uris, m["post"].(string))
	}
	return uris
}

func TestFeedSkeleton(t *testing.T) {
	srv := testServer(t, nil)
	now := time.Now().UnixMilli()
	seedScored(t, srv, "at://a/p/1", now-1000, 9)
	seedScored(t, srv, "at://a/p/2", now-2000, 5)

	resp := getJSON(t, srv, "/xrpc/app.bsky.feed.getFeedSkeleton", http.StatusOK)

	uris := feedURIs(resp)
	if len(uris) != 2 || uris[0] != "at://a/p/1" || uris[1] != "at://a/p/2" {
		t.Errorf("feed = %v", uris)
	}
	if resp["cursor"] == "" {
		t.Error("expected cursor")
	}
}

func TestFeedSkeletonPinned(t *testing.T) {
	srv := testServer(t, &policy.Policy{
		Keywords:    []string{},
		PinnedPosts: []string{"at://pinned/p/1"},
	})
	seedScored(t, srv, "at://a/p/1", time.Now().UnixMilli()-1000, 3)

	resp := getJSON(t, srv, "/xrpc/app.bsky.feed.getFeedSkeleton", http.StatusOK)

	uris := feedURIs(resp)
	if len(uris) != 2 || uris[0] != "at://pinned/p/1" {
		t.Errorf("feed = %v, want pinned first", uris)
	}
}

func TestFeedSkeletonLimit(t *testing.T) {
	srv := testServer(t, nil)
	now := time.Now().UnixMilli()
	for i := 0; i < 5; i++ {
		seedScored(t, srv, "at://a/p/"+string(rune('1'+i)), now-int64(i)*1000, float64(5-i))
	}

	resp := getJSON(t, srv, "/xrpc/app.bsky.feed.getFeedSkeleton?limit=2", http.StatusOK)
	if got := len(feedURIs(resp)); got != 2 {
		t.Errorf("feed len = %d, want 2", got)
	}
}

func TestFeedSkeletonBadLimit(t *testing.T) {
	srv := testServer(t, nil)
	req := httptest.NewRequest("GET", "/xrpc/app.bsky.feed.getFeedSkeleton?limit=zero", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestFeedSkeletonBadCursor(t *testing.T) {
	srv := testServer(t, nil)
	req := httptest.NewRequest("GET", "/xrpc/app.bsky.feed.getFeedSkeleton?cursor=junk", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestFeedSkeletonUnknownFeed(t *testing.T) {
	srv := testServer(t, nil)
	req := httptest.NewRequest("GET", "/xrpc/app.bsky.feed.getFeedSkeleton?feed=at://other/feed/x", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestFeedSkeletonPagination(t *testing.T) {
	srv := testServer(t, nil)
	now := time.Now().UnixMilli()
	seedScored(t, srv, "at://a/p/1", now-1000, 9)
	seedScored(t, srv, "at://a/p/2", now-2000, 7)
	seedScored(t, srv, "at://a/p/3", now-3000, 5)

	page1 := getJSON(t, srv, "/xrpc/app.bsky.feed.getFeedSkeleton?limit=2", http.StatusOK)
	cursor, _ := page1["cursor"].(string)
	if cursor == "" {
		t.Fatal("page1 cursor missing")
	}

	page2 := getJSON(t, srv, "/xrpc/app.bsky.feed.getFeedSkeleton?limit=2&cursor="+cursor, http.StatusOK)
	uris := feedURIs(page2)
	if len(uris) != 1 || uris[0] != "at://a/p/3" {
		t.Errorf("page2 = %v, want [at://a/p/3]", uris)
	}
}

func TestDescribeFeedGenerator(t *testing.T) {
	srv := testServer(t, nil)

	resp := getJSON(t, srv, "/xrpc/app.bsky.feed.describeFeedGenerator", http.StatusOK)
	if resp["did"] != "did:plc:me" {
		t.Errorf("did = %v", resp["did"])
	}
	feeds, _ := resp["feeds"].([]any)
	if len(feeds) != 1 {
		t.Fatalf("feeds = %v", feeds)
	}
	if uri := feeds[0].(map[string]any)["uri"]; uri != "at://did:plc:me/app.bsky.feed.generator/vibes" {
		t.Errorf("feed uri = %v", uri)
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t, nil)

	resp := getJSON(t, srv, "/api/health", http.StatusOK)
	if resp["status"] != "ok" {
		t.Errorf("status = %v", resp["status"])
	}
	if resp["db"] != true {
		t.Errorf("db = %v", resp["db"])
	}
}
