package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

func (s *Server) handleFeedSkeleton(w http.ResponseWriter, r *http.Request) {
	if f := r.URL.Query().Get("feed"); f != "" && f != s.engine.FeedURI {
		writeError(w, http.StatusBadRequest, "unknown feed")
		return
	}

	limit := defaultPageLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad limit")
			return
		}
		if n > maxPageLimit {
			n = maxPageLimit
		}
		limit = n
	}

	page, err := s.engine.GetPage(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		log.Printf("feed skeleton: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"did": didFromFeedURI(s.engine.FeedURI),
		"feeds": []map[string]string{
			{"uri": s.engine.FeedURI},
		},
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// didFromFeedURI extracts the publisher DID from the feed record URI
// (at://did:plc:xxx/app.bsky.feed.generator/name).
func didFromFeedURI(uri string) string {
	parts := strings.Split(uri, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}
