package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shorebird/feedgen/internal/feed"
)

// Server is the feedgen HTTP API server.
type Server struct {
	engine  *feed.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server around the feed engine.
func New(engine *feed.Engine, version string) *Server {
	s := &Server{
		engine:  engine,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/xrpc/app.bsky.feed.getFeedSkeleton", s.handleFeedSkeleton)
	r.Get("/xrpc/app.bsky.feed.describeFeedGenerator", s.handleDescribe)
	r.Get("/api/health", s.handleHealth)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.engine.DB.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.engine.DB.Path,
	})
}
