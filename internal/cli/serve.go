package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shorebird/feedgen/internal/config"
	"github.com/shorebird/feedgen/internal/feed"
	"github.com/shorebird/feedgen/internal/ingest"
	"github.com/shorebird/feedgen/internal/policy"
	"github.com/shorebird/feedgen/internal/server"
	"github.com/shorebird/feedgen/internal/source"
	"github.com/shorebird/feedgen/internal/store"
	"github.com/shorebird/feedgen/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the feed generator",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Feed.PolicyPath == "" {
		return fmt.Errorf("no policy file configured (set feed.policyPath or FEEDGEN_POLICY)")
	}

	// Resolve database path
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// An incomplete policy at startup is fatal; reload failures later are not.
	reloadEvery := time.Duration(cfg.Feed.PolicyReloadSeconds) * time.Second
	pol, err := policy.NewReloader(cmd.Context(), policy.FileSource{Path: cfg.Feed.PolicyPath}, reloadEvery)
	if err != nil {
		return err
	}
	pol.Start()
	defer pol.Stop()

	var metrics telemetry.Sink = telemetry.Nop{}
	if cfg.Telemetry.URL != "" {
		sink := telemetry.NewHTTPSink(cfg.Telemetry.URL, nil)
		defer sink.Close()
		metrics = sink
		fmt.Fprintf(os.Stderr, "  telemetry: %s\n", cfg.Telemetry.URL)
	}

	appview := source.NewAppview(cfg.Feed.AppviewURL)
	engine := feed.New(db, appview, pol, metrics, cfg)
	engine.StartTimers()
	defer engine.Stop()

	// Ingestion reads the event stream when one is configured; the feed
	// can also run read-only against an already populated store.
	if cfg.Feed.EventsPath != "" {
		events, err := openEvents(cfg.Feed.EventsPath)
		if err != nil {
			return fmt.Errorf("open events: %w", err)
		}

		classifier := feed.Classifier{
			AcceptedLanguage: cfg.Feed.AcceptedLanguage,
			MaxHashtags:      cfg.Feed.MaxHashtags,
		}
		ing := ingest.New(db, pol, classifier, metrics)
		go func() {
			if err := ing.Run(context.Background(), source.JSONLines{R: events}); err != nil {
				log.Printf("ingest stopped: %v", err)
			}
		}()
		fmt.Fprintf(os.Stderr, "  events: %s\n", cfg.Feed.EventsPath)
	}

	srv := server.New(engine, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "feedgen serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "  feed: %s\n", cfg.Feed.URI)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

func openEvents(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}
