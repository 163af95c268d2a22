package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Scoring.DecayExponent != 2.0 {
		t.Errorf("decay exponent = %f, want 2.0", cfg.Scoring.DecayExponent)
	}
	if cfg.Scoring.MinScore != 0.1 {
		t.Errorf("min score = %f, want 0.1", cfg.Scoring.MinScore)
	}
	if cfg.Feed.MaxHashtags != 6 {
		t.Errorf("max hashtags = %d, want 6", cfg.Feed.MaxHashtags)
	}
	if cfg.ListenAddr() != "127.0.0.1:3000" {
		t.Errorf("listen addr = %s", cfg.ListenAddr())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedgen.yaml")
	content := `
server:
  port: 8080
feed:
  uri: at://did:plc:me/app.bsky.feed.generator/vibes
  policyPath: /etc/feedgen/policy.yaml
scoring:
  decayExponent: 2.8
  tiers:
    - maxAgeMinutes: 5
      minIntervalMinutes: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Scoring.DecayExponent != 2.8 {
		t.Errorf("decay exponent = %f, want 2.8", cfg.Scoring.DecayExponent)
	}
	if len(cfg.Scoring.Tiers) != 1 || cfg.Scoring.Tiers[0].MaxAgeMinutes != 5 {
		t.Errorf("tiers = %+v", cfg.Scoring.Tiers)
	}
	// Defaults survive a partial file.
	if cfg.Feed.MaxHashtags != 6 {
		t.Errorf("max hashtags = %d, want default 6", cfg.Feed.MaxHashtags)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(dbPathEnv, "/tmp/feedgen-test.db")
	t.Setenv(feedURIEnv, "at://did:plc:me/app.bsky.feed.generator/vibes")
	t.Setenv(portEnv, "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/feedgen-test.db" {
		t.Errorf("db path = %s", cfg.Database.Path)
	}
	if cfg.Feed.URI != "at://did:plc:me/app.bsky.feed.generator/vibes" {
		t.Errorf("feed uri = %s", cfg.Feed.URI)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(configPathEnv, "/nonexistent/feedgen.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
