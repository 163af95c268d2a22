package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "FEEDGEN_CONFIG"
	dbPathEnv     = "FEEDGEN_DB"
	policyPathEnv = "FEEDGEN_POLICY"
	feedURIEnv    = "FEEDGEN_FEED_URI"
	appviewURLEnv = "FEEDGEN_APPVIEW_URL"
	telemetryEnv  = "FEEDGEN_TELEMETRY_URL"
	eventsPathEnv = "FEEDGEN_EVENTS"
	portEnv       = "FEEDGEN_PORT"
)

// Config holds all feedgen configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Feed      FeedConfig      `yaml:"feed"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// FeedConfig describes the published feed and its inputs.
type FeedConfig struct {
	// URI is the at:// address of the published feed generator record,
	// used to look up endorsers.
	URI string `yaml:"uri"`
	// PolicyPath is the hot-reloaded keyword policy file.
	PolicyPath string `yaml:"policyPath"`
	// AppviewURL is the base URL for engagement lookups.
	AppviewURL string `yaml:"appviewUrl"`
	// AcceptedLanguage filters posts that declare languages.
	AcceptedLanguage string `yaml:"acceptedLanguage"`
	// MaxHashtags rejects posts with more hashtags than this.
	MaxHashtags int `yaml:"maxHashtags"`
	// PolicyReloadSeconds is the policy snapshot refresh interval.
	PolicyReloadSeconds int `yaml:"policyReloadSeconds"`
	// EventsPath is a file or FIFO of newline-delimited JSON post events,
	// "-" for stdin. Empty disables ingestion in this process.
	EventsPath string `yaml:"eventsPath"`
}

// ScoringConfig holds the tunables of the ranking formula and its upkeep.
type ScoringConfig struct {
	// DecayExponent is the k in score = engagement / (hours+2)^k.
	DecayExponent float64 `yaml:"decayExponent"`
	// SubscriberBoost is added to the engagement sum for posts authored
	// by a feed endorser.
	SubscriberBoost float64 `yaml:"subscriberBoost"`
	// RefreshMinutes is the timer-driven rescore interval.
	RefreshMinutes int `yaml:"refreshMinutes"`
	// SubscriberMinutes is the endorser list refresh interval.
	SubscriberMinutes int `yaml:"subscriberMinutes"`
	// SweepHours is the eviction sweep interval.
	SweepHours int `yaml:"sweepHours"`
	// RetentionHours is the age beyond which low-scored posts are evicted.
	RetentionHours int `yaml:"retentionHours"`
	// MinScore is the eviction score threshold.
	MinScore float64 `yaml:"minScore"`
	// Tiers overrides the refresh tier table when non-empty.
	Tiers []TierConfig `yaml:"tiers"`
}

// TierConfig is one (max-age, min-refresh-interval) pair in minutes.
type TierConfig struct {
	MaxAgeMinutes      int `yaml:"maxAgeMinutes"`
	MinIntervalMinutes int `yaml:"minIntervalMinutes"`
}

type TelemetryConfig struct {
	// URL receives counter batches; empty disables the HTTP sink.
	URL string `yaml:"url"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 3000,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Feed: FeedConfig{
			AppviewURL:          "https://public.api.bsky.app",
			AcceptedLanguage:    "en",
			MaxHashtags:         6,
			PolicyReloadSeconds: 10,
		},
		Scoring: ScoringConfig{
			DecayExponent:     2.0,
			SubscriberBoost:   0,
			RefreshMinutes:    15,
			SubscriberMinutes: 15,
			SweepHours:        2,
			RetentionHours:    36,
			MinScore:          0.1,
		},
	}
}

// Load reads YAML configuration (if FEEDGEN_CONFIG is set) over the
// defaults, then applies environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dbPathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(policyPathEnv); v != "" {
		c.Feed.PolicyPath = v
	}
	if v := os.Getenv(feedURIEnv); v != "" {
		c.Feed.URI = v
	}
	if v := os.Getenv(appviewURLEnv); v != "" {
		c.Feed.AppviewURL = v
	}
	if v := os.Getenv(telemetryEnv); v != "" {
		c.Telemetry.URL = v
	}
	if v := os.Getenv(eventsPathEnv); v != "" {
		c.Feed.EventsPath = v
	}
	if v := os.Getenv(portEnv); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		} else {
			log.Printf("config: ignoring bad %s=%q", portEnv, v)
		}
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
