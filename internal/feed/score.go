package feed

import (
	"math"
	"time"

	"github.com/shorebird/feedgen/internal/config"
	"github.com/shorebird/feedgen/internal/store"
)

// Tier is one rung of the degrading refresh schedule: candidates younger
// than MaxAge are rescored once their score is at least MinInterval old.
type Tier struct {
	MaxAge      time.Duration
	MinInterval time.Duration
}

// DefaultTiers rescores fresh posts every few minutes and day-old posts a
// few times a day. Posts older than the last tier freeze until evicted.
var DefaultTiers = []Tier{
	{5 * time.Minute, 5 * time.Minute},
	{10 * time.Minute, 10 * time.Minute},
	{15 * time.Minute, 15 * time.Minute},
	{2 * time.Hour, 30 * time.Minute},
	{6 * time.Hour, time.Hour},
	{12 * time.Hour, 2 * time.Hour},
	{24 * time.Hour, 4 * time.Hour},
	{48 * time.Hour, 8 * time.Hour},
}

// TiersFromConfig converts configured tier rows, falling back to
// DefaultTiers when none are configured.
func TiersFromConfig(rows []config.TierConfig) []Tier {
	if len(rows) == 0 {
		return DefaultTiers
	}
	tiers := make([]Tier, 0, len(rows))
	for _, r := range rows {
		tiers = append(tiers, Tier{
			MaxAge:      time.Duration(r.MaxAgeMinutes) * time.Minute,
			MinInterval: time.Duration(r.MinIntervalMinutes) * time.Minute,
		})
	}
	return tiers
}

// refreshDue reports whether any tier selects the candidate. Tiers are
// disjunctive: a candidate past one tier's age boundary can still qualify
// under a later, wider tier.
func refreshDue(tiers []Tier, c *store.Candidate, now time.Time) bool {
	age := now.Sub(time.UnixMilli(c.FirstSeen))
	sinceScored := now.Sub(time.UnixMilli(c.LastScored))

	for _, t := range tiers {
		if age < t.MaxAge && sinceScored >= t.MinInterval {
			return true
		}
	}
	return false
}

// rankScore is the time-decayed relevance formula: engagement (plus any
// fixed boosts) divided by (age in hours + 2) raised to the decay
// exponent. Deterministic for identical inputs.
func rankScore(engagement float64, ageHours float64, decayExponent float64) float64 {
	return engagement / math.Pow(ageHours+2, decayExponent)
}
