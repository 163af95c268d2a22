package feed

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/shorebird/feedgen/internal/source"
)

// Subscribers holds the set of actors who currently like the published
// feed. The set is replaced wholesale on each refresh; readers always see
// one complete snapshot, never a half-updated one.
type Subscribers struct {
	set atomic.Pointer[map[string]struct{}]
}

// NewSubscribers starts with an empty set — valid, just boost-free.
func NewSubscribers() *Subscribers {
	s := &Subscribers{}
	empty := map[string]struct{}{}
	s.set.Store(&empty)
	return s
}

// Contains reports whether the actor endorses the feed.
func (s *Subscribers) Contains(actor string) bool {
	_, ok := (*s.set.Load())[actor]
	return ok
}

// Len returns the current set size.
func (s *Subscribers) Len() int {
	return len(*s.set.Load())
}

// Replace swaps in a new snapshot.
func (s *Subscribers) Replace(actors []string) {
	next := make(map[string]struct{}, len(actors))
	for _, a := range actors {
		next[a] = struct{}{}
	}
	s.set.Store(&next)
}

// Refresh fetches the full endorser list and replaces the set. On fetch
// failure the previous set stays in effect.
func (s *Subscribers) Refresh(ctx context.Context, src source.Source, feedURI string) {
	if feedURI == "" {
		return
	}
	actors, err := src.Endorsers(ctx, feedURI)
	if err != nil {
		log.Printf("subscriber refresh failed, keeping previous set: %v", err)
		return
	}
	s.Replace(actors)
}
