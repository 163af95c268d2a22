package policy

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy is one immutable snapshot of the keyword policy. Keyword slices
// preserve file order; matching returns the first hit in that order.
type Policy struct {
	Keywords         []string           `yaml:"keywords"`
	PartialKeywords  []string           `yaml:"partialKeywords"`
	NegativeKeywords []string           `yaml:"negativeKeywords"`
	BoostedKeywords  map[string]float64 `yaml:"boostedKeywords"`
	PinnedPosts      []string           `yaml:"pinnedPosts"`
}

// Source loads a policy snapshot from wherever policy lives.
type Source interface {
	Load(ctx context.Context) (*Policy, error)
}

// FileSource reads policy from a YAML file.
type FileSource struct {
	Path string
}

// Load reads and validates the policy file. The keyword lists must be
// present (empty is allowed, absent is not) so a half-written file never
// silently disables filtering.
func (f FileSource) Load(ctx context.Context) (*Policy, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", f.Path, err)
	}

	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", f.Path, err)
	}

	if p.Keywords == nil {
		return nil, fmt.Errorf("policy %s: missing keywords", f.Path)
	}
	if p.PartialKeywords == nil {
		return nil, fmt.Errorf("policy %s: missing partialKeywords", f.Path)
	}
	if p.NegativeKeywords == nil {
		return nil, fmt.Errorf("policy %s: missing negativeKeywords", f.Path)
	}

	return &p, nil
}

// Reloader serves the current policy snapshot and refreshes it on a timer.
// Readers take one snapshot per operation via Current; the swap is atomic
// so a reader never observes a state straddling two files.
type Reloader struct {
	source   Source
	interval time.Duration
	current  atomic.Pointer[Policy]
	stopCh   chan struct{}
}

// NewReloader performs the initial load. A failure here is fatal to the
// caller: the process must not start without a complete policy.
func NewReloader(ctx context.Context, source Source, interval time.Duration) (*Reloader, error) {
	p, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial policy load: %w", err)
	}

	r := &Reloader{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	r.current.Store(p)
	return r, nil
}

// Current returns the active snapshot. Never nil after NewReloader.
func (r *Reloader) Current() *Policy {
	return r.current.Load()
}

// Start begins periodic reloading. A failed reload keeps the previous
// snapshot in effect.
func (r *Reloader) Start() {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				p, err := r.source.Load(ctx)
				cancel()
				if err != nil {
					log.Printf("policy reload failed, keeping previous snapshot: %v", err)
					continue
				}
				r.current.Store(p)
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the reload goroutine.
func (r *Reloader) Stop() {
	close(r.stopCh)
}
