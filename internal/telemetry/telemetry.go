// Package telemetry provides a fire-and-forget counter sink. Emission
// never blocks and never fails the caller: counters are queued on a
// buffered channel, aggregated, and flushed in batches; when the buffer
// is full new counters are dropped.
package telemetry

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"
)

// Counter names used across the engine.
const (
	MetricRequests = "feed.request"
	MetricRefresh  = "feed.refresh"
	MetricMatched  = "feed.matched"
	MetricSeen     = "feed.seen"
)

// Entry is a single counter increment.
type Entry struct {
	Name      string  `json:"name"`
	Tag       string  `json:"tag,omitempty"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
}

// Sink receives counter increments.
type Sink interface {
	Incr(name string, value float64)
	IncrTagged(name, tag string, value float64)
	Close() error
}

// Nop is a Sink that discards everything.
type Nop struct{}

func (Nop) Incr(string, float64)               {}
func (Nop) IncrTagged(string, string, float64) {}
func (Nop) Close() error                       { return nil }

// HTTPSink POSTs counter batches to an ingest endpoint. Batches of up to
// 64 are flushed every flushInterval; same-name counters within a batch
// are summed before posting.
type HTTPSink struct {
	url    string
	client *http.Client
	ch     chan Entry
	done   chan struct{}
	once   sync.Once
}

const (
	bufferSize    = 1024
	batchSize     = 64
	flushInterval = 10 * time.Second
)

// NewHTTPSink creates a sink posting to url. If client is nil, a default
// client with a 5s timeout is used.
func NewHTTPSink(url string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	s := &HTTPSink{
		url:    url,
		client: client,
		ch:     make(chan Entry, bufferSize),
		done:   make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

// Incr queues a counter increment. Non-blocking; drops if the buffer is full.
func (s *HTTPSink) Incr(name string, value float64) {
	s.IncrTagged(name, "", value)
}

// IncrTagged queues a tagged counter increment.
func (s *HTTPSink) IncrTagged(name, tag string, value float64) {
	e := Entry{Name: name, Tag: tag, Value: value, Timestamp: time.Now().UnixMilli()}
	select {
	case s.ch <- e:
	default:
		// buffer full, drop rather than slow the caller
	}
}

// Close drains the buffer and stops the flush goroutine.
func (s *HTTPSink) Close() error {
	s.once.Do(func() {
		close(s.ch)
		<-s.done
	})
	return nil
}

func (s *HTTPSink) flushLoop() {
	defer close(s.done)

	batch := make([]Entry, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				s.flushBatch(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= batchSize {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *HTTPSink) flushBatch(batch []Entry) {
	if len(batch) == 0 {
		return
	}

	body, err := json.Marshal(aggregate(batch))
	if err != nil {
		log.Printf("telemetry: marshal batch: %v", err)
		return
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("telemetry: post batch: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		log.Printf("telemetry: post batch: status %d", resp.StatusCode)
	}
}

// aggregate sums entries sharing a name and tag, keeping the latest
// timestamp, so a burst of increments posts as one counter.
func aggregate(batch []Entry) []Entry {
	type key struct{ name, tag string }
	idx := make(map[key]int, len(batch))
	out := make([]Entry, 0, len(batch))

	for _, e := range batch {
		k := key{e.Name, e.Tag}
		if i, ok := idx[k]; ok {
			out[i].Value += e.Value
			if e.Timestamp > out[i].Timestamp {
				out[i].Timestamp = e.Timestamp
			}
			continue
		}
		idx[k] = len(out)
		out = append(out, e)
	}
	return out
}
