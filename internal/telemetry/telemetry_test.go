package telemetry

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestHTTPSinkFlushesOnClose(t *testing.T) {
	var mu sync.Mutex
	var received []Entry
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var batch []Entry
		if err := json.Unmarshal(body, &batch); err != nil {
			t.Errorf("bad batch json: %v", err)
		}
		mu.Lock()
		received = append(received, batch...)
		mu.Unlock()
	}))
	defer ts.Close()

	s := NewHTTPSink(ts.URL, nil)
	s.Incr(MetricRequests, 1)
	s.Incr(MetricRequests, 1)
	s.IncrTagged(MetricMatched, "golang", 1)
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d aggregated entries, want 2: %+v", len(received), received)
	}
	byName := map[string]Entry{}
	for _, e := range received {
		byName[e.Name] = e
	}
	if byName[MetricRequests].Value != 2 {
		t.Errorf("requests = %f, want 2 (aggregated)", byName[MetricRequests].Value)
	}
	if byName[MetricMatched].Tag != "golang" {
		t.Errorf("matched tag = %q, want golang", byName[MetricMatched].Tag)
	}
}

func TestHTTPSinkSurvivesEndpointFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := NewHTTPSink(ts.URL, nil)
	s.Incr(MetricRefresh, 1)
	// Close must not return an error even though every flush fails.
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestHTTPSinkDropsWhenFull(t *testing.T) {
	// Unstarted server URL: posts fail, but Incr must stay non-blocking.
	s := &HTTPSink{
		url:    "http://127.0.0.1:0",
		client: http.DefaultClient,
		ch:     make(chan Entry, 2),
		done:   make(chan struct{}),
	}
	// No flushLoop running: the buffer fills and further Incrs drop.
	for i := 0; i < 100; i++ {
		s.Incr(MetricSeen, 1)
	}
	if len(s.ch) != 2 {
		t.Errorf("buffered = %d, want 2", len(s.ch))
	}
}

func TestAggregate(t *testing.T) {
	batch := []Entry{
		{Name: "a", Value: 1, Timestamp: 10},
		{Name: "a", Value: 2, Timestamp: 20},
		{Name: "a", Tag: "t", Value: 5, Timestamp: 15},
	}
	out := aggregate(batch)
	if len(out) != 2 {
		t.Fatalf("aggregated len = %d, want 2", len(out))
	}
	if out[0].Value != 3 || out[0].Timestamp != 20 {
		t.Errorf("untagged = %+v, want value 3 ts 20", out[0])
	}
	if out[1].Value != 5 {
		t.Errorf("tagged = %+v, want value 5", out[1])
	}
}

func TestNop(t *testing.T) {
	var s Sink = Nop{}
	s.Incr("x", 1)
	s.IncrTagged("x", "y", 1)
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
