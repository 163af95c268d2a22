package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
)

// JSONLines streams events from newline-delimited JSON, one event per
// line. The transport that fills the reader (a firehose consumer writing
// to a FIFO, a replay file, stdin) is someone else's problem.
type JSONLines struct {
	R io.Reader
}

type lineEvent struct {
	Type    string   `json:"type"`
	URI     string   `json:"uri"`
	CID     string   `json:"cid"`
	Text    string   `json:"text"`
	IsReply bool     `json:"isReply"`
	Langs   []string `json:"langs"`
	Author  string   `json:"author"`
}

// Stream decodes events until the reader drains or ctx is cancelled.
// Malformed lines are logged and skipped; a bad line must not stall the
// stream.
func (j JSONLines) Stream(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event)

	go func() {
		defer close(ch)

		scanner := bufio.NewScanner(j.R)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var le lineEvent
			if err := json.Unmarshal(line, &le); err != nil {
				log.Printf("event stream: skipping bad line: %v", err)
				continue
			}

			ev := Event{
				Type:    EventType(le.Type),
				URI:     le.URI,
				CID:     le.CID,
				Text:    le.Text,
				IsReply: le.IsReply,
				Langs:   le.Langs,
				Author:  le.Author,
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("event stream: read: %v", err)
		}
	}()

	return ch, nil
}

// Engagement is not available on the line stream.
func (j JSONLines) Engagement(ctx context.Context, uri string) (Engagement, error) {
	return Engagement{}, fmt.Errorf("jsonlines source does not fetch engagement")
}

// Endorsers is not available on the line stream.
func (j JSONLines) Endorsers(ctx context.Context, feedURI string) ([]string, error) {
	return nil, fmt.Errorf("jsonlines source does not list endorsers")
}
