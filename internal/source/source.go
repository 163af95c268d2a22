package source

import (
	"context"
	"errors"
)

// EventType discriminates stream events.
type EventType string

const (
	EventCreate EventType = "create"
	EventDelete EventType = "delete"
)

// Event is one inbound post event. Delivery order and delivery semantics
// are the transport's responsibility.
type Event struct {
	Type    EventType
	URI     string
	CID     string
	Text    string
	IsReply bool
	Langs   []string
	Author  string
}

// Engagement is the live interaction count for a post.
type Engagement struct {
	Likes   int
	Reposts int
}

// ErrNotFound reports that the upstream post no longer exists.
var ErrNotFound = errors.New("post not found")

// Source is the upstream content service.
type Source interface {
	// Stream delivers post events until ctx is cancelled.
	Stream(ctx context.Context) (<-chan Event, error)
	// Engagement fetches current counts for a post. Returns ErrNotFound
	// if the post is gone upstream.
	Engagement(ctx context.Context, uri string) (Engagement, error)
	// Endorsers returns the actor DIDs that currently like the given feed.
	Endorsers(ctx context.Context, feedURI string) ([]string, error)
}
