// Package client talks to a qna server over HTTP/JSON or gRPC. Both
// transports implement Client, whose write half is the widget's Remote and
// whose Stream turns the server's live feed into a channel of complete
// snapshots that survives reconnects.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/widget"
)

// Client is the interface that all qna CLI commands use to communicate
// with the server.
type Client interface {
	widget.Remote

	CreateQuestion(ctx context.Context, text string) (*model.Question, error)
	// SetAnswer sets the answer of question id, or retracts it when answer
	// is nil.
	SetAnswer(ctx context.Context, id string, answer *string) (*model.Question, error)
	ListQuestions(ctx context.Context) (model.Snapshot, error)
	Whoami(ctx context.Context) (*Whoami, error)

	// Stream follows the live feed until ctx is done, reconnecting with
	// backoff. onState, if non-nil, is called with true each time the
	// stream (re)connects and false each time it drops. The channel keeps
	// only the newest undelivered snapshot and closes when ctx is done.
	Stream(ctx context.Context, onState func(connected bool)) <-chan model.Snapshot

	Health(ctx context.Context) (string, error)
	Close() error
}

// Whoami is the server's view of the caller.
type Whoami struct {
	UID       string `json:"uid"`
	Anonymous bool   `json:"anonymous"`
	IsAdmin   bool   `json:"is_admin"`
}

// Option configures a client.
type Option func(*options)

type options struct {
	retryMin time.Duration
	retryMax time.Duration
}

func defaultOptions() options {
	return options{retryMin: 250 * time.Millisecond, retryMax: 15 * time.Second}
}

// WithReconnect bounds the stream reconnect backoff.
func WithReconnect(min, max time.Duration) Option {
	return func(o *options) { o.retryMin, o.retryMax = min, max }
}
