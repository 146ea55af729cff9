package events

import "context"

// Noop stands in for the bus when NATS is not configured: publishes vanish
// and subscriptions stay silent until cancelled.
type Noop struct{}

var (
	_ Publisher  = (*Noop)(nil)
	_ Subscriber = (*Noop)(nil)
)

func (*Noop) Publish(context.Context, Change) error { return nil }

func (*Noop) Changes(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change)
	context.AfterFunc(ctx, func() { close(ch) })
	return ch, nil
}

func (*Noop) Close() error { return nil }
