package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// changeBuffer bounds how far a slow reader may fall behind. Past it, changes
// are dropped: the reader already owes the collection a reload.
const changeBuffer = 16

// NATSBus publishes and receives changes over one NATS connection.
type NATSBus struct {
	conn   *nats.Conn
	logger *slog.Logger
}

var (
	_ Publisher  = (*NATSBus)(nil)
	_ Subscriber = (*NATSBus)(nil)
)

// Dial connects to the NATS server at url. It reconnects forever; extra
// options such as a reconnect handler are applied after the defaults.
func Dial(url string, logger *slog.Logger, opts ...nats.Option) (*NATSBus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base := []nats.Option{
		nats.Name("qna"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("event bus disconnected", "error", err)
			}
		}),
	}
	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSBus{conn: nc, logger: logger}, nil
}

func (b *NATSBus) Publish(ctx context.Context, c Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding %s change: %w", c.Kind, err)
	}
	return b.conn.Publish(c.Topic(), data)
}

// Changes subscribes to every question subject. Undecodable payloads are
// logged and skipped.
func (b *NATSBus) Changes(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, changeBuffer)
	var (
		mu   sync.Mutex
		done bool
	)

	sub, err := b.conn.Subscribe(TopicAll, func(msg *nats.Msg) {
		var c Change
		if err := json.Unmarshal(msg.Data, &c); err != nil {
			b.logger.Warn("dropping malformed change", "subject", msg.Subject, "error", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		select {
		case ch <- c:
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", TopicAll, err)
	}
	// The subscription must be registered with the server before changes
	// published on other connections are routed to it.
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}

	context.AfterFunc(ctx, func() {
		_ = sub.Unsubscribe()
		mu.Lock()
		done = true
		close(ch)
		mu.Unlock()
	})
	return ch, nil
}

func (b *NATSBus) Close() error {
	b.conn.Close()
	return nil
}
