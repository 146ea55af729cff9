package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"

	"github.com/alfredjeanlab/qna/internal/model"
)

// recvFunc returns the next snapshot of an open stream.
type recvFunc func() (model.Snapshot, error)

// dialFunc opens one stream connection.
type dialFunc func(ctx context.Context) (recvFunc, error)

// follow keeps a stream open until ctx is done, redialing with backoff
// after every failure. Snapshots go to out through a one-slot mailbox.
func follow(ctx context.Context, o options, dial dialFunc, onState func(bool)) <-chan model.Snapshot {
	out := make(chan model.Snapshot, 1)
	if onState == nil {
		onState = func(bool) {}
	}

	go func() {
		defer close(out)
		b := &backoff.Backoff{Min: o.retryMin, Max: o.retryMax, Factor: 2, Jitter: true}

		for ctx.Err() == nil {
			recv, err := dial(ctx)
			if err == nil {
				onState(true)
				err = pump(ctx, recv, out, b)
				onState(false)
			}
			if ctx.Err() != nil {
				return
			}

			wait := b.Duration()
			slog.Debug("snapshot stream lost, reconnecting", "error", &model.SyncError{Err: err}, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()
	return out
}

// pump forwards snapshots until recv fails. The backoff is reset once a
// snapshot arrives, so a healthy connection that later drops retries fast.
func pump(ctx context.Context, recv recvFunc, out chan model.Snapshot, b *backoff.Backoff) error {
	for {
		snap, err := recv()
		if err != nil {
			return err
		}
		b.Reset()
		offer(ctx, out, snap)
	}
}

// offer delivers snap, replacing an undelivered older snapshot. out has a
// single producer, so after draining there is always room.
func offer(ctx context.Context, out chan model.Snapshot, snap model.Snapshot) {
	select {
	case out <- snap:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- snap:
	case <-ctx.Done():
	}
}
