package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"

	"github.com/alfredjeanlab/qna/internal/events"
	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/store"
)

const (
	DefaultDebounce       = 50 * time.Millisecond
	DefaultResyncInterval = 30 * time.Second
	defaultRetryMin       = 100 * time.Millisecond
	defaultRetryMax       = 10 * time.Second
)

// Syncer reloads the collection from the store into a Hub whenever it may
// have changed: after Notify, on a periodic resync tick, and on a backoff
// schedule after a failed reload. Reload failures are logged and retried;
// they never close the Hub or its subscriptions.
type Syncer struct {
	store    store.Store
	hub      *Hub
	logger   *slog.Logger
	debounce time.Duration
	resync   time.Duration
	retryMin time.Duration
	retryMax time.Duration
	origin   string

	dirty chan struct{}
	now   chan struct{}
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

func WithLogger(l *slog.Logger) SyncerOption { return func(s *Syncer) { s.logger = l } }

func WithDebounce(d time.Duration) SyncerOption { return func(s *Syncer) { s.debounce = d } }

// WithResyncInterval sets the periodic full reload; zero disables it.
func WithResyncInterval(d time.Duration) SyncerOption { return func(s *Syncer) { s.resync = d } }

// WithOrigin names this instance on the bus; Watch ignores changes it
// published itself, since local writes already call Notify.
func WithOrigin(origin string) SyncerOption { return func(s *Syncer) { s.origin = origin } }

func WithRetry(min, max time.Duration) SyncerOption {
	return func(s *Syncer) { s.retryMin, s.retryMax = min, max }
}

// NewSyncer returns a Syncer feeding hub from st. Call Run to start it.
func NewSyncer(st store.Store, hub *Hub, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		store:    st,
		hub:      hub,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		resync:   DefaultResyncInterval,
		retryMin: defaultRetryMin,
		retryMax: defaultRetryMax,
		dirty:    make(chan struct{}, 1),
		now:      make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Notify marks the collection dirty. It never blocks; notifications that
// arrive before the next reload are coalesced.
func (s *Syncer) Notify() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// Resync asks for an immediate reload, skipping the debounce. Used after a
// NATS reconnect, when notifications may have been missed.
func (s *Syncer) Resync() {
	select {
	case s.now <- struct{}{}:
	default:
	}
}

// Reload lists the collection and publishes it if it differs from the
// latest snapshot. Failures are returned as *model.SyncError.
func (s *Syncer) Reload(ctx context.Context) error {
	qs, err := s.store.ListQuestions(ctx)
	if err != nil {
		return &model.SyncError{Err: err}
	}
	if latest, ok := s.hub.Latest(); ok && sameQuestions(latest.Questions, qs) {
		return nil
	}
	snap := s.hub.Publish(qs)
	s.logger.Debug("feed: published snapshot", "seq", snap.Seq, "questions", len(snap.Questions))
	return nil
}

// Run loads the collection once, then keeps reloading until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	b := &backoff.Backoff{Min: s.retryMin, Max: s.retryMax, Factor: 2, Jitter: true}

	// armed is true while timer holds a pending reload. A Notify only arms
	// an idle timer, so a steady stream of writes cannot postpone the reload
	// past one debounce interval.
	timer := time.NewTimer(0)
	defer timer.Stop()
	armed := true

	var tick <-chan time.Time
	if s.resync > 0 {
		ticker := time.NewTicker(s.resync)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.dirty:
			if !armed {
				timer.Reset(s.debounce)
				armed = true
			}
		case <-s.now:
			timer.Reset(0)
			armed = true
		case <-tick:
			timer.Reset(0)
			armed = true
		case <-timer.C:
			armed = false
			if err := s.Reload(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				wait := b.Duration()
				s.logger.Warn("feed: reload failed", "error", err, "retry_in", wait)
				timer.Reset(wait)
				armed = true
				continue
			}
			b.Reset()
		}
	}
}

// Watch calls Notify for every change another instance publishes on the
// bus, so its writes reach this instance's subscribers.
// It returns when ctx is done or the subscription closes.
func (s *Syncer) Watch(ctx context.Context, sub events.Subscriber) error {
	ch, err := sub.Changes(ctx)
	if err != nil {
		return err
	}
	for c := range ch {
		if s.origin != "" && c.Origin == s.origin {
			continue
		}
		s.logger.Debug("remote change", "kind", c.Kind, "question_id", c.QuestionID, "origin", c.Origin)
		s.Notify()
	}
	return nil
}

func sameQuestions(a, b []*model.Question) bool {
	if len(a) != len(b) {
		return false
	}
	byID := make(map[string]*model.Question, len(a))
	for _, q := range a {
		byID[q.ID] = q
	}
	for _, q := range b {
		p, ok := byID[q.ID]
		if !ok || !sameQuestion(p, q) {
			return false
		}
	}
	return true
}

func sameQuestion(a, b *model.Question) bool {
	if a.Text != b.Text || !a.CreatedAt.Equal(b.CreatedAt) {
		return false
	}
	if (a.Answer == nil) != (b.Answer == nil) || (a.Answer != nil && *a.Answer != *b.Answer) {
		return false
	}
	if (a.AnsweredAt == nil) != (b.AnsweredAt == nil) {
		return false
	}
	return a.AnsweredAt == nil || a.AnsweredAt.Equal(*b.AnsweredAt)
}
