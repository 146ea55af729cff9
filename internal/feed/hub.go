// Package feed turns the question collection into a stream of complete,
// ordered snapshots. A Hub fans snapshots out to any number of subscribers;
// a Syncer keeps the Hub in step with the store.
package feed

import (
	"sync"
	"time"

	"github.com/alfredjeanlab/qna/internal/model"
)

// Hub fans out complete snapshots to subscribers. Each subscription has a
// one-slot mailbox: a newer snapshot replaces an undelivered older one, so a
// slow reader only ever skips ahead and never blocks Publish.
type Hub struct {
	mu     sync.Mutex
	seq    uint64
	latest *model.Snapshot
	subs   map[*Subscription]struct{}
	now    func() time.Time
}

// NewHub returns a Hub with no snapshot yet.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[*Subscription]struct{}),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Publish sorts a copy of questions newest-first, stamps it with the next
// sequence number, keeps it as the latest snapshot, and delivers it to every
// subscriber.
func (h *Hub) Publish(questions []*model.Question) model.Snapshot {
	qs := model.CloneAll(questions)
	model.SortNewestFirst(qs)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	snap := model.Snapshot{Seq: h.seq, At: h.now(), Questions: qs}
	h.latest = &snap
	for sub := range h.subs {
		sub.offer(snap)
	}
	return snap
}

// Latest returns the most recent snapshot, if any has been published.
func (h *Hub) Latest() (model.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return model.Snapshot{}, false
	}
	return *h.latest, true
}

// Subscribe registers a new subscriber. If a snapshot has already been
// published it is waiting in the mailbox, so every subscriber starts from a
// full view.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{hub: h, ch: make(chan model.Snapshot, 1)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
	if h.latest != nil {
		sub.offer(*h.latest)
	}
	return sub
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Subscription is one reader of a Hub.
type Subscription struct {
	hub    *Hub
	ch     chan model.Snapshot
	mu     sync.Mutex
	closed bool
}

// C delivers snapshots in publish order, possibly skipping superseded ones.
// It is closed after Cancel.
func (s *Subscription) C() <-chan model.Snapshot { return s.ch }

// Cancel unsubscribes. It is safe to call more than once; no snapshot is
// delivered after it returns.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
	s.hub.remove(s)
}

// offer replaces any undelivered snapshot with snap.
func (s *Subscription) offer(snap model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}
