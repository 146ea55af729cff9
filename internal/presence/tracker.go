// Package presence tracks who is watching the board.
//
// The server calls Connect when a live stream (SSE or gRPC Watch) opens
// and the returned release func when it closes. Keepalives call Touch. A
// background reaper evicts viewers that have had no open stream for a
// while, so GET /v1/viewers reflects recent audience rather than every
// identity ever seen.
package presence

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Entry represents a single viewer's live presence state.
type Entry struct {
	UID                 string    `json:"uid"`
	Streams             int       `json:"streams"`             // currently open streams
	Transport           string    `json:"transport,omitempty"` // transport of the most recent stream
	LastSeen            time.Time `json:"last_seen"`
	FirstSeen           time.Time `json:"first_seen"`
	IdleSecs            float64   `json:"idle_secs"`
	ConnectCount        int64     `json:"connect_count"` // total streams opened
	SessionDurationSecs float64   `json:"session_duration_secs"`
	Gone                bool      `json:"gone,omitempty"` // no open streams
}

// Summary is the aggregate the admin endpoint reports.
type Summary struct {
	Viewers int     `json:"viewers"` // identities with at least one open stream
	Streams int     `json:"streams"`
	Entries []Entry `json:"entries"`
}

// ReaperConfig configures the background eviction of departed viewers.
type ReaperConfig struct {
	// EvictAfter is how long a viewer with no open streams is kept before
	// being removed. Default: 10 minutes.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans. Default: 60 seconds.
	SweepInterval time.Duration

	// OnEvict is called for each evicted viewer, outside the lock.
	OnEvict func(uid string)
}

// Tracker maintains an in-memory roster of viewers.
type Tracker struct {
	mu      sync.RWMutex
	viewers map[string]*viewerState
	now     func() time.Time

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type viewerState struct {
	firstSeen    time.Time
	lastSeen     time.Time
	leftAt       time.Time
	transport    string
	streams      int
	connectCount int64
}

// New creates a new presence tracker.
func New() *Tracker {
	return &Tracker{
		viewers: make(map[string]*viewerState),
		now:     time.Now,
	}
}

// Connect records a newly opened stream for uid and returns the func that
// records its close. The release func is safe to call more than once.
func (t *Tracker) Connect(uid, transport string) (release func()) {
	if uid == "" {
		return func() {}
	}

	now := t.now()
	t.mu.Lock()
	state, ok := t.viewers[uid]
	if !ok {
		state = &viewerState{firstSeen: now}
		t.viewers[uid] = state
	}
	state.lastSeen = now
	state.transport = transport
	state.streams++
	state.connectCount++
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.disconnect(uid) })
	}
}

func (t *Tracker) disconnect(uid string) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.viewers[uid]
	if !ok {
		return
	}
	state.lastSeen = now
	if state.streams > 0 {
		state.streams--
	}
	if state.streams == 0 {
		state.leftAt = now
	}
}

// Touch refreshes uid's last-seen time; stream keepalives call it.
func (t *Tracker) Touch(uid string) {
	now := t.now()
	t.mu.Lock()
	if state, ok := t.viewers[uid]; ok {
		state.lastSeen = now
	}
	t.mu.Unlock()
}

// Roster returns a snapshot of all tracked viewers, most recently active
// first. staleThreshold excludes viewers idle for longer; 0 includes all.
func (t *Tracker) Roster(staleThreshold time.Duration) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	entries := make([]Entry, 0, len(t.viewers))
	for uid, state := range t.viewers {
		idle := now.Sub(state.lastSeen)
		if staleThreshold > 0 && idle > staleThreshold {
			continue
		}
		entries = append(entries, Entry{
			UID:                 uid,
			Streams:             state.streams,
			Transport:           state.transport,
			LastSeen:            state.lastSeen,
			FirstSeen:           state.firstSeen,
			IdleSecs:            idle.Seconds(),
			ConnectCount:        state.connectCount,
			SessionDurationSecs: now.Sub(state.firstSeen).Seconds(),
			Gone:                state.streams == 0,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].LastSeen.After(entries[j].LastSeen)
		}
		return entries[i].UID < entries[j].UID
	})
	return entries
}

// Summarize counts open streams and the identities holding them.
func (t *Tracker) Summarize() Summary {
	s := Summary{Entries: t.Roster(0)}
	for _, e := range s.Entries {
		if e.Streams > 0 {
			s.Viewers++
			s.Streams += e.Streams
		}
	}
	return s
}

// StartReaper launches a background goroutine that periodically evicts
// departed viewers. Call Stop() to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.EvictAfter == 0 {
		cfg.EvictAfter = 10 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 60 * time.Second
	}

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	slog.Info("presence: reaper started",
		"evict_after", cfg.EvictAfter,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig) {
	now := t.now()
	var evicted []string

	t.mu.Lock()
	for uid, state := range t.viewers {
		if state.streams > 0 || state.leftAt.IsZero() {
			continue
		}
		if now.Sub(state.leftAt) > cfg.EvictAfter {
			delete(t.viewers, uid)
			evicted = append(evicted, uid)
		}
	}
	t.mu.Unlock()

	for _, uid := range evicted {
		slog.Debug("presence: viewer evicted", "uid", uid)
		if cfg.OnEvict != nil {
			cfg.OnEvict(uid)
		}
	}
}
