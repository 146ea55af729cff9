package widget

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/qna/internal/feed"
	"github.com/alfredjeanlab/qna/internal/i18n"
	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/store/memory"
	"github.com/alfredjeanlab/qna/internal/view"
)

var (
	labels       = i18n.For(i18n.English)
	adminSession = model.NewViewerSession(&model.Identity{UID: "u-admin"}, "u-admin")
	guestSession = model.NewViewerSession(&model.Identity{UID: "u-guest"}, "u-admin")
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type saveCall struct {
	id     string
	answer *string
}

// fakeRemote records writes. When gate is set, SaveAnswer waits for a value
// on it before returning saveErr.
type fakeRemote struct {
	mu      sync.Mutex
	adds    []string
	saves   []saveCall
	addErr  error
	saveErr error
	gate    chan error
}

func (f *fakeRemote) AddQuestion(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, text)
	return f.addErr
}

func (f *fakeRemote) SaveAnswer(_ context.Context, id string, answer *string) error {
	f.mu.Lock()
	f.saves = append(f.saves, saveCall{id, answer})
	gate, err := f.gate, f.saveErr
	f.mu.Unlock()
	if gate != nil {
		return <-gate
	}
	return err
}

func (f *fakeRemote) counts() (adds, saves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.adds), len(f.saves)
}

// start runs w until the test ends.
func start(t *testing.T, w *Widget, snapshots <-chan model.Snapshot) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, snapshots)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// waitTree reads renders until pred holds.
func waitTree(t *testing.T, w *Widget, what string, pred func(*view.Tree) bool) *view.Tree {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case tree := <-w.Renders():
			if pred(tree) {
				return tree
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

// flush returns once every event posted before it has been processed.
func flush(w *Widget) { w.SetConnected(true) }

func at(min int) time.Time { return time.Date(2026, 1, 1, 12, min, 0, 0, time.UTC) }

func TestSubmit_Empty(t *testing.T) {
	remote := &fakeRemote{}
	w := New(remote, guestSession, labels, WithLogger(quiet()))
	start(t, w, nil)

	for _, in := range []string{"", "   ", "\t\n"} {
		w.SetInput(in)
		w.Submit()
		flush(w)
		tree := waitTree(t, w, "input "+in, func(tr *view.Tree) bool { return tr.Form.Input == in })
		if tree.Form.Cleared != 0 || tree.Form.Status != "" {
			t.Fatalf("input %q: form changed to %+v", in, tree.Form)
		}
	}
	if adds, _ := remote.counts(); adds != 0 {
		t.Fatalf("empty submissions wrote %d questions", adds)
	}
}

func TestSubmit_TrimsAndClears(t *testing.T) {
	remote := &fakeRemote{}
	w := New(remote, guestSession, labels, WithLogger(quiet()))
	start(t, w, nil)

	w.SetInput("  What time?  ")
	w.Submit()
	tree := waitTree(t, w, "cleared form", func(tr *view.Tree) bool { return tr.Form.Cleared == 1 })
	if tree.Form.Input != "" {
		t.Fatalf("input not cleared: %q", tree.Form.Input)
	}
	if len(tree.Items) != 0 {
		t.Fatal("submission must not echo locally")
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if len(remote.adds) != 1 || remote.adds[0] != "What time?" {
		t.Fatalf("adds = %q", remote.adds)
	}
}

func TestSubmit_FailureKeepsInput(t *testing.T) {
	remote := &fakeRemote{addErr: errors.New("permission denied")}
	w := New(remote, guestSession, labels, WithLogger(quiet()), WithStatusClearDelay(50*time.Millisecond))
	start(t, w, nil)

	w.SetInput("What time?")
	w.Submit()
	tree := waitTree(t, w, "submit failed status", func(tr *view.Tree) bool { return tr.Form.Status == labels.SubmitFailed })
	if tree.Form.Input != "What time?" || tree.Form.Cleared != 0 {
		t.Fatalf("failed submit must keep input: %+v", tree.Form)
	}
	tree = waitTree(t, w, "status cleared", func(tr *view.Tree) bool { return tr.Form.Status == "" })
	if tree.Form.Input != "What time?" {
		t.Fatalf("input lost after status cleared: %+v", tree.Form)
	}
}

func TestSnapshot_OrderIndependentOfArrival(t *testing.T) {
	snaps := make(chan model.Snapshot, 1)
	w := New(&fakeRemote{}, guestSession, labels, WithLogger(quiet()))
	start(t, w, snaps)

	snaps <- model.Snapshot{Seq: 1, Questions: []*model.Question{
		{ID: "q-a", Text: "first", CreatedAt: at(0)},
		{ID: "q-c", Text: "third", CreatedAt: at(2)},
		{ID: "q-b", Text: "second", CreatedAt: at(1)},
	}}
	tree := waitTree(t, w, "three items", func(tr *view.Tree) bool { return len(tr.Items) == 3 })
	for i, want := range []string{"q-c", "q-b", "q-a"} {
		if tree.Items[i].ID != want {
			t.Fatalf("item %d = %s, want %s", i, tree.Items[i].ID, want)
		}
	}
}

func TestRun_StopsWhenSnapshotsClose(t *testing.T) {
	snaps := make(chan model.Snapshot)
	w := New(&fakeRemote{}, guestSession, labels)
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), snaps) }()
	close(snaps)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	// Posting after Run returned must not block.
	w.SetInput("late")
	w.Save("q-1")
}

func TestDisconnectedBanner(t *testing.T) {
	w := New(&fakeRemote{}, guestSession, labels, WithLogger(quiet()))
	start(t, w, nil)

	w.SetConnected(false)
	waitTree(t, w, "banner", func(tr *view.Tree) bool { return tr.Disconnected == labels.Disconnected })
	w.SetConnected(true)
	waitTree(t, w, "banner cleared", func(tr *view.Tree) bool { return tr.Disconnected == "" })
}

func oneQuestion(answer *string) model.Snapshot {
	q := &model.Question{ID: "q-1", Text: "What time?", CreatedAt: at(0), Answer: answer}
	if answer != nil {
		t := at(1)
		q.AnsweredAt = &t
	}
	return model.Snapshot{Seq: 1, Questions: []*model.Question{q}}
}

func TestSave_IgnoredCases(t *testing.T) {
	remote := &fakeRemote{}

	guest := New(remote, guestSession, labels, WithLogger(quiet()))
	guestSnaps := make(chan model.Snapshot, 1)
	guestSnaps <- oneQuestion(nil)
	start(t, guest, guestSnaps)
	waitTree(t, guest, "snapshot", func(tr *view.Tree) bool { return len(tr.Items) == 1 })
	guest.SetDraft("q-1", "hacked")
	guest.Save("q-1")
	flush(guest)

	admin := New(remote, adminSession, labels, WithLogger(quiet()))
	adminSnaps := make(chan model.Snapshot, 1)
	adminSnaps <- oneQuestion(nil)
	start(t, admin, adminSnaps)
	waitTree(t, admin, "snapshot", func(tr *view.Tree) bool { return len(tr.Items) == 1 })
	admin.Save("q-unknown")
	flush(admin)

	if _, saves := remote.counts(); saves != 0 {
		t.Fatalf("expected no saves, got %d", saves)
	}
}

func TestSave_NoDoubleSaveWhileSaving(t *testing.T) {
	remote := &fakeRemote{gate: make(chan error)}
	w := New(remote, adminSession, labels, WithLogger(quiet()))
	snaps := make(chan model.Snapshot, 1)
	snaps <- oneQuestion(nil)
	start(t, w, snaps)

	w.SetDraft("q-1", "3pm")
	w.Save("q-1")
	tree := waitTree(t, w, "saving", func(tr *view.Tree) bool {
		return len(tr.Items) == 1 && tr.Items[0].Editor.State == view.SaveSaving
	})
	if !tree.Items[0].Editor.SaveDisabled || tree.Items[0].Editor.Status != labels.Saving {
		t.Fatalf("saving editor: %+v", tree.Items[0].Editor)
	}
	w.Save("q-1")
	flush(w)

	remote.gate <- nil
	waitTree(t, w, "saved", func(tr *view.Tree) bool { return tr.Items[0].Editor.State == view.SaveSaved })
	if _, saves := remote.counts(); saves != 1 {
		t.Fatalf("saves = %d, want 1", saves)
	}
}

func TestSave_NewSaveSupersedesPendingClear(t *testing.T) {
	const delay = 80 * time.Millisecond
	remote := &fakeRemote{gate: make(chan error)}
	w := New(remote, adminSession, labels, WithLogger(quiet()), WithStatusClearDelay(delay))
	snaps := make(chan model.Snapshot, 1)
	snaps <- oneQuestion(nil)
	start(t, w, snaps)
	waitTree(t, w, "snapshot", func(tr *view.Tree) bool { return len(tr.Items) == 1 })

	w.Save("q-1")
	remote.gate <- errors.New("unavailable")
	waitTree(t, w, "failed", func(tr *view.Tree) bool { return tr.Items[0].Editor.Status == labels.SaveFailed })

	// Second save starts before the first one's clear fires.
	w.Save("q-1")
	waitTree(t, w, "saving", func(tr *view.Tree) bool { return tr.Items[0].Editor.State == view.SaveSaving })
	time.Sleep(2 * delay)
	flush(w)
	tree := waitTree(t, w, "render", func(*view.Tree) bool { return true })
	if tree.Items[0].Editor.State != view.SaveSaving {
		t.Fatalf("stale clear removed the saving status: %+v", tree.Items[0].Editor)
	}

	remote.gate <- nil
	waitTree(t, w, "saved", func(tr *view.Tree) bool { return tr.Items[0].Editor.Status == labels.Saved })
	waitTree(t, w, "cleared", func(tr *view.Tree) bool { return tr.Items[0].Editor.State == view.SaveIdle })
}

func TestSave_StatusSurvivesUnrelatedSnapshot(t *testing.T) {
	remote := &fakeRemote{gate: make(chan error)}
	w := New(remote, adminSession, labels, WithLogger(quiet()))
	snaps := make(chan model.Snapshot)
	start(t, w, snaps)
	snaps <- oneQuestion(nil)

	w.Save("q-1")
	waitTree(t, w, "saving", func(tr *view.Tree) bool {
		return len(tr.Items) == 1 && tr.Items[0].Editor.State == view.SaveSaving
	})

	// Someone else asks a question mid-save.
	snap := oneQuestion(nil)
	snap.Questions = append(snap.Questions, &model.Question{ID: "q-2", Text: "Later", CreatedAt: at(5)})
	snaps <- snap
	tree := waitTree(t, w, "two items", func(tr *view.Tree) bool { return len(tr.Items) == 2 })
	if tree.Items[1].ID != "q-1" || tree.Items[1].Editor.State != view.SaveSaving {
		t.Fatalf("saving status lost across re-render: %+v", tree.Items[1])
	}

	remote.gate <- nil
	waitTree(t, w, "saved", func(tr *view.Tree) bool {
		return len(tr.Items) == 2 && tr.Items[1].Editor.State == view.SaveSaved
	})
}

func TestEditorState_PruneForgetsRemovedQuestions(t *testing.T) {
	e := newEditorState()
	for _, id := range []string{"q-keep", "q-gone"} {
		e.drafts[id] = "draft"
		e.status[id] = view.SaveSaved
		e.gen[id] = 3
	}

	e.prune([]*model.Question{{ID: "q-keep"}})

	if _, ok := e.drafts["q-gone"]; ok {
		t.Error("draft of removed question kept")
	}
	if _, ok := e.status["q-gone"]; ok {
		t.Error("status of removed question kept")
	}
	if _, ok := e.gen["q-gone"]; ok {
		t.Error("save generation of removed question kept")
	}
	if e.drafts["q-keep"] != "draft" || e.status["q-keep"] != view.SaveSaved || e.gen["q-keep"] != 3 {
		t.Errorf("live question state changed: draft=%q status=%v gen=%d", e.drafts["q-keep"], e.status["q-keep"], e.gen["q-keep"])
	}
}

func TestSave_EmptyRetracts(t *testing.T) {
	remote := &fakeRemote{}
	w := New(remote, adminSession, labels, WithLogger(quiet()))
	snaps := make(chan model.Snapshot, 1)
	a := "3pm"
	snaps <- oneQuestion(&a)
	start(t, w, snaps)
	waitTree(t, w, "snapshot", func(tr *view.Tree) bool { return len(tr.Items) == 1 })

	w.SetDraft("q-1", "   ")
	w.Save("q-1")
	waitTree(t, w, "saved", func(tr *view.Tree) bool { return tr.Items[0].Editor.State == view.SaveSaved })

	remote.mu.Lock()
	defer remote.mu.Unlock()
	if len(remote.saves) != 1 || remote.saves[0].answer != nil {
		t.Fatalf("expected one retracting save, got %+v", remote.saves)
	}
}

// storeRemote writes to a memory store and pokes the syncer, standing in
// for the server.
type storeRemote struct {
	st     *memory.Store
	syncer *feed.Syncer
	gate   chan struct{}
}

func (r *storeRemote) AddQuestion(ctx context.Context, text string) error {
	if _, err := r.st.CreateQuestion(ctx, text); err != nil {
		return err
	}
	r.syncer.Notify()
	return nil
}

func (r *storeRemote) SaveAnswer(ctx context.Context, id string, answer *string) error {
	if r.gate != nil {
		<-r.gate
	}
	if _, err := r.st.SetAnswer(ctx, id, answer); err != nil {
		return err
	}
	r.syncer.Notify()
	return nil
}

func TestScenario_AskAnswerRetract(t *testing.T) {
	st := memory.New()
	hub := feed.NewHub()
	syncer := feed.NewSyncer(st, hub, feed.WithLogger(quiet()), feed.WithDebounce(time.Millisecond), feed.WithResyncInterval(0))
	ctx, cancel := context.WithCancel(context.Background())
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		_ = syncer.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-syncDone
	})

	remote := &storeRemote{st: st, syncer: syncer, gate: make(chan struct{}, 1)}
	guestSub, adminSub := hub.Subscribe(), hub.Subscribe()
	defer guestSub.Cancel()
	defer adminSub.Cancel()

	guest := New(remote, guestSession, labels, WithLogger(quiet()))
	admin := New(remote, adminSession, labels, WithLogger(quiet()), WithStatusClearDelay(300*time.Millisecond))
	start(t, guest, guestSub.C())
	start(t, admin, adminSub.C())

	// Viewer asks.
	guest.SetInput("What time?")
	guest.Submit()
	tree := waitTree(t, guest, "question listed", func(tr *view.Tree) bool { return len(tr.Items) == 1 })
	item := tree.Items[0]
	if item.Text != "What time?" || item.Answer != nil || item.Placeholder != labels.NoAnswer || item.Editor != nil {
		t.Fatalf("unexpected guest item %+v", item)
	}
	id := item.ID

	// Admin answers.
	waitTree(t, admin, "admin sees question", func(tr *view.Tree) bool { return len(tr.Items) == 1 && tr.Items[0].Editor != nil })
	admin.SetDraft(id, "3pm")
	admin.Save(id)
	waitTree(t, admin, "saving", func(tr *view.Tree) bool { return tr.Items[0].Editor.Status == labels.Saving })
	remote.gate <- struct{}{}
	waitTree(t, admin, "answered and saved", func(tr *view.Tree) bool {
		it := tr.Items[0]
		return it.Answer != nil && *it.Answer == "3pm" && it.Editor.Status == labels.Saved
	})
	waitTree(t, admin, "status cleared", func(tr *view.Tree) bool { return tr.Items[0].Editor.Status == "" })
	tree = waitTree(t, guest, "guest sees answer", func(tr *view.Tree) bool { return tr.Items[0].Answer != nil })
	if *tree.Items[0].Answer != "3pm" || tree.Items[0].Editor != nil {
		t.Fatalf("unexpected guest item %+v", tree.Items[0])
	}
	if q, _ := st.GetQuestion(context.Background(), id); q.AnsweredAt == nil {
		t.Fatal("answered_at not stamped")
	}

	// Admin clears the answer.
	admin.SetDraft(id, "")
	admin.Save(id)
	remote.gate <- struct{}{}
	waitTree(t, guest, "answer retracted", func(tr *view.Tree) bool {
		return tr.Items[0].Answer == nil && tr.Items[0].Placeholder == labels.NoAnswer
	})
	if q, _ := st.GetQuestion(context.Background(), id); q.Answer != nil || q.AnsweredAt != nil {
		t.Fatalf("store still answered: %+v", q)
	}
}

func TestScenario_QuickSuccessionNewestFirst(t *testing.T) {
	st := memory.New(memory.WithClock(func() func() time.Time {
		var mu sync.Mutex
		n := 0
		return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			n++
			return at(n)
		}
	}()))
	hub := feed.NewHub()
	syncer := feed.NewSyncer(st, hub, feed.WithLogger(quiet()), feed.WithDebounce(time.Millisecond), feed.WithResyncInterval(0))
	ctx, cancel := context.WithCancel(context.Background())
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		_ = syncer.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-syncDone
	})

	sub := hub.Subscribe()
	defer sub.Cancel()
	w := New(&storeRemote{st: st, syncer: syncer}, guestSession, labels, WithLogger(quiet()))
	start(t, w, sub.C())

	w.SetInput("first")
	w.Submit()
	w.SetInput("second")
	w.Submit()
	tree := waitTree(t, w, "two questions", func(tr *view.Tree) bool { return len(tr.Items) == 2 })

	// Whichever write the store stamped later is on top.
	qs, _ := st.ListQuestions(context.Background())
	if tree.Items[0].ID != qs[0].ID || tree.Items[1].ID != qs[1].ID {
		t.Fatalf("render order %s,%s does not follow created_at order %s,%s",
			tree.Items[0].ID, tree.Items[1].ID, qs[0].ID, qs[1].ID)
	}
	if !qs[0].CreatedAt.After(qs[1].CreatedAt) {
		t.Fatal("store clock did not advance")
	}
}
