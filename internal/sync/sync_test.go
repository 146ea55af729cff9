package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/qna/internal/store/memory"
)

// mockDestination records calls to Write.
type mockDestination struct {
	writes atomic.Int64
	last   atomic.Value // Backup
	fail   atomic.Bool
}

func (d *mockDestination) Name() string { return "mock" }

func (d *mockDestination) Write(_ context.Context, b Backup) error {
	d.writes.Add(1)
	if d.fail.Load() {
		return errors.New("unavailable")
	}
	b.Data = append([]byte(nil), b.Data...)
	d.last.Store(b)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerStartStop(t *testing.T) {
	ms := memory.New()
	ctx := context.Background()
	if _, err := ms.CreateQuestion(ctx, "T1"); err != nil {
		t.Fatal(err)
	}

	dest := &mockDestination{}
	sched := NewScheduler(ms, []Destination{dest}, 50*time.Millisecond, discardLogger())
	sched.Start()

	// Initial backup runs immediately; add a question so a later tick
	// has something new to write.
	time.Sleep(20 * time.Millisecond)
	if _, err := ms.CreateQuestion(ctx, "T2"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes != 2 {
		t.Fatalf("expected 2 writes, got %d", writes)
	}

	last, ok := dest.last.Load().(Backup)
	if !ok || len(last.Data) == 0 {
		t.Fatal("expected non-empty data")
	}
	if last.Questions != 2 {
		t.Fatalf("summary questions = %d, want 2", last.Questions)
	}
	// 1 header + 2 questions
	if lines := nonEmptyLines(string(last.Data)); len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(memory.New(), nil, time.Minute, discardLogger())
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSchedulerMultipleDestinations(t *testing.T) {
	dest1 := &mockDestination{}
	dest2 := &mockDestination{}

	sched := NewScheduler(memory.New(), []Destination{dest1, dest2}, time.Second, discardLogger())
	sched.Start()

	// Wait for the initial backup.
	time.Sleep(50 * time.Millisecond)
	sched.Stop()

	if dest1.writes.Load() != 1 {
		t.Fatal("dest1 expected 1 write")
	}
	if dest2.writes.Load() != 1 {
		t.Fatal("dest2 expected 1 write")
	}
}

func TestRunOnce_SkipsUnchanged(t *testing.T) {
	ms := memory.New()
	ctx := context.Background()
	q, _ := ms.CreateQuestion(ctx, "Where?")

	dest := &mockDestination{}
	sched := NewScheduler(ms, []Destination{dest}, time.Minute, discardLogger())

	if !sched.RunOnce(ctx) {
		t.Fatal("first run should write")
	}
	if sched.RunOnce(ctx) {
		t.Fatal("unchanged collection should be skipped")
	}

	answer := "Hall B"
	if _, err := ms.SetAnswer(ctx, q.ID, &answer); err != nil {
		t.Fatal(err)
	}
	if !sched.RunOnce(ctx) {
		t.Fatal("answered question should be written")
	}
	if got := dest.writes.Load(); got != 2 {
		t.Fatalf("writes = %d, want 2", got)
	}
}

func TestRunOnce_RetriesAfterFailure(t *testing.T) {
	ms := memory.New()
	ctx := context.Background()
	ms.CreateQuestion(ctx, "Why?")

	dest := &mockDestination{}
	dest.fail.Store(true)
	sched := NewScheduler(ms, []Destination{dest}, time.Minute, discardLogger())

	sched.RunOnce(ctx)
	dest.fail.Store(false)
	if !sched.RunOnce(ctx) {
		t.Fatal("failed destination should be retried on the next run")
	}
	if got := dest.writes.Load(); got != 2 {
		t.Fatalf("writes = %d, want 2", got)
	}
}
