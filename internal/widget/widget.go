// Package widget is the live Q&A board runtime. A Widget owns the latest
// snapshot, the form input and the admin editor state, and turns every
// change into a fresh view tree. All state lives on one event-loop goroutine
// started by Run; the exported methods only post events to it.
package widget

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alfredjeanlab/qna/internal/i18n"
	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/view"
)

// DefaultStatusClearDelay is how long "saved", "save failed" and "submit
// failed" stay on screen.
const DefaultStatusClearDelay = 1500 * time.Millisecond

// Remote is the write side of the question collection.
type Remote interface {
	AddQuestion(ctx context.Context, text string) error
	// SaveAnswer sets the answer, or retracts it when answer is nil.
	SaveAnswer(ctx context.Context, id string, answer *string) error
}

// Option configures a Widget.
type Option func(*Widget)

func WithStatusClearDelay(d time.Duration) Option { return func(w *Widget) { w.clearDelay = d } }

func WithLogger(l *slog.Logger) Option { return func(w *Widget) { w.logger = l } }

// Widget is the board runtime for one viewer session.
type Widget struct {
	remote     Remote
	session    model.ViewerSession
	labels     i18n.Labels
	logger     *slog.Logger
	clearDelay time.Duration

	events  chan func()
	renders chan *view.Tree
	done    chan struct{}

	// Owned by the event loop.
	ctx       context.Context
	questions []*model.Question
	input     string
	cleared   uint64
	formMsg   string
	formGen   uint64
	connected bool
	editor    editorState
}

// New returns a Widget. Nothing happens until Run is called.
func New(remote Remote, session model.ViewerSession, labels i18n.Labels, opts ...Option) *Widget {
	w := &Widget{
		remote:     remote,
		session:    session,
		labels:     labels,
		logger:     slog.Default(),
		clearDelay: DefaultStatusClearDelay,
		events:     make(chan func()),
		renders:    make(chan *view.Tree, 1),
		done:       make(chan struct{}),
		connected:  true,
		editor:     newEditorState(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Session returns the viewer session the widget renders for.
func (w *Widget) Session() model.ViewerSession { return w.session }

// Renders delivers a new tree after every state change. Only the newest
// undelivered tree is kept.
func (w *Widget) Renders() <-chan *view.Tree { return w.renders }

// Run processes snapshots and interaction events until ctx is done or
// snapshots is closed. It renders once before the first snapshot arrives.
func (w *Widget) Run(ctx context.Context, snapshots <-chan model.Snapshot) error {
	defer close(w.done)
	w.ctx = ctx
	w.render()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			w.applySnapshot(snap)
		case fn := <-w.events:
			fn()
		}
		w.render()
	}
}

// post runs fn on the event loop. It is dropped once Run has returned.
func (w *Widget) post(fn func()) {
	select {
	case w.events <- fn:
	case <-w.done:
	}
}

// SetInput records the current text of the question form.
func (w *Widget) SetInput(text string) {
	w.post(func() { w.input = text })
}

// SetConnected toggles the disconnected banner.
func (w *Widget) SetConnected(ok bool) {
	w.post(func() { w.connected = ok })
}

// Submit posts the form input as a new question. Input that trims to
// nothing is ignored and left as is. On success the input is cleared; the
// question itself appears only with a later snapshot.
func (w *Widget) Submit() {
	w.post(w.submit)
}

func (w *Widget) submit() {
	raw := w.input
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}
	ctx := w.ctx
	go func() {
		err := w.remote.AddQuestion(ctx, text)
		w.post(func() { w.submitDone(raw, err) })
	}()
}

func (w *Widget) submitDone(raw string, err error) {
	if err != nil {
		w.logger.Warn("widget: submit failed", "error", &model.WriteError{Op: "create", Err: err})
		w.formMsg = w.labels.SubmitFailed
		w.formGen++
		gen := w.formGen
		w.after(func() {
			if w.formGen == gen {
				w.formMsg = ""
			}
		})
		return
	}
	// Text typed while the write was in flight is kept.
	if w.input == raw {
		w.input = ""
	}
	w.cleared++
	w.formMsg = ""
}

// after posts fn to the loop once the status clear delay has passed.
func (w *Widget) after(fn func()) {
	time.AfterFunc(w.clearDelay, func() { w.post(fn) })
}

func (w *Widget) applySnapshot(snap model.Snapshot) {
	qs := model.CloneAll(snap.Questions)
	model.SortNewestFirst(qs)
	w.questions = qs
	w.editor.prune(qs)
}

func (w *Widget) render() {
	tree := view.Render(w.questions, w.session, w.labels, w.editor)
	tree.Form.Input = w.input
	tree.Form.Cleared = w.cleared
	tree.Form.Status = w.formMsg
	if !w.connected {
		tree.Disconnected = w.labels.Disconnected
	}
	select {
	case <-w.renders:
	default:
	}
	w.renders <- tree
}

func (w *Widget) find(id string) *model.Question {
	for _, q := range w.questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}
