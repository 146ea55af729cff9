package widget

import (
	"strings"

	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/view"
)

// editorState is the admin editor state keyed by question ID. It survives
// re-renders because it lives here rather than in the view.
type editorState struct {
	drafts map[string]string
	status map[string]view.SaveState
	// gen counts saves per question; a pending status clear only applies if
	// no newer save has started since.
	gen map[string]uint64
}

func newEditorState() editorState {
	return editorState{
		drafts: make(map[string]string),
		status: make(map[string]view.SaveState),
		gen:    make(map[string]uint64),
	}
}

func (e editorState) Draft(id string) (string, bool) {
	d, ok := e.drafts[id]
	return d, ok
}

func (e editorState) Status(id string) view.SaveState { return e.status[id] }

// prune forgets questions that are no longer in the collection.
func (e editorState) prune(qs []*model.Question) {
	live := make(map[string]bool, len(qs))
	for _, q := range qs {
		live[q.ID] = true
	}
	for id := range e.drafts {
		if !live[id] {
			delete(e.drafts, id)
		}
	}
	for id := range e.status {
		if !live[id] {
			delete(e.status, id)
		}
	}
	for id := range e.gen {
		if !live[id] {
			delete(e.gen, id)
		}
	}
}

// SetDraft records the admin's inline answer field for question id.
func (w *Widget) SetDraft(id, value string) {
	w.post(func() {
		if w.session.IsAdmin {
			w.editor.drafts[id] = value
		}
	})
}

// Save writes the editor value of question id (the draft if one exists,
// else the current answer). A value that trims to nothing retracts the
// answer. Ignored for non-admin sessions, unknown IDs, and while a save of
// the same question is in flight.
func (w *Widget) Save(id string) {
	w.post(func() { w.save(id) })
}

func (w *Widget) save(id string) {
	if !w.session.IsAdmin || w.editor.status[id] == view.SaveSaving {
		return
	}
	q := w.find(id)
	if q == nil {
		return
	}
	raw, ok := w.editor.drafts[id]
	if !ok {
		raw = q.AnswerText()
	}
	answer := model.NormalizeAnswer(raw)

	w.editor.status[id] = view.SaveSaving
	w.editor.gen[id]++
	gen := w.editor.gen[id]

	ctx := w.ctx
	go func() {
		err := w.remote.SaveAnswer(ctx, id, answer)
		w.post(func() { w.saveDone(id, gen, raw, err) })
	}()
}

func (w *Widget) saveDone(id string, gen uint64, raw string, err error) {
	if w.editor.gen[id] != gen {
		return
	}
	if err != nil {
		w.logger.Warn("widget: save answer failed", "question_id", id,
			"error", &model.WriteError{Op: "answer", QuestionID: id, Err: err})
		w.editor.status[id] = view.SaveFailed
	} else {
		w.editor.status[id] = view.SaveSaved
		// Keep edits made while the save was in flight.
		if d, ok := w.editor.drafts[id]; ok && strings.TrimSpace(d) == strings.TrimSpace(raw) {
			delete(w.editor.drafts, id)
		}
	}
	w.after(func() {
		if w.editor.gen[id] != gen {
			return
		}
		if st := w.editor.status[id]; st == view.SaveSaved || st == view.SaveFailed {
			delete(w.editor.status, id)
		}
	})
}
