// Package view builds the board's view tree from a snapshot and renders it
// as HTML or terminal text. Building is pure: the same inputs always give a
// structurally identical tree, and every render replaces the previous one.
package view

import (
	"github.com/alfredjeanlab/qna/internal/i18n"
	"github.com/alfredjeanlab/qna/internal/model"
)

// SaveState is the per-question status of the admin answer editor.
type SaveState int

const (
	SaveIdle SaveState = iota
	SaveSaving
	SaveSaved
	SaveFailed
)

func (s SaveState) String() string {
	switch s {
	case SaveSaving:
		return "saving"
	case SaveSaved:
		return "saved"
	case SaveFailed:
		return "failed"
	default:
		return "idle"
	}
}

// EditorState is a read-only lookup of admin editor state by question ID.
type EditorState interface {
	Draft(id string) (string, bool)
	Status(id string) SaveState
}

// Tree is one complete rendering of the board.
type Tree struct {
	// Lang is the language of every label in the tree.
	Lang   i18n.Lang
	Title  string
	Latest string
	// Disconnected is the banner text while the live feed is down, else "".
	Disconnected string
	Form         Form
	Items        []Item
}

// Form is the question submission form.
type Form struct {
	Placeholder string
	SubmitLabel string
	Input       string
	// Cleared counts successful submissions; when it changes hosts set
	// their input field to Input, which keeps text typed mid-submit.
	Cleared uint64
	Status  string
}

// Item is one question in the list.
type Item struct {
	ID          string
	Text        string
	AnswerLabel string
	Answer      *string
	// Placeholder is shown instead of the answer block when Answer is nil.
	Placeholder string
	// Editor is nil unless the viewer is the admin.
	Editor *Editor
}

// Editor is the admin's inline answer editor for one question.
type Editor struct {
	Heading      string
	Value        string
	Placeholder  string
	SaveLabel    string
	SaveDisabled bool
	State        SaveState
	Status       string
}

// Render builds the tree for questions (already ordered newest first) as
// seen by session. state may be nil.
func Render(questions []*model.Question, session model.ViewerSession, labels i18n.Labels, state EditorState) *Tree {
	t := &Tree{
		Lang:   labels.Lang,
		Title:  labels.Title,
		Latest: labels.Latest,
		Form: Form{
			Placeholder: labels.Placeholder,
			SubmitLabel: labels.Submit,
		},
		Items: make([]Item, 0, len(questions)),
	}
	for _, q := range questions {
		item := Item{
			ID:          q.ID,
			Text:        q.Text,
			AnswerLabel: labels.Answer,
			Placeholder: labels.NoAnswer,
		}
		if q.Answer != nil {
			a := *q.Answer
			item.Answer = &a
		}
		if session.IsAdmin {
			item.Editor = renderEditor(q, labels, state)
		}
		t.Items = append(t.Items, item)
	}
	return t
}

func renderEditor(q *model.Question, labels i18n.Labels, state EditorState) *Editor {
	e := &Editor{
		Heading:     labels.AdminAnswerHeading,
		Value:       q.AnswerText(),
		Placeholder: labels.AdminAnswerPlaceholder,
		SaveLabel:   labels.SaveAnswer,
	}
	if state == nil {
		return e
	}
	if draft, ok := state.Draft(q.ID); ok {
		e.Value = draft
	}
	e.State = state.Status(q.ID)
	switch e.State {
	case SaveSaving:
		e.SaveDisabled = true
		e.Status = labels.Saving
	case SaveSaved:
		e.Status = labels.Saved
	case SaveFailed:
		e.Status = labels.SaveFailed
	}
	return e
}
