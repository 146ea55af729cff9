// Package tui hosts the Q&A board in a terminal. It owns no board state:
// key presses become widget calls and every widget render replaces the
// screen.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/view"
)

// Board is the part of widget.Widget the terminal drives.
type Board interface {
	Renders() <-chan *view.Tree
	Session() model.ViewerSession
	SetInput(text string)
	Submit()
	SetDraft(id, value string)
	Save(id string)
}

// Run shows b until the user quits or ctx is done.
func Run(ctx context.Context, b Board) error {
	_, err := tea.NewProgram(newModel(b), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
