package tui

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/view"
)

type focus int

const (
	focusForm focus = iota
	focusList
	focusEditor
)

// renderMsg carries a new tree from the widget.
type renderMsg struct{ tree *view.Tree }

// boardClosedMsg means the widget stopped rendering.
type boardClosedMsg struct{}

type boardModel struct {
	board Board
	tree  *view.Tree

	input  textinput.Model
	editor textarea.Model

	focus   focus
	cursor  int
	editing string // question ID open in the editor
	cleared uint64

	width  int
	height int
}

func newModel(b Board) boardModel {
	in := textinput.New()
	in.CharLimit = model.MaxTextLength
	in.Prompt = "> "
	in.Focus()

	ed := textarea.New()
	ed.ShowLineNumbers = false
	ed.SetHeight(4)
	ed.CharLimit = model.MaxTextLength

	return boardModel{board: b, input: in, editor: ed}
}

func waitRender(b Board) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-b.Renders()
		if !ok {
			return boardClosedMsg{}
		}
		return renderMsg{tree: t}
	}
}

func (m boardModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitRender(m.board))
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-4, 10)
		m.editor.SetWidth(max(msg.Width-6, 10))
		return m, nil

	case renderMsg:
		(&m).applyTree(msg.tree)
		return m, waitRender(m.board)

	case boardClosedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.focus {
		case focusForm:
			return m.updateForm(msg)
		case focusList:
			return m.updateList(msg)
		case focusEditor:
			return m.updateEditor(msg)
		}
	}
	return m, nil
}

func (m *boardModel) applyTree(t *view.Tree) {
	m.tree = t
	m.input.Placeholder = t.Form.Placeholder
	if t.Form.Cleared != m.cleared {
		m.cleared = t.Form.Cleared
		// Text typed while the submit was in flight comes back in Input.
		m.input.SetValue(t.Form.Input)
		m.input.CursorEnd()
	}
	if m.cursor >= len(t.Items) {
		m.cursor = max(len(t.Items)-1, 0)
	}
	if m.editing != "" && m.itemIndex(m.editing) < 0 {
		m.closeEditor()
	}
}

func (m boardModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.board.Submit()
		return m, nil
	case "tab", "esc":
		m.input.Blur()
		m.focus = focusList
		return m, nil
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.board.SetInput(v)
	}
	return m, cmd
}

func (m boardModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.itemCount()
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
	case "tab", "i", "esc":
		m.focus = focusForm
		cmd := m.input.Focus()
		return m, cmd
	case "enter", "e":
		if !m.board.Session().IsAdmin || n == 0 {
			return m, nil
		}
		item := m.tree.Items[m.cursor]
		m.editing = item.ID
		if item.Editor != nil {
			m.editor.SetValue(item.Editor.Value)
		}
		m.focus = focusEditor
		cmd := m.editor.Focus()
		return m, cmd
	}
	return m, nil
}

func (m boardModel) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+s":
		if e := m.editingItem(); e != nil && e.Editor != nil && !e.Editor.SaveDisabled {
			m.board.Save(m.editing)
		}
		return m, nil
	case "esc":
		m.closeEditor()
		return m, nil
	}
	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if v := m.editor.Value(); v != before {
		m.board.SetDraft(m.editing, v)
	}
	return m, cmd
}

func (m *boardModel) closeEditor() {
	m.editor.Blur()
	m.editor.Reset()
	m.editing = ""
	if m.focus == focusEditor {
		m.focus = focusList
	}
}

func (m boardModel) itemCount() int {
	if m.tree == nil {
		return 0
	}
	return len(m.tree.Items)
}

func (m boardModel) itemIndex(id string) int {
	if m.tree == nil {
		return -1
	}
	for i, item := range m.tree.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (m boardModel) editingItem() *view.Item {
	if i := m.itemIndex(m.editing); i >= 0 {
		return &m.tree.Items[i]
	}
	return nil
}
