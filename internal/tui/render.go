package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alfredjeanlab/qna/internal/view"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("74"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	dangerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	selectedStyle = lipgloss.NewStyle().Bold(true)
	bannerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("204")).Padding(0, 1)
	editorBox     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("74")).Padding(0, 1)
)

func (m boardModel) View() string {
	if m.tree == nil {
		return ""
	}
	t := m.tree
	var b strings.Builder

	b.WriteString(titleStyle.Render(t.Title))
	b.WriteString("\n")
	if t.Disconnected != "" {
		b.WriteString(bannerStyle.Render(t.Disconnected))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.input.Value() == "" && m.focus != focusForm {
		b.WriteString(mutedStyle.Render("> " + t.Form.Placeholder))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render("[" + t.Form.SubmitLabel + "]"))
	b.WriteString("\n")
	if t.Form.Status != "" {
		b.WriteString(dangerStyle.Render(view.PlainText(t.Form.Status)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(t.Latest))
	b.WriteString("\n")
	for i, item := range t.Items {
		m.writeItem(&b, i, item)
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.helpLine()))
	return b.String()
}

func (m boardModel) writeItem(b *strings.Builder, i int, item view.Item) {
	marker := "  "
	text := view.PlainText(item.Text)
	if m.focus != focusForm && i == m.cursor {
		marker = "> "
		text = selectedStyle.Render(text)
	}
	fmt.Fprintf(b, "%s%s\n", marker, text)
	if item.Answer != nil {
		fmt.Fprintf(b, "    %s %s\n", answerStyle.Render(item.AnswerLabel+":"), view.PlainText(*item.Answer))
	} else {
		fmt.Fprintf(b, "    %s\n", mutedStyle.Render(item.Placeholder))
	}

	e := item.Editor
	if e == nil {
		return
	}
	if m.editing == item.ID {
		fmt.Fprintf(b, "    %s\n", answerStyle.Render(e.Heading))
		b.WriteString(editorBox.Render(m.editor.View()))
		b.WriteString("\n")
	}
	if e.Status != "" {
		st := mutedStyle
		if e.State == view.SaveFailed {
			st = dangerStyle
		}
		fmt.Fprintf(b, "    %s\n", st.Render(e.Status))
	}
}

func (m boardModel) helpLine() string {
	switch m.focus {
	case focusEditor:
		return "ctrl+s save • esc close"
	case focusList:
		if m.board.Session().IsAdmin {
			return "↑/↓ move • enter edit answer • tab ask • q quit"
		}
		return "↑/↓ move • tab ask • q quit"
	default:
		return "enter submit • tab list • ctrl+c quit"
	}
}
