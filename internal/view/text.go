package view

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"

	"github.com/alfredjeanlab/qna/internal/ui"
)

// WriteText renders the board for a terminal. Styling comes from the ui
// package and is dropped when color is disabled.
func WriteText(w io.Writer, t *Tree) error {
	var b strings.Builder
	b.WriteString(ui.RenderBold(ui.RenderAccent(t.Title)))
	b.WriteString("\n")
	if t.Disconnected != "" {
		b.WriteString(ui.RenderDanger(PlainText(t.Disconnected)))
		b.WriteString("\n")
	}
	if t.Form.Status != "" {
		b.WriteString(ui.RenderDanger(PlainText(t.Form.Status)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(ui.RenderMuted(t.Latest))
	b.WriteString("\n")

	for i, item := range t.Items {
		writeTextItem(&b, i+1, item)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTextItem(b *strings.Builder, n int, item Item) {
	fmt.Fprintf(b, "%2d. %s  %s\n", n, ui.RenderBold(oneLine(item.Text)), ui.RenderMuted(item.ID))
	if item.Answer != nil {
		fmt.Fprintf(b, "    %s: %s\n", ui.RenderSuccess(item.AnswerLabel), oneLine(*item.Answer))
	} else {
		fmt.Fprintf(b, "    %s\n", ui.RenderMuted(item.Placeholder))
	}
	if e := item.Editor; e != nil && e.Status != "" {
		status := ui.RenderMuted(e.Status)
		if e.State == SaveFailed {
			status = ui.RenderDanger(e.Status)
		}
		fmt.Fprintf(b, "    [%s] %s\n", e.SaveLabel, status)
	}
}

// oneLine folds newlines so each question keeps its own row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(PlainText(s)), " ")
}

// PlainText strips escape sequences and control characters from
// user-authored text before it reaches a terminal. Newlines and tabs stay.
func PlainText(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
