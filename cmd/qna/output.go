package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printQuestion(w io.Writer, q *model.Question) {
	fmt.Fprintf(w, "ID:          %s\n", ui.RenderMuted(q.ID))
	fmt.Fprintf(w, "Question:    %s\n", q.Text)
	fmt.Fprintf(w, "Asked At:    %s\n", q.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if q.Answer == nil {
		fmt.Fprintf(w, "Answer:      %s\n", ui.RenderMuted("(none)"))
		return
	}
	fmt.Fprintf(w, "Answer:      %s\n", ui.RenderSuccess(*q.Answer))
	if q.AnsweredAt != nil {
		fmt.Fprintf(w, "Answered At: %s\n", q.AnsweredAt.Local().Format("2006-01-02 15:04:05"))
	}
}
