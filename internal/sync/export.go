package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/qna/internal/model"
)

// Lister is the slice of store.Store that exports need.
type Lister interface {
	ListQuestions(ctx context.Context) ([]*model.Question, error)
}

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	QuestionCount int       `json:"question_count"`
	AnsweredCount int       `json:"answered_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string          `json:"type"`
	Data *model.Question `json:"data"`
}

// Summary describes one export.
type Summary struct {
	Questions  int
	Answered   int
	ExportedAt time.Time
}

// ExportJSONL writes every question as JSONL to w: a header line, then one
// record per question in creation order (oldest first, so appends diff
// cleanly in git).
func ExportJSONL(ctx context.Context, s Lister, w io.Writer) (Summary, error) {
	qs, err := s.ListQuestions(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list questions: %w", err)
	}
	sort.SliceStable(qs, func(i, j int) bool {
		if !qs[i].CreatedAt.Equal(qs[j].CreatedAt) {
			return qs[i].CreatedAt.Before(qs[j].CreatedAt)
		}
		return qs[i].ID < qs[j].ID
	})

	sum := Summary{Questions: len(qs), ExportedAt: time.Now().UTC()}
	for _, q := range qs {
		if q.IsAnswered() {
			sum.Answered++
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       "1",
		Type:          "header",
		Timestamp:     sum.ExportedAt,
		QuestionCount: sum.Questions,
		AnsweredCount: sum.Answered,
	}); err != nil {
		return sum, fmt.Errorf("encode header: %w", err)
	}

	for _, q := range qs {
		if err := enc.Encode(record{Type: "question", Data: q}); err != nil {
			return sum, fmt.Errorf("encode question %s: %w", q.ID, err)
		}
	}
	return sum, nil
}
