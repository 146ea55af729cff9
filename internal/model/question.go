package model

import (
	"sort"
	"time"
)

// Question is one question-and-optional-answer record in the "questions"
// collection.
type Question struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	CreatedAt  time.Time  `json:"created_at"`
	Answer     *string    `json:"answer"`
	AnsweredAt *time.Time `json:"answered_at"`
}

// IsAnswered reports whether the question currently carries an answer.
func (q *Question) IsAnswered() bool {
	return q.Answer != nil
}

// AnswerText returns the answer or "" when unanswered.
func (q *Question) AnswerText() string {
	if q.Answer == nil {
		return ""
	}
	return *q.Answer
}

// Clone returns a deep copy so snapshot consumers never share pointers with
// the store.
func (q *Question) Clone() *Question {
	c := *q
	if q.Answer != nil {
		a := *q.Answer
		c.Answer = &a
	}
	if q.AnsweredAt != nil {
		t := *q.AnsweredAt
		c.AnsweredAt = &t
	}
	return &c
}

// Snapshot is a complete, ordered view of the collection at one point in
// time. Seq increases monotonically per feed.
type Snapshot struct {
	Seq       uint64      `json:"seq"`
	At        time.Time   `json:"at"`
	Questions []*Question `json:"questions"`
}

// Find returns the question with the given ID, or nil.
func (s Snapshot) Find(id string) *Question {
	for _, q := range s.Questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// SortNewestFirst orders questions by CreatedAt descending. Equal timestamps
// fall back to ID descending so the order is total and deterministic.
func SortNewestFirst(qs []*Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		a, b := qs[i], qs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// CloneAll deep-copies a slice of questions.
func CloneAll(qs []*Question) []*Question {
	out := make([]*Question, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.Clone())
	}
	return out
}
