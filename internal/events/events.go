// Package events carries question change notifications between server
// instances. Payloads are JSON; receivers treat a change as a hint to reload
// the collection, never as a diff to apply.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/qna/internal/model"
)

// Kind names what happened to a question.
type Kind string

const (
	KindCreated    Kind = "created"
	KindAnswered   Kind = "answered"
	KindUnanswered Kind = "unanswered"
)

// Subjects, one per Kind, under a shared prefix.
const (
	TopicQuestionCreated    = topicPrefix + string(KindCreated)
	TopicQuestionAnswered   = topicPrefix + string(KindAnswered)
	TopicQuestionUnanswered = topicPrefix + string(KindUnanswered)

	// TopicAll matches every question subject.
	TopicAll = topicPrefix + ">"

	topicPrefix = "qna.question."
)

// Change announces one write to the questions collection.
type Change struct {
	Kind       Kind            `json:"kind"`
	QuestionID string          `json:"question_id"`
	Question   *model.Question `json:"question,omitempty"`
	Origin     string          `json:"origin,omitempty"`
	At         time.Time       `json:"at"`
}

// Topic is the subject c is published on.
func (c Change) Topic() string { return topicPrefix + string(c.Kind) }

// Created describes the creation of q by the instance origin.
func Created(q *model.Question, origin string) Change {
	return newChange(KindCreated, q, origin)
}

// AnswerSet describes an answer write on q: answered when q carries an
// answer, unanswered when it was retracted.
func AnswerSet(q *model.Question, origin string) Change {
	if q.IsAnswered() {
		return newChange(KindAnswered, q, origin)
	}
	return newChange(KindUnanswered, q, origin)
}

func newChange(k Kind, q *model.Question, origin string) Change {
	return Change{
		Kind:       k,
		QuestionID: q.ID,
		Question:   q.Clone(),
		Origin:     origin,
		At:         time.Now().UTC(),
	}
}

// Publisher emits changes onto the bus.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
	Close() error
}

// Subscriber delivers changes from the bus until ctx is done, then closes
// the channel.
type Subscriber interface {
	Changes(ctx context.Context) (<-chan Change, error)
	Close() error
}
