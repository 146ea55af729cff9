package store

import (
	"context"

	"github.com/alfredjeanlab/qna/internal/model"
)

// Store defines the persistence interface for the questions collection.
// Implementations assign IDs and timestamps; callers never supply them.
type Store interface {
	// CreateQuestion appends a new unanswered question with a store-assigned
	// ID and creation time.
	CreateQuestion(ctx context.Context, text string) (*model.Question, error)

	// GetQuestion returns model.ErrNotFound when the ID does not exist.
	GetQuestion(ctx context.Context, id string) (*model.Question, error)

	// ListQuestions returns every question, newest first.
	ListQuestions(ctx context.Context) ([]*model.Question, error)

	// SetAnswer sets answer and stamps answered_at with the store clock, or
	// clears both when answer is nil. Text and created_at are never touched.
	SetAnswer(ctx context.Context, id string, answer *string) (*model.Question, error)

	// Lifecycle
	Close() error
}
