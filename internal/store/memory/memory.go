// Package memory implements store.Store in process memory. It backs
// `qna serve` when no database is configured and doubles as the store for
// tests in other packages.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alfredjeanlab/qna/internal/idgen"
	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/store"
)

// Store keeps questions in a map guarded by a mutex.
type Store struct {
	mu        sync.RWMutex
	questions map[string]*model.Question
	now       func() time.Time
	last      time.Time
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the store clock (the "server timestamp" source).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		questions: make(map[string]*model.Question),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// stamp returns the store clock, clamped so it never goes backwards.
// Caller must hold mu.
func (s *Store) stamp() time.Time {
	t := s.now()
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return t
}

func (s *Store) CreateQuestion(_ context.Context, text string) (*model.Question, error) {
	text = model.NormalizeText(text)
	if text == "" {
		return nil, model.ErrEmptyText
	}
	id, err := idgen.NewQuestionID()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.questions[id]; dup {
		return nil, fmt.Errorf("duplicate question id %s", id)
	}
	q := &model.Question{ID: id, Text: text, CreatedAt: s.stamp()}
	s.questions[id] = q
	return q.Clone(), nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (*model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return q.Clone(), nil
}

func (s *Store) ListQuestions(_ context.Context) ([]*model.Question, error) {
	s.mu.RLock()
	out := make([]*model.Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, q.Clone())
	}
	s.mu.RUnlock()
	model.SortNewestFirst(out)
	return out, nil
}

func (s *Store) SetAnswer(_ context.Context, id string, answer *string) (*model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if answer == nil {
		q.Answer = nil
		q.AnsweredAt = nil
	} else {
		a := *answer
		t := s.stamp()
		q.Answer = &a
		q.AnsweredAt = &t
	}
	return q.Clone(), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
