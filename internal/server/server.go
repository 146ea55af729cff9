// Package server exposes the question board over HTTP (JSON, HTML and SSE)
// and gRPC. Every write goes to the store, is announced on the event bus,
// and marks the feed dirty; readers only ever see complete snapshots from
// the feed hub.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/alfredjeanlab/qna/internal/events"
	"github.com/alfredjeanlab/qna/internal/feed"
	"github.com/alfredjeanlab/qna/internal/i18n"
	"github.com/alfredjeanlab/qna/internal/identity"
	"github.com/alfredjeanlab/qna/internal/idgen"
	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/presence"
	"github.com/alfredjeanlab/qna/internal/store"
)

// Notifier is told whenever the collection may have changed.
type Notifier interface {
	Notify()
}

// Config wires a QnAServer to its collaborators.
type Config struct {
	Store     store.Store
	Publisher events.Publisher
	Hub       *feed.Hub
	Notifier  Notifier
	Issuer    *identity.Issuer
	Presence  *presence.Tracker

	// AdminUID is the single identity allowed to write answers.
	AdminUID string
	// Lang is the default UI language for rendered pages.
	Lang i18n.Lang
	// Origin tags published events with this instance.
	Origin string
	Logger *slog.Logger
}

// QnAServer implements the HTTP and gRPC question board service.
type QnAServer struct {
	store     store.Store
	publisher events.Publisher
	hub       *feed.Hub
	notifier  Notifier
	issuer    *identity.Issuer
	Presence  *presence.Tracker

	adminUID string
	lang     i18n.Lang
	origin   string
	logger   *slog.Logger
}

// NewQnAServer returns a QnAServer. Store, Hub and Issuer are required.
func NewQnAServer(cfg Config) (*QnAServer, error) {
	if cfg.Store == nil || cfg.Hub == nil || cfg.Issuer == nil {
		return nil, errors.New("server: store, hub and issuer are required")
	}
	s := &QnAServer{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		hub:       cfg.Hub,
		notifier:  cfg.Notifier,
		issuer:    cfg.Issuer,
		Presence:  cfg.Presence,
		adminUID:  cfg.AdminUID,
		lang:      cfg.Lang,
		origin:    cfg.Origin,
		logger:    cfg.Logger,
	}
	if s.publisher == nil {
		s.publisher = &events.Noop{}
	}
	if s.Presence == nil {
		s.Presence = presence.New()
	}
	if s.lang == "" {
		s.lang = i18n.Default
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// session derives the viewer session for a verified identity (nil allowed).
func (s *QnAServer) session(id *model.Identity) model.ViewerSession {
	return model.NewViewerSession(id, s.adminUID)
}

// submit appends a new unanswered question on behalf of id.
func (s *QnAServer) submit(ctx context.Context, id *model.Identity, raw string) (*model.Question, error) {
	if id == nil {
		return nil, model.ErrNoIdentity
	}
	text := model.NormalizeText(raw)
	if text == "" {
		return nil, inputError("text is required")
	}
	if !utf8.ValidString(text) {
		return nil, inputError("text must be valid UTF-8")
	}
	if err := model.ValidateQuestion(&model.Question{Text: text}); err != nil {
		return nil, inputError(err.Error())
	}

	q, err := s.store.CreateQuestion(ctx, text)
	if err != nil {
		return nil, &model.WriteError{Op: "create", Err: err}
	}

	s.publish(ctx, events.Created(q, s.origin))
	return q, nil
}

// saveAnswer sets (or, for a blank raw, retracts) the answer of question qid.
// Only the admin identity may call it.
func (s *QnAServer) saveAnswer(ctx context.Context, id *model.Identity, qid, raw string) (*model.Question, error) {
	if id == nil {
		return nil, model.ErrNoIdentity
	}
	if !s.session(id).IsAdmin {
		return nil, model.ErrForbidden
	}
	if qid == "" {
		return nil, inputError("id is required")
	}
	if !idgen.IsQuestionID(qid) {
		return nil, model.ErrNotFound
	}
	if !utf8.ValidString(raw) {
		return nil, inputError("answer must be valid UTF-8")
	}
	answer := model.NormalizeAnswer(raw)
	if answer != nil && len([]rune(*answer)) > model.MaxTextLength {
		return nil, inputError(fmt.Sprintf("answer must be %d characters or fewer", model.MaxTextLength))
	}

	q, err := s.store.SetAnswer(ctx, qid, answer)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, &model.WriteError{Op: "answer", QuestionID: qid, Err: err}
	}

	s.publish(ctx, events.AnswerSet(q, s.origin))
	return q, nil
}

// publish announces a write on the bus and marks the local feed dirty.
// Publishing is best-effort; failures are logged but do not fail the write.
func (s *QnAServer) publish(ctx context.Context, c events.Change) {
	if err := s.publisher.Publish(ctx, c); err != nil {
		s.logger.Warn("failed to publish change", "kind", c.Kind, "question_id", c.QuestionID, "error", err)
	}
	if s.notifier != nil {
		s.notifier.Notify()
	}
}

// snapshot returns the latest published snapshot, or an empty one before
// the first load.
func (s *QnAServer) snapshot() model.Snapshot {
	if snap, ok := s.hub.Latest(); ok {
		return snap
	}
	return model.Snapshot{Questions: []*model.Question{}}
}
