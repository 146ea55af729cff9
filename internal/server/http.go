package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alfredjeanlab/qna/internal/i18n"
	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/view"
)

// NewHTTPHandler returns an http.Handler with all routes registered, behind
// the recovery, logging and identity middleware.
func (s *QnAServer) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("POST "+view.SubmitPath, s.handleSubmitForm)
	mux.HandleFunc("POST /questions/{id}/answer", s.handleAnswerForm)
	mux.HandleFunc("GET /v1/questions", s.handleListQuestions)
	mux.HandleFunc("POST /v1/questions", s.handleCreateQuestion)
	mux.HandleFunc("GET /v1/questions/stream", s.handleQuestionStream)
	mux.HandleFunc("GET /v1/questions/{id}", s.handleGetQuestion)
	mux.HandleFunc("PUT /v1/questions/{id}/answer", s.handleSetAnswer)
	mux.HandleFunc("POST /v1/identity/anonymous", s.handleAnonymousIdentity)
	mux.HandleFunc("GET /v1/whoami", s.handleWhoami)
	mux.HandleFunc("GET /v1/viewers", s.handleViewers)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return RecoveryMiddleware(LoggingMiddleware(IdentityMiddleware(s.issuer, mux)))
}

// handleHealth handles GET /v1/health.
func (s *QnAServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"seq":         snap.Seq,
		"questions":   len(snap.Questions),
		"subscribers": s.hub.Subscribers(),
	})
}

// handleListQuestions handles GET /v1/questions. It answers from the feed,
// so readers see exactly what stream subscribers see.
func (s *QnAServer) handleListQuestions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

// handleGetQuestion handles GET /v1/questions/{id}.
func (s *QnAServer) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.store.GetQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type createQuestionInput struct {
	Text string `json:"text"`
}

// handleCreateQuestion handles POST /v1/questions with a JSON or form body.
func (s *QnAServer) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var in createQuestionInput
	if isFormPost(r) {
		in.Text = r.FormValue("text")
	} else if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	q, err := s.submit(r.Context(), identityFrom(r.Context()), in.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

type setAnswerInput struct {
	// Answer nil or blank retracts the answer.
	Answer *string `json:"answer"`
}

// handleSetAnswer handles PUT /v1/questions/{id}/answer.
func (s *QnAServer) handleSetAnswer(w http.ResponseWriter, r *http.Request) {
	var in setAnswerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	raw := ""
	if in.Answer != nil {
		raw = *in.Answer
	}

	q, err := s.saveAnswer(r.Context(), identityFrom(r.Context()), r.PathValue("id"), raw)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// handleSubmitForm handles the board's plain form post. A blank question
// is a no-op; either way the browser goes back to the board.
func (s *QnAServer) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	_, err := s.submit(r.Context(), identityFrom(r.Context()), r.FormValue("text"))
	var ie inputError
	if err != nil && !errors.As(err, &ie) {
		writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, boardURL(r), http.StatusSeeOther)
}

// handleAnswerForm handles the admin editor's form post.
func (s *QnAServer) handleAnswerForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.saveAnswer(r.Context(), identityFrom(r.Context()), r.PathValue("id"), r.FormValue("answer")); err != nil {
		writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, boardURL(r), http.StatusSeeOther)
}

// handleAnonymousIdentity handles POST /v1/identity/anonymous.
func (s *QnAServer) handleAnonymousIdentity(w http.ResponseWriter, r *http.Request) {
	id, token, err := s.issuer.SignInAnonymously(r.Context())
	if err != nil {
		s.logger.Error("anonymous sign-in failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "identity provider unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"uid":        id.UID,
		"token":      token,
		"expires_at": id.CreatedAt.Add(s.issuer.TTL()).UTC().Format(time.RFC3339),
	})
}

// handleWhoami handles GET /v1/whoami.
func (s *QnAServer) handleWhoami(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, model.ErrNoIdentity.Error())
		return
	}
	writeJSON(w, http.StatusOK, whoami{UID: id.UID, Anonymous: id.Anonymous, IsAdmin: s.session(id).IsAdmin})
}

type whoami struct {
	UID       string `json:"uid"`
	Anonymous bool   `json:"anonymous"`
	IsAdmin   bool   `json:"is_admin"`
}

// handleViewers handles GET /v1/viewers (admin only).
func (s *QnAServer) handleViewers(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if id == nil {
		writeServiceError(w, model.ErrNoIdentity)
		return
	}
	if !s.session(id).IsAdmin {
		writeServiceError(w, model.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, s.Presence.Summarize())
}

// requestLang picks the UI language: ?lang= when given, else the server
// default.
func (s *QnAServer) requestLang(r *http.Request) i18n.Lang {
	if v := r.URL.Query().Get("lang"); v != "" {
		return i18n.ParseLang(v)
	}
	return s.lang
}

func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// boardURL is where form posts send the browser back to, keeping ?lang.
func boardURL(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return "/?lang=" + string(i18n.ParseLang(lang))
	}
	return "/"
}

// writeServiceError maps domain errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.Is(err, model.ErrNoIdentity):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
