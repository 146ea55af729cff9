package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/alfredjeanlab/qna/internal/identity"
	"github.com/alfredjeanlab/qna/internal/model"
)

// TokenCookie carries the identity token for browser viewers.
const TokenCookie = "qna_token"

type identityKey struct{}

// withIdentity returns ctx carrying the verified identity.
func withIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// identityFrom returns the verified identity in ctx, or nil.
func identityFrom(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(identityKey{}).(*model.Identity)
	return id
}

// bearerToken extracts the token from an "Authorization: Bearer" value.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return tok, tok != ""
}

// IdentityMiddleware verifies the caller's identity token, taken from the
// Authorization header or the qna_token cookie, and stores the identity in
// the request context. Requests without a token pass through anonymous;
// handlers decide whether they need one. A bad bearer token is rejected
// outright, while a bad cookie is ignored so the page can issue a new one.
func IdentityMiddleware(issuer *identity.Issuer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			tok, ok := bearerToken(auth)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid authorization scheme")
				return
			}
			id, err := issuer.Verify(r.Context(), tok)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
			return
		}

		if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
			if id, err := issuer.Verify(r.Context(), c.Value); err == nil {
				r = r.WithContext(withIdentity(r.Context(), id))
			} else {
				slog.Debug("ignoring invalid identity cookie", "error", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RecoveryMiddleware catches panics in downstream handlers, logs the stack
// trace, and answers 500 instead of dropping the connection.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered in HTTP handler",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging. It forwards
// Flush so SSE keeps working behind the logger.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// LoggingMiddleware logs the method, path, status and duration of every
// request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		}
		if rec.status >= http.StatusInternalServerError {
			slog.Error("http request completed", attrs...)
		} else {
			slog.Debug("http request completed", attrs...)
		}
	})
}
