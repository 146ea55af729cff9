// Package identity resolves the viewer's stable anonymous identity and
// issues the signed tokens that carry it between client and server.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/qna/internal/model"
)

// Provider is the external identity provider as seen by a viewer.
type Provider interface {
	// Current returns the identity already established for this viewer, or
	// nil (and no error) when there is none.
	Current(ctx context.Context) (*model.Identity, error)
	// SignInAnonymously establishes a new anonymous identity.
	SignInAnonymously(ctx context.Context) (*model.Identity, error)
}

// Resolver caches the viewer's identity for the life of the process.
type Resolver struct {
	provider Provider
	logger   *slog.Logger

	mu     sync.Mutex
	cached *model.Identity
}

// NewResolver returns a Resolver backed by p. A nil logger uses slog.Default.
func NewResolver(p Provider, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{provider: p, logger: logger}
}

// Resolve returns the cached identity without touching the provider, or
// establishes one: the provider's current identity if it has one, else a new
// anonymous identity. Concurrent callers share a single resolution.
// Failures are *model.IdentityError.
func (r *Resolver) Resolve(ctx context.Context) (*model.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil {
		return r.cached, nil
	}

	id, err := r.provider.Current(ctx)
	if err != nil {
		return nil, &model.IdentityError{Op: "current", Err: err}
	}
	if id == nil {
		id, err = r.provider.SignInAnonymously(ctx)
		if err != nil {
			return nil, &model.IdentityError{Op: "sign in", Err: err}
		}
		if id == nil || id.UID == "" {
			return nil, &model.IdentityError{Op: "sign in", Err: errors.New("provider returned no identity")}
		}
		r.logger.Info("identity: signed in anonymously", "uid", id.UID)
	}
	r.cached = id
	return id, nil
}

// Session resolves the identity and derives the viewer session. When the
// identity cannot be resolved the viewer is treated as non-admin.
func (r *Resolver) Session(ctx context.Context, adminUID string) model.ViewerSession {
	id, err := r.Resolve(ctx)
	if err != nil {
		r.logger.Warn("identity: resolve failed, continuing as non-admin", "error", err)
		return model.NewViewerSession(nil, adminUID)
	}
	return model.NewViewerSession(id, adminUID)
}
