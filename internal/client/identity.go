package client

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/qna/internal/identity"
	"github.com/alfredjeanlab/qna/internal/model"
)

// Signer obtains a fresh anonymous token. HTTPClient implements it.
type Signer interface {
	SignInAnonymously(ctx context.Context) (*AnonymousToken, error)
}

// tokenSetter is implemented by both transports.
type tokenSetter interface {
	SetToken(token string)
}

// IdentityProvider is the CLI's identity provider. The current identity is
// whatever the server says the stored token belongs to; signing in asks the
// server for a new anonymous token, which is persisted through save and
// installed on the API client.
type IdentityProvider struct {
	api    Client
	signer Signer
	save   func(token string) error
}

var _ identity.Provider = (*IdentityProvider)(nil)

// NewIdentityProvider returns a provider. save may be nil when the token
// should live only for this process.
func NewIdentityProvider(api Client, signer Signer, save func(token string) error) *IdentityProvider {
	return &IdentityProvider{api: api, signer: signer, save: save}
}

// Current returns nil, nil when the server does not recognise the caller.
func (p *IdentityProvider) Current(ctx context.Context) (*model.Identity, error) {
	w, err := p.api.Whoami(ctx)
	if err != nil {
		if IsUnauthorized(err) || IsUnauthenticated(err) {
			return nil, nil
		}
		return nil, err
	}
	return &model.Identity{UID: w.UID, Anonymous: w.Anonymous}, nil
}

func (p *IdentityProvider) SignInAnonymously(ctx context.Context) (*model.Identity, error) {
	tok, err := p.signer.SignInAnonymously(ctx)
	if err != nil {
		return nil, err
	}
	if p.save != nil {
		if err := p.save(tok.Token); err != nil {
			return nil, fmt.Errorf("saving token: %w", err)
		}
	}
	for _, c := range []any{p.api, p.signer} {
		if ts, ok := c.(tokenSetter); ok {
			ts.SetToken(tok.Token)
		}
	}
	return &model.Identity{UID: tok.UID, Anonymous: true, CreatedAt: time.Now().UTC()}, nil
}
