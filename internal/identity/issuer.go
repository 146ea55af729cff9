package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alfredjeanlab/qna/internal/idgen"
	"github.com/alfredjeanlab/qna/internal/model"
)

// DefaultTTL is how long an anonymous identity token stays valid.
const DefaultTTL = 365 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid identity token")
	ErrRevoked      = errors.New("identity is not registered")
)

// Claims is the JWT payload for an identity token. The subject is the UID.
type Claims struct {
	jwt.RegisteredClaims
	Anonymous bool `json:"anon,omitempty"`
}

// Issuer mints and verifies HS256 identity tokens.
type Issuer struct {
	secret   []byte
	ttl      time.Duration
	registry Registry
	now      func() time.Time
}

// NewIssuer returns an Issuer. A nil registry accepts every well-signed
// token.
func NewIssuer(secret []byte, ttl time.Duration, registry Registry) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("identity: token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if registry == nil {
		registry = NoopRegistry{}
	}
	return &Issuer{secret: secret, ttl: ttl, registry: registry, now: time.Now}, nil
}

// TTL returns the token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for id.
func (i *Issuer) Issue(id *model.Identity) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Anonymous: id.Anonymous,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return token, nil
}

// Verify checks the token signature and expiry, then confirms the identity
// is still registered.
func (i *Issuer) Verify(ctx context.Context, token string) (*model.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	ok, err := i.registry.Exists(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("check identity %s: %w", claims.Subject, err)
	}
	if !ok {
		return nil, ErrRevoked
	}

	id := &model.Identity{UID: claims.Subject, Anonymous: claims.Anonymous}
	if claims.IssuedAt != nil {
		id.CreatedAt = claims.IssuedAt.Time.UTC()
	}
	return id, nil
}

// SignInAnonymously creates, registers and signs a fresh anonymous identity.
func (i *Issuer) SignInAnonymously(ctx context.Context) (*model.Identity, string, error) {
	uid, err := idgen.NewIdentityUID()
	if err != nil {
		return nil, "", err
	}
	id := &model.Identity{UID: uid, Anonymous: true, CreatedAt: i.now().UTC().Truncate(time.Second)}
	if err := i.registry.Register(ctx, id, i.ttl); err != nil {
		return nil, "", fmt.Errorf("register identity: %w", err)
	}
	token, err := i.Issue(id)
	if err != nil {
		return nil, "", err
	}
	return id, token, nil
}
