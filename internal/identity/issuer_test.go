package identity

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/qna/internal/model"
)

// memRegistry is a Registry kept in a map.
type memRegistry struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newMemRegistry() *memRegistry { return &memRegistry{ids: make(map[string]bool)} }

func (m *memRegistry) Register(_ context.Context, id *model.Identity, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[id.UID] = true
	return nil
}

func (m *memRegistry) Exists(_ context.Context, uid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[uid], nil
}

func newTestIssuer(t *testing.T, reg Registry) *Issuer {
	t.Helper()
	iss, err := NewIssuer([]byte("test-secret"), time.Hour, reg)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewIssuer(nil, time.Hour, nil); err == nil {
		t.Fatal("expected error for empty secret")
	}
	iss, err := NewIssuer([]byte("s"), 0, nil)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	if iss.TTL() != DefaultTTL {
		t.Fatalf("TTL = %v, want default", iss.TTL())
	}
}

func TestIssuer_SignInAndVerify(t *testing.T) {
	reg := newMemRegistry()
	iss := newTestIssuer(t, reg)
	ctx := context.Background()

	id, token, err := iss.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("SignInAnonymously: %v", err)
	}
	if !strings.HasPrefix(id.UID, "u-") || !id.Anonymous {
		t.Fatalf("unexpected identity %+v", id)
	}
	if ok, _ := reg.Exists(ctx, id.UID); !ok {
		t.Fatal("identity was not registered")
	}

	got, err := iss.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.UID != id.UID || !got.Anonymous || got.CreatedAt.IsZero() {
		t.Fatalf("Verify = %+v, want uid %s", got, id.UID)
	}
}

func TestIssuer_VerifyRejects(t *testing.T) {
	ctx := context.Background()
	reg := newMemRegistry()
	iss := newTestIssuer(t, reg)
	_, token, err := iss.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("SignInAnonymously: %v", err)
	}

	other, _ := NewIssuer([]byte("other-secret"), time.Hour, reg)
	if _, err := other.Verify(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: expected ErrInvalidToken, got %v", err)
	}

	if _, err := iss.Verify(ctx, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: expected ErrInvalidToken, got %v", err)
	}

	// Unregistered identity with a valid signature.
	stray, err := iss.Issue(&model.Identity{UID: "u-stray"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := iss.Verify(ctx, stray); !errors.Is(err, ErrRevoked) {
		t.Errorf("unregistered: expected ErrRevoked, got %v", err)
	}
}

func TestIssuer_VerifyExpired(t *testing.T) {
	iss := newTestIssuer(t, nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return start }

	token, err := iss.Issue(&model.Identity{UID: "u-old"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := iss.Verify(context.Background(), token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	iss.now = func() time.Time { return start.Add(2 * time.Hour) }
	if _, err := iss.Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestRedisRegistry(t *testing.T) {
	url := os.Getenv("QNA_TEST_REDIS_URL")
	if url == "" {
		t.Skip("QNA_TEST_REDIS_URL not set")
	}
	reg, err := NewRedisRegistry(url)
	if err != nil {
		t.Fatalf("NewRedisRegistry: %v", err)
	}
	defer reg.Close()
	ctx := context.Background()
	if err := reg.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	id := &model.Identity{UID: "u-redis-test", Anonymous: true}
	if err := reg.Register(ctx, id, time.Minute); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if ok, err := reg.Exists(ctx, id.UID); err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if err := reg.Revoke(ctx, id.UID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if ok, _ := reg.Exists(ctx, id.UID); ok {
		t.Fatal("identity still exists after Revoke")
	}
}

func TestNewRedisRegistry_BadURL(t *testing.T) {
	if _, err := NewRedisRegistry("http://not-redis"); err == nil {
		t.Fatal("expected error for non-redis URL")
	}
}
