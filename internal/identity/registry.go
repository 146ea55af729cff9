package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alfredjeanlab/qna/internal/model"
)

// Registry records issued identities so tokens can be checked against a
// live record.
type Registry interface {
	Register(ctx context.Context, id *model.Identity, ttl time.Duration) error
	Exists(ctx context.Context, uid string) (bool, error)
}

// NoopRegistry is used when Redis is not configured: nothing is stored and
// every identity exists.
type NoopRegistry struct{}

func (NoopRegistry) Register(context.Context, *model.Identity, time.Duration) error { return nil }

func (NoopRegistry) Exists(context.Context, string) (bool, error) { return true, nil }

const identityKeyPrefix = "qna:identity:"

// RedisRegistry keeps one key per identity. Keys expire with the token, so
// deleting a key revokes the identity early.
type RedisRegistry struct {
	rdb *redis.Client
}

// NewRedisRegistry connects to the Redis server at url
// (redis://[:password@]host:port/db).
func NewRedisRegistry(url string) (*RedisRegistry, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisRegistry{rdb: redis.NewClient(opt)}, nil
}

// Ping checks connectivity.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisRegistry) Register(ctx context.Context, id *model.Identity, ttl time.Duration) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	return r.rdb.Set(ctx, identityKeyPrefix+id.UID, data, ttl).Err()
}

func (r *RedisRegistry) Exists(ctx context.Context, uid string) (bool, error) {
	n, err := r.rdb.Exists(ctx, identityKeyPrefix+uid).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Revoke deletes the identity record; tokens for uid stop verifying.
func (r *RedisRegistry) Revoke(ctx context.Context, uid string) error {
	return r.rdb.Del(ctx, identityKeyPrefix+uid).Err()
}

func (r *RedisRegistry) Close() error {
	return r.rdb.Close()
}
