package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "formwizard:session:"

// RedisClient is the subset of go-redis used by Redis.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Redis stores sessions as JSON strings; the TTL is refreshed on every save.
type Redis struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// DialRedis connects to cfg.Address and verifies the connection.
func DialRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Address == "" {
		return nil, errors.New("store: redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: redis ping %s: %w", cfg.Address, err)
	}
	return NewRedis(client, cfg), nil
}

// NewRedis wraps an existing client.
func NewRedis(client RedisClient, cfg RedisConfig) *Redis {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix, ttl: cfg.TTL}
}

func (r *Redis) Load(ctx context.Context, id string) (wizard.Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return wizard.Session{}, notFound(id)
	}
	if err != nil {
		return wizard.Session{}, fmt.Errorf("store: load session %q: %w", id, err)
	}
	var session wizard.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return wizard.Session{}, fmt.Errorf("store: decode session %q: %w", id, err)
	}
	return session, nil
}

func (r *Redis) Save(ctx context.Context, session wizard.Session) error {
	if err := validateSession(session); err != nil {
		return err
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now()
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("store: encode session %q: %w", session.ID, err)
	}
	if err := r.client.Set(ctx, r.key(session.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("store: save session %q: %w", session.ID, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("store: delete session %q: %w", id, err)
	}
	return nil
}

// releaseScript deletes a lock key only while it still holds the caller's
// token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

// TryLock claims id with SET NX and a TTL under the "lock:" sub-prefix.
func (r *Redis) TryLock(ctx context.Context, id string, ttl time.Duration) (func(), bool, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	key := r.lockKey(id)
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("store: lock session %q: %w", id, err)
	}
	if !ok {
		return func() {}, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			_ = r.client.Eval(context.WithoutCancel(ctx), releaseScript, []string{key}, token).Err()
		})
	}
	return release, true, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(id string) string {
	return r.prefix + id
}

func (r *Redis) lockKey(id string) string {
	return r.prefix + "lock:" + id
}
