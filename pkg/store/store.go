// Package store persists wizard sessions between requests. Memory, SQLite and
// Redis backends share the wizard.SessionStore contract; sessions idle for
// longer than the configured TTL are reported as wizard.ErrSessionNotFound.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// DefaultTTL bounds how long an idle session is kept.
const DefaultTTL = 24 * time.Hour

// Store is a closable session store that can claim sessions.
type Store interface {
	wizard.SessionStore
	Locker
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver    string
	DSN       string
	RedisAddr string
	RedisDB   int
	Prefix    string
	TTL       time.Duration
}

// Open constructs the backend named by cfg.Driver. Redis connections are
// verified with PING.
func Open(ctx context.Context, cfg Config) (Store, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		return NewMemory(WithTTL(ttl)), nil
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		db, err := NewSQLite(dsn, WithTTL(ttl))
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverRedis:
		rdb, err := DialRedis(ctx, RedisConfig{
			Address: cfg.RedisAddr,
			DB:      cfg.RedisDB,
			Prefix:  cfg.Prefix,
			TTL:     ttl,
		})
		if err != nil {
			return nil, err
		}
		return rdb, nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// Option customises the memory and SQLite stores.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

func defaultOptions() options {
	return options{ttl: DefaultTTL, now: time.Now}
}

// WithTTL sets the idle expiry. Zero or negative disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func (o options) expired(updated time.Time) bool {
	return o.ttl > 0 && o.now().Sub(updated) > o.ttl
}

func validateSession(session wizard.Session) error {
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("store: session id is required")
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: %q", wizard.ErrSessionNotFound, id)
}
