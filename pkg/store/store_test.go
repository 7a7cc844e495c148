package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formwizard/pkg/store"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func sampleSession(updated time.Time) wizard.Session {
	return wizard.Session{
		ID:     "session-1",
		Wizard: "orders_info",
		Record: wizard.Record{
			"orders_type":      "PCS",
			"has_dependents":   false,
			"new_duty_station": map[string]any{"id": "abc"},
		},
		Current:   1,
		Reached:   1,
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

// exerciseStore runs the shared contract against a backend.
func exerciseStore(t *testing.T, s wizard.SessionStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2018, 6, 2, 10, 0, 0, 0, time.UTC)

	_, err := s.Load(ctx, "session-1")
	require.ErrorIs(t, err, wizard.ErrSessionNotFound)

	require.NoError(t, s.Save(ctx, sampleSession(now)))

	got, err := s.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "orders_info", got.Wizard)
	assert.Equal(t, 1, got.Current)
	assert.Equal(t, "PCS", got.Record["orders_type"])
	assert.Equal(t, false, got.Record["has_dependents"])
	assert.Equal(t, map[string]any{"id": "abc"}, got.Record["new_duty_station"])
	assert.True(t, got.UpdatedAt.Equal(now))

	updated := sampleSession(now.Add(time.Minute))
	updated.Completed = true
	require.NoError(t, s.Save(ctx, updated))
	got, err = s.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, got.Completed)

	require.NoError(t, s.Delete(ctx, "session-1"))
	_, err = s.Load(ctx, "session-1")
	require.ErrorIs(t, err, wizard.ErrSessionNotFound)

	require.Error(t, s.Save(ctx, wizard.Session{}))
}

func TestMemoryStore(t *testing.T) {
	clk := &clock{now: time.Date(2018, 6, 2, 10, 5, 0, 0, time.UTC)}
	exerciseStore(t, store.NewMemory(store.WithClock(clk.Now)))
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2018, 6, 2, 10, 0, 0, 0, time.UTC)
	clk := &clock{now: start}
	mem := store.NewMemory(store.WithTTL(time.Hour), store.WithClock(clk.Now))

	require.NoError(t, mem.Save(ctx, sampleSession(start)))
	clk.now = start.Add(2 * time.Hour)

	_, err := mem.Load(ctx, "session-1")
	require.ErrorIs(t, err, wizard.ErrSessionNotFound)
	assert.Equal(t, 0, mem.Len())
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory(store.WithTTL(0))
	session := sampleSession(time.Now())
	require.NoError(t, mem.Save(ctx, session))

	session.Record["orders_type"] = "SEPARATION"
	got, err := mem.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "PCS", got.Record["orders_type"])
}

func TestSQLiteStore(t *testing.T) {
	clk := &clock{now: time.Date(2018, 6, 2, 10, 5, 0, 0, time.UTC)}
	db, err := store.NewSQLite(filepath.Join(t.TempDir(), "sessions.db"), store.WithClock(clk.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	exerciseStore(t, db)
}

func TestSQLiteStoreExpiry(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2018, 6, 2, 10, 0, 0, 0, time.UTC)
	clk := &clock{now: start}
	db, err := store.NewSQLite(":memory:", store.WithTTL(time.Hour), store.WithClock(clk.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	old := sampleSession(start)
	fresh := sampleSession(start.Add(90 * time.Minute))
	fresh.ID = "session-2"
	require.NoError(t, db.Save(ctx, old))
	require.NoError(t, db.Save(ctx, fresh))

	clk.now = start.Add(2 * time.Hour)
	purged, err := db.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	_, err = db.Load(ctx, "session-1")
	require.ErrorIs(t, err, wizard.ErrSessionNotFound)
	_, err = db.Load(ctx, "session-2")
	require.NoError(t, err)

	clk.now = start.Add(5 * time.Hour)
	_, err = db.Load(ctx, "session-2")
	require.ErrorIs(t, err, wizard.ErrSessionNotFound)
}

func newTestRedis(t *testing.T, ttl time.Duration) (*store.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.NewRedis(client, store.RedisConfig{Prefix: "test:", TTL: ttl}), mr
}

func TestRedisStore(t *testing.T) {
	rdb, _ := newTestRedis(t, 0)
	exerciseStore(t, rdb)
}

func TestRedisStoreKeysAndTTL(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newTestRedis(t, time.Hour)

	require.NoError(t, rdb.Save(ctx, sampleSession(time.Now())))
	assert.Contains(t, mr.Keys(), "test:session-1")
	assert.Equal(t, time.Hour, mr.TTL("test:session-1"))

	mr.FastForward(2 * time.Hour)
	_, err := rdb.Load(ctx, "session-1")
	require.ErrorIs(t, err, wizard.ErrSessionNotFound)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	mem, err := store.Open(ctx, store.Config{})
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, mem)

	db, err := store.Open(ctx, store.Config{Driver: "sqlite"})
	require.NoError(t, err)
	assert.IsType(t, &store.SQLite{}, db)
	require.NoError(t, db.Close())

	mr := miniredis.RunT(t)
	rdb, err := store.Open(ctx, store.Config{Driver: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &store.Redis{}, rdb)
	require.NoError(t, rdb.Close())

	_, err = store.Open(ctx, store.Config{Driver: "etcd"})
	require.Error(t, err)
}
