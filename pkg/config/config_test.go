package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formwizard/pkg/config"
	"github.com/goliatone/go-formwizard/pkg/store"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/wizards", cfg.Server.BasePath)
	assert.Equal(t, store.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, store.DefaultTTL, cfg.Store.TTL)
	assert.Equal(t, []string{"definitions"}, cfg.Definitions)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "formwizard.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  addr: ":9090"
store:
  driver: sqlite
  dsn: sessions.db
  ttl: 2h
api:
  base_url: http://moves.local/internal
  search:
    new_duty_station: /duty_stations
definitions:
  - forms/orders.yaml
log:
  level: debug
`), 0o600))

	t.Setenv("FORMWIZARD_STORE_DRIVER", "redis")
	t.Setenv("FORMWIZARD_STORE_REDIS_ADDR", "redis:6379")

	cfg, err := config.Load(config.New(), file)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "http://moves.local/internal", cfg.API.BaseURL)
	assert.Equal(t, map[string]string{"new_duty_station": "/duty_stations"}, cfg.API.Search)
	assert.Equal(t, []string{"forms/orders.yaml"}, cfg.Definitions)

	opts := cfg.StoreOptions()
	assert.Equal(t, store.DriverRedis, opts.Driver)
	assert.Equal(t, "redis:6379", opts.RedisAddr)
	assert.Equal(t, store.DefaultRedisPrefix, opts.Prefix)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FORMWIZARD_STORE_DRIVER", "postgres")
	_, err := config.Load(config.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")

	_, err = config.Load(config.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	_, err := config.ParseLevel("verbose")
	assert.Error(t, err)
	level, err := config.ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, "WARN", level.String())
}
