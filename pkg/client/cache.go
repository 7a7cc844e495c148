package client

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-formwizard/pkg/schema"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

type cachedSchema struct {
	schema  schema.Schema
	fetched time.Time
}

// SchemaCache memoises a SchemaFetcher per form key. Failed fetches are not
// cached so hosts can retry.
type SchemaCache struct {
	next wizard.SchemaFetcher
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedSchema
}

// NewSchemaCache wraps next. A zero ttl caches for the life of the process.
func NewSchemaCache(next wizard.SchemaFetcher, ttl time.Duration) *SchemaCache {
	return &SchemaCache{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedSchema),
	}
}

// FetchSchema returns the cached schema or fetches it.
func (c *SchemaCache) FetchSchema(ctx context.Context, formKey string) (schema.Schema, error) {
	c.mu.RLock()
	entry, ok := c.entries[formKey]
	c.mu.RUnlock()
	if ok && (c.ttl <= 0 || c.now().Sub(entry.fetched) < c.ttl) {
		return entry.schema, nil
	}

	s, err := c.next.FetchSchema(ctx, formKey)
	if err != nil {
		return schema.Schema{}, err
	}
	c.mu.Lock()
	c.entries[formKey] = cachedSchema{schema: s, fetched: c.now()}
	c.mu.Unlock()
	return s, nil
}

// Invalidate drops the cached schema for formKey.
func (c *SchemaCache) Invalidate(formKey string) {
	c.mu.Lock()
	delete(c.entries, formKey)
	c.mu.Unlock()
}
