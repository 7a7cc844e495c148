package store

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Memory keeps sessions in process memory.
type Memory struct {
	mu       sync.RWMutex
	opts     options
	sessions map[string]wizard.Session
	locks    *LocalLocker
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	locks := NewLocalLocker()
	locks.now = o.now
	return &Memory{opts: o, sessions: make(map[string]wizard.Session), locks: locks}
}

// TryLock claims id in process memory.
func (m *Memory) TryLock(ctx context.Context, id string, ttl time.Duration) (func(), bool, error) {
	return m.locks.TryLock(ctx, id, ttl)
}

func (m *Memory) Load(_ context.Context, id string) (wizard.Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return wizard.Session{}, notFound(id)
	}
	if m.opts.expired(session.UpdatedAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return wizard.Session{}, notFound(id)
	}
	return session.Clone(), nil
}

func (m *Memory) Save(_ context.Context, session wizard.Session) error {
	if err := validateSession(session); err != nil {
		return err
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = m.opts.now()
	}
	m.mu.Lock()
	m.sessions[session.ID] = session.Clone()
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Memory) Close() error { return nil }
