package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a session claim survives a request that
// never releases it.
const DefaultLockTTL = time.Minute

// Locker claims a session so that one request at a time resumes and mutates
// it. TryLock never blocks: acquired is false while another claim is live.
// The returned release is safe to call more than once and only drops the
// claim it created.
type Locker interface {
	TryLock(ctx context.Context, id string, ttl time.Duration) (release func(), acquired bool, err error)
}

type claim struct {
	token   string
	expires time.Time
}

// LocalLocker is an in-process Locker. Expired claims are taken over.
type LocalLocker struct {
	mu     sync.Mutex
	now    func() time.Time
	claims map[string]claim
}

// NewLocalLocker returns an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{now: time.Now, claims: make(map[string]claim)}
}

func (l *LocalLocker) TryLock(_ context.Context, id string, ttl time.Duration) (func(), bool, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.claims[id]; ok && now.Before(held.expires) {
		return func() {}, false, nil
	}
	token := uuid.NewString()
	l.claims[id] = claim{token: token, expires: now.Add(ttl)}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			if held, ok := l.claims[id]; ok && held.token == token {
				delete(l.claims, id)
			}
			l.mu.Unlock()
		})
	}
	return release, true, nil
}
