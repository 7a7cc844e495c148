package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

//go:embed migrations/001_sessions.sql
var sqliteMigration string

//go:embed migrations/002_session_locks.sql
var sqliteLockMigration string

// SQLite stores sessions as JSON rows in an SQLite database.
type SQLite struct {
	db   *sql.DB
	opts options
}

// NewSQLite opens dsn (a file path, or ":memory:") and applies the schema.
func NewSQLite(dsn string, opts ...Option) (*SQLite, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if dsn != ":memory:" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// A single connection serialises writes and keeps ":memory:" databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	for _, migration := range []string{sqliteMigration, sqliteLockMigration} {
		if _, err := db.Exec(migration); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: migrate sqlite: %w", err)
		}
	}
	return &SQLite{db: db, opts: o}, nil
}

func (s *SQLite) Load(ctx context.Context, id string) (wizard.Session, error) {
	var (
		payload string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM wizard_sessions WHERE id = ?`, id,
	).Scan(&payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return wizard.Session{}, notFound(id)
	}
	if err != nil {
		return wizard.Session{}, fmt.Errorf("store: load session %q: %w", id, err)
	}
	if s.opts.expired(time.Unix(0, updated)) {
		if err := s.Delete(ctx, id); err != nil {
			return wizard.Session{}, err
		}
		return wizard.Session{}, notFound(id)
	}

	var session wizard.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return wizard.Session{}, fmt.Errorf("store: decode session %q: %w", id, err)
	}
	return session, nil
}

func (s *SQLite) Save(ctx context.Context, session wizard.Session) error {
	if err := validateSession(session); err != nil {
		return err
	}
	now := s.opts.now()
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = now
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("store: encode session %q: %w", session.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wizard_sessions (id, wizard, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			wizard = excluded.wizard,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, session.ID, session.Wizard, string(payload), session.CreatedAt.UnixNano(), session.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("store: save session %q: %w", session.ID, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete session %q: %w", id, err)
	}
	return nil
}

// TryLock claims id with a row in wizard_session_locks. An expired row is
// replaced; a live one leaves acquired false.
func (s *SQLite) TryLock(ctx context.Context, id string, ttl time.Duration) (func(), bool, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	now := s.opts.now()
	token := uuid.NewString()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO wizard_session_locks (id, token, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			token = excluded.token,
			expires_at = excluded.expires_at
		WHERE wizard_session_locks.expires_at <= ?
	`, id, token, now.Add(ttl).UnixNano(), now.UnixNano())
	if err != nil {
		return func() {}, false, fmt.Errorf("store: lock session %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return func() {}, false, fmt.Errorf("store: lock session %q: %w", id, err)
	}
	if n == 0 {
		return func() {}, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			_, _ = s.db.ExecContext(context.WithoutCancel(ctx),
				`DELETE FROM wizard_session_locks WHERE id = ? AND token = ?`, id, token)
		})
	}
	return release, true, nil
}

// PurgeExpired removes sessions idle for longer than the TTL and reports how
// many were deleted.
func (s *SQLite) PurgeExpired(ctx context.Context) (int64, error) {
	if s.opts.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.opts.now().Add(-s.opts.ttl).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
