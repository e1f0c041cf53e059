// Package localstore is the on-device persisted cache: one snapshot row per
// collection plus a small metadata table holding the sync watermark and auth
// tokens. Reads never fail upward; a missing or malformed payload is a
// cache miss, logged and returned as empty.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/sultumov/allergyTracker/internal/client/localstore/migrations"
	"github.com/sultumov/allergyTracker/internal/logging"
)

const (
	keyLastSyncTime = "lastSyncTime"
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
	keyUserID       = "userId"
)

// Store wraps the cache database. Construct it once at sign-in and Close it
// on sign-out; nothing in this package holds process-wide state.
type Store struct {
	db  *sql.DB
	log logging.Logger

	// one lock per collection name so unrelated collections do not
	// serialize against each other
	locks sync.Map
}

// Open opens (creating if needed) the cache database at dsn and applies
// migrations. Use ":memory:" style DSNs in tests.
func Open(ctx context.Context, dsn string, log logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating cache db: %w", err)
	}

	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Store{db: db, log: log}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) lockFor(collection string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(collection, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// readRaw returns the persisted snapshot payload for a collection, or nil if
// none exists.
func (s *Store) readRaw(ctx context.Context, collection string) []byte {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM cache WHERE key = ?`, collection).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.log.Warn(ctx, "cache read failed, treating as miss", "collection", collection, "error", err)
		return nil
	}
	return payload
}

// writeRaw atomically replaces the persisted snapshot for a collection.
func (s *Store) writeRaw(ctx context.Context, collection string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache (key, payload) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET payload = excluded.payload`,
		collection, payload)
	if err != nil {
		return fmt.Errorf("cache write for %s: %w", collection, err)
	}
	return nil
}

// Clear removes a collection's snapshot entirely.
func (s *Store) Clear(ctx context.Context, collection string) error {
	mu := s.lockFor(collection)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, collection); err != nil {
		return fmt.Errorf("cache clear for %s: %w", collection, err)
	}
	return nil
}

// GetWatermark returns the last successful incremental sync time in epoch
// milliseconds, or 0 when unset or unreadable.
func (s *Store) GetWatermark(ctx context.Context) int64 {
	v := s.getMeta(ctx, keyLastSyncTime)
	if v == "" {
		return 0
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		s.log.Warn(ctx, "malformed watermark, using 0", "value", v)
		return 0
	}
	return ts
}

// SetWatermark persists the incremental sync watermark.
func (s *Store) SetWatermark(ctx context.Context, ts int64) error {
	return s.setMeta(ctx, keyLastSyncTime, strconv.FormatInt(ts, 10))
}

// Tokens returns the persisted access and refresh tokens, empty when signed
// out.
func (s *Store) Tokens(ctx context.Context) (access, refresh string) {
	return s.getMeta(ctx, keyAccessToken), s.getMeta(ctx, keyRefreshToken)
}

// SetTokens persists the auth token pair.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	if err := s.setMeta(ctx, keyAccessToken, access); err != nil {
		return err
	}
	return s.setMeta(ctx, keyRefreshToken, refresh)
}

// UserID returns the signed-in user id, empty when signed out.
func (s *Store) UserID(ctx context.Context) string {
	return s.getMeta(ctx, keyUserID)
}

func (s *Store) SetUserID(ctx context.Context, id string) error {
	return s.setMeta(ctx, keyUserID, id)
}

// ClearSession drops tokens, user id and the watermark, keeping cached
// collections. Used on sign-out.
func (s *Store) ClearSession(ctx context.Context) error {
	for _, k := range []string{keyAccessToken, keyRefreshToken, keyUserID, keyLastSyncTime} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, k); err != nil {
			return fmt.Errorf("clearing session key %s: %w", k, err)
		}
	}
	return nil
}

func (s *Store) getMeta(ctx context.Context, key string) string {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return ""
	}
	if err != nil {
		s.log.Warn(ctx, "metadata read failed", "key", key, "error", err)
		return ""
	}
	return v
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("metadata write for %s: %w", key, err)
	}
	return nil
}
