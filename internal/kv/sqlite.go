package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_scalars (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER
);
CREATE TABLE IF NOT EXISTS kv_list_items (
	key   TEXT NOT NULL,
	seq   INTEGER NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (key, seq)
);
`

// SQLiteStore is the durable single-node backend. Writes are
// last-writer-wins; there is no cross-key transaction, matching the
// guarantees the engine is specified against.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	for _, pragma := range sqlitePragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nowUnix() int64 { return time.Now().Unix() }

func (s *SQLiteStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_scalars WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, nowUnix()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: get: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv_scalars (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, string(raw), expiresAt)
	if err != nil {
		return fmt.Errorf("%w: set: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_scalars WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrUnavailable, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_list_items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	// Narrow with LIKE first, then confirm with a real glob match so
	// '_' in keys is not treated as a wildcard.
	like := strings.NewReplacer("%", `\%`, "_", `\_`, "*", "%").Replace(pattern)
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv_scalars WHERE key LIKE ? ESCAPE '\' AND (expires_at IS NULL OR expires_at > ?)`,
		like, nowUnix())
	if err != nil {
		return nil, fmt.Errorf("%w: keys: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%w: keys: %v", ErrUnavailable, err)
		}
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) ListPush(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_list_items (key, seq, value)
		 VALUES (?, (SELECT COALESCE(MIN(seq), 0) - 1 FROM kv_list_items WHERE key = ?), ?)`,
		key, key, value)
	if err != nil {
		return fmt.Errorf("%w: lpush: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if start < 0 {
		start = 0
	}
	limit := int64(-1)
	if stop >= 0 {
		if stop < start {
			return nil, nil
		}
		limit = stop - start + 1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM kv_list_items WHERE key = ? ORDER BY seq ASC LIMIT ? OFFSET ?`,
		key, limit, start)
	if err != nil {
		return nil, fmt.Errorf("%w: lrange: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var vals []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%w: lrange: %v", ErrUnavailable, err)
		}
		vals = append(vals, v)
	}
	return vals, rows.Err()
}

func (s *SQLiteStore) Incr(ctx context.Context, key string, amount int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: incr: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	var current int64
	var raw string
	live := true
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM kv_scalars WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, nowUnix()).Scan(&raw)
	if err == nil {
		if v, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			current = v
		}
	} else if errors.Is(err, sql.ErrNoRows) {
		live = false
	} else {
		return 0, fmt.Errorf("%w: incr: %v", ErrUnavailable, err)
	}

	current += amount
	update := `ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if !live {
		// Missing or expired: the counter restarts with no expiry.
		update = `ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = NULL`
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO kv_scalars (key, value, expires_at) VALUES (?, ?, NULL) `+update,
		key, strconv.FormatInt(current, 10))
	if err != nil {
		return 0, fmt.Errorf("%w: incr: %v", ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: incr: %v", ErrUnavailable, err)
	}
	return current, nil
}
