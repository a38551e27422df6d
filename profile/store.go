package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/formfill/dbopen"
)

// Schema creates the profile table. position keeps insertion order, which
// is the match precedence.
const Schema = `
CREATE TABLE IF NOT EXISTS profile_fields (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	position   INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_profile_fields_position ON profile_fields(position);
`

// ErrEmptyKey is returned when storing an entry whose key is blank.
var ErrEmptyKey = errors.New("profile: empty key")

// Store is the profile database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the profile database at path and applies the
// schema. The caller blank-imports the SQLite driver.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	all := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)
	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, fmt.Errorf("profile: open: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Load returns the whole profile in position order.
func (s *Store) Load(ctx context.Context) (Profile, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT key, value FROM profile_fields ORDER BY position, key`)
	if err != nil {
		return nil, fmt.Errorf("profile: load: %w", err)
	}
	defer rows.Close()

	var p Profile
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("profile: load: %w", err)
		}
		p = append(p, e)
	}
	return p, rows.Err()
}

// Get returns one entry, or nil when the key is not stored.
func (s *Store) Get(ctx context.Context, key string) (*Entry, error) {
	e := &Entry{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT key, value FROM profile_fields WHERE key = ?`, key).Scan(&e.Key, &e.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get %q: %w", key, err)
	}
	return e, nil
}

// Upsert stores entries. Existing keys keep their position and take the
// new value; new keys are appended after the current last position, in
// the given order.
func (s *Store) Upsert(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if strings.TrimSpace(e.Key) == "" {
			return ErrEmptyKey
		}
	}
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		var next int64
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(position), -1) + 1 FROM profile_fields`).Scan(&next); err != nil {
			return fmt.Errorf("profile: upsert: %w", err)
		}
		for _, e := range entries {
			res, err := tx.ExecContext(ctx, `
				UPDATE profile_fields SET value = ?, updated_at = ? WHERE key = ?`,
				e.Value, now, strings.TrimSpace(e.Key))
			if err != nil {
				return fmt.Errorf("profile: upsert %q: %w", e.Key, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO profile_fields (key, value, position, updated_at) VALUES (?,?,?,?)`,
				strings.TrimSpace(e.Key), e.Value, next, now); err != nil {
				return fmt.Errorf("profile: upsert %q: %w", e.Key, err)
			}
			next++
		}
		return nil
	})
}

// Replace discards the stored profile and stores p in its order.
func (s *Store) Replace(ctx context.Context, p Profile) error {
	for _, e := range p {
		if strings.TrimSpace(e.Key) == "" {
			return ErrEmptyKey
		}
	}
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM profile_fields`); err != nil {
			return fmt.Errorf("profile: replace: %w", err)
		}
		for i, e := range p {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO profile_fields (key, value, position, updated_at) VALUES (?,?,?,?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				strings.TrimSpace(e.Key), e.Value, i, now); err != nil {
				return fmt.Errorf("profile: replace %q: %w", e.Key, err)
			}
		}
		return nil
	})
}

// Delete removes one key. It reports whether the key existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM profile_fields WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("profile: delete %q: %w", key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Clear removes every entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM profile_fields`)
	if err != nil {
		return 0, fmt.Errorf("profile: clear: %w", err)
	}
	return res.RowsAffected()
}
