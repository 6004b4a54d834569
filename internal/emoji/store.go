package emoji

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	cerrors "github.com/mikequentel/threadcomposer/internal/errors"
	"github.com/mikequentel/threadcomposer/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS custom_emojis (
	instance          TEXT    NOT NULL,
	shortcode         TEXT    NOT NULL,
	url               TEXT    NOT NULL,
	static_url        TEXT    NOT NULL,
	visible_in_picker INTEGER NOT NULL,
	category          TEXT    NOT NULL DEFAULT '',
	fetched_at        TEXT    NOT NULL,
	PRIMARY KEY (instance, shortcode)
);`

// Store caches custom emojis per instance. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the cache at path. ":memory:" works
// for tests.
func OpenStore(path string) (*Store, error) {
	const op cerrors.Op = "emoji.OpenStore"
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, cerrors.E(op, cerrors.KindStorage, err)
	}
	// one connection: ":memory:" databases are per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, cerrors.E(op, cerrors.KindStorage, "create schema", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Replace swaps the cached set for instance with emojis.
func (s *Store) Replace(ctx context.Context, instance string, emojis []model.EmojiRef) error {
	const op cerrors.Op = "emoji.Store.Replace"
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cerrors.E(op, cerrors.KindStorage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_emojis WHERE instance = ?`, instance); err != nil {
		return cerrors.E(op, cerrors.KindStorage, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range emojis {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO custom_emojis
			 (instance, shortcode, url, static_url, visible_in_picker, category, fetched_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			instance, e.Shortcode, e.URL, e.StaticURL, e.VisibleInPicker, e.Category, now); err != nil {
			return cerrors.E(op, cerrors.KindStorage, "insert "+e.Shortcode, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return cerrors.E(op, cerrors.KindStorage, err)
	}
	return nil
}

// List returns the cached emojis for instance ordered by shortcode.
func (s *Store) List(ctx context.Context, instance string) ([]model.EmojiRef, error) {
	const op cerrors.Op = "emoji.Store.List"
	rows, err := s.db.QueryContext(ctx, `
SELECT shortcode, url, static_url, visible_in_picker, category
FROM custom_emojis
WHERE instance = ?
ORDER BY shortcode;
`, instance)
	if err != nil {
		return nil, cerrors.E(op, cerrors.KindStorage, err)
	}
	defer rows.Close()

	var out []model.EmojiRef
	for rows.Next() {
		var e model.EmojiRef
		if err := rows.Scan(&e.Shortcode, &e.URL, &e.StaticURL, &e.VisibleInPicker, &e.Category); err != nil {
			return nil, cerrors.E(op, cerrors.KindStorage, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.E(op, cerrors.KindStorage, err)
	}
	return out, nil
}
