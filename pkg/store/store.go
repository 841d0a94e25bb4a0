// Package store manages persistence for reversteem.
//
// SQLite in WAL mode holds two things: the append-only log of game posts
// ingested from the chain, and a small blob table the replay cache and
// the rating table write to. Redis and an in-memory map are alternative
// blob backends.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reversteem/reversteem/pkg/model"

	_ "modernc.org/sqlite"
)

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// retryOnContention retries fn on transient SQLite errors.
func retryOnContention(ctx context.Context, fn func() error) error {
	return retryOp(ctx, defaultRetryConfig, isTransientSQLiteErr, fn)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id            TEXT PRIMARY KEY,
		author        TEXT NOT NULL,
		permlink      TEXT NOT NULL,
		title         TEXT NOT NULL DEFAULT '',
		json_metadata TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_games_created ON games(created_at);

	CREATE TABLE IF NOT EXISTS replies (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id         TEXT NOT NULL REFERENCES games(id),
		author          TEXT NOT NULL,
		permlink        TEXT NOT NULL,
		parent_author   TEXT NOT NULL DEFAULT '',
		parent_permlink TEXT NOT NULL DEFAULT '',
		json_metadata   TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		UNIQUE (author, permlink)
	);
	CREATE INDEX IF NOT EXISTS idx_replies_game ON replies(game_id, id);

	CREATE TABLE IF NOT EXISTS blobs (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// Games
// ---------------------------------------------------------------------------

// InsertGame records a root post. Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) InsertGame(ctx context.Context, p model.Post) (bool, error) {
	var inserted bool
	err := retryOnContention(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO games (id, author, permlink, title, json_metadata, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			model.GameID(p.Author, p.Permlink), p.Author, p.Permlink, p.Title, p.JSONMetadata,
			p.Created.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		inserted = n > 0
		return err
	})
	return inserted, err
}

// GetGame retrieves a root post by ID.
func (s *Store) GetGame(ctx context.Context, id string) (model.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT author, permlink, title, json_metadata, created_at FROM games WHERE id = ?`, id,
	)
	var p model.Post
	var createdStr string
	if err := row.Scan(&p.Author, &p.Permlink, &p.Title, &p.JSONMetadata, &createdStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, fmt.Errorf("game %s: %w", id, ErrNotFound)
		}
		return model.Post{}, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return model.Post{}, fmt.Errorf("parse created_at for game %s: %w", id, err)
	}
	p.Created = created
	return p, nil
}

// ListGames returns all root posts ordered by creation time.
func (s *Store) ListGames(ctx context.Context) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT author, permlink, title, json_metadata, created_at
		 FROM games ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []model.Post
	for rows.Next() {
		var p model.Post
		var createdStr string
		if err := rows.Scan(&p.Author, &p.Permlink, &p.Title, &p.JSONMetadata, &createdStr); err != nil {
			return nil, err
		}
		p.Created, err = time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for game %s/%s: %w", p.Author, p.Permlink, err)
		}
		games = append(games, p)
	}
	return games, rows.Err()
}

// ---------------------------------------------------------------------------
// Replies
// ---------------------------------------------------------------------------

// InsertReply appends a reply. The log is append-only: a second copy of
// the same author/permlink is ignored, never updated.
func (s *Store) InsertReply(ctx context.Context, gameID string, p model.Post) (bool, error) {
	var inserted bool
	err := retryOnContention(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO replies (game_id, author, permlink, parent_author, parent_permlink, json_metadata, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(author, permlink) DO NOTHING`,
			gameID, p.Author, p.Permlink, p.ParentAuthor, p.ParentPermlink, p.JSONMetadata,
			p.Created.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		inserted = n > 0
		return err
	})
	return inserted, err
}

// ListReplies returns a game's replies in append order. Replay sorts them
// by timestamp itself; append order is only the tie-break.
func (s *Store) ListReplies(ctx context.Context, gameID string) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT author, permlink, parent_author, parent_permlink, json_metadata, created_at
		 FROM replies WHERE game_id = ? ORDER BY id ASC`, gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	author, permlink := splitGameID(gameID)
	var replies []model.Post
	for rows.Next() {
		var p model.Post
		var createdStr string
		if err := rows.Scan(&p.Author, &p.Permlink, &p.ParentAuthor, &p.ParentPermlink,
			&p.JSONMetadata, &createdStr); err != nil {
			return nil, err
		}
		p.Created, err = time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for reply %s/%s: %w", p.Author, p.Permlink, err)
		}
		p.RootAuthor, p.RootPermlink = author, permlink
		replies = append(replies, p)
	}
	return replies, rows.Err()
}

// CountReplies returns the number of replies logged for a game.
func (s *Store) CountReplies(ctx context.Context, gameID string) int64 {
	var count int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM replies WHERE game_id = ?`, gameID,
	).Scan(&count); err != nil {
		return 0
	}
	return count
}

// ResolveGame returns the game a post belongs to: the post itself when it
// is a root, or the game of the logged reply it names.
func (s *Store) ResolveGame(ctx context.Context, author, permlink string) (string, error) {
	id := model.GameID(author, permlink)
	var found string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM games WHERE id = ?`, id).Scan(&found)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT game_id FROM replies WHERE author = ? AND permlink = ?`, author, permlink,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return found, err
}

// ---------------------------------------------------------------------------
// Blobs
// ---------------------------------------------------------------------------

// Get returns the blob stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := retryOnContention(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %s: %w", key, ErrNotFound)
	}
	return value, err
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now,
		)
		return err
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func splitGameID(id string) (author, permlink string) {
	for i := 0; i < len(id); i++ {
		if id[i] == '/' {
			return id[:i], id[i+1:]
		}
	}
	return id, ""
}
