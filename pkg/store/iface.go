// iface.go defines the persistence interfaces.
//
// BlobStore is the narrow key-value contract the cache and the rating
// table persist through; every backend (memory, SQLite, Redis) implements
// it and owns its own locking. LogStore is the append-only record log the
// CLI ingests into and replays from. The concrete *Store implements both.
package store

import (
	"context"
	"errors"

	"github.com/reversteem/reversteem/pkg/model"
)

// ErrNotFound is returned when a key, game or record does not exist.
var ErrNotFound = errors.New("not found")

// BlobStore is a get/set-by-string-key byte store, safe for concurrent
// use. Last write wins.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// LogStore is the append-only log of game posts.
type LogStore interface {
	Close() error

	// --- Games ---

	// InsertGame records a root post. Returns false if it was already known.
	InsertGame(ctx context.Context, p model.Post) (bool, error)

	// GetGame retrieves a root post by "author/permlink".
	GetGame(ctx context.Context, id string) (model.Post, error)

	// ListGames returns all root posts ordered by creation time.
	ListGames(ctx context.Context) ([]model.Post, error)

	// --- Replies ---

	// InsertReply appends a reply to a game's log. Returns false if a
	// reply with the same author/permlink already exists.
	InsertReply(ctx context.Context, gameID string, p model.Post) (bool, error)

	// ListReplies returns a game's replies in the order they were appended.
	ListReplies(ctx context.Context, gameID string) ([]model.Post, error)

	// CountReplies returns the number of replies in a game's log.
	CountReplies(ctx context.Context, gameID string) int64

	// ResolveGame maps any post in a game's tree to the game ID.
	ResolveGame(ctx context.Context, author, permlink string) (string, error)
}

// Compile-time checks.
var (
	_ LogStore  = (*Store)(nil)
	_ BlobStore = (*Store)(nil)
	_ BlobStore = (*MemoryStore)(nil)
	_ BlobStore = (*RedisStore)(nil)
)
