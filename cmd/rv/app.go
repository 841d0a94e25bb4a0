package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/reversteem/reversteem/pkg/cache"
	"github.com/reversteem/reversteem/pkg/config"
	"github.com/reversteem/reversteem/pkg/logging"
	"github.com/reversteem/reversteem/pkg/model"
	"github.com/reversteem/reversteem/pkg/replay"
	"github.com/reversteem/reversteem/pkg/store"
)

// app holds shared state for all CLI subcommands.
type app struct {
	cfg    config.Config
	store  *store.Store
	blobs  store.BlobStore // nil when caching is off
	engine *replay.Engine
	cache  *cache.Cache
	log    zerolog.Logger
}

// newApp loads configuration, opens the database and picks the blob
// backend the replay cache and rating table persist through.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Log.Level, cfg.Log.JSON)

	if dir := filepath.Dir(cfg.Database); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	s, err := store.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", cfg.Database, err)
	}
	a, err := newAppWith(cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	return a, nil
}

// newAppWith wires an app around an open store.
func newAppWith(cfg config.Config, s *store.Store) (*app, error) {
	a := &app{cfg: cfg, store: s, log: logging.Component("rv")}

	switch cfg.Cache.Backend {
	case config.CacheSQLite:
		a.blobs = s
	case config.CacheMemory:
		a.blobs = store.NewMemoryStore()
	case config.CacheRedis:
		rcfg := store.DefaultRedisConfig(cfg.Cache.Redis.Addr)
		rcfg.Password = cfg.Cache.Redis.Password
		rcfg.DB = cfg.Cache.Redis.DB
		rcfg.Prefix = cfg.Cache.Redis.Prefix
		r, err := store.NewRedisStore(rcfg)
		if err != nil {
			return nil, err
		}
		a.blobs = r
	case config.CacheNone:
	}

	a.engine = replay.New(
		replay.WithLimits(cfg.Timeout),
		replay.WithLogger(logging.Component("replay")),
	)
	a.cache = cache.New(a.blobs,
		cache.WithEngine(a.engine),
		cache.WithLogger(logging.Component("cache")),
	)
	return a, nil
}

// Close releases the database and any separate blob backend.
func (a *app) Close() {
	if a.blobs != nil && a.blobs != store.BlobStore(a.store) {
		a.blobs.Close()
	}
	a.store.Close()
}

// ratingStore is where the rating table lives. Without a cache backend the
// table still persists in SQLite.
func (a *app) ratingStore() store.BlobStore {
	if a.blobs != nil {
		return a.blobs
	}
	return a.store
}

// loadGame reads a game's root and decoded child events from the log.
func (a *app) loadGame(ctx context.Context, id string) (model.GameRecord, []model.ChildEvent, error) {
	post, err := a.store.GetGame(ctx, id)
	if err != nil {
		return model.GameRecord{}, nil, err
	}
	replies, err := a.store.ListReplies(ctx, id)
	if err != nil {
		return model.GameRecord{}, nil, fmt.Errorf("list replies: %w", err)
	}
	return replay.DecodeRoot(post), replay.DecodeChildren(replies), nil
}

// gameState returns a game's derived state through the cache.
func (a *app) gameState(ctx context.Context, id string) (model.DerivedState, error) {
	root, children, err := a.loadGame(ctx, id)
	if err != nil {
		return model.DerivedState{}, err
	}
	return a.cache.GetOrCompute(ctx, id, root, children), nil
}

// gameSummary is one row of `rv games` and `rv watch` output.
type gameSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Black  string `json:"black_player"`
	White  string `json:"white_player,omitempty"`
	Status string `json:"status"`
	Moves  int    `json:"applied_moves"`
	Turn   string `json:"current_player"`
	Score  string `json:"score"`
}

func summarize(id string, st model.DerivedState) gameSummary {
	return gameSummary{
		ID:     id,
		Title:  st.Title,
		Black:  st.Black,
		White:  st.White,
		Status: replay.Status(st),
		Moves:  st.AppliedMoves,
		Turn:   st.Turn.String(),
		Score:  fmt.Sprintf("%d-%d", st.Score.Black, st.Score.White),
	}
}

func printSummary(s gameSummary) {
	white := s.White
	if white == "" {
		white = "?"
	}
	fmt.Printf("%-32s %s vs %s  moves=%d  %s  [%s]\n", s.ID, s.Black, white, s.Moves, s.Score, s.Status)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
