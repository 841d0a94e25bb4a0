// Package cache memoizes replays by a fingerprint of the game's event set.
//
// The cache only ever saves work: a lookup that fails for any reason
// (missing entry, store error, undecodable blob) falls through to a fresh
// replay, and a Cache with no store is plain replay.
package cache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/reversteem/reversteem/pkg/metrics"
	"github.com/reversteem/reversteem/pkg/model"
	"github.com/reversteem/reversteem/pkg/replay"
	"github.com/reversteem/reversteem/pkg/store"
)

// KeyPrefix namespaces cache entries in the blob store.
const KeyPrefix = "reversteem_cache_"

// Key returns the blob key for a game's cache entry.
func Key(gameID string) string { return KeyPrefix + gameID }

// Replayer computes a game's state from its log.
type Replayer interface {
	ComputeState(root model.GameRecord, children []model.ChildEvent) model.DerivedState
}

// Cache wraps a Replayer with a fingerprint-validated store.
type Cache struct {
	store  store.BlobStore
	engine Replayer
	log    zerolog.Logger
	group  singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithEngine replaces the default replay engine.
func WithEngine(r Replayer) Option {
	return func(c *Cache) { c.engine = r }
}

// WithLogger sets the cache logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// New returns a Cache over s. s may be nil.
func New(s store.BlobStore, opts ...Option) *Cache {
	c := &Cache{store: s, engine: replay.New(), log: zerolog.Nop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetOrCompute returns the state of game id. An entry whose fingerprint
// matches the current event set is returned without replaying, with its
// title refreshed from root; anything else replays and stores the result.
func (c *Cache) GetOrCompute(ctx context.Context, id string, root model.GameRecord, children []model.ChildEvent) model.DerivedState {
	if c.store == nil {
		metrics.Replays.Inc()
		return c.engine.ComputeState(root, children)
	}

	fp := c.Fingerprint(root, children)
	key := Key(id)

	// Concurrent callers with the same event set share one lookup.
	v, _, _ := c.group.Do(flightKey(key, fp), func() (interface{}, error) {
		if st, ok := c.lookup(ctx, key, fp); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			c.log.Debug().Str("game", id).Msg("cache hit")
			return st, nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		c.log.Debug().Str("game", id).Int("children", fp.Count).Msg("cache miss")

		metrics.Replays.Inc()
		st := c.engine.ComputeState(root, children)
		c.save(ctx, key, model.CacheEntry{Fingerprint: fp, State: st})
		return st, nil
	})

	st := v.(model.DerivedState)
	st.Moves = slices.Clone(st.Moves)
	st.Title = root.Title
	return st
}

func (c *Cache) lookup(ctx context.Context, key string, fp model.Fingerprint) (model.DerivedState, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			metrics.CacheStoreErrors.WithLabelValues("get").Inc()
			c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return model.DerivedState{}, false
	}
	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		metrics.CacheStoreErrors.WithLabelValues("decode").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable")
		return model.DerivedState{}, false
	}
	if !sameFingerprint(entry.Fingerprint, fp) {
		return model.DerivedState{}, false
	}
	return entry.State, true
}

func (c *Cache) save(ctx context.Context, key string, entry model.CacheEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		metrics.CacheStoreErrors.WithLabelValues("encode").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("cache entry unencodable")
		return
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		metrics.CacheStoreErrors.WithLabelValues("set").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Fingerprint summarises the inputs of a replay: the number of child
// events, the timestamp of the last one in replay order, and an xxhash
// digest over the root and the sorted events. When the engine exposes its
// Limits they are folded into the digest as well.
func (c *Cache) Fingerprint(root model.GameRecord, children []model.ChildEvent) model.Fingerprint {
	var limits *replay.Limits
	if l, ok := c.engine.(interface{ Limits() replay.Limits }); ok {
		v := l.Limits()
		limits = &v
	}
	return fingerprint(root, children, limits)
}

// Fingerprint computes the fingerprint for the default engine.
func Fingerprint(root model.GameRecord, children []model.ChildEvent) model.Fingerprint {
	l := replay.DefaultLimits
	return fingerprint(root, children, &l)
}

func fingerprint(root model.GameRecord, children []model.ChildEvent, limits *replay.Limits) model.Fingerprint {
	sorted := replay.SortEvents(children)
	fp := model.Fingerprint{Count: len(sorted)}
	if len(sorted) > 0 {
		fp.LastCreated = sorted[len(sorted)-1].Created.UTC()
	}

	h := digest{xxhash.New()}
	h.str(root.ID)
	h.str(root.Author)
	h.i64(root.Created.UnixNano())
	if root.DeclaredTimeout != nil {
		h.i64(1)
		h.i64(int64(*root.DeclaredTimeout))
	} else {
		h.i64(0)
	}
	if limits != nil {
		h.i64(int64(limits.Min))
		h.i64(int64(limits.Default))
		h.i64(int64(limits.Max))
	}
	for _, ev := range sorted {
		h.str(ev.Author)
		h.i64(ev.Created.UnixNano())
		switch p := ev.Payload.(type) {
		case model.Join:
			h.str(string(model.KindJoin))
		case model.Move:
			h.str(string(model.KindMove))
			h.i64(int64(p.Index))
			h.i64(int64(p.MoveNumber))
		case model.TimeoutClaim:
			h.str(string(model.KindTimeoutClaim))
			h.i64(int64(p.Against))
			h.i64(int64(p.MoveNumber))
		default:
			h.str("")
		}
	}
	fp.Digest = h.Sum64()
	return fp
}

func sameFingerprint(a, b model.Fingerprint) bool {
	return a.Count == b.Count && a.LastCreated.Equal(b.LastCreated) && a.Digest == b.Digest
}

func flightKey(key string, fp model.Fingerprint) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], fp.Digest)
	return key + "\x00" + string(b[:])
}

// digest writes length-prefixed fields so adjacent strings cannot collide.
type digest struct{ *xxhash.Digest }

func (d digest) str(s string) {
	d.i64(int64(len(s)))
	d.WriteString(s)
}

func (d digest) i64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	d.Write(b[:])
}
