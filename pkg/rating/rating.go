// Package rating maintains Elo ratings over finished games.
//
// The table carries a watermark: the creation time of the last game folded
// in. Update only consumes games created after it, so feeding the same
// games twice changes nothing.
package rating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/reversteem/reversteem/pkg/metrics"
	"github.com/reversteem/reversteem/pkg/model"
	"github.com/reversteem/reversteem/pkg/store"
)

const (
	// K is the Elo K-factor.
	K = 32
	// Base is the rating of a player with no rated games.
	Base = 1200
	// CacheKey is the blob key the table is persisted under.
	CacheKey = "reversteem_elo_cache"
)

// Table is a rating table with its watermark.
type Table struct {
	Watermark time.Time      `json:"lastProcessedTimestamp"`
	Ratings   map[string]int `json:"ratings"`
}

// NewTable returns an empty table.
func NewTable() Table {
	return Table{Ratings: make(map[string]int)}
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := Table{Watermark: t.Watermark, Ratings: maps.Clone(t.Ratings)}
	if out.Ratings == nil {
		out.Ratings = make(map[string]int)
	}
	return out
}

// CurrentRating returns player's rating, Base if unseen.
func CurrentRating(t Table, player string) int {
	if r, ok := t.Ratings[player]; ok {
		return r
	}
	return Base
}

// Expected is the expected score of a player rated a against one rated b.
func Expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// Update folds games into a copy of table and returns it. Games are taken
// in creation order; those at or before the watermark are skipped, as are
// unfinished games and games missing a player. Each rated game advances
// the watermark to its creation time.
func Update(table Table, games []model.DerivedState) Table {
	out := table.Clone()

	sorted := slices.Clone(games)
	slices.SortStableFunc(sorted, func(a, b model.DerivedState) int {
		return a.Created.Compare(b.Created)
	})

	for _, g := range sorted {
		if !g.Created.After(out.Watermark) {
			continue
		}
		if !g.Finished || g.Black == "" || g.White == "" {
			continue
		}
		score, ok := blackScore(g.Winner)
		if !ok {
			continue
		}
		rb := CurrentRating(out, g.Black)
		rw := CurrentRating(out, g.White)
		eb := Expected(rb, rw)

		out.Ratings[g.Black] = round(float64(rb) + K*(score-eb))
		out.Ratings[g.White] = round(float64(rw) + K*((1-score)-(1-eb)))
		out.Watermark = g.Created
		metrics.RatedGames.Inc()
	}
	return out
}

func blackScore(w model.Winner) (float64, bool) {
	switch w {
	case model.WinnerBlack:
		return 1, true
	case model.WinnerWhite:
		return 0, true
	case model.WinnerDraw:
		return 0.5, true
	}
	return 0, false
}

// round rounds half up, so -0.5 goes to 0 and 0.5 goes to 1.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Load reads the table from s. A missing or undecodable entry yields an
// empty table; only store failures are returned.
func Load(ctx context.Context, s store.BlobStore) (Table, error) {
	data, err := s.Get(ctx, CacheKey)
	if errors.Is(err, store.ErrNotFound) {
		return NewTable(), nil
	}
	if err != nil {
		return NewTable(), fmt.Errorf("load ratings: %w", err)
	}
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return NewTable(), nil
	}
	return t.Clone(), nil
}

// Save writes the table to s.
func Save(ctx context.Context, s store.BlobStore, t Table) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode ratings: %w", err)
	}
	if err := s.Set(ctx, CacheKey, data); err != nil {
		return fmt.Errorf("save ratings: %w", err)
	}
	return nil
}

// Leader is one row of a leaderboard.
type Leader struct {
	Player string `json:"player"`
	Rating int    `json:"rating"`
}

// Leaderboard returns the table's players by rating, highest first, ties
// by name.
func Leaderboard(t Table) []Leader {
	out := make([]Leader, 0, len(t.Ratings))
	for p, r := range t.Ratings {
		out = append(out, Leader{Player: p, Rating: r})
	}
	slices.SortFunc(out, func(a, b Leader) int {
		if a.Rating != b.Rating {
			return b.Rating - a.Rating
		}
		if a.Player < b.Player {
			return -1
		}
		if a.Player > b.Player {
			return 1
		}
		return 0
	})
	return out
}
