// Package ingest appends chain posts to the record log.
//
// Input is JSON Lines, one post per line, as exported from a Steem node:
// a root post opens a game when its metadata names the app; a reply is
// kept when it carries a game action and its thread leads back to a
// known game. Everything else is counted and skipped.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/reversteem/reversteem/pkg/metrics"
	"github.com/reversteem/reversteem/pkg/model"
	"github.com/reversteem/reversteem/pkg/replay"
	"github.com/reversteem/reversteem/pkg/store"
)

// maxLine bounds a single JSONL record.
const maxLine = 4 << 20

// Stats summarises one ingest run.
type Stats struct {
	Games      int      `json:"games"`
	Replies    int      `json:"replies"`
	Duplicates int      `json:"duplicates"`
	Skipped    int      `json:"skipped"`
	Touched    []string `json:"touched,omitempty"` // games that gained records, first-touch order
}

func (s *Stats) touch(id string) {
	for _, t := range s.Touched {
		if t == id {
			return
		}
	}
	s.Touched = append(s.Touched, id)
}

// Add merges o into s.
func (s *Stats) Add(o Stats) {
	s.Games += o.Games
	s.Replies += o.Replies
	s.Duplicates += o.Duplicates
	s.Skipped += o.Skipped
	for _, id := range o.Touched {
		s.touch(id)
	}
}

// Ingester writes posts into a LogStore.
type Ingester struct {
	log store.LogStore
	lg  zerolog.Logger
}

// New returns an Ingester over l.
func New(l store.LogStore, lg zerolog.Logger) *Ingester {
	return &Ingester{log: l, lg: lg}
}

// Read ingests every line of r. Malformed lines are skipped; only store
// failures and read errors stop the run.
func (in *Ingester) Read(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var p model.Post
		if err := json.Unmarshal(raw, &p); err != nil {
			in.lg.Debug().Err(err).Int("line", line).Msg("skipping malformed record")
			stats.Skipped++
			continue
		}
		if err := in.Post(ctx, p, &stats); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read records: %w", err)
	}
	return stats, nil
}

// Post ingests a single post and records the outcome in stats.
func (in *Ingester) Post(ctx context.Context, p model.Post, stats *Stats) error {
	if p.Author == "" || p.Permlink == "" {
		stats.Skipped++
		return nil
	}

	if p.ParentAuthor == "" {
		if !replay.IsGameRoot(p) {
			stats.Skipped++
			return nil
		}
		ok, err := in.log.InsertGame(ctx, p)
		if err != nil {
			return fmt.Errorf("insert game %s/%s: %w", p.Author, p.Permlink, err)
		}
		if !ok {
			stats.Duplicates++
			return nil
		}
		id := model.GameID(p.Author, p.Permlink)
		stats.Games++
		stats.touch(id)
		metrics.IngestedPosts.WithLabelValues("root").Inc()
		in.lg.Info().Str("game", id).Msg("new game")
		return nil
	}

	if !replay.IsGameReply(p) {
		stats.Skipped++
		return nil
	}
	id, err := in.gameOf(ctx, p)
	if errors.Is(err, store.ErrNotFound) {
		in.lg.Debug().Str("author", p.Author).Str("permlink", p.Permlink).Msg("reply to unknown game")
		stats.Skipped++
		return nil
	}
	if err != nil {
		return err
	}
	ok, err := in.log.InsertReply(ctx, id, p)
	if err != nil {
		return fmt.Errorf("insert reply %s/%s: %w", p.Author, p.Permlink, err)
	}
	if !ok {
		stats.Duplicates++
		return nil
	}
	stats.Replies++
	stats.touch(id)
	metrics.IngestedPosts.WithLabelValues("reply").Inc()
	return nil
}

// gameOf finds the game a reply belongs to: by its root reference when the
// export carries one, otherwise through its parent.
func (in *Ingester) gameOf(ctx context.Context, p model.Post) (string, error) {
	if p.RootAuthor != "" && p.RootPermlink != "" {
		id, err := in.log.ResolveGame(ctx, p.RootAuthor, p.RootPermlink)
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return id, err
		}
	}
	return in.log.ResolveGame(ctx, p.ParentAuthor, p.ParentPermlink)
}
