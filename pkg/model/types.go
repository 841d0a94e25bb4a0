// Package model defines the core domain types for reversteem.
//
// A reversteem game lives in a shared, append-only log of posts: the root
// post creates the game and every reply is a candidate game event. Nobody
// arbitrates. Each observer folds the same log into the same DerivedState
// using two ideas:
//
//   - A deterministic total order. Replies are sorted by creation time, and
//     ties keep the order in which the log delivered them, so every replayer
//     agrees on who moved when.
//
//   - Claim, don't expire. Wall-clock time never changes the state on its
//     own. A timeout only takes effect through an explicit, timestamped
//     claim that is itself part of the log.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Color is a player colour. It doubles as the content of a board cell,
// where None means the cell is empty.
type Color int8

const (
	None Color = iota
	Black
	White
)

// Opponent returns the other colour. None has no opponent.
func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	}
	return None
}

func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	}
	return ""
}

// ParseColor accepts "black" or "white" (case-insensitive).
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(s) {
	case "black":
		return Black, nil
	case "white":
		return White, nil
	}
	return None, fmt.Errorf("unknown color %q", s)
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*c = None
		return nil
	}
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Winner is the outcome of a game.
type Winner string

const (
	WinnerNone  Winner = ""
	WinnerBlack Winner = "black"
	WinnerWhite Winner = "white"
	WinnerDraw  Winner = "draw"
)

// WinnerOf maps a colour to the matching Winner value.
func WinnerOf(c Color) Winner {
	switch c {
	case Black:
		return WinnerBlack
	case White:
		return WinnerWhite
	}
	return WinnerNone
}

// Board is the 8x8 grid, index = row*8 + col.
type Board [64]Color

// Score holds disc counts per colour.
type Score struct {
	Black int `json:"black"`
	White int `json:"white"`
}

// Post is a raw record as delivered by the log-fetching collaborator.
// Root posts have an empty ParentAuthor.
type Post struct {
	Author         string    `json:"author"`
	Permlink       string    `json:"permlink"`
	ParentAuthor   string    `json:"parent_author,omitempty"`
	ParentPermlink string    `json:"parent_permlink,omitempty"`
	RootAuthor     string    `json:"root_author,omitempty"`
	RootPermlink   string    `json:"root_permlink,omitempty"`
	Title          string    `json:"title,omitempty"`
	Created        time.Time `json:"created"`
	JSONMetadata   string    `json:"json_metadata"`
}

// GameID returns the "author/permlink" identity of a post.
func GameID(author, permlink string) string { return author + "/" + permlink }

// GameRecord is the root event that creates a game.
type GameRecord struct {
	ID      string    `json:"id"`
	Author  string    `json:"author"`
	Title   string    `json:"title"`
	Created time.Time `json:"created"`
	// DeclaredTimeout is the per-move limit in minutes as written by the
	// author, nil when absent or unparseable. Clamping happens in replay.
	DeclaredTimeout *int `json:"declared_timeout,omitempty"`
}

// EventKind enumerates the child event variants.
type EventKind string

const (
	KindJoin         EventKind = "join"
	KindMove         EventKind = "move"
	KindTimeoutClaim EventKind = "timeout_claim"
)

// Payload is the kind-specific part of a ChildEvent. The set of
// implementations is closed: Join, Move, TimeoutClaim.
type Payload interface {
	Kind() EventKind
	isPayload()
}

// Join establishes the White player.
type Join struct{}

// Move places a disc at Index. MoveNumber is the count of moves the
// submitter believes were already applied.
type Move struct {
	Index      int `json:"index"`
	MoveNumber int `json:"moveNumber"`
}

// TimeoutClaim asserts that Against exceeded the per-move time budget
// while MoveNumber moves had been applied.
type TimeoutClaim struct {
	Against    Color `json:"claimAgainst"`
	MoveNumber int   `json:"moveNumber"`
}

func (Join) Kind() EventKind         { return KindJoin }
func (Move) Kind() EventKind         { return KindMove }
func (TimeoutClaim) Kind() EventKind { return KindTimeoutClaim }

func (Join) isPayload()         {}
func (Move) isPayload()         {}
func (TimeoutClaim) isPayload() {}

// ChildEvent is a decoded game reply. Seq is the position of the reply in
// the order the log delivered it and breaks creation-time ties.
type ChildEvent struct {
	Author  string    `json:"author"`
	Created time.Time `json:"created"`
	Seq     int       `json:"seq"`
	Payload Payload   `json:"-"`
}

// AppliedMove is a move accepted by replay.
type AppliedMove struct {
	Number  int       `json:"number"`
	Index   int       `json:"index"`
	Color   Color     `json:"color"`
	Author  string    `json:"author"`
	Created time.Time `json:"created"`
	Flipped int       `json:"flipped"`
}

// DerivedState is the result of replaying a game log.
type DerivedState struct {
	Title          string        `json:"title"`
	Black          string        `json:"black_player"`
	White          string        `json:"white_player,omitempty"`
	Board          Board         `json:"board"`
	Turn           Color         `json:"current_player"`
	AppliedMoves   int           `json:"applied_moves"`
	Finished       bool          `json:"finished"`
	Winner         Winner        `json:"winner,omitempty"`
	Score          Score         `json:"score"`
	TimeoutMinutes int           `json:"timeout_minutes"`
	Created        time.Time     `json:"created"`
	GameStart      time.Time     `json:"game_start"`
	LastMoveTime   time.Time     `json:"last_move_time"`
	Moves          []AppliedMove `json:"moves,omitempty"`
}

// PlayerOf returns the identity registered for colour c.
func (s DerivedState) PlayerOf(c Color) string {
	switch c {
	case Black:
		return s.Black
	case White:
		return s.White
	}
	return ""
}

// Fingerprint summarises a child-event set for cache validation.
type Fingerprint struct {
	Count       int       `json:"count"`
	LastCreated time.Time `json:"last_created"`
	Digest      uint64    `json:"digest"`
}

// CacheEntry is the persisted form of a cached replay.
type CacheEntry struct {
	Fingerprint Fingerprint  `json:"fingerprint"`
	State       DerivedState `json:"state"`
}

// Steem timestamps come without a zone and are UTC.
const steemTimeLayout = "2006-01-02T15:04:05"

// ParseTime parses RFC 3339 timestamps and zoneless Steem timestamps.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(steemTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// UnmarshalJSON accepts both RFC 3339 and zoneless Steem timestamps in
// the created field.
func (p *Post) UnmarshalJSON(b []byte) error {
	type alias Post
	aux := struct {
		*alias
		Created string `json:"created"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Created == "" {
		return fmt.Errorf("post %s/%s: missing created", p.Author, p.Permlink)
	}
	t, err := ParseTime(aux.Created)
	if err != nil {
		return err
	}
	p.Created = t
	return nil
}

// MarshalJSON flattens the payload next to the envelope fields.
func (e ChildEvent) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"author":  e.Author,
		"created": e.Created,
		"seq":     e.Seq,
	}
	switch p := e.Payload.(type) {
	case Join:
		out["kind"] = KindJoin
	case Move:
		out["kind"] = KindMove
		out["index"] = p.Index
		out["moveNumber"] = p.MoveNumber
	case TimeoutClaim:
		out["kind"] = KindTimeoutClaim
		out["claimAgainst"] = p.Against
		out["moveNumber"] = p.MoveNumber
	}
	return json.Marshal(out)
}
