package replay

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/reversteem/reversteem/pkg/model"
)

const (
	// AppName namespaces game traffic inside the shared log.
	AppName = "reversteem"
	// AppVersion is stamped into metadata this module writes.
	AppVersion = "0.1"
	// AppInfo is the value of the "app" metadata field.
	AppInfo = AppName + "/" + AppVersion

	gameStartType = "game_start"
)

// rawMeta is the untyped JSON metadata attached to every post. Fields the
// decoder has to type-check stay as raw JSON.
type rawMeta struct {
	App            string          `json:"app"`
	Type           string          `json:"type"`
	Action         string          `json:"action"`
	Index          json.RawMessage `json:"index"`
	MoveNumber     json.RawMessage `json:"moveNumber"`
	ClaimAgainst   json.RawMessage `json:"claimAgainst"`
	TimeoutMinutes json.RawMessage `json:"timeoutMinutes"`
}

func parseMeta(s string) (rawMeta, bool) {
	var m rawMeta
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return rawMeta{}, false
	}
	return m, strings.HasPrefix(m.App, AppName+"/")
}

// IsGameRoot reports whether post is a reversteem game_start post.
func IsGameRoot(post model.Post) bool {
	m, ok := parseMeta(post.JSONMetadata)
	return ok && m.Type == gameStartType
}

// IsGameReply reports whether post carries a reversteem game action, as
// opposed to ordinary discussion under the game.
func IsGameReply(post model.Post) bool {
	_, ok := decodeChild(post, 0)
	return ok
}

// DecodeRoot builds the GameRecord for a root post. Missing or malformed
// metadata only loses the declared timeout.
func DecodeRoot(post model.Post) model.GameRecord {
	rec := model.GameRecord{
		ID:      model.GameID(post.Author, post.Permlink),
		Author:  post.Author,
		Title:   post.Title,
		Created: post.Created,
	}
	m, _ := parseMeta(post.JSONMetadata)
	if v, ok := parseLooseInt(m.TimeoutMinutes); ok {
		rec.DeclaredTimeout = &v
	}
	return rec
}

// DecodeChildren decodes replies into child events. Seq records each
// reply's position in posts, so the slice order passed in is the tie-break
// for equal timestamps. Replies that are not well-formed game actions are
// dropped.
func DecodeChildren(posts []model.Post) []model.ChildEvent {
	events := make([]model.ChildEvent, 0, len(posts))
	for i, p := range posts {
		if ev, ok := decodeChild(p, i); ok {
			events = append(events, ev)
		}
	}
	return events
}

func decodeChild(post model.Post, seq int) (model.ChildEvent, bool) {
	m, ok := parseMeta(post.JSONMetadata)
	if !ok {
		return model.ChildEvent{}, false
	}
	ev := model.ChildEvent{Author: post.Author, Created: post.Created, Seq: seq}

	switch model.EventKind(m.Action) {
	case model.KindJoin:
		ev.Payload = model.Join{}
	case model.KindMove:
		idx, ok := parseStrictInt(m.Index)
		if !ok || idx < 0 || idx >= 64 {
			return model.ChildEvent{}, false
		}
		n, ok := parseStrictInt(m.MoveNumber)
		if !ok {
			return model.ChildEvent{}, false
		}
		ev.Payload = model.Move{Index: idx, MoveNumber: n}
	case model.KindTimeoutClaim:
		var against string
		if err := json.Unmarshal(m.ClaimAgainst, &against); err != nil {
			return model.ChildEvent{}, false
		}
		var c model.Color
		switch against {
		case "black":
			c = model.Black
		case "white":
			c = model.White
		default:
			return model.ChildEvent{}, false
		}
		n, ok := parseStrictInt(m.MoveNumber)
		if !ok {
			return model.ChildEvent{}, false
		}
		ev.Payload = model.TimeoutClaim{Against: c, MoveNumber: n}
	default:
		return model.ChildEvent{}, false
	}
	return ev, true
}

// parseStrictInt accepts only a JSON number with no fractional part.
func parseStrictInt(raw json.RawMessage) (int, bool) {
	if isAbsent(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// parseLooseInt follows parseInt: a number is truncated, a string
// contributes its leading integer. Magnitudes past int32 saturate so that
// Limits.Clamp still sees which side of the range they fell on.
func parseLooseInt(raw json.RawMessage) (int, bool) {
	if isAbsent(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) {
			return 0, false
		}
		return saturate(math.Trunc(f)), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) {
		if s[0] == '-' {
			return math.MinInt32, true
		}
		return math.MaxInt32, true
	}
	if err != nil {
		return 0, false
	}
	return saturate(float64(v)), true
}

func saturate(f float64) int {
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
