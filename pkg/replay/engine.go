// Package replay folds a game's event log into its DerivedState.
//
// Replay is a pure function of the root record and the set of child
// events: no clock, no I/O, no shared state. Invalid events are not
// errors. The log is open to anyone, so malformed records and protocol
// violations (wrong mover, stale sequence number, illegal cell, premature
// claim) are skipped and replay carries on.
package replay

import (
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/reversteem/reversteem/pkg/board"
	"github.com/reversteem/reversteem/pkg/model"
)

// Engine replays game logs under a fixed set of Limits.
type Engine struct {
	limits Limits
	log    zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimits overrides DefaultLimits.
func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithLogger sets the logger used to trace dropped events.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an Engine. Without options it uses DefaultLimits and a
// no-op logger.
func New(opts ...Option) *Engine {
	e := &Engine{limits: DefaultLimits, log: zerolog.Nop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Limits returns the timeout limits the engine replays with.
func (e *Engine) Limits() Limits { return e.limits }

var defaultEngine = New()

// ComputeState replays with the default engine.
func ComputeState(root model.GameRecord, children []model.ChildEvent) model.DerivedState {
	return defaultEngine.ComputeState(root, children)
}

// SortEvents returns a copy of events in replay order: ascending Created,
// ties broken by Seq, then by slice position.
func SortEvents(events []model.ChildEvent) []model.ChildEvent {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.ChildEvent) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return a.Seq - b.Seq
	})
	return sorted
}

type pendingClaim struct {
	author  string
	created time.Time
	claim   model.TimeoutClaim
}

// ComputeState derives the state of the game rooted at root.
func (e *Engine) ComputeState(root model.GameRecord, children []model.ChildEvent) model.DerivedState {
	st := model.DerivedState{
		Title:          root.Title,
		Black:          root.Author,
		Board:          board.Initial(),
		TimeoutMinutes: e.limits.Clamp(root.DeclaredTimeout),
		Created:        root.Created,
		LastMoveTime:   root.Created,
	}
	log := e.log.With().Str("game", root.ID).Logger()

	turn := model.Black
	var claims []pendingClaim

events:
	for _, ev := range SortEvents(children) {
		switch p := ev.Payload.(type) {
		case model.Join:
			if st.White != "" || ev.Author == st.Black {
				log.Trace().Str("author", ev.Author).Int("seq", ev.Seq).Msg("join ignored")
				continue
			}
			st.White = ev.Author
			st.GameStart = ev.Created

		case model.TimeoutClaim:
			// Adjudicated once the move stream is exhausted; later moves in
			// the same log can still change the applied count and turn.
			claims = append(claims, pendingClaim{author: ev.Author, created: ev.Created, claim: p})

		case model.Move:
			mover := board.ResolveTurn(st.Board, turn)
			if mover == model.None {
				log.Trace().Int("seq", ev.Seq).Msg("no legal moves left, replay halted")
				break events
			}
			turn = mover

			if reason := rejectMove(st, turn, ev.Author, p); reason != "" {
				log.Trace().
					Str("author", ev.Author).
					Int("seq", ev.Seq).
					Int("index", p.Index).
					Int("move_number", p.MoveNumber).
					Str("reason", reason).
					Msg("move dropped")
				continue
			}
			flips := board.Flips(st.Board, p.Index, turn)
			st.Board = board.Apply(st.Board, p.Index, turn, flips)
			st.Moves = append(st.Moves, model.AppliedMove{
				Number:  st.AppliedMoves,
				Index:   p.Index,
				Color:   turn,
				Author:  ev.Author,
				Created: ev.Created,
				Flipped: len(flips),
			})
			st.AppliedMoves++
			st.LastMoveTime = ev.Created
			turn = turn.Opponent()
		}
	}

	// The player handed control at loop exit may have nothing to play.
	if next := board.ResolveTurn(st.Board, turn); next != model.None {
		turn = next
	}

	st.Score.Black, st.Score.White = board.CountDiscs(st.Board)
	blackHasMove := board.HasAnyLegalMove(st.Board, model.Black)
	whiteHasMove := board.HasAnyLegalMove(st.Board, model.White)
	st.Finished = !blackHasMove && !whiteHasMove
	if st.Finished {
		st.Winner = winnerByDiscs(st.Score)
	}

	if !st.Finished {
		budget := time.Duration(st.TimeoutMinutes) * time.Minute
		claimant := st.PlayerOf(turn.Opponent())
		for _, c := range claims {
			if c.claim.MoveNumber != st.AppliedMoves ||
				c.claim.Against != turn ||
				claimant == "" || c.author != claimant ||
				c.created.Sub(st.LastMoveTime) < budget {
				log.Trace().Str("author", c.author).Msg("timeout claim rejected")
				continue
			}
			st.Finished = true
			st.Winner = model.WinnerOf(turn.Opponent())
			break
		}
	}

	if st.Finished {
		st.Turn = model.None
	} else {
		st.Turn = turn
	}
	return st
}

// winnerByDiscs decides a game that ran out of moves: more discs wins.
func winnerByDiscs(s model.Score) model.Winner {
	switch {
	case s.Black > s.White:
		return model.WinnerBlack
	case s.White > s.Black:
		return model.WinnerWhite
	}
	return model.WinnerDraw
}

// rejectMove returns why a move cannot be applied for mover, or "".
func rejectMove(st model.DerivedState, mover model.Color, author string, m model.Move) string {
	switch {
	case m.MoveNumber != st.AppliedMoves:
		return "sequence"
	case st.White == "":
		return "no opponent"
	case author != st.PlayerOf(mover):
		return "not your turn"
	case len(board.Flips(st.Board, m.Index, mover)) == 0:
		return "illegal cell"
	}
	return ""
}
