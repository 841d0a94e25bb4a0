package replay

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reversteem/reversteem/pkg/board"
	"github.com/reversteem/reversteem/pkg/model"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

func newRoot() model.GameRecord {
	return model.GameRecord{ID: "alice/g1", Author: "alice", Title: "Game", Created: t0}
}

func join(author string, min int) model.ChildEvent {
	return model.ChildEvent{Author: author, Created: at(min), Payload: model.Join{}}
}

func move(author string, min, index, n int) model.ChildEvent {
	return model.ChildEvent{Author: author, Created: at(min), Payload: model.Move{Index: index, MoveNumber: n}}
}

func claim(author string, min int, against model.Color, n int) model.ChildEvent {
	return model.ChildEvent{Author: author, Created: at(min), Payload: model.TimeoutClaim{Against: against, MoveNumber: n}}
}

// log assigns Seq in slice order, as DecodeChildren would.
func log(evs ...model.ChildEvent) []model.ChildEvent {
	for i := range evs {
		evs[i].Seq = i
	}
	return evs
}

func stateJSON(t *testing.T, s model.DerivedState) string {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return string(b)
}

// playOut plays first-legal-move for both sides until neither can move,
// one minute apart, starting at minute start.
func playOut(start int) []model.ChildEvent {
	players := map[model.Color]string{model.Black: "alice", model.White: "bob"}
	b := board.Initial()
	turn := model.Black
	var evs []model.ChildEvent
	for n := 0; ; n++ {
		mover := board.ResolveTurn(b, turn)
		if mover == model.None {
			return evs
		}
		idx := board.LegalMoves(b, mover)[0]
		evs = append(evs, move(players[mover], start+n, idx, n))
		b = board.Apply(b, idx, mover, board.Flips(b, idx, mover))
		turn = mover.Opponent()
	}
}

func TestScenarioA_EmptyLog(t *testing.T) {
	st := ComputeState(newRoot(), nil)

	assert.Equal(t, board.Initial(), st.Board)
	assert.Equal(t, model.Black, st.Turn)
	assert.False(t, st.Finished)
	assert.Equal(t, model.WinnerNone, st.Winner)
	assert.Equal(t, 0, st.AppliedMoves)
	assert.Equal(t, "alice", st.Black)
	assert.Empty(t, st.White)
	assert.Equal(t, model.Score{Black: 2, White: 2}, st.Score)
	assert.Equal(t, t0, st.LastMoveTime)
	assert.Equal(t, DefaultLimits.Default, st.TimeoutMinutes)
}

func TestScenarioB_JoinThenFirstMove(t *testing.T) {
	st := ComputeState(newRoot(), log(
		join("bob", 1),
		move("alice", 2, 19, 0),
	))

	assert.Equal(t, "bob", st.White)
	assert.Equal(t, 1, st.AppliedMoves)
	assert.Equal(t, model.White, st.Turn)
	assert.Equal(t, model.Score{Black: 4, White: 1}, st.Score)
	assert.Equal(t, at(2), st.LastMoveTime)
	assert.Equal(t, at(1), st.GameStart)
	require.Len(t, st.Moves, 1)
	assert.Equal(t, 1, st.Moves[0].Flipped)
}

func TestScenarioB_IllegalOpeningCellRejected(t *testing.T) {
	// E3 (20) flips nothing for black from the start position.
	st := ComputeState(newRoot(), log(
		join("bob", 1),
		move("alice", 2, 20, 0),
	))
	assert.Equal(t, 0, st.AppliedMoves)
	assert.Equal(t, model.Black, st.Turn)
	assert.Equal(t, board.Initial(), st.Board)
}

func TestScenarioC_FutureMoveNumberRejected(t *testing.T) {
	st := ComputeState(newRoot(), log(
		join("bob", 1),
		move("alice", 2, 19, 0),
		move("bob", 3, 18, 1),
		move("alice", 4, 17, 5),
	))
	assert.Equal(t, 2, st.AppliedMoves)
	assert.Equal(t, model.Black, st.Turn)
	assert.Equal(t, at(3), st.LastMoveTime)
}

func TestSequenceIntegrity(t *testing.T) {
	base := log(join("bob", 1), move("alice", 2, 19, 0))
	for _, n := range []int{-1, 0, 2, 7} {
		evs := append(append([]model.ChildEvent{}, base...), move("bob", 3, 18, n))
		st := ComputeState(newRoot(), log(evs...))
		assert.Equal(t, 1, st.AppliedMoves, "moveNumber %d", n)
	}
}

func TestScenarioD_TimeoutClaim(t *testing.T) {
	st := ComputeState(newRoot(), log(
		join("bob", 0),
		move("alice", 1, 19, 0),
		claim("alice", 61, model.White, 1),
	))
	assert.True(t, st.Finished)
	assert.Equal(t, model.WinnerBlack, st.Winner)
	assert.Equal(t, model.None, st.Turn)
}

func TestTimeoutClaim_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		claim model.ChildEvent
	}{
		{"too early", claim("alice", 60, model.White, 1)},
		{"stale move number", claim("alice", 61, model.White, 0)},
		{"against the claimant's own colour", claim("alice", 61, model.Black, 1)},
		{"authored by the stalled player", claim("bob", 61, model.White, 1)},
		{"authored by a spectator", claim("carol", 61, model.White, 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := ComputeState(newRoot(), log(
				join("bob", 0),
				move("alice", 1, 19, 0),
				tc.claim,
			))
			assert.False(t, st.Finished)
			assert.Equal(t, model.WinnerNone, st.Winner)
			assert.Equal(t, model.White, st.Turn)
		})
	}
}

func TestTimeoutClaim_ExactlyAtBudget(t *testing.T) {
	root := newRoot()
	five := 5
	root.DeclaredTimeout = &five
	st := ComputeState(root, log(
		join("bob", 0),
		move("alice", 1, 19, 0),
		claim("alice", 6, model.White, 1),
	))
	assert.True(t, st.Finished)
	assert.Equal(t, model.WinnerBlack, st.Winner)
}

func TestTimeoutClaim_FirstValidClaimWins(t *testing.T) {
	st := ComputeState(newRoot(), log(
		join("bob", 0),
		move("alice", 1, 19, 0),
		claim("alice", 30, model.White, 1),
		claim("alice", 90, model.White, 1),
	))
	assert.True(t, st.Finished)
	assert.Equal(t, model.WinnerBlack, st.Winner)
}

func TestTimeoutClaim_LaterMoveInvalidatesClaim(t *testing.T) {
	st := ComputeState(newRoot(), log(
		join("bob", 0),
		move("alice", 1, 19, 0),
		claim("alice", 61, model.White, 1),
		move("bob", 70, 18, 1),
	))
	assert.False(t, st.Finished)
	assert.Equal(t, 2, st.AppliedMoves)
	assert.Equal(t, model.Black, st.Turn)
}

func TestTimeoutClaim_AgainstBlackBeforeFirstMove(t *testing.T) {
	st := ComputeState(newRoot(), log(
		join("bob", 0),
		claim("bob", 60, model.Black, 0),
	))
	assert.True(t, st.Finished)
	assert.Equal(t, model.WinnerWhite, st.Winner)
}

func TestTimeoutClaim_NoOpponentYet(t *testing.T) {
	st := ComputeState(newRoot(), log(
		claim("bob", 600, model.Black, 0),
	))
	assert.False(t, st.Finished)
}

func TestScenarioE_PlayedOut(t *testing.T) {
	evs := playOut(1)
	require.NotEmpty(t, evs)

	st := ComputeState(newRoot(), log(append([]model.ChildEvent{join("bob", 0)}, evs...)...))

	assert.True(t, st.Finished)
	assert.Equal(t, model.None, st.Turn)
	assert.Equal(t, len(evs), st.AppliedMoves)
	assert.False(t, board.HasAnyLegalMove(st.Board, model.Black))
	assert.False(t, board.HasAnyLegalMove(st.Board, model.White))

	black, white := board.CountDiscs(st.Board)
	assert.Equal(t, model.Score{Black: black, White: white}, st.Score)
	assert.Equal(t, winnerByDiscs(st.Score), st.Winner)
}

func TestScenarioE_ReplayHaltsAfterGameEnds(t *testing.T) {
	evs := playOut(1)
	full := log(append([]model.ChildEvent{join("bob", 0)}, evs...)...)
	finished := ComputeState(newRoot(), full)
	require.True(t, finished.Finished)

	trailing := append(append([]model.ChildEvent{}, full...),
		move("alice", 500, 0, len(evs)),
		claim("alice", 900, model.White, len(evs)),
	)
	st := ComputeState(newRoot(), log(trailing...))
	assert.Equal(t, stateJSON(t, finished), stateJSON(t, st))
}

func TestAutomaticPass(t *testing.T) {
	// After these 18 moves black has no legal cell and white has several.
	opening := []int{19, 18, 17, 9, 1, 0, 26, 2, 10, 11, 3, 4, 8, 16, 37, 12, 5, 6}
	evs := []model.ChildEvent{join("bob", 0)}
	for n, idx := range opening {
		author := "alice"
		if n%2 == 1 {
			author = "bob"
		}
		evs = append(evs, move(author, n+1, idx, n))
	}
	st := ComputeState(newRoot(), log(evs...))
	require.Equal(t, 18, st.AppliedMoves)
	require.False(t, board.HasAnyLegalMove(st.Board, model.Black))
	require.True(t, board.HasAnyLegalMove(st.Board, model.White))
	assert.Equal(t, model.White, st.Turn)

	evs = append(evs,
		move("alice", 30, 13, 18), // black has nothing to play
		move("bob", 31, 13, 18),
		move("bob", 32, 20, 19),
	)
	st = ComputeState(newRoot(), log(evs...))

	require.Equal(t, 20, st.AppliedMoves)
	for _, m := range st.Moves[18:] {
		assert.Equal(t, model.White, m.Color)
		assert.Equal(t, "bob", m.Author)
	}
	assert.False(t, st.Finished)
	assert.Equal(t, model.White, st.Turn)
	assert.Equal(t, at(32), st.LastMoveTime)
}

func TestWinnerByDiscs(t *testing.T) {
	assert.Equal(t, model.WinnerBlack, winnerByDiscs(model.Score{Black: 40, White: 24}))
	assert.Equal(t, model.WinnerWhite, winnerByDiscs(model.Score{Black: 10, White: 54}))
	assert.Equal(t, model.WinnerDraw, winnerByDiscs(model.Score{Black: 32, White: 32}))
}

func TestJoin_Rules(t *testing.T) {
	t.Run("black cannot join own game", func(t *testing.T) {
		st := ComputeState(newRoot(), log(join("alice", 1)))
		assert.Empty(t, st.White)
	})
	t.Run("first join wins", func(t *testing.T) {
		st := ComputeState(newRoot(), log(join("bob", 2), join("carol", 1), join("dave", 3)))
		assert.Equal(t, "carol", st.White)
		assert.Equal(t, at(1), st.GameStart)
	})
}

func TestMove_BeforeJoinRejected(t *testing.T) {
	st := ComputeState(newRoot(), log(
		move("alice", 1, 19, 0),
		join("bob", 2),
	))
	assert.Equal(t, 0, st.AppliedMoves)

	st = ComputeState(newRoot(), log(
		move("alice", 1, 19, 0),
		join("bob", 2),
		move("alice", 3, 19, 0),
	))
	assert.Equal(t, 1, st.AppliedMoves)
}

func TestMove_WrongAuthorRejected(t *testing.T) {
	st := ComputeState(newRoot(), log(
		join("bob", 1),
		move("bob", 2, 19, 0),
		move("carol", 3, 19, 0),
	))
	assert.Equal(t, 0, st.AppliedMoves)
	assert.Equal(t, model.Black, st.Turn)
}

func TestOrdering_ByTimestampNotSliceOrder(t *testing.T) {
	st := ComputeState(newRoot(), log(
		move("bob", 3, 18, 1),
		move("alice", 2, 19, 0),
		join("bob", 1),
	))
	assert.Equal(t, 2, st.AppliedMoves)
}

func TestOrdering_TieKeepsLogOrder(t *testing.T) {
	// Two candidate first moves at the same instant: the one delivered
	// first is applied, the other fails the sequence check.
	st := ComputeState(newRoot(), log(
		join("bob", 1),
		move("alice", 2, 26, 0),
		move("alice", 2, 19, 0),
	))
	require.Len(t, st.Moves, 1)
	assert.Equal(t, 26, st.Moves[0].Index)

	st = ComputeState(newRoot(), log(
		join("bob", 1),
		move("alice", 2, 19, 0),
		move("alice", 2, 26, 0),
	))
	require.Len(t, st.Moves, 1)
	assert.Equal(t, 19, st.Moves[0].Index)
}

func TestDeterminism(t *testing.T) {
	evs := log(append([]model.ChildEvent{join("bob", 0)}, playOut(1)...)...)
	evs = append(evs, claim("alice", 2000, model.White, 3))
	evs = log(evs...)

	first := ComputeState(newRoot(), evs)
	second := New().ComputeState(newRoot(), evs)
	assert.Equal(t, stateJSON(t, first), stateJSON(t, second))

	// Delivery order is carried by Seq, so shuffling the slice changes nothing.
	shuffled := append([]model.ChildEvent{}, evs...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	assert.Equal(t, stateJSON(t, first), stateJSON(t, ComputeState(newRoot(), shuffled)))
}

func TestSkipIdempotence(t *testing.T) {
	prefix := log(
		join("bob", 1),
		move("alice", 2, 19, 0),
		move("bob", 3, 18, 1),
	)
	base := ComputeState(newRoot(), prefix)

	noisy := append(append([]model.ChildEvent{}, prefix...),
		move("alice", 4, 0, 2),          // illegal cell
		move("bob", 5, 17, 2),           // wrong mover
		move("alice", 6, 17, 9),         // bad sequence
		join("carol", 7),                // second join
		claim("alice", 8, model.White, 2), // wrong claimant and too early
	)
	st := ComputeState(newRoot(), log(noisy...))
	assert.Equal(t, stateJSON(t, base), stateJSON(t, st))
}

func TestComputeState_DoesNotReorderInput(t *testing.T) {
	evs := log(move("alice", 2, 19, 0), join("bob", 1))
	ComputeState(newRoot(), evs)
	assert.IsType(t, model.Move{}, evs[0].Payload)
	assert.IsType(t, model.Join{}, evs[1].Payload)
}

func TestTimeoutLimits(t *testing.T) {
	intp := func(v int) *int { return &v }
	cases := []struct {
		name     string
		declared *int
		limits   Limits
		want     int
	}{
		{"absent", nil, DefaultLimits, 60},
		{"in range", intp(5), DefaultLimits, 5},
		{"below min", intp(0), DefaultLimits, 1},
		{"negative", intp(-30), DefaultLimits, 1},
		{"above max", intp(99999), DefaultLimits, 10080},
		{"custom default", nil, Limits{Min: 2, Default: 10, Max: 20}, 10},
		{"custom max", intp(60), Limits{Min: 2, Default: 10, Max: 20}, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := newRoot()
			root.DeclaredTimeout = tc.declared
			st := New(WithLimits(tc.limits)).ComputeState(root, nil)
			assert.Equal(t, tc.want, st.TimeoutMinutes)
		})
	}
}

func TestLimits_Validate(t *testing.T) {
	assert.NoError(t, DefaultLimits.Validate())
	assert.Error(t, Limits{Min: 0, Default: 1, Max: 2}.Validate())
	assert.Error(t, Limits{Min: 5, Default: 1, Max: 10}.Validate())
	assert.Error(t, Limits{Min: 1, Default: 20, Max: 10}.Validate())
}
