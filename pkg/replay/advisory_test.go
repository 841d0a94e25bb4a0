package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reversteem/reversteem/pkg/model"
)

func waitingOnWhite() model.DerivedState {
	return ComputeState(newRoot(), log(
		join("bob", 0),
		move("alice", 1, 19, 0),
	))
}

func TestTimeoutClaimable(t *testing.T) {
	st := waitingOnWhite()
	assert.False(t, TimeoutClaimable(st, at(60)))
	assert.True(t, TimeoutClaimable(st, at(61)))
	assert.True(t, TimeoutClaimable(st, at(5000)))
}

func TestTimeoutClaimable_NotOffered(t *testing.T) {
	t.Run("no opponent", func(t *testing.T) {
		st := ComputeState(newRoot(), nil)
		assert.False(t, TimeoutClaimable(st, at(10000)))
	})
	t.Run("finished", func(t *testing.T) {
		st := ComputeState(newRoot(), log(
			join("bob", 0),
			move("alice", 1, 19, 0),
			claim("alice", 61, model.White, 1),
		))
		assert.False(t, TimeoutClaimable(st, at(10000)))
	})
}

func TestTimeoutClaimable_DoesNotChangeState(t *testing.T) {
	st := waitingOnWhite()
	before := stateJSON(t, st)
	TimeoutClaimable(st, at(10000))
	assert.Equal(t, before, stateJSON(t, st))
	assert.False(t, st.Finished)
}

func TestPendingClaim(t *testing.T) {
	st := waitingOnWhite()

	c, ok := PendingClaim(st, "alice", at(61))
	assert.True(t, ok)
	assert.Equal(t, model.TimeoutClaim{Against: model.White, MoveNumber: 1}, c)

	_, ok = PendingClaim(st, "bob", at(61))
	assert.False(t, ok, "the stalled player cannot claim")

	_, ok = PendingClaim(st, "alice", at(30))
	assert.False(t, ok, "too early")

	_, ok = PendingClaim(st, "", at(61))
	assert.False(t, ok)
}

func TestPendingClaim_ReplaysToWin(t *testing.T) {
	evs := log(join("bob", 0), move("alice", 1, 19, 0))
	st := ComputeState(newRoot(), evs)

	c, ok := PendingClaim(st, "alice", at(61))
	if !assert.True(t, ok) {
		return
	}
	evs = log(append(evs, model.ChildEvent{Author: "alice", Created: at(61), Payload: c})...)
	final := ComputeState(newRoot(), evs)
	assert.True(t, final.Finished)
	assert.Equal(t, model.WinnerBlack, final.Winner)
}

func TestTimeRemaining(t *testing.T) {
	st := waitingOnWhite()
	assert.Equal(t, 50*time.Minute, TimeRemaining(st, at(11)))
	assert.Equal(t, time.Duration(0), TimeRemaining(st, at(90)))
	assert.Equal(t, time.Duration(0), TimeRemaining(ComputeState(newRoot(), nil), at(1)))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "Waiting for opponent", Status(ComputeState(newRoot(), nil)))
	assert.Equal(t, "In Progress", Status(waitingOnWhite()))

	won := model.DerivedState{Black: "alice", White: "bob", Finished: true, Winner: model.WinnerWhite}
	assert.Equal(t, "Finished — bob wins", Status(won))

	draw := model.DerivedState{Black: "alice", White: "bob", Finished: true, Winner: model.WinnerDraw}
	assert.Equal(t, "Finished — Draw", Status(draw))
}

func TestGameTags(t *testing.T) {
	assert.Equal(t,
		[]string{"rapid", "elo-1250", "reversi", "othello", "board", "game", "steem"},
		GameTags(5, 1250))
	assert.Equal(t, "mins-7", GameTags(7, 1200)[0])
	assert.Equal(t, "daily", GameTags(1440, 1200)[0])
}

func TestFormatTimeout(t *testing.T) {
	assert.Equal(t, "5 min", FormatTimeout(5))
	assert.Equal(t, "1 hour(s)", FormatTimeout(60))
	assert.Equal(t, "24 hour(s)", FormatTimeout(1440))
	assert.Equal(t, "90 min", FormatTimeout(90))
}
