package replay

import (
	"time"

	"github.com/reversteem/reversteem/pkg/model"
)

// The functions in this file answer "could a timeout claim be posted
// now?" for a UI. They read the wall clock the caller passes in, may
// disagree between observers, and never feed back into DerivedState.
// Only a claim event replayed by ComputeState ends a game.

// TimeoutClaimable reports whether the player to move has been idle for
// at least the game's timeout as of now.
func TimeoutClaimable(state model.DerivedState, now time.Time) bool {
	if state.Finished || state.Turn == model.None || state.White == "" {
		return false
	}
	return now.Sub(state.LastMoveTime) >= time.Duration(state.TimeoutMinutes)*time.Minute
}

// PendingClaim returns the claim claimant would have to post right now to
// win on time, or false when claimant is not the waiting player or the
// timeout has not elapsed.
func PendingClaim(state model.DerivedState, claimant string, now time.Time) (model.TimeoutClaim, bool) {
	if !TimeoutClaimable(state, now) || claimant == "" || claimant != state.PlayerOf(state.Turn.Opponent()) {
		return model.TimeoutClaim{}, false
	}
	return model.TimeoutClaim{Against: state.Turn, MoveNumber: state.AppliedMoves}, true
}

// TimeRemaining is how long the player to move has left before a claim
// becomes valid. Zero once claimable or when no one is to move.
func TimeRemaining(state model.DerivedState, now time.Time) time.Duration {
	if state.Finished || state.Turn == model.None || state.White == "" {
		return 0
	}
	left := state.LastMoveTime.Add(time.Duration(state.TimeoutMinutes) * time.Minute).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
