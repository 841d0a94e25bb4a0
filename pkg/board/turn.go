package board

import "github.com/reversteem/reversteem/pkg/model"

// ResolveTurn applies the automatic-pass rule. It returns nominal when
// nominal can move, the opponent when only the opponent can move, and
// model.None when neither side has a legal move and the game is over.
func ResolveTurn(b model.Board, nominal model.Color) model.Color {
	if HasAnyLegalMove(b, nominal) {
		return nominal
	}
	if opp := nominal.Opponent(); HasAnyLegalMove(b, opp) {
		return opp
	}
	return model.None
}
