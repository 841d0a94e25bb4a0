// Package board implements the Reversi rules over a model.Board.
//
// Every function is pure: boards are values, nothing is mutated in place,
// and no function fails on an in-range index. Callers validate indices.
package board

import "github.com/reversteem/reversteem/pkg/model"

// Size is the width and height of the grid.
const Size = 8

// Cells is the number of cells on the board.
const Cells = Size * Size

// directions are (row, col) steps. Walking in row/col space rather than by
// raw index delta keeps horizontal and diagonal scans from wrapping onto
// the neighbouring row.
var directions = [8][2]int{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {-1, 1}, {1, -1}, {1, 1},
}

// Initial returns the starting position.
func Initial() model.Board {
	var b model.Board
	b[27] = model.White
	b[28] = model.Black
	b[35] = model.Black
	b[36] = model.White
	return b
}

func onBoard(row, col int) bool {
	return row >= 0 && row < Size && col >= 0 && col < Size
}

// Flips returns the opponent discs that placing color at index would turn
// over, in direction order. It is empty when the cell is occupied or the
// move is illegal.
func Flips(b model.Board, index int, color model.Color) []int {
	if index < 0 || index >= Cells || b[index] != model.None {
		return nil
	}
	opp := color.Opponent()
	row, col := index/Size, index%Size

	var all []int
	for _, d := range directions {
		var line []int
		r, c := row+d[0], col+d[1]
		for onBoard(r, c) && b[r*Size+c] == opp {
			line = append(line, r*Size+c)
			r, c = r+d[0], c+d[1]
		}
		if len(line) > 0 && onBoard(r, c) && b[r*Size+c] == color {
			all = append(all, line...)
		}
	}
	return all
}

// HasAnyLegalMove reports whether color can place a disc anywhere.
func HasAnyLegalMove(b model.Board, color model.Color) bool {
	for i := 0; i < Cells; i++ {
		if len(Flips(b, i, color)) > 0 {
			return true
		}
	}
	return false
}

// LegalMoves returns every index color may play, ascending.
func LegalMoves(b model.Board, color model.Color) []int {
	var moves []int
	for i := 0; i < Cells; i++ {
		if len(Flips(b, i, color)) > 0 {
			moves = append(moves, i)
		}
	}
	return moves
}

// CountDiscs returns the number of black and white discs.
func CountDiscs(b model.Board) (black, white int) {
	for _, c := range b {
		switch c {
		case model.Black:
			black++
		case model.White:
			white++
		}
	}
	return black, white
}

// Apply places color at index and turns over flips. The input board is
// left untouched.
func Apply(b model.Board, index int, color model.Color, flips []int) model.Board {
	b[index] = color
	for _, f := range flips {
		b[f] = color
	}
	return b
}
