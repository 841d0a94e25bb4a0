package board

import (
	"fmt"
	"strings"

	"github.com/reversteem/reversteem/pkg/model"
)

// Coord converts an index into algebraic notation: column letter A-H,
// row number 1-8 counted from the top.
func Coord(index int) string {
	if index < 0 || index >= Cells {
		return "??"
	}
	return fmt.Sprintf("%c%d", 'A'+index%Size, index/Size+1)
}

// ParseCoord is the inverse of Coord.
func ParseCoord(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'A' || s[0] > 'H' || s[1] < '1' || s[1] > '8' {
		return 0, fmt.Errorf("invalid coordinate %q", s)
	}
	return int(s[1]-'1')*Size + int(s[0]-'A'), nil
}

var symbols = map[model.Color]string{
	model.Black: "⚫",
	model.White: "⚪",
	model.None:  "·",
}

// Markdown renders the board as the markdown table posted alongside moves.
func Markdown(b model.Board) string {
	var sb strings.Builder
	sb.WriteString("### Current Board\n\n")
	sb.WriteString("| A | B | C | D | E | F | G | H |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|\n")
	for r := 0; r < Size; r++ {
		sb.WriteString("|")
		for c := 0; c < Size; c++ {
			sb.WriteString(" " + symbols[b[r*Size+c]] + " |")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
