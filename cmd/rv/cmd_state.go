package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/reversteem/reversteem/pkg/board"
	"github.com/reversteem/reversteem/pkg/model"
	"github.com/reversteem/reversteem/pkg/replay"
)

func (a *app) cmdState(args []string) int {
	flags := flag.NewFlagSet("state", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseInterspersed(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "rv: state: usage: rv state <author/permlink>")
		return 1
	}
	id, err := parseGameID(pos[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv: state: %v\n", err)
		return 1
	}

	st, err := a.gameState(context.Background(), id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv: state: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"game":        id,
			"state":       st,
			"status":      replay.Status(st),
			"legal_moves": legalCoords(st),
		})
		return 0
	}
	printState(id, st, time.Now())
	return 0
}

func legalCoords(st model.DerivedState) []string {
	if st.Finished || st.Turn == model.None {
		return nil
	}
	var out []string
	for _, i := range board.LegalMoves(st.Board, st.Turn) {
		out = append(out, board.Coord(i))
	}
	return out
}

func printState(id string, st model.DerivedState, now time.Time) {
	fmt.Printf("%s  %s\n", id, st.Title)
	white := st.White
	if white == "" {
		white = "(open)"
	}
	fmt.Printf("black: %s  white: %s  timeout: %s\n", st.Black, white, replay.FormatTimeout(st.TimeoutMinutes))
	fmt.Printf("status: %s\n", replay.Status(st))
	fmt.Printf("score: ⚫ %d  ⚪ %d  moves: %d\n", st.Score.Black, st.Score.White, st.AppliedMoves)
	if !st.Finished && st.White != "" {
		fmt.Printf("to move: %s (%s)", st.PlayerOf(st.Turn), st.Turn)
		if left := replay.TimeRemaining(st, now); left > 0 {
			fmt.Printf(", %s left", left.Truncate(time.Second))
		} else {
			fmt.Print(", out of time")
		}
		fmt.Println()
		if moves := legalCoords(st); len(moves) > 0 {
			fmt.Printf("legal: %v\n", moves)
		}
	}
	fmt.Println()
	fmt.Print(board.Markdown(st.Board))
}
