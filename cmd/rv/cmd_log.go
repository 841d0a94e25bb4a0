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

func (a *app) cmdLog(args []string) int {
	flags := flag.NewFlagSet("log", flag.ContinueOnError)
	kind := flags.String("kind", "", "filter by action: join, move, timeout_claim")
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseInterspersed(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "rv: log: usage: rv log <author/permlink>")
		return 1
	}
	id, err := parseGameID(pos[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv: log: %v\n", err)
		return 1
	}

	_, children, err := a.loadGame(context.Background(), id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv: log: %v\n", err)
		return 1
	}

	events := replay.SortEvents(children)
	if *kind != "" {
		filtered := events[:0]
		for _, e := range events {
			if string(e.Payload.Kind()) == *kind {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"game": id, "events": events, "count": len(events)})
		return 0
	}
	if len(events) == 0 {
		fmt.Println("no actions")
		return 0
	}
	for _, e := range events {
		printEvent(e)
	}
	return 0
}

// printEvent renders one child event on a line.
func printEvent(e model.ChildEvent) {
	ts := e.Created.UTC().Format(time.DateTime)
	switch p := e.Payload.(type) {
	case model.Join:
		fmt.Printf("[%s] %s joins\n", ts, e.Author)
	case model.Move:
		fmt.Printf("[%s] %s move #%d at %s\n", ts, e.Author, p.MoveNumber, board.Coord(p.Index))
	case model.TimeoutClaim:
		fmt.Printf("[%s] %s claims timeout against %s at move #%d\n", ts, e.Author, p.Against, p.MoveNumber)
	}
}
