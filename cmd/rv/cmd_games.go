package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/reversteem/reversteem/pkg/model"
)

func (a *app) cmdGames(args []string) int {
	flags := flag.NewFlagSet("games", flag.ContinueOnError)
	player := flags.String("player", "", "only games this player is in")
	open := flags.Bool("open", false, "only games still waiting for an opponent")
	active := flags.Bool("active", false, "only games in progress")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	ctx := context.Background()
	posts, err := a.store.ListGames(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv: games: %v\n", err)
		return 1
	}

	var rows []gameSummary
	for _, p := range posts {
		id := model.GameID(p.Author, p.Permlink)
		st, err := a.gameState(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rv: games: %s: %v\n", id, err)
			continue
		}
		if *player != "" && st.Black != *player && st.White != *player {
			continue
		}
		if *open && st.White != "" {
			continue
		}
		if *active && (st.White == "" || st.Finished) {
			continue
		}
		rows = append(rows, summarize(id, st))
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"games": rows, "count": len(rows)})
		return 0
	}
	if len(rows) == 0 {
		fmt.Println("no games")
		return 0
	}
	for _, r := range rows {
		printSummary(r)
	}
	return 0
}
