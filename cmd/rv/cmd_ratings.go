package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/reversteem/reversteem/pkg/model"
	"github.com/reversteem/reversteem/pkg/rating"
)

func (a *app) cmdRatings(args []string) int {
	flags := flag.NewFlagSet("ratings", flag.ContinueOnError)
	reset := flags.Bool("reset", false, "discard the stored table and rate every game again")
	limit := flags.Int("limit", 20, "leaderboard rows to show (0 = all)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	ctx := context.Background()
	table, err := a.updateRatings(ctx, *reset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv: ratings: %v\n", err)
		return 1
	}

	board := rating.Leaderboard(table)
	if *limit > 0 && len(board) > *limit {
		board = board[:*limit]
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"watermark":   table.Watermark,
			"leaderboard": board,
			"players":     len(table.Ratings),
		})
		return 0
	}
	if len(board) == 0 {
		fmt.Println("no rated games")
		return 0
	}
	for i, l := range board {
		fmt.Printf("%3d. %-24s %d\n", i+1, l.Player, l.Rating)
	}
	fmt.Printf("\nrated through %s\n", table.Watermark.UTC().Format("2006-01-02 15:04:05"))
	return 0
}

func (a *app) cmdRating(args []string) int {
	flags := flag.NewFlagSet("rating", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseInterspersed(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "rv: rating: usage: rv rating <player>")
		return 1
	}
	player := pos[0]

	table, err := a.updateRatings(context.Background(), false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv: rating: %v\n", err)
		return 1
	}
	r := rating.CurrentRating(table, player)
	_, rated := table.Ratings[player]

	if *jsonOut {
		printJSON(map[string]interface{}{"player": player, "rating": r, "rated": rated})
		return 0
	}
	if rated {
		fmt.Printf("%s: %d\n", player, r)
	} else {
		fmt.Printf("%s: %d (unrated)\n", player, r)
	}
	return 0
}

// updateRatings folds every game in the log into the stored table and
// saves it. Games already behind the watermark are skipped by Update.
func (a *app) updateRatings(ctx context.Context, reset bool) (rating.Table, error) {
	bs := a.ratingStore()
	table := rating.NewTable()
	if !reset {
		var err error
		if table, err = rating.Load(ctx, bs); err != nil {
			return table, err
		}
	}

	posts, err := a.store.ListGames(ctx)
	if err != nil {
		return table, err
	}
	states := make([]model.DerivedState, 0, len(posts))
	for _, p := range posts {
		st, err := a.gameState(ctx, model.GameID(p.Author, p.Permlink))
		if err != nil {
			a.log.Warn().Err(err).Str("game", model.GameID(p.Author, p.Permlink)).Msg("skipping game")
			continue
		}
		states = append(states, st)
	}

	table = rating.Update(table, states)
	if err := rating.Save(ctx, bs, table); err != nil {
		return table, err
	}
	return table, nil
}
