package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/reversteem/reversteem/pkg/model"
)

func (a *app) cmdInit(args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	ctx := context.Background()
	games, err := a.store.ListGames(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv: init: database error: %v\n", err)
		return 1
	}
	var replies int64
	for _, g := range games {
		replies += a.store.CountReplies(ctx, model.GameID(g.Author, g.Permlink))
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"database": a.cfg.Database,
			"cache":    a.cfg.Cache.Backend,
			"games":    len(games),
			"replies":  replies,
			"timeout":  a.engine.Limits(),
		})
		return 0
	}

	fmt.Printf("initialized reversteem (db: %s, cache: %s)\n", a.cfg.Database, a.cfg.Cache.Backend)
	if len(games) > 0 {
		fmt.Printf("  %d game(s), %d logged action(s)\n", len(games), replies)
	}
	l := a.engine.Limits()
	fmt.Printf("  move timeout: default %d min, allowed %d-%d\n", l.Default, l.Min, l.Max)

	fmt.Println()
	fmt.Println("next steps:")
	fmt.Println("  rv ingest posts.jsonl   # load exported chain posts")
	fmt.Println("  rv games                # see what was found")
	return 0
}

// parseGameID accepts "author/permlink", optionally with a leading "@".
func parseGameID(s string) (string, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")
	author, permlink, ok := strings.Cut(s, "/")
	if !ok || author == "" || permlink == "" {
		return "", fmt.Errorf("game must be author/permlink, got %q", s)
	}
	return model.GameID(author, permlink), nil
}

// parseInterspersed parses flags that may appear before or after
// positional arguments and returns the positionals.
func parseInterspersed(flags *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := flags.Parse(args); err != nil {
			return nil, err
		}
		args = flags.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}
