// Command rv is the reversteem CLI: it keeps a local log of Reversi games
// played over the Steem chain and replays them into board state and
// ratings.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("rv", version)
		return
	}

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}
	code := a.run(os.Args[1], os.Args[2:])
	a.Close()
	os.Exit(code)
}

// run dispatches a subcommand and returns its exit code.
func (a *app) run(cmd string, args []string) int {
	switch cmd {
	// Setup
	case "init":
		return a.cmdInit(args)
	case "ingest":
		return a.cmdIngest(args)

	// Games
	case "games", "ls":
		return a.cmdGames(args)
	case "log":
		return a.cmdLog(args)
	case "state", "show":
		return a.cmdState(args)
	case "claimable":
		return a.cmdClaimable(args)
	case "watch":
		return a.cmdWatch(args)

	// Ratings
	case "ratings":
		return a.cmdRatings(args)
	case "rating":
		return a.cmdRating(args)

	default:
		fmt.Fprintf(os.Stderr, "rv: unknown command %q\n", cmd)
		fmt.Fprintln(os.Stderr, "Run 'rv --help' for usage.")
		return 1
	}
}

func printUsage() {
	fmt.Print(`rv — replay Reversi games played over Steem

Games live in an append-only log of chain posts. Every state shown is a
deterministic replay of that log: same posts, same board, for everyone.

Usage:
  rv <command> [flags]

Setup:
  init                        Create the database, report what it holds
  ingest <file.jsonl>         Append exported posts to the log (- for stdin)

Games:
  games                       List games with their status
  log <game>                  Show a game's decoded actions in replay order
  state <game>                Board, score and turn for a game
  claimable <game> [--at T]   Can the waiting player claim a timeout?
  watch <file.jsonl>          Follow a growing export, print changed games

Ratings:
  ratings [--reset]           Fold finished games into the Elo table
  rating <player>             Show a player's rating

Aliases:
  ls = games, show = state

Games are named author/permlink.

Environment:
  REVERSTEEM_CONFIG       YAML config file (default: reversteem.yaml if present)
  REVERSTEEM_DB           SQLite database path (default: .reversteem/reversteem.db)
  REVERSTEEM_CACHE        Cache backend: sqlite, redis, memory, none
  REVERSTEEM_REDIS_ADDR   Redis address for the redis backend
  REVERSTEEM_LOG_LEVEL    trace, debug, info, warn, error

All commands support --json for machine-readable output.

Exit codes:
  0  success
  1  error
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "rv: "+format+"\n", args...)
	os.Exit(1)
}
