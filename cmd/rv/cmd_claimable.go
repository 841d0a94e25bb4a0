package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/reversteem/reversteem/pkg/model"
	"github.com/reversteem/reversteem/pkg/replay"
)

// cmdClaimable is advisory: it reads the wall clock and never changes
// state. Only a logged claim ends a game.
func (a *app) cmdClaimable(args []string) int {
	flags := flag.NewFlagSet("claimable", flag.ContinueOnError)
	atFlag := flags.String("at", "", "evaluate at this RFC3339 time instead of now")
	as := flags.String("as", "", "claimant; prints the claim metadata to post")
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseInterspersed(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "rv: claimable: usage: rv claimable <author/permlink> [--at T] [--as player]")
		return 1
	}
	id, err := parseGameID(pos[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv: claimable: %v\n", err)
		return 1
	}
	now := time.Now().UTC()
	if *atFlag != "" {
		now, err = model.ParseTime(*atFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rv: claimable: --at: %v\n", err)
			return 1
		}
	}

	st, err := a.gameState(context.Background(), id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv: claimable: %v\n", err)
		return 1
	}

	result := map[string]interface{}{
		"game":      id,
		"at":        now,
		"claimable": replay.TimeoutClaimable(st, now),
		"remaining": replay.TimeRemaining(st, now).String(),
	}
	var claimMeta string
	if *as != "" {
		if c, ok := replay.PendingClaim(st, *as, now); ok {
			claimMeta = replay.ClaimMetadata(c)
			result["json_metadata"] = claimMeta
		}
	}

	if *jsonOut {
		printJSON(result)
		return 0
	}
	if replay.TimeoutClaimable(st, now) {
		stalled := st.PlayerOf(st.Turn)
		fmt.Printf("%s: %s (%s) is out of time; %s may claim\n", id, stalled, st.Turn, st.PlayerOf(st.Turn.Opponent()))
	} else {
		fmt.Printf("%s: no timeout claim available (%s)\n", id, replay.Status(st))
		if left := replay.TimeRemaining(st, now); left > 0 {
			fmt.Printf("  %s remaining for %s\n", left.Truncate(time.Second), st.PlayerOf(st.Turn))
		}
	}
	if claimMeta != "" {
		fmt.Printf("  post as a reply with json_metadata: %s\n", claimMeta)
	} else if *as != "" {
		fmt.Printf("  %s has nothing to claim\n", *as)
	}
	return 0
}
