package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/reversteem/reversteem/pkg/ingest"
	"github.com/reversteem/reversteem/pkg/logging"
)

func (a *app) cmdIngest(args []string) int {
	flags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseInterspersed(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) == 0 {
		fmt.Fprintln(os.Stderr, "rv: ingest: file required (use - for stdin)")
		return 1
	}

	in := ingest.New(a.store, logging.Component("ingest"))
	ctx := context.Background()
	var total ingest.Stats
	for _, path := range pos {
		stats, err := a.ingestFile(ctx, in, path)
		total.Add(stats)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rv: ingest: %s: %v\n", path, err)
			return 1
		}
	}

	if *jsonOut {
		printJSON(total)
	} else {
		fmt.Printf("ingested %d game(s), %d action(s)", total.Games, total.Replies)
		if total.Duplicates > 0 {
			fmt.Printf(", %d already known", total.Duplicates)
		}
		if total.Skipped > 0 {
			fmt.Printf(", %d skipped", total.Skipped)
		}
		fmt.Println()
		for _, id := range total.Touched {
			fmt.Printf("  updated %s\n", id)
		}
	}
	return 0
}

func (a *app) ingestFile(ctx context.Context, in *ingest.Ingester, path string) (ingest.Stats, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return ingest.Stats{}, err
		}
		defer f.Close()
		r = f
	}
	return in.Read(ctx, r)
}
