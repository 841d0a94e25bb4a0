package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reversteem/reversteem/pkg/ingest"
	"github.com/reversteem/reversteem/pkg/logging"
)

func (a *app) cmdWatch(args []string) int {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	metricsAddr := flags.String("metrics-addr", a.cfg.Metrics.Addr, "serve Prometheus metrics on this address")
	jsonOut := flags.Bool("json", false, "JSON output (one JSON object per line)")
	pos, err := parseInterspersed(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "rv: watch: usage: rv watch <file.jsonl> [--metrics-addr :9090]")
		return 1
	}

	tail, err := ingest.NewTailer(pos[0], logging.Component("tail"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "rv: watch: %v\n", err)
		return 1
	}
	in := ingest.New(a.store, logging.Component("ingest"))
	tail.OnLines = func(ctx context.Context, data []byte) error {
		stats, err := in.Read(ctx, bytes.NewReader(data))
		if err != nil {
			return err
		}
		a.reportChanges(ctx, stats.Touched, *jsonOut)
		return nil
	}

	// Handle ctrl-c gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error().Err(err).Str("addr", *metricsAddr).Msg("metrics server stopped")
			}
		}()
		defer func() {
			shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdown)
		}()
		fmt.Fprintf(os.Stderr, "metrics on http://%s/metrics\n", *metricsAddr)
	}

	fmt.Fprintf(os.Stderr, "watching %s (ctrl-c to stop)\n", pos[0])
	if err := tail.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "rv: watch: %v\n", err)
		return 1
	}
	fmt.Fprintln(os.Stderr, "\nstopped")
	return 0
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// reportChanges prints the fresh state of every game that gained records.
func (a *app) reportChanges(ctx context.Context, ids []string, jsonOut bool) {
	for _, id := range ids {
		st, err := a.gameState(ctx, id)
		if err != nil {
			a.log.Warn().Err(err).Str("game", id).Msg("replay failed")
			continue
		}
		s := summarize(id, st)
		if jsonOut {
			b, _ := json.Marshal(s)
			fmt.Println(string(b))
		} else {
			printSummary(s)
		}
	}
}
