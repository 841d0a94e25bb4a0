// Package metrics holds the Prometheus collectors for replay, cache and
// rating activity. They register with the default registry on import;
// `rv watch --metrics-addr` exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reversteem_cache_lookups_total",
			Help: "Replay cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)
	CacheStoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reversteem_cache_store_errors_total",
			Help: "Failed cache reads and writes by operation",
		},
		[]string{"op"},
	)
	Replays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reversteem_replays_total",
			Help: "Full replays of a game log",
		},
	)
	RatedGames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reversteem_rated_games_total",
			Help: "Finished games folded into the rating table",
		},
	)
	IngestedPosts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reversteem_ingested_posts_total",
			Help: "Posts appended to the record log by kind (root, reply)",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(CacheLookups)
	prometheus.MustRegister(CacheStoreErrors)
	prometheus.MustRegister(Replays)
	prometheus.MustRegister(RatedGames)
	prometheus.MustRegister(IngestedPosts)
}
