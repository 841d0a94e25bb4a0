package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsRegistered(t *testing.T) {
	for _, c := range []prometheus.Collector{CacheLookups, CacheStoreErrors, Replays, RatedGames, IngestedPosts} {
		err := prometheus.Register(c)
		var already prometheus.AlreadyRegisteredError
		assert.ErrorAs(t, err, &already)
	}
}

func TestCacheLookupsByResult(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(CacheLookups.WithLabelValues("miss"))

	CacheLookups.WithLabelValues("hit").Inc()
	CacheLookups.WithLabelValues("hit").Inc()
	CacheLookups.WithLabelValues("miss").Inc()

	assert.Equal(t, hits+2, testutil.ToFloat64(CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+1, testutil.ToFloat64(CacheLookups.WithLabelValues("miss")))
}
