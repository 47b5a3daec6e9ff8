package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are registered on a per-engine registry so two engines in one
// process (tests, embedding hosts) never collide on the global default.
type metrics struct {
	filesIndexed   prometheus.Counter
	filesUnchanged prometheus.Counter
	filesRemoved   prometheus.Counter
	indexErrors    prometheus.Counter
	searchDuration *prometheus.HistogramVec
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		filesIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "rune_files_indexed_total",
			Help: "Files fully indexed (new or changed content).",
		}),
		filesUnchanged: factory.NewCounter(prometheus.CounterOpts{
			Name: "rune_files_unchanged_total",
			Help: "Pipeline passes skipped because the content hash was unchanged.",
		}),
		filesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "rune_files_removed_total",
			Help: "Files purged from all indexes after deletion.",
		}),
		indexErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "rune_index_errors_total",
			Help: "Per-file indexing failures that were skipped.",
		}),
		searchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rune_search_duration_seconds",
			Help:    "Search latency by mode.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"mode"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "rune_query_cache_hits_total",
			Help: "Searches answered from the query cache.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "rune_query_cache_misses_total",
			Help: "Searches that had to run executors.",
		}),
	}
}
