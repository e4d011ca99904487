package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and query log Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "permitsearch",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"mode", "status"},
	)

	SearchResultCount = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "permitsearch",
			Name:      "search_result_count",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"mode"},
	)

	QueryLogWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "permitsearch",
			Name:      "query_log_writes_total",
			Help:      "Query log write attempts by outcome",
		},
		[]string{"status"}, // "ok" / "error"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchResultCount)
	prometheus.MustRegister(QueryLogWritesTotal)
	searchMetricsRegistered = true
}
