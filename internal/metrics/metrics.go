// Package metrics provides Prometheus metrics for the MTG Tracker.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtg_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mtg_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Daily Pipeline Metrics
	DailyRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtg_daily_runs_total",
			Help: "Daily pipeline runs by outcome",
		},
		[]string{"status"}, // "ok" or "error"
	)

	DailyRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mtg_daily_run_duration_seconds",
			Help:    "Time taken for a full daily pipeline run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	StateRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtg_state_rows",
			Help: "Rows in the rolling price state after the last run",
		},
	)

	StateDistinctDates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtg_state_distinct_dates",
			Help: "Distinct observation dates retained in the rolling state",
		},
	)

	TodayPriceRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtg_today_price_rows",
			Help: "Price rows extracted from the latest daily dump",
		},
	)

	// Spike Metrics
	SpikesDetected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtg_spikes_detected",
			Help: "Detail spike rows flagged by the last run",
		},
	)

	SpikedCards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtg_spiked_cards",
			Help: "Unique (card, finish) keys flagged by the last run",
		},
	)

	// Collection Metrics
	CollectionKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtg_collection_keys",
			Help: "Unique (scryfall_id, finish) keys in the collection",
		},
	)

	CollectionQuantity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtg_collection_quantity",
			Help: "Total card quantity across the collection",
		},
	)

	CollectionValueUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtg_collection_value_usd",
			Help: "Estimated collection value at the latest observed prices",
		},
	)
)
