// Package observability exposes Prometheus metrics for the engine and
// its HTTP surface.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	cachesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_caches_total",
			Help: "Cache lifecycle transitions by event.",
		},
		[]string{"event"},
	)

	coinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_coins_total",
			Help: "Coin transfers by direction.",
		},
		[]string{"event"},
	)

	windowRecomputeSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "game_window_recompute_seconds",
			Help:    "Duration of visibility window recomputation.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func IncCacheSpawned()  { cachesTotal.WithLabelValues("spawned").Inc() }
func IncCacheRestored() { cachesTotal.WithLabelValues("restored").Inc() }
func IncCacheEvicted()  { cachesTotal.WithLabelValues("evicted").Inc() }

func IncCoinCollected() { coinsTotal.WithLabelValues("collected").Inc() }
func IncCoinDeposited() { coinsTotal.WithLabelValues("deposited").Inc() }

func ObserveWindowRecompute(durationSeconds float64) {
	windowRecomputeSeconds.Observe(durationSeconds)
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
