// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SongsCreated counts songs persisted through the builder.
	// Labels:
	//   - source: "api" or "csv"
	SongsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songcatalog_songs_created_total",
			Help: "Total number of songs created",
		},
		[]string{"source"},
	)

	// EntitiesCreated counts albums, writers and singers inserted by get-or-create.
	EntitiesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songcatalog_entities_created_total",
			Help: "Total number of related entities created on first reference",
		},
		[]string{"kind"},
	)

	// ImportRows counts CSV rows by outcome ("processed", "failed").
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songcatalog_import_rows_total",
			Help: "Total number of CSV import rows by outcome",
		},
		[]string{"outcome"},
	)

	// LyricsLookups counts lyrics read-path outcomes
	// ("found", "song_not_found", "lyrics_not_found", "error").
	LyricsLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songcatalog_lyrics_lookups_total",
			Help: "Total number of lyrics lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// HTTPRequestDuration observes handler latency by route pattern and status.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "songcatalog_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status code",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)
