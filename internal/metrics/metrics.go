package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devfolio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devfolio_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	IngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devfolio_ingests_total",
			Help: "Profile ingests by outcome",
		},
		[]string{"outcome"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devfolio_upstream_request_duration_seconds",
			Help:    "Duration of GitHub API and avatar download requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	AvatarPresignFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devfolio_avatar_presign_failures_total",
			Help: "Gallery entries returned without a signed avatar URL",
		},
	)

	GalleryProfiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devfolio_gallery_profiles",
			Help: "Number of profiles returned by the last gallery listing",
		},
	)
)

// Ingest outcomes
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid"
	OutcomeUpstreamError = "upstream_error"
	OutcomeStorageError  = "storage_error"
)
