// Package metrics exposes the Prometheus collectors of the auth service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts every HTTP request.
	RequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_service_requests_total",
		Help: "The total number of requests",
	})

	// ResponsesTotal counts responses by status code.
	ResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_responses_total",
		Help: "The total number of responses by status code",
	}, []string{"status"})

	// RequestDuration observes request handling time.
	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auth_service_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// RequestDurationByPath observes handling time per method and route.
	RequestDurationByPath = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auth_service_request_duration_by_path_seconds",
		Help:    "The request duration in seconds by method and path",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// MagicLinkRequestsTotal counts magic link issuances.
	MagicLinkRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_magic_link_requests_total",
		Help: "The total number of magic link requests",
	}, []string{"status"})

	// SecondFactorAttemptsTotal counts second-factor verifications.
	SecondFactorAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_second_factor_attempts_total",
		Help: "The total number of second factor attempts",
	}, []string{"flow", "status"})

	// TokenRefreshTotal counts refresh token exchanges.
	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_service_token_refresh_total",
		Help: "The total number of token refreshes",
	}, []string{"status"})
)
