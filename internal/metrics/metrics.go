package metrics

import (
	"sync"
	"time"

	"github.com/go-authgate/codegrant/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is an alias for core.Recorder.
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authorization Code Grant Metrics
	AuthorizationCodesTotal     *prometheus.CounterVec
	AuthorizationDecisionsTotal *prometheus.CounterVec
	CodeExchangesTotal          *prometheus.CounterVec

	// Token Metrics
	TokensIssuedTotal       *prometheus.CounterVec
	TokensRevokedTotal      *prometheus.CounterVec
	TokensRefreshedTotal    *prometheus.CounterVec
	TokenValidationTotal    *prometheus.CounterVec
	TokenGenerationDuration *prometheus.HistogramVec
	TokenValidationDuration prometheus.Histogram

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Storage Metrics
	StorageErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		AuthorizationCodesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_authorization_codes_total",
				Help: "Total number of authorization codes issued",
			},
			[]string{"result"}, // success, error
		),
		AuthorizationDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_authorization_decisions_total",
				Help: "Total number of owner authorization decisions",
			},
			[]string{"decision"}, // approved, auto_approved, denied
		),
		CodeExchangesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_code_exchanges_total",
				Help: "Total number of authorization code exchanges",
			},
			[]string{"result"}, // success, invalid_grant, invalid_client, error
		),

		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{"token_type", "grant_type"},
		),
		TokensRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_revoked_total",
				Help: "Total number of tokens revoked",
			},
			[]string{"token_type", "reason"}, // reason: rotation, revoke_request
		),
		TokensRefreshedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_refreshed_total",
				Help: "Total number of token refresh attempts",
			},
			[]string{"result"}, // success, error
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_validation_total",
				Help: "Total number of bearer token validations",
			},
			[]string{"result"}, // valid, invalid, expired, revoked, error
		),
		TokenGenerationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oauth_token_generation_duration_seconds",
				Help:    "Time taken to generate tokens",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"grant_type"},
		),
		TokenValidationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oauth_token_validation_duration_seconds",
				Help:    "Time taken to validate bearer tokens",
				Buckets: prometheus.DefBuckets,
			},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		StorageErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_errors_total",
				Help: "Total number of failed storage operations",
			},
			[]string{"operation"},
		),
	}
}

// RecordAuthorizationCodeIssued records code minting
func (m *Metrics) RecordAuthorizationCodeIssued(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.AuthorizationCodesTotal.WithLabelValues(result).Inc()
}

// RecordAuthorizationDecision records approve, auto-approve and deny outcomes
func (m *Metrics) RecordAuthorizationDecision(decision string) {
	m.AuthorizationDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordCodeExchange records the outcome of a code exchange
func (m *Metrics) RecordCodeExchange(result string) {
	m.CodeExchangesTotal.WithLabelValues(result).Inc()
}

// RecordTokenIssued records token issuance
func (m *Metrics) RecordTokenIssued(tokenType, grantType string, generationTime time.Duration) {
	m.TokensIssuedTotal.WithLabelValues(tokenType, grantType).Inc()
	m.TokenGenerationDuration.WithLabelValues(grantType).Observe(generationTime.Seconds())
}

// RecordTokenRevoked records token revocation
func (m *Metrics) RecordTokenRevoked(tokenType, reason string, count int) {
	if count <= 0 {
		return
	}
	m.TokensRevokedTotal.WithLabelValues(tokenType, reason).Add(float64(count))
}

// RecordTokenRefresh records token refresh attempt
func (m *Metrics) RecordTokenRefresh(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.TokensRefreshedTotal.WithLabelValues(result).Inc()
}

// RecordTokenValidation records bearer token validation
func (m *Metrics) RecordTokenValidation(result string, duration time.Duration) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
	m.TokenValidationDuration.Observe(duration.Seconds())
}

// RecordStorageError records a failed storage operation
func (m *Metrics) RecordStorageError(operation string) {
	m.StorageErrorsTotal.WithLabelValues(operation).Inc()
}
