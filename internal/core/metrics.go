package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Authorization Code Grant
	RecordAuthorizationCodeIssued(success bool)
	RecordAuthorizationDecision(decision string) // approved, auto_approved, denied
	RecordCodeExchange(result string)            // success, invalid_grant, invalid_client, error

	// Token Operations
	RecordTokenIssued(tokenType, grantType string, generationTime time.Duration)
	RecordTokenRevoked(tokenType, reason string, count int)
	RecordTokenRefresh(success bool)
	RecordTokenValidation(result string, duration time.Duration)

	// Storage
	RecordStorageError(operation string)
}
