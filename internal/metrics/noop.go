package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Authorization Code Grant - noop implementations
func (n *NoopMetrics) RecordAuthorizationCodeIssued(success bool)  {}
func (n *NoopMetrics) RecordAuthorizationDecision(decision string) {}
func (n *NoopMetrics) RecordCodeExchange(result string)            {}

// Token Operations - noop implementations
func (n *NoopMetrics) RecordTokenIssued(
	tokenType, grantType string,
	generationTime time.Duration,
) {
}

func (n *NoopMetrics) RecordTokenRevoked(tokenType, reason string, count int)      {}
func (n *NoopMetrics) RecordTokenRefresh(success bool)                             {}
func (n *NoopMetrics) RecordTokenValidation(result string, duration time.Duration) {}

// Storage - noop implementations
func (n *NoopMetrics) RecordStorageError(operation string) {}
