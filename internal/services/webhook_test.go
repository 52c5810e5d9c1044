package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/appleboy/go-httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "hook-secret"

func newTestWebhook(t *testing.T, handler http.HandlerFunc, maxRetries int, delay time.Duration) *WebhookHook {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hook, err := NewWebhookHook(WebhookOptions{
		URL:        srv.URL + "/decisions?source=codegrant",
		AuthMode:   httpclient.AuthModeHMAC,
		Secret:     testWebhookSecret,
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
		RetryDelay: delay,
	}, nil)
	require.NoError(t, err)
	return hook
}

func TestNewWebhookHook_Options(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		secret  string
		wantErr string
	}{
		{name: "empty mode means none", mode: ""},
		{name: "none", mode: httpclient.AuthModeNone},
		{name: "simple", mode: httpclient.AuthModeSimple, secret: "s"},
		{name: "hmac", mode: httpclient.AuthModeHMAC, secret: "s"},
		{name: "github", mode: httpclient.AuthModeGitHub, secret: "s"},
		{name: "simple without secret", mode: httpclient.AuthModeSimple, wantErr: "secret is required"},
		{name: "hmac without secret", mode: httpclient.AuthModeHMAC, wantErr: "secret is required"},
		{name: "unknown mode", mode: "oauth", secret: "s", wantErr: "unsupported authentication mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook, err := NewWebhookHook(WebhookOptions{
				URL:      "https://hooks.example.com/decisions",
				AuthMode: tt.mode,
				Secret:   tt.secret,
			}, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, hook)
		})
	}
}

func TestWebhookHook_PostsSignedEvent(t *testing.T) {
	var (
		received  WebhookEvent
		verifyErr atomic.Value
		requestID atomic.Value
	)
	verifier := httpclient.NewAuthConfig(httpclient.AuthModeHMAC, testWebhookSecret)
	hook := newTestWebhook(t, func(w http.ResponseWriter, r *http.Request) {
		if err := verifier.Verify(r); err != nil {
			verifyErr.Store(err.Error())
		}
		requestID.Store(r.Header.Get(httpclient.DefaultRequestIDHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}, 0, time.Millisecond)

	hook.AfterAuthorize(context.Background(), testEvent)

	assert.Nil(t, verifyErr.Load())
	assert.NotEmpty(t, requestID.Load())
	assert.Equal(t, "after_authorize", received.Event)
	assert.Equal(t, testClientID, received.ClientID)
	assert.Equal(t, testOwnerModel, received.OwnerModel)
	assert.Equal(t, testOwnerID, received.OwnerID)
	assert.Equal(t, []string{"read"}, received.Scopes)
	assert.False(t, received.OccurredAt.IsZero())
	assert.Nil(t, hook.BeforeAuthorize(context.Background(), testEvent))
}

func TestWebhookHook_WrongSecretFailsVerification(t *testing.T) {
	var rejected atomic.Bool
	verifier := httpclient.NewAuthConfig(httpclient.AuthModeHMAC, "other-secret")
	hook := newTestWebhook(t, func(w http.ResponseWriter, r *http.Request) {
		if verifier.Verify(r) != nil {
			rejected.Store(true)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}, 2, time.Millisecond)

	hook.AfterDeny(context.Background(), testEvent)
	assert.True(t, rejected.Load())
}

func TestWebhookHook_Retries(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
	}{
		{name: "recovers after server error", statuses: []int{500, 200}, wantCalls: 2},
		{name: "gives up after max retries", statuses: []int{502, 503, 504, 500}, wantCalls: 3},
		{name: "client error is not retried", statuses: []int{400, 200}, wantCalls: 1},
		{name: "rate limit is retried", statuses: []int{429, 204}, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			hook := newTestWebhook(t, func(w http.ResponseWriter, _ *http.Request) {
				n := calls.Add(1)
				w.WriteHeader(tt.statuses[n-1])
			}, 2, time.Millisecond)

			hook.AfterDeny(context.Background(), testEvent)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestWebhookHook_HonorsContext(t *testing.T) {
	var calls atomic.Int32
	hook := newTestWebhook(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 5, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	hook.AfterDeny(ctx, testEvent)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), calls.Load())
}
