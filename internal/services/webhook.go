package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-authgate/codegrant/internal/core"

	"github.com/appleboy/go-httpclient"
	httpretry "github.com/appleboy/go-httpretry"
	"github.com/google/uuid"
	"pkt.systems/pslog"
)

const defaultWebhookRetryDelay = 500 * time.Millisecond

var errWebhookSecretRequired = errors.New("secret is required")

// WebhookEvent is the JSON body posted for every decision.
type WebhookEvent struct {
	Event       string    `json:"event"`
	ClientID    string    `json:"client_id"`
	OwnerModel  string    `json:"owner_model"`
	OwnerID     string    `json:"owner_id"`
	RedirectURI string    `json:"redirect_uri"`
	Scopes      []string  `json:"scopes"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// WebhookOptions configures a WebhookHook.
type WebhookOptions struct {
	URL        string
	AuthMode   string // none, simple, hmac or github
	Secret     string
	Timeout    time.Duration // per attempt; zero keeps the client default
	MaxRetries int
	RetryDelay time.Duration // zero means defaultWebhookRetryDelay
}

// WebhookHook posts approve and deny decisions to an external endpoint.
// Requests are signed by an authenticating transport; transport errors,
// 5xx and 429 responses are retried, other statuses are not.
type WebhookHook struct {
	url    string
	client *httpretry.Client
	logger pslog.Logger
}

var _ core.EventHook = (*WebhookHook)(nil)

func NewWebhookHook(opts WebhookOptions, logger pslog.Logger) (*WebhookHook, error) {
	if logger == nil {
		logger = pslog.NoopLogger()
	}

	switch opts.AuthMode {
	case "", httpclient.AuthModeNone:
		opts.AuthMode = httpclient.AuthModeNone
	case httpclient.AuthModeSimple, httpclient.AuthModeHMAC, httpclient.AuthModeGitHub:
		if opts.Secret == "" {
			return nil, fmt.Errorf("%s mode: %w", opts.AuthMode, errWebhookSecretRequired)
		}
	default:
		return nil, fmt.Errorf("unsupported authentication mode: %s", opts.AuthMode)
	}

	authOpts := []httpclient.ClientOption{
		httpclient.WithRequestID(uuid.NewString),
	}
	if opts.Timeout > 0 {
		authOpts = append(authOpts, httpclient.WithTimeout(opts.Timeout))
	}
	authClient, err := httpclient.NewAuthClient(opts.AuthMode, opts.Secret, authOpts...)
	if err != nil {
		return nil, err
	}

	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultWebhookRetryDelay
	}
	retryOpts := []httpretry.Option{
		httpretry.WithHTTPClient(authClient),
		httpretry.WithMaxRetries(opts.MaxRetries),
		httpretry.WithInitialRetryDelay(delay),
		httpretry.WithMaxRetryDelay(4 * delay),
		httpretry.WithLogger(logger),
	}
	if opts.Timeout > 0 {
		retryOpts = append(retryOpts, httpretry.WithPerAttemptTimeout(opts.Timeout))
	}
	client, err := httpretry.NewWebhookClient(retryOpts...)
	if err != nil {
		return nil, err
	}

	return &WebhookHook{url: opts.URL, client: client, logger: logger}, nil
}

// BeforeAuthorize contributes no prompt variables.
func (h *WebhookHook) BeforeAuthorize(context.Context, core.EventContext) map[string]any {
	return nil
}

func (h *WebhookHook) AfterAuthorize(ctx context.Context, ev core.EventContext) {
	h.send(ctx, "after_authorize", ev)
}

func (h *WebhookHook) AfterDeny(ctx context.Context, ev core.EventContext) {
	h.send(ctx, "after_deny", ev)
}

func (h *WebhookHook) send(ctx context.Context, event string, ev core.EventContext) {
	body, err := json.Marshal(WebhookEvent{
		Event:       event,
		ClientID:    ev.ClientID,
		OwnerModel:  ev.OwnerModel,
		OwnerID:     ev.OwnerID,
		RedirectURI: ev.RedirectURI,
		Scopes:      ev.Scopes,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("webhook.marshal_failed", "event", event, "error", err)
		return
	}

	resp, err := h.client.Post(ctx, h.url,
		httpretry.WithBody("application/json", bytes.NewReader(body)),
	)
	if resp != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	if err == nil && (resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices) {
		err = fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	if err != nil {
		h.logger.Warn("webhook.delivery_failed",
			"event", event,
			"client_id", ev.ClientID,
			"error", err,
		)
		return
	}
	h.logger.Debug("webhook.delivered", "event", event, "client_id", ev.ClientID)
}
