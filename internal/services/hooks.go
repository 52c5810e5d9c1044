package services

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/go-authgate/codegrant/internal/core"

	"pkt.systems/pslog"
)

// HookDispatcher fans authorization events out to the registered hooks.
// BeforeAuthorize runs synchronously under a timeout; the after hooks run in
// the background and never block the request.
type HookDispatcher struct {
	hooks   []core.EventHook
	timeout time.Duration
	logger  pslog.Logger
	wg      sync.WaitGroup
}

func NewHookDispatcher(timeout time.Duration, logger pslog.Logger, hooks ...core.EventHook) *HookDispatcher {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &HookDispatcher{
		hooks:   hooks,
		timeout: timeout,
		logger:  logger,
	}
}

// BeforeAuthorize collects the variables returned by every hook. Hooks that
// panic or exceed the timeout contribute nothing. Later hooks win on key
// conflicts.
func (d *HookDispatcher) BeforeAuthorize(ctx context.Context, ev core.EventContext) map[string]any {
	vars := map[string]any{}
	if len(d.hooks) == 0 {
		return vars
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type hookResult struct {
		index int
		vars  map[string]any
	}
	ch := make(chan hookResult, len(d.hooks))
	for i, hook := range d.hooks {
		go func() {
			var out map[string]any
			defer func() { ch <- hookResult{index: i, vars: out} }()
			defer d.recoverHook("before_authorize", i)
			out = hook.BeforeAuthorize(ctx, ev)
		}()
	}

	results := make([]map[string]any, len(d.hooks))
collect:
	for range d.hooks {
		select {
		case r := <-ch:
			results[r.index] = r.vars
		case <-ctx.Done():
			d.logger.Warn("hooks.before_authorize.timeout", "client_id", ev.ClientID)
			break collect
		}
	}

	for _, r := range results {
		maps.Copy(vars, r)
	}
	return vars
}

// AfterAuthorize notifies hooks that the owner granted access.
func (d *HookDispatcher) AfterAuthorize(ctx context.Context, ev core.EventContext) {
	d.dispatch(ctx, "after_authorize", func(ctx context.Context, h core.EventHook) {
		h.AfterAuthorize(ctx, ev)
	})
}

// AfterDeny notifies hooks that the owner refused access.
func (d *HookDispatcher) AfterDeny(ctx context.Context, ev core.EventContext) {
	d.dispatch(ctx, "after_deny", func(ctx context.Context, h core.EventHook) {
		h.AfterDeny(ctx, ev)
	})
}

func (d *HookDispatcher) dispatch(
	ctx context.Context,
	event string,
	fn func(ctx context.Context, h core.EventHook),
) {
	// Detach from the request so hooks outlive the response.
	ctx = context.WithoutCancel(ctx)
	for i, hook := range d.hooks {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer d.recoverHook(event, i)
			hctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			fn(hctx, hook)
		}()
	}
}

func (d *HookDispatcher) recoverHook(event string, index int) {
	if r := recover(); r != nil {
		d.logger.Error("hooks.panic", "event", event, "hook", index, "panic", fmt.Sprint(r))
	}
}

// Wait blocks until background hooks finish or ctx is done.
func (d *HookDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoggingHook records authorization events in the application log.
type LoggingHook struct {
	Logger pslog.Logger
}

var _ core.EventHook = LoggingHook{}

func (h LoggingHook) BeforeAuthorize(_ context.Context, ev core.EventContext) map[string]any {
	h.Logger.Debug("hooks.before_authorize", eventFields(ev)...)
	return nil
}

func (h LoggingHook) AfterAuthorize(_ context.Context, ev core.EventContext) {
	h.Logger.Info("hooks.after_authorize", eventFields(ev)...)
}

func (h LoggingHook) AfterDeny(_ context.Context, ev core.EventContext) {
	h.Logger.Info("hooks.after_deny", eventFields(ev)...)
}

func eventFields(ev core.EventContext) []any {
	return []any{
		"client_id", ev.ClientID,
		"owner_model", ev.OwnerModel,
		"owner_id", ev.OwnerID,
		"scope", joinScopes(ev.Scopes),
	}
}
