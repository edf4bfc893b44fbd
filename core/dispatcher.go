package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxInFlight bounds concurrently dispatched updates when the bot's
// config leaves the limit unset.
const DefaultMaxInFlight = 32

// Dispatcher runs the middleware-wrapped fan-out for each update in a batch.
// Failures anywhere inside one update's dispatch path are contained to that
// update; failures inside one handler are contained to that handler.
type Dispatcher struct {
	bot      *Bot
	registry *Registry
	logger   *slog.Logger

	// sem bounds in-flight updates for backpressure under burst load.
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	// invoke is the composed middleware chain, snapshotted at start.
	invoke Next
}

func newDispatcher(bot *Bot, registry *Registry, maxInFlight int64, logger *slog.Logger) *Dispatcher {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	d := &Dispatcher{
		bot:      bot,
		registry: registry,
		logger:   logger,
		sem:      semaphore.NewWeighted(maxInFlight),
	}
	d.invoke = d.fanOut
	return d
}

// prepare composes the middleware chain around the fan-out step. Called once
// during Start; the chain is immutable afterwards.
func (d *Dispatcher) prepare(mws []Middleware) {
	d.invoke = composeChain(mws, d.fanOut)
}

// HandleBatch schedules one concurrent unit of work per update and returns.
// Scheduling follows batch order; completion order is unconstrained. When the
// in-flight bound is saturated, scheduling blocks until a slot frees, which
// is the engine's backpressure.
func (d *Dispatcher) HandleBatch(ctx context.Context, updates []*Update) {
	for _, u := range updates {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.logger.Warn("batch scheduling aborted", "error", err)
			return
		}
		d.wg.Add(1)
		go func(u *Update) {
			defer d.wg.Done()
			defer d.sem.Release(1)
			d.dispatch(ctx, u)
		}(u)
	}
}

// Wait blocks until every scheduled update has finished dispatching.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// dispatch runs one update through the composed chain. This is the outermost
// boundary for that update: errors and panics stop here.
func (d *Dispatcher) dispatch(ctx context.Context, u *Update) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch panicked",
				"update_id", u.ID(), "kind", u.Kind(), "panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	if err := d.invoke(ctx, u); err != nil {
		d.logger.Error("dispatch failed", "update_id", u.ID(), "kind", u.Kind(), "error", err)
	}
}

// fanOut is the terminal step of the chain: look up the handlers for the
// update's kind and invoke every passing one concurrently. It returns only
// once all invoked handlers have completed or failed.
func (d *Dispatcher) fanOut(ctx context.Context, u *Update) error {
	handlers := d.registry.HandlersFor(u.Kind())
	if len(handlers) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h *Handler) {
			defer wg.Done()
			d.callHandler(ctx, h, u)
		}(h)
	}
	wg.Wait()
	return nil
}

// callHandler evaluates the handler's filter and, if it passes, runs the
// callback. Filter and handler failures alike are logged with the handler's
// identity and the serialized sub-update, then swallowed.
func (d *Dispatcher) callHandler(ctx context.Context, h *Handler, u *Update) {
	su := &SubUpdate{
		Bot:     d.bot,
		ID:      u.ID(),
		Kind:    u.Kind(),
		Payload: u.Payload(),
		Extra:   u.extra.clone(),
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				"handler", h.id, "kind", h.kind, "update", serialize(su.Payload),
				"panic", r, "stack", string(debug.Stack()))
		}
	}()

	ok, err := evaluateFilter(ctx, h, su)
	if err != nil {
		d.logger.Error("filter failed",
			"handler", h.id, "kind", h.kind, "update", serialize(su.Payload), "error", err)
		return
	}
	if !ok {
		return
	}

	if err := h.fn(ctx, su); err != nil {
		d.logger.Error("handler failed",
			"handler", h.id, "kind", h.kind, "update", serialize(su.Payload), "error", err)
	}
}

// serialize renders a payload for log output, best effort.
func serialize(p Payload) string {
	b, err := json.Marshal(p)
	if err != nil {
		return "<unserializable>"
	}
	return string(b)
}
