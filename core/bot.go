package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultPollLimit    = 100
	defaultPollInterval = 10 * time.Millisecond
	maxFetchBackoff     = 30 * time.Second
)

// UpdateSource fetches batches of updates from the outside world. Batches are
// ordered ascending by update identifier, and a failed fetch is safe to retry
// with the same offset.
type UpdateSource interface {
	FetchUpdates(ctx context.Context, offset int64, limit int, timeout time.Duration, allowed []Kind) ([]*Update, error)
}

// Config carries the bot's tunables. The zero value is usable.
type Config struct {
	// PollTimeout is the server-side long-poll duration passed to the source.
	PollTimeout time.Duration
	// PollLimit caps the batch size requested per fetch.
	PollLimit int
	// PollInterval is the yield between polls so the loop never runs hot.
	PollInterval time.Duration
	// AllowedKinds restricts which update kinds the source should deliver.
	// Empty means all kinds.
	AllowedKinds []Kind
	// MaxInFlight bounds concurrently dispatched updates. Zero means
	// DefaultMaxInFlight.
	MaxInFlight int64
}

// Bot owns the handler registry, middleware chain and dispatcher for one bot
// instance. Registration is legal only before Start; after Start the
// structures are shared read-only with the dispatch path.
//
// Updates reach the bot either through its own polling loop (Run) or pushed
// by a webhook transport (HandleWebhook); the two modes are mutually
// exclusive and selected by the caller.
type Bot struct {
	source UpdateSource
	cfg    Config
	logger *slog.Logger

	lc          lifecycle
	registry    *Registry
	middlewares []Middleware
	dispatcher  *Dispatcher
}

// New creates a Bot in the new state. source may be nil for webhook-only use.
func New(source UpdateSource, cfg Config, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollLimit <= 0 {
		cfg.PollLimit = defaultPollLimit
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	b := &Bot{
		source:   source,
		cfg:      cfg,
		logger:   logger,
		registry: NewRegistry(),
	}
	b.dispatcher = newDispatcher(b, b.registry, cfg.MaxInFlight, logger)
	return b
}

// State returns the bot's lifecycle state.
func (b *Bot) State() State { return b.lc.State() }

// Register binds fn to an update kind, optionally gated by filter. Legal only
// before Start.
func (b *Bot) Register(kind Kind, fn HandlerFunc, filter Filter) (*Handler, error) {
	if err := b.lc.requireNew(); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return b.registry.Register(kind, fn, filter)
}

// Unregister removes a previously registered handler. Legal only before Start.
func (b *Bot) Unregister(h *Handler) error {
	if err := b.lc.requireNew(); err != nil {
		return fmt.Errorf("unregister: %w", err)
	}
	return b.registry.Unregister(h)
}

// Use appends a middleware to the chain. Legal only before Start; the chain
// is snapshotted and composed at Start.
func (b *Bot) Use(mw Middleware) error {
	if err := b.lc.requireNew(); err != nil {
		return fmt.Errorf("add middleware: %w", err)
	}
	if mw == nil {
		return fmt.Errorf("add middleware: nil middleware")
	}
	b.middlewares = append(b.middlewares, mw)
	return nil
}

// Start composes the middleware chain and moves the bot to running. It does
// not begin polling; call Run for polling mode.
func (b *Bot) Start() error {
	if err := b.lc.transition(StateNew, StateStarting); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	b.dispatcher.prepare(b.middlewares)
	if err := b.lc.transition(StateStarting, StateRunning); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	b.logger.Info("bot started", "handlers", b.registry.Len(), "middlewares", len(b.middlewares))
	return nil
}

// Stop clears the running flag. The polling loop observes this before its
// next fetch and exits; dispatch units already in flight are not cancelled.
func (b *Bot) Stop() error {
	if err := b.lc.transition(StateRunning, StateStopping); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := b.lc.transition(StateStopping, StateStopped); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	b.logger.Info("bot stopped")
	return nil
}

// Wait blocks until all scheduled dispatch work has drained.
func (b *Bot) Wait() { b.dispatcher.Wait() }

// HandleWebhook is the push entry point for webhook mode: an external
// transport decodes a batch and hands it straight to the dispatcher. There is
// no offset tracking here; the upstream tracks delivery itself.
func (b *Bot) HandleWebhook(ctx context.Context, updates []*Update) error {
	if b.lc.State() != StateRunning {
		return fmt.Errorf("handle webhook: %w", ErrNotRunning)
	}
	b.dispatcher.HandleBatch(ctx, updates)
	return nil
}

// Run starts the bot and long-polls the source until Stop is called or ctx is
// cancelled. Fetch failures are logged and retried with exponential backoff;
// the loop never dies on a bad fetch.
//
// The last seen identifier is process-local and not durable: after a restart
// the loop re-polls from the sentinel, so already-seen updates may be
// delivered again (at-least-once).
func (b *Bot) Run(ctx context.Context) error {
	if b.source == nil {
		return fmt.Errorf("run: no update source configured")
	}
	if err := b.Start(); err != nil {
		return err
	}
	defer func() {
		if b.lc.State() == StateRunning {
			b.Stop()
		}
	}()

	b.logger.Info("polling started", "timeout", b.cfg.PollTimeout, "limit", b.cfg.PollLimit)
	b.poll(ctx)
	b.logger.Info("polling stopped")
	return nil
}

func (b *Bot) poll(ctx context.Context) {
	// Sentinel: no updates received yet, so the first offset is 0.
	lastID := int64(-1)

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = maxFetchBackoff
	bo.MaxElapsedTime = 0 // retry forever

	for b.lc.State() == StateRunning {
		if ctx.Err() != nil {
			return
		}

		updates, err := b.source.FetchUpdates(ctx, lastID+1, b.cfg.PollLimit, b.cfg.PollTimeout, b.cfg.AllowedKinds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := bo.NextBackOff()
			b.logger.Error("fetch updates failed", "offset", lastID+1, "retry_in", wait, "error", err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
			continue
		}
		bo.Reset()

		if len(updates) > 0 {
			lastID = maxUpdateID(updates, lastID)
			// ctx governs fetching only. Once an update is scheduled its
			// handlers run to completion even if the loop's context is
			// cancelled, so dispatch gets a detached context.
			b.dispatcher.HandleBatch(context.WithoutCancel(ctx), updates)
		}

		select {
		case <-time.After(b.cfg.PollInterval):
		case <-ctx.Done():
			return
		}
	}
}

func maxUpdateID(updates []*Update, floor int64) int64 {
	max := floor
	for _, u := range updates {
		if u.ID() > max {
			max = u.ID()
		}
	}
	return max
}
