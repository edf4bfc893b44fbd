package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jdelaire/botflow/adapters/telegram"
	"github.com/jdelaire/botflow/core"
	"github.com/jdelaire/botflow/core/filters"
)

const shutdownTimeout = 10 * time.Second

// runner owns the live bot instance and replaces it when the config file
// changes. Handler registration is only legal on a new bot, so a reload is a
// full stop-rebuild-start of the instance, never an in-place mutation.
type runner struct {
	configPath string
	logger     *slog.Logger
	reloadCh   chan struct{}
}

func newRunner(configPath string, logger *slog.Logger) *runner {
	return &runner{
		configPath: configPath,
		logger:     logger,
		reloadCh:   make(chan struct{}, 1),
	}
}

// requestReload schedules an instance rebuild. Coalesces bursts.
func (r *runner) requestReload() {
	select {
	case r.reloadCh <- struct{}{}:
	default:
	}
}

func (r *runner) run(ctx context.Context, cfg *Config) error {
	for {
		inst, err := r.buildInstance(ctx, cfg)
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			r.stopInstance(inst)
			return nil
		case <-r.reloadCh:
			r.logger.Info("reloading: restarting bot instance")
			r.stopInstance(inst)
			next, err := loadConfig(r.configPath)
			if err != nil {
				r.logger.Error("reload failed, keeping previous config", "error", err)
			} else {
				cfg = next
			}
		case err := <-inst.done:
			r.stopInstance(inst)
			return err
		}
	}
}

// instance is one started bot plus its delivery transport.
type instance struct {
	bot     *core.Bot
	client  *telegram.Client
	webhook *telegram.WebhookServer
	cancel  context.CancelFunc
	done    chan error
}

func (r *runner) buildInstance(ctx context.Context, cfg *Config) (*instance, error) {
	token, err := cfg.resolveToken()
	if err != nil {
		return nil, err
	}

	client := telegram.NewClient(token, r.logger)
	bot := core.New(client, cfg.coreConfig(), r.logger)

	if err := registerHandlers(bot, client, r.logger); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	inst := &instance{
		bot:    bot,
		client: client,
		cancel: cancel,
		done:   make(chan error, 1),
	}

	switch cfg.Mode {
	case "webhook":
		if err := bot.Start(); err != nil {
			cancel()
			return nil, err
		}
		hookPath := "/" + webhookSecret(token)
		ws := telegram.NewWebhookServer(cfg.Webhook.ListenAddr, hookPath, bot, r.logger)
		if err := ws.Start(); err != nil {
			cancel()
			return nil, err
		}
		inst.webhook = ws

		err := client.SetWebhook(runCtx, strings.TrimSuffix(cfg.Webhook.PublicURL, "/")+hookPath,
			telegram.WebhookOptions{
				AllowedKinds:       cfg.allowedKinds(),
				DropPendingUpdates: cfg.Webhook.DropPendingUpdates,
			})
		if err != nil {
			ws.Shutdown(context.Background())
			cancel()
			return nil, err
		}
	default: // polling
		// A registered webhook blocks getUpdates; clear it first.
		if err := client.DeleteWebhook(runCtx); err != nil {
			r.logger.Warn("delete webhook failed", "error", err)
		}
		go func() {
			inst.done <- bot.Run(runCtx)
		}()
	}

	return inst, nil
}

func (r *runner) stopInstance(inst *instance) {
	if inst.bot.State() == core.StateRunning {
		if err := inst.bot.Stop(); err != nil {
			r.logger.Warn("stop failed", "error", err)
		}
	}
	// Cancelling runCtx only unblocks the long poll; dispatch runs on a
	// detached context, so handlers already scheduled are not cancelled.
	inst.cancel()

	if inst.webhook != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := inst.webhook.Shutdown(shCtx); err != nil {
			r.logger.Warn("webhook shutdown failed", "error", err)
		}
		cancel()
	}

	// In-flight dispatch is never cancelled; let it drain.
	inst.bot.Wait()
}

// registerHandlers wires the daemon's built-in surface: a request logging
// middleware and a /ping liveness command.
func registerHandlers(bot *core.Bot, client *telegram.Client, logger *slog.Logger) error {
	err := bot.Use(func(ctx context.Context, u *core.Update, next core.Next) error {
		start := time.Now()
		err := next(ctx, u)
		logger.Debug("update dispatched",
			"update_id", u.ID(), "kind", u.Kind(), "took", time.Since(start))
		return err
	})
	if err != nil {
		return err
	}

	_, err = bot.OnMessage(func(ctx context.Context, su *core.SubUpdate, msg *core.Message) error {
		_, err := client.SendMessage(ctx, msg.Chat.ID, "pong")
		return err
	}, filters.Command("ping"))
	return err
}

// webhookSecret derives the secret path component from the token, keeping the
// bot id prefix out of URLs.
func webhookSecret(token string) string {
	if _, secret, ok := strings.Cut(token, ":"); ok && secret != "" {
		return secret
	}
	return token
}
