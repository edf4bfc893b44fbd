package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jdelaire/botflow/core"
	"github.com/jdelaire/botflow/internal/keychain"
)

// Config is the file-level configuration for the botflow daemon.
type Config struct {
	// Token is the bot token. Empty means: read from the BOTFLOW_TOKEN env
	// var, then from the OS keychain.
	Token string `mapstructure:"token"`

	// Mode selects update delivery: "polling" or "webhook".
	Mode string `mapstructure:"mode"`

	LogLevel string `mapstructure:"log_level"`

	PollTimeoutSeconds int      `mapstructure:"poll_timeout_seconds"`
	PollLimit          int      `mapstructure:"poll_limit"`
	AllowedUpdates     []string `mapstructure:"allowed_updates"`
	MaxInFlight        int64    `mapstructure:"max_in_flight"`

	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig configures webhook mode.
type WebhookConfig struct {
	// ListenAddr is the local address the webhook server binds.
	ListenAddr string `mapstructure:"listen_addr"`
	// PublicURL is the externally reachable base URL registered upstream.
	PublicURL string `mapstructure:"public_url"`
	// DropPendingUpdates discards the upstream backlog when registering.
	DropPendingUpdates bool `mapstructure:"drop_pending_updates"`
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BOTFLOW")
	v.AutomaticEnv()

	v.SetDefault("token", "") // picked up from BOTFLOW_TOKEN when unset
	v.SetDefault("mode", "polling")
	v.SetDefault("log_level", "info")
	v.SetDefault("poll_timeout_seconds", 30)
	v.SetDefault("poll_limit", 100)
	v.SetDefault("max_in_flight", core.DefaultMaxInFlight)
	v.SetDefault("webhook.listen_addr", "0.0.0.0:8055")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case "polling":
	case "webhook":
		if c.Webhook.PublicURL == "" {
			return fmt.Errorf("webhook mode requires webhook.public_url")
		}
	default:
		return fmt.Errorf("unknown mode %q (want polling or webhook)", c.Mode)
	}
	for _, name := range c.AllowedUpdates {
		if !core.Kind(name).Valid() {
			return fmt.Errorf("unknown update kind in allowed_updates: %q", name)
		}
	}
	return nil
}

func (c *Config) allowedKinds() []core.Kind {
	kinds := make([]core.Kind, 0, len(c.AllowedUpdates))
	for _, name := range c.AllowedUpdates {
		kinds = append(kinds, core.Kind(name))
	}
	return kinds
}

func (c *Config) coreConfig() core.Config {
	return core.Config{
		PollTimeout:  time.Duration(c.PollTimeoutSeconds) * time.Second,
		PollLimit:    c.PollLimit,
		AllowedKinds: c.allowedKinds(),
		MaxInFlight:  c.MaxInFlight,
	}
}

// resolveToken finds the bot token: config file first, then the keychain.
// (Env is already folded in by viper's AutomaticEnv.)
func (c *Config) resolveToken() (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	token, err := keychain.BotToken()
	if err != nil {
		return "", fmt.Errorf("no token in config and keychain lookup failed: %w (hint: botflow token set)", err)
	}
	return token, nil
}
