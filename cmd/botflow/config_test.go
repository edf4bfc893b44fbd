package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdelaire/botflow/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "botflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "token: \"123:abc\"\n")

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "polling", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30, cfg.PollTimeoutSeconds)
	assert.Equal(t, 100, cfg.PollLimit)
	assert.Equal(t, int64(core.DefaultMaxInFlight), cfg.MaxInFlight)

	cc := cfg.coreConfig()
	assert.Equal(t, 30*time.Second, cc.PollTimeout)
	assert.Empty(t, cc.AllowedKinds)
}

func TestLoadConfigWebhookMode(t *testing.T) {
	path := writeConfig(t, `
token: "123:abc"
mode: webhook
allowed_updates: [message, callback_query]
webhook:
  listen_addr: "127.0.0.1:9000"
  public_url: "https://bot.example.com"
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "webhook", cfg.Mode)
	assert.Equal(t, "127.0.0.1:9000", cfg.Webhook.ListenAddr)
	assert.Equal(t, []core.Kind{core.KindMessage, core.KindCallbackQuery}, cfg.allowedKinds())
}

func TestLoadConfigWebhookRequiresPublicURL(t *testing.T) {
	path := writeConfig(t, "mode: webhook\n")
	_, err := loadConfig(path)
	require.ErrorContains(t, err, "public_url")
}

func TestLoadConfigRejectsUnknownMode(t *testing.T) {
	path := writeConfig(t, "mode: carrier_pigeon\n")
	_, err := loadConfig(path)
	require.ErrorContains(t, err, "unknown mode")
}

func TestLoadConfigRejectsUnknownKind(t *testing.T) {
	path := writeConfig(t, "allowed_updates: [message, carrier_pigeon]\n")
	_, err := loadConfig(path)
	require.ErrorContains(t, err, "carrier_pigeon")
}
