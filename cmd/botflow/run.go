package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jdelaire/botflow/internal/configwatch"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		logger := newLogger(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		r := newRunner(configPath, logger)

		watcher, err := configwatch.New(logger)
		if err != nil {
			return err
		}
		if err := watcher.Watch(configPath, func(string) { r.requestReload() }); err != nil {
			logger.Warn("config watch unavailable", "error", err)
		} else {
			go watcher.Run(ctx)
		}

		return r.run(ctx, cfg)
	},
}
