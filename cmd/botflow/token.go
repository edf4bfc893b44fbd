package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jdelaire/botflow/internal/keychain"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the bot token in the OS keychain",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the bot token (read from stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(os.Stderr, "Bot token: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read token: %w", err)
		}
		token := strings.TrimSpace(line)
		if token == "" {
			return fmt.Errorf("empty token")
		}
		if err := keychain.SetBotToken(token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
		fmt.Println("Token stored in keychain.")
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored bot token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keychain.ClearBotToken(); err != nil {
			return fmt.Errorf("clear token: %w", err)
		}
		fmt.Println("Token removed from keychain.")
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)
}
