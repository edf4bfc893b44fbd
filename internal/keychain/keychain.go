// Package keychain stores the bot token in the OS keychain so it never has
// to live in a config file.
package keychain

import "github.com/zalando/go-keyring"

const (
	serviceName  = "botflow"
	tokenAccount = "bot-token"
)

// Get retrieves a secret from the system keychain.
func Get(account string) (string, error) {
	return keyring.Get(serviceName, account)
}

// Set stores a secret in the system keychain.
func Set(account, value string) error {
	return keyring.Set(serviceName, account, value)
}

// Delete removes a secret from the system keychain.
func Delete(account string) error {
	return keyring.Delete(serviceName, account)
}

// BotToken retrieves the stored bot token.
func BotToken() (string, error) {
	return Get(tokenAccount)
}

// SetBotToken stores the bot token.
func SetBotToken(token string) error {
	return Set(tokenAccount, token)
}

// ClearBotToken removes the stored bot token.
func ClearBotToken() error {
	return Delete(tokenAccount)
}
