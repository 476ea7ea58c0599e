package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// SecretStore abstracts the platform secret store (Keychain on macOS, a
// 0600 JSON file elsewhere).
type SecretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// NewKeychain returns the platform secret store.
func NewKeychain() SecretStore {
	return keychainStore{}
}

type keychainStore struct{}

func (keychainStore) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (keychainStore) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

const apiTokenAccount = "api_token"

// GetAPIToken returns the bearer token that guards the HTTP API. The
// CROPDOC_API_TOKEN environment variable wins; otherwise the token is read
// from the secret store and generated on first use.
func GetAPIToken(kc SecretStore) (string, error) {
	if tok := strings.TrimSpace(os.Getenv("CROPDOC_API_TOKEN")); tok != "" {
		return tok, nil
	}
	if tok, err := kc.Get(secretService, apiTokenAccount); err == nil && tok != "" {
		return tok, nil
	}
	tok := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := kc.Set(secretService, apiTokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
