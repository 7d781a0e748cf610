// Package credentials stores the backend bearer token in the OS credential
// store (macOS Keychain, Windows Credential Manager, Linux Secret Service).
//
// The keyring is the last source consulted when building the backend client:
// an explicit token wins, then BOT_TOKEN, then the keyring.
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service name for OS credential store
	credentialService = "ambient-mcp"
	// Key for the backend bearer token
	botTokenKey = "bot_token"
)

// ErrTokenNotFound is returned when no token is stored.
var ErrTokenNotFound = errors.New("no bot token found in credential store")

// Store handles secure storage and retrieval of the bearer token
type Store struct {
	service string
}

// NewStore creates a new credential store instance
func NewStore() *Store {
	return &Store{
		service: credentialService,
	}
}

// SetToken stores the bearer token in the OS credential store.
func (s *Store) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	if err := keyring.Set(s.service, botTokenKey, token); err != nil {
		return fmt.Errorf("failed to store token in credential store: %w", err)
	}
	return nil
}

// Token retrieves the stored bearer token.
func (s *Store) Token() (string, error) {
	token, err := keyring.Get(s.service, botTokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to retrieve token from credential store: %w", err)
	}

	if strings.TrimSpace(token) == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// DeleteToken removes the stored token. Deleting a missing token is not an error.
func (s *Store) DeleteToken() error {
	err := keyring.Delete(s.service, botTokenKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from credential store: %w", err)
	}
	return nil
}

// HasToken checks if a token is stored without returning it.
func (s *Store) HasToken() bool {
	_, err := s.Token()
	return err == nil
}
