// Package storage keeps provider credentials out of the config file.
//
// The default store is the OS keychain. An environment store covers
// headless setups: DEVBOY_GITHUB_TOKEN et al. override the keychain when
// set, and a memory store backs tests.
package storage

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

// serviceName is the keychain service entries are filed under.
const serviceName = "devboy"

// envPrefix prefixes environment variable credential lookups.
const envPrefix = "DEVBOY_"

// CredentialStore stores and retrieves secrets by key. Keys are provider
// names or provider-scoped identifiers, e.g. "github_token".
type CredentialStore interface {
	// Store saves a credential.
	Store(key, value string) error

	// Get retrieves a credential. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Delete removes a credential. Deleting an absent key is not an
	// error.
	Delete(key string) error
}

// KeyringStore persists credentials in the OS keychain.
type KeyringStore struct{}

// NewKeyringStore creates a keychain-backed store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Store(key, value string) error {
	if err := keyring.Set(serviceName, key, value); err != nil {
		return fmt.Errorf("failed to store credential %s: %w", key, err)
	}
	return nil
}

func (s *KeyringStore) Get(key string) (string, bool, error) {
	value, err := keyring.Get(serviceName, key)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read credential %s: %w", key, err)
	}
	return value, true, nil
}

func (s *KeyringStore) Delete(key string) error {
	if err := keyring.Delete(serviceName, key); err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete credential %s: %w", key, err)
	}
	return nil
}

// EnvStore reads credentials from environment variables. The key
// "github_token" maps to DEVBOY_GITHUB_TOKEN. It is read-only; Store and
// Delete fail.
type EnvStore struct{}

// NewEnvStore creates an environment-backed store.
func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

// EnvVar returns the environment variable name for a credential key.
func EnvVar(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func (s *EnvStore) Store(key, value string) error {
	return fmt.Errorf("environment store is read-only, set %s instead", EnvVar(key))
}

func (s *EnvStore) Get(key string) (string, bool, error) {
	value, ok := os.LookupEnv(EnvVar(key))
	return value, ok, nil
}

func (s *EnvStore) Delete(key string) error {
	return fmt.Errorf("environment store is read-only, unset %s instead", EnvVar(key))
}

// MemoryStore is an in-memory store for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]string)}
}

func (s *MemoryStore) Store(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[key] = value
	return nil
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.creds[key]
	return value, ok, nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, key)
	return nil
}

// Chain tries stores in order on Get; first hit wins. Writes go to the
// first store that accepts them, so a read-only store ahead in the chain
// does not block them.
type Chain []CredentialStore

func (c Chain) Store(key, value string) error {
	var lastErr error = fmt.Errorf("no credential stores configured")
	for _, store := range c {
		if err := store.Store(key, value); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (c Chain) Get(key string) (string, bool, error) {
	for _, store := range c {
		value, ok, err := store.Get(key)
		if err != nil {
			return "", false, err
		}
		if ok {
			return value, true, nil
		}
	}
	return "", false, nil
}

func (c Chain) Delete(key string) error {
	var lastErr error = fmt.Errorf("no credential stores configured")
	for _, store := range c {
		if err := store.Delete(key); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// Default returns the store used by the CLI and server: environment
// variables first, then the OS keychain.
func Default() CredentialStore {
	return Chain{NewEnvStore(), NewKeyringStore()}
}
