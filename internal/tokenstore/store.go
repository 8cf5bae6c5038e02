// Package tokenstore persists wallet auth tokens so a later app launch can
// attempt silent reauthorization before asking the user to re-connect.
// Only tokens are persisted, one entry per wallet address; every other
// session field is re-derived on reconnect.
package tokenstore

import (
	"context"
	"fmt"
	"sync"
)

// Store is the secure-storage collaborator for persisted auth tokens.
// A missing token is not an error: LoadToken returns ("", nil). Failures
// surface as storage_error AppErrors, which callers treat as "no cached
// token" rather than aborting the flow.
type Store interface {
	SaveToken(ctx context.Context, address, token string) error
	LoadToken(ctx context.Context, address string) (string, error)
	DeleteToken(ctx context.Context, address string) error

	// Addresses lists every address with a persisted token, for startup
	// session restore.
	Addresses(ctx context.Context) ([]string, error)
}

// Key returns the storage key for a wallet address.
func Key(address string) string {
	return fmt.Sprintf("wallet_%s_authToken", address)
}

// Memory is an in-process Store, used in tests and when no persistent
// path is configured.
type Memory struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tokens: make(map[string]string)}
}

// SaveToken stores a token for an address.
func (m *Memory) SaveToken(_ context.Context, address, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[Key(address)] = token
	return nil
}

// LoadToken returns the token for an address, or "" when absent.
func (m *Memory) LoadToken(_ context.Context, address string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens[Key(address)], nil
}

// DeleteToken removes the token for an address.
func (m *Memory) DeleteToken(_ context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, Key(address))
	return nil
}

// Addresses lists every address with a stored token.
func (m *Memory) Addresses(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.tokens))
	for k := range m.tokens {
		if addr, ok := addressFromKey(k); ok {
			out = append(out, addr)
		}
	}
	return out, nil
}

func addressFromKey(key string) (string, bool) {
	const prefix, suffix = "wallet_", "_authToken"
	if len(key) <= len(prefix)+len(suffix) {
		return "", false
	}
	if key[:len(prefix)] != prefix || key[len(key)-len(suffix):] != suffix {
		return "", false
	}
	return key[len(prefix) : len(key)-len(suffix)], true
}
