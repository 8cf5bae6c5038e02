package mocks

import (
	"context"
	"sync"

	"github.com/tidewallet/tidewallet/internal/tokenstore"
)

// FlakyTokenStore wraps an in-memory token store with per-operation error
// injection, for exercising the "storage failure degrades, never aborts"
// contract.
type FlakyTokenStore struct {
	mu    sync.Mutex
	inner *tokenstore.Memory

	SaveErr   error
	LoadErr   error
	DeleteErr error
	ListErr   error

	SaveCalls   int
	DeleteCalls int
}

// NewFlakyTokenStore creates a store with no injected failures.
func NewFlakyTokenStore() *FlakyTokenStore {
	return &FlakyTokenStore{inner: tokenstore.NewMemory()}
}

func (f *FlakyTokenStore) SaveToken(ctx context.Context, address, token string) error {
	f.mu.Lock()
	f.SaveCalls++
	err := f.SaveErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.inner.SaveToken(ctx, address, token)
}

func (f *FlakyTokenStore) LoadToken(ctx context.Context, address string) (string, error) {
	f.mu.Lock()
	err := f.LoadErr
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return f.inner.LoadToken(ctx, address)
}

func (f *FlakyTokenStore) DeleteToken(ctx context.Context, address string) error {
	f.mu.Lock()
	f.DeleteCalls++
	err := f.DeleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.inner.DeleteToken(ctx, address)
}

func (f *FlakyTokenStore) Addresses(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	err := f.ListErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.inner.Addresses(ctx)
}
