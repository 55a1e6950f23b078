package repository

import (
	"sync"

	"github.com/coldreach/autoreply/pkg/types"
)

// MemoryTokenStore keeps credential bundles in memory for the process
// lifetime. Each Save overwrites the previous bundle wholesale; nothing is
// persisted, and a restart unlinks all accounts until the next OAuth
// callback.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[types.ProviderName]*types.Credentials
}

// NewMemoryTokenStore creates an empty token store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		tokens: make(map[types.ProviderName]*types.Credentials),
	}
}

// Save unconditionally overwrites the stored bundle for the provider
func (s *MemoryTokenStore) Save(provider types.ProviderName, creds *types.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[provider] = creds
}

// Get returns the stored bundle, or false if no account is linked
func (s *MemoryTokenStore) Get(provider types.ProviderName) (*types.Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.tokens[provider]
	return creds, ok
}

// Providers returns the providers with a linked account
func (s *MemoryTokenStore) Providers() []types.ProviderName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]types.ProviderName, 0, len(s.tokens))
	for name := range s.tokens {
		names = append(names, name)
	}
	return names
}
