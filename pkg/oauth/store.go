package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/coldreach/autoreply/pkg/types"
)

// DefaultStateTTL is how long pending handshake states live before cleanup
const DefaultStateTTL = 10 * time.Minute

type handshakeState struct {
	provider  types.ProviderName
	expiresAt time.Time
}

// StateStore tracks pending OAuth handshake states in memory with TTL
// cleanup, so callbacks can be validated against a state we issued.
type StateStore struct {
	mu     sync.Mutex
	states map[string]handshakeState
	ttl    time.Duration
	stopCh chan struct{}
}

// NewStateStore creates a state store with a cleanup goroutine
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl == 0 {
		ttl = DefaultStateTTL
	}
	s := &StateStore{
		states: make(map[string]handshakeState),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Create issues a new random state bound to a provider
func (s *StateStore) Create(provider types.ProviderName) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := newStateToken()
	s.states[state] = handshakeState{
		provider:  provider,
		expiresAt: time.Now().Add(s.ttl),
	}
	return state
}

// Consume validates and removes a state, returning the provider it was
// issued for. Returns false for unknown or expired states.
func (s *StateStore) Consume(state string) (types.ProviderName, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hs, ok := s.states[state]
	if !ok {
		return "", false
	}
	delete(s.states, state)

	if time.Now().After(hs.expiresAt) {
		return "", false
	}
	return hs.provider, true
}

// Stop stops the cleanup goroutine
func (s *StateStore) Stop() {
	close(s.stopCh)
}

func (s *StateStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func newStateToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func (s *StateStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for state, hs := range s.states {
		if now.After(hs.expiresAt) {
			delete(s.states, state)
		}
	}
}
