package oauth

import (
	"context"
	"fmt"

	"github.com/coldreach/autoreply/pkg/types"
)

// Provider defines the interface for OAuth providers
type Provider interface {
	// Name returns the mail provider this OAuth client authorizes
	Name() types.ProviderName

	// IsConfigured returns true if the provider has valid app credentials
	IsConfigured() bool

	// AuthorizeURL generates the OAuth authorization URL
	AuthorizeURL(state string) (string, error)

	// Exchange exchanges an authorization code for a token bundle
	Exchange(ctx context.Context, code string) (*types.Credentials, error)
}

// Registry maps provider names to configured OAuth providers
type Registry struct {
	providers map[types.ProviderName]Provider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[types.ProviderName]Provider),
	}
}

// Register adds a provider to the registry. Unconfigured providers are
// ignored so the service can run with a single linked account.
func (r *Registry) Register(p Provider) {
	if p == nil || !p.IsConfigured() {
		return
	}
	r.providers[p.Name()] = p
}

// Get returns a provider by name
func (r *Registry) Get(name types.ProviderName) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("oauth provider not configured: %s", name)
	}
	return p, nil
}

// List returns the names of all configured providers
func (r *Registry) List() []types.ProviderName {
	names := make([]types.ProviderName, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
