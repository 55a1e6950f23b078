// Package providers implements the mail provider adapters. Each adapter
// encapsulates one provider's API quirks and translates its failures into
// the provider-independent error kinds in pkg/types; the scheduler and
// worker never see a raw provider error shape.
package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coldreach/autoreply/pkg/types"
)

// MailProvider is the capability interface shared by both adapters
type MailProvider interface {
	Name() types.ProviderName

	// ListCandidates fetches the most recent messages and filters them to
	// those received strictly after horizon. Self-sent messages are
	// excluded server-side where the API supports it, client-side
	// otherwise.
	ListCandidates(ctx context.Context, creds *types.Credentials, horizon time.Time) ([]types.MessageCandidate, error)

	// FetchDetail retrieves the sender and body for one candidate
	FetchDetail(ctx context.Context, creds *types.Credentials, id string) (*types.MessageDetail, error)

	// SendReply dispatches a reply. When recipient is the linked account's
	// own address this is a silent no-op with no network call.
	SendReply(ctx context.Context, creds *types.Credentials, recipient, text string) error

	// SelfAddress returns the linked account's own address
	SelfAddress() string
}

// Registry maps provider names to adapters
type Registry struct {
	providers map[types.ProviderName]MailProvider
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[types.ProviderName]MailProvider),
	}
}

// Register adds an adapter to the registry
func (r *Registry) Register(p MailProvider) {
	r.providers[p.Name()] = p
}

// Get returns an adapter by name
func (r *Registry) Get(name types.ProviderName) (MailProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not registered: %s", name)
	}
	return p, nil
}

// List returns all registered adapters
func (r *Registry) List() []MailProvider {
	out := make([]MailProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

// isSelf reports whether the recipient or sender header refers to the
// linked account's own address. Headers may carry a display name
// ("Alice <alice@example.com>"), so this is a substring match.
func isSelf(header, selfAddress string) bool {
	if selfAddress == "" {
		return false
	}
	return strings.Contains(strings.ToLower(header), strings.ToLower(selfAddress))
}
