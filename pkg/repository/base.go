package repository

import (
	"context"

	"github.com/coldreach/autoreply/pkg/types"
)

// TokenStore holds the most recently captured credential bundle per
// provider. Absence is a valid state (no account linked yet).
type TokenStore interface {
	Save(provider types.ProviderName, creds *types.Credentials)
	Get(provider types.ProviderName) (*types.Credentials, bool)
	Providers() []types.ProviderName
}

// DedupLedger tracks which message identifiers have already produced a
// reply. Claiming must be atomic: two concurrent claims for the same id
// yield exactly one winner.
type DedupLedger interface {
	// TryClaim marks id as processed and reports whether this caller won
	// the claim. A false return means another attempt already holds it.
	TryClaim(ctx context.Context, id string) (bool, error)

	// Release un-marks a claimed id so a later poll can retry it. Called
	// on the per-message failure path only.
	Release(ctx context.Context, id string) error

	HasProcessed(ctx context.Context, id string) (bool, error)
	Size(ctx context.Context) (int64, error)
}

// JobQueue carries reply jobs from the scheduler to a worker stream
type JobQueue interface {
	Push(ctx context.Context, job *types.ReplyJob) error

	// Pop blocks briefly for a job; returns (nil, nil) when none arrived
	Pop(ctx context.Context) (*types.ReplyJob, error)

	Len(ctx context.Context) (int64, error)
}
