package repository

import (
	"context"
	"fmt"

	"github.com/coldreach/autoreply/pkg/common"
)

// RedisDedupLedger implements DedupLedger on a single Redis set. SADD's
// added-count return makes the claim a true check-and-mark: only the first
// caller for an id sees 1. The set never expires and never shrinks on the
// success path; unbounded growth for process lifetime is accepted.
type RedisDedupLedger struct {
	rdb *common.RedisClient
}

// NewRedisDedupLedger creates a Redis-backed dedup ledger
func NewRedisDedupLedger(rdb *common.RedisClient) *RedisDedupLedger {
	return &RedisDedupLedger{rdb: rdb}
}

// TryClaim atomically marks id as processed; true means this caller won
func (l *RedisDedupLedger) TryClaim(ctx context.Context, id string) (bool, error) {
	added, err := l.rdb.SAdd(ctx, common.Keys.LedgerProcessed(), id).Result()
	if err != nil {
		return false, fmt.Errorf("ledger claim failed: %w", err)
	}
	return added == 1, nil
}

// Release un-marks a claimed id so the next poll can retry it
func (l *RedisDedupLedger) Release(ctx context.Context, id string) error {
	if err := l.rdb.SRem(ctx, common.Keys.LedgerProcessed(), id).Err(); err != nil {
		return fmt.Errorf("ledger release failed: %w", err)
	}
	return nil
}

// HasProcessed reports whether id has completed processing
func (l *RedisDedupLedger) HasProcessed(ctx context.Context, id string) (bool, error) {
	ok, err := l.rdb.SIsMember(ctx, common.Keys.LedgerProcessed(), id).Result()
	if err != nil {
		return false, fmt.Errorf("ledger membership check failed: %w", err)
	}
	return ok, nil
}

// Size returns the number of processed identifiers
func (l *RedisDedupLedger) Size(ctx context.Context) (int64, error) {
	return l.rdb.SCard(ctx, common.Keys.LedgerProcessed()).Result()
}
