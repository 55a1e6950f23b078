package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerClaimAndRelease(t *testing.T) {
	rdb, err := NewRedisClientForTest()
	assert.NoError(t, err)
	ledger := NewRedisDedupLedger(rdb)
	ctx := context.Background()

	claimed, err := ledger.TryClaim(ctx, "msg-1")
	assert.NoError(t, err)
	assert.True(t, claimed)

	// Second claim for the same id must lose
	claimed, err = ledger.TryClaim(ctx, "msg-1")
	assert.NoError(t, err)
	assert.False(t, claimed)

	processed, err := ledger.HasProcessed(ctx, "msg-1")
	assert.NoError(t, err)
	assert.True(t, processed)

	// Release re-opens the id for a later retry
	err = ledger.Release(ctx, "msg-1")
	assert.NoError(t, err)

	processed, err = ledger.HasProcessed(ctx, "msg-1")
	assert.NoError(t, err)
	assert.False(t, processed)

	claimed, err = ledger.TryClaim(ctx, "msg-1")
	assert.NoError(t, err)
	assert.True(t, claimed)
}

func TestLedgerConcurrentClaims(t *testing.T) {
	rdb, err := NewRedisClientForTest()
	assert.NoError(t, err)
	ledger := NewRedisDedupLedger(rdb)
	ctx := context.Background()

	// Many concurrent claims for one never-seen id must yield exactly
	// one winner
	const attempts = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := ledger.TryClaim(ctx, "contended-msg")
			assert.NoError(t, err)
			if claimed {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestLedgerSize(t *testing.T) {
	rdb, err := NewRedisClientForTest()
	assert.NoError(t, err)
	ledger := NewRedisDedupLedger(rdb)
	ctx := context.Background()

	size, err := ledger.Size(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), size)

	for _, id := range []string{"a", "b", "c"} {
		_, err := ledger.TryClaim(ctx, id)
		assert.NoError(t, err)
	}

	size, err = ledger.Size(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), size)
}
