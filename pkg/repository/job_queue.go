package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coldreach/autoreply/pkg/common"
	"github.com/coldreach/autoreply/pkg/types"
)

// Default timeout for blocking pop
const defaultPopTimeout = 5 * time.Second

// RedisJobQueue implements JobQueue for one provider's job stream using
// Redis LPUSH/BRPOP. Each provider gets its own list so the two streams
// drain independently.
type RedisJobQueue struct {
	rdb      *common.RedisClient
	provider types.ProviderName
}

// NewRedisJobQueue creates a Redis-backed job queue for a provider
func NewRedisJobQueue(rdb *common.RedisClient, provider types.ProviderName) *RedisJobQueue {
	return &RedisJobQueue{
		rdb:      rdb,
		provider: provider,
	}
}

// Push adds a job to the queue
func (q *RedisJobQueue) Push(ctx context.Context, job *types.ReplyJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.rdb.LPush(ctx, common.Keys.QueueJobs(string(q.provider)), data).Err(); err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

// Pop blocks until a job is available or the timeout elapses.
// Returns (nil, nil) on timeout.
func (q *RedisJobQueue) Pop(ctx context.Context) (*types.ReplyJob, error) {
	result, err := q.rdb.BRPop(ctx, defaultPopTimeout, common.Keys.QueueJobs(string(q.provider))).Result()
	if err != nil {
		// Timeout is not an error, just no jobs available
		if err.Error() == "redis: nil" {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var job types.ReplyJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Len returns the number of queued jobs
func (q *RedisJobQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, common.Keys.QueueJobs(string(q.provider))).Result()
}
