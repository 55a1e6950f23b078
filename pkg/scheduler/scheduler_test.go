package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/coldreach/autoreply/pkg/providers"
	"github.com/coldreach/autoreply/pkg/repository"
	"github.com/coldreach/autoreply/pkg/types"
	"github.com/stretchr/testify/assert"
)

type schedulerFixture struct {
	scheduler *Scheduler
	tokens    repository.TokenStore
	queue     repository.JobQueue
	provider  *mockProvider
}

func newSchedulerFixture(t *testing.T, provider *mockProvider, startTime time.Time) *schedulerFixture {
	t.Helper()

	rdb, err := repository.NewRedisClientForTest()
	assert.NoError(t, err)

	registry := providers.NewRegistry()
	registry.Register(provider)

	tokens := repository.NewMemoryTokenStore()
	queue := repository.NewRedisJobQueue(rdb, provider.name)
	queues := map[types.ProviderName]repository.JobQueue{provider.name: queue}

	return &schedulerFixture{
		scheduler: NewScheduler(tokens, registry, queues, startTime, time.Minute),
		tokens:    tokens,
		queue:     queue,
		provider:  provider,
	}
}

func TestTickSkipsProviderWithoutCredentials(t *testing.T) {
	provider := &mockProvider{
		name: types.ProviderGmail,
		candidates: []types.MessageCandidate{
			candidate(types.ProviderGmail, "m1", time.Now()),
		},
	}
	f := newSchedulerFixture(t, provider, time.Now())

	ctx := context.Background()
	f.scheduler.Tick(ctx)

	assert.Equal(t, 0, provider.listCalls)
	depth, err := f.queue.Len(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestTickEnqueuesJobWhenCandidatesFound(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	provider := &mockProvider{
		name: types.ProviderGmail,
		candidates: []types.MessageCandidate{
			candidate(types.ProviderGmail, "m1", time.Now()),
			candidate(types.ProviderGmail, "m2", time.Now()),
		},
	}
	f := newSchedulerFixture(t, provider, start)
	f.tokens.Save(types.ProviderGmail, &types.Credentials{AccessToken: "tok"})

	ctx := context.Background()
	f.scheduler.Tick(ctx)

	assert.Equal(t, 1, provider.listCalls)
	assert.True(t, provider.lastHorizon.Equal(start))

	job, err := f.queue.Pop(ctx)
	assert.NoError(t, err)
	if assert.NotNil(t, job) {
		assert.Equal(t, types.ProviderGmail, job.Provider)
		assert.NotEmpty(t, job.ID)
	}
}

func TestTickEnqueuesNothingWithoutCandidates(t *testing.T) {
	provider := &mockProvider{name: types.ProviderOutlook}
	f := newSchedulerFixture(t, provider, time.Now())
	f.tokens.Save(types.ProviderOutlook, &types.Credentials{AccessToken: "tok"})

	ctx := context.Background()
	f.scheduler.Tick(ctx)

	assert.Equal(t, 1, provider.listCalls)
	depth, err := f.queue.Len(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestTickToleratesPollFailure(t *testing.T) {
	provider := &mockProvider{
		name:    types.ProviderOutlook,
		listErr: types.NewProviderError(types.ProviderOutlook, types.ProviderErrFetch, "list messages", nil),
	}
	f := newSchedulerFixture(t, provider, time.Now())
	f.tokens.Save(types.ProviderOutlook, &types.Credentials{AccessToken: "tok"})

	ctx := context.Background()
	f.scheduler.Tick(ctx)

	depth, err := f.queue.Len(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestTickEnqueuesOneJobPerPoll(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	provider := &mockProvider{
		name: types.ProviderGmail,
		candidates: []types.MessageCandidate{
			candidate(types.ProviderGmail, "m1", time.Now()),
		},
	}
	f := newSchedulerFixture(t, provider, start)
	f.tokens.Save(types.ProviderGmail, &types.Credentials{AccessToken: "tok"})

	ctx := context.Background()
	f.scheduler.Tick(ctx)
	f.scheduler.Tick(ctx)

	depth, err := f.queue.Len(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), depth)
}
