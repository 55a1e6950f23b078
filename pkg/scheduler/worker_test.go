package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coldreach/autoreply/pkg/common"
	"github.com/coldreach/autoreply/pkg/providers"
	"github.com/coldreach/autoreply/pkg/repository"
	"github.com/coldreach/autoreply/pkg/types"
	"github.com/stretchr/testify/assert"
)

// --- Mock MailProvider ---

type mockSend struct {
	Recipient string
	Text      string
}

type mockProvider struct {
	mu          sync.Mutex
	name        types.ProviderName
	self        string
	candidates  []types.MessageCandidate
	details     map[string]*types.MessageDetail
	fetchErrs   map[string]error
	listErr     error
	sendErr     error
	listCalls   int
	lastHorizon time.Time
	sends       []mockSend
}

func (m *mockProvider) Name() types.ProviderName { return m.name }
func (m *mockProvider) SelfAddress() string      { return m.self }

func (m *mockProvider) ListCandidates(_ context.Context, _ *types.Credentials, horizon time.Time) ([]types.MessageCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	m.lastHorizon = horizon
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.candidates, nil
}

func (m *mockProvider) FetchDetail(_ context.Context, _ *types.Credentials, id string) (*types.MessageDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.fetchErrs[id]; ok {
		return nil, err
	}
	detail, ok := m.details[id]
	if !ok {
		return nil, types.NewProviderError(m.name, types.ProviderErrFetch, "fetch message detail", nil)
	}
	return detail, nil
}

func (m *mockProvider) SendReply(_ context.Context, _ *types.Credentials, recipient, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sends = append(m.sends, mockSend{Recipient: recipient, Text: text})
	return nil
}

func (m *mockProvider) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

func (m *mockProvider) lastSend() mockSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends[len(m.sends)-1]
}

// --- Mock Generator ---

type mockGenerator struct {
	text string
	err  error
}

func (g *mockGenerator) Generate(_ context.Context, _ types.Category) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

// --- Helpers ---

type workerFixture struct {
	worker   *Worker
	tokens   repository.TokenStore
	ledger   repository.DedupLedger
	provider *mockProvider
	rdb      *common.RedisClient
}

func newWorkerFixture(t *testing.T, provider *mockProvider, gen *mockGenerator, startTime time.Time) *workerFixture {
	t.Helper()

	rdb, err := repository.NewRedisClientForTest()
	assert.NoError(t, err)

	registry := providers.NewRegistry()
	registry.Register(provider)

	tokens := repository.NewMemoryTokenStore()
	ledger := repository.NewRedisDedupLedger(rdb)
	queues := map[types.ProviderName]repository.JobQueue{
		provider.name: repository.NewRedisJobQueue(rdb, provider.name),
	}

	return &workerFixture{
		worker:   NewWorker(tokens, registry, queues, ledger, gen, rdb, startTime),
		tokens:   tokens,
		ledger:   ledger,
		provider: provider,
		rdb:      rdb,
	}
}

func candidate(provider types.ProviderName, id string, receivedAt time.Time) types.MessageCandidate {
	return types.MessageCandidate{ID: id, Provider: provider, ReceivedAt: receivedAt}
}

// --- Tests ---

func TestWorkerProcessJobEndToEnd(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	provider := &mockProvider{
		name: types.ProviderGmail,
		self: "me@gmail.com",
		candidates: []types.MessageCandidate{
			candidate(types.ProviderGmail, "m1", time.Now()),
		},
		details: map[string]*types.MessageDetail{
			"m1": {ID: "m1", Sender: "alice@example.com", Content: "yes, definitely, sign me up"},
		},
	}
	gen := &mockGenerator{text: "Sure, let's schedule a call."}

	f := newWorkerFixture(t, provider, gen, start)
	f.tokens.Save(types.ProviderGmail, &types.Credentials{AccessToken: "tok"})

	ctx := context.Background()
	job := &types.ReplyJob{ID: "job-1", Provider: types.ProviderGmail}
	err := f.worker.processJob(ctx, job)
	assert.NoError(t, err)

	assert.Equal(t, 1, provider.sendCount())
	assert.Equal(t, "alice@example.com", provider.lastSend().Recipient)
	assert.Equal(t, "Sure, let's schedule a call.", provider.lastSend().Text)

	processed, err := f.ledger.HasProcessed(ctx, "m1")
	assert.NoError(t, err)
	assert.True(t, processed)

	// Same message rediscovered by a later poll must not produce a
	// second reply
	err = f.worker.processJob(ctx, &types.ReplyJob{ID: "job-2", Provider: types.ProviderGmail})
	assert.NoError(t, err)
	assert.Equal(t, 1, provider.sendCount())
}

func TestWorkerFetchFailureDoesNotBlockLaterCandidates(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	provider := &mockProvider{
		name: types.ProviderOutlook,
		self: "me@outlook.com",
		candidates: []types.MessageCandidate{
			candidate(types.ProviderOutlook, "m1", time.Now()),
			candidate(types.ProviderOutlook, "m2", time.Now()),
		},
		details: map[string]*types.MessageDetail{
			"m2": {ID: "m2", Sender: "bob@example.com", Content: "tell me more"},
		},
		fetchErrs: map[string]error{
			"m1": types.NewProviderError(types.ProviderOutlook, types.ProviderErrFetch, "fetch message detail", nil),
		},
	}
	gen := &mockGenerator{text: "Here are the details."}

	f := newWorkerFixture(t, provider, gen, start)
	f.tokens.Save(types.ProviderOutlook, &types.Credentials{AccessToken: "tok"})

	ctx := context.Background()
	err := f.worker.processJob(ctx, &types.ReplyJob{ID: "job-1", Provider: types.ProviderOutlook})
	assert.NoError(t, err)

	assert.Equal(t, 1, provider.sendCount())
	assert.Equal(t, "bob@example.com", provider.lastSend().Recipient)

	// The failed message stays unclaimed so the next poll retries it
	processed, err := f.ledger.HasProcessed(ctx, "m1")
	assert.NoError(t, err)
	assert.False(t, processed)

	processed, err = f.ledger.HasProcessed(ctx, "m2")
	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestWorkerSelfSendSkipConsumesLedgerSlot(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	provider := &mockProvider{
		name: types.ProviderGmail,
		self: "me@gmail.com",
		candidates: []types.MessageCandidate{
			candidate(types.ProviderGmail, "echo-1", time.Now()),
		},
		details: map[string]*types.MessageDetail{
			"echo-1": {ID: "echo-1", Sender: "Me <me@gmail.com>", Content: "yes"},
		},
	}
	gen := &mockGenerator{text: "should not be sent"}

	f := newWorkerFixture(t, provider, gen, start)
	f.tokens.Save(types.ProviderGmail, &types.Credentials{AccessToken: "tok"})

	ctx := context.Background()
	err := f.worker.processJob(ctx, &types.ReplyJob{ID: "job-1", Provider: types.ProviderGmail})
	assert.NoError(t, err)

	assert.Equal(t, 0, provider.sendCount())

	// Skipped echoes keep their ledger slot so they aren't re-detected
	// every poll
	processed, err := f.ledger.HasProcessed(ctx, "echo-1")
	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestWorkerMissingCredentialsDropsJob(t *testing.T) {
	provider := &mockProvider{name: types.ProviderGmail, self: "me@gmail.com"}
	f := newWorkerFixture(t, provider, &mockGenerator{text: "x"}, time.Now())

	err := f.worker.processJob(context.Background(), &types.ReplyJob{ID: "job-1", Provider: types.ProviderGmail})
	assert.NoError(t, err)
	assert.Equal(t, 0, provider.listCalls)
}

func TestWorkerGenerationFailureReleasesClaim(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	provider := &mockProvider{
		name: types.ProviderGmail,
		self: "me@gmail.com",
		candidates: []types.MessageCandidate{
			candidate(types.ProviderGmail, "m1", time.Now()),
		},
		details: map[string]*types.MessageDetail{
			"m1": {ID: "m1", Sender: "carol@example.com", Content: "yes"},
		},
	}
	gen := &mockGenerator{err: &types.GenerationError{Err: assert.AnError}}

	f := newWorkerFixture(t, provider, gen, start)
	f.tokens.Save(types.ProviderGmail, &types.Credentials{AccessToken: "tok"})

	ctx := context.Background()
	err := f.worker.processJob(ctx, &types.ReplyJob{ID: "job-1", Provider: types.ProviderGmail})
	assert.NoError(t, err)

	assert.Equal(t, 0, provider.sendCount())
	processed, err := f.ledger.HasProcessed(ctx, "m1")
	assert.NoError(t, err)
	assert.False(t, processed)
}

func TestWorkerRateLimitSetsCooldown(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	provider := &mockProvider{
		name: types.ProviderOutlook,
		self: "me@outlook.com",
		candidates: []types.MessageCandidate{
			candidate(types.ProviderOutlook, "m1", time.Now()),
			candidate(types.ProviderOutlook, "m2", time.Now()),
		},
		details: map[string]*types.MessageDetail{
			"m1": {ID: "m1", Sender: "dave@example.com", Content: "yes"},
			"m2": {ID: "m2", Sender: "erin@example.com", Content: "yes"},
		},
		sendErr: types.NewProviderError(types.ProviderOutlook, types.ProviderErrRateLimited, "send reply", nil),
	}
	gen := &mockGenerator{text: "reply"}

	f := newWorkerFixture(t, provider, gen, start)
	f.tokens.Save(types.ProviderOutlook, &types.Credentials{AccessToken: "tok"})

	ctx := context.Background()
	err := f.worker.processJob(ctx, &types.ReplyJob{ID: "job-1", Provider: types.ProviderOutlook})
	assert.NoError(t, err)

	// Cooldown is active and both messages remain unclaimed for retry
	// after the quota resets
	n, err := f.rdb.Exists(ctx, common.Keys.WorkerSendCooldown(string(types.ProviderOutlook))).Result()
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for _, id := range []string{"m1", "m2"} {
		processed, err := f.ledger.HasProcessed(ctx, id)
		assert.NoError(t, err)
		assert.False(t, processed, "message %s should stay unclaimed", id)
	}
}
