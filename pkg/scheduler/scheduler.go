// Package scheduler coordinates polling, job emission, and reply
// processing across the provider pipelines.
package scheduler

import (
	"context"
	"time"

	"github.com/coldreach/autoreply/pkg/providers"
	"github.com/coldreach/autoreply/pkg/repository"
	"github.com/coldreach/autoreply/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultPollInterval = 60 * time.Second

// Scheduler polls each linked provider on a fixed interval and enqueues a
// reply job when a poll finds candidate messages. Enqueueing is fire and
// forget: the scheduler never waits for job completion.
type Scheduler struct {
	tokens    repository.TokenStore
	registry  *providers.Registry
	queues    map[types.ProviderName]repository.JobQueue
	startTime time.Time
	interval  time.Duration
}

// NewScheduler creates a scheduler. startTime is the message-eligibility
// horizon: messages received at or before it are never processed.
func NewScheduler(tokens repository.TokenStore, registry *providers.Registry, queues map[types.ProviderName]repository.JobQueue, startTime time.Time, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Scheduler{
		tokens:    tokens,
		registry:  registry,
		queues:    queues,
		startTime: startTime,
		interval:  interval,
	}
}

// Start runs the poll loop until ctx is cancelled. Call as a goroutine.
// The ticker is driven independently of job execution, so a hung provider
// call never stalls it.
func (s *Scheduler) Start(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Time("horizon", s.startTime).Msg("scheduler started")

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates every registered provider once. Providers are polled
// concurrently so one slow API never delays the other. Exposed separately
// from the interval mechanism so tests can drive polls directly.
func (s *Scheduler) Tick(ctx context.Context) {
	var g errgroup.Group
	for _, adapter := range s.registry.List() {
		adapter := adapter
		g.Go(func() error {
			s.pollProvider(ctx, adapter)
			return nil
		})
	}
	g.Wait()
}

func (s *Scheduler) pollProvider(ctx context.Context, adapter providers.MailProvider) {
	provider := adapter.Name()

	creds, ok := s.tokens.Get(provider)
	if !ok {
		// Not an error: no account linked yet
		log.Debug().Str("provider", string(provider)).Msg("no credentials stored, skipping poll")
		return
	}

	candidates, err := adapter.ListCandidates(ctx, creds, s.startTime)
	if err != nil {
		log.Warn().Err(err).Str("provider", string(provider)).Msg("poll failed")
		return
	}

	if len(candidates) == 0 {
		log.Debug().Str("provider", string(provider)).Msg("no new messages")
		return
	}

	queue, ok := s.queues[provider]
	if !ok {
		log.Error().Str("provider", string(provider)).Msg("no job queue for provider")
		return
	}

	job := &types.ReplyJob{
		ID:         uuid.NewString(),
		Provider:   provider,
		EnqueuedAt: time.Now(),
	}
	if err := queue.Push(ctx, job); err != nil {
		log.Error().Err(err).Str("provider", string(provider)).Msg("failed to enqueue job")
		return
	}

	log.Info().
		Str("job_id", job.ID).
		Str("provider", string(provider)).
		Int("candidates", len(candidates)).
		Msg("job enqueued")
}
