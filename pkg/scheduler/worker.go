package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/coldreach/autoreply/pkg/classifier"
	"github.com/coldreach/autoreply/pkg/common"
	"github.com/coldreach/autoreply/pkg/generator"
	"github.com/coldreach/autoreply/pkg/providers"
	"github.com/coldreach/autoreply/pkg/repository"
	"github.com/coldreach/autoreply/pkg/types"
	"github.com/rs/zerolog/log"
)

const (
	streamLockTTL     = 5 * time.Minute
	streamLockRetry   = 500 * time.Millisecond
	streamLockRetries = 10
	popErrorBackoff   = time.Second
)

// Worker drains reply jobs. One goroutine per provider stream keeps
// processing sequential within a provider while the two providers run
// concurrently; a per-provider redislock upholds the same guarantee
// across replicas.
type Worker struct {
	tokens    repository.TokenStore
	registry  *providers.Registry
	queues    map[types.ProviderName]repository.JobQueue
	ledger    repository.DedupLedger
	generator generator.Generator
	rdb       *common.RedisClient
	locker    *redislock.Client
	startTime time.Time
}

// NewWorker creates a worker over the given provider streams
func NewWorker(tokens repository.TokenStore, registry *providers.Registry, queues map[types.ProviderName]repository.JobQueue, ledger repository.DedupLedger, gen generator.Generator, rdb *common.RedisClient, startTime time.Time) *Worker {
	return &Worker{
		tokens:    tokens,
		registry:  registry,
		queues:    queues,
		ledger:    ledger,
		generator: gen,
		rdb:       rdb,
		locker:    redislock.New(rdb),
		startTime: startTime,
	}
}

// Start launches one drain goroutine per provider stream and blocks until
// ctx is cancelled
func (w *Worker) Start(ctx context.Context) {
	for provider, queue := range w.queues {
		go w.drain(ctx, provider, queue)
	}
	<-ctx.Done()
}

func (w *Worker) drain(ctx context.Context, provider types.ProviderName, queue repository.JobQueue) {
	log.Info().Str("provider", string(provider)).Msg("worker stream started")

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("provider", string(provider)).Msg("failed to pop job")
			time.Sleep(popErrorBackoff)
			continue
		}
		if job == nil {
			continue
		}

		if err := w.processJob(ctx, job); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Str("provider", string(job.Provider)).Msg("job failed")
		} else {
			log.Info().Str("job_id", job.ID).Str("provider", string(job.Provider)).Msg("job completed")
		}
	}
}

// processJob re-lists the provider's current candidates and processes them
// in order. A job-level failure (credentials, listing) fails the whole
// job with no retry: the messages are rediscovered on the next poll since
// only per-message success consumes a ledger slot.
func (w *Worker) processJob(ctx context.Context, job *types.ReplyJob) error {
	lock, err := w.locker.Obtain(ctx, common.Keys.WorkerStreamLock(string(job.Provider)), streamLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(streamLockRetry), streamLockRetries),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			// Another replica holds the stream; its poll will cover these messages
			log.Warn().Str("job_id", job.ID).Str("provider", string(job.Provider)).Msg("stream lock busy, dropping job")
			return nil
		}
		return err
	}
	defer lock.Release(context.WithoutCancel(ctx))

	creds, ok := w.tokens.Get(job.Provider)
	if !ok {
		log.Warn().Str("job_id", job.ID).Str("provider", string(job.Provider)).Msg("credentials gone, dropping job")
		return nil
	}

	adapter, err := w.registry.Get(job.Provider)
	if err != nil {
		return err
	}

	candidates, err := adapter.ListCandidates(ctx, creds, w.startTime)
	if err != nil {
		return err
	}

	for _, candidate := range candidates {
		// Per-message failures are contained: log, leave the message
		// unclaimed for the next poll, and continue with the rest.
		if err := w.processMessage(ctx, adapter, creds, candidate); err != nil {
			log.Error().
				Err(err).
				Str("message_id", candidate.ID).
				Str("provider", string(candidate.Provider)).
				Msg("failed to process message")
		}
	}
	return nil
}

func (w *Worker) processMessage(ctx context.Context, adapter providers.MailProvider, creds *types.Credentials, candidate types.MessageCandidate) error {
	claimed, err := w.ledger.TryClaim(ctx, candidate.ID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Debug().Str("message_id", candidate.ID).Msg("already processed, skipping")
		return nil
	}

	detail, err := adapter.FetchDetail(ctx, creds, candidate.ID)
	if err != nil {
		w.releaseClaim(ctx, candidate.ID)
		return err
	}

	// Echoes of our own messages keep their ledger slot so they aren't
	// re-detected every poll until they age out of the fetch window
	if isOwnAddress(detail.Sender, adapter.SelfAddress()) {
		log.Info().Str("message_id", candidate.ID).Str("provider", string(candidate.Provider)).Msg("message from linked account, skipping")
		return nil
	}

	if w.sendCooldownActive(ctx, candidate.Provider) {
		log.Warn().Str("message_id", candidate.ID).Str("provider", string(candidate.Provider)).Msg("send cooldown active, deferring message")
		w.releaseClaim(ctx, candidate.ID)
		return nil
	}

	category := classifier.Classify(detail.Content)
	log.Info().
		Str("message_id", candidate.ID).
		Str("sender", detail.Sender).
		Str("category", string(category)).
		Msg("message classified")

	text, err := w.generator.Generate(ctx, category)
	if err != nil {
		w.releaseClaim(ctx, candidate.ID)
		return err
	}

	if err := adapter.SendReply(ctx, creds, detail.Sender, text); err != nil {
		if types.IsRateLimited(err) {
			w.setSendCooldown(ctx, candidate.Provider)
		}
		w.releaseClaim(ctx, candidate.ID)
		return err
	}

	return nil
}

func (w *Worker) releaseClaim(ctx context.Context, id string) {
	if err := w.ledger.Release(context.WithoutCancel(ctx), id); err != nil {
		log.Error().Err(err).Str("message_id", id).Msg("failed to release ledger claim")
	}
}

// sendCooldownActive reports whether the provider signalled a daily send
// quota earlier today
func (w *Worker) sendCooldownActive(ctx context.Context, provider types.ProviderName) bool {
	n, err := w.rdb.Exists(ctx, common.Keys.WorkerSendCooldown(string(provider))).Result()
	if err != nil {
		log.Error().Err(err).Str("provider", string(provider)).Msg("cooldown check failed")
		return false
	}
	return n > 0
}

// setSendCooldown suppresses further sends to the provider until the end
// of the current UTC day, when the quota resets
func (w *Worker) setSendCooldown(ctx context.Context, provider types.ProviderName) {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)

	err := w.rdb.SetNX(ctx, common.Keys.WorkerSendCooldown(string(provider)), "1", midnight.Sub(now)).Err()
	if err != nil {
		log.Error().Err(err).Str("provider", string(provider)).Msg("failed to set send cooldown")
		return
	}
	log.Warn().Str("provider", string(provider)).Time("until", midnight).Msg("daily send limit reached, suppressing sends")
}

func isOwnAddress(sender, selfAddress string) bool {
	if selfAddress == "" {
		return false
	}
	return strings.Contains(strings.ToLower(sender), strings.ToLower(selfAddress))
}
