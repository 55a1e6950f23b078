package common

import "fmt"

var (
	// Ledger keys
	ledgerProcessed string = "mailer:ledger:processed"

	// Queue keys
	queueJobs string = "mailer:queue:%s" // provider

	// Worker keys
	workerStreamLock   string = "mailer:lock:stream:%s"   // provider
	workerSendCooldown string = "mailer:cooldown:send:%s" // provider
)

var Keys = &redisKeys{}

type redisKeys struct{}

// Ledger keys
func (rk *redisKeys) LedgerProcessed() string {
	return ledgerProcessed
}

// Queue keys
func (rk *redisKeys) QueueJobs(provider string) string {
	return fmt.Sprintf(queueJobs, provider)
}

// Worker keys
func (rk *redisKeys) WorkerStreamLock(provider string) string {
	return fmt.Sprintf(workerStreamLock, provider)
}

func (rk *redisKeys) WorkerSendCooldown(provider string) string {
	return fmt.Sprintf(workerSendCooldown, provider)
}
