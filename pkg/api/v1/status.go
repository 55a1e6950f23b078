package apiv1

import (
	"github.com/coldreach/autoreply/pkg/repository"
	"github.com/coldreach/autoreply/pkg/types"
	"github.com/labstack/echo/v4"
)

// StatusGroup exposes a read-only view of the mailer's state
type StatusGroup struct {
	tokens repository.TokenStore
	ledger repository.DedupLedger
	queues map[types.ProviderName]repository.JobQueue
}

func NewStatusGroup(g *echo.Group, tokens repository.TokenStore, ledger repository.DedupLedger, queues map[types.ProviderName]repository.JobQueue) *StatusGroup {
	group := &StatusGroup{
		tokens: tokens,
		ledger: ledger,
		queues: queues,
	}

	g.GET("", group.Status)

	return group
}

type statusResponse struct {
	LinkedProviders []types.ProviderName `json:"linked_providers"`
	QueueDepth      map[string]int64     `json:"queue_depth"`
	ProcessedCount  int64                `json:"processed_count"`
}

func (sg *StatusGroup) Status(c echo.Context) error {
	ctx := c.Request().Context()

	resp := statusResponse{
		LinkedProviders: sg.tokens.Providers(),
		QueueDepth:      make(map[string]int64, len(sg.queues)),
	}

	for provider, queue := range sg.queues {
		depth, err := queue.Len(ctx)
		if err != nil {
			depth = -1
		}
		resp.QueueDepth[string(provider)] = depth
	}

	if count, err := sg.ledger.Size(ctx); err == nil {
		resp.ProcessedCount = count
	}

	return SuccessResponse(c, resp)
}
