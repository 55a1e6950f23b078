package apiv1

import (
	"context"
	"net/http"
	"time"

	"github.com/coldreach/autoreply/pkg/common"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const healthPingTimeout = 2 * time.Second

type HealthGroup struct {
	redisClient *common.RedisClient
	routerGroup *echo.Group
	startTime   time.Time
}

func NewHealthGroup(g *echo.Group, rdb *common.RedisClient, startTime time.Time) *HealthGroup {
	group := &HealthGroup{routerGroup: g, redisClient: rdb, startTime: startTime}

	g.GET("", group.HealthCheck)

	return group
}

func (h *HealthGroup) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
	defer cancel()

	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("health check failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status": "not ok",
			"error":  err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}
