package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/poofware/inventory-service/internal/dtos"
	"github.com/poofware/inventory-service/internal/utils"
	"github.com/redis/go-redis/v9"
)

// DBPinger is satisfied by *pgxpool.Pool.
type DBPinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db    DBPinger
	redis *redis.Client
}

// NewHealthController takes a nil redis client when Redis is not configured.
func NewHealthController(db DBPinger, rdb *redis.Client) *HealthController {
	return &HealthController{db: db, redis: rdb}
}

// HealthCheckHandler => GET /api/v1/inventory/health
func (c *HealthController) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := dtos.HealthCheckResponse{Status: "OK", Database: "up"}
	if err := c.db.Ping(ctx); err != nil {
		utils.Logger.WithError(err).Error("inventory-service DB unreachable")
		utils.RespondErrorWithCode(w, http.StatusServiceUnavailable, utils.ErrCodeInternal, "Database unreachable", nil, err)
		return
	}
	if c.redis != nil {
		resp.Redis = "up"
		if err := c.redis.Ping(ctx).Err(); err != nil {
			// Redis only fans out push events; the API keeps serving without it.
			utils.Logger.WithError(err).Warn("Redis unreachable")
			resp.Status = "DEGRADED"
			resp.Redis = "down"
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
