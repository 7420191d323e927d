package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/logger"
	"github.com/erp/exchange/internal/interfaces/http/dto"
)

const defaultHistoryLimit = 20

// Pinger checks a backing service.
type Pinger interface {
	Ping() error
}

// SyncHistory lists recent exchange runs.
type SyncHistory interface {
	RecentSyncs(ctx context.Context, limit int) ([]exchange.SyncLogEntry, error)
}

// SystemHandler serves health, build info and exchange history.
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	db        Pinger
	history   SyncHistory
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. db and history may be nil.
func NewSystemHandler(name, version string, db Pinger, history SyncHistory) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		db:        db,
		history:   history,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name      string `json:"name" example:"cml-exchange"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// HealthResponse reports the state of the service and its database.
// @name HandlerHealthResponse
type HealthResponse struct {
	Status   string `json:"status" example:"ok" enums:"ok,degraded"`
	Database string `json:"database" example:"ok" enums:"ok,unreachable,disabled"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Description  Returns the service name, version and uptime
// @Tags         system
// @Produce      json
// @Security     BasicAuth
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Failure      401 {string} string "failure"
// @Router       /api/v1/system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Health godoc
// @ID           getHealth
// @Summary      Liveness check
// @Description  Reports liveness; answers 503 when the database is unreachable
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Failure      503 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Database: "disabled"}
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Database = "unreachable"
			c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(resp))
			return
		}
		resp.Database = "ok"
	}
	h.Success(c, resp)
}

// History godoc
// @ID           listSyncHistory
// @Summary      List recent exchange runs
// @Description  Returns the latest sync log entries, newest first
// @Tags         system
// @Produce      json
// @Security     BasicAuth
// @Param        limit query int false "Number of entries (1-200)" default(20)
// @Success      200 {object} APIResponse[[]dto.SyncLogResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {string} string "failure"
// @Failure      500 {object} ErrorResponse
// @Router       /api/v1/system/history [get]
func (h *SystemHandler) History(c *gin.Context) {
	var req dto.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "limit must be between 1 and 200")
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultHistoryLimit
	}
	if h.history == nil {
		h.Success(c, []dto.SyncLogResponse{})
		return
	}

	entries, err := h.history.RecentSyncs(c.Request.Context(), req.Limit)
	if err != nil {
		logger.GetGinLogger(c).Error("Failed to load sync history", zap.Error(err))
		h.InternalError(c, "failed to load sync history")
		return
	}
	h.Success(c, dto.NewSyncLogResponses(entries))
}
