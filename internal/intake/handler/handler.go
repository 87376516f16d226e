// Package handler exposes the intake engine over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apphttp "sales_command_center/internal/http"
	"sales_command_center/internal/intake"
	"sales_command_center/internal/intake/transport"
	"sales_command_center/platform/httpkit"
	"sales_command_center/platform/logger"
	"sales_command_center/platform/validator"
)

// Handler serves the poll-cycle trigger and the manual import endpoint.
type Handler struct {
	engine   *intake.Engine
	validate *validator.Validator
	log      *logger.Logger
}

// New creates the intake handler.
func New(engine *intake.Engine, validate *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{engine: engine, validate: validate, log: log}
}

// Name implements the HTTP module interface.
func (h *Handler) Name() string { return "intake" }

// RegisterRoutes mounts the intake endpoints. All of them are
// scheduler/operator surfaces and live behind the cron-secret guard.
func (h *Handler) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Cron.Group("/intake")
	group.POST("/poll", h.pollCycle)
	group.POST("/import", h.importJob)
	group.POST("/daily-summary", h.dailySummary)
}

// pollCycle runs one intake and reconciliation cycle. Item-scoped failures
// ride inside the 200 report; only a cycle-fatal failure produces a non-2xx.
func (h *Handler) pollCycle(c *gin.Context) {
	ctx := logger.WithCycleID(c.Request.Context(), uuid.NewString())

	report, err := h.engine.RunCycle(ctx)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, report)
}

func (h *Handler) importJob(c *gin.Context) {
	var req transport.ImportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.engine.ImportJob(c.Request.Context(), req.JobID, req.Category)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) dailySummary(c *gin.Context) {
	delivery, err := h.engine.RunDailySummary(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, delivery)
}
