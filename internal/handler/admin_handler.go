package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hokieplan/schedule-api/internal/models"
	"github.com/hokieplan/schedule-api/internal/service"
	appErrors "github.com/hokieplan/schedule-api/pkg/errors"
	"github.com/hokieplan/schedule-api/pkg/response"
)

type statusProvider interface {
	Status(ctx context.Context) (*service.SystemStatus, error)
}

type costLedger interface {
	Summary(ctx context.Context) (*models.CostSummary, error)
	RequestUsage(ctx context.Context, requestID string) ([]models.UsageRecord, error)
	ExportCSV(ctx context.Context, limit int) ([]byte, error)
}

// AdminHandler exposes the JWT-guarded operator endpoints.
type AdminHandler struct {
	status statusProvider
	costs  costLedger
	events *service.EventLog
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(schedules *service.ScheduleService, costs *service.CostService, events *service.EventLog) *AdminHandler {
	return &AdminHandler{status: schedules, costs: costs, events: events}
}

// Status godoc
// @Summary Pipeline status and quota state
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/status [get]
func (h *AdminHandler) Status(c *gin.Context) {
	status, err := h.status.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Events godoc
// @Summary Recent pipeline events
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum events to return"
// @Success 200 {object} response.Envelope
// @Router /admin/events [get]
func (h *AdminHandler) Events(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	response.JSON(c, http.StatusOK, h.events.Recent(limit), nil)
}

// CostSummary godoc
// @Summary Aggregate oracle spend
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/costs [get]
func (h *AdminHandler) CostSummary(c *gin.Context) {
	summary, err := h.costs.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// RequestUsage godoc
// @Summary Ledger entries for one request
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /admin/costs/requests/{id} [get]
func (h *AdminHandler) RequestUsage(c *gin.Context) {
	records, err := h.costs.RequestUsage(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ExportCosts godoc
// @Summary Export the cost ledger as CSV
// @Tags Admin
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /admin/costs/export [get]
func (h *AdminHandler) ExportCosts(c *gin.Context) {
	data, err := h.costs.ExportCSV(c.Request.Context(), 0)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export cost ledger"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="oracle-costs.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
