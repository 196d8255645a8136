package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/pkg/response"
)

type workloadService interface {
	ComputeHandler(ctx context.Context, handlerID string) (*models.HandlerWorkload, error)
	ComputeTeam(ctx context.Context, teamID string) (*models.TeamWorkload, error)
}

// WorkloadHandler exposes derived workload views.
type WorkloadHandler struct {
	service workloadService
}

// NewWorkloadHandler constructs the handler.
func NewWorkloadHandler(svc workloadService) *WorkloadHandler {
	return &WorkloadHandler{service: svc}
}

// Handler godoc
// @Summary Workload snapshot of one handler
// @Tags Workload
// @Produce json
// @Param id path string true "Handler ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /workload/handlers/{id} [get]
// @Security BearerAuth
func (h *WorkloadHandler) Handler(c *gin.Context) {
	wl, err := h.service.ComputeHandler(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, wl, nil)
}

// Team godoc
// @Summary Aggregate workload of a team
// @Tags Workload
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /workload/teams/{id} [get]
// @Security BearerAuth
func (h *WorkloadHandler) Team(c *gin.Context) {
	wl, err := h.service.ComputeTeam(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, wl, nil)
}
