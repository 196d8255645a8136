package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ars-tn/claims-flow-api/internal/dto"
	"github.com/ars-tn/claims-flow-api/internal/models"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
	"github.com/ars-tn/claims-flow-api/pkg/response"
)

type corbeilleService interface {
	Corbeille(ctx context.Context, viewer *models.User) (*dto.CorbeilleResponse, error)
	DocumentCorbeille(ctx context.Context, viewer *models.User) ([]models.Document, error)
}

// CorbeilleHandler serves the role-resolved inbox views.
type CorbeilleHandler struct {
	service corbeilleService
}

// NewCorbeilleHandler constructs the handler.
func NewCorbeilleHandler(svc corbeilleService) *CorbeilleHandler {
	return &CorbeilleHandler{service: svc}
}

// Corbeille godoc
// @Summary Role-specific bordereau buckets
// @Description Partitions the caller's visible bordereaux into work buckets per their role
// @Tags Corbeille
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /corbeille [get]
// @Security BearerAuth
func (h *CorbeilleHandler) Corbeille(c *gin.Context) {
	viewer := viewerFromClaims(claimsFromContext(c))
	if viewer == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	res, err := h.service.Corbeille(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Documents godoc
// @Summary Pending documents for the scan desk
// @Tags Corbeille
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/corbeille [get]
// @Security BearerAuth
func (h *CorbeilleHandler) Documents(c *gin.Context) {
	viewer := viewerFromClaims(claimsFromContext(c))
	if viewer == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	docs, err := h.service.DocumentCorbeille(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}
