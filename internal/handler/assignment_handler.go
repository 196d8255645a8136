package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/internal/service"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
	"github.com/ars-tn/claims-flow-api/pkg/response"
)

type assignmentService interface {
	Assign(ctx context.Context, req service.AssignRequest) (*models.AssignmentResult, error)
}

// AssignmentHandler exposes the batch assignment endpoint.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// Assign godoc
// @Summary Assign bordereaux to handlers
// @Description Places each target per the chosen policy and reports per-target outcomes
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.AssignRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assignments [post]
// @Security BearerAuth
func (h *AssignmentHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	req.AssignedBy = claims.UserID

	// Only supervisors may force past the capacity gate.
	if req.Override && claims.Role != models.RoleChefEquipe && claims.Role != models.RoleSuperAdmin {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "override requires a supervisor role"))
		return
	}

	result, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
