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

type documentService interface {
	Create(ctx context.Context, req service.CreateDocumentRequest) (*models.Document, error)
	AssignToHandler(ctx context.Context, documentID, handlerID, assignedBy, reason string) (*models.Document, error)
	UpdateStatus(ctx context.Context, documentID string, status models.DocumentStatus) (*models.Document, error)
	ListByBordereau(ctx context.Context, bordereauID string) ([]models.Document, error)
}

type documentAssignRequest struct {
	HandlerID string `json:"handler_id" binding:"required"`
	Reason    string `json:"reason,omitempty"`
}

type documentStatusRequest struct {
	Status models.DocumentStatus `json:"status" binding:"required"`
}

// DocumentHandler manages the items carried by bordereaux.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(svc documentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Create godoc
// @Summary Register a document on a bordereau
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body service.CreateDocumentRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents [post]
// @Security BearerAuth
func (h *DocumentHandler) Create(c *gin.Context) {
	var req service.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return
	}
	doc, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Assign godoc
// @Summary Assign a document to a handler
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body documentAssignRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/assign [post]
// @Security BearerAuth
func (h *DocumentHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req documentAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	doc, err := h.service.AssignToHandler(c.Request.Context(), c.Param("id"), req.HandlerID, claims.UserID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// UpdateStatus godoc
// @Summary Update a document's status
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body documentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents/{id}/status [patch]
// @Security BearerAuth
func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	var req documentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	doc, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// ListByBordereau godoc
// @Summary Documents of a bordereau
// @Tags Documents
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Router /bordereaux/{id}/documents [get]
// @Security BearerAuth
func (h *DocumentHandler) ListByBordereau(c *gin.Context) {
	docs, err := h.service.ListByBordereau(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}
