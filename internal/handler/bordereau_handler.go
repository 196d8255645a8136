package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/internal/service"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
	"github.com/ars-tn/claims-flow-api/pkg/response"
)

type lifecycleService interface {
	Intake(ctx context.Context, req service.CreateBordereauRequest, actorID string) (*models.Bordereau, error)
	Get(ctx context.Context, id string) (*models.Bordereau, error)
	Apply(ctx context.Context, bordereauID string, event models.LifecycleEvent, params service.TransitionParams) (*models.Bordereau, error)
}

type assignmentTrailReader interface {
	Trail(ctx context.Context, bordereauID string) ([]models.AssignmentRecord, error)
}

type slaEvaluator interface {
	EvaluateBordereau(b *models.Bordereau, now time.Time) models.SLAStatus
}

// bordereauView is the detail payload: the entity plus its derived SLA.
type bordereauView struct {
	*models.Bordereau
	SLA models.SLAStatus `json:"sla"`
}

// rejectRequest carries the mandatory rejection context.
type rejectRequest struct {
	Reason   string                   `json:"reason"`
	ReturnTo models.ReturnDestination `json:"return_to"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// BordereauHandler exposes intake and lifecycle transition endpoints.
type BordereauHandler struct {
	lifecycle lifecycleService
	trail     assignmentTrailReader
	sla       slaEvaluator
}

// NewBordereauHandler constructs the handler.
func NewBordereauHandler(lifecycle lifecycleService, trail assignmentTrailReader, sla slaEvaluator) *BordereauHandler {
	return &BordereauHandler{lifecycle: lifecycle, trail: trail, sla: sla}
}

// Create godoc
// @Summary Register a bordereau at intake
// @Tags Bordereaux
// @Accept json
// @Produce json
// @Param payload body service.CreateBordereauRequest true "Intake payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /bordereaux [post]
// @Security BearerAuth
func (h *BordereauHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateBordereauRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid intake payload"))
		return
	}
	b, err := h.lifecycle.Intake(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.view(b))
}

// Get godoc
// @Summary Fetch a bordereau with derived SLA health
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bordereaux/{id} [get]
// @Security BearerAuth
func (h *BordereauHandler) Get(c *gin.Context) {
	b, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.view(b), nil)
}

// Trail godoc
// @Summary Assignment history of a bordereau
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Router /bordereaux/{id}/trail [get]
// @Security BearerAuth
func (h *BordereauHandler) Trail(c *gin.Context) {
	records, err := h.trail.Trail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// StartScan godoc
// @Summary Begin scanning a bordereau
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/scan/start [post]
// @Security BearerAuth
func (h *BordereauHandler) StartScan(c *gin.Context) {
	h.apply(c, models.EventStartScan, service.TransitionParams{})
}

// CompleteScan godoc
// @Summary Finish scanning; makes the bordereau assignable
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/scan/complete [post]
// @Security BearerAuth
func (h *BordereauHandler) CompleteScan(c *gin.Context) {
	h.apply(c, models.EventCompleteScan, service.TransitionParams{})
}

// Process godoc
// @Summary Mark processing complete; ready for payment
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/process [post]
// @Security BearerAuth
func (h *BordereauHandler) Process(c *gin.Context) {
	h.apply(c, models.EventProcess, service.TransitionParams{})
}

// InitiatePayment godoc
// @Summary Start the virement
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/payment/initiate [post]
// @Security BearerAuth
func (h *BordereauHandler) InitiatePayment(c *gin.Context) {
	h.apply(c, models.EventInitiatePayment, service.TransitionParams{})
}

// ExecutePayment godoc
// @Summary Confirm virement execution
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/payment/execute [post]
// @Security BearerAuth
func (h *BordereauHandler) ExecutePayment(c *gin.Context) {
	h.apply(c, models.EventExecutePayment, service.TransitionParams{})
}

// RejectPayment godoc
// @Summary Record a rejected virement
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/payment/reject [post]
// @Security BearerAuth
func (h *BordereauHandler) RejectPayment(c *gin.Context) {
	h.apply(c, models.EventRejectPayment, service.TransitionParams{})
}

// RetryPayment godoc
// @Summary Requeue a rejected virement
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/payment/retry [post]
// @Security BearerAuth
func (h *BordereauHandler) RetryPayment(c *gin.Context) {
	h.apply(c, models.EventRetryPayment, service.TransitionParams{})
}

// Close godoc
// @Summary Close a bordereau after executed payment
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/close [post]
// @Security BearerAuth
func (h *BordereauHandler) Close(c *gin.Context) {
	h.apply(c, models.EventClose, service.TransitionParams{})
}

// Reject godoc
// @Summary Send a bordereau back to intake or scan
// @Tags Bordereaux
// @Accept json
// @Produce json
// @Param id path string true "Bordereau ID"
// @Param payload body rejectRequest true "Rejection context"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/reject [post]
// @Security BearerAuth
func (h *BordereauHandler) Reject(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reject payload"))
		return
	}
	h.apply(c, models.EventReject, service.TransitionParams{Reason: req.Reason, ReturnTo: req.ReturnTo})
}

// Recuperer godoc
// @Summary Reclaim a bordereau from its handler
// @Tags Bordereaux
// @Accept json
// @Produce json
// @Param id path string true "Bordereau ID"
// @Param payload body reasonRequest true "Reclaim reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/recuperer [post]
// @Security BearerAuth
func (h *BordereauHandler) Recuperer(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recuperer payload"))
		return
	}
	h.apply(c, models.EventRecuperer, service.TransitionParams{Reason: req.Reason})
}

// Handle godoc
// @Summary Chef d'équipe takes the bordereau personally
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/handle [post]
// @Security BearerAuth
func (h *BordereauHandler) Handle(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.apply(c, models.EventHandlePersonally, service.TransitionParams{HandlerID: claims.UserID})
}

// MarkDifficulte godoc
// @Summary Flag a bordereau as blocked
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/difficulte [post]
// @Security BearerAuth
func (h *BordereauHandler) MarkDifficulte(c *gin.Context) {
	h.apply(c, models.EventMarkDifficulte, service.TransitionParams{})
}

// ResolveDifficulte godoc
// @Summary Unblock a bordereau
// @Tags Bordereaux
// @Produce json
// @Param id path string true "Bordereau ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bordereaux/{id}/difficulte/resolve [post]
// @Security BearerAuth
func (h *BordereauHandler) ResolveDifficulte(c *gin.Context) {
	h.apply(c, models.EventResolveDifficulte, service.TransitionParams{})
}

func (h *BordereauHandler) apply(c *gin.Context, event models.LifecycleEvent, params service.TransitionParams) {
	if claims := claimsFromContext(c); claims != nil {
		params.ActorID = claims.UserID
	}
	b, err := h.lifecycle.Apply(c.Request.Context(), c.Param("id"), event, params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.view(b), nil)
}

func (h *BordereauHandler) view(b *models.Bordereau) bordereauView {
	return bordereauView{
		Bordereau: b,
		SLA:       h.sla.EvaluateBordereau(b, time.Now().UTC()),
	}
}
