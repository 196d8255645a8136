package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/internal/repository"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
)

type bordereauStore interface {
	Create(ctx context.Context, b *models.Bordereau) error
	FindByID(ctx context.Context, id string) (*models.Bordereau, error)
	ApplyTransition(ctx context.Context, upd repository.TransitionUpdate) error
}

type clientReader interface {
	FindByID(ctx context.Context, id string) (*models.Client, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateBordereauRequest is the BO intake payload.
type CreateBordereauRequest struct {
	Reference string `json:"reference" validate:"required"`
	ClientID  string `json:"client_id" validate:"required"`
	NombreBS  int    `json:"nombre_bs" validate:"gte=0"`
}

// TransitionParams carries the per-event inputs of a transition.
type TransitionParams struct {
	ActorID     string
	Reason      string
	ReturnTo    models.ReturnDestination
	HandlerID   string
	DateFinScan *time.Time
}

// LifecycleService owns the bordereau state machine: it validates
// events against the transition table and applies them with optimistic
// concurrency on the statut column. Auto-chained transitions are atomic
// from the caller's point of view; the intermediate state is never
// persisted.
type LifecycleService struct {
	bordereaux bordereauStore
	clients    clientReader
	audit      auditLogger
	notifier   Notifier
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewLifecycleService creates a service instance.
func NewLifecycleService(
	store bordereauStore,
	clients clientReader,
	audit auditLogger,
	notifier Notifier,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *LifecycleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		bordereaux: store,
		clients:    clients,
		audit:      audit,
		notifier:   notifier,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// Intake registers a new bordereau at A_SCANNER. The contractual delay
// is inherited from the client's active contract.
func (s *LifecycleService) Intake(ctx context.Context, req CreateBordereauRequest, actorID string) (*models.Bordereau, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid intake payload")
	}

	client, err := s.clients.FindByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownEntity, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}
	if !client.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "client contract is inactive")
	}
	if client.DelaiReglement <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "client has no contractual delay configured")
	}

	b := &models.Bordereau{
		Reference:      strings.TrimSpace(req.Reference),
		ClientID:       client.ID,
		DateReception:  s.now().UTC(),
		NombreBS:       req.NombreBS,
		DelaiReglement: client.DelaiReglement,
		Statut:         models.StatutAScanner,
	}
	if err := s.bordereaux.Create(ctx, b); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create bordereau")
	}

	s.emitAudit(ctx, actorID, models.AuditActionIntake, b.ID, map[string]interface{}{
		"reference": b.Reference,
		"client_id": b.ClientID,
		"statut":    b.Statut,
	})
	return b, nil
}

// Get loads a bordereau.
func (s *LifecycleService) Get(ctx context.Context, id string) (*models.Bordereau, error) {
	b, err := s.bordereaux.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownEntity, "bordereau not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bordereau")
	}
	return b, nil
}

// Apply validates the event against the current statut and applies it.
// Events not legal from the current state fail with ILLEGAL_TRANSITION
// and leave the bordereau untouched; a concurrent statut change between
// read and update fails with STALE_STATE.
func (s *LifecycleService) Apply(ctx context.Context, bordereauID string, event models.LifecycleEvent, params TransitionParams) (*models.Bordereau, error) {
	b, err := s.Get(ctx, bordereauID)
	if err != nil {
		return nil, err
	}

	upd, auditAction, err := s.buildUpdate(b, event, params)
	if err != nil {
		return nil, err
	}

	if err := s.bordereaux.ApplyTransition(ctx, upd); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrUnknownEntity, "bordereau not found")
		case errors.Is(err, repository.ErrStaleStatut):
			s.metrics.RecordTransition(string(event), "stale")
			return nil, appErrors.Clone(appErrors.ErrStaleState, "bordereau statut changed, refetch and retry")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
		}
	}

	s.metrics.RecordTransition(string(event), "applied")
	s.emitAudit(ctx, params.ActorID, auditAction, b.ID, map[string]interface{}{
		"event":  event,
		"from":   upd.FromStatut,
		"to":     upd.ToStatut,
		"reason": params.Reason,
	})
	dispatchNotification(s.notifier, s.logger, NotificationEvent{
		Kind:        NotifyTransition,
		BordereauID: b.ID,
		HandlerID:   params.HandlerID,
		Event:       event,
		FromStatut:  upd.FromStatut,
		ToStatut:    upd.ToStatut,
		Reason:      params.Reason,
	})

	return s.Get(ctx, bordereauID)
}

// buildUpdate resolves the transition table and the per-event side
// effects into a TransitionUpdate. It performs no I/O.
func (s *LifecycleService) buildUpdate(b *models.Bordereau, event models.LifecycleEvent, params TransitionParams) (repository.TransitionUpdate, string, error) {
	var zero repository.TransitionUpdate

	auditAction := models.AuditActionTransition
	upd := repository.TransitionUpdate{
		BordereauID: b.ID,
		FromStatut:  b.Statut,
	}

	switch event {
	case models.EventReject:
		if strings.TrimSpace(params.Reason) == "" {
			return zero, "", appErrors.Clone(appErrors.ErrMissingReason, "reject requires a reason")
		}
		if !b.Statut.IsHandlerHeld() {
			return zero, "", s.illegal(event, b.Statut)
		}
		target, ok := models.RejectTarget(params.ReturnTo)
		if !ok {
			return zero, "", appErrors.Clone(appErrors.ErrValidation, "returnTo must be BO or SCAN")
		}
		upd.ToStatut = target
		upd.ClearAssigned = true
		upd.ReleaseLedger = true
		auditAction = models.AuditActionReject

	case models.EventRecuperer:
		if strings.TrimSpace(params.Reason) == "" {
			return zero, "", appErrors.Clone(appErrors.ErrMissingReason, "recuperer requires a reason")
		}
		target, ok := models.NextStatut(b.Statut, event)
		if !ok {
			return zero, "", s.illegal(event, b.Statut)
		}
		upd.ToStatut = target
		upd.ClearAssigned = true
		upd.ReleaseLedger = true
		auditAction = models.AuditActionRecuperer

	case models.EventHandlePersonally:
		if params.HandlerID == "" {
			return zero, "", appErrors.Clone(appErrors.ErrValidation, "handler id is required")
		}
		target, ok := models.NextStatut(b.Statut, event)
		if !ok {
			return zero, "", s.illegal(event, b.Statut)
		}
		handlerID := params.HandlerID
		upd.ToStatut = target
		upd.AssignedTo = &handlerID
		upd.ReleaseLedger = true
		upd.LedgerRecord = s.trailRecord(b, handlerID, params.ActorID, string(models.EventHandlePersonally), params.Reason)
		auditAction = models.AuditActionHandlePersonally

	case models.EventCompleteScan:
		target, ok := models.NextStatut(b.Statut, event)
		if !ok {
			return zero, "", s.illegal(event, b.Statut)
		}
		finScan := s.now().UTC()
		if params.DateFinScan != nil {
			finScan = params.DateFinScan.UTC()
		}
		upd.ToStatut = target
		upd.DateFinScan = &finScan

	case models.EventProcess:
		target, ok := models.NextStatut(b.Statut, event)
		if !ok {
			return zero, "", s.illegal(event, b.Statut)
		}
		upd.ToStatut = target
		// Processing ends the handler's open assignment; the payment
		// chain runs off the handler's desk.
		upd.ReleaseLedger = true

	default:
		target, ok := models.NextStatut(b.Statut, event)
		if !ok {
			return zero, "", s.illegal(event, b.Statut)
		}
		upd.ToStatut = target
	}

	return upd, auditAction, nil
}

func (s *LifecycleService) illegal(event models.LifecycleEvent, from models.BordereauStatut) error {
	s.metrics.RecordTransition(string(event), "illegal")
	return appErrors.Clone(appErrors.ErrIllegalTransition,
		"event "+string(event)+" is not allowed from statut "+string(from))
}

func (s *LifecycleService) trailRecord(b *models.Bordereau, toHandler, actorID, policy, reason string) *models.AssignmentRecord {
	bordereauID := b.ID
	rec := &models.AssignmentRecord{
		BordereauID: &bordereauID,
		ToHandlerID: toHandler,
		AssignedBy:  actorID,
		Policy:      policy,
		Reason:      reason,
	}
	if b.AssignedToUserID != nil {
		from := *b.AssignedToUserID
		rec.FromHandlerID = &from
	}
	return rec
}

func (s *LifecycleService) emitAudit(ctx context.Context, actorID, action, resourceID string, payload map[string]interface{}) {
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(payload)
	var userID *string
	if actorID != "" {
		userID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   "bordereau",
		ResourceID: &resourceID,
		NewValues:  body,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
