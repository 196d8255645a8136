package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/internal/repository"
	"github.com/ars-tn/claims-flow-api/pkg/config"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
)

type assignmentLedger interface {
	CountOpenByHandlers(ctx context.Context, handlerIDs []string) (map[string]int, error)
	LastHandlerForClient(ctx context.Context, clientID string) (string, error)
	ListByBordereau(ctx context.Context, bordereauID string) ([]models.AssignmentRecord, error)
}

type assignmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListActiveByRoles(ctx context.Context, roles []models.UserRole) ([]models.User, error)
}

// Scorer ranks handlers for a bordereau. It is an external
// collaborator; scores are per handler id, higher wins.
type Scorer interface {
	Score(ctx context.Context, b *models.Bordereau, handlers []models.User) (map[string]float64, error)
}

// AssignRequest is the batch assignment payload. Targets are processed
// independently: one failure never aborts the rest.
type AssignRequest struct {
	Targets    []string                `json:"targets" validate:"required,min=1,dive,required"`
	Policy     models.AssignmentPolicy `json:"policy" validate:"required"`
	HandlerID  string                  `json:"handler_id,omitempty"`
	Override   bool                    `json:"override,omitempty"`
	Reason     string                  `json:"reason,omitempty"`
	AssignedBy string                  `json:"-"`
}

// AssignmentService places bordereaux on handlers. Capacity is always
// derived from open ledger records at call time, adjusted in memory as
// the batch progresses so one call cannot overfill a handler; the
// statut CAS in the repository serializes races between calls.
type AssignmentService struct {
	bordereaux bordereauStore
	ledger     assignmentLedger
	users      assignmentUserReader
	scorer     Scorer
	notifier   Notifier
	metrics    *MetricsService
	cfg        config.WorkloadConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAssignmentService creates the engine. The scorer may be nil: the
// AI_SCORED policy then degrades to WORKLOAD_BALANCED.
func NewAssignmentService(
	bordereaux bordereauStore,
	ledger assignmentLedger,
	users assignmentUserReader,
	scorer Scorer,
	notifier Notifier,
	metrics *MetricsService,
	cfg config.WorkloadConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *AssignmentService {
	if cfg.DefaultCapacity <= 0 {
		cfg.DefaultCapacity = 20
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		bordereaux: bordereaux,
		ledger:     ledger,
		users:      users,
		scorer:     scorer,
		notifier:   notifier,
		metrics:    metrics,
		cfg:        cfg,
		validator:  validate,
		logger:     logger,
	}
}

// candidate tracks one handler's remaining room while a batch runs.
type candidate struct {
	user     models.User
	open     int
	capacity int
}

func (c *candidate) utilization() float64 {
	return float64(c.open) / float64(c.capacity)
}

func (c *candidate) available() bool {
	return c.open < c.capacity
}

// Assign processes the batch and reports per-target outcomes.
func (s *AssignmentService) Assign(ctx context.Context, req AssignRequest) (*models.AssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !req.Policy.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown assignment policy "+string(req.Policy))
	}
	if req.Policy == models.PolicyManual && req.HandlerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "manual assignment requires a handler id")
	}

	pool, err := s.loadCandidates(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &models.AssignmentResult{
		Successes: []models.AssignmentOutcome{},
		Failures:  []models.AssignmentOutcome{},
	}
	for _, targetID := range req.Targets {
		outcome := s.assignOne(ctx, req, pool, targetID)
		if outcome.ErrorCode != "" {
			s.metrics.RecordAssignment(string(req.Policy), "failed")
			result.Failures = append(result.Failures, outcome)
			continue
		}
		if outcome.NoOp {
			s.metrics.RecordAssignment(string(req.Policy), "noop")
		} else {
			s.metrics.RecordAssignment(string(req.Policy), "applied")
		}
		result.Successes = append(result.Successes, outcome)
	}
	return result, nil
}

// loadCandidates snapshots every eligible handler's open-record count.
// For MANUAL the pool is just the named handler.
func (s *AssignmentService) loadCandidates(ctx context.Context, req AssignRequest) (map[string]*candidate, error) {
	var handlers []models.User
	if req.Policy == models.PolicyManual {
		handler, err := s.users.FindByID(ctx, req.HandlerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrUnknownEntity, "handler not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load handler")
		}
		handlers = []models.User{*handler}
	} else {
		var err error
		handlers, err = s.users.ListActiveByRoles(ctx, models.HandlerRoles)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list handlers")
		}
	}

	ids := make([]string, 0, len(handlers))
	for _, h := range handlers {
		ids = append(ids, h.ID)
	}
	counts, err := s.ledger.CountOpenByHandlers(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open assignments")
	}

	pool := make(map[string]*candidate, len(handlers))
	for _, h := range handlers {
		capacity := h.Capacity
		if capacity <= 0 {
			capacity = s.cfg.DefaultCapacity
		}
		pool[h.ID] = &candidate{user: h, open: counts[h.ID], capacity: capacity}
	}
	return pool, nil
}

func (s *AssignmentService) assignOne(ctx context.Context, req AssignRequest, pool map[string]*candidate, targetID string) models.AssignmentOutcome {
	b, err := s.bordereaux.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failureOutcome(targetID, appErrors.ErrUnknownEntity.Code, "bordereau not found")
		}
		return failureOutcome(targetID, appErrors.ErrInternal.Code, "failed to load bordereau")
	}

	chosen, errOutcome := s.chooseHandler(ctx, req, pool, b)
	if errOutcome != nil {
		return *errOutcome
	}

	// Re-assigning to the current handler is a no-op success, never a
	// duplicate ledger record.
	if b.AssignedToUserID != nil && *b.AssignedToUserID == chosen.user.ID &&
		(b.Statut == models.StatutAssigne || b.Statut == models.StatutEnCours) {
		return models.AssignmentOutcome{BordereauID: targetID, HandlerID: chosen.user.ID, NoOp: true}
	}

	target, ok := models.NextStatut(b.Statut, models.EventAssign)
	if !ok {
		return failureOutcome(targetID, appErrors.ErrIllegalTransition.Code,
			"assign is not allowed from statut "+string(b.Statut))
	}

	handlerID := chosen.user.ID
	bordereauID := b.ID
	rec := &models.AssignmentRecord{
		BordereauID: &bordereauID,
		ToHandlerID: handlerID,
		AssignedBy:  req.AssignedBy,
		Policy:      string(req.Policy),
		Reason:      req.Reason,
	}
	if b.AssignedToUserID != nil {
		from := *b.AssignedToUserID
		rec.FromHandlerID = &from
	}

	err = s.bordereaux.ApplyTransition(ctx, repository.TransitionUpdate{
		BordereauID:   b.ID,
		FromStatut:    b.Statut,
		ToStatut:      target,
		AssignedTo:    &handlerID,
		ReleaseLedger: true,
		LedgerRecord:  rec,
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return failureOutcome(targetID, appErrors.ErrUnknownEntity.Code, "bordereau not found")
		case errors.Is(err, repository.ErrStaleStatut):
			return failureOutcome(targetID, appErrors.ErrStaleState.Code, "bordereau statut changed concurrently")
		default:
			s.logger.Error("assignment transition failed", zap.String("bordereau_id", targetID), zap.Error(err))
			return failureOutcome(targetID, appErrors.ErrInternal.Code, "failed to apply assignment")
		}
	}

	chosen.open++
	dispatchNotification(s.notifier, s.logger, NotificationEvent{
		Kind:        NotifyAssignment,
		BordereauID: b.ID,
		HandlerID:   handlerID,
		FromStatut:  b.Statut,
		ToStatut:    target,
		Reason:      req.Reason,
	})
	recordID := rec.ID
	return models.AssignmentOutcome{BordereauID: targetID, HandlerID: handlerID, RecordID: &recordID}
}

// chooseHandler resolves the policy to a concrete handler with room,
// charging nothing yet: the caller increments the in-memory load only
// after the transition commits.
func (s *AssignmentService) chooseHandler(ctx context.Context, req AssignRequest, pool map[string]*candidate, b *models.Bordereau) (*candidate, *models.AssignmentOutcome) {
	switch req.Policy {
	case models.PolicyManual:
		chosen := pool[req.HandlerID]
		if chosen == nil {
			out := failureOutcome(b.ID, appErrors.ErrUnknownEntity.Code, "handler not found")
			return nil, &out
		}
		// Idempotent retry bypasses the capacity gate.
		if b.AssignedToUserID != nil && *b.AssignedToUserID == chosen.user.ID {
			return chosen, nil
		}
		if !chosen.available() && !req.Override {
			out := failureOutcome(b.ID, appErrors.ErrHandlerAtCapacity.Code,
				"handler "+chosen.user.ID+" has no remaining capacity")
			return nil, &out
		}
		return chosen, nil

	case models.PolicyByClient:
		affinityID, err := s.ledger.LastHandlerForClient(ctx, b.ClientID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			out := failureOutcome(b.ID, appErrors.ErrInternal.Code, "failed to resolve client affinity")
			return nil, &out
		}
		if affinityID != "" {
			if chosen := pool[affinityID]; chosen != nil && chosen.available() {
				return chosen, nil
			}
		}
		return s.leastLoaded(pool, b)

	case models.PolicyAIScored:
		if s.scorer == nil {
			return s.leastLoaded(pool, b)
		}
		available := availableCandidates(pool)
		if len(available) == 0 {
			out := failureOutcome(b.ID, appErrors.ErrNoCapacity.Code, "no handler has remaining capacity")
			return nil, &out
		}
		users := make([]models.User, 0, len(available))
		for _, c := range available {
			users = append(users, c.user)
		}
		scores, err := s.scorer.Score(ctx, b, users)
		if err != nil {
			s.logger.Warn("scorer failed, degrading to workload balancing",
				zap.String("bordereau_id", b.ID), zap.Error(err))
			return s.leastLoaded(pool, b)
		}
		best := available[0]
		for _, c := range available[1:] {
			si, sb := scores[c.user.ID], scores[best.user.ID]
			// Ties break on handler id, as in leastLoaded.
			if si > sb || (si == sb && c.user.ID < best.user.ID) {
				best = c
			}
		}
		return best, nil

	default: // WORKLOAD_BALANCED
		return s.leastLoaded(pool, b)
	}
}

// leastLoaded picks the available handler with the lowest utilisation.
// Ties break on handler id so batch placement is deterministic.
func (s *AssignmentService) leastLoaded(pool map[string]*candidate, b *models.Bordereau) (*candidate, *models.AssignmentOutcome) {
	available := availableCandidates(pool)
	if len(available) == 0 {
		out := failureOutcome(b.ID, appErrors.ErrNoCapacity.Code, "no handler has remaining capacity")
		return nil, &out
	}
	sort.Slice(available, func(i, j int) bool {
		ui, uj := available[i].utilization(), available[j].utilization()
		if ui != uj {
			return ui < uj
		}
		return available[i].user.ID < available[j].user.ID
	})
	return available[0], nil
}

func availableCandidates(pool map[string]*candidate) []*candidate {
	out := make([]*candidate, 0, len(pool))
	for _, c := range pool {
		if c.available() {
			out = append(out, c)
		}
	}
	return out
}

// Trail returns the full assignment history of a bordereau.
func (s *AssignmentService) Trail(ctx context.Context, bordereauID string) ([]models.AssignmentRecord, error) {
	records, err := s.ledger.ListByBordereau(ctx, bordereauID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignment trail")
	}
	return records, nil
}

func failureOutcome(bordereauID, code, message string) models.AssignmentOutcome {
	return models.AssignmentOutcome{BordereauID: bordereauID, ErrorCode: code, Message: message}
}
