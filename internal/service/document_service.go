package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/internal/repository"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	ApplyAssignment(ctx context.Context, upd repository.DocumentAssignmentUpdate) error
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error
}

// CreateDocumentRequest registers an item on a bordereau. Priority
// starts at 1; an omitted priority defaults to it.
type CreateDocumentRequest struct {
	BordereauID string              `json:"bordereau_id" validate:"required"`
	Type        models.DocumentType `json:"type" validate:"required"`
	Priority    int                 `json:"priority" validate:"omitempty,gte=1"`
}

// DocumentService manages the items a bordereau carries. Document
// assignment rides the same ledger as bordereau assignment so workload
// derivation sees both.
type DocumentService struct {
	documents documentStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentService constructs the service.
func NewDocumentService(documents documentStore, validate *validator.Validate, logger *zap.Logger) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		documents: documents,
		validator: validate,
		logger:    logger,
	}
}

// Create registers a document at UPLOADED.
func (s *DocumentService) Create(ctx context.Context, req CreateDocumentRequest) (*models.Document, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	priority := req.Priority
	if priority == 0 {
		priority = 1
	}
	bordereauID := req.BordereauID
	doc := &models.Document{
		BordereauID: &bordereauID,
		Type:        req.Type,
		Status:      models.DocStatusUploaded,
		Priority:    priority,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
	}
	return doc, nil
}

// AssignToHandler places the document on a handler. The document
// update and its ledger record commit in one transaction; re-assigning
// to the same handler is a no-op.
func (s *DocumentService) AssignToHandler(ctx context.Context, documentID, handlerID, assignedBy, reason string) (*models.Document, error) {
	doc, err := s.get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.AssignedTo != nil && *doc.AssignedTo == handlerID {
		return doc, nil
	}

	docID := doc.ID
	rec := &models.AssignmentRecord{
		DocumentID:  &docID,
		ToHandlerID: handlerID,
		AssignedBy:  assignedBy,
		Policy:      string(models.PolicyManual),
		Reason:      reason,
	}
	if doc.AssignedTo != nil {
		from := *doc.AssignedTo
		rec.FromHandlerID = &from
	}
	upd := repository.DocumentAssignmentUpdate{
		DocumentID:   documentID,
		HandlerID:    handlerID,
		LedgerRecord: rec,
	}
	if doc.Status == models.DocStatusUploaded {
		status := models.DocStatusEnCours
		upd.Status = &status
	}
	if err := s.documents.ApplyAssignment(ctx, upd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownEntity, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign document")
	}
	return s.get(ctx, documentID)
}

// UpdateStatus moves the document through its reduced status set.
func (s *DocumentService) UpdateStatus(ctx context.Context, documentID string, status models.DocumentStatus) (*models.Document, error) {
	switch status {
	case models.DocStatusUploaded, models.DocStatusEnCours, models.DocStatusTraite,
		models.DocStatusRejete, models.DocStatusRetourAdmin:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown document status "+string(status))
	}
	if _, err := s.get(ctx, documentID); err != nil {
		return nil, err
	}
	if err := s.documents.UpdateStatus(ctx, documentID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document status")
	}
	return s.get(ctx, documentID)
}

// ListByBordereau returns a bordereau's items, highest priority first.
func (s *DocumentService) ListByBordereau(ctx context.Context, bordereauID string) ([]models.Document, error) {
	docs, err := s.documents.List(ctx, models.DocumentFilter{BordereauID: bordereauID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

func (s *DocumentService) get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.documents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownEntity, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}
