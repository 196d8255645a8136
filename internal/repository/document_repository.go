package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ars-tn/claims-flow-api/internal/models"
)

// DocumentRepository persists individual bordereau documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, bordereau_id, type, status, priority, assigned_to, assigned_at, created_at, updated_at`

// Create inserts a new document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = doc.CreatedAt
	const query = `INSERT INTO documents (id, bordereau_id, type, status, priority, assigned_to, assigned_at, created_at, updated_at)
		VALUES (:id, :bordereau_id, :type, :status, :priority, :assigned_to, :assigned_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID returns a document by identifier.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 LIMIT 1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document by id: %w", err)
	}
	return &doc, nil
}

// List returns documents matching the filter, most urgent first.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	clauses := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if filter.BordereauID != "" {
		clauses = append(clauses, fmt.Sprintf("bordereau_id = $%d", idx))
		args = append(args, filter.BordereauID)
		idx++
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			placeholders = append(placeholders, fmt.Sprintf("$%d", idx))
			args = append(args, string(s))
			idx++
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Type != "" {
		clauses = append(clauses, fmt.Sprintf("type = $%d", idx))
		args = append(args, string(filter.Type))
		idx++
	}
	if filter.AssignedTo != "" {
		clauses = append(clauses, fmt.Sprintf("assigned_to = $%d", idx))
		args = append(args, filter.AssignedTo)
		idx++
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY priority DESC, created_at ASC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DocumentAssignmentUpdate describes an atomic handler placement for a
// document. The ledger mutations share the transaction with the
// document update so workload derivation never drifts.
type DocumentAssignmentUpdate struct {
	DocumentID   string
	HandlerID    string
	Status       *models.DocumentStatus
	LedgerRecord *models.AssignmentRecord
}

// ApplyAssignment places the document on a handler, releases any prior
// open ledger record and appends the new one, all in one transaction.
// Returns sql.ErrNoRows when the document does not exist.
func (r *DocumentRepository) ApplyAssignment(ctx context.Context, upd DocumentAssignmentUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document assignment tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	set := []string{"assigned_to = $1", "assigned_at = $2", "updated_at = $2"}
	args := []interface{}{upd.HandlerID, now}
	idx := 3
	if upd.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(*upd.Status))
		idx++
	}
	query := fmt.Sprintf("UPDATE documents SET %s WHERE id = $%d", strings.Join(set, ", "), idx)
	args = append(args, upd.DocumentID)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("apply document assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated document rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const release = `UPDATE assignment_records SET released_at = $1 WHERE document_id = $2 AND released_at IS NULL`
	if _, err := tx.ExecContext(ctx, release, now, upd.DocumentID); err != nil {
		return fmt.Errorf("release document ledger records: %w", err)
	}

	if rec := upd.LedgerRecord; rec != nil {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.AssignedAt.IsZero() {
			rec.AssignedAt = now
		}
		const insert = `INSERT INTO assignment_records (id, bordereau_id, document_id, from_handler_id, to_handler_id, assigned_by, policy, reason, assigned_at, released_at)
			VALUES (:id, :bordereau_id, :document_id, :from_handler_id, :to_handler_id, :assigned_by, :policy, :reason, :assigned_at, :released_at)`
		if _, err := tx.NamedExecContext(ctx, insert, rec); err != nil {
			return fmt.Errorf("append assignment record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document assignment: %w", err)
	}
	return nil
}

// UpdateStatus moves a document within its reduced status set.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	const query = `UPDATE documents SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated document rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
