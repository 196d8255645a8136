package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ars-tn/claims-flow-api/internal/models"
)

// AssignmentRepository reads the append-only assignment ledger. Records
// are inserted alongside the transition that places them (see
// BordereauRepository.ApplyTransition and
// DocumentRepository.ApplyAssignment); they are never updated except to
// stamp released_at.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// CountOpenByHandler returns the handler's current workload: the number
// of ledger records not yet released.
func (r *AssignmentRepository) CountOpenByHandler(ctx context.Context, handlerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM assignment_records WHERE to_handler_id = $1 AND released_at IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, handlerID); err != nil {
		return 0, fmt.Errorf("count open assignments: %w", err)
	}
	return count, nil
}

// CountOpenByHandlers returns open-record counts for a set of handlers
// in one query. Handlers without open records are absent from the map.
func (r *AssignmentRepository) CountOpenByHandlers(ctx context.Context, handlerIDs []string) (map[string]int, error) {
	if len(handlerIDs) == 0 {
		return map[string]int{}, nil
	}
	placeholders := make([]string, len(handlerIDs))
	args := make([]interface{}, len(handlerIDs))
	for i, id := range handlerIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT to_handler_id, COUNT(*) AS count FROM assignment_records WHERE to_handler_id IN (` +
		strings.Join(placeholders, ", ") + `) AND released_at IS NULL GROUP BY to_handler_id`
	rows := []struct {
		HandlerID string `db:"to_handler_id"`
		Count     int    `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count open assignments by handlers: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.HandlerID] = row.Count
	}
	return counts, nil
}

// LastHandlerForClient resolves client affinity: the handler most
// recently assigned any bordereau of the client.
func (r *AssignmentRepository) LastHandlerForClient(ctx context.Context, clientID string) (string, error) {
	const query = `SELECT ar.to_handler_id FROM assignment_records ar
		JOIN bordereaux b ON b.id = ar.bordereau_id
		WHERE b.client_id = $1
		ORDER BY ar.assigned_at DESC LIMIT 1`
	var handlerID string
	if err := r.db.GetContext(ctx, &handlerID, query, clientID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("find client affinity: %w", err)
	}
	return handlerID, nil
}

// ListByBordereau returns the full assignment trail for audit views,
// oldest first.
func (r *AssignmentRepository) ListByBordereau(ctx context.Context, bordereauID string) ([]models.AssignmentRecord, error) {
	const query = `SELECT id, bordereau_id, document_id, from_handler_id, to_handler_id, assigned_by, policy, reason, assigned_at, released_at
		FROM assignment_records WHERE bordereau_id = $1 ORDER BY assigned_at ASC`
	var records []models.AssignmentRecord
	if err := r.db.SelectContext(ctx, &records, query, bordereauID); err != nil {
		return nil, fmt.Errorf("list assignment records: %w", err)
	}
	return records, nil
}
