package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ars-tn/claims-flow-api/internal/models"
)

// ErrStaleStatut signals that the compare-and-swap statut update matched
// no row because the bordereau moved on concurrently.
var ErrStaleStatut = errors.New("bordereau statut changed concurrently")

// BordereauRepository persists bordereaux and applies lifecycle
// transitions with optimistic concurrency on the statut column.
type BordereauRepository struct {
	db *sqlx.DB
}

// NewBordereauRepository constructs the repository.
func NewBordereauRepository(db *sqlx.DB) *BordereauRepository {
	return &BordereauRepository{db: db}
}

const bordereauColumns = `id, reference, client_id, date_reception, nombre_bs, delai_reglement, statut, date_fin_scan, assigned_to_user_id, current_handler_id, team_id, archived, created_at, updated_at`

// Create inserts a new bordereau at intake.
func (r *BordereauRepository) Create(ctx context.Context, b *models.Bordereau) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = b.CreatedAt
	const query = `INSERT INTO bordereaux (id, reference, client_id, date_reception, nombre_bs, delai_reglement, statut, date_fin_scan, assigned_to_user_id, current_handler_id, team_id, archived, created_at, updated_at)
		VALUES (:id, :reference, :client_id, :date_reception, :nombre_bs, :delai_reglement, :statut, :date_fin_scan, :assigned_to_user_id, :current_handler_id, :team_id, :archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("create bordereau: %w", err)
	}
	return nil
}

// FindByID returns a bordereau by identifier.
func (r *BordereauRepository) FindByID(ctx context.Context, id string) (*models.Bordereau, error) {
	query := `SELECT ` + bordereauColumns + ` FROM bordereaux WHERE id = $1 LIMIT 1`
	var b models.Bordereau
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find bordereau by id: %w", err)
	}
	return &b, nil
}

// List returns bordereaux matching the filter, newest reception first.
func (r *BordereauRepository) List(ctx context.Context, filter models.BordereauFilter) ([]models.Bordereau, error) {
	clauses := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if len(filter.Statuts) > 0 {
		placeholders := make([]string, 0, len(filter.Statuts))
		for _, s := range filter.Statuts {
			placeholders = append(placeholders, fmt.Sprintf("$%d", idx))
			args = append(args, string(s))
			idx++
		}
		clauses = append(clauses, "statut IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.ClientID != "" {
		clauses = append(clauses, fmt.Sprintf("client_id = $%d", idx))
		args = append(args, filter.ClientID)
		idx++
	}
	if filter.HandlerID != "" {
		clauses = append(clauses, fmt.Sprintf("current_handler_id = $%d", idx))
		args = append(args, filter.HandlerID)
		idx++
	}
	if filter.TeamID != "" {
		clauses = append(clauses, fmt.Sprintf("team_id = $%d", idx))
		args = append(args, filter.TeamID)
		idx++
	}
	if filter.Archived != nil {
		clauses = append(clauses, fmt.Sprintf("archived = $%d", idx))
		args = append(args, *filter.Archived)
		idx++
	}

	query := `SELECT ` + bordereauColumns + ` FROM bordereaux WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY date_reception DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	var items []models.Bordereau
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list bordereaux: %w", err)
	}
	return items, nil
}

// CountByStatut returns the number of bordereaux per lifecycle state.
func (r *BordereauRepository) CountByStatut(ctx context.Context) (map[models.BordereauStatut]int, error) {
	const query = `SELECT statut, COUNT(*) AS count FROM bordereaux WHERE archived = false GROUP BY statut`
	rows := []struct {
		Statut models.BordereauStatut `db:"statut"`
		Count  int                    `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count bordereaux by statut: %w", err)
	}
	counts := make(map[models.BordereauStatut]int, len(rows))
	for _, row := range rows {
		counts[row.Statut] = row.Count
	}
	return counts, nil
}

// TransitionUpdate describes an atomic statut change. The update is a
// compare-and-swap on the statut column; when a ledger record or a
// ledger release rides along, it shares the transaction so either both
// are visible or neither is.
type TransitionUpdate struct {
	BordereauID   string
	FromStatut    models.BordereauStatut
	ToStatut      models.BordereauStatut
	AssignedTo    *string
	ClearAssigned bool
	DateFinScan   *time.Time
	LedgerRecord  *models.AssignmentRecord
	ReleaseLedger bool
}

// ApplyTransition performs the CAS statut update plus the optional
// ledger mutation in one transaction. Returns sql.ErrNoRows when the
// bordereau does not exist and ErrStaleStatut when the statut no longer
// matches the expected source state.
func (r *BordereauRepository) ApplyTransition(ctx context.Context, upd TransitionUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	set := []string{"statut = $1", "updated_at = $2"}
	args := []interface{}{string(upd.ToStatut), now}
	idx := 3
	if upd.AssignedTo != nil {
		set = append(set, fmt.Sprintf("assigned_to_user_id = $%d, current_handler_id = $%d", idx, idx))
		args = append(args, *upd.AssignedTo)
		idx++
	} else if upd.ClearAssigned {
		set = append(set, "assigned_to_user_id = NULL, current_handler_id = NULL")
	}
	if upd.DateFinScan != nil {
		set = append(set, fmt.Sprintf("date_fin_scan = $%d", idx))
		args = append(args, *upd.DateFinScan)
		idx++
	}
	query := fmt.Sprintf("UPDATE bordereaux SET %s WHERE id = $%d AND statut = $%d",
		strings.Join(set, ", "), idx, idx+1)
	args = append(args, upd.BordereauID, string(upd.FromStatut))

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.GetContext(ctx, &exists, "SELECT 1 FROM bordereaux WHERE id = $1 LIMIT 1", upd.BordereauID)
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		if err != nil {
			return fmt.Errorf("check bordereau existence: %w", err)
		}
		return ErrStaleStatut
	}

	if upd.ReleaseLedger {
		const release = `UPDATE assignment_records SET released_at = $1 WHERE bordereau_id = $2 AND released_at IS NULL`
		if _, err := tx.ExecContext(ctx, release, now, upd.BordereauID); err != nil {
			return fmt.Errorf("release ledger records: %w", err)
		}
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
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}
