package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ars-tn/claims-flow-api/internal/models"
)

func TestDocumentApplyAssignment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET assigned_to = $1, assigned_at = $2, updated_at = $2, status = $3 WHERE id = $4")).
		WithArgs("g1", sqlmock.AnyArg(), string(models.DocStatusEnCours), "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignment_records SET released_at = $1 WHERE document_id = $2 AND released_at IS NULL")).
		WithArgs(sqlmock.AnyArg(), "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO assignment_records").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	docID := "doc-1"
	status := models.DocStatusEnCours
	rec := &models.AssignmentRecord{
		DocumentID:  &docID,
		ToHandlerID: "g1",
		AssignedBy:  "chef-1",
		Policy:      string(models.PolicyManual),
	}
	err := repo.ApplyAssignment(context.Background(), DocumentAssignmentUpdate{
		DocumentID:   "doc-1",
		HandlerID:    "g1",
		Status:       &status,
		LedgerRecord: rec,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.AssignedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentApplyAssignmentNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET assigned_to = $1, assigned_at = $2, updated_at = $2 WHERE id = $3")).
		WithArgs("g1", sqlmock.AnyArg(), "doc-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApplyAssignment(context.Background(), DocumentAssignmentUpdate{
		DocumentID: "doc-missing",
		HandlerID:  "g1",
	})

	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
