package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/internal/repository"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
)

type mockDocumentStore struct {
	docs     map[string]*models.Document
	applyErr error
	applied  []repository.DocumentAssignmentUpdate
}

func (m *mockDocumentStore) Create(_ context.Context, doc *models.Document) error {
	doc.ID = "doc-1"
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockDocumentStore) FindByID(_ context.Context, id string) (*models.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	dup := *doc
	return &dup, nil
}

func (m *mockDocumentStore) List(_ context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	out := []models.Document{}
	for _, doc := range m.docs {
		if filter.BordereauID != "" && (doc.BordereauID == nil || *doc.BordereauID != filter.BordereauID) {
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (m *mockDocumentStore) ApplyAssignment(_ context.Context, upd repository.DocumentAssignmentUpdate) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	doc, ok := m.docs[upd.DocumentID]
	if !ok {
		return sql.ErrNoRows
	}
	handlerID := upd.HandlerID
	doc.AssignedTo = &handlerID
	if upd.Status != nil {
		doc.Status = *upd.Status
	}
	m.applied = append(m.applied, upd)
	return nil
}

func (m *mockDocumentStore) UpdateStatus(_ context.Context, id string, status models.DocumentStatus) error {
	m.docs[id].Status = status
	return nil
}

func newDocumentFixture(store *mockDocumentStore) *DocumentService {
	return NewDocumentService(store, nil, zap.NewNop())
}

func TestDocumentCreate(t *testing.T) {
	store := &mockDocumentStore{docs: map[string]*models.Document{}}
	svc := newDocumentFixture(store)

	doc, err := svc.Create(context.Background(), CreateDocumentRequest{
		BordereauID: "brd-1",
		Type:        models.DocTypeBulletinSoin,
		Priority:    2,
	})

	require.NoError(t, err)
	assert.Equal(t, models.DocStatusUploaded, doc.Status)
	require.NotNil(t, doc.BordereauID)
	assert.Equal(t, "brd-1", *doc.BordereauID)
}

func TestDocumentCreateDefaultsPriority(t *testing.T) {
	store := &mockDocumentStore{docs: map[string]*models.Document{}}
	svc := newDocumentFixture(store)

	doc, err := svc.Create(context.Background(), CreateDocumentRequest{
		BordereauID: "brd-1",
		Type:        models.DocTypeBulletinSoin,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, doc.Priority)

	_, err = svc.Create(context.Background(), CreateDocumentRequest{
		BordereauID: "brd-1",
		Type:        models.DocTypeBulletinSoin,
		Priority:    -1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentCreateValidation(t *testing.T) {
	svc := newDocumentFixture(&mockDocumentStore{docs: map[string]*models.Document{}})

	_, err := svc.Create(context.Background(), CreateDocumentRequest{Type: models.DocTypeBulletinSoin})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentAssignToHandler(t *testing.T) {
	bordereauID := "brd-1"
	store := &mockDocumentStore{docs: map[string]*models.Document{
		"doc-1": {ID: "doc-1", BordereauID: &bordereauID, Type: models.DocTypeBulletinSoin, Status: models.DocStatusUploaded},
	}}
	svc := newDocumentFixture(store)

	doc, err := svc.AssignToHandler(context.Background(), "doc-1", "g1", "chef-1", "priorité haute")

	require.NoError(t, err)
	require.NotNil(t, doc.AssignedTo)
	assert.Equal(t, "g1", *doc.AssignedTo)
	// Assignment advances a freshly uploaded document to EN_COURS.
	assert.Equal(t, models.DocStatusEnCours, doc.Status)
	// The ledger record rides the same update.
	require.Len(t, store.applied, 1)
	rec := store.applied[0].LedgerRecord
	require.NotNil(t, rec)
	assert.Equal(t, "g1", rec.ToHandlerID)
	require.NotNil(t, rec.DocumentID)
	assert.Equal(t, "doc-1", *rec.DocumentID)
}

func TestDocumentAssignFailureLeavesDocumentUntouched(t *testing.T) {
	bordereauID := "brd-1"
	store := &mockDocumentStore{
		docs: map[string]*models.Document{
			"doc-1": {ID: "doc-1", BordereauID: &bordereauID, Status: models.DocStatusUploaded},
		},
		applyErr: sql.ErrTxDone,
	}
	svc := newDocumentFixture(store)

	_, err := svc.AssignToHandler(context.Background(), "doc-1", "g1", "chef-1", "")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Nil(t, store.docs["doc-1"].AssignedTo)
	assert.Equal(t, models.DocStatusUploaded, store.docs["doc-1"].Status)
	assert.Empty(t, store.applied)
}

func TestDocumentAssignSameHandlerNoOp(t *testing.T) {
	handler := "g1"
	store := &mockDocumentStore{docs: map[string]*models.Document{
		"doc-1": {ID: "doc-1", Status: models.DocStatusEnCours, AssignedTo: &handler},
	}}
	svc := newDocumentFixture(store)

	doc, err := svc.AssignToHandler(context.Background(), "doc-1", "g1", "chef-1", "")

	require.NoError(t, err)
	assert.Equal(t, "g1", *doc.AssignedTo)
	assert.Empty(t, store.applied, "re-assignment to the same handler writes nothing")
}

func TestDocumentUpdateStatus(t *testing.T) {
	store := &mockDocumentStore{docs: map[string]*models.Document{
		"doc-1": {ID: "doc-1", Status: models.DocStatusEnCours},
	}}
	svc := newDocumentFixture(store)

	doc, err := svc.UpdateStatus(context.Background(), "doc-1", models.DocStatusTraite)

	require.NoError(t, err)
	assert.Equal(t, models.DocStatusTraite, doc.Status)

	_, err = svc.UpdateStatus(context.Background(), "doc-1", models.DocumentStatus("ARCHIVE"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentUpdateStatusUnknown(t *testing.T) {
	svc := newDocumentFixture(&mockDocumentStore{docs: map[string]*models.Document{}})

	_, err := svc.UpdateStatus(context.Background(), "doc-missing", models.DocStatusTraite)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnknownEntity.Code, appErrors.FromError(err).Code)
}

func TestDocumentListByBordereau(t *testing.T) {
	brd1, brd2 := "brd-1", "brd-2"
	store := &mockDocumentStore{docs: map[string]*models.Document{
		"doc-1": {ID: "doc-1", BordereauID: &brd1},
		"doc-2": {ID: "doc-2", BordereauID: &brd2},
	}}
	svc := newDocumentFixture(store)

	docs, err := svc.ListByBordereau(context.Background(), "brd-1")

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID)
}
