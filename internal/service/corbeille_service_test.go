package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ars-tn/claims-flow-api/internal/dto"
	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/pkg/config"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
)

type mockCorbeilleLister struct {
	items      []models.Bordereau
	lastFilter models.BordereauFilter
}

func (m *mockCorbeilleLister) List(_ context.Context, filter models.BordereauFilter) ([]models.Bordereau, error) {
	m.lastFilter = filter
	return m.items, nil
}

type mockDocumentLister struct {
	docs       []models.Document
	lastFilter models.DocumentFilter
}

func (m *mockDocumentLister) List(_ context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	m.lastFilter = filter
	return m.docs, nil
}

func corbeilleBordereau(id string, statut models.BordereauStatut, handlerID *string) models.Bordereau {
	return models.Bordereau{
		ID:               id,
		Reference:        "BRD-" + id,
		ClientID:         "cli-1",
		DateReception:    time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		DelaiReglement:   5,
		Statut:           statut,
		AssignedToUserID: handlerID,
		CurrentHandlerID: handlerID,
	}
}

func newCorbeilleFixture(bordereaux *mockCorbeilleLister, documents *mockDocumentLister) *CorbeilleService {
	sla := NewSLAService(config.SLAConfig{AtRiskWindow: 24 * time.Hour, CriticalOverdue: 48 * time.Hour})
	svc := NewCorbeilleService(bordereaux, documents, sla, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestCorbeilleChefBuckets(t *testing.T) {
	g1 := "g1"
	lister := &mockCorbeilleLister{items: []models.Bordereau{
		corbeilleBordereau("b1", models.StatutAAffecter, nil),
		corbeilleBordereau("b2", models.StatutScanne, nil),
		corbeilleBordereau("b3", models.StatutEnCours, &g1),
		corbeilleBordereau("b4", models.StatutCloture, nil),
		corbeilleBordereau("b5", models.StatutAScanner, nil),
	}}
	teamID := "team-1"
	svc := newCorbeilleFixture(lister, &mockDocumentLister{})
	viewer := &models.User{ID: "chef-1", Role: models.RoleChefEquipe, TeamID: &teamID}

	resp, err := svc.Corbeille(context.Background(), viewer)

	require.NoError(t, err)
	assert.Equal(t, models.RoleChefEquipe, resp.Role)
	assert.Equal(t, teamID, lister.lastFilter.TeamID)
	assert.Len(t, resp.Buckets[dto.BucketNonAffectes], 2)
	assert.Len(t, resp.Buckets[dto.BucketEnCours], 1)
	assert.Len(t, resp.Buckets[dto.BucketTraites], 1)
	// A_SCANNER belongs to the scan desk, not the triage view.
	assert.Equal(t, 2, resp.Counts[dto.BucketNonAffectes])
	assert.Equal(t, 1, resp.Counts[dto.BucketEnCours])
}

func TestCorbeilleGestionnaireSeesOnlyOwnDossiers(t *testing.T) {
	g1, g2 := "g1", "g2"
	lister := &mockCorbeilleLister{items: []models.Bordereau{
		corbeilleBordereau("b1", models.StatutEnCours, &g1),
		corbeilleBordereau("b2", models.StatutEnCours, &g2),
		corbeilleBordereau("b3", models.StatutTraite, &g1),
	}}
	svc := newCorbeilleFixture(lister, &mockDocumentLister{})
	viewer := &models.User{ID: g1, Role: models.RoleGestionnaire}

	resp, err := svc.Corbeille(context.Background(), viewer)

	require.NoError(t, err)
	assert.Equal(t, g1, lister.lastFilter.HandlerID)
	require.Len(t, resp.Buckets[dto.BucketEnCours], 1)
	assert.Equal(t, "b1", resp.Buckets[dto.BucketEnCours][0].ID)
	require.Len(t, resp.Buckets[dto.BucketTraites], 1)
	assert.Equal(t, "b3", resp.Buckets[dto.BucketTraites][0].ID)
}

func TestCorbeilleScanBuckets(t *testing.T) {
	lister := &mockCorbeilleLister{items: []models.Bordereau{
		corbeilleBordereau("b1", models.StatutAScanner, nil),
		corbeilleBordereau("b2", models.StatutScanEnCours, nil),
		corbeilleBordereau("b3", models.StatutEnCours, nil),
		corbeilleBordereau("b4", models.StatutEnAttente, nil),
	}}
	svc := newCorbeilleFixture(lister, &mockDocumentLister{})
	viewer := &models.User{ID: "scan-1", Role: models.RoleScanTeam}

	resp, err := svc.Corbeille(context.Background(), viewer)

	require.NoError(t, err)
	assert.Len(t, resp.Buckets[dto.BucketAScanner], 1)
	assert.Len(t, resp.Buckets[dto.BucketScanEnCours], 1)
	assert.Len(t, resp.Buckets[dto.BucketFinalises], 1)
	// Intake not yet released to scan stays invisible.
	total := 0
	for _, count := range resp.Counts {
		total += count
	}
	assert.Equal(t, 3, total)
}

func TestCorbeilleFinanceBuckets(t *testing.T) {
	lister := &mockCorbeilleLister{items: []models.Bordereau{
		corbeilleBordereau("b1", models.StatutTraite, nil),
		corbeilleBordereau("b2", models.StatutVirementRejete, nil),
		corbeilleBordereau("b3", models.StatutVirementEnCours, nil),
		corbeilleBordereau("b4", models.StatutVirementExecute, nil),
		corbeilleBordereau("b5", models.StatutCloture, nil),
	}}
	svc := newCorbeilleFixture(lister, &mockDocumentLister{})
	viewer := &models.User{ID: "fin-1", Role: models.RoleFinance}

	resp, err := svc.Corbeille(context.Background(), viewer)

	require.NoError(t, err)
	// A rejected virement goes back in the payable pile.
	assert.Len(t, resp.Buckets[dto.BucketARegler], 2)
	assert.Len(t, resp.Buckets[dto.BucketEnCours], 1)
	assert.Len(t, resp.Buckets[dto.BucketRegles], 2)
	assert.Contains(t, lister.lastFilter.Statuts, models.StatutVirementRejete)
}

func TestCorbeilleEmptyBucketsPresent(t *testing.T) {
	svc := newCorbeilleFixture(&mockCorbeilleLister{}, &mockDocumentLister{})
	viewer := &models.User{ID: "bo-1", Role: models.RoleBureauOrdre}

	resp, err := svc.Corbeille(context.Background(), viewer)

	require.NoError(t, err)
	require.Contains(t, resp.Buckets, dto.BucketEnAttente)
	require.Contains(t, resp.Buckets, dto.BucketEnCours)
	require.Contains(t, resp.Buckets, dto.BucketTraites)
	assert.Empty(t, resp.Buckets[dto.BucketEnAttente])
	assert.Equal(t, 0, resp.Counts[dto.BucketEnAttente])
}

func TestCorbeilleEnrichesSLA(t *testing.T) {
	lister := &mockCorbeilleLister{items: []models.Bordereau{
		corbeilleBordereau("b1", models.StatutAAffecter, nil),
	}}
	svc := newCorbeilleFixture(lister, &mockDocumentLister{})
	viewer := &models.User{ID: "chef-1", Role: models.RoleChefEquipe}

	resp, err := svc.Corbeille(context.Background(), viewer)

	require.NoError(t, err)
	require.Len(t, resp.Buckets[dto.BucketNonAffectes], 1)
	entry := resp.Buckets[dto.BucketNonAffectes][0]
	// Received 2026-03-01 with 5 days delai, evaluated at 2026-03-02.
	assert.Equal(t, models.SLAOnTime, entry.SLA.Status)
	assert.InDelta(t, 96.0, entry.SLA.RemainingHours, 0.001)
}

func TestCorbeilleUnknownRole(t *testing.T) {
	svc := newCorbeilleFixture(&mockCorbeilleLister{}, &mockDocumentLister{})

	_, err := svc.Corbeille(context.Background(), &models.User{ID: "u1", Role: models.UserRole("AUDITEUR")})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDocumentCorbeille(t *testing.T) {
	docs := &mockDocumentLister{docs: []models.Document{
		{ID: "doc-1", Type: models.DocTypeBulletinSoin, Status: models.DocStatusUploaded},
	}}
	svc := newCorbeilleFixture(&mockCorbeilleLister{}, docs)

	got, err := svc.DocumentCorbeille(context.Background(), &models.User{ID: "scan-1", Role: models.RoleScanTeam})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.ElementsMatch(t,
		[]models.DocumentStatus{models.DocStatusUploaded, models.DocStatusEnCours},
		docs.lastFilter.Statuses)
}

func TestDocumentCorbeilleForbidden(t *testing.T) {
	svc := newCorbeilleFixture(&mockCorbeilleLister{}, &mockDocumentLister{})

	_, err := svc.DocumentCorbeille(context.Background(), &models.User{ID: "fin-1", Role: models.RoleFinance})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
