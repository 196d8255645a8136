package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/internal/repository"
	"github.com/ars-tn/claims-flow-api/pkg/config"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
)

type mockAssignStore struct {
	bordereaux map[string]*models.Bordereau
	applyErr   error
	applyCalls int
}

func (m *mockAssignStore) Create(_ context.Context, _ *models.Bordereau) error { return nil }

func (m *mockAssignStore) FindByID(_ context.Context, id string) (*models.Bordereau, error) {
	b, ok := m.bordereaux[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	dup := *b
	return &dup, nil
}

func (m *mockAssignStore) ApplyTransition(_ context.Context, upd repository.TransitionUpdate) error {
	m.applyCalls++
	if m.applyErr != nil {
		return m.applyErr
	}
	b := m.bordereaux[upd.BordereauID]
	b.Statut = upd.ToStatut
	if upd.AssignedTo != nil {
		b.AssignedToUserID = upd.AssignedTo
		b.CurrentHandlerID = upd.AssignedTo
	}
	if upd.LedgerRecord != nil {
		upd.LedgerRecord.ID = "rec-" + upd.BordereauID
	}
	return nil
}

type mockAssignLedger struct {
	openCounts   map[string]int
	lastHandler  string
	lastErr      error
	trailRecords []models.AssignmentRecord
}

func (m *mockAssignLedger) CountOpenByHandlers(_ context.Context, handlerIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(handlerIDs))
	for _, id := range handlerIDs {
		counts[id] = m.openCounts[id]
	}
	return counts, nil
}

func (m *mockAssignLedger) LastHandlerForClient(_ context.Context, _ string) (string, error) {
	if m.lastErr != nil {
		return "", m.lastErr
	}
	if m.lastHandler == "" {
		return "", sql.ErrNoRows
	}
	return m.lastHandler, nil
}

func (m *mockAssignLedger) ListByBordereau(_ context.Context, _ string) ([]models.AssignmentRecord, error) {
	return m.trailRecords, nil
}

type mockHandlerReader struct {
	users map[string]*models.User
}

func (m *mockHandlerReader) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockHandlerReader) ListActiveByRoles(_ context.Context, _ []models.UserRole) ([]models.User, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		if u.Active {
			out = append(out, *u)
		}
	}
	return out, nil
}

type stubScorer struct {
	scores map[string]float64
	err    error
}

func (s *stubScorer) Score(_ context.Context, _ *models.Bordereau, _ []models.User) (map[string]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.scores, nil
}

func handlerUser(id string, capacity int) *models.User {
	return &models.User{ID: id, Role: models.RoleGestionnaire, Capacity: capacity, Active: true}
}

func newAssignmentFixture(store *mockAssignStore, ledger *mockAssignLedger, users *mockHandlerReader, scorer Scorer) *AssignmentService {
	return NewAssignmentService(store, ledger, users, scorer, nil, nil, config.WorkloadConfig{DefaultCapacity: 20}, nil, zap.NewNop())
}

func TestAssignManualHappyPath(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
	}}
	ledger := &mockAssignLedger{openCounts: map[string]int{"g1": 2}}
	users := &mockHandlerReader{users: map[string]*models.User{"g1": handlerUser("g1", 10)}}
	svc := newAssignmentFixture(store, ledger, users, nil)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyManual,
		HandlerID:  "g1",
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Successes, 1)
	assert.Empty(t, result.Failures)
	assert.Equal(t, "g1", result.Successes[0].HandlerID)
	assert.False(t, result.Successes[0].NoOp)
	// A_AFFECTER chains straight to EN_COURS on assignment.
	assert.Equal(t, models.StatutEnCours, store.bordereaux["brd-1"].Statut)
	require.NotNil(t, store.bordereaux["brd-1"].AssignedToUserID)
	assert.Equal(t, "g1", *store.bordereaux["brd-1"].AssignedToUserID)
}

func TestAssignManualAtCapacity(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
	}}
	ledger := &mockAssignLedger{openCounts: map[string]int{"g1": 10}}
	users := &mockHandlerReader{users: map[string]*models.User{"g1": handlerUser("g1", 10)}}
	svc := newAssignmentFixture(store, ledger, users, nil)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyManual,
		HandlerID:  "g1",
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	assert.Empty(t, result.Successes)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, appErrors.ErrHandlerAtCapacity.Code, result.Failures[0].ErrorCode)
	// The statut must be untouched on a capacity refusal.
	assert.Zero(t, store.applyCalls)
	assert.Equal(t, models.StatutAAffecter, store.bordereaux["brd-1"].Statut)
}

func TestAssignManualOverrideBypassesCapacity(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
	}}
	ledger := &mockAssignLedger{openCounts: map[string]int{"g1": 10}}
	users := &mockHandlerReader{users: map[string]*models.User{"g1": handlerUser("g1", 10)}}
	svc := newAssignmentFixture(store, ledger, users, nil)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyManual,
		HandlerID:  "g1",
		Override:   true,
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Successes, 1)
	assert.Equal(t, "g1", result.Successes[0].HandlerID)
}

func TestAssignManualIdempotentNoOp(t *testing.T) {
	handler := "g1"
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutEnCours, AssignedToUserID: &handler},
	}}
	ledger := &mockAssignLedger{openCounts: map[string]int{"g1": 10}}
	users := &mockHandlerReader{users: map[string]*models.User{"g1": handlerUser("g1", 10)}}
	svc := newAssignmentFixture(store, ledger, users, nil)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyManual,
		HandlerID:  "g1",
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Successes, 1)
	assert.True(t, result.Successes[0].NoOp)
	assert.Zero(t, store.applyCalls, "a no-op never reaches the store")
}

func TestAssignWorkloadBalancedBatch(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
		"brd-2": {ID: "brd-2", ClientID: "cli-2", Statut: models.StatutAAffecter},
		"brd-3": {ID: "brd-3", ClientID: "cli-3", Statut: models.StatutAAffecter},
	}}
	ledger := &mockAssignLedger{openCounts: map[string]int{}}
	users := &mockHandlerReader{users: map[string]*models.User{
		"g1": handlerUser("g1", 1),
		"g2": handlerUser("g2", 5),
	}}
	svc := newAssignmentFixture(store, ledger, users, nil)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1", "brd-2", "brd-3"},
		Policy:     models.PolicyWorkloadBalanced,
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Successes, 3)
	assert.Empty(t, result.Failures)

	// Both start at zero utilisation; the tie breaks on handler id, so
	// g1 takes the first target and is then full. The rest go to g2.
	assert.Equal(t, "g1", result.Successes[0].HandlerID)
	assert.Equal(t, "g2", result.Successes[1].HandlerID)
	assert.Equal(t, "g2", result.Successes[2].HandlerID)
}

func TestAssignWorkloadBalancedNoCapacity(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
	}}
	ledger := &mockAssignLedger{openCounts: map[string]int{"g1": 1, "g2": 5}}
	users := &mockHandlerReader{users: map[string]*models.User{
		"g1": handlerUser("g1", 1),
		"g2": handlerUser("g2", 5),
	}}
	svc := newAssignmentFixture(store, ledger, users, nil)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyWorkloadBalanced,
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, appErrors.ErrNoCapacity.Code, result.Failures[0].ErrorCode)
}

func TestAssignByClientAffinity(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
	}}
	ledger := &mockAssignLedger{
		openCounts:  map[string]int{"g1": 8, "g2": 0},
		lastHandler: "g1",
	}
	users := &mockHandlerReader{users: map[string]*models.User{
		"g1": handlerUser("g1", 10),
		"g2": handlerUser("g2", 10),
	}}
	svc := newAssignmentFixture(store, ledger, users, nil)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyByClient,
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Successes, 1)
	// Affinity wins over balancing even though g2 is idle.
	assert.Equal(t, "g1", result.Successes[0].HandlerID)
}

func TestAssignByClientFallsBackWhenAffinityFull(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
	}}
	ledger := &mockAssignLedger{
		openCounts:  map[string]int{"g1": 10, "g2": 0},
		lastHandler: "g1",
	}
	users := &mockHandlerReader{users: map[string]*models.User{
		"g1": handlerUser("g1", 10),
		"g2": handlerUser("g2", 10),
	}}
	svc := newAssignmentFixture(store, ledger, users, nil)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyByClient,
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Successes, 1)
	assert.Equal(t, "g2", result.Successes[0].HandlerID)
}

func TestAssignAIScoredPicksBestScore(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
	}}
	ledger := &mockAssignLedger{openCounts: map[string]int{"g1": 9, "g2": 0}}
	users := &mockHandlerReader{users: map[string]*models.User{
		"g1": handlerUser("g1", 10),
		"g2": handlerUser("g2", 10),
	}}
	scorer := &stubScorer{scores: map[string]float64{"g1": 0.9, "g2": 0.2}}
	svc := newAssignmentFixture(store, ledger, users, scorer)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyAIScored,
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Successes, 1)
	// Score outranks utilisation as long as the handler has room.
	assert.Equal(t, "g1", result.Successes[0].HandlerID)
}

func TestAssignAIScoredTieBreaksOnHandlerID(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
	}}
	ledger := &mockAssignLedger{openCounts: map[string]int{"g1": 3, "g2": 3, "g3": 3}}
	users := &mockHandlerReader{users: map[string]*models.User{
		"g1": handlerUser("g1", 10),
		"g2": handlerUser("g2", 10),
		"g3": handlerUser("g3", 10),
	}}
	scorer := &stubScorer{scores: map[string]float64{"g1": 0.7, "g2": 0.7, "g3": 0.7}}
	svc := newAssignmentFixture(store, ledger, users, scorer)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyAIScored,
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Successes, 1)
	// Equal scores must not leave the pick to map iteration order.
	assert.Equal(t, "g1", result.Successes[0].HandlerID)
}

func TestAssignAIScoredDegradesOnScorerError(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
	}}
	ledger := &mockAssignLedger{openCounts: map[string]int{"g1": 9, "g2": 0}}
	users := &mockHandlerReader{users: map[string]*models.User{
		"g1": handlerUser("g1", 10),
		"g2": handlerUser("g2", 10),
	}}
	scorer := &stubScorer{err: errors.New("scoring backend unavailable")}
	svc := newAssignmentFixture(store, ledger, users, scorer)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyAIScored,
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Successes, 1)
	assert.Equal(t, "g2", result.Successes[0].HandlerID)
}

func TestAssignIllegalStatut(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutScanEnCours},
	}}
	ledger := &mockAssignLedger{openCounts: map[string]int{"g1": 0}}
	users := &mockHandlerReader{users: map[string]*models.User{"g1": handlerUser("g1", 10)}}
	svc := newAssignmentFixture(store, ledger, users, nil)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyManual,
		HandlerID:  "g1",
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, result.Failures[0].ErrorCode)
}

func TestAssignStaleStateMapsToFailure(t *testing.T) {
	store := &mockAssignStore{
		bordereaux: map[string]*models.Bordereau{
			"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
		},
		applyErr: repository.ErrStaleStatut,
	}
	ledger := &mockAssignLedger{openCounts: map[string]int{"g1": 0}}
	users := &mockHandlerReader{users: map[string]*models.User{"g1": handlerUser("g1", 10)}}
	svc := newAssignmentFixture(store, ledger, users, nil)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyManual,
		HandlerID:  "g1",
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, appErrors.ErrStaleState.Code, result.Failures[0].ErrorCode)
}

func TestAssignBatchFailureDoesNotAbortRest(t *testing.T) {
	store := &mockAssignStore{bordereaux: map[string]*models.Bordereau{
		"brd-1": {ID: "brd-1", ClientID: "cli-1", Statut: models.StatutAAffecter},
		"brd-3": {ID: "brd-3", ClientID: "cli-3", Statut: models.StatutAAffecter},
	}}
	ledger := &mockAssignLedger{openCounts: map[string]int{"g1": 0}}
	users := &mockHandlerReader{users: map[string]*models.User{"g1": handlerUser("g1", 10)}}
	svc := newAssignmentFixture(store, ledger, users, nil)

	result, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1", "brd-missing", "brd-3"},
		Policy:     models.PolicyManual,
		HandlerID:  "g1",
		AssignedBy: "chef-1",
	})

	require.NoError(t, err)
	assert.Len(t, result.Successes, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "brd-missing", result.Failures[0].BordereauID)
	assert.Equal(t, appErrors.ErrUnknownEntity.Code, result.Failures[0].ErrorCode)
}

func TestAssignRejectsUnknownPolicy(t *testing.T) {
	svc := newAssignmentFixture(&mockAssignStore{}, &mockAssignLedger{}, &mockHandlerReader{}, nil)

	_, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.AssignmentPolicy("RANDOM"),
		AssignedBy: "chef-1",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignManualRequiresHandler(t *testing.T) {
	svc := newAssignmentFixture(&mockAssignStore{}, &mockAssignLedger{}, &mockHandlerReader{}, nil)

	_, err := svc.Assign(context.Background(), AssignRequest{
		Targets:    []string{"brd-1"},
		Policy:     models.PolicyManual,
		AssignedBy: "chef-1",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
