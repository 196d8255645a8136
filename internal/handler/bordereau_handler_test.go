package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ars-tn/claims-flow-api/internal/middleware"
	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/internal/service"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
)

type fakeLifecycleSrv struct {
	bordereau  *models.Bordereau
	err        error
	lastEvent  models.LifecycleEvent
	lastParams service.TransitionParams
	lastIntake service.CreateBordereauRequest
}

func (f *fakeLifecycleSrv) Intake(_ context.Context, req service.CreateBordereauRequest, _ string) (*models.Bordereau, error) {
	f.lastIntake = req
	return f.bordereau, f.err
}

func (f *fakeLifecycleSrv) Get(context.Context, string) (*models.Bordereau, error) {
	return f.bordereau, f.err
}

func (f *fakeLifecycleSrv) Apply(_ context.Context, _ string, event models.LifecycleEvent, params service.TransitionParams) (*models.Bordereau, error) {
	f.lastEvent = event
	f.lastParams = params
	return f.bordereau, f.err
}

type fakeTrailSrv struct {
	records []models.AssignmentRecord
}

func (f *fakeTrailSrv) Trail(context.Context, string) ([]models.AssignmentRecord, error) {
	return f.records, nil
}

type fakeSLAEvaluator struct{}

func (fakeSLAEvaluator) EvaluateBordereau(*models.Bordereau, time.Time) models.SLAStatus {
	return models.SLAStatus{Status: models.SLAOnTime}
}

func testBordereau(statut models.BordereauStatut) *models.Bordereau {
	return &models.Bordereau{
		ID:             "brd-1",
		Reference:      "BRD-2026-001",
		ClientID:       "cli-1",
		DateReception:  time.Now().UTC(),
		DelaiReglement: 5,
		Statut:         statut,
	}
}

func newBordereauTestContext(t *testing.T, method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "brd-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func TestBordereauHandlerCreate(t *testing.T) {
	srv := &fakeLifecycleSrv{bordereau: testBordereau(models.StatutAScanner)}
	h := NewBordereauHandler(srv, &fakeTrailSrv{}, fakeSLAEvaluator{})

	c, rec := newBordereauTestContext(t, http.MethodPost, "/bordereaux", service.CreateBordereauRequest{
		Reference: "BRD-2026-001",
		ClientID:  "cli-1",
		NombreBS:  12,
	}, &models.JWTClaims{UserID: "bo-1", Role: models.RoleBureauOrdre})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "BRD-2026-001", srv.lastIntake.Reference)
}

func TestBordereauHandlerCreateWithoutAuth(t *testing.T) {
	h := NewBordereauHandler(&fakeLifecycleSrv{}, &fakeTrailSrv{}, fakeSLAEvaluator{})

	c, rec := newBordereauTestContext(t, http.MethodPost, "/bordereaux", nil, nil)

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBordereauHandlerGet(t *testing.T) {
	srv := &fakeLifecycleSrv{bordereau: testBordereau(models.StatutEnCours)}
	h := NewBordereauHandler(srv, &fakeTrailSrv{}, fakeSLAEvaluator{})

	c, rec := newBordereauTestContext(t, http.MethodGet, "/bordereaux/brd-1", nil, nil)

	h.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data struct {
			ID  string `json:"id"`
			SLA struct {
				Status string `json:"status"`
			} `json:"sla"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "brd-1", envelope.Data.ID)
	assert.Equal(t, string(models.SLAOnTime), envelope.Data.SLA.Status)
}

func TestBordereauHandlerGetNotFound(t *testing.T) {
	srv := &fakeLifecycleSrv{err: appErrors.Clone(appErrors.ErrUnknownEntity, "bordereau not found")}
	h := NewBordereauHandler(srv, &fakeTrailSrv{}, fakeSLAEvaluator{})

	c, rec := newBordereauTestContext(t, http.MethodGet, "/bordereaux/brd-1", nil, nil)

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBordereauHandlerStartScan(t *testing.T) {
	srv := &fakeLifecycleSrv{bordereau: testBordereau(models.StatutScanEnCours)}
	h := NewBordereauHandler(srv, &fakeTrailSrv{}, fakeSLAEvaluator{})

	c, rec := newBordereauTestContext(t, http.MethodPost, "/bordereaux/brd-1/scan/start", nil,
		&models.JWTClaims{UserID: "scan-1", Role: models.RoleScanTeam})

	h.StartScan(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.EventStartScan, srv.lastEvent)
	assert.Equal(t, "scan-1", srv.lastParams.ActorID)
}

func TestBordereauHandlerIllegalTransition(t *testing.T) {
	srv := &fakeLifecycleSrv{err: appErrors.Clone(appErrors.ErrIllegalTransition, "")}
	h := NewBordereauHandler(srv, &fakeTrailSrv{}, fakeSLAEvaluator{})

	c, rec := newBordereauTestContext(t, http.MethodPost, "/bordereaux/brd-1/scan/complete", nil,
		&models.JWTClaims{UserID: "scan-1", Role: models.RoleScanTeam})

	h.CompleteScan(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, envelope.Error.Code)
}

func TestBordereauHandlerReject(t *testing.T) {
	srv := &fakeLifecycleSrv{bordereau: testBordereau(models.StatutAScanner)}
	h := NewBordereauHandler(srv, &fakeTrailSrv{}, fakeSLAEvaluator{})

	c, rec := newBordereauTestContext(t, http.MethodPost, "/bordereaux/brd-1/reject",
		rejectRequest{Reason: "pages illisibles", ReturnTo: models.ReturnToScan},
		&models.JWTClaims{UserID: "g1", Role: models.RoleGestionnaire})

	h.Reject(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.EventReject, srv.lastEvent)
	assert.Equal(t, "pages illisibles", srv.lastParams.Reason)
	assert.Equal(t, models.ReturnToScan, srv.lastParams.ReturnTo)
}

func TestBordereauHandlerHandleUsesCallerID(t *testing.T) {
	srv := &fakeLifecycleSrv{bordereau: testBordereau(models.StatutEnCours)}
	h := NewBordereauHandler(srv, &fakeTrailSrv{}, fakeSLAEvaluator{})

	c, rec := newBordereauTestContext(t, http.MethodPost, "/bordereaux/brd-1/handle", nil,
		&models.JWTClaims{UserID: "chef-1", Role: models.RoleChefEquipe})

	h.Handle(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.EventHandlePersonally, srv.lastEvent)
	assert.Equal(t, "chef-1", srv.lastParams.HandlerID)
}

func TestBordereauHandlerTrail(t *testing.T) {
	trail := &fakeTrailSrv{records: []models.AssignmentRecord{
		{ID: "rec-1", ToHandlerID: "g1"},
	}}
	h := NewBordereauHandler(&fakeLifecycleSrv{}, trail, fakeSLAEvaluator{})

	c, rec := newBordereauTestContext(t, http.MethodGet, "/bordereaux/brd-1/trail", nil, nil)

	h.Trail(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.AssignmentRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "rec-1", envelope.Data[0].ID)
}
