package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ars-tn/claims-flow-api/internal/dto"
	"github.com/ars-tn/claims-flow-api/internal/models"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
)

type corbeilleBordereauLister interface {
	List(ctx context.Context, filter models.BordereauFilter) ([]models.Bordereau, error)
}

type corbeilleDocumentLister interface {
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
}

// Partitioner projects a role's visible bordereaux into named buckets.
// Implementations are pure: they decide visibility and bucket
// membership from the viewer and the bordereau alone, never mutating
// either.
type Partitioner interface {
	// Buckets lists the bucket keys of this view, in display order.
	// Empty buckets still appear in the response.
	Buckets() []string
	// Filter narrows the listing query to what the viewer may see.
	Filter(viewer *models.User) models.BordereauFilter
	// Bucket places one bordereau; false drops it from the view.
	Bucket(viewer *models.User, b *models.Bordereau) (string, bool)
}

// CorbeilleService resolves the viewer's partitioner and builds the
// bucketed corbeille response. Buckets are recomputed from the live
// bordereau set on every call.
type CorbeilleService struct {
	bordereaux   corbeilleBordereauLister
	documents    corbeilleDocumentLister
	sla          *SLAService
	partitioners map[models.UserRole]Partitioner
	logger       *zap.Logger
	now          func() time.Time
}

// NewCorbeilleService creates the service with the default per-role
// partitioner registry.
func NewCorbeilleService(bordereaux corbeilleBordereauLister, documents corbeilleDocumentLister, sla *SLAService, logger *zap.Logger) *CorbeilleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	gestionnaire := gestionnairePartitioner{}
	return &CorbeilleService{
		bordereaux: bordereaux,
		documents:  documents,
		sla:        sla,
		partitioners: map[models.UserRole]Partitioner{
			models.RoleChefEquipe:         chefPartitioner{},
			models.RoleSuperAdmin:         chefPartitioner{},
			models.RoleGestionnaire:       gestionnaire,
			models.RoleGestionnaireSenior: gestionnaire,
			models.RoleScanTeam:           scanPartitioner{},
			models.RoleBureauOrdre:        boPartitioner{},
			models.RoleFinance:            financePartitioner{},
		},
		logger: logger,
		now:    time.Now,
	}
}

// Corbeille builds the viewer's bucketed view with derived SLA health
// on every entry.
func (s *CorbeilleService) Corbeille(ctx context.Context, viewer *models.User) (*dto.CorbeilleResponse, error) {
	partitioner, ok := s.partitioners[viewer.Role]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role "+string(viewer.Role)+" has no corbeille view")
	}

	items, err := s.bordereaux.List(ctx, partitioner.Filter(viewer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bordereaux")
	}

	now := s.now().UTC()
	buckets := make(map[string][]dto.BordereauSummary, len(partitioner.Buckets()))
	for _, key := range partitioner.Buckets() {
		buckets[key] = []dto.BordereauSummary{}
	}
	for i := range items {
		b := &items[i]
		key, visible := partitioner.Bucket(viewer, b)
		if !visible {
			continue
		}
		buckets[key] = append(buckets[key], dto.BordereauSummary{
			ID:               b.ID,
			Reference:        b.Reference,
			ClientID:         b.ClientID,
			Statut:           b.Statut,
			NombreBS:         b.NombreBS,
			DateReception:    b.DateReception,
			AssignedToUserID: b.AssignedToUserID,
			SLA:              s.sla.EvaluateBordereau(b, now),
		})
	}

	counts := make(map[string]int, len(buckets))
	for key, entries := range buckets {
		counts[key] = len(entries)
	}

	return &dto.CorbeilleResponse{
		Role:        viewer.Role,
		Buckets:     buckets,
		Counts:      counts,
		GeneratedAt: now,
	}, nil
}

// DocumentCorbeille lists pending documents for the scan team, highest
// priority first.
func (s *CorbeilleService) DocumentCorbeille(ctx context.Context, viewer *models.User) ([]models.Document, error) {
	switch viewer.Role {
	case models.RoleScanTeam, models.RoleChefEquipe, models.RoleSuperAdmin:
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role "+string(viewer.Role)+" has no document corbeille")
	}
	docs, err := s.documents.List(ctx, models.DocumentFilter{
		Statuses: []models.DocumentStatus{models.DocStatusUploaded, models.DocStatusEnCours},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// chefPartitioner is the triage view: what waits for assignment, what
// the team holds, what is past processing.
type chefPartitioner struct{}

func (chefPartitioner) Buckets() []string {
	return []string{dto.BucketNonAffectes, dto.BucketEnCours, dto.BucketTraites}
}

func (chefPartitioner) Filter(viewer *models.User) models.BordereauFilter {
	filter := models.BordereauFilter{Archived: boolPtr(false)}
	if viewer.Role == models.RoleChefEquipe && viewer.TeamID != nil {
		filter.TeamID = *viewer.TeamID
	}
	return filter
}

func (chefPartitioner) Bucket(_ *models.User, b *models.Bordereau) (string, bool) {
	switch {
	case b.Statut == models.StatutScanne || b.Statut == models.StatutAAffecter:
		return dto.BucketNonAffectes, true
	case b.Statut.IsHandlerHeld():
		return dto.BucketEnCours, true
	case b.Statut.IsProcessed():
		return dto.BucketTraites, true
	}
	return "", false
}

// gestionnairePartitioner pre-filters to the viewer's own dossiers.
type gestionnairePartitioner struct{}

func (gestionnairePartitioner) Buckets() []string {
	return []string{dto.BucketEnCours, dto.BucketTraites}
}

func (gestionnairePartitioner) Filter(viewer *models.User) models.BordereauFilter {
	return models.BordereauFilter{HandlerID: viewer.ID, Archived: boolPtr(false)}
}

func (gestionnairePartitioner) Bucket(viewer *models.User, b *models.Bordereau) (string, bool) {
	if b.CurrentHandlerID == nil || *b.CurrentHandlerID != viewer.ID {
		return "", false
	}
	switch {
	case b.Statut.IsHandlerHeld():
		return dto.BucketEnCours, true
	case b.Statut.IsProcessed():
		return dto.BucketTraites, true
	}
	return "", false
}

type scanPartitioner struct{}

func (scanPartitioner) Buckets() []string {
	return []string{dto.BucketAScanner, dto.BucketScanEnCours, dto.BucketFinalises}
}

func (scanPartitioner) Filter(*models.User) models.BordereauFilter {
	return models.BordereauFilter{Archived: boolPtr(false)}
}

func (scanPartitioner) Bucket(_ *models.User, b *models.Bordereau) (string, bool) {
	switch b.Statut {
	case models.StatutAScanner:
		return dto.BucketAScanner, true
	case models.StatutScanEnCours:
		return dto.BucketScanEnCours, true
	case models.StatutEnAttente:
		return "", false
	}
	// Everything past the scan step already left the scan desk.
	return dto.BucketFinalises, true
}

type boPartitioner struct{}

func (boPartitioner) Buckets() []string {
	return []string{dto.BucketEnAttente, dto.BucketEnCours, dto.BucketTraites}
}

func (boPartitioner) Filter(*models.User) models.BordereauFilter {
	return models.BordereauFilter{Archived: boolPtr(false)}
}

func (boPartitioner) Bucket(_ *models.User, b *models.Bordereau) (string, bool) {
	switch {
	case b.Statut == models.StatutEnAttente:
		return dto.BucketEnAttente, true
	case b.Statut.IsProcessed():
		return dto.BucketTraites, true
	}
	return dto.BucketEnCours, true
}

type financePartitioner struct{}

func (financePartitioner) Buckets() []string {
	return []string{dto.BucketARegler, dto.BucketEnCours, dto.BucketRegles}
}

func (financePartitioner) Filter(*models.User) models.BordereauFilter {
	return models.BordereauFilter{
		Statuts: []models.BordereauStatut{
			models.StatutTraite, models.StatutPretVirement, models.StatutVirementRejete,
			models.StatutVirementEnCours, models.StatutVirementExecute, models.StatutCloture,
		},
		Archived: boolPtr(false),
	}
}

func (financePartitioner) Bucket(_ *models.User, b *models.Bordereau) (string, bool) {
	switch b.Statut {
	case models.StatutTraite, models.StatutPretVirement, models.StatutVirementRejete:
		return dto.BucketARegler, true
	case models.StatutVirementEnCours:
		return dto.BucketEnCours, true
	case models.StatutVirementExecute, models.StatutCloture:
		return dto.BucketRegles, true
	}
	return "", false
}

func boolPtr(v bool) *bool { return &v }
