package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ars-tn/claims-flow-api/internal/dto"
	"github.com/ars-tn/claims-flow-api/internal/models"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:overview"

// dashboardWorstLimit bounds the worst-SLA list on the overview.
const dashboardWorstLimit = 10

type dashboardBordereauReader interface {
	List(ctx context.Context, filter models.BordereauFilter) ([]models.Bordereau, error)
	CountByStatut(ctx context.Context) (map[models.BordereauStatut]int, error)
}

type handlerWorkloadProvider interface {
	ComputeHandlers(ctx context.Context) ([]models.HandlerWorkload, error)
}

// DashboardService composes the back-office overview, cache-aside with
// a short TTL since every section is a derived aggregate.
type DashboardService struct {
	bordereaux dashboardBordereauReader
	workload   handlerWorkloadProvider
	sla        *SLAService
	cache      *CacheService
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(bordereaux dashboardBordereauReader, workload handlerWorkloadProvider, sla *SLAService, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		bordereaux: bordereaux,
		workload:   workload,
		sla:        sla,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Overview returns the dashboard payload and whether it came from cache.
func (s *DashboardService) Overview(ctx context.Context) (*dto.DashboardResponse, bool, error) {
	var cached dto.DashboardResponse
	if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	resp, err := s.build(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, resp, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard overview", zap.Error(err))
	}
	return resp, false, nil
}

// Invalidate drops the cached overview, called after mutating flows
// when freshness matters more than the TTL.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *DashboardService) build(ctx context.Context) (*dto.DashboardResponse, error) {
	counts, err := s.bordereaux.CountByStatut(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count bordereaux")
	}
	statuts := make([]dto.StatutCount, 0, len(counts))
	for _, st := range models.AllStatuts {
		if n, ok := counts[st]; ok {
			statuts = append(statuts, dto.StatutCount{Statut: st, Count: n})
		}
	}

	open, err := s.bordereaux.List(ctx, models.BordereauFilter{Archived: boolPtr(false)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bordereaux")
	}

	now := s.now().UTC()
	slaSection := dto.SLASection{Worst: []dto.BordereauSummary{}}
	type scored struct {
		summary   dto.BordereauSummary
		remaining float64
	}
	worst := make([]scored, 0, len(open))
	for i := range open {
		b := &open[i]
		if b.Statut.IsTerminal() {
			continue
		}
		status := s.sla.EvaluateBordereau(b, now)
		switch status.Status {
		case models.SLAOnTime:
			slaSection.OnTime++
		case models.SLAAtRisk:
			slaSection.AtRisk++
		case models.SLAOverdue:
			slaSection.Overdue++
		case models.SLACritical:
			slaSection.Critical++
		}
		worst = append(worst, scored{
			summary: dto.BordereauSummary{
				ID:               b.ID,
				Reference:        b.Reference,
				ClientID:         b.ClientID,
				Statut:           b.Statut,
				NombreBS:         b.NombreBS,
				DateReception:    b.DateReception,
				AssignedToUserID: b.AssignedToUserID,
				SLA:              status,
			},
			remaining: status.RemainingHours,
		})
	}
	sort.Slice(worst, func(i, j int) bool { return worst[i].remaining < worst[j].remaining })
	for i := 0; i < len(worst) && i < dashboardWorstLimit; i++ {
		slaSection.Worst = append(slaSection.Worst, worst[i].summary)
	}

	workloads, err := s.workload.ComputeHandlers(ctx)
	if err != nil {
		return nil, err
	}
	workloadSection := dto.WorkloadSection{
		Overloaded: []models.HandlerWorkload{},
		Busy:       []models.HandlerWorkload{},
	}
	for _, wl := range workloads {
		switch wl.Status {
		case models.LoadOverloaded:
			workloadSection.Overloaded = append(workloadSection.Overloaded, wl)
		case models.LoadBusy:
			workloadSection.Busy = append(workloadSection.Busy, wl)
		}
	}

	return &dto.DashboardResponse{
		Statuts:     statuts,
		SLA:         slaSection,
		Workload:    workloadSection,
		GeneratedAt: now,
	}, nil
}
