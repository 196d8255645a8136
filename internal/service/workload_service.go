package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/pkg/config"
	appErrors "github.com/ars-tn/claims-flow-api/pkg/errors"
)

type workloadUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListByTeam(ctx context.Context, teamID string) ([]models.User, error)
	ListActiveByRoles(ctx context.Context, roles []models.UserRole) ([]models.User, error)
}

type openAssignmentCounter interface {
	CountOpenByHandler(ctx context.Context, handlerID string) (int, error)
	CountOpenByHandlers(ctx context.Context, handlerIDs []string) (map[string]int, error)
}

// WorkloadService derives handler and team utilisation from the open
// assignment ledger. Workload is always recomputed on read; crossing
// the overload threshold raises a notification and a metric.
type WorkloadService struct {
	users       workloadUserReader
	assignments openAssignmentCounter
	notifier    Notifier
	metrics     *MetricsService
	cfg         config.WorkloadConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewWorkloadService constructs the monitor with configured bands.
func NewWorkloadService(users workloadUserReader, assignments openAssignmentCounter, notifier Notifier, metrics *MetricsService, cfg config.WorkloadConfig, logger *zap.Logger) *WorkloadService {
	if cfg.DefaultCapacity <= 0 {
		cfg.DefaultCapacity = 20
	}
	if cfg.FullThreshold <= 0 {
		cfg.FullThreshold = 1.0
	}
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = 0.8
	}
	if cfg.MediumThreshold <= 0 {
		cfg.MediumThreshold = 0.5
	}
	if cfg.TeamBusyThreshold <= 0 {
		cfg.TeamBusyThreshold = 0.8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkloadService{
		users:       users,
		assignments: assignments,
		notifier:    notifier,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// ComputeHandler derives one handler's workload snapshot.
func (s *WorkloadService) ComputeHandler(ctx context.Context, handlerID string) (*models.HandlerWorkload, error) {
	user, err := s.users.FindByID(ctx, handlerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownEntity, "handler not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load handler")
	}
	open, err := s.assignments.CountOpenByHandler(ctx, handlerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open assignments")
	}
	wl := s.snapshot(user, open)
	if wl.Status == models.LoadOverloaded {
		s.signalOverload(wl.HandlerID, wl.Status)
	}
	return &wl, nil
}

// ComputeTeam derives the aggregate workload of every handler on the
// team, in one ledger query.
func (s *WorkloadService) ComputeTeam(ctx context.Context, teamID string) (*models.TeamWorkload, error) {
	members, err := s.users.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list team members")
	}
	if len(members) == 0 {
		return nil, appErrors.Clone(appErrors.ErrUnknownEntity, "team has no members")
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	counts, err := s.assignments.CountOpenByHandlers(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open assignments")
	}

	team := &models.TeamWorkload{
		TeamID:     teamID,
		Members:    make([]models.HandlerWorkload, 0, len(members)),
		ComputedAt: s.now().UTC(),
	}
	for i := range members {
		wl := s.snapshot(&members[i], counts[members[i].ID])
		team.Members = append(team.Members, wl)
		team.TotalWorkload += wl.CurrentWorkload
		team.TotalCapacity += wl.Capacity
	}
	if team.TotalCapacity > 0 {
		team.Utilization = float64(team.TotalWorkload) / float64(team.TotalCapacity)
	}
	memberOverloaded := false
	for i := range team.Members {
		if team.Members[i].Status == models.LoadOverloaded {
			memberOverloaded = true
			break
		}
	}
	switch {
	case memberOverloaded || team.Utilization >= s.cfg.FullThreshold:
		team.Status = models.LoadOverloaded
	case team.Utilization >= s.cfg.TeamBusyThreshold:
		team.Status = models.LoadBusy
	default:
		team.Status = models.LoadNormal
	}
	if team.Status == models.LoadOverloaded {
		s.signalOverload("team:"+teamID, team.Status)
	}
	return team, nil
}

// ComputeHandlers derives workload snapshots for every active handler,
// used by the dashboard's overload section.
func (s *WorkloadService) ComputeHandlers(ctx context.Context) ([]models.HandlerWorkload, error) {
	handlers, err := s.users.ListActiveByRoles(ctx, models.HandlerRoles)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list handlers")
	}
	ids := make([]string, 0, len(handlers))
	for _, h := range handlers {
		ids = append(ids, h.ID)
	}
	counts, err := s.assignments.CountOpenByHandlers(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open assignments")
	}
	out := make([]models.HandlerWorkload, 0, len(handlers))
	for i := range handlers {
		out = append(out, s.snapshot(&handlers[i], counts[handlers[i].ID]))
	}
	return out, nil
}

// Remaining returns how many more assignments the handler can take.
func (s *WorkloadService) Remaining(ctx context.Context, handler *models.User) (int, error) {
	open, err := s.assignments.CountOpenByHandler(ctx, handler.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count open assignments")
	}
	return s.capacityOf(handler) - open, nil
}

func (s *WorkloadService) capacityOf(u *models.User) int {
	if u.Capacity > 0 {
		return u.Capacity
	}
	return s.cfg.DefaultCapacity
}

func (s *WorkloadService) snapshot(u *models.User, open int) models.HandlerWorkload {
	capacity := s.capacityOf(u)
	rate := float64(open) / float64(capacity)

	var band models.UtilizationBand
	switch {
	case rate >= s.cfg.FullThreshold:
		band = models.BandFull
	case rate >= s.cfg.HighThreshold:
		band = models.BandHigh
	case rate >= s.cfg.MediumThreshold:
		band = models.BandMedium
	default:
		band = models.BandLow
	}

	var status models.LoadStatus
	switch band {
	case models.BandFull:
		status = models.LoadOverloaded
	case models.BandHigh:
		status = models.LoadBusy
	default:
		status = models.LoadNormal
	}

	return models.HandlerWorkload{
		HandlerID:       u.ID,
		FullName:        u.FullName,
		CurrentWorkload: open,
		Capacity:        capacity,
		UtilizationRate: rate,
		Band:            band,
		Status:          status,
		IsAvailable:     u.Active && open < capacity,
		ComputedAt:      s.now().UTC(),
	}
}

func (s *WorkloadService) signalOverload(subject string, status models.LoadStatus) {
	s.metrics.RecordOverloadAlert()
	dispatchNotification(s.notifier, s.logger, NotificationEvent{
		Kind:      NotifyOverload,
		HandlerID: subject,
		Status:    status,
	})
}
