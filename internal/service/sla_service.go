package service

import (
	"time"

	"github.com/ars-tn/claims-flow-api/internal/models"
	"github.com/ars-tn/claims-flow-api/pkg/config"
)

// SLAService derives deadline health from a reception timestamp and a
// contractual delay. Evaluate is pure: the same inputs always yield the
// same result, so both bordereau- and document-level displays can share
// it and tests never need a clock.
type SLAService struct {
	cfg config.SLAConfig
}

// NewSLAService constructs the calculator with configured bands.
func NewSLAService(cfg config.SLAConfig) *SLAService {
	if cfg.AtRiskWindow <= 0 {
		cfg.AtRiskWindow = 24 * time.Hour
	}
	if cfg.CriticalOverdue <= 0 {
		cfg.CriticalOverdue = 48 * time.Hour
	}
	return &SLAService{cfg: cfg}
}

// Evaluate computes remaining time and health against the given instant.
func (s *SLAService) Evaluate(dateReception time.Time, delaiReglementDays int, now time.Time) models.SLAStatus {
	deadline := dateReception.Add(time.Duration(delaiReglementDays) * 24 * time.Hour)
	remaining := deadline.Sub(now)
	remainingHours := remaining.Hours()

	var health models.SLAHealth
	switch {
	case remaining < -s.cfg.CriticalOverdue:
		health = models.SLACritical
	case remaining < 0:
		health = models.SLAOverdue
	case remaining <= s.cfg.AtRiskWindow:
		health = models.SLAAtRisk
	default:
		health = models.SLAOnTime
	}

	return models.SLAStatus{
		Deadline:       deadline,
		RemainingHours: remainingHours,
		Status:         health,
	}
}

// EvaluateBordereau derives the SLA status of a bordereau.
func (s *SLAService) EvaluateBordereau(b *models.Bordereau, now time.Time) models.SLAStatus {
	return s.Evaluate(b.DateReception, b.DelaiReglement, now)
}

// EvaluateDocument derives the SLA status of a document within its
// bordereau's contractual window. Types not subject to SLA tracking
// short-circuit to N/A without touching the calculation.
func (s *SLAService) EvaluateDocument(doc *models.Document, dateReception time.Time, delaiReglementDays int, now time.Time) models.SLAStatus {
	if !doc.Type.SLAApplicable() {
		return models.SLAStatus{Status: models.SLANotApplicable}
	}
	return s.Evaluate(dateReception, delaiReglementDays, now)
}
