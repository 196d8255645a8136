package dto

import (
	"time"

	"github.com/ars-tn/claims-flow-api/internal/models"
)

// DashboardResponse aggregates the back-office overview: lifecycle
// distribution, SLA health, and handler load.
type DashboardResponse struct {
	Statuts     []StatutCount   `json:"statuts"`
	SLA         SLASection      `json:"sla"`
	Workload    WorkloadSection `json:"workload"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// StatutCount counts bordereaux per lifecycle state.
type StatutCount struct {
	Statut models.BordereauStatut `json:"statut"`
	Count  int                    `json:"count"`
}

// SLASection summarises deadline health across open bordereaux.
type SLASection struct {
	OnTime   int                `json:"onTime"`
	AtRisk   int                `json:"atRisk"`
	Overdue  int                `json:"overdue"`
	Critical int                `json:"critical"`
	Worst    []BordereauSummary `json:"worst"`
}

// WorkloadSection surfaces overloaded handlers for alerting.
type WorkloadSection struct {
	Overloaded []models.HandlerWorkload `json:"overloaded"`
	Busy       []models.HandlerWorkload `json:"busy"`
}
