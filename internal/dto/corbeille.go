package dto

import (
	"time"

	"github.com/ars-tn/claims-flow-api/internal/models"
)

// Corbeille bucket names. Role variants reuse these keys so dashboards
// can address buckets uniformly.
const (
	BucketNonAffectes = "nonAffectes"
	BucketEnCours     = "enCours"
	BucketTraites     = "traites"
	BucketAScanner    = "aScanner"
	BucketScanEnCours = "scanEnCours"
	BucketFinalises   = "finalises"
	BucketEnAttente   = "enAttente"
	BucketARegler     = "aRegler"
	BucketRegles      = "regles"
)

// BordereauSummary is the corbeille/dashboard projection of a bordereau,
// enriched with its derived SLA health.
type BordereauSummary struct {
	ID               string                 `json:"id"`
	Reference        string                 `json:"reference"`
	ClientID         string                 `json:"clientId"`
	Statut           models.BordereauStatut `json:"statut"`
	NombreBS         int                    `json:"nombreBS"`
	DateReception    time.Time              `json:"dateReception"`
	AssignedToUserID *string                `json:"assignedToUserId,omitempty"`
	SLA              models.SLAStatus       `json:"sla"`
}

// CorbeilleResponse partitions the caller's visible bordereaux into
// role-specific buckets. The partition is recomputed per request from
// the current bordereau set; bucket counts are never cached.
type CorbeilleResponse struct {
	Role        models.UserRole               `json:"role"`
	Buckets     map[string][]BordereauSummary `json:"buckets"`
	Counts      map[string]int                `json:"counts"`
	GeneratedAt time.Time                     `json:"generatedAt"`
}
