package models

import "time"

// DocumentType enumerates the kinds of items a bordereau may carry.
type DocumentType string

const (
	DocTypeBulletinSoin   DocumentType = "BULLETIN_DE_SOIN"
	DocTypeAdhesion       DocumentType = "ADHESION"
	DocTypeReclamation    DocumentType = "RECLAMATION"
	DocTypeContratAvenant DocumentType = "CONTRAT_AVENANT"
)

// slaApplicableTypes flags document types whose processing is bound by
// the contractual delay. The flag is a property of the type, never of
// the instance.
var slaApplicableTypes = map[DocumentType]bool{
	DocTypeBulletinSoin:   true,
	DocTypeAdhesion:       true,
	DocTypeReclamation:    true,
	DocTypeContratAvenant: false,
}

// SLAApplicable reports whether the type is subject to SLA tracking.
func (t DocumentType) SLAApplicable() bool {
	return slaApplicableTypes[t]
}

// DocumentStatus mirrors a reduced subset of the bordereau lifecycle.
type DocumentStatus string

const (
	DocStatusUploaded    DocumentStatus = "UPLOADED"
	DocStatusEnCours     DocumentStatus = "EN_COURS"
	DocStatusTraite      DocumentStatus = "TRAITE"
	DocStatusRejete      DocumentStatus = "REJETE"
	DocStatusRetourAdmin DocumentStatus = "RETOUR_ADMIN"
)

// Document is an individual item belonging to a bordereau.
type Document struct {
	ID          string         `db:"id" json:"id"`
	BordereauID *string        `db:"bordereau_id" json:"bordereau_id,omitempty"`
	Type        DocumentType   `db:"type" json:"type"`
	Status      DocumentStatus `db:"status" json:"status"`
	Priority    int            `db:"priority" json:"priority"`
	AssignedTo  *string        `db:"assigned_to" json:"assigned_to,omitempty"`
	AssignedAt  *time.Time     `db:"assigned_at" json:"assigned_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// DocumentFilter constrains document listing queries.
type DocumentFilter struct {
	BordereauID string
	Statuses    []DocumentStatus
	Type        DocumentType
	AssignedTo  string
	Limit       int
	Offset      int
}
