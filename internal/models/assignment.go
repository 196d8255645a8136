package models

import "time"

// AssignmentPolicy selects how the engine places targets on handlers.
type AssignmentPolicy string

const (
	PolicyManual           AssignmentPolicy = "MANUAL"
	PolicyByClient         AssignmentPolicy = "BY_CLIENT"
	PolicyWorkloadBalanced AssignmentPolicy = "WORKLOAD_BALANCED"
	PolicyAIScored         AssignmentPolicy = "AI_SCORED"
)

// Valid reports whether the policy is a known value.
func (p AssignmentPolicy) Valid() bool {
	switch p {
	case PolicyManual, PolicyByClient, PolicyWorkloadBalanced, PolicyAIScored:
		return true
	}
	return false
}

// AssignmentRecord is an immutable fact on the append-only ledger. A
// record is "open" while ReleasedAt is null; workload and corbeille
// views are recomputed from open records, never from stored counters.
type AssignmentRecord struct {
	ID            string     `db:"id" json:"id"`
	BordereauID   *string    `db:"bordereau_id" json:"bordereau_id,omitempty"`
	DocumentID    *string    `db:"document_id" json:"document_id,omitempty"`
	FromHandlerID *string    `db:"from_handler_id" json:"from_handler_id,omitempty"`
	ToHandlerID   string     `db:"to_handler_id" json:"to_handler_id"`
	AssignedBy    string     `db:"assigned_by" json:"assigned_by"`
	Policy        string     `db:"policy" json:"policy"`
	Reason        string     `db:"reason" json:"reason"`
	AssignedAt    time.Time  `db:"assigned_at" json:"assigned_at"`
	ReleasedAt    *time.Time `db:"released_at" json:"released_at,omitempty"`
}

// AssignmentOutcome captures the per-target result of a batch call.
type AssignmentOutcome struct {
	BordereauID string  `json:"bordereau_id"`
	HandlerID   string  `json:"handler_id,omitempty"`
	ErrorCode   string  `json:"error_code,omitempty"`
	Message     string  `json:"message,omitempty"`
	NoOp        bool    `json:"no_op,omitempty"`
	RecordID    *string `json:"record_id,omitempty"`
}

// AssignmentResult reports every target's outcome; one failure never
// aborts the rest of the batch.
type AssignmentResult struct {
	Successes []AssignmentOutcome `json:"successes"`
	Failures  []AssignmentOutcome `json:"failures"`
}
