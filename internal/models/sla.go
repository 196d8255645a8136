package models

import "time"

// SLAHealth is the derived deadline health of a bordereau or document.
type SLAHealth string

const (
	SLAOnTime        SLAHealth = "ON_TIME"
	SLAAtRisk        SLAHealth = "AT_RISK"
	SLAOverdue       SLAHealth = "OVERDUE"
	SLACritical      SLAHealth = "CRITICAL"
	SLANotApplicable SLAHealth = "N/A"
)

// SLAStatus is never stored; it is recomputed from dateReception and
// delaiReglement against the evaluation instant.
type SLAStatus struct {
	Deadline       time.Time `json:"deadline"`
	RemainingHours float64   `json:"remaining_hours"`
	Status         SLAHealth `json:"status"`
}
