package models

import "time"

// UtilizationBand classifies a single handler's utilisation rate.
type UtilizationBand string

const (
	BandFull   UtilizationBand = "FULL"
	BandHigh   UtilizationBand = "HIGH"
	BandMedium UtilizationBand = "MEDIUM"
	BandLow    UtilizationBand = "LOW"
)

// LoadStatus is the coarse overload signal consumed by dashboards.
type LoadStatus string

const (
	LoadNormal     LoadStatus = "NORMAL"
	LoadBusy       LoadStatus = "BUSY"
	LoadOverloaded LoadStatus = "OVERLOADED"
)

// HandlerWorkload is a derived aggregate: CurrentWorkload is the count
// of open ledger records, never an independently stored counter.
type HandlerWorkload struct {
	HandlerID       string          `json:"handler_id"`
	FullName        string          `json:"full_name"`
	CurrentWorkload int             `json:"current_workload"`
	Capacity        int             `json:"capacity"`
	UtilizationRate float64         `json:"utilization_rate"`
	Band            UtilizationBand `json:"band"`
	Status          LoadStatus      `json:"status"`
	IsAvailable     bool            `json:"is_available"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// TeamWorkload aggregates member workloads for a chef d'équipe's team.
type TeamWorkload struct {
	TeamID        string            `json:"team_id"`
	TotalWorkload int               `json:"total_workload"`
	TotalCapacity int               `json:"total_capacity"`
	Utilization   float64           `json:"utilization"`
	Status        LoadStatus        `json:"status"`
	Members       []HandlerWorkload `json:"members"`
	ComputedAt    time.Time         `json:"computed_at"`
}
