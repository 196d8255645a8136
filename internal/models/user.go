package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin         UserRole = "SUPER_ADMIN"
	RoleBureauOrdre        UserRole = "BO"
	RoleScanTeam           UserRole = "SCAN"
	RoleChefEquipe         UserRole = "CHEF_EQUIPE"
	RoleGestionnaire       UserRole = "GESTIONNAIRE"
	RoleGestionnaireSenior UserRole = "GESTIONNAIRE_SENIOR"
	RoleFinance            UserRole = "FINANCE"
)

// HandlerRoles lists the roles eligible to receive bordereau assignments.
var HandlerRoles = []UserRole{RoleGestionnaire, RoleGestionnaireSenior, RoleChefEquipe}

// User represents an application user stored in the users table. For
// gestionnaires, Capacity bounds concurrent open assignments; the
// current workload is never stored here, it is derived from the
// assignment ledger on read.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	TeamID       *string    `db:"team_id" json:"team_id,omitempty"`
	Capacity     int        `db:"capacity" json:"capacity"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Roles    []UserRole
	TeamID   string
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
