package models

import "time"

// Client is the insurance client a bordereau originates from. The
// contractual processing delay is inherited by every bordereau created
// at intake.
type Client struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	DelaiReglement int       `db:"delai_reglement" json:"delai_reglement"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
