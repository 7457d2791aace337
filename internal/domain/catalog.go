package domain

import "time"

// Catalog resources. In multi-tenant deployments every row is owned by the
// tenant it was created under; the owner is never exposed or accepted here.

type Manufacturer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Country   *string   `json:"country,omitempty"`
	Website   *string   `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ManufacturerInput struct {
	Name    string
	Country *string
	Website *string
}

type ManufacturerPatch struct {
	Name    *string
	Country *string
	Website *string
}

type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      *string   `json:"city,omitempty"`
	Sport     *string   `json:"sport,omitempty"`
	League    *string   `json:"league,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TeamInput struct {
	Name   string
	City   *string
	Sport  *string
	League *string
}

type TeamPatch struct {
	Name   *string
	City   *string
	Sport  *string
	League *string
}

type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Position  *string   `json:"position,omitempty"`
	Sport     *string   `json:"sport,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PlayerInput struct {
	Name     string
	Position *string
	Sport    *string
}

type PlayerPatch struct {
	Name     *string
	Position *string
	Sport    *string
}

type Card struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Year           *int     `json:"year,omitempty"`
	SetName        *string  `json:"set_name,omitempty"`
	CardNumber     *string  `json:"card_number,omitempty"`
	Condition      *string  `json:"condition,omitempty"`
	Grade          *float64 `json:"grade,omitempty"`
	EstimatedValue *float64 `json:"estimated_value,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	PlayerID       *string  `json:"player_id,omitempty"`
	TeamID         *string  `json:"team_id,omitempty"`
	ManufacturerID *string  `json:"manufacturer_id,omitempty"`

	// Populated from LEFT JOINs; nil when the reference is unset.
	PlayerName       *string `json:"player_name,omitempty"`
	TeamName         *string `json:"team_name,omitempty"`
	ManufacturerName *string `json:"manufacturer_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CardInput struct {
	Title          string
	Year           *int
	SetName        *string
	CardNumber     *string
	Condition      *string
	Grade          *float64
	EstimatedValue *float64
	Notes          *string
	PlayerID       *string
	TeamID         *string
	ManufacturerID *string
}

// CardPatch is a partial card update. A reference field set to an empty
// string clears the reference.
type CardPatch struct {
	Title          *string
	Year           *int
	SetName        *string
	CardNumber     *string
	Condition      *string
	Grade          *float64
	EstimatedValue *float64
	Notes          *string
	PlayerID       *string
	TeamID         *string
	ManufacturerID *string
}
