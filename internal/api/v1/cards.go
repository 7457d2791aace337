package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/cardvault/internal/catalog"
	"github.com/gosuda/cardvault/internal/domain"
)

type CardBody struct {
	Title          string   `json:"title" minLength:"1" maxLength:"255" doc:"Card title"`
	Year           *int     `json:"year,omitempty" minimum:"1800" maximum:"2200"`
	SetName        *string  `json:"set_name,omitempty" maxLength:"255"`
	CardNumber     *string  `json:"card_number,omitempty" maxLength:"64"`
	Condition      *string  `json:"condition,omitempty" maxLength:"64"`
	Grade          *float64 `json:"grade,omitempty" minimum:"0" maximum:"10"`
	EstimatedValue *float64 `json:"estimated_value,omitempty" minimum:"0"`
	Notes          *string  `json:"notes,omitempty" maxLength:"4000"`
	PlayerID       *string  `json:"player_id,omitempty" doc:"Player of the card"`
	TeamID         *string  `json:"team_id,omitempty" doc:"Team of the card"`
	ManufacturerID *string  `json:"manufacturer_id,omitempty" doc:"Card manufacturer"`
}

// CardPatchBody clears a reference when its id is sent as "".
type CardPatchBody struct {
	Title          *string  `json:"title,omitempty" minLength:"1" maxLength:"255" doc:"Card title"`
	Year           *int     `json:"year,omitempty" minimum:"1800" maximum:"2200"`
	SetName        *string  `json:"set_name,omitempty" maxLength:"255"`
	CardNumber     *string  `json:"card_number,omitempty" maxLength:"64"`
	Condition      *string  `json:"condition,omitempty" maxLength:"64"`
	Grade          *float64 `json:"grade,omitempty" minimum:"0" maximum:"10"`
	EstimatedValue *float64 `json:"estimated_value,omitempty" minimum:"0"`
	Notes          *string  `json:"notes,omitempty" maxLength:"4000"`
	PlayerID       *string  `json:"player_id,omitempty" doc:"Player of the card; empty clears"`
	TeamID         *string  `json:"team_id,omitempty" doc:"Team of the card; empty clears"`
	ManufacturerID *string  `json:"manufacturer_id,omitempty" doc:"Card manufacturer; empty clears"`
}

type ListCardsInput struct {
	PlayerID       string `query:"player_id" doc:"Only cards of this player"`
	TeamID         string `query:"team_id" doc:"Only cards of this team"`
	ManufacturerID string `query:"manufacturer_id" doc:"Only cards of this manufacturer"`
	Year           int    `query:"year" minimum:"0" doc:"Only cards from this year"`
	Search         string `query:"q" maxLength:"255" doc:"Case-insensitive title search"`
}

func (in *ListCardsInput) filter() catalog.CardFilter {
	f := catalog.CardFilter{
		PlayerID:       in.PlayerID,
		TeamID:         in.TeamID,
		ManufacturerID: in.ManufacturerID,
		Search:         in.Search,
	}
	if in.Year != 0 {
		f.Year = &in.Year
	}
	return f
}

func RegisterCardRoutes(api huma.API, svc CardService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-cards",
		Method:      http.MethodGet,
		Path:        "/cards",
		Summary:     "List or search cards of the current organization",
		Tags:        []string{"Cards"},
	}, func(ctx context.Context, input *ListCardsInput) (*ListOutput[domain.Card], error) {
		cards, err := svc.Find(ctx, input.filter())
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ListOutput[domain.Card]{Body: cards}, nil
	})

	resource[domain.Card, domain.CardInput, domain.CardPatch, CardBody, CardPatchBody]{
		svc:      svc,
		path:     "/cards",
		singular: "card",
		tag:      "Cards",
		toInput: func(b CardBody) domain.CardInput {
			return domain.CardInput{
				Title: b.Title, Year: b.Year, SetName: b.SetName, CardNumber: b.CardNumber,
				Condition: b.Condition, Grade: b.Grade, EstimatedValue: b.EstimatedValue, Notes: b.Notes,
				PlayerID: b.PlayerID, TeamID: b.TeamID, ManufacturerID: b.ManufacturerID,
			}
		},
		toPatch: func(b CardPatchBody) domain.CardPatch {
			return domain.CardPatch{
				Title: b.Title, Year: b.Year, SetName: b.SetName, CardNumber: b.CardNumber,
				Condition: b.Condition, Grade: b.Grade, EstimatedValue: b.EstimatedValue, Notes: b.Notes,
				PlayerID: b.PlayerID, TeamID: b.TeamID, ManufacturerID: b.ManufacturerID,
			}
		},
	}.register(api, false)
}
