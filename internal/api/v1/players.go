package v1

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/cardvault/internal/domain"
)

type PlayerBody struct {
	Name     string  `json:"name" minLength:"1" maxLength:"255" doc:"Player name"`
	Position *string `json:"position,omitempty" maxLength:"64" doc:"Playing position"`
	Sport    *string `json:"sport,omitempty" maxLength:"64" doc:"Sport"`
}

type PlayerPatchBody struct {
	Name     *string `json:"name,omitempty" minLength:"1" maxLength:"255" doc:"Player name"`
	Position *string `json:"position,omitempty" maxLength:"64" doc:"Playing position"`
	Sport    *string `json:"sport,omitempty" maxLength:"64" doc:"Sport"`
}

func RegisterPlayerRoutes(api huma.API, svc PlayerService) {
	resource[domain.Player, domain.PlayerInput, domain.PlayerPatch, PlayerBody, PlayerPatchBody]{
		svc:      svc,
		path:     "/players",
		singular: "player",
		tag:      "Players",
		toInput: func(b PlayerBody) domain.PlayerInput {
			return domain.PlayerInput{Name: b.Name, Position: b.Position, Sport: b.Sport}
		},
		toPatch: func(b PlayerPatchBody) domain.PlayerPatch {
			return domain.PlayerPatch{Name: b.Name, Position: b.Position, Sport: b.Sport}
		},
	}.register(api, true)
}
