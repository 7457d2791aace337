package v1

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/cardvault/internal/domain"
)

type TeamBody struct {
	Name   string  `json:"name" minLength:"1" maxLength:"255" doc:"Team name"`
	City   *string `json:"city,omitempty" maxLength:"128"`
	Sport  *string `json:"sport,omitempty" maxLength:"64"`
	League *string `json:"league,omitempty" maxLength:"64"`
}

type TeamPatchBody struct {
	Name   *string `json:"name,omitempty" minLength:"1" maxLength:"255" doc:"Team name"`
	City   *string `json:"city,omitempty" maxLength:"128"`
	Sport  *string `json:"sport,omitempty" maxLength:"64"`
	League *string `json:"league,omitempty" maxLength:"64"`
}

func RegisterTeamRoutes(api huma.API, svc TeamService) {
	resource[domain.Team, domain.TeamInput, domain.TeamPatch, TeamBody, TeamPatchBody]{
		svc:      svc,
		path:     "/teams",
		singular: "team",
		tag:      "Teams",
		toInput: func(b TeamBody) domain.TeamInput {
			return domain.TeamInput{Name: b.Name, City: b.City, Sport: b.Sport, League: b.League}
		},
		toPatch: func(b TeamPatchBody) domain.TeamPatch {
			return domain.TeamPatch{Name: b.Name, City: b.City, Sport: b.Sport, League: b.League}
		},
	}.register(api, true)
}
