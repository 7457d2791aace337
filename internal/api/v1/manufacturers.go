package v1

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/cardvault/internal/domain"
)

type ManufacturerBody struct {
	Name    string  `json:"name" minLength:"1" maxLength:"255" doc:"Manufacturer name"`
	Country *string `json:"country,omitempty" maxLength:"64"`
	Website *string `json:"website,omitempty" maxLength:"255"`
}

type ManufacturerPatchBody struct {
	Name    *string `json:"name,omitempty" minLength:"1" maxLength:"255" doc:"Manufacturer name"`
	Country *string `json:"country,omitempty" maxLength:"64"`
	Website *string `json:"website,omitempty" maxLength:"255"`
}

func RegisterManufacturerRoutes(api huma.API, svc ManufacturerService) {
	resource[domain.Manufacturer, domain.ManufacturerInput, domain.ManufacturerPatch, ManufacturerBody, ManufacturerPatchBody]{
		svc:      svc,
		path:     "/manufacturers",
		singular: "manufacturer",
		tag:      "Manufacturers",
		toInput: func(b ManufacturerBody) domain.ManufacturerInput {
			return domain.ManufacturerInput{Name: b.Name, Country: b.Country, Website: b.Website}
		},
		toPatch: func(b ManufacturerPatchBody) domain.ManufacturerPatch {
			return domain.ManufacturerPatch{Name: b.Name, Country: b.Country, Website: b.Website}
		},
	}.register(api, true)
}
