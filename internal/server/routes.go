package server

import (
	"github.com/danielgtaylor/huma/v2"

	v1 "github.com/gosuda/cardvault/internal/api/v1"
)

func registerAuthRoutes(api huma.API, deps Deps) {
	v1.RegisterAuthRoutes(api, deps.Auth)
}

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterCardRoutes(api, deps.Cards)
	v1.RegisterPlayerRoutes(api, deps.Players)
	v1.RegisterTeamRoutes(api, deps.Teams)
	v1.RegisterManufacturerRoutes(api, deps.Manufacturers)
	v1.RegisterUserRoutes(api, deps.Users)
	v1.RegisterMeRoutes(api, deps.Users, deps.Auth)
	// Single-tenant deployments have no tenants to administer.
	if deps.Tenants != nil {
		v1.RegisterTenantRoutes(api, deps.Tenants)
	}
}
