package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/cardvault/internal/accounts"
	"github.com/gosuda/cardvault/internal/domain"
)

type CreateTenantInput struct {
	Body struct {
		Name     string                  `json:"name" minLength:"1" maxLength:"255" doc:"Organization name"`
		Slug     string                  `json:"slug" minLength:"3" maxLength:"63" pattern:"^[a-z0-9-]+$" doc:"URL-safe slug (lowercase alphanumeric with hyphens)"`
		Tier     domain.SubscriptionTier `json:"subscription_tier,omitempty" enum:"free,pro,enterprise"`
		MaxUsers int                     `json:"max_users,omitempty" minimum:"0" doc:"Seat limit; 0 takes the plan default"`
	}
}

type UpdateTenantInput struct {
	ID   string `path:"id" maxLength:"64" doc:"Tenant ID"`
	Body struct {
		Name     *string                  `json:"name,omitempty" minLength:"1" maxLength:"255"`
		Slug     *string                  `json:"slug,omitempty" minLength:"3" maxLength:"63" pattern:"^[a-z0-9-]+$"`
		Tier     *domain.SubscriptionTier `json:"subscription_tier,omitempty" enum:"free,pro,enterprise"`
		MaxUsers *int                     `json:"max_users,omitempty" minimum:"0"`
	}
}

type SetTenantStatusInput struct {
	ID   string `path:"id" maxLength:"64" doc:"Tenant ID"`
	Body struct {
		Status domain.TenantStatus `json:"status" enum:"active,inactive,suspended"`
	}
}

// RegisterTenantRoutes mounts platform tenant administration.
func RegisterTenantRoutes(api huma.API, tenants TenantService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-tenant",
		Method:        http.MethodPost,
		Path:          "/tenants",
		Summary:       "Create a new organization",
		Tags:          []string{"Tenants"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTenantInput) (*ItemOutput[domain.Tenant], error) {
		t, err := tenants.Create(ctx, accounts.NewTenant{
			Name:     input.Body.Name,
			Slug:     input.Body.Slug,
			Tier:     input.Body.Tier,
			MaxUsers: input.Body.MaxUsers,
		})
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[domain.Tenant]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/tenants",
		Summary:     "List all organizations",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, _ *struct{}) (*ListOutput[domain.Tenant], error) {
		list, err := tenants.List(ctx)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ListOutput[domain.Tenant]{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/tenants/{id}",
		Summary:     "Get an organization by ID",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *IDInput) (*ItemOutput[domain.Tenant], error) {
		t, err := tenants.Get(ctx, input.ID)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[domain.Tenant]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-tenant",
		Method:      http.MethodPatch,
		Path:        "/tenants/{id}",
		Summary:     "Update an organization",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *UpdateTenantInput) (*ItemOutput[domain.Tenant], error) {
		t, err := tenants.Update(ctx, input.ID, domain.TenantPatch{
			Name:     input.Body.Name,
			Slug:     input.Body.Slug,
			Tier:     input.Body.Tier,
			MaxUsers: input.Body.MaxUsers,
		})
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[domain.Tenant]{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-tenant-status",
		Method:      http.MethodPut,
		Path:        "/tenants/{id}/status",
		Summary:     "Activate, deactivate or suspend an organization",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *SetTenantStatusInput) (*ItemOutput[domain.Tenant], error) {
		t, err := tenants.SetStatus(ctx, input.ID, input.Body.Status)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[domain.Tenant]{Body: t}, nil
	})
}
