package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/cardvault/internal/accounts"
	"github.com/gosuda/cardvault/internal/domain"
)

type CreateUserInput struct {
	Body struct {
		Username     string              `json:"username" minLength:"3" maxLength:"64" doc:"Login name, stored lower-cased"`
		Password     string              `json:"password" minLength:"8" maxLength:"128" doc:"Initial password"` //nolint:gosec // G117: account creation DTO
		Email        string              `json:"email,omitempty" maxLength:"255"`
		DisplayName  string              `json:"display_name,omitempty" maxLength:"255"`
		PlatformRole domain.PlatformRole `json:"platform_role,omitempty" enum:"platform_admin,platform_operator,member"`
		OrgRole      domain.OrgRole      `json:"organization_role,omitempty" enum:"org_admin,member"`
		TenantID     string              `json:"tenant_id,omitempty" doc:"Organization; defaults to the caller's"`
	}
}

type ListUsersInput struct {
	TenantID string `query:"tenant_id" doc:"Organization to list; defaults to the caller's"`
}

// ProfileBody carries the self-service fields. An empty favorite id clears it.
type ProfileBody struct {
	Email            *string `json:"email,omitempty" maxLength:"255"`
	DisplayName      *string `json:"display_name,omitempty" maxLength:"255"`
	FavoriteTeamID   *string `json:"favorite_team_id,omitempty"`
	FavoritePlayerID *string `json:"favorite_player_id,omitempty"`
}

func (b ProfileBody) patch() domain.UserProfilePatch {
	return domain.UserProfilePatch{
		Email:            b.Email,
		DisplayName:      b.DisplayName,
		FavoriteTeamID:   b.FavoriteTeamID,
		FavoritePlayerID: b.FavoritePlayerID,
	}
}

type AssignRolesInput struct {
	ID   string `path:"id" maxLength:"64" doc:"User ID"`
	Body struct {
		PlatformRole domain.PlatformRole `json:"platform_role" enum:"platform_admin,platform_operator,member"`
		OrgRole      domain.OrgRole      `json:"organization_role,omitempty" enum:"org_admin,member"`
	}
}

// RegisterUserRoutes mounts organization user administration.
func RegisterUserRoutes(api huma.API, users UserService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create a user in an organization",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateUserInput) (*ItemOutput[domain.User], error) {
		u, err := users.Create(ctx, accounts.NewUser{
			Username:     input.Body.Username,
			Password:     input.Body.Password,
			Email:        input.Body.Email,
			DisplayName:  input.Body.DisplayName,
			PlatformRole: input.Body.PlatformRole,
			OrgRole:      input.Body.OrgRole,
			TenantID:     input.Body.TenantID,
		})
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[domain.User]{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List the users of an organization",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *ListUsersInput) (*ListOutput[domain.User], error) {
		list, err := users.List(ctx, input.TenantID)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ListOutput[domain.User]{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{id}",
		Summary:     "Get a user by ID",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *IDInput) (*ItemOutput[domain.User], error) {
		u, err := users.Get(ctx, input.ID)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[domain.User]{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user-profile",
		Method:      http.MethodPatch,
		Path:        "/users/{id}",
		Summary:     "Update a user's profile",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *UpdateInput[ProfileBody]) (*ItemOutput[domain.User], error) {
		u, err := users.UpdateProfile(ctx, input.ID, input.Body.patch())
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[domain.User]{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-user-roles",
		Method:      http.MethodPut,
		Path:        "/users/{id}/roles",
		Summary:     "Replace a user's platform and organization roles",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *AssignRolesInput) (*ItemOutput[domain.User], error) {
		u, err := users.AssignRoles(ctx, input.ID, input.Body.PlatformRole, input.Body.OrgRole)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[domain.User]{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-user",
		Method:        http.MethodDelete,
		Path:          "/users/{id}",
		Summary:       "Delete a user",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *IDInput) (*struct{}, error) {
		if err := users.Delete(ctx, input.ID); err != nil {
			return nil, httpError(ctx, err)
		}
		return nil, nil
	})
}
