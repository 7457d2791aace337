package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/cardvault/internal/authz"
	"github.com/gosuda/cardvault/internal/domain"
)

type UpdateMeInput struct {
	Body ProfileBody
}

type ChangePasswordInput struct {
	Body struct {
		CurrentPassword string `json:"current_password" minLength:"1" maxLength:"128"` //nolint:gosec // G117: credential DTO
		NewPassword     string `json:"new_password" minLength:"8" maxLength:"128"`     //nolint:gosec // G117: credential DTO
	}
}

// RegisterMeRoutes mounts the caller's own account endpoints.
func RegisterMeRoutes(api huma.API, users UserService, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Get the authenticated user",
		Tags:        []string{"Me"},
	}, func(ctx context.Context, _ *struct{}) (*ItemOutput[domain.User], error) {
		c, err := authz.RequireCaller(ctx)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		u, err := users.Get(ctx, c.UserID)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[domain.User]{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-me",
		Method:      http.MethodPatch,
		Path:        "/me",
		Summary:     "Update the authenticated user's profile",
		Tags:        []string{"Me"},
	}, func(ctx context.Context, input *UpdateMeInput) (*ItemOutput[domain.User], error) {
		c, err := authz.RequireCaller(ctx)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		u, err := users.UpdateProfile(ctx, c.UserID, input.Body.patch())
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[domain.User]{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "change-password",
		Method:        http.MethodPost,
		Path:          "/me/password",
		Summary:       "Change the authenticated user's password",
		Tags:          []string{"Me"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *ChangePasswordInput) (*struct{}, error) {
		c, err := authz.RequireCaller(ctx)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		if err := authSvc.ChangePassword(ctx, c.UserID, input.Body.CurrentPassword, input.Body.NewPassword); err != nil {
			return nil, httpError(ctx, err)
		}
		return nil, nil
	})
}
