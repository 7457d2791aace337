package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/cardvault/internal/auth"
	"github.com/gosuda/cardvault/internal/domain"
)

type LoginInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" maxLength:"64" doc:"Username (case-insensitive)"`
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token" minLength:"1" doc:"Refresh token"` //nolint:gosec // G117: token refresh DTO
	}
}

// SessionBody is returned by login and refresh.
type SessionBody struct {
	AccessToken  string                `json:"access_token"`  //nolint:gosec // G117: auth response DTO
	RefreshToken string                `json:"refresh_token"` //nolint:gosec // G117: auth response DTO
	ExpiresAt    time.Time             `json:"expires_at"`
	User         *domain.User          `json:"user"`
	Tenant       *domain.TenantContext `json:"tenant,omitempty"`
}

type SessionOutput struct {
	Body SessionBody
}

func sessionOutput(s *auth.Session) *SessionOutput {
	return &SessionOutput{Body: SessionBody{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		User:         s.User,
		Tenant:       s.Tenant,
	}}
}

// RegisterAuthRoutes mounts the unauthenticated session endpoints.
func RegisterAuthRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with username and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*SessionOutput, error) {
		sess, err := authSvc.Login(ctx, input.Body.Username, input.Body.Password)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return sessionOutput(sess), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Exchange a refresh token for a new session",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*SessionOutput, error) {
		sess, err := authSvc.Refresh(ctx, input.Body.RefreshToken)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return sessionOutput(sess), nil
	})
}
