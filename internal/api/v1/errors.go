package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"

	"github.com/gosuda/cardvault/internal/accounts"
	"github.com/gosuda/cardvault/internal/domain"
)

// httpError maps a service error onto the response status. Details are only
// taken from typed domain errors, whose messages are safe to show; anything
// unrecognized is logged and reported as a bare 500.
func httpError(ctx context.Context, err error) error {
	var (
		notFound   *domain.NotFoundError
		perm       *domain.PermissionError
		status     *domain.TenantStatusError
		ref        *domain.ReferenceError
		validation *domain.ValidationError
		storage    *domain.StorageError
	)

	switch {
	case errors.As(err, &notFound):
		return huma.Error404NotFound(notFound.Error())
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("not found")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return huma.Error401Unauthorized("invalid username or password")
	case errors.Is(err, domain.ErrUnauthorized):
		return huma.Error401Unauthorized("invalid or expired token")
	case errors.As(err, &status):
		return huma.Error403Forbidden(status.Error())
	case errors.As(err, &perm):
		return huma.Error403Forbidden(perm.Error())
	case errors.As(err, &ref):
		return huma.Error422UnprocessableEntity(ref.Error(), &huma.ErrorDetail{
			Message:  "does not exist",
			Location: "body." + ref.Field,
			Value:    ref.ID,
		})
	case errors.As(err, &validation):
		return huma.Error422UnprocessableEntity(validation.Error(), &huma.ErrorDetail{
			Message:  validation.Reason,
			Location: "body." + validation.Field,
		})
	case errors.Is(err, accounts.ErrSeatLimit):
		return huma.Error409Conflict("organization seat limit reached")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("resource already exists")
	case errors.As(err, &storage) && storage.Retryable():
		zerolog.Ctx(ctx).Warn().Err(err).Msg("api: storage unavailable")
		return huma.Error503ServiceUnavailable("storage unavailable")
	}

	zerolog.Ctx(ctx).Error().Err(err).Msg("api: unhandled error")
	return huma.Error500InternalServerError("internal error")
}
