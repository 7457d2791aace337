package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
)

// mapError classifies a pgx error into a *domain.StorageError, keeping the
// server message.
func mapError(op string, err error) error {
	se := &domain.StorageError{Op: op, Backend: string(store.BackendPostgres), Kind: domain.StorageOther, Err: err}

	var pgErr *pgconn.PgError
	var connErr *pgconn.ConnectError
	switch {
	case errors.As(err, &pgErr):
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			se.Kind = domain.StorageConstraint
			se.Unique = pgErr.Code == "23505"
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01", pgErr.Code == "53300":
			// connection exception, admin shutdown, too many connections
			se.Kind = domain.StorageConnectivity
		}
	case errors.As(err, &connErr),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		se.Kind = domain.StorageConnectivity
	}

	return se
}
