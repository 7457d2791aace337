// Package store defines the backend-neutral storage contract: statements are
// written once with ? placeholders and dispatched through an Adapter to
// whichever Driver the deployment runs on.
package store

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// ErrNoRows is returned by Row.Scan and Adapter.FetchOne when the query
// matched nothing.
var ErrNoRows = errors.New("store: no rows in result set")

// Result describes the effect of a write. GeneratedID is set for inserts and
// is always the canonical string form of the new row id.
type Result struct {
	RowsAffected int64
	GeneratedID  string
}

type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Executor runs native SQL. Implementations return *domain.StorageError for
// backend failures and ErrNoRows from Row.Scan.
type Executor interface {
	Exec(ctx context.Context, query string, args []any) (Result, error)
	// Insert runs an INSERT and reports the generated id of the first row.
	Insert(ctx context.Context, query string, args []any) (Result, error)
	Query(ctx context.Context, query string, args []any) (Rows, error)
	QueryRow(ctx context.Context, query string, args []any) Row
}

// Driver is a concrete backend.
type Driver interface {
	Executor

	Backend() Backend
	Placeholder() sq.PlaceholderFormat
	// ValidID reports whether id has the textual shape of a row id on this
	// backend. Anything else can never match a row.
	ValidID(id string) bool
	// SupportsSessionMarker reports whether Pin honors the marker argument.
	SupportsSessionMarker() bool
	// Pin runs fn on a single physical connection inside one transaction.
	// When marker is non-empty and supported it is set as the
	// transaction-local tenant marker before fn runs.
	Pin(ctx context.Context, marker string, fn func(Executor) error) error
	Ping(ctx context.Context) error
	Close() error
}
