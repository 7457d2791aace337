// Package sqlite is the file-backed single-tenant driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
)

const backendName = string(store.BackendSQLite)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Driver serves one SQLite database file. The pool is capped at a single
// connection, so statements are serialized by database/sql.
type Driver struct {
	conn
	db *sql.DB
}

var _ store.Driver = (*Driver)(nil)

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Driver, error) {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.Open: ping: %w", err)
	}

	return NewFromDB(db), nil
}

// NewFromDB wraps an already opened database handle.
func NewFromDB(db *sql.DB) *Driver {
	return &Driver{conn: conn{q: db}, db: db}
}

func (d *Driver) Backend() store.Backend { return store.BackendSQLite }

func (d *Driver) Placeholder() sq.PlaceholderFormat { return sq.Question }

// ValidID accepts positive base-10 integers, the shape of INTEGER PRIMARY KEY.
func (d *Driver) ValidID(id string) bool {
	n, err := strconv.ParseInt(id, 10, 64)
	return err == nil && n > 0
}

func (d *Driver) SupportsSessionMarker() bool { return false }

// Pin runs fn inside a transaction. SQLite has no session marker, so marker
// is ignored.
func (d *Driver) Pin(ctx context.Context, _ string, fn func(store.Executor) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err = fn(conn{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return mapError("commit", err)
	}
	return nil
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError("ping", err)
	}
	return nil
}

func (d *Driver) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("sqlite.Close: %w", err)
	}
	return nil
}

// DB exposes the handle for migrations.
func (d *Driver) DB() *sql.DB { return d.db }

// conn adapts a database/sql querier (pool or transaction) to store.Executor.
type conn struct {
	q querier
}

func (c conn) Exec(ctx context.Context, query string, args []any) (store.Result, error) {
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return store.Result{}, mapError("exec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Result{}, mapError("exec", err)
	}
	return store.Result{RowsAffected: n}, nil
}

func (c conn) Insert(ctx context.Context, query string, args []any) (store.Result, error) {
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return store.Result{}, mapError("insert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Result{}, mapError("insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Result{}, mapError("insert", err)
	}
	return store.Result{RowsAffected: n, GeneratedID: strconv.FormatInt(id, 10)}, nil
}

func (c conn) Query(ctx context.Context, query string, args []any) (store.Rows, error) {
	rs, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("query", err)
	}
	return rows{rs}, nil
}

func (c conn) QueryRow(ctx context.Context, query string, args []any) store.Row {
	return row{c.q.QueryRowContext(ctx, query, args...)}
}

type row struct{ r *sql.Row }

func (r row) Scan(dest ...any) error {
	err := r.r.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNoRows
	}
	if err != nil {
		return mapError("query", err)
	}
	return nil
}

type rows struct{ rs *sql.Rows }

func (r rows) Next() bool { return r.rs.Next() }

func (r rows) Scan(dest ...any) error {
	if err := r.rs.Scan(dest...); err != nil {
		return mapError("scan", err)
	}
	return nil
}

func (r rows) Err() error {
	if err := r.rs.Err(); err != nil {
		return mapError("query", err)
	}
	return nil
}

func (r rows) Close() { _ = r.rs.Close() }

// mapError classifies a native error into a *domain.StorageError.
func mapError(op string, err error) error {
	se := &domain.StorageError{Op: op, Backend: backendName, Kind: domain.StorageOther, Err: err}

	var native *msqlite.Error
	switch {
	case errors.As(err, &native):
		code := native.Code()
		switch code & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			se.Kind = domain.StorageConnectivity
		case sqlite3.SQLITE_CONSTRAINT:
			se.Kind = domain.StorageConstraint
			se.Unique = code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		errors.Is(err, sql.ErrConnDone), errors.Is(err, sql.ErrTxDone):
		se.Kind = domain.StorageConnectivity
	}

	return se
}
