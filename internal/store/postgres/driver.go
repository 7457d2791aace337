// Package postgres is the networked multi-tenant driver built on pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/cardvault/internal/store"
)

// TenantSetting is the run-time parameter that carries the session tenant
// marker. It is always set transaction-locally.
const TenantSetting = "app.current_tenant"

type Options struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration
	// AcquireTimeout bounds how long a call waits for a free connection.
	// Zero waits for as long as the caller's context allows.
	AcquireTimeout time.Duration
}

type Driver struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

var _ store.Driver = (*Driver)(nil)

func Open(ctx context.Context, opts Options) (*Driver, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: parse config: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.Open: ping: %w", err)
	}

	return &Driver{pool: pool, acquireTimeout: opts.AcquireTimeout}, nil
}

func (d *Driver) Backend() store.Backend { return store.BackendPostgres }

func (d *Driver) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

func (d *Driver) ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (d *Driver) SupportsSessionMarker() bool { return true }

// Stat reports pool usage.
func (d *Driver) Stat() *pgxpool.Stat { return d.pool.Stat() }

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return mapError("ping", err)
	}
	return nil
}

func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

func (d *Driver) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	actx := ctx
	if d.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, d.acquireTimeout)
		defer cancel()
	}

	c, err := d.pool.Acquire(actx)
	if err != nil {
		return nil, mapError("acquire", err)
	}
	return c, nil
}

func (d *Driver) Exec(ctx context.Context, query string, args []any) (store.Result, error) {
	c, err := d.acquire(ctx)
	if err != nil {
		return store.Result{}, err
	}
	defer c.Release()
	return execOn(ctx, c, query, args)
}

func (d *Driver) Insert(ctx context.Context, query string, args []any) (store.Result, error) {
	c, err := d.acquire(ctx)
	if err != nil {
		return store.Result{}, err
	}
	defer c.Release()
	return insertOn(ctx, c, query, args)
}

func (d *Driver) Query(ctx context.Context, query string, args []any) (store.Rows, error) {
	c, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := c.Query(ctx, query, args...)
	if err != nil {
		c.Release()
		return nil, mapError("query", err)
	}
	return &rows{rs: rs, release: c.Release}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args []any) store.Row {
	c, err := d.acquire(ctx)
	if err != nil {
		return errRow{err}
	}
	return &row{r: c.QueryRow(ctx, query, args...), release: c.Release}
}

// Pin acquires one connection, opens a transaction on it and, when marker is
// set, stores it with set_config(..., true) so it vanishes at commit or
// rollback. Every statement fn issues runs on that same connection.
func (d *Driver) Pin(ctx context.Context, marker string, fn func(store.Executor) error) error {
	c, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Release()

	tx, err := c.Begin(ctx)
	if err != nil {
		return mapError("begin", err)
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if marker != "" {
		if _, err = tx.Exec(ctx, "SELECT set_config('"+TenantSetting+"', $1, true)", marker); err != nil {
			return mapError("set_marker", err)
		}
	}

	if err = fn(txConn{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return mapError("commit", err)
	}
	return nil
}

// querier is satisfied by *pgxpool.Conn and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txConn struct {
	tx pgx.Tx
}

func (t txConn) Exec(ctx context.Context, query string, args []any) (store.Result, error) {
	return execOn(ctx, t.tx, query, args)
}

func (t txConn) Insert(ctx context.Context, query string, args []any) (store.Result, error) {
	return insertOn(ctx, t.tx, query, args)
}

func (t txConn) Query(ctx context.Context, query string, args []any) (store.Rows, error) {
	rs, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("query", err)
	}
	return &rows{rs: rs}, nil
}

func (t txConn) QueryRow(ctx context.Context, query string, args []any) store.Row {
	return &row{r: t.tx.QueryRow(ctx, query, args...)}
}

func execOn(ctx context.Context, q querier, query string, args []any) (store.Result, error) {
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return store.Result{}, mapError("exec", err)
	}
	return store.Result{RowsAffected: tag.RowsAffected()}, nil
}

// insertOn runs an INSERT and reads the generated id from its RETURNING
// clause, appending RETURNING id when the statement has none.
func insertOn(ctx context.Context, q querier, query string, args []any) (store.Result, error) {
	if !hasReturning(query) {
		query += " RETURNING id"
	}

	rs, err := q.Query(ctx, query, args...)
	if err != nil {
		return store.Result{}, mapError("insert", err)
	}
	defer rs.Close()

	var res store.Result
	for rs.Next() {
		if res.RowsAffected == 0 {
			vals, verr := rs.Values()
			if verr != nil {
				return store.Result{}, mapError("insert", verr)
			}
			if len(vals) > 0 {
				res.GeneratedID = idString(vals[0])
			}
		}
		res.RowsAffected++
	}
	if err = rs.Err(); err != nil {
		return store.Result{}, mapError("insert", err)
	}
	return res, nil
}

func hasReturning(query string) bool {
	return strings.Contains(strings.ToUpper(query), " RETURNING ")
}

func idString(v any) string {
	switch id := v.(type) {
	case [16]byte:
		return uuid.UUID(id).String()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

type row struct {
	r       pgx.Row
	release func()
}

func (r *row) Scan(dest ...any) error {
	if r.release != nil {
		defer r.release()
	}
	err := r.r.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNoRows
	}
	if err != nil {
		return mapError("query", err)
	}
	return nil
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type rows struct {
	rs      pgx.Rows
	release func()
}

func (r *rows) Next() bool { return r.rs.Next() }

func (r *rows) Scan(dest ...any) error {
	if err := r.rs.Scan(dest...); err != nil {
		return mapError("scan", err)
	}
	return nil
}

func (r *rows) Err() error {
	if err := r.rs.Err(); err != nil {
		return mapError("query", err)
	}
	return nil
}

func (r *rows) Close() {
	r.rs.Close()
	if r.release != nil {
		r.release()
		r.release = nil
	}
}
