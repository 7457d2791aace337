package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/metrics"
)

// Adapter is the single entry point services use to talk to storage. It
// validates and rewrites statements for the underlying driver and records
// statement metrics. An Adapter is safe for concurrent use; one obtained from
// Pin is bound to a single connection and must not outlive the Pin callback.
type Adapter struct {
	driver Driver
	exec   Executor
}

func NewAdapter(d Driver) *Adapter {
	return &Adapter{driver: d, exec: d}
}

func (a *Adapter) Backend() Backend { return a.driver.Backend() }

func (a *Adapter) ValidID(id string) bool { return a.driver.ValidID(id) }

func (a *Adapter) SupportsSessionMarker() bool { return a.driver.SupportsSessionMarker() }

func (a *Adapter) Ping(ctx context.Context) error { return a.driver.Ping(ctx) }

// Execute runs a write. For INSERT statements the generated id of the new row
// is reported in Result.GeneratedID on every backend.
func (a *Adapter) Execute(ctx context.Context, stmt Statement) (Result, error) {
	query, err := a.prepare(ctx, stmt)
	if err != nil {
		return Result{}, err
	}

	started := time.Now()
	var res Result
	if isInsert(query) {
		res, err = a.exec.Insert(ctx, query, stmt.Args)
	} else {
		res, err = a.exec.Exec(ctx, query, stmt.Args)
	}
	a.observe(stmt, started, err)
	if err != nil {
		return Result{}, fmt.Errorf("store.Execute: %w", err)
	}
	return res, nil
}

// FetchOne scans the first row into dest. It returns ErrNoRows when nothing
// matched.
func (a *Adapter) FetchOne(ctx context.Context, stmt Statement, dest ...any) error {
	query, err := a.prepare(ctx, stmt)
	if err != nil {
		return err
	}

	started := time.Now()
	err = a.exec.QueryRow(ctx, query, stmt.Args).Scan(dest...)
	if errors.Is(err, ErrNoRows) {
		a.observe(stmt, started, nil)
		return ErrNoRows
	}
	a.observe(stmt, started, err)
	if err != nil {
		return fmt.Errorf("store.FetchOne: %w", err)
	}
	return nil
}

// FetchAll calls scan once per result row. Iteration stops at the first error.
func (a *Adapter) FetchAll(ctx context.Context, stmt Statement, scan func(Rows) error) error {
	query, err := a.prepare(ctx, stmt)
	if err != nil {
		return err
	}

	started := time.Now()
	rows, err := a.exec.Query(ctx, query, stmt.Args)
	if err != nil {
		a.observe(stmt, started, err)
		return fmt.Errorf("store.FetchAll: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err = scan(rows); err != nil {
			a.observe(stmt, started, err)
			return fmt.Errorf("store.FetchAll: scan: %w", err)
		}
	}
	err = rows.Err()
	a.observe(stmt, started, err)
	if err != nil {
		return fmt.Errorf("store.FetchAll: rows: %w", err)
	}
	return nil
}

// Pin runs fn with an Adapter bound to one physical connection inside one
// transaction. marker is handed to the driver as the session tenant marker.
// Nested pins reuse the outer connection.
func (a *Adapter) Pin(ctx context.Context, marker string, fn func(*Adapter) error) error {
	if a.exec != Executor(a.driver) {
		return fn(a)
	}
	err := a.driver.Pin(ctx, marker, func(exec Executor) error {
		return fn(&Adapter{driver: a.driver, exec: exec})
	})
	if err != nil {
		return fmt.Errorf("store.Pin: %w", err)
	}
	return nil
}

func (a *Adapter) prepare(ctx context.Context, stmt Statement) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.StorageError{Op: stmt.Verb(), Backend: string(a.Backend()), Kind: domain.StorageConnectivity, Err: err}
	}
	return stmt.Rebind(a.driver.Placeholder())
}

func (a *Adapter) observe(stmt Statement, started time.Time, err error) {
	kind := ""
	if err != nil {
		kind = domain.StorageOther.String()
		var se *domain.StorageError
		if errors.As(err, &se) {
			kind = se.Kind.String()
		}
	}
	metrics.ObserveStatement(string(a.Backend()), stmt.Verb(), started, kind)
}

func isInsert(query string) bool {
	q := strings.TrimSpace(query)
	return len(q) >= 6 && strings.EqualFold(q[:6], "insert")
}
