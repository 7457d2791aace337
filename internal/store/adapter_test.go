package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
)

// ---------------------------------------------------------------------------
// fakeDriver records the native SQL it receives.
// ---------------------------------------------------------------------------

type fakeDriver struct {
	backend store.Backend
	format  sq.PlaceholderFormat

	execFunc     func(query string, args []any) (store.Result, error)
	insertFunc   func(query string, args []any) (store.Result, error)
	queryRowFunc func(query string, args []any) store.Row

	mu      sync.Mutex
	queries []string
	markers []string
	closed  atomic.Bool
}

func newFakeDriver(backend store.Backend) *fakeDriver {
	format := sq.PlaceholderFormat(sq.Question)
	if backend == store.BackendPostgres {
		format = sq.Dollar
	}
	return &fakeDriver{backend: backend, format: format}
}

func (f *fakeDriver) record(q string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
}

func (f *fakeDriver) Exec(_ context.Context, query string, args []any) (store.Result, error) {
	f.record(query)
	if f.execFunc != nil {
		return f.execFunc(query, args)
	}
	return store.Result{RowsAffected: 1}, nil
}

func (f *fakeDriver) Insert(_ context.Context, query string, args []any) (store.Result, error) {
	f.record(query)
	if f.insertFunc != nil {
		return f.insertFunc(query, args)
	}
	return store.Result{RowsAffected: 1, GeneratedID: "1"}, nil
}

func (f *fakeDriver) Query(_ context.Context, query string, _ []any) (store.Rows, error) {
	f.record(query)
	return &sliceRows{}, nil
}

func (f *fakeDriver) QueryRow(_ context.Context, query string, args []any) store.Row {
	f.record(query)
	if f.queryRowFunc != nil {
		return f.queryRowFunc(query, args)
	}
	return rowFunc(func(...any) error { return store.ErrNoRows })
}

func (f *fakeDriver) Backend() store.Backend                { return f.backend }
func (f *fakeDriver) Placeholder() sq.PlaceholderFormat     { return f.format }
func (f *fakeDriver) ValidID(id string) bool                { return id != "" }
func (f *fakeDriver) SupportsSessionMarker() bool           { return f.backend == store.BackendPostgres }
func (f *fakeDriver) Ping(_ context.Context) error          { return nil }
func (f *fakeDriver) Close() error                          { f.closed.Store(true); return nil }
func (f *fakeDriver) Pin(_ context.Context, marker string, fn func(store.Executor) error) error {
	f.mu.Lock()
	f.markers = append(f.markers, marker)
	f.mu.Unlock()
	return fn(pinnedExec{f})
}

// pinnedExec is a distinct Executor value so Adapter can tell it is pinned.
type pinnedExec struct{ *fakeDriver }

type rowFunc func(dest ...any) error

func (r rowFunc) Scan(dest ...any) error { return r(dest...) }

type sliceRows struct {
	values []string
	i      int
}

func (r *sliceRows) Next() bool { r.i++; return r.i <= len(r.values) }
func (r *sliceRows) Scan(dest ...any) error {
	*(dest[0].(*string)) = r.values[r.i-1]
	return nil
}
func (r *sliceRows) Err() error { return nil }
func (r *sliceRows) Close()     {}

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

func TestAdapterExecute(t *testing.T) {
	t.Parallel()

	t.Run("postgres rewrites placeholders", func(t *testing.T) {
		t.Parallel()

		d := newFakeDriver(store.BackendPostgres)
		a := store.NewAdapter(d)

		_, err := a.Execute(context.Background(), store.NewStatement("DELETE FROM teams WHERE id = ? AND name = ?", "a", "b"))
		require.NoError(t, err)
		assert.Equal(t, []string{"DELETE FROM teams WHERE id = $1 AND name = $2"}, d.queries)
	})

	t.Run("inserts report the generated id", func(t *testing.T) {
		t.Parallel()

		d := newFakeDriver(store.BackendSQLite)
		d.insertFunc = func(_ string, _ []any) (store.Result, error) {
			return store.Result{RowsAffected: 1, GeneratedID: "17"}, nil
		}
		a := store.NewAdapter(d)

		res, err := a.Execute(context.Background(), store.NewStatement("insert into teams (name) values (?)", "Cubs"))
		require.NoError(t, err)
		assert.Equal(t, "17", res.GeneratedID)
		assert.Equal(t, int64(1), res.RowsAffected)
	})

	t.Run("placeholder mismatch never reaches the driver", func(t *testing.T) {
		t.Parallel()

		d := newFakeDriver(store.BackendPostgres)
		a := store.NewAdapter(d)

		_, err := a.Execute(context.Background(), store.NewStatement("DELETE FROM teams WHERE id = ?"))
		assert.ErrorIs(t, err, domain.ErrStatement)
		assert.Empty(t, d.queries)
	})

	t.Run("storage errors pass through typed", func(t *testing.T) {
		t.Parallel()

		d := newFakeDriver(store.BackendSQLite)
		d.execFunc = func(_ string, _ []any) (store.Result, error) {
			return store.Result{}, &domain.StorageError{Op: "update", Backend: "sqlite", Kind: domain.StorageConnectivity, Err: errors.New("database is locked")}
		}
		a := store.NewAdapter(d)

		_, err := a.Execute(context.Background(), store.NewStatement("UPDATE teams SET name = ?", "x"))
		require.Error(t, err)

		var se *domain.StorageError
		require.ErrorAs(t, err, &se)
		assert.True(t, se.Retryable())
		assert.Contains(t, err.Error(), "database is locked")
	})

	t.Run("cancelled context is not dispatched", func(t *testing.T) {
		t.Parallel()

		d := newFakeDriver(store.BackendSQLite)
		a := store.NewAdapter(d)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := a.Execute(ctx, store.NewStatement("DELETE FROM teams"))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, d.queries)
	})
}

func TestAdapterFetch(t *testing.T) {
	t.Parallel()

	t.Run("no rows", func(t *testing.T) {
		t.Parallel()

		a := store.NewAdapter(newFakeDriver(store.BackendSQLite))
		var id string
		err := a.FetchOne(context.Background(), store.NewStatement("SELECT id FROM teams WHERE id = ?", "9"), &id)
		assert.ErrorIs(t, err, store.ErrNoRows)
	})

	t.Run("fetch all visits every row", func(t *testing.T) {
		t.Parallel()

		d := &rowsDriver{fakeDriver: newFakeDriver(store.BackendSQLite), values: []string{"a", "b", "c"}}
		a := store.NewAdapter(d)

		var got []string
		err := a.FetchAll(context.Background(), store.NewStatement("SELECT name FROM teams"), func(r store.Rows) error {
			var s string
			if err := r.Scan(&s); err != nil {
				return err
			}
			got = append(got, s)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, got)
	})
}

type rowsDriver struct {
	*fakeDriver
	values []string
}

func (d *rowsDriver) Query(_ context.Context, _ string, _ []any) (store.Rows, error) {
	return &sliceRows{values: d.values}, nil
}

func TestAdapterPin(t *testing.T) {
	t.Parallel()

	d := newFakeDriver(store.BackendPostgres)
	a := store.NewAdapter(d)

	calls := 0
	err := a.Pin(context.Background(), "tenant-1", func(pinned *store.Adapter) error {
		calls++
		// Nested pins reuse the outer connection.
		return pinned.Pin(context.Background(), "tenant-1", func(inner *store.Adapter) error {
			calls++
			_, err := inner.Execute(context.Background(), store.NewStatement("DELETE FROM teams WHERE id = ?", "x"))
			return err
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"tenant-1"}, d.markers)
	assert.Equal(t, []string{"DELETE FROM teams WHERE id = $1"}, d.queries)
}
