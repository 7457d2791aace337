package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
	"github.com/gosuda/cardvault/internal/store/sqlite"
)

func newMockDriver(t *testing.T) (*sqlite.Driver, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlite.NewFromDB(db), mock
}

func storageError(t *testing.T, err error) *domain.StorageError {
	t.Helper()

	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "sqlite", se.Backend)
	return se
}

func TestValidID(t *testing.T) {
	t.Parallel()

	d := sqlite.NewFromDB(nil)
	for id, want := range map[string]bool{
		"1":                                    true,
		"9223372036854775807":                  true,
		"0":                                    false,
		"-4":                                   false,
		"":                                     false,
		"1.5":                                  false,
		"abc":                                  false,
		"6f1c9a52-2d7e-4b47-9d0a-3c2a1b9e4f10": false,
	} {
		assert.Equal(t, want, d.ValidID(id), id)
	}
}

func TestInsertReportsGeneratedID(t *testing.T) {
	t.Parallel()

	d, mock := newMockDriver(t)
	mock.ExpectExec("INSERT INTO teams (name) VALUES (?)").
		WithArgs("Tigers").
		WillReturnResult(sqlmock.NewResult(7, 1))

	res, err := d.Insert(context.Background(), "INSERT INTO teams (name) VALUES (?)", []any{"Tigers"})
	require.NoError(t, err)
	assert.Equal(t, store.Result{RowsAffected: 1, GeneratedID: "7"}, res)
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		kind      domain.StorageKind
		retryable bool
	}{
		{"deadline", context.DeadlineExceeded, domain.StorageConnectivity, true},
		{"canceled", context.Canceled, domain.StorageConnectivity, true},
		{"other", errors.New("disk I/O error"), domain.StorageOther, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, mock := newMockDriver(t)
			mock.ExpectQuery("SELECT id FROM teams").WillReturnError(tt.err)

			_, err := d.Query(context.Background(), "SELECT id FROM teams", nil)
			se := storageError(t, err)
			assert.Equal(t, "query", se.Op)
			assert.Equal(t, tt.kind, se.Kind)
			assert.Equal(t, tt.retryable, se.Retryable())
			assert.ErrorIs(t, err, tt.err, "native error stays reachable")
			assert.ErrorIs(t, err, domain.ErrStorage)
		})
	}
}

func TestQueryRowNoRows(t *testing.T) {
	t.Parallel()

	d, mock := newMockDriver(t)
	mock.ExpectQuery("SELECT name FROM teams WHERE id = ?").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	var name string
	err := d.QueryRow(context.Background(), "SELECT name FROM teams WHERE id = ?", []any{3}).Scan(&name)
	assert.ErrorIs(t, err, store.ErrNoRows)
}

func TestPin(t *testing.T) {
	t.Parallel()

	t.Run("commits", func(t *testing.T) {
		t.Parallel()

		d, mock := newMockDriver(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM cards WHERE id = ?").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := d.Pin(context.Background(), "ignored", func(ex store.Executor) error {
			_, err := ex.Exec(context.Background(), "DELETE FROM cards WHERE id = ?", []any{1})
			return err
		})
		require.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		t.Parallel()

		d, mock := newMockDriver(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := d.Pin(context.Background(), "", func(store.Executor) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("begin failure", func(t *testing.T) {
		t.Parallel()

		d, mock := newMockDriver(t)
		mock.ExpectBegin().WillReturnError(context.DeadlineExceeded)

		err := d.Pin(context.Background(), "", func(store.Executor) error {
			t.Fatal("fn must not run")
			return nil
		})
		se := storageError(t, err)
		assert.Equal(t, "begin", se.Op)
		assert.True(t, se.Retryable())
	})
}

func TestOpenMigrateAndConstraints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "cardvault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, d.Migrate())
	require.NoError(t, d.Migrate(), "second run is a no-op")
	require.NoError(t, d.Ping(ctx))
	assert.False(t, d.SupportsSessionMarker())

	_, err = d.Exec(ctx, "CREATE TABLE labels (name TEXT NOT NULL UNIQUE)", nil)
	require.NoError(t, err)

	_, err = d.Insert(ctx, "INSERT INTO labels (name) VALUES (?)", []any{"rookie"})
	require.NoError(t, err)

	_, err = d.Insert(ctx, "INSERT INTO labels (name) VALUES (?)", []any{"rookie"})
	se := storageError(t, err)
	assert.Equal(t, domain.StorageConstraint, se.Kind)
	assert.True(t, se.Unique)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = d.Insert(ctx, "INSERT INTO labels (name) VALUES (?)", []any{nil})
	se = storageError(t, err)
	assert.Equal(t, domain.StorageConstraint, se.Kind)
	assert.False(t, se.Unique)
}

func TestLiteralQuestionMarks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "literals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	db := store.NewAdapter(d)

	tests := []struct {
		query string
		want  string
	}{
		{"SELECT 'is it??' || ?", "is it?!"},
		{"SELECT 'what?' || ?", "what?!"},
		{"SELECT ? || ' /* ? */'", "! /* ? */"},
	}
	for _, tt := range tests {
		var got string
		require.NoError(t, db.FetchOne(ctx, store.NewStatement(tt.query, "!"), &got), tt.query)
		assert.Equal(t, tt.want, got, tt.query)
	}
}
