package store_test

import (
	"errors"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
)

func TestCountPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"none", "SELECT 1", 0},
		{"single", "SELECT * FROM cards WHERE id = ?", 1},
		{"several", "UPDATE cards SET title = ?, notes = ? WHERE id = ?", 3},
		{"escaped literal", "SELECT '??' FROM cards WHERE id = ?", 1},
		{"values tuple", "INSERT INTO teams (name, city) VALUES (?,?)", 2},
		{"question mark inside a literal", "SELECT id FROM teams WHERE name = 'what?' AND id = ?", 1},
		{"quoted identifier", `SELECT "odd?col" FROM teams WHERE id = ?`, 1},
		{"line comment", "SELECT id -- why?\nFROM teams WHERE id = ?", 1},
		{"block comment", "SELECT id /* ? */ FROM teams WHERE id = ?", 1},
		{"escaped operator", "SELECT id FROM docs WHERE data ?? 'k' AND id = ?", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, store.CountPlaceholders(tt.query))
		})
	}
}

func TestStatementRebind(t *testing.T) {
	t.Parallel()

	t.Run("dollar numbering follows declaration order", func(t *testing.T) {
		t.Parallel()

		stmt := store.NewStatement("UPDATE cards SET title = ?, notes = ? WHERE id = ? AND tenant_id = ?", "t", "n", "1", "x")
		query, err := stmt.Rebind(sq.Dollar)
		require.NoError(t, err)
		assert.Equal(t, "UPDATE cards SET title = $1, notes = $2 WHERE id = $3 AND tenant_id = $4", query)
	})

	t.Run("question format is unchanged", func(t *testing.T) {
		t.Parallel()

		stmt := store.NewStatement("SELECT id FROM teams WHERE name = ?", "Cubs")
		query, err := stmt.Rebind(sq.Question)
		require.NoError(t, err)
		assert.Equal(t, "SELECT id FROM teams WHERE name = ?", query)
	})

	t.Run("literal question marks agree across formats", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			query    string
			question string
			dollar   string
		}{
			{"SELECT 'is it??' || ?", "SELECT 'is it?' || ?", "SELECT 'is it?' || $1"},
			{"SELECT 'what?' || ?", "SELECT 'what?' || ?", "SELECT 'what?' || $1"},
			{"SELECT id FROM docs WHERE data ?? 'k' AND id = ?", "SELECT id FROM docs WHERE data ? 'k' AND id = ?", "SELECT id FROM docs WHERE data ? 'k' AND id = $1"},
			{"SELECT id /* ? */ FROM teams WHERE id = ?", "SELECT id /* ? */ FROM teams WHERE id = ?", "SELECT id /* ? */ FROM teams WHERE id = $1"},
		}
		for _, tt := range tests {
			stmt := store.NewStatement(tt.query, "!")

			q, err := stmt.Rebind(sq.Question)
			require.NoError(t, err, tt.query)
			assert.Equal(t, tt.question, q)

			d, err := stmt.Rebind(sq.Dollar)
			require.NoError(t, err, tt.query)
			assert.Equal(t, tt.dollar, d)
		}
	})

	t.Run("count mismatch fails fast", func(t *testing.T) {
		t.Parallel()

		stmt := store.NewStatement("SELECT id FROM teams WHERE name = ? AND city = ?", "Cubs")
		_, err := stmt.Rebind(sq.Dollar)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrStatement))

		var se *domain.StatementError
		require.ErrorAs(t, err, &se)
		assert.Contains(t, se.Reason, "2 placeholders but 1 values")
	})

	t.Run("too many values", func(t *testing.T) {
		t.Parallel()

		stmt := store.NewStatement("SELECT 1", 42)
		_, err := stmt.Rebind(sq.Question)
		assert.ErrorIs(t, err, domain.ErrStatement)
	})
}

func TestBuild(t *testing.T) {
	t.Parallel()

	stmt, err := store.Build(sq.Select("id", "name").From("players").Where(sq.Eq{"sport": "baseball"}).OrderBy("name"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM players WHERE sport = ? ORDER BY name", stmt.SQL)
	assert.Equal(t, []any{"baseball"}, stmt.Args)
	assert.Equal(t, "select", stmt.Verb())
}
