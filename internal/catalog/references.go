package catalog

import (
	"context"
	"errors"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
	"github.com/gosuda/cardvault/internal/tenancy"
)

// Reference tables a card or a user profile may point at.
const (
	TablePlayers       = "players"
	TableTeams         = "teams"
	TableManufacturers = "manufacturers"
)

// checkReference fails with a ReferenceError unless id names a row of table
// visible in s.
func checkReference(ctx context.Context, s *tenancy.Scope, field, table, id string) error {
	if !s.ValidID(id) {
		return &domain.ReferenceError{Field: field, ID: id}
	}

	var found string
	err := s.FetchOne(ctx, store.NewStatement("SELECT id FROM "+table+" WHERE id = ?", id), &found)
	if errors.Is(err, store.ErrNoRows) {
		return &domain.ReferenceError{Field: field, ID: id}
	}
	return err
}

// References validates foreign ids against the tenant in the context. It is
// used by services outside this package that store catalog references.
type References struct {
	db       *store.Adapter
	enforcer *tenancy.Enforcer
}

func NewReferences(db *store.Adapter, enforcer *tenancy.Enforcer) *References {
	return &References{db: db, enforcer: enforcer}
}

// Check returns a ReferenceError when id does not resolve in table for the
// ambient tenant.
func (r *References) Check(ctx context.Context, field, table, id string) error {
	return r.enforcer.Do(ctx, r.db, func(s *tenancy.Scope) error {
		return checkReference(ctx, s, field, table, id)
	})
}
