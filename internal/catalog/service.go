// Package catalog implements the card, player, team and manufacturer
// services. The tenant is always taken from the request context; no method
// accepts one as a parameter.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/gosuda/cardvault/internal/authz"
	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
	"github.com/gosuda/cardvault/internal/tenancy"
)

// base carries what every catalog service shares: the adapter, the
// enforcer and the authorization gates.
type base struct {
	db       *store.Adapter
	enforcer *tenancy.Enforcer
	resource string
	table    string
}

func newBase(db *store.Adapter, enforcer *tenancy.Enforcer, resource, table string) base {
	return base{db: db, enforcer: enforcer, resource: resource, table: table}
}

// canView applies CanViewTenantData for the ambient tenant.
func canView(ctx context.Context) (bool, error) {
	c, err := authz.RequireCaller(ctx)
	if err != nil {
		return false, err
	}
	return authz.CanViewTenantData(c.PlatformRole, c.TenantID, tenancy.TenantID(ctx)), nil
}

func (b *base) authorizeList(ctx context.Context) error {
	ok, err := canView(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.PermissionError{Action: "list " + b.table + " of this organization"}
	}
	return nil
}

// authorizeGet hides other tenants' data behind not-found.
func (b *base) authorizeGet(ctx context.Context, id string) error {
	ok, err := canView(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return b.notFound(id)
	}
	return nil
}

func (b *base) authorizeWrite(ctx context.Context, verb string) error {
	c, err := authz.RequireCaller(ctx)
	if err != nil {
		return err
	}
	if !authz.CanViewTenantData(c.PlatformRole, c.TenantID, tenancy.TenantID(ctx)) ||
		!authz.CanCreateDomainResource(c.PlatformRole, c.OrgRole) {
		return &domain.PermissionError{Action: verb + " " + b.resource}
	}
	return nil
}

func (b *base) notFound(id string) error {
	return &domain.NotFoundError{Resource: b.resource, ID: id}
}

// get scans the row selected by build into dest.
func (b *base) get(ctx context.Context, id string, build func(*tenancy.Scope) sq.SelectBuilder, dest ...any) error {
	if err := b.authorizeGet(ctx, id); err != nil {
		return err
	}
	if !b.db.ValidID(id) {
		return b.notFound(id)
	}

	return b.enforcer.Do(ctx, b.db, func(s *tenancy.Scope) error {
		stmt, err := store.Build(build(s))
		if err != nil {
			return err
		}
		err = s.FetchOne(ctx, stmt, dest...)
		if errors.Is(err, store.ErrNoRows) {
			return b.notFound(id)
		}
		return err
	})
}

func (b *base) list(ctx context.Context, build func(*tenancy.Scope) sq.SelectBuilder, scan func(store.Rows) error) error {
	if err := b.authorizeList(ctx); err != nil {
		return err
	}

	return b.enforcer.Do(ctx, b.db, func(s *tenancy.Scope) error {
		stmt, err := store.Build(build(s))
		if err != nil {
			return err
		}
		return s.FetchAll(ctx, stmt, scan)
	})
}

// create inserts values plus timestamps. check runs first inside the same
// scope and may veto the insert.
func (b *base) create(ctx context.Context, values map[string]any, check func(*tenancy.Scope) error) (string, error) {
	if err := b.authorizeWrite(ctx, "create"); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	values["created_at"] = now
	values["updated_at"] = now

	var id string
	err := b.enforcer.Do(ctx, b.db, func(s *tenancy.Scope) error {
		if check != nil {
			if err := check(s); err != nil {
				return err
			}
		}
		stmt, err := store.Build(sq.Insert(b.table).SetMap(values))
		if err != nil {
			return err
		}
		res, err := s.Execute(ctx, stmt)
		if err != nil {
			return err
		}
		id = res.GeneratedID
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// update applies set and always stamps updated_at. It reports whether a row
// matched.
func (b *base) update(ctx context.Context, id string, set map[string]any, check func(*tenancy.Scope) error) (bool, error) {
	if err := b.authorizeWrite(ctx, "update"); err != nil {
		return false, err
	}
	if !b.db.ValidID(id) {
		return false, nil
	}
	set["updated_at"] = time.Now().UTC()

	var changed bool
	err := b.enforcer.Do(ctx, b.db, func(s *tenancy.Scope) error {
		if check != nil {
			if err := check(s); err != nil {
				return err
			}
		}
		stmt, err := store.Build(sq.Update(b.table).SetMap(set).Where(sq.Eq{"id": id}))
		if err != nil {
			return err
		}
		res, err := s.Execute(ctx, stmt)
		if err != nil {
			return err
		}
		changed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (b *base) delete(ctx context.Context, id string) (bool, error) {
	if err := b.authorizeWrite(ctx, "delete"); err != nil {
		return false, err
	}
	if !b.db.ValidID(id) {
		return false, nil
	}

	var changed bool
	err := b.enforcer.Do(ctx, b.db, func(s *tenancy.Scope) error {
		stmt, err := store.Build(sq.Delete(b.table).Where(sq.Eq{"id": id}))
		if err != nil {
			return err
		}
		res, err := s.Execute(ctx, stmt)
		if err != nil {
			return err
		}
		changed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// wrap prefixes err with the operation name.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("catalog.%s: %w", op, err)
}

// setIf records *v under column when v is non-nil.
func setIf[T any](m map[string]any, column string, v *T) {
	if v != nil {
		m[column] = *v
	}
}

// requireName rejects blank names.
func requireName(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &domain.ValidationError{Field: field, Reason: "must not be empty"}
	}
	return nil
}
