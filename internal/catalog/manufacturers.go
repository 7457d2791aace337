package catalog

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
	"github.com/gosuda/cardvault/internal/tenancy"
)

var manufacturerColumns = []string{"id", "name", "country", "website", "created_at", "updated_at"}

type ManufacturerService struct {
	base
}

func NewManufacturerService(db *store.Adapter, enforcer *tenancy.Enforcer) *ManufacturerService {
	return &ManufacturerService{base: newBase(db, enforcer, "manufacturer", TableManufacturers)}
}

func (s *ManufacturerService) List(ctx context.Context) ([]*domain.Manufacturer, error) {
	out := []*domain.Manufacturer{}
	err := s.list(ctx, func(*tenancy.Scope) sq.SelectBuilder {
		return sq.Select(manufacturerColumns...).From(TableManufacturers).OrderBy("name", "id")
	}, func(rows store.Rows) error {
		var m domain.Manufacturer
		if err := rows.Scan(&m.ID, &m.Name, &m.Country, &m.Website, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return err
		}
		out = append(out, &m)
		return nil
	})
	if err != nil {
		return nil, wrap("ManufacturerService.List", err)
	}
	return out, nil
}

func (s *ManufacturerService) Get(ctx context.Context, id string) (*domain.Manufacturer, error) {
	var m domain.Manufacturer
	err := s.get(ctx, id, func(*tenancy.Scope) sq.SelectBuilder {
		return sq.Select(manufacturerColumns...).From(TableManufacturers).Where(sq.Eq{"id": id})
	}, &m.ID, &m.Name, &m.Country, &m.Website, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, wrap("ManufacturerService.Get", err)
	}
	return &m, nil
}

func (s *ManufacturerService) Create(ctx context.Context, in domain.ManufacturerInput) (string, error) {
	if err := requireName("name", in.Name); err != nil {
		return "", wrap("ManufacturerService.Create", err)
	}
	id, err := s.create(ctx, map[string]any{
		"name":    strings.TrimSpace(in.Name),
		"country": in.Country,
		"website": in.Website,
	}, nil)
	return id, wrap("ManufacturerService.Create", err)
}

func (s *ManufacturerService) Update(ctx context.Context, id string, p domain.ManufacturerPatch) (bool, error) {
	set := map[string]any{}
	if p.Name != nil {
		if err := requireName("name", *p.Name); err != nil {
			return false, wrap("ManufacturerService.Update", err)
		}
		set["name"] = strings.TrimSpace(*p.Name)
	}
	setIf(set, "country", p.Country)
	setIf(set, "website", p.Website)

	changed, err := s.update(ctx, id, set, nil)
	return changed, wrap("ManufacturerService.Update", err)
}

func (s *ManufacturerService) Delete(ctx context.Context, id string) (bool, error) {
	changed, err := s.delete(ctx, id)
	return changed, wrap("ManufacturerService.Delete", err)
}
