package catalog

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
	"github.com/gosuda/cardvault/internal/tenancy"
)

var teamColumns = []string{"id", "name", "city", "sport", "league", "created_at", "updated_at"}

type TeamService struct {
	base
}

func NewTeamService(db *store.Adapter, enforcer *tenancy.Enforcer) *TeamService {
	return &TeamService{base: newBase(db, enforcer, "team", TableTeams)}
}

func scanTeam(row store.Row) (*domain.Team, error) {
	var t domain.Team
	if err := row.Scan(&t.ID, &t.Name, &t.City, &t.Sport, &t.League, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TeamService) List(ctx context.Context) ([]*domain.Team, error) {
	teams := []*domain.Team{}
	err := s.list(ctx, func(*tenancy.Scope) sq.SelectBuilder {
		return sq.Select(teamColumns...).From(TableTeams).OrderBy("name", "id")
	}, func(rows store.Rows) error {
		t, err := scanTeam(rows)
		if err != nil {
			return err
		}
		teams = append(teams, t)
		return nil
	})
	if err != nil {
		return nil, wrap("TeamService.List", err)
	}
	return teams, nil
}

func (s *TeamService) Get(ctx context.Context, id string) (*domain.Team, error) {
	var t domain.Team
	err := s.get(ctx, id, func(*tenancy.Scope) sq.SelectBuilder {
		return sq.Select(teamColumns...).From(TableTeams).Where(sq.Eq{"id": id})
	}, &t.ID, &t.Name, &t.City, &t.Sport, &t.League, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, wrap("TeamService.Get", err)
	}
	return &t, nil
}

func (s *TeamService) Create(ctx context.Context, in domain.TeamInput) (string, error) {
	if err := requireName("name", in.Name); err != nil {
		return "", wrap("TeamService.Create", err)
	}
	id, err := s.create(ctx, map[string]any{
		"name":   strings.TrimSpace(in.Name),
		"city":   in.City,
		"sport":  in.Sport,
		"league": in.League,
	}, nil)
	return id, wrap("TeamService.Create", err)
}

func (s *TeamService) Update(ctx context.Context, id string, p domain.TeamPatch) (bool, error) {
	set := map[string]any{}
	if p.Name != nil {
		if err := requireName("name", *p.Name); err != nil {
			return false, wrap("TeamService.Update", err)
		}
		set["name"] = strings.TrimSpace(*p.Name)
	}
	setIf(set, "city", p.City)
	setIf(set, "sport", p.Sport)
	setIf(set, "league", p.League)

	changed, err := s.update(ctx, id, set, nil)
	return changed, wrap("TeamService.Update", err)
}

func (s *TeamService) Delete(ctx context.Context, id string) (bool, error) {
	changed, err := s.delete(ctx, id)
	return changed, wrap("TeamService.Delete", err)
}
