package catalog

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
	"github.com/gosuda/cardvault/internal/tenancy"
)

var playerColumns = []string{"id", "name", "position", "sport", "created_at", "updated_at"}

type PlayerService struct {
	base
}

func NewPlayerService(db *store.Adapter, enforcer *tenancy.Enforcer) *PlayerService {
	return &PlayerService{base: newBase(db, enforcer, "player", TablePlayers)}
}

func scanPlayer(row store.Row) (*domain.Player, error) {
	var p domain.Player
	if err := row.Scan(&p.ID, &p.Name, &p.Position, &p.Sport, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PlayerService) List(ctx context.Context) ([]*domain.Player, error) {
	players := []*domain.Player{}
	err := s.list(ctx, func(*tenancy.Scope) sq.SelectBuilder {
		return sq.Select(playerColumns...).From(TablePlayers).OrderBy("name", "id")
	}, func(rows store.Rows) error {
		p, err := scanPlayer(rows)
		if err != nil {
			return err
		}
		players = append(players, p)
		return nil
	})
	if err != nil {
		return nil, wrap("PlayerService.List", err)
	}
	return players, nil
}

func (s *PlayerService) Get(ctx context.Context, id string) (*domain.Player, error) {
	var p domain.Player
	err := s.get(ctx, id, func(*tenancy.Scope) sq.SelectBuilder {
		return sq.Select(playerColumns...).From(TablePlayers).Where(sq.Eq{"id": id})
	}, &p.ID, &p.Name, &p.Position, &p.Sport, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, wrap("PlayerService.Get", err)
	}
	return &p, nil
}

func (s *PlayerService) Create(ctx context.Context, in domain.PlayerInput) (string, error) {
	if err := requireName("name", in.Name); err != nil {
		return "", wrap("PlayerService.Create", err)
	}
	id, err := s.create(ctx, map[string]any{
		"name":     strings.TrimSpace(in.Name),
		"position": in.Position,
		"sport":    in.Sport,
	}, nil)
	return id, wrap("PlayerService.Create", err)
}

func (s *PlayerService) Update(ctx context.Context, id string, p domain.PlayerPatch) (bool, error) {
	set := map[string]any{}
	if p.Name != nil {
		if err := requireName("name", *p.Name); err != nil {
			return false, wrap("PlayerService.Update", err)
		}
		set["name"] = strings.TrimSpace(*p.Name)
	}
	setIf(set, "position", p.Position)
	setIf(set, "sport", p.Sport)

	changed, err := s.update(ctx, id, set, nil)
	return changed, wrap("PlayerService.Update", err)
}

func (s *PlayerService) Delete(ctx context.Context, id string) (bool, error) {
	changed, err := s.delete(ctx, id)
	return changed, wrap("PlayerService.Delete", err)
}
