package catalog

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/gosuda/cardvault/internal/domain"
	"github.com/gosuda/cardvault/internal/store"
	"github.com/gosuda/cardvault/internal/tenancy"
)

const cardSelect = `c.id, c.title, c.year, c.set_name, c.card_number, c.condition, c.grade,
c.estimated_value, c.notes, c.player_id, c.team_id, c.manufacturer_id,
p.name, t.name, m.name, c.created_at, c.updated_at`

// CardFilter narrows a card listing. Zero fields do not filter.
type CardFilter struct {
	PlayerID       string
	TeamID         string
	ManufacturerID string
	Year           *int
	// Search matches a case-insensitive substring of the title.
	Search string
}

type CardService struct {
	base
}

func NewCardService(db *store.Adapter, enforcer *tenancy.Enforcer) *CardService {
	return &CardService{base: newBase(db, enforcer, "card", "cards")}
}

// selectCards joins the reference tables with LEFT JOINs, so cards with a
// missing or unset reference are still returned. The enforcer keeps every
// joined table on the card's tenant.
func selectCards() sq.SelectBuilder {
	return sq.Select(cardSelect).
		From("cards c").
		LeftJoin("players p ON p.id = c.player_id").
		LeftJoin("teams t ON t.id = c.team_id").
		LeftJoin("manufacturers m ON m.id = c.manufacturer_id")
}

func cardDest(c *domain.Card) []any {
	return []any{
		&c.ID, &c.Title, &c.Year, &c.SetName, &c.CardNumber, &c.Condition, &c.Grade,
		&c.EstimatedValue, &c.Notes, &c.PlayerID, &c.TeamID, &c.ManufacturerID,
		&c.PlayerName, &c.TeamName, &c.ManufacturerName, &c.CreatedAt, &c.UpdatedAt,
	}
}

func (s *CardService) List(ctx context.Context) ([]*domain.Card, error) {
	return s.Find(ctx, CardFilter{})
}

// Find lists the cards matching f, ordered by title. A reference id the
// backend could never have issued matches nothing.
func (s *CardService) Find(ctx context.Context, f CardFilter) ([]*domain.Card, error) {
	cards := []*domain.Card{}
	for _, id := range []string{f.PlayerID, f.TeamID, f.ManufacturerID} {
		if id != "" && !s.db.ValidID(id) {
			if err := s.authorizeList(ctx); err != nil {
				return nil, wrap("CardService.Find", err)
			}
			return cards, nil
		}
	}

	err := s.list(ctx, func(*tenancy.Scope) sq.SelectBuilder {
		q := selectCards()
		if f.PlayerID != "" {
			q = q.Where(sq.Eq{"c.player_id": f.PlayerID})
		}
		if f.TeamID != "" {
			q = q.Where(sq.Eq{"c.team_id": f.TeamID})
		}
		if f.ManufacturerID != "" {
			q = q.Where(sq.Eq{"c.manufacturer_id": f.ManufacturerID})
		}
		if f.Year != nil {
			q = q.Where(sq.Eq{"c.year": *f.Year})
		}
		if search := strings.TrimSpace(f.Search); search != "" {
			q = q.Where("lower(c.title) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		return q.OrderBy("c.title", "c.id")
	}, func(rows store.Rows) error {
		var c domain.Card
		if err := rows.Scan(cardDest(&c)...); err != nil {
			return err
		}
		cards = append(cards, &c)
		return nil
	})
	if err != nil {
		return nil, wrap("CardService.Find", err)
	}
	return cards, nil
}

func (s *CardService) Get(ctx context.Context, id string) (*domain.Card, error) {
	var c domain.Card
	err := s.get(ctx, id, func(*tenancy.Scope) sq.SelectBuilder {
		return selectCards().Where(sq.Eq{"c.id": id})
	}, cardDest(&c)...)
	if err != nil {
		return nil, wrap("CardService.Get", err)
	}
	return &c, nil
}

// Create validates every reference against the caller's tenant before the
// insert; a dangling reference fails with a ReferenceError.
func (s *CardService) Create(ctx context.Context, in domain.CardInput) (string, error) {
	if err := requireName("title", in.Title); err != nil {
		return "", wrap("CardService.Create", err)
	}

	refs := cardRefs{player: in.PlayerID, team: in.TeamID, manufacturer: in.ManufacturerID}
	id, err := s.create(ctx, map[string]any{
		"title":           strings.TrimSpace(in.Title),
		"year":            in.Year,
		"set_name":        in.SetName,
		"card_number":     in.CardNumber,
		"condition":       in.Condition,
		"grade":           in.Grade,
		"estimated_value": in.EstimatedValue,
		"notes":           in.Notes,
		"player_id":       refs.value(in.PlayerID),
		"team_id":         refs.value(in.TeamID),
		"manufacturer_id": refs.value(in.ManufacturerID),
	}, func(sc *tenancy.Scope) error {
		return refs.check(ctx, sc)
	})
	return id, wrap("CardService.Create", err)
}

// Update applies the fields present in p. An empty reference id clears the
// reference.
func (s *CardService) Update(ctx context.Context, id string, p domain.CardPatch) (bool, error) {
	set := map[string]any{}
	if p.Title != nil {
		if err := requireName("title", *p.Title); err != nil {
			return false, wrap("CardService.Update", err)
		}
		set["title"] = strings.TrimSpace(*p.Title)
	}
	setIf(set, "year", p.Year)
	setIf(set, "set_name", p.SetName)
	setIf(set, "card_number", p.CardNumber)
	setIf(set, "condition", p.Condition)
	setIf(set, "grade", p.Grade)
	setIf(set, "estimated_value", p.EstimatedValue)
	setIf(set, "notes", p.Notes)

	refs := cardRefs{player: p.PlayerID, team: p.TeamID, manufacturer: p.ManufacturerID}
	if p.PlayerID != nil {
		set["player_id"] = refs.value(p.PlayerID)
	}
	if p.TeamID != nil {
		set["team_id"] = refs.value(p.TeamID)
	}
	if p.ManufacturerID != nil {
		set["manufacturer_id"] = refs.value(p.ManufacturerID)
	}

	changed, err := s.update(ctx, id, set, func(sc *tenancy.Scope) error {
		return refs.check(ctx, sc)
	})
	return changed, wrap("CardService.Update", err)
}

func (s *CardService) Delete(ctx context.Context, id string) (bool, error) {
	changed, err := s.delete(ctx, id)
	return changed, wrap("CardService.Delete", err)
}

type cardRefs struct {
	player, team, manufacturer *string
}

// value maps an absent or empty reference to NULL.
func (cardRefs) value(id *string) any {
	if id == nil || *id == "" {
		return nil
	}
	return *id
}

func (r cardRefs) check(ctx context.Context, s *tenancy.Scope) error {
	for _, ref := range []struct {
		field, table string
		id           *string
	}{
		{"player_id", TablePlayers, r.player},
		{"team_id", TableTeams, r.team},
		{"manufacturer_id", TableManufacturers, r.manufacturer},
	} {
		if ref.id == nil || *ref.id == "" {
			continue
		}
		if err := checkReference(ctx, s, ref.field, ref.table, *ref.id); err != nil {
			return err
		}
	}
	return nil
}
