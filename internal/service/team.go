package service

import (
	"context"
	"fmt"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

// TeamCredit is the result of crediting a team
type TeamCredit struct {
	Record       domain.TeamRecord `json:"record"`
	LevelsGained int               `json:"levels_gained"`
}

func (s *SeasonService) defaultTeam(side domain.Side) domain.TeamRecord {
	return domain.NewTeamRecord(side, s.cfg.Team.StartCeiling)
}

// CreditTeam adds experience to a team record with an atomic update so
// concurrent credits are never lost
func (s *SeasonService) CreditTeam(ctx context.Context, side domain.Side, amount int64) (TeamCredit, error) {
	if !side.Valid() {
		return TeamCredit{}, fmt.Errorf("%w: %q", domain.ErrInvalidSide, side)
	}
	if amount <= 0 {
		return TeamCredit{}, fmt.Errorf("%w: team credit must be positive", domain.ErrInvalidRequest)
	}

	growth := s.cfg.Team.Growth
	var gained int
	rec, err := store.Update(ctx, s.store, teamPath(side), func(t *domain.TeamRecord, exists bool) error {
		if !exists {
			*t = s.defaultTeam(side)
		}
		t.Side = side
		gained = t.Rollover(amount, growth)
		return nil
	})
	if err != nil {
		return TeamCredit{}, fmt.Errorf("crediting team %s: %w", side, err)
	}

	if gained > 0 {
		s.logger.Info("team leveled up", "side", side, "level", rec.Level)
	}
	return TeamCredit{Record: rec, LevelsGained: gained}, nil
}

// EnsureTeams writes the default record of any team that does not exist yet
func (s *SeasonService) EnsureTeams(ctx context.Context) error {
	for _, side := range domain.Sides {
		if err := s.ensureTeam(ctx, side); err != nil {
			return err
		}
	}
	return nil
}

func (s *SeasonService) ensureTeam(ctx context.Context, side domain.Side) error {
	_, ok, err := store.ReadInto[domain.TeamRecord](ctx, s.store, teamPath(side))
	if err != nil {
		return fmt.Errorf("reading team %s: %w", side, err)
	}
	if ok {
		return nil
	}
	_, err = store.Update(ctx, s.store, teamPath(side), func(t *domain.TeamRecord, exists bool) error {
		if !exists {
			*t = s.defaultTeam(side)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("initialising team %s: %w", side, err)
	}
	return nil
}

// Teams returns both team records, defaults for missing ones
func (s *SeasonService) Teams(ctx context.Context) ([]domain.TeamRecord, error) {
	out := make([]domain.TeamRecord, 0, len(domain.Sides))
	for _, side := range domain.Sides {
		rec, ok, err := store.ReadInto[domain.TeamRecord](ctx, s.store, teamPath(side))
		if err != nil {
			return nil, fmt.Errorf("reading team %s: %w", side, err)
		}
		if !ok {
			rec = s.defaultTeam(side)
		}
		rec.Side = side
		out = append(out, rec)
	}
	return out, nil
}

// Roster returns the members locked into side
func (s *SeasonService) Roster(ctx context.Context, side domain.Side) (domain.Roster, error) {
	r, _, err := store.ReadInto[domain.Roster](ctx, s.store, store.Join(pathRosters, string(side)))
	if err != nil {
		return domain.Roster{}, fmt.Errorf("reading roster %s: %w", side, err)
	}
	r.Side = side
	return r, nil
}

// WatchTeams streams both team records to fn. A team that is absent on the
// first delivery is initialised with its default record.
func (s *SeasonService) WatchTeams(ctx context.Context, fn func(domain.TeamRecord)) ([]store.Subscription, error) {
	subs := make([]store.Subscription, 0, len(domain.Sides))
	for _, side := range domain.Sides {
		side := side
		sub, err := store.Watch(ctx, s.store, teamPath(side), func(rec domain.TeamRecord, exists bool) {
			if !exists {
				if err := s.ensureTeam(ctx, side); err != nil {
					s.logger.Error("failed to initialise team", "side", side, "error", err)
				}
				return
			}
			rec.Side = side
			fn(rec)
		})
		if err != nil {
			for _, prev := range subs {
				_ = prev.Close()
			}
			return nil, fmt.Errorf("watching team %s: %w", side, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// RestoreTeams writes the given records for teams that are absent from the
// store. Existing records always win.
func (s *SeasonService) RestoreTeams(ctx context.Context, records []domain.TeamRecord) (int, error) {
	restored := 0
	for _, rec := range records {
		if !rec.Side.Valid() {
			continue
		}
		rec := rec
		wrote := false
		_, err := store.Update(ctx, s.store, teamPath(rec.Side), func(t *domain.TeamRecord, exists bool) error {
			wrote = false
			if exists {
				return nil
			}
			*t = rec
			wrote = true
			return nil
		})
		if err != nil {
			return restored, fmt.Errorf("restoring team %s: %w", rec.Side, err)
		}
		if wrote {
			restored++
		}
	}
	return restored, nil
}
