package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

// CraftStatus describes the daily crafting allowance
type CraftStatus struct {
	Counter   domain.DailyCounter `json:"counter"`
	Limit     int                 `json:"limit"`
	Remaining int                 `json:"remaining"`
}

// CraftOutcome is the result of one crafting attempt
type CraftOutcome struct {
	domain.CraftResult
	Status CraftStatus          `json:"status"`
	Reward *domain.RewardResult `json:"reward,omitempty"`
}

func dailyPath(identityID string) string {
	return store.Join(pathDaily, identityID)
}

// CraftStatus returns today's counter, persisting a reset when the anchored
// date moved on
func (ss *Session) CraftStatus(ctx context.Context) (CraftStatus, error) {
	s := ss.svc
	p, err := s.readProfile(ctx, ss.identityID)
	if err != nil {
		return CraftStatus{}, err
	}
	now := s.now()

	stored, ok, err := store.ReadInto[domain.DailyCounter](ctx, s.store, dailyPath(ss.identityID))
	if err != nil {
		return CraftStatus{}, fmt.Errorf("reading daily counter: %w", err)
	}
	var prev *domain.DailyCounter
	if ok {
		prev = &stored
	}
	counter, reset := domain.LoadOrReset(prev, now, s.cfg.Crafting.UTCOffset)
	if reset {
		if err := s.store.Write(ctx, dailyPath(ss.identityID), counter); err != nil {
			return CraftStatus{}, fmt.Errorf("resetting daily counter: %w", err)
		}
	}

	limit := s.dailyLimits().For(p.EntitlementActive(now))
	return CraftStatus{Counter: counter, Limit: limit, Remaining: counter.Remaining(limit)}, nil
}

// Craft combines two items. Every attempt, matched or not, consumes one unit
// of the daily allowance; only a match grants rewards.
func (ss *Session) Craft(ctx context.Context, itemA, itemB string) (CraftOutcome, error) {
	if strings.TrimSpace(itemA) == "" || strings.TrimSpace(itemB) == "" {
		return CraftOutcome{}, fmt.Errorf("%w: two items are required", domain.ErrInvalidRequest)
	}
	s := ss.svc

	p, err := s.readProfile(ctx, ss.identityID)
	if err != nil {
		return CraftOutcome{}, err
	}
	if !p.Team.Valid() {
		return CraftOutcome{}, domain.ErrNoTeam
	}

	recipes, err := s.recipes.ListRecipes(ctx)
	if err != nil {
		return CraftOutcome{}, fmt.Errorf("loading recipes: %w", err)
	}
	book := domain.NewRecipeBook(recipes)

	now := s.now()
	limit := s.dailyLimits().For(p.EntitlementActive(now))
	counter, err := store.Update(ctx, s.store, dailyPath(ss.identityID), func(c *domain.DailyCounter, exists bool) error {
		var prev *domain.DailyCounter
		if exists {
			prev = c
		}
		current, _ := domain.LoadOrReset(prev, now, s.cfg.Crafting.UTCOffset)
		next, ok := current.TryConsume(limit)
		if !ok {
			return domain.ErrLimitReached
		}
		*c = next
		return nil
	})
	if err != nil {
		return CraftOutcome{}, err
	}

	out := CraftOutcome{
		CraftResult: domain.ResolveCraft(p.Team, itemA, itemB, book),
		Status:      CraftStatus{Counter: counter, Limit: limit, Remaining: counter.Remaining(limit)},
	}

	if out.Matched {
		reward, _, err := s.grant(ctx, ss.identityID, s.cfg.Rewards.Craft)
		if err != nil {
			return out, err
		}
		out.Reward = &reward
	}

	s.logger.Debug("craft attempted",
		"identity_id", ss.identityID,
		"matched", out.Matched,
		"count", counter.Count,
		"limit", limit,
	)
	return out, nil
}
