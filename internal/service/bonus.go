package service

import (
	"context"
	"fmt"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

// TeamBonusResult is returned to the teammate who claimed the bonus
type TeamBonusResult struct {
	Side   domain.Side           `json:"side"`
	Reward domain.RewardResult   `json:"reward"`
	Claim  domain.TeamBonusClaim `json:"claim"`
}

// TodayQuest returns the quest location of the current anchored date
func (s *SeasonService) TodayQuest() domain.DailyQuest {
	return domain.QuestFor(s.now(), s.cfg.Crafting.UTCOffset)
}

// TeamOnline counts online members of side
func (s *SeasonService) TeamOnline(ctx context.Context, side domain.Side) (online, total int, err error) {
	roster, err := s.Roster(ctx, side)
	if err != nil {
		return 0, 0, err
	}
	for _, id := range roster.Members {
		p, ok, err := store.ReadInto[domain.Presence](ctx, s.store, store.Join(pathPresence, id))
		if err != nil {
			return 0, 0, fmt.Errorf("reading presence: %w", err)
		}
		if ok && p.Online {
			online++
		}
	}
	return online, len(roster.Members), nil
}

// ClaimTeamBonus grants the team bonus when every teammate is online and the
// team's cooldown has elapsed. When two teammates claim together exactly one wins.
func (ss *Session) ClaimTeamBonus(ctx context.Context) (TeamBonusResult, error) {
	s := ss.svc
	p, err := s.readProfile(ctx, ss.identityID)
	if err != nil {
		return TeamBonusResult{}, err
	}
	side := p.Team
	if !side.Valid() {
		return TeamBonusResult{}, domain.ErrNoTeam
	}

	online, total, err := s.TeamOnline(ctx, side)
	if err != nil {
		return TeamBonusResult{}, err
	}
	if total == 0 || online < total {
		return TeamBonusResult{}, fmt.Errorf("%w: %d/%d online", domain.ErrTeamOffline, online, total)
	}

	now := s.now().UTC()
	cooldown := s.cfg.TeamBonusCooldown
	claim, err := store.Update(ctx, s.store, store.Join(pathTeamBonuses, string(side)), func(c *domain.TeamBonusClaim, exists bool) error {
		if !c.Ready(now, cooldown) {
			return fmt.Errorf("%w: next claim at %s", domain.ErrCooldown, c.NextAt(cooldown).Format("2006-01-02 15:04 MST"))
		}
		c.LastClaimedAt = &now
		c.ClaimedBy = ss.identityID
		return nil
	})
	if err != nil {
		return TeamBonusResult{}, err
	}

	reward, _, err := s.grant(ctx, ss.identityID, s.cfg.Rewards.TeamBonus)
	if err != nil {
		return TeamBonusResult{}, err
	}

	s.logger.Info("team bonus claimed", "identity_id", ss.identityID, "side", side)
	return TeamBonusResult{Side: side, Reward: reward, Claim: claim}, nil
}
