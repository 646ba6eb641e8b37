package service

import (
	"context"
	"fmt"

	"github.com/season-tracker/internal/config"
	"github.com/season-tracker/internal/domain"
)

// grant applies an experience/coin reward to the profile and credits the
// profile's team with teamXP
func (s *SeasonService) grant(ctx context.Context, identityID string, r config.Reward) (domain.RewardResult, *domain.UserProfile, error) {
	var result domain.RewardResult
	rules := s.profileRules()
	now := s.now()

	p, err := s.updateProfile(ctx, identityID, func(p *domain.UserProfile) error {
		result = domain.RewardResult{}
		if r.XP > 0 {
			result.LevelsGained = p.GrantExperience(r.XP, rules)
		}
		result.CurrencyGranted = p.GrantCurrency(r.Coins, p.EntitlementActive(now))
		return nil
	})
	if err != nil {
		return domain.RewardResult{}, nil, fmt.Errorf("granting reward: %w", err)
	}

	if r.TeamXP > 0 && p.Team.Valid() {
		credit, err := s.CreditTeam(ctx, p.Team, r.TeamXP)
		if err != nil {
			return result, p, err
		}
		result.TeamLevels = credit.LevelsGained
	}
	return result, p, nil
}

// ApplyReward grants an externally produced reward event
func (s *SeasonService) ApplyReward(ctx context.Context, event domain.RewardEvent) (domain.RewardResult, error) {
	if err := event.Validate(); err != nil {
		return domain.RewardResult{}, err
	}

	result, _, err := s.grant(ctx, event.IdentityID, config.Reward{
		XP:     event.Experience,
		Coins:  event.Currency,
		TeamXP: event.TeamXP,
	})
	if err != nil {
		return domain.RewardResult{}, err
	}

	if s.archive != nil {
		s.archiveWarn("reward event", s.archive.RecordRewardEvent(ctx, event, result),
			"identity_id", event.IdentityID, "source", event.Source)
	}
	return result, nil
}
