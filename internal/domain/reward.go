package domain

import (
	"fmt"
	"strings"
	"time"
)

// RewardEvent is a grant coming from an external source such as a grader
type RewardEvent struct {
	IdentityID string    `json:"identity_id"`
	Source     string    `json:"source"`
	Experience int64     `json:"xp"`
	Currency   int64     `json:"coins"`
	TeamXP     int64     `json:"team_xp"`
	Timestamp  time.Time `json:"timestamp"`
}

// Validate rejects events that cannot be applied
func (e RewardEvent) Validate() error {
	if strings.TrimSpace(e.IdentityID) == "" {
		return fmt.Errorf("%w: missing identity_id", ErrInvalidRequest)
	}
	if e.Experience < 0 || e.Currency < 0 || e.TeamXP < 0 {
		return fmt.Errorf("%w: negative reward", ErrInvalidRequest)
	}
	return nil
}

// RewardResult reports what ApplyReward changed
type RewardResult struct {
	LevelsGained    int   `json:"levels_gained"`
	CurrencyGranted int64 `json:"currency_granted"`
	TeamLevels      int   `json:"team_levels"`
}
