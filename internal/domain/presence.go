package domain

import "time"

// Presence is the online marker written on session start and end
type Presence struct {
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// TeamBonusClaim tracks the shared cooldown of a team's bonus quest
type TeamBonusClaim struct {
	LastClaimedAt *time.Time `json:"last_claimed_at"`
	ClaimedBy     string     `json:"claimed_by,omitempty"`
}

// Ready reports whether the cooldown has elapsed at now
func (c TeamBonusClaim) Ready(now time.Time, cooldown time.Duration) bool {
	return c.LastClaimedAt == nil || !now.Before(c.LastClaimedAt.Add(cooldown))
}

// NextAt returns when the bonus becomes claimable again
func (c TeamBonusClaim) NextAt(cooldown time.Duration) time.Time {
	if c.LastClaimedAt == nil {
		return time.Time{}
	}
	return c.LastClaimedAt.Add(cooldown)
}
