package domain

import "time"

// UserProfile is one identity's mutable season state
type UserProfile struct {
	IdentityID  string `json:"identity_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Progress
	Currency          int64                        `json:"currency"`
	Team              Side                         `json:"team"`
	EntitlementExpiry *time.Time                   `json:"entitlement_expiry"`
	OwnedCosmetics    map[Category]map[string]bool `json:"owned_cosmetics"`
	ActiveCosmetic    map[Category]string          `json:"active_cosmetic"`
	UpdatedAt         time.Time                    `json:"updated_at"`
}

// ProfileRules holds the tunables applied to user profiles
type ProfileRules struct {
	StartCeiling int64
	Growth       int64
}

// NewUserProfile creates a profile with season defaults
func NewUserProfile(identityID string, rules ProfileRules) *UserProfile {
	p := &UserProfile{
		IdentityID: identityID,
		Progress:   NewProgress(rules.StartCeiling),
	}
	p.EnsureCosmetics()
	return p
}

// Backfill repairs fields missing from a stored record. It returns true when
// anything changed.
func (p *UserProfile) Backfill(identityID string, rules ProfileRules) bool {
	changed := false
	if p.IdentityID == "" {
		p.IdentityID = identityID
		changed = true
	}
	if p.Level < 1 {
		p.Level = 1
		changed = true
	}
	if p.Ceiling <= 0 {
		p.Ceiling = rules.StartCeiling
		changed = true
	}
	if p.Experience < 0 {
		p.Experience = 0
		changed = true
	}
	if p.Currency < 0 {
		p.Currency = 0
		changed = true
	}
	if p.Team != SideNone && !p.Team.Valid() {
		p.Team = SideNone
		changed = true
	}
	if p.EnsureCosmetics() {
		changed = true
	}
	// a stored record may predate a ceiling change
	if p.Experience >= p.Ceiling {
		p.Rollover(0, rules.Growth)
		changed = true
	}
	return changed
}

// GrantExperience adds experience and applies level rollover
func (p *UserProfile) GrantExperience(amount int64, rules ProfileRules) int {
	return p.Rollover(amount, rules.Growth)
}

// GrantCurrency adds coins, doubling them while the entitlement is active.
// It returns the amount actually credited.
func (p *UserProfile) GrantCurrency(amount int64, entitlementActive bool) int64 {
	if amount <= 0 {
		return 0
	}
	if entitlementActive {
		amount *= 2
	}
	p.Currency += amount
	return amount
}

// LockTeamOnce sets the team only if none was chosen yet
func (p *UserProfile) LockTeamOnce(side Side) bool {
	if p.Team.Valid() || !side.Valid() {
		return false
	}
	p.Team = side
	return true
}

// Fields returns the persisted projection used for merge writes
func (p *UserProfile) Fields() map[string]any {
	var expiry any
	if p.EntitlementExpiry != nil {
		expiry = p.EntitlementExpiry.UTC().Format(time.RFC3339Nano)
	}
	return map[string]any{
		"identity_id":        p.IdentityID,
		"display_name":       p.DisplayName,
		"email":              p.Email,
		"level":              p.Level,
		"experience":         p.Experience,
		"experience_ceiling": p.Ceiling,
		"currency":           p.Currency,
		"team":               p.Team,
		"entitlement_expiry": expiry,
		"owned_cosmetics":    p.OwnedCosmetics,
		"active_cosmetic":    p.ActiveCosmetic,
		"updated_at":         p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
