package domain

import (
	"fmt"
	"strings"
	"time"
)

// PassGrant is one entry of the magic pass code table
type PassGrant struct {
	Code     string        `json:"-"`
	Duration time.Duration `json:"duration"`
	Label    string        `json:"label"`
}

// PassActivation is returned after a successful activation
type PassActivation struct {
	Grant     PassGrant `json:"grant"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PassStatus summarises the entitlement at a point in time
type PassStatus struct {
	Active    bool          `json:"active"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	Remaining time.Duration `json:"remaining"`
	Label     string        `json:"label"`
}

// EntitlementActive is true iff the expiry is strictly after now
func (p *UserProfile) EntitlementActive(now time.Time) bool {
	return p.EntitlementExpiry != nil && p.EntitlementExpiry.After(now)
}

// ExtendEntitlement adds d to the expiry, stacking on any unused time
func (p *UserProfile) ExtendEntitlement(d time.Duration, now time.Time) time.Time {
	base := now
	if p.EntitlementActive(now) {
		base = *p.EntitlementExpiry
	}
	expiry := base.Add(d).UTC()
	p.EntitlementExpiry = &expiry
	return expiry
}

// ActivateEntitlement matches the supplied code against the table and extends
// the entitlement. An active pass is never re-activated.
func (p *UserProfile) ActivateEntitlement(supplied string, table []PassGrant, now time.Time) (PassActivation, error) {
	if p.EntitlementActive(now) {
		return PassActivation{}, ErrAlreadyActive
	}

	code := strings.TrimSpace(supplied)
	if code == "" {
		return PassActivation{}, ErrInvalidCode
	}

	for _, g := range table {
		if g.Code == "" || g.Code != code || g.Duration <= 0 {
			continue
		}
		expiry := p.ExtendEntitlement(g.Duration, now)
		return PassActivation{Grant: g, ExpiresAt: expiry}, nil
	}
	return PassActivation{}, ErrInvalidCode
}

// PassStatusAt reports the entitlement state at now
func (p *UserProfile) PassStatusAt(now time.Time) PassStatus {
	if !p.EntitlementActive(now) {
		return PassStatus{Label: "locked", ExpiresAt: p.EntitlementExpiry}
	}
	remaining := p.EntitlementExpiry.Sub(now)
	return PassStatus{
		Active:    true,
		ExpiresAt: p.EntitlementExpiry,
		Remaining: remaining,
		Label:     FormatRemaining(remaining),
	}
}

// FormatRemaining renders a duration as "2d 3h 4m"
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}

	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 {
		return "less than 1m"
	}
	return strings.Join(parts, " ")
}

// PassCodes is the stored magicPassCodes document
type PassCodes struct {
	OneDay    string `json:"one_day"`
	SevenDay  string `json:"seven_day"`
	EventFull string `json:"event_full"`
}

// PassDurations are the grant lengths per code kind
type PassDurations struct {
	OneDay    time.Duration
	SevenDay  time.Duration
	EventFull time.Duration
}

// Table pairs each stored code with its duration and label
func (c PassCodes) Table(d PassDurations) []PassGrant {
	return []PassGrant{
		{Code: strings.TrimSpace(c.OneDay), Duration: d.OneDay, Label: "1 day"},
		{Code: strings.TrimSpace(c.SevenDay), Duration: d.SevenDay, Label: "7 days"},
		{Code: strings.TrimSpace(c.EventFull), Duration: d.EventFull, Label: "the entire event"},
	}
}
