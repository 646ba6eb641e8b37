package domain

import "time"

// DefaultAnchorOffset is the fixed UTC offset (UTC+6:30) that defines "today"
const DefaultAnchorOffset = 6*time.Hour + 30*time.Minute

const anchoredDateLayout = "2006-01-02"

// DailyCounter counts metered actions for one anchored calendar date
type DailyCounter struct {
	AnchoredDate string `json:"anchored_date"`
	Count        int    `json:"count"`
}

// DailyLimits holds the per-day allowance with and without a magic pass
type DailyLimits struct {
	Base int
	Pass int
}

// AnchoredDate returns the calendar date of now shifted by offset
func AnchoredDate(now time.Time, offset time.Duration) string {
	return now.UTC().Add(offset).Format(anchoredDateLayout)
}

// LoadOrReset returns stored when it belongs to today, otherwise a fresh
// counter. The bool is true when a reset happened and must be persisted.
func LoadOrReset(stored *DailyCounter, now time.Time, offset time.Duration) (DailyCounter, bool) {
	today := AnchoredDate(now, offset)
	if stored == nil || stored.AnchoredDate != today || stored.Count < 0 {
		return DailyCounter{AnchoredDate: today}, true
	}
	return *stored, false
}

// For returns the limit for the entitlement state
func (l DailyLimits) For(entitlementActive bool) int {
	if entitlementActive {
		return l.Pass
	}
	return l.Base
}

// TryConsume takes one unit if the count is below limit
func (c DailyCounter) TryConsume(limit int) (DailyCounter, bool) {
	if c.Count >= limit {
		return c, false
	}
	c.Count++
	return c, true
}

// Remaining returns how many units are left under limit
func (c DailyCounter) Remaining(limit int) int {
	if r := limit - c.Count; r > 0 {
		return r
	}
	return 0
}
