package domain

// Progress is the level/experience triple shared by user profiles and team records.
// After any mutation 0 <= Experience < Ceiling holds.
type Progress struct {
	Level      int   `json:"level"`
	Experience int64 `json:"experience"`
	Ceiling    int64 `json:"experience_ceiling"`
}

// NewProgress returns level 1 with no experience and the given first ceiling.
func NewProgress(ceiling int64) Progress {
	return Progress{Level: 1, Ceiling: ceiling}
}

// Rollover adds amount to experience and converts every full ceiling into a level.
// Each level-up raises the ceiling by growth. It returns the number of levels gained.
func (p *Progress) Rollover(amount, growth int64) int {
	if amount < 0 {
		return 0
	}
	if growth < 0 {
		growth = 0
	}
	if p.Level < 1 {
		p.Level = 1
	}
	// a non-positive ceiling would never terminate
	if p.Ceiling <= 0 {
		p.Ceiling = 1
	}

	p.Experience += amount
	gained := 0
	for p.Experience >= p.Ceiling {
		p.Experience -= p.Ceiling
		p.Level++
		p.Ceiling += growth
		gained++
	}
	return gained
}

// Revoke is the inverse of Rollover for the same growth: it removes amount and
// walks levels back down while experience is negative. Experience never drops
// below zero at level 1. It returns the number of levels lost.
func (p *Progress) Revoke(amount, growth int64) int {
	if amount <= 0 {
		return 0
	}
	if growth < 0 {
		growth = 0
	}

	p.Experience -= amount
	lost := 0
	for p.Experience < 0 && p.Level > 1 && p.Ceiling-growth > 0 {
		p.Level--
		p.Ceiling -= growth
		p.Experience += p.Ceiling
		lost++
	}
	if p.Experience < 0 {
		p.Experience = 0
	}
	return lost
}

// Valid reports whether the triple satisfies its invariants.
func (p Progress) Valid() bool {
	return p.Level >= 1 && p.Ceiling > 0 && p.Experience >= 0 && p.Experience < p.Ceiling
}

// Percent returns progress toward the next level in [0, 100].
func (p Progress) Percent() float64 {
	if p.Ceiling <= 0 {
		return 0
	}
	pct := float64(p.Experience) / float64(p.Ceiling) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
