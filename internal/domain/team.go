package domain

import (
	"fmt"
	"strings"
)

// Side represents which team an identity plays for
type Side string

const (
	SideNone    Side = ""
	SideNice    Side = "nice"
	SideNaughty Side = "naughty"
)

// Sides lists both teams in display order
var Sides = []Side{SideNice, SideNaughty}

// ParseSide validates a side name
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideNice:
		return SideNice, nil
	case SideNaughty:
		return SideNaughty, nil
	default:
		return SideNone, fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// Valid reports whether s names one of the two teams
func (s Side) Valid() bool {
	return s == SideNice || s == SideNaughty
}

// Title returns the display name of the team
func (s Side) Title() string {
	switch s {
	case SideNice:
		return "Nice"
	case SideNaughty:
		return "Naughty"
	default:
		return ""
	}
}

// TeamRecord is the shared progression of one team
type TeamRecord struct {
	Side Side `json:"side"`
	Progress
}

// NewTeamRecord returns the default record for a side
func NewTeamRecord(side Side, startCeiling int64) TeamRecord {
	return TeamRecord{
		Side:     side,
		Progress: NewProgress(startCeiling),
	}
}

// Roster is the list of identities locked into a team
type Roster struct {
	Side    Side     `json:"side"`
	Members []string `json:"members"`
}

// Add appends identityID if it is not already a member
func (r *Roster) Add(identityID string) bool {
	for _, m := range r.Members {
		if m == identityID {
			return false
		}
	}
	r.Members = append(r.Members, identityID)
	return true
}
