package domain

import "time"

// AwardInverse is the delta that undoes an award
type AwardInverse struct {
	RevokeExperience int64 `json:"revoke_experience"`
	RevokeCurrency   int64 `json:"revoke_currency"`
	ReopenSubmission bool  `json:"reopen_submission"`
}

// Award is an admin grant recorded together with its inverse
type Award struct {
	ID           string       `json:"id"`
	AdminID      string       `json:"admin_id"`
	IdentityID   string       `json:"identity_id"`
	SubmissionID string       `json:"submission_id"`
	Points       Points       `json:"points"`
	Comment      string       `json:"comment"`
	Inverse      AwardInverse `json:"inverse"`
	CreatedAt    time.Time    `json:"created_at"`
	UndoDeadline time.Time    `json:"undo_deadline"`
	UndoneAt     *time.Time   `json:"undone_at,omitempty"`
}

// ApplyAward grants pts to the profile and returns the inverse of what was
// actually applied, coin doubling included.
func (p *UserProfile) ApplyAward(pts Points, rules ProfileRules, now time.Time) AwardInverse {
	inv := AwardInverse{ReopenSubmission: true}
	if pts.Experience > 0 {
		p.GrantExperience(pts.Experience, rules)
		inv.RevokeExperience = pts.Experience
	}
	inv.RevokeCurrency = p.GrantCurrency(pts.Currency, p.EntitlementActive(now))
	return inv
}

// RevertAward replays an inverse against the profile
func (p *UserProfile) RevertAward(inv AwardInverse, rules ProfileRules) {
	p.Revoke(inv.RevokeExperience, rules.Growth)
	p.Currency -= inv.RevokeCurrency
	if p.Currency < 0 {
		p.Currency = 0
	}
}

// CanUndo checks whether the award may still be reverted at now
func (a Award) CanUndo(now time.Time) error {
	if a.UndoneAt != nil {
		return ErrAlreadyUndone
	}
	if !now.Before(a.UndoDeadline) {
		return ErrUndoExpired
	}
	return nil
}
