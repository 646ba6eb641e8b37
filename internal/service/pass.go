package service

import (
	"context"
	"fmt"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

// PassStatus returns the magic pass state of the session's profile
func (ss *Session) PassStatus(ctx context.Context) (domain.PassStatus, error) {
	p, err := ss.svc.readProfile(ctx, ss.identityID)
	if err != nil {
		return domain.PassStatus{}, err
	}
	return p.PassStatusAt(ss.svc.now()), nil
}

// ActivatePass redeems a magic pass code. An active pass is never
// re-activated and nothing changes on an unknown code.
func (ss *Session) ActivatePass(ctx context.Context, code string) (domain.PassActivation, error) {
	s := ss.svc
	codes, _, err := store.ReadInto[domain.PassCodes](ctx, s.store, pathPassCodes)
	if err != nil {
		return domain.PassActivation{}, fmt.Errorf("reading pass codes: %w", err)
	}
	table := s.passTable(codes)

	var act domain.PassActivation
	now := s.now()
	_, err = s.updateProfile(ctx, ss.identityID, func(p *domain.UserProfile) error {
		var err error
		act, err = p.ActivateEntitlement(code, table, now)
		return err
	})
	if err != nil {
		return domain.PassActivation{}, err
	}

	s.logger.Info("magic pass activated",
		"identity_id", ss.identityID,
		"label", act.Grant.Label,
		"expires_at", act.ExpiresAt,
	)
	return act, nil
}

// SetPassCodes replaces the stored code table
func (s *SeasonService) SetPassCodes(ctx context.Context, adminID string, codes domain.PassCodes) error {
	if !s.IsAdmin(adminID) {
		return domain.ErrForbidden
	}
	if err := s.store.Write(ctx, pathPassCodes, codes); err != nil {
		return fmt.Errorf("writing pass codes: %w", err)
	}
	return nil
}
