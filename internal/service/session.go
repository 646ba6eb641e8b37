package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

// Session scopes ledger operations to one identity. It carries no cached
// profile state; every call works on the latest stored profile.
type Session struct {
	svc        *SeasonService
	identityID string
}

// For returns the session of identityID
func (s *SeasonService) For(identityID string) *Session {
	return &Session{svc: s, identityID: identityID}
}

// IdentityID returns the identity the session acts for
func (ss *Session) IdentityID() string {
	return ss.identityID
}

// LockResult reports the outcome of a team choice
type LockResult struct {
	Applied bool        `json:"applied"`
	Team    domain.Side `json:"team"`
}

// Start loads or creates the profile, back-fills missing fields, persists the
// full projection and marks the identity online
func (ss *Session) Start(ctx context.Context, displayName, email string) (*domain.UserProfile, error) {
	if err := requireIdentity(ss.identityID); err != nil {
		return nil, err
	}
	s := ss.svc
	rules := s.profileRules()

	p, ok, err := store.ReadInto[domain.UserProfile](ctx, s.store, userPath(ss.identityID))
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	profile := &p
	if !ok {
		profile = domain.NewUserProfile(ss.identityID, rules)
	} else {
		profile.Backfill(ss.identityID, rules)
	}
	if name := strings.TrimSpace(displayName); name != "" {
		profile.DisplayName = name
	}
	if mail := strings.TrimSpace(email); mail != "" {
		profile.Email = mail
	}
	profile.UpdatedAt = s.now().UTC()

	if !ok {
		if err := s.store.Write(ctx, userPath(ss.identityID), profile); err != nil {
			return nil, fmt.Errorf("creating profile: %w", err)
		}
		s.notifyProfile(profile)
		s.logger.Info("profile created", "identity_id", ss.identityID)
	} else if err := s.Persist(ctx, profile); err != nil {
		return nil, err
	}

	if err := ss.setPresence(ctx, true); err != nil {
		return nil, err
	}
	return profile, nil
}

// End marks the identity offline
func (ss *Session) End(ctx context.Context) error {
	if err := requireIdentity(ss.identityID); err != nil {
		return err
	}
	return ss.setPresence(ctx, false)
}

func (ss *Session) setPresence(ctx context.Context, online bool) error {
	presence := domain.Presence{Online: online, LastSeen: ss.svc.now().UTC()}
	if err := ss.svc.store.Write(ctx, store.Join(pathPresence, ss.identityID), presence); err != nil {
		return fmt.Errorf("writing presence: %w", err)
	}
	return nil
}

// Profile returns the current profile
func (ss *Session) Profile(ctx context.Context) (*domain.UserProfile, error) {
	return ss.svc.readProfile(ctx, ss.identityID)
}

// LockTeam chooses a team once. A second call never changes the team and
// reports Applied=false.
func (ss *Session) LockTeam(ctx context.Context, side domain.Side) (LockResult, error) {
	if !side.Valid() {
		return LockResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidSide, side)
	}
	s := ss.svc

	var applied bool
	p, err := s.updateProfile(ctx, ss.identityID, func(p *domain.UserProfile) error {
		applied = p.LockTeamOnce(side)
		return nil
	})
	if err != nil {
		return LockResult{}, fmt.Errorf("locking team: %w", err)
	}
	if !applied {
		return LockResult{Applied: false, Team: p.Team}, nil
	}

	if _, err := store.Update(ctx, s.store, store.Join(pathRosters, string(side)), func(r *domain.Roster, exists bool) error {
		r.Side = side
		r.Add(ss.identityID)
		return nil
	}); err != nil {
		return LockResult{}, fmt.Errorf("adding to roster: %w", err)
	}

	s.logger.Info("team locked", "identity_id", ss.identityID, "side", side)
	return LockResult{Applied: true, Team: side}, nil
}
