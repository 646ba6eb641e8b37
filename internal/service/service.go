package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/season-tracker/internal/config"
	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

// Store paths, relative to the season prefix
const (
	pathUsers       = "users"
	pathTeams       = "teams"
	pathRosters     = "rosters"
	pathPresence    = "presence"
	pathDaily       = "dailyCraftCounters"
	pathSubmissions = "submissions"
	pathPassCodes   = "magicPassCodes"
	pathTeamBonuses = "teamBonuses"
	pathAwards      = "awards"
	pathRecipes     = "recipes"
)

// Archive receives durable copies of ledger events. Failures are logged and
// never fail the user action.
type Archive interface {
	RecordSubmission(ctx context.Context, sub domain.Submission) error
	RecordAward(ctx context.Context, award domain.Award) error
	RecordAwardUndo(ctx context.Context, awardID string, at time.Time) error
	RecordRewardEvent(ctx context.Context, event domain.RewardEvent, result domain.RewardResult) error
}

// Notifier is told about committed profile changes
type Notifier interface {
	ProfileChanged(profile *domain.UserProfile)
}

// SeasonService implements the progression and rewards ledger on top of a store
type SeasonService struct {
	store    store.Store
	recipes  RecipeCatalog
	archive  Archive
	notifier Notifier
	catalog  *domain.Catalog
	cfg      *config.SeasonConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewSeasonService creates a new season service. archive may be nil.
func NewSeasonService(
	st store.Store,
	recipes RecipeCatalog,
	archive Archive,
	cfg *config.SeasonConfig,
	logger *slog.Logger,
) *SeasonService {
	if recipes == nil {
		recipes = NewStoreRecipeCatalog(st)
	}
	return &SeasonService{
		store:   st,
		recipes: recipes,
		archive: archive,
		catalog: domain.DefaultCatalog(),
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// SetNotifier registers the receiver of profile change notifications
func (s *SeasonService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetClock replaces the time source
func (s *SeasonService) SetClock(now func() time.Time) {
	s.now = now
}

// Catalog returns the cosmetic catalog
func (s *SeasonService) Catalog() *domain.Catalog {
	return s.catalog
}

// Store returns the underlying store
func (s *SeasonService) Store() store.Store {
	return s.store
}

// IsAdmin reports whether identityID may run admin operations
func (s *SeasonService) IsAdmin(identityID string) bool {
	return s.cfg.IsAdmin(identityID)
}

func (s *SeasonService) profileRules() domain.ProfileRules {
	return domain.ProfileRules{
		StartCeiling: s.cfg.Profile.StartCeiling,
		Growth:       s.cfg.Profile.Growth,
	}
}

func (s *SeasonService) dailyLimits() domain.DailyLimits {
	return domain.DailyLimits{
		Base: s.cfg.Crafting.BaseLimit,
		Pass: s.cfg.Crafting.PassLimit,
	}
}

func (s *SeasonService) passTable(codes domain.PassCodes) []domain.PassGrant {
	return codes.Table(domain.PassDurations{
		OneDay:    s.cfg.Pass.OneDay,
		SevenDay:  s.cfg.Pass.SevenDay,
		EventFull: s.cfg.Pass.Event,
	})
}

func userPath(identityID string) string {
	return store.Join(pathUsers, identityID)
}

func teamPath(side domain.Side) string {
	return store.Join(pathTeams, string(side))
}

// readProfile loads and back-fills a profile without writing it
func (s *SeasonService) readProfile(ctx context.Context, identityID string) (*domain.UserProfile, error) {
	p, ok, err := store.ReadInto[domain.UserProfile](ctx, s.store, userPath(identityID))
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", identityID, domain.ErrNotFound)
	}
	p.Backfill(identityID, s.profileRules())
	return &p, nil
}

// updateProfile runs fn on the latest stored profile inside an atomic update.
// fn may run several times and must only touch the profile it is given.
func (s *SeasonService) updateProfile(ctx context.Context, identityID string, fn func(p *domain.UserProfile) error) (*domain.UserProfile, error) {
	rules := s.profileRules()
	p, err := store.Update(ctx, s.store, userPath(identityID), func(p *domain.UserProfile, exists bool) error {
		if !exists {
			return fmt.Errorf("profile %s: %w", identityID, domain.ErrNotFound)
		}
		p.Backfill(identityID, rules)
		if err := fn(p); err != nil {
			return err
		}
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyProfile(&p)
	return &p, nil
}

// Persist merges the full persisted projection of a profile
func (s *SeasonService) Persist(ctx context.Context, p *domain.UserProfile) error {
	if err := s.store.Merge(ctx, userPath(p.IdentityID), p.Fields()); err != nil {
		return fmt.Errorf("persisting profile: %w", err)
	}
	s.notifyProfile(p)
	return nil
}

func (s *SeasonService) notifyProfile(p *domain.UserProfile) {
	if s.notifier != nil {
		s.notifier.ProfileChanged(p)
	}
}

// archiveWarn logs archive failures without failing the caller
func (s *SeasonService) archiveWarn(what string, err error, args ...any) {
	if err == nil {
		return
	}
	s.logger.Warn("failed to archive "+what, append(args, "error", err)...)
}

func requireIdentity(identityID string) error {
	if identityID == "" {
		return fmt.Errorf("%w: missing identity", domain.ErrInvalidRequest)
	}
	return nil
}
