package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/season-tracker/internal/domain"
	"github.com/season-tracker/internal/store"
)

func submissionPath(identityID, submissionID string) string {
	return store.Join(pathSubmissions, identityID, submissionID)
}

// Submit stores a writing sample for review
func (ss *Session) Submit(ctx context.Context, kind domain.SubmissionType, text string) (domain.Submission, error) {
	s := ss.svc
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Submission{}, fmt.Errorf("%w: empty submission", domain.ErrInvalidRequest)
	}
	p, err := s.readProfile(ctx, ss.identityID)
	if err != nil {
		return domain.Submission{}, err
	}

	sub := domain.Submission{
		ID:          uuid.New().String(),
		IdentityID:  ss.identityID,
		DisplayName: p.DisplayName,
		Type:        kind,
		Text:        text,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.store.Write(ctx, submissionPath(ss.identityID, sub.ID), sub); err != nil {
		return domain.Submission{}, fmt.Errorf("saving submission: %w", err)
	}
	if s.archive != nil {
		s.archiveWarn("submission", s.archive.RecordSubmission(ctx, sub), "submission_id", sub.ID)
	}

	s.logger.Info("submission received", "identity_id", ss.identityID, "type", kind)
	return sub, nil
}

// Submissions lists the session's own submissions, newest first
func (ss *Session) Submissions(ctx context.Context) ([]domain.Submission, error) {
	return ss.svc.listSubmissions(ctx, ss.identityID)
}

// SubmissionsFor lets an admin list an identity's submissions
func (s *SeasonService) SubmissionsFor(ctx context.Context, adminID, identityID string) ([]domain.Submission, error) {
	if !s.IsAdmin(adminID) {
		return nil, domain.ErrForbidden
	}
	return s.listSubmissions(ctx, identityID)
}

func (s *SeasonService) listSubmissions(ctx context.Context, identityID string) ([]domain.Submission, error) {
	docs, err := s.store.List(ctx, store.Join(pathSubmissions, identityID))
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	out := make([]domain.Submission, 0, len(docs))
	for id, raw := range docs {
		var sub domain.Submission
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("decoding submission %s: %w", id, err)
		}
		sub.ID = id
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// AwardRequest is an admin's grant for one submission
type AwardRequest struct {
	IdentityID   string
	SubmissionID string
	Points       domain.Points
	Comment      string
}

// Award grants points for a submission and records the inverse so the grant
// can be undone within the undo window. Zero points fall back to the default
// table for the submission type.
func (s *SeasonService) Award(ctx context.Context, adminID string, req AwardRequest) (domain.Award, error) {
	if !s.IsAdmin(adminID) {
		return domain.Award{}, domain.ErrForbidden
	}
	now := s.now().UTC()
	awardID := uuid.New().String()
	path := submissionPath(req.IdentityID, req.SubmissionID)

	pts := req.Points
	if pts.Experience < 0 || pts.Currency < 0 {
		return domain.Award{}, fmt.Errorf("%w: negative points", domain.ErrInvalidRequest)
	}

	// claim the submission first so two reviewers cannot both award it
	_, err := store.Update(ctx, s.store, path, func(sub *domain.Submission, exists bool) error {
		if !exists {
			return fmt.Errorf("submission %s: %w", req.SubmissionID, domain.ErrNotFound)
		}
		if pts.IsZero() {
			def := s.cfg.Rewards.Submissions[string(sub.Type)]
			pts = domain.Points{Experience: def.XP, Currency: def.Coins}
		}
		return sub.MarkReviewed(awardID, pts, req.Comment)
	})
	if err != nil {
		return domain.Award{}, err
	}

	var inv domain.AwardInverse
	_, err = s.updateProfile(ctx, req.IdentityID, func(p *domain.UserProfile) error {
		inv = p.ApplyAward(pts, s.profileRules(), now)
		return nil
	})
	if err != nil {
		s.reopenSubmission(ctx, path, awardID)
		return domain.Award{}, fmt.Errorf("applying award: %w", err)
	}

	award := domain.Award{
		ID:           awardID,
		AdminID:      adminID,
		IdentityID:   req.IdentityID,
		SubmissionID: req.SubmissionID,
		Points:       pts,
		Comment:      req.Comment,
		Inverse:      inv,
		CreatedAt:    now,
		UndoDeadline: now.Add(s.cfg.AwardUndoWindow),
	}
	if err := s.store.Write(ctx, store.Join(pathAwards, awardID), award); err != nil {
		return domain.Award{}, fmt.Errorf("recording award: %w", err)
	}
	if s.archive != nil {
		s.archiveWarn("award", s.archive.RecordAward(ctx, award), "award_id", awardID)
	}

	s.logger.Info("award granted",
		"award_id", awardID,
		"admin_id", adminID,
		"identity_id", req.IdentityID,
		"experience", pts.Experience,
		"currency", inv.RevokeCurrency,
	)
	return award, nil
}

// UndoAward replays an award's inverse while the undo window is open
func (s *SeasonService) UndoAward(ctx context.Context, adminID, awardID string) (domain.Award, error) {
	if !s.IsAdmin(adminID) {
		return domain.Award{}, domain.ErrForbidden
	}
	now := s.now().UTC()

	award, err := store.Update(ctx, s.store, store.Join(pathAwards, awardID), func(a *domain.Award, exists bool) error {
		if !exists {
			return fmt.Errorf("award %s: %w", awardID, domain.ErrNotFound)
		}
		if err := a.CanUndo(now); err != nil {
			return err
		}
		a.UndoneAt = &now
		return nil
	})
	if err != nil {
		return domain.Award{}, err
	}

	rules := s.profileRules()
	if _, err := s.updateProfile(ctx, award.IdentityID, func(p *domain.UserProfile) error {
		p.RevertAward(award.Inverse, rules)
		return nil
	}); err != nil {
		return domain.Award{}, fmt.Errorf("reverting award: %w", err)
	}

	if award.Inverse.ReopenSubmission {
		s.reopenSubmission(ctx, submissionPath(award.IdentityID, award.SubmissionID), awardID)
	}
	if s.archive != nil {
		s.archiveWarn("award undo", s.archive.RecordAwardUndo(ctx, awardID, now), "award_id", awardID)
	}

	s.logger.Info("award undone", "award_id", awardID, "admin_id", adminID)
	return award, nil
}

// reopenSubmission clears the review left by awardID
func (s *SeasonService) reopenSubmission(ctx context.Context, path, awardID string) {
	_, err := store.Update(ctx, s.store, path, func(sub *domain.Submission, exists bool) error {
		if !exists {
			return domain.ErrNotFound
		}
		if sub.AwardID == awardID {
			sub.ClearReview()
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to reopen submission", "path", path, "award_id", awardID, "error", err)
	}
}
