package domain

import (
	"fmt"
	"strings"
	"time"
)

// SubmissionType is the kind of writing sample
type SubmissionType string

const (
	SubmissionSentence  SubmissionType = "sentence"
	SubmissionParagraph SubmissionType = "paragraph"
	SubmissionEssay     SubmissionType = "essay"
)

// ParseSubmissionType validates a submission type
func ParseSubmissionType(s string) (SubmissionType, error) {
	switch t := SubmissionType(strings.ToLower(strings.TrimSpace(s))); t {
	case SubmissionSentence, SubmissionParagraph, SubmissionEssay:
		return t, nil
	default:
		return "", fmt.Errorf("%w: submission type %q", ErrInvalidRequest, s)
	}
}

// Points is an experience/currency pair
type Points struct {
	Experience int64 `json:"experience"`
	Currency   int64 `json:"currency"`
}

// IsZero reports whether both amounts are zero
func (p Points) IsZero() bool {
	return p.Experience == 0 && p.Currency == 0
}

// Submission is a writing sample waiting for, or past, review
type Submission struct {
	ID              string         `json:"id"`
	IdentityID      string         `json:"identity_id"`
	DisplayName     string         `json:"display_name"`
	Type            SubmissionType `json:"type"`
	Text            string         `json:"text"`
	SubmittedAt     time.Time      `json:"submitted_at"`
	Reviewed        bool           `json:"reviewed"`
	AwardedPoints   int64          `json:"awarded_points"`
	AwardedCoins    int64          `json:"awarded_coins"`
	ReviewerComment string         `json:"reviewer_comment"`
	AwardID         string         `json:"award_id,omitempty"`
}

// MarkReviewed records the outcome of a review
func (s *Submission) MarkReviewed(awardID string, pts Points, comment string) error {
	if s.Reviewed {
		return ErrAlreadyReviewed
	}
	s.Reviewed = true
	s.AwardID = awardID
	s.AwardedPoints = pts.Experience
	s.AwardedCoins = pts.Currency
	s.ReviewerComment = comment
	return nil
}

// ClearReview returns the submission to the pending state
func (s *Submission) ClearReview() {
	s.Reviewed = false
	s.AwardID = ""
	s.AwardedPoints = 0
	s.AwardedCoins = 0
	s.ReviewerComment = ""
}
