package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"skillforge/internal/challenge/repository"
	pkgerrors "skillforge/pkg/errors"
	pkgrepo "skillforge/pkg/repository"

	"github.com/google/uuid"
)

const maxChallengeTags = 10

// ChallengeService handles challenge creation and queries.
type ChallengeService struct {
	repo repository.ChallengeRepository
}

// NewChallengeService creates a new ChallengeService.
func NewChallengeService(repo repository.ChallengeRepository) *ChallengeService {
	return &ChallengeService{repo: repo}
}

// CreateInput describes a challenge creation request.
type CreateInput struct {
	CompanyID   string
	Title       string
	Description string
	Tags        []string
	Deadline    *time.Time
}

// ListQuery describes challenge listing filters and pagination.
type ListQuery struct {
	CompanyID string
	Status    string
	Page      int
	Limit     int
	SortBy    string
	SortDesc  bool
}

// Create posts a new open challenge owned by a company.
func (s *ChallengeService) Create(ctx context.Context, input CreateInput) (*repository.Challenge, error) {
	if input.CompanyID == "" {
		return nil, pkgerrors.ValidationError("company_id", "required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.ValidationError("title", "required")
	}
	if len(input.Tags) > maxChallengeTags {
		return nil, pkgerrors.ValidationError("tags", "too_many")
	}
	if input.Deadline != nil && input.Deadline.Before(time.Now()) {
		return nil, pkgerrors.ValidationError("deadline", "in_the_past")
	}

	challenge := &repository.Challenge{
		ChallengeID: uuid.NewString(),
		CompanyID:   input.CompanyID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Tags:        input.Tags,
		Deadline:    input.Deadline,
		Status:      repository.ChallengeStatusOpen,
	}
	if err := s.repo.Create(ctx, nil, challenge); err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.ChallengeCreateFailed, "create challenge failed")
	}
	return challenge, nil
}

// GetByID returns one challenge.
func (s *ChallengeService) GetByID(ctx context.Context, challengeID string) (*repository.Challenge, error) {
	if challengeID == "" {
		return nil, pkgerrors.ValidationError("challenge_id", "required")
	}
	challenge, err := s.repo.GetByID(ctx, nil, challengeID)
	if err != nil {
		if errors.Is(err, pkgrepo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.ChallengeNotFound)
		}
		return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "get challenge failed")
	}
	return challenge, nil
}

// List returns a page of challenges.
func (s *ChallengeService) List(ctx context.Context, query ListQuery) (*pkgrepo.PaginationResult[repository.Challenge], error) {
	opts := pkgrepo.ListOptions{}
	opts.SetPagination(query.Page, query.Limit)
	if query.SortBy != "" {
		opts.SetSort(query.SortBy, query.SortDesc)
	} else {
		opts.SetSort("created_at", true)
	}
	if query.CompanyID != "" {
		opts.AddFilter("company_id", query.CompanyID)
	}
	if query.Status != "" {
		switch repository.ChallengeStatus(query.Status) {
		case repository.ChallengeStatusOpen, repository.ChallengeStatusClosed:
		default:
			return nil, pkgerrors.ValidationError("status", "unknown")
		}
		opts.AddFilter("status", query.Status)
	}

	challenges, total, err := s.repo.List(ctx, nil, opts)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "list challenges failed")
	}
	return pkgrepo.NewPaginationResult(challenges, total, opts), nil
}
