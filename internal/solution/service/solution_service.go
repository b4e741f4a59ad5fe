package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	challengerepo "skillforge/internal/challenge/repository"
	"skillforge/internal/common/cache"
	"skillforge/internal/common/db"
	"skillforge/internal/common/mq"
	"skillforge/internal/common/storage"
	identityrepo "skillforge/internal/identity/repository"
	"skillforge/internal/solution/repository"
	"skillforge/pkg/errors"
	pkgrepo "skillforge/pkg/repository"
	"skillforge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxTitleLength       = 200
	maxDescriptionBytes  = 64 * 1024
	maxTags              = 10
	minScore             = 0
	maxScore             = 100
	defaultSubmitLimit   = 10
	defaultSubmitWindow  = time.Minute
	defaultIdempotentTTL = 24 * time.Hour
)

// Config carries the dependencies of the SolutionService.
type Config struct {
	DB         db.Provider
	Solutions  repository.SolutionRepository
	Challenges challengerepo.ChallengeRepository

	// Optional: rate limiting and submit idempotency are skipped when nil.
	Cache cache.Cache

	// Optional: lifecycle events are skipped when nil.
	Producer   mq.Producer
	EventTopic string

	// Optional: content snapshots are skipped when nil. ArchiveTTL bounds
	// presigned snapshot download URLs.
	Storage       storage.ObjectStorage
	ArchiveBucket string
	ArchiveTTL    time.Duration

	// SubmitLimit caps submissions per student per SubmitWindow. Zero values
	// fall back to the defaults.
	SubmitLimit  int
	SubmitWindow time.Duration
}

// SolutionService owns the solution lifecycle: submission, content edits,
// claiming, review, and winner selection. It is stateless between calls; all
// state lives in the store, and every transition is a conditional write.
type SolutionService struct {
	dbProvider db.Provider
	solutions  repository.SolutionRepository
	challenges challengerepo.ChallengeRepository
	cache      cache.Cache
	events     *eventPublisher
	archiver   *contentArchiver

	submitLimit  int
	submitWindow time.Duration
}

// NewSolutionService creates the lifecycle service from its dependencies.
func NewSolutionService(cfg Config) (*SolutionService, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("db provider is required")
	}
	if cfg.Solutions == nil {
		return nil, fmt.Errorf("solution repository is required")
	}
	if cfg.Challenges == nil {
		return nil, fmt.Errorf("challenge repository is required")
	}
	if cfg.SubmitLimit <= 0 {
		cfg.SubmitLimit = defaultSubmitLimit
	}
	if cfg.SubmitWindow <= 0 {
		cfg.SubmitWindow = defaultSubmitWindow
	}

	return &SolutionService{
		dbProvider:   cfg.DB,
		solutions:    cfg.Solutions,
		challenges:   cfg.Challenges,
		cache:        cfg.Cache,
		events:       newEventPublisher(cfg.Producer, cfg.EventTopic),
		archiver:     newContentArchiver(cfg.Storage, cfg.ArchiveBucket, cfg.ArchiveTTL),
		submitLimit:  cfg.SubmitLimit,
		submitWindow: cfg.SubmitWindow,
	}, nil
}

// Viewer is the already-resolved acting identity for read paths.
type Viewer struct {
	ProfileID string
	Role      identityrepo.Role
}

// SubmitInput carries the fields for a new submission.
type SubmitInput struct {
	StudentID     string
	ChallengeID   string
	Title         string
	Description   string
	SubmissionURL string
	Tags          []string

	// IdempotencyKey deduplicates retried submissions. Optional.
	IdempotencyKey string
}

// UpdateInput carries a partial content edit. Nil fields are left unchanged.
type UpdateInput struct {
	SolutionID    string
	StudentID     string
	Title         *string
	Description   *string
	SubmissionURL *string
	Tags          []string
}

// ReviewInput carries an approve/reject decision.
type ReviewInput struct {
	SolutionID  string
	ArchitectID string
	Outcome     string
	Feedback    string
	Score       *int
}

// SelectInput carries a winner selection.
type SelectInput struct {
	SolutionID      string
	CompanyID       string
	CompanyFeedback string
	SelectionReason string
}

// ListQuery carries filtering, sorting and pagination for list reads.
type ListQuery struct {
	Status   string
	Page     int
	Limit    int
	SortBy   string
	SortDesc bool
}

// Submit creates a solution in submitted state against an open challenge.
func (s *SolutionService) Submit(ctx context.Context, input SubmitInput) (*repository.Solution, error) {
	if input.StudentID == "" {
		return nil, errors.ValidationError("studentId", "required")
	}
	if input.ChallengeID == "" {
		return nil, errors.ValidationError("challengeId", "required")
	}
	if err := validateContent(input.Title, input.Description, input.SubmissionURL, input.Tags, true); err != nil {
		return nil, err
	}

	challenge, err := s.challenges.GetByID(ctx, nil, input.ChallengeID)
	if err != nil {
		if pkgrepo.IsNotFoundError(err) {
			return nil, errors.New(errors.ChallengeNotFound)
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	if challenge.Status != challengerepo.ChallengeStatusOpen {
		return nil, errors.New(errors.ChallengeClosed)
	}
	if challenge.Deadline != nil && time.Now().After(*challenge.Deadline) {
		return nil, errors.New(errors.ChallengeClosed).WithMessage("Challenge deadline has passed")
	}

	if existing, done, err := s.checkIdempotency(ctx, input); done {
		return existing, err
	}

	if err := s.checkSubmitRate(ctx, input.StudentID); err != nil {
		return nil, err
	}

	solution := &repository.Solution{
		SolutionID:    uuid.NewString(),
		ChallengeID:   input.ChallengeID,
		StudentID:     input.StudentID,
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		SubmissionURL: input.SubmissionURL,
		Tags:          input.Tags,
		Status:        repository.StatusSubmitted,
		Revision:      1,
	}
	if err := s.solutions.Create(ctx, nil, solution); err != nil {
		return nil, errors.Wrap(err, errors.SolutionCreateFailed)
	}

	s.rememberIdempotency(ctx, input, solution.SolutionID)
	s.archiver.snapshot(ctx, solution)
	s.events.publish(ctx, StatusEvent{
		SolutionID:  solution.SolutionID,
		ChallengeID: solution.ChallengeID,
		ActorID:     input.StudentID,
		ToStatus:    repository.StatusSubmitted,
	})
	logger.Info(ctx, "solution submitted",
		zap.String("solution_id", solution.SolutionID),
		zap.String("challenge_id", solution.ChallengeID),
	)

	return s.reload(ctx, solution.SolutionID, solution)
}

// Update applies a partial content edit. Only the owning student may edit, and
// only while the solution is still submitted.
func (s *SolutionService) Update(ctx context.Context, input UpdateInput) (*repository.Solution, error) {
	if input.SolutionID == "" {
		return nil, errors.ValidationError("solutionId", "required")
	}
	if input.StudentID == "" {
		return nil, errors.ValidationError("studentId", "required")
	}

	patch := repository.ContentPatch{
		Title:         input.Title,
		Description:   input.Description,
		SubmissionURL: input.SubmissionURL,
		Tags:          input.Tags,
	}
	if patch.Empty() {
		solution, err := s.fetch(ctx, input.SolutionID)
		if err != nil {
			return nil, err
		}
		if solution.StudentID != input.StudentID {
			return nil, errors.New(errors.NotSolutionOwner)
		}
		return solution, nil
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	err := s.solutions.UpdateContent(ctx, nil, input.SolutionID, input.StudentID, patch)
	if err != nil {
		if pkgrepo.IsNotFoundError(err) {
			return nil, errors.New(errors.SolutionNotFound)
		}
		if pkgrepo.IsConflictError(err) {
			return nil, s.classifyUpdateConflict(ctx, input.SolutionID, input.StudentID)
		}
		return nil, errors.Wrap(err, errors.SolutionUpdateFailed)
	}

	solution, err := s.fetch(ctx, input.SolutionID)
	if err != nil {
		return nil, err
	}
	s.archiver.snapshot(ctx, solution)
	return solution, nil
}

// ClaimForReview moves submitted -> claimed and binds the architect as the
// exclusive reviewer. Exactly one of any set of concurrent claimants wins.
func (s *SolutionService) ClaimForReview(ctx context.Context, solutionID, architectID string) (*repository.Solution, error) {
	if solutionID == "" {
		return nil, errors.ValidationError("solutionId", "required")
	}
	if architectID == "" {
		return nil, errors.ValidationError("architectId", "required")
	}

	err := s.solutions.Claim(ctx, nil, solutionID, architectID)
	if err != nil {
		if pkgrepo.IsNotFoundError(err) {
			return nil, errors.New(errors.SolutionNotFound)
		}
		if pkgrepo.IsConflictError(err) {
			return nil, s.classifyClaimConflict(ctx, solutionID)
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}

	solution, err := s.fetch(ctx, solutionID)
	if err != nil {
		return nil, err
	}
	s.events.publish(ctx, StatusEvent{
		SolutionID:  solutionID,
		ChallengeID: solution.ChallengeID,
		ActorID:     architectID,
		FromStatus:  repository.StatusSubmitted,
		ToStatus:    repository.StatusClaimed,
	})
	logger.Info(ctx, "solution claimed",
		zap.String("solution_id", solutionID),
		zap.String("reviewer_id", architectID),
	)
	return solution, nil
}

// Review moves claimed -> approved|rejected. Only the bound reviewer may
// decide, and an approval requires a score within range.
func (s *SolutionService) Review(ctx context.Context, input ReviewInput) (*repository.Solution, error) {
	if input.SolutionID == "" {
		return nil, errors.ValidationError("solutionId", "required")
	}
	if input.ArchitectID == "" {
		return nil, errors.ValidationError("architectId", "required")
	}

	outcome, ok := repository.ParseStatus(strings.ToLower(input.Outcome))
	if !ok || (outcome != repository.StatusApproved && outcome != repository.StatusRejected) {
		return nil, errors.New(errors.ReviewOutcomeWrong)
	}
	if strings.TrimSpace(input.Feedback) == "" {
		return nil, errors.ValidationError("feedback", "required")
	}
	if outcome == repository.StatusApproved {
		if input.Score == nil {
			return nil, errors.New(errors.ScoreOutOfRange).WithMessage("Score is required when approving")
		}
		if *input.Score < minScore || *input.Score > maxScore {
			return nil, errors.New(errors.ScoreOutOfRange)
		}
	}

	update := repository.ReviewUpdate{
		Outcome:  outcome,
		Feedback: input.Feedback,
		Score:    input.Score,
	}
	err := s.solutions.Review(ctx, nil, input.SolutionID, input.ArchitectID, update)
	if err != nil {
		if pkgrepo.IsNotFoundError(err) {
			return nil, errors.New(errors.SolutionNotFound)
		}
		if pkgrepo.IsConflictError(err) {
			return nil, s.classifyReviewConflict(ctx, input.SolutionID, input.ArchitectID)
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}

	solution, err := s.fetch(ctx, input.SolutionID)
	if err != nil {
		return nil, err
	}
	s.archiver.snapshot(ctx, solution)
	s.events.publish(ctx, StatusEvent{
		SolutionID:  input.SolutionID,
		ChallengeID: solution.ChallengeID,
		ActorID:     input.ArchitectID,
		FromStatus:  repository.StatusClaimed,
		ToStatus:    outcome,
	})
	logger.Info(ctx, "solution reviewed",
		zap.String("solution_id", input.SolutionID),
		zap.String("outcome", string(outcome)),
	)
	return solution, nil
}

// SelectAsWinner moves approved -> selected, fills the challenge's single
// winner slot, and closes the challenge. Sibling approved solutions keep
// their approved status. Both writes happen in one transaction.
func (s *SolutionService) SelectAsWinner(ctx context.Context, input SelectInput) (*repository.Solution, error) {
	if input.SolutionID == "" {
		return nil, errors.ValidationError("solutionId", "required")
	}
	if input.CompanyID == "" {
		return nil, errors.ValidationError("companyId", "required")
	}

	solution, err := s.fetch(ctx, input.SolutionID)
	if err != nil {
		return nil, err
	}

	challenge, err := s.challenges.GetByID(ctx, nil, solution.ChallengeID)
	if err != nil {
		if pkgrepo.IsNotFoundError(err) {
			return nil, errors.New(errors.ChallengeNotFound)
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	if challenge.CompanyID != input.CompanyID {
		return nil, errors.New(errors.ChallengeAccessDenied)
	}

	database, err := db.CurrentDatabase(s.dbProvider)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}

	var selectErr error
	err = database.Transaction(ctx, func(tx db.Transaction) error {
		if err := s.challenges.SetWinner(ctx, tx, challenge.ChallengeID, input.SolutionID); err != nil {
			if pkgrepo.IsConflictError(err) {
				selectErr = errors.New(errors.WinnerAlreadySelected)
				return selectErr
			}
			return err
		}
		update := repository.SelectionUpdate{
			CompanyFeedback: input.CompanyFeedback,
			SelectionReason: input.SelectionReason,
		}
		if err := s.solutions.Select(ctx, tx, input.SolutionID, update); err != nil {
			if pkgrepo.IsNotFoundError(err) {
				selectErr = errors.New(errors.SolutionNotFound)
				return selectErr
			}
			if pkgrepo.IsConflictError(err) {
				selectErr = s.classifySelectConflict(ctx, tx, input.SolutionID)
				return selectErr
			}
			return err
		}
		return nil
	})
	if err != nil {
		if selectErr != nil {
			return nil, selectErr
		}
		return nil, errors.Wrap(err, errors.TransactionFailed)
	}

	selected, err := s.fetch(ctx, input.SolutionID)
	if err != nil {
		return nil, err
	}
	s.archiver.snapshot(ctx, selected)
	s.events.publish(ctx, StatusEvent{
		SolutionID:  input.SolutionID,
		ChallengeID: challenge.ChallengeID,
		ActorID:     input.CompanyID,
		FromStatus:  repository.StatusApproved,
		ToStatus:    repository.StatusSelected,
	})
	logger.Info(ctx, "winner selected",
		zap.String("solution_id", input.SolutionID),
		zap.String("challenge_id", challenge.ChallengeID),
	)
	return selected, nil
}

// GetByID fetches one solution, enforcing the viewer's visibility rule:
// students see only their own, companies see solutions to challenges they
// own, architects and admins see any.
func (s *SolutionService) GetByID(ctx context.Context, solutionID string, viewer Viewer) (*repository.Solution, error) {
	if solutionID == "" {
		return nil, errors.ValidationError("solutionId", "required")
	}

	solution, err := s.fetch(ctx, solutionID)
	if err != nil {
		return nil, err
	}

	switch viewer.Role {
	case identityrepo.RoleAdmin, identityrepo.RoleArchitect:
		return solution, nil
	case identityrepo.RoleStudent:
		if solution.StudentID != viewer.ProfileID {
			return nil, errors.New(errors.NotSolutionOwner)
		}
		return solution, nil
	case identityrepo.RoleCompany:
		if err := s.requireChallengeOwner(ctx, solution.ChallengeID, viewer.ProfileID); err != nil {
			return nil, err
		}
		return solution, nil
	default:
		return nil, errors.New(errors.RoleNotAllowed)
	}
}

// ArchiveDownloadURL returns a presigned download URL for the latest archived
// snapshot of a solution. Visibility follows the same rules as GetByID.
func (s *SolutionService) ArchiveDownloadURL(ctx context.Context, solutionID string, viewer Viewer) (string, error) {
	if !s.archiver.enabled() {
		return "", errors.New(errors.NotFound).WithMessage("Content archive is not enabled")
	}
	solution, err := s.GetByID(ctx, solutionID, viewer)
	if err != nil {
		return "", err
	}
	downloadURL, err := s.archiver.presignLatest(ctx, solution)
	if err != nil {
		return "", errors.Wrap(err, errors.InternalServerError)
	}
	return downloadURL, nil
}

// ListForStudent returns a student's own solutions.
func (s *SolutionService) ListForStudent(ctx context.Context, studentID string, query ListQuery) (*pkgrepo.PaginationResult[repository.Solution], error) {
	if studentID == "" {
		return nil, errors.ValidationError("studentId", "required")
	}
	opts, err := buildListOptions(query)
	if err != nil {
		return nil, err
	}
	opts.AddFilter("student_id", studentID)
	return s.list(ctx, opts)
}

// ListForChallenge returns solutions submitted against one challenge.
// Companies may only list challenges they own; architects and admins may list
// any challenge.
func (s *SolutionService) ListForChallenge(ctx context.Context, challengeID string, viewer Viewer, query ListQuery) (*pkgrepo.PaginationResult[repository.Solution], error) {
	if challengeID == "" {
		return nil, errors.ValidationError("challengeId", "required")
	}

	switch viewer.Role {
	case identityrepo.RoleAdmin, identityrepo.RoleArchitect:
	case identityrepo.RoleCompany:
		if err := s.requireChallengeOwner(ctx, challengeID, viewer.ProfileID); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New(errors.RoleNotAllowed)
	}

	opts, err := buildListOptions(query)
	if err != nil {
		return nil, err
	}
	opts.AddFilter("challenge_id", challengeID)
	return s.list(ctx, opts)
}

// ListForArchitect returns solutions the architect has claimed or reviewed.
func (s *SolutionService) ListForArchitect(ctx context.Context, architectID string, query ListQuery) (*pkgrepo.PaginationResult[repository.Solution], error) {
	if architectID == "" {
		return nil, errors.ValidationError("architectId", "required")
	}
	opts, err := buildListOptions(query)
	if err != nil {
		return nil, err
	}
	opts.AddFilter("reviewer_id", architectID)
	return s.list(ctx, opts)
}

func (s *SolutionService) list(ctx context.Context, opts pkgrepo.ListOptions) (*pkgrepo.PaginationResult[repository.Solution], error) {
	solutions, total, err := s.solutions.List(ctx, nil, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return pkgrepo.NewPaginationResult(solutions, total, opts), nil
}

func (s *SolutionService) fetch(ctx context.Context, solutionID string) (*repository.Solution, error) {
	solution, err := s.solutions.GetByID(ctx, nil, solutionID)
	if err != nil {
		if pkgrepo.IsNotFoundError(err) {
			return nil, errors.New(errors.SolutionNotFound)
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return solution, nil
}

// fetchFresh reads past the cache. Conflict classification must see the row
// the failed guard saw, not a stale cached copy.
func (s *SolutionService) fetchFresh(ctx context.Context, solutionID string) (*repository.Solution, error) {
	solution, err := s.solutions.GetFresh(ctx, solutionID)
	if err != nil {
		if pkgrepo.IsNotFoundError(err) {
			return nil, errors.New(errors.SolutionNotFound)
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	return solution, nil
}

// reload re-reads a solution after a write, falling back to the in-memory
// value when the read fails so a committed write is never reported as failed.
func (s *SolutionService) reload(ctx context.Context, solutionID string, fallback *repository.Solution) (*repository.Solution, error) {
	solution, err := s.solutions.GetByID(ctx, nil, solutionID)
	if err != nil {
		logger.Warn(ctx, "reload after write failed", zap.Error(err), zap.String("solution_id", solutionID))
		return fallback, nil
	}
	return solution, nil
}

func (s *SolutionService) requireChallengeOwner(ctx context.Context, challengeID, companyID string) error {
	challenge, err := s.challenges.GetByID(ctx, nil, challengeID)
	if err != nil {
		if pkgrepo.IsNotFoundError(err) {
			return errors.New(errors.ChallengeNotFound)
		}
		return errors.Wrap(err, errors.DatabaseError)
	}
	if challenge.CompanyID != companyID {
		return errors.New(errors.ChallengeAccessDenied)
	}
	return nil
}

// classifyUpdateConflict re-reads after a zero-row content update to report
// why the guard failed: wrong owner or solution no longer editable.
func (s *SolutionService) classifyUpdateConflict(ctx context.Context, solutionID, studentID string) error {
	solution, err := s.fetchFresh(ctx, solutionID)
	if err != nil {
		return err
	}
	if solution.StudentID != studentID {
		return errors.New(errors.NotSolutionOwner)
	}
	return errors.New(errors.SolutionLocked)
}

func (s *SolutionService) classifyClaimConflict(ctx context.Context, solutionID string) error {
	solution, err := s.fetchFresh(ctx, solutionID)
	if err != nil {
		return err
	}
	if solution.Status == repository.StatusClaimed {
		return errors.New(errors.AlreadyClaimed)
	}
	return errors.Newf(errors.InvalidTransition, "Cannot claim a solution in status %q", solution.Status)
}

func (s *SolutionService) classifyReviewConflict(ctx context.Context, solutionID, architectID string) error {
	solution, err := s.fetchFresh(ctx, solutionID)
	if err != nil {
		return err
	}
	if solution.Status == repository.StatusClaimed {
		if solution.ReviewerID == nil || *solution.ReviewerID != architectID {
			return errors.New(errors.NotAssignedReviewer)
		}
	}
	return errors.Newf(errors.InvalidTransition, "Cannot review a solution in status %q", solution.Status)
}

func (s *SolutionService) classifySelectConflict(ctx context.Context, tx db.Transaction, solutionID string) error {
	solution, err := s.solutions.GetByID(ctx, tx, solutionID)
	if err != nil {
		if pkgrepo.IsNotFoundError(err) {
			return errors.New(errors.SolutionNotFound)
		}
		return errors.Wrap(err, errors.DatabaseError)
	}
	if solution.Status == repository.StatusSelected {
		return errors.New(errors.WinnerAlreadySelected)
	}
	return errors.Newf(errors.InvalidTransition, "Cannot select a solution in status %q", solution.Status)
}

// checkIdempotency returns the previously created solution when the same
// idempotency key was already used. done is true when the caller should stop.
func (s *SolutionService) checkIdempotency(ctx context.Context, input SubmitInput) (*repository.Solution, bool, error) {
	if s.cache == nil || input.IdempotencyKey == "" {
		return nil, false, nil
	}
	existing, err := s.cache.Get(ctx, idempotencyCacheKey(input.StudentID, input.IdempotencyKey))
	if err != nil || existing == "" {
		return nil, false, nil
	}
	solution, err := s.fetch(ctx, existing)
	if err != nil {
		return nil, true, err
	}
	return solution, true, nil
}

func (s *SolutionService) rememberIdempotency(ctx context.Context, input SubmitInput, solutionID string) {
	if s.cache == nil || input.IdempotencyKey == "" {
		return
	}
	key := idempotencyCacheKey(input.StudentID, input.IdempotencyKey)
	if _, err := s.cache.SetNX(ctx, key, solutionID, defaultIdempotentTTL); err != nil {
		logger.Warn(ctx, "store idempotency key failed", zap.Error(err))
	}
}

// checkSubmitRate enforces the per-student submission rate limit via a
// fixed-window counter. A cache outage fails open.
func (s *SolutionService) checkSubmitRate(ctx context.Context, studentID string) error {
	if s.cache == nil {
		return nil
	}
	key := submitRateCacheKey(studentID)
	count, err := s.cache.Incr(ctx, key)
	if err != nil {
		logger.Warn(ctx, "rate limit counter failed", zap.Error(err))
		return nil
	}
	if count == 1 {
		if err := s.cache.Expire(ctx, key, s.submitWindow); err != nil {
			logger.Warn(ctx, "rate limit expire failed", zap.Error(err))
		}
	}
	if count > int64(s.submitLimit) {
		return errors.New(errors.SubmitTooFrequently)
	}
	return nil
}

func validateContent(title, description, submissionURL string, tags []string, required bool) error {
	title = strings.TrimSpace(title)
	if required && title == "" {
		return errors.ValidationError("title", "required")
	}
	if len(title) > maxTitleLength {
		return errors.ValidationError("title", "too long")
	}
	if required && strings.TrimSpace(description) == "" {
		return errors.ValidationError("description", "required")
	}
	if len(description) > maxDescriptionBytes {
		return errors.New(errors.DescriptionTooLarge)
	}
	if required || submissionURL != "" {
		if err := validateSubmissionURL(submissionURL); err != nil {
			return err
		}
	}
	if len(tags) > maxTags {
		return errors.ValidationError("tags", "too many tags")
	}
	return nil
}

func validatePatch(patch repository.ContentPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return errors.ValidationError("title", "must not be empty")
		}
		if len(title) > maxTitleLength {
			return errors.ValidationError("title", "too long")
		}
	}
	if patch.Description != nil {
		if strings.TrimSpace(*patch.Description) == "" {
			return errors.ValidationError("description", "must not be empty")
		}
		if len(*patch.Description) > maxDescriptionBytes {
			return errors.New(errors.DescriptionTooLarge)
		}
	}
	if patch.SubmissionURL != nil {
		if err := validateSubmissionURL(*patch.SubmissionURL); err != nil {
			return err
		}
	}
	if len(patch.Tags) > maxTags {
		return errors.ValidationError("tags", "too many tags")
	}
	return nil
}

func validateSubmissionURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.ValidationError("submissionUrl", "required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errors.ValidationError("submissionUrl", "must be a valid http(s) URL")
	}
	return nil
}

func buildListOptions(query ListQuery) (pkgrepo.ListOptions, error) {
	var opts pkgrepo.ListOptions
	opts.SetPagination(query.Page, query.Limit)
	if opts.Limit > pkgrepo.MaxLimit {
		opts.Limit = pkgrepo.MaxLimit
	}
	if query.SortBy != "" {
		opts.SetSort(query.SortBy, query.SortDesc)
	} else {
		opts.SetSort("created_at", true)
	}
	if query.Status != "" {
		status, ok := repository.ParseStatus(strings.ToLower(query.Status))
		if !ok {
			return opts, errors.ValidationError("status", "unknown status value")
		}
		opts.AddFilter("status", string(status))
	}
	return opts, nil
}

func idempotencyCacheKey(studentID, idempotencyKey string) string {
	return "solution:idempotency:" + studentID + ":" + idempotencyKey
}

func submitRateCacheKey(studentID string) string {
	return "solution:submit-rate:" + studentID
}
