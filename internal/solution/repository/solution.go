package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"skillforge/internal/common/cache"
	"skillforge/internal/common/db"
	pkgrepo "skillforge/pkg/repository"
)

const (
	defaultSolutionCacheTTL      = 15 * time.Minute
	defaultSolutionCacheEmptyTTL = 2 * time.Minute
	solutionCacheKeyPrefix       = "solution:"
)

// SolutionStatus is the lifecycle state of a solution.
//
// Transitions move forward only:
//
//	submitted -> claimed -> approved -> selected
//	                     -> rejected
type SolutionStatus string

const (
	StatusSubmitted SolutionStatus = "submitted"
	StatusClaimed   SolutionStatus = "claimed"
	StatusApproved  SolutionStatus = "approved"
	StatusRejected  SolutionStatus = "rejected"
	StatusSelected  SolutionStatus = "selected"
)

// ParseStatus converts a raw string into a known SolutionStatus.
func ParseStatus(raw string) (SolutionStatus, bool) {
	switch SolutionStatus(raw) {
	case StatusSubmitted, StatusClaimed, StatusApproved, StatusRejected, StatusSelected:
		return SolutionStatus(raw), true
	default:
		return "", false
	}
}

// Solution is a student's submission against a challenge.
type Solution struct {
	SolutionID      string
	ChallengeID     string
	StudentID       string
	Title           string
	Description     string
	SubmissionURL   string
	Tags            []string
	Status          SolutionStatus
	ReviewerID      *string
	Feedback        *string
	Score           *int
	CompanyFeedback *string
	SelectionReason *string
	Revision        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ContentPatch carries partial content edits. Nil fields are left unchanged.
type ContentPatch struct {
	Title         *string
	Description   *string
	SubmissionURL *string
	Tags          []string
}

// Empty reports whether the patch would change nothing.
func (p ContentPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.SubmissionURL == nil && p.Tags == nil
}

// ReviewUpdate carries the review decision written during claimed -> approved|rejected.
type ReviewUpdate struct {
	Outcome  SolutionStatus
	Feedback string
	Score    *int
}

// SelectionUpdate carries the company decision written during approved -> selected.
type SelectionUpdate struct {
	CompanyFeedback string
	SelectionReason string
}

// SolutionRepository defines solution persistence interfaces.
//
// All lifecycle writes are conditional updates: the WHERE clause re-checks the
// expected current state so concurrent writers cannot both succeed. A write
// that matches no rows returns pkgrepo.ErrNotFound when the solution does not
// exist and pkgrepo.ErrConflict otherwise; the service layer re-reads to
// classify the conflict.
type SolutionRepository interface {
	Create(ctx context.Context, tx db.Transaction, solution *Solution) error
	GetByID(ctx context.Context, tx db.Transaction, solutionID string) (*Solution, error)

	// GetFresh reads straight from the primary store, bypassing the cache.
	// Conflict classification uses it so a stale cached row cannot
	// misreport why a guarded write failed.
	GetFresh(ctx context.Context, solutionID string) (*Solution, error)

	List(ctx context.Context, tx db.Transaction, opts pkgrepo.ListOptions) ([]*Solution, int64, error)

	// UpdateContent applies a partial content edit while the solution is
	// still submitted and owned by studentID.
	UpdateContent(ctx context.Context, tx db.Transaction, solutionID, studentID string, patch ContentPatch) error

	// Claim binds reviewerID exactly once, moving submitted -> claimed.
	Claim(ctx context.Context, tx db.Transaction, solutionID, architectID string) error

	// Review writes the decision, moving claimed -> approved|rejected,
	// conditional on architectID being the bound reviewer.
	Review(ctx context.Context, tx db.Transaction, solutionID, architectID string, update ReviewUpdate) error

	// Select moves approved -> selected and records the company decision.
	Select(ctx context.Context, tx db.Transaction, solutionID string, update SelectionUpdate) error
}

// MySQLSolutionRepository implements SolutionRepository with MySQL.
type MySQLSolutionRepository struct {
	dbProvider db.Provider
	cache      cache.Cache
	ttl        time.Duration
	emptyTTL   time.Duration
}

// NewSolutionRepository creates a solution repository with defaults.
func NewSolutionRepository(provider db.Provider, cacheClient cache.Cache) SolutionRepository {
	return &MySQLSolutionRepository{
		dbProvider: provider,
		cache:      cacheClient,
		ttl:        defaultSolutionCacheTTL,
		emptyTTL:   defaultSolutionCacheEmptyTTL,
	}
}

const solutionColumns = "solution_id, challenge_id, student_id, title, description, submission_url, tags, status, reviewer_id, feedback, score, company_feedback, selection_reason, revision, created_at, updated_at"

// sortableSolutionColumns is the allowlist for ORDER BY input.
var sortableSolutionColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
	"status":     true,
	"score":      true,
}

// Create inserts a solution record in submitted state.
func (r *MySQLSolutionRepository) Create(ctx context.Context, tx db.Transaction, solution *Solution) error {
	if solution == nil {
		return errors.New("solution is nil")
	}
	if solution.SolutionID == "" {
		return errors.New("solutionID is required")
	}
	if solution.ChallengeID == "" {
		return errors.New("challengeID is required")
	}
	if solution.StudentID == "" {
		return errors.New("studentID is required")
	}

	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return err
	}

	tags, err := json.Marshal(solution.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO solutions
		(solution_id, challenge_id, student_id, title, description, submission_url, tags, status, revision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.GetQuerier(database, tx).Exec(
		ctx,
		query,
		solution.SolutionID,
		solution.ChallengeID,
		solution.StudentID,
		solution.Title,
		solution.Description,
		solution.SubmissionURL,
		string(tags),
		string(StatusSubmitted),
		solution.Revision,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return pkgrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID retrieves a solution by id.
func (r *MySQLSolutionRepository) GetByID(ctx context.Context, tx db.Transaction, solutionID string) (*Solution, error) {
	if solutionID == "" {
		return nil, errors.New("solutionID is required")
	}
	if r.cache != nil && tx == nil {
		solution, err := cache.GetWithCached[*Solution](
			ctx,
			r.cache,
			solutionCacheKey(solutionID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(solution *Solution) bool { return solution == nil },
			marshalSolution,
			unmarshalSolution,
			func(ctx context.Context) (*Solution, error) {
				solution, err := r.getByIDFromDB(ctx, nil, solutionID)
				if err != nil {
					if errors.Is(err, pkgrepo.ErrNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return solution, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if solution == nil {
			return nil, pkgrepo.ErrNotFound
		}
		return solution, nil
	}
	return r.getByIDFromDB(ctx, tx, solutionID)
}

// GetFresh reads a solution from the database, skipping the cache.
func (r *MySQLSolutionRepository) GetFresh(ctx context.Context, solutionID string) (*Solution, error) {
	if solutionID == "" {
		return nil, errors.New("solutionID is required")
	}
	return r.getByIDFromDB(ctx, nil, solutionID)
}

// List returns a page of solutions plus the total count.
// Supported filters: student_id, challenge_id, reviewer_id, status.
func (r *MySQLSolutionRepository) List(ctx context.Context, tx db.Transaction, opts pkgrepo.ListOptions) ([]*Solution, int64, error) {
	if err := opts.Validate(); err != nil {
		return nil, 0, err
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildSolutionFilters(opts.Filters)
	querier := db.GetQuerier(database, tx)

	var total int64
	countQuery := "SELECT COUNT(*) FROM solutions" + where
	if err := querier.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := "created_at"
	if opts.OrderBy != "" && sortableSolutionColumns[opts.OrderBy] {
		orderBy = opts.OrderBy
	}
	direction := "ASC"
	if opts.OrderDesc {
		direction = "DESC"
	}

	listQuery := "SELECT " + solutionColumns + " FROM solutions" + where +
		" ORDER BY " + orderBy + " " + direction + " LIMIT ? OFFSET ?"
	listArgs := append(append([]interface{}{}, args...), opts.Limit, opts.Offset)

	rows, err := querier.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	solutions := make([]*Solution, 0, opts.Limit)
	for rows.Next() {
		solution, err := scanSolutionRow(rows)
		if err != nil {
			return nil, 0, err
		}
		solutions = append(solutions, solution)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return solutions, total, nil
}

// UpdateContent applies a partial content edit while still submitted.
func (r *MySQLSolutionRepository) UpdateContent(ctx context.Context, tx db.Transaction, solutionID, studentID string, patch ContentPatch) error {
	if solutionID == "" {
		return errors.New("solutionID is required")
	}
	if studentID == "" {
		return errors.New("studentID is required")
	}
	if patch.Empty() {
		return nil
	}

	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return err
	}

	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 7)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.SubmissionURL != nil {
		sets = append(sets, "submission_url = ?")
		args = append(args, *patch.SubmissionURL)
	}
	if patch.Tags != nil {
		tags, err := json.Marshal(patch.Tags)
		if err != nil {
			return err
		}
		sets = append(sets, "tags = ?")
		args = append(args, string(tags))
	}
	sets = append(sets, "revision = revision + 1")

	query := "UPDATE solutions SET " + strings.Join(sets, ", ") +
		" WHERE solution_id = ? AND student_id = ? AND status = ?"
	args = append(args, solutionID, studentID, string(StatusSubmitted))

	return r.conditionalWrite(ctx, tx, database, query, args, solutionID)
}

// Claim binds the reviewer, moving submitted -> claimed.
func (r *MySQLSolutionRepository) Claim(ctx context.Context, tx db.Transaction, solutionID, architectID string) error {
	if solutionID == "" {
		return errors.New("solutionID is required")
	}
	if architectID == "" {
		return errors.New("architectID is required")
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return err
	}

	query := `
		UPDATE solutions
		SET status = ?, reviewer_id = ?
		WHERE solution_id = ? AND status = ? AND reviewer_id IS NULL
	`
	args := []interface{}{string(StatusClaimed), architectID, solutionID, string(StatusSubmitted)}
	return r.conditionalWrite(ctx, tx, database, query, args, solutionID)
}

// Review writes the decision, moving claimed -> approved|rejected.
func (r *MySQLSolutionRepository) Review(ctx context.Context, tx db.Transaction, solutionID, architectID string, update ReviewUpdate) error {
	if solutionID == "" {
		return errors.New("solutionID is required")
	}
	if architectID == "" {
		return errors.New("architectID is required")
	}
	if update.Outcome != StatusApproved && update.Outcome != StatusRejected {
		return errors.New("outcome must be approved or rejected")
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return err
	}

	query := `
		UPDATE solutions
		SET status = ?, feedback = ?, score = ?
		WHERE solution_id = ? AND status = ? AND reviewer_id = ?
	`
	args := []interface{}{string(update.Outcome), update.Feedback, update.Score, solutionID, string(StatusClaimed), architectID}
	return r.conditionalWrite(ctx, tx, database, query, args, solutionID)
}

// Select moves approved -> selected and records the company decision.
func (r *MySQLSolutionRepository) Select(ctx context.Context, tx db.Transaction, solutionID string, update SelectionUpdate) error {
	if solutionID == "" {
		return errors.New("solutionID is required")
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return err
	}

	query := `
		UPDATE solutions
		SET status = ?, company_feedback = ?, selection_reason = ?
		WHERE solution_id = ? AND status = ?
	`
	args := []interface{}{string(StatusSelected), update.CompanyFeedback, update.SelectionReason, solutionID, string(StatusApproved)}
	return r.conditionalWrite(ctx, tx, database, query, args, solutionID)
}

// conditionalWrite executes a guarded UPDATE and classifies a zero-row result
// as either ErrNotFound (row gone) or ErrConflict (guard no longer holds).
func (r *MySQLSolutionRepository) conditionalWrite(ctx context.Context, tx db.Transaction, database db.Database, query string, args []interface{}, solutionID string) error {
	result, err := db.GetQuerier(database, tx).Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		exists, err := r.exists(ctx, tx, database, solutionID)
		if err != nil {
			return err
		}
		if !exists {
			return pkgrepo.ErrNotFound
		}
		return pkgrepo.ErrConflict
	}
	r.invalidate(ctx, solutionID)
	return nil
}

func (r *MySQLSolutionRepository) exists(ctx context.Context, tx db.Transaction, database db.Database, solutionID string) (bool, error) {
	var one int
	err := db.GetQuerier(database, tx).QueryRow(ctx, "SELECT 1 FROM solutions WHERE solution_id = ? LIMIT 1", solutionID).Scan(&one)
	if err != nil {
		if db.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *MySQLSolutionRepository) getByIDFromDB(ctx context.Context, tx db.Transaction, solutionID string) (*Solution, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + solutionColumns + " FROM solutions WHERE solution_id = ? LIMIT 1"
	return scanSolutionRow(db.GetQuerier(database, tx).QueryRow(ctx, query, solutionID))
}

func (r *MySQLSolutionRepository) invalidate(ctx context.Context, solutionID string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Del(ctx, solutionCacheKey(solutionID))
}

// scanner is satisfied by both db.Row and db.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSolutionRow(row scanner) (*Solution, error) {
	solution := &Solution{}
	var status, tags string
	if err := row.Scan(
		&solution.SolutionID,
		&solution.ChallengeID,
		&solution.StudentID,
		&solution.Title,
		&solution.Description,
		&solution.SubmissionURL,
		&tags,
		&status,
		&solution.ReviewerID,
		&solution.Feedback,
		&solution.Score,
		&solution.CompanyFeedback,
		&solution.SelectionReason,
		&solution.Revision,
		&solution.CreatedAt,
		&solution.UpdatedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, pkgrepo.ErrNotFound
		}
		return nil, err
	}
	solution.Status = SolutionStatus(status)
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &solution.Tags); err != nil {
			return nil, err
		}
	}
	return solution, nil
}

func buildSolutionFilters(filters map[string]interface{}) (string, []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))
	for _, field := range []string{"student_id", "challenge_id", "reviewer_id", "status"} {
		if value, ok := filters[field]; ok {
			clauses = append(clauses, field+" = ?")
			args = append(args, value)
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func solutionCacheKey(solutionID string) string {
	return solutionCacheKeyPrefix + solutionID
}

func marshalSolution(solution *Solution) string {
	if solution == nil {
		return ""
	}
	data, err := json.Marshal(solution)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalSolution(data string) (*Solution, error) {
	if data == "" || data == cache.NullCacheValue {
		return nil, nil
	}
	var solution Solution
	if err := json.Unmarshal([]byte(data), &solution); err != nil {
		return nil, err
	}
	return &solution, nil
}
