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
	defaultChallengeCacheTTL      = 10 * time.Minute
	defaultChallengeCacheEmptyTTL = 2 * time.Minute
	challengeCacheKeyPrefix       = "challenge:"
)

// ChallengeStatus is the publication state of a challenge.
type ChallengeStatus string

const (
	ChallengeStatusOpen   ChallengeStatus = "open"
	ChallengeStatusClosed ChallengeStatus = "closed"
)

// Challenge is a company-posted problem that students submit solutions against.
type Challenge struct {
	ChallengeID      string
	CompanyID        string
	Title            string
	Description      string
	Tags             []string
	Deadline         *time.Time
	Status           ChallengeStatus
	WinnerSolutionID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ChallengeRepository defines challenge persistence interfaces.
type ChallengeRepository interface {
	Create(ctx context.Context, tx db.Transaction, challenge *Challenge) error
	GetByID(ctx context.Context, tx db.Transaction, challengeID string) (*Challenge, error)
	List(ctx context.Context, tx db.Transaction, opts pkgrepo.ListOptions) ([]*Challenge, int64, error)

	// SetWinner fills the single winner slot and closes the challenge.
	// The update is conditional on the slot being empty; a second winner
	// for the same challenge fails with pkgrepo.ErrConflict.
	SetWinner(ctx context.Context, tx db.Transaction, challengeID, solutionID string) error
}

// MySQLChallengeRepository implements ChallengeRepository with MySQL.
type MySQLChallengeRepository struct {
	dbProvider db.Provider
	cache      cache.Cache
	ttl        time.Duration
	emptyTTL   time.Duration
}

// NewChallengeRepository creates a challenge repository with defaults.
func NewChallengeRepository(provider db.Provider, cacheClient cache.Cache) ChallengeRepository {
	return &MySQLChallengeRepository{
		dbProvider: provider,
		cache:      cacheClient,
		ttl:        defaultChallengeCacheTTL,
		emptyTTL:   defaultChallengeCacheEmptyTTL,
	}
}

const challengeColumns = "challenge_id, company_id, title, description, tags, deadline, status, winner_solution_id, created_at, updated_at"

// sortableChallengeColumns is the allowlist for ORDER BY input.
var sortableChallengeColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"deadline":   true,
	"title":      true,
}

// Create inserts a challenge record.
func (r *MySQLChallengeRepository) Create(ctx context.Context, tx db.Transaction, challenge *Challenge) error {
	if challenge == nil {
		return errors.New("challenge is nil")
	}
	if challenge.ChallengeID == "" {
		return errors.New("challengeID is required")
	}
	if challenge.CompanyID == "" {
		return errors.New("companyID is required")
	}

	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return err
	}

	tags, err := json.Marshal(challenge.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO challenges
		(challenge_id, company_id, title, description, tags, deadline, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.GetQuerier(database, tx).Exec(
		ctx,
		query,
		challenge.ChallengeID,
		challenge.CompanyID,
		challenge.Title,
		challenge.Description,
		string(tags),
		challenge.Deadline,
		string(challenge.Status),
	)
	return err
}

// GetByID retrieves a challenge by id.
func (r *MySQLChallengeRepository) GetByID(ctx context.Context, tx db.Transaction, challengeID string) (*Challenge, error) {
	if challengeID == "" {
		return nil, errors.New("challengeID is required")
	}
	if r.cache != nil && tx == nil {
		challenge, err := cache.GetWithCached[*Challenge](
			ctx,
			r.cache,
			challengeCacheKey(challengeID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(challenge *Challenge) bool { return challenge == nil },
			marshalChallenge,
			unmarshalChallenge,
			func(ctx context.Context) (*Challenge, error) {
				challenge, err := r.getByIDFromDB(ctx, nil, challengeID)
				if err != nil {
					if errors.Is(err, pkgrepo.ErrNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return challenge, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if challenge == nil {
			return nil, pkgrepo.ErrNotFound
		}
		return challenge, nil
	}
	return r.getByIDFromDB(ctx, tx, challengeID)
}

// List returns a page of challenges plus the total count.
// Supported filters: company_id, status.
func (r *MySQLChallengeRepository) List(ctx context.Context, tx db.Transaction, opts pkgrepo.ListOptions) ([]*Challenge, int64, error) {
	if err := opts.Validate(); err != nil {
		return nil, 0, err
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildChallengeFilters(opts.Filters)

	querier := db.GetQuerier(database, tx)

	var total int64
	countQuery := "SELECT COUNT(*) FROM challenges" + where
	if err := querier.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := "created_at"
	if opts.OrderBy != "" && sortableChallengeColumns[opts.OrderBy] {
		orderBy = opts.OrderBy
	}
	direction := "ASC"
	if opts.OrderDesc {
		direction = "DESC"
	}

	listQuery := "SELECT " + challengeColumns + " FROM challenges" + where +
		" ORDER BY " + orderBy + " " + direction + " LIMIT ? OFFSET ?"
	listArgs := append(append([]interface{}{}, args...), opts.Limit, opts.Offset)

	rows, err := querier.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	challenges := make([]*Challenge, 0, opts.Limit)
	for rows.Next() {
		challenge, err := scanChallengeRow(rows)
		if err != nil {
			return nil, 0, err
		}
		challenges = append(challenges, challenge)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return challenges, total, nil
}

// SetWinner fills the winner slot and closes the challenge.
func (r *MySQLChallengeRepository) SetWinner(ctx context.Context, tx db.Transaction, challengeID, solutionID string) error {
	if challengeID == "" {
		return errors.New("challengeID is required")
	}
	if solutionID == "" {
		return errors.New("solutionID is required")
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return err
	}

	query := `
		UPDATE challenges
		SET winner_solution_id = ?, status = ?
		WHERE challenge_id = ? AND winner_solution_id IS NULL
	`
	result, err := db.GetQuerier(database, tx).Exec(ctx, query, solutionID, string(ChallengeStatusClosed), challengeID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the challenge is gone or another winner won the race.
		if _, err := r.getByIDFromDB(ctx, tx, challengeID); err != nil {
			return err
		}
		return pkgrepo.ErrConflict
	}
	r.invalidate(ctx, challengeID)
	return nil
}

func (r *MySQLChallengeRepository) getByIDFromDB(ctx context.Context, tx db.Transaction, challengeID string) (*Challenge, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + challengeColumns + " FROM challenges WHERE challenge_id = ? LIMIT 1"
	return scanChallengeRow(db.GetQuerier(database, tx).QueryRow(ctx, query, challengeID))
}

func (r *MySQLChallengeRepository) invalidate(ctx context.Context, challengeID string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Del(ctx, challengeCacheKey(challengeID))
}

// scanner is satisfied by both db.Row and db.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanChallengeRow(row scanner) (*Challenge, error) {
	challenge := &Challenge{}
	var status, tags string
	var deadline *time.Time
	var winner *string
	if err := row.Scan(
		&challenge.ChallengeID,
		&challenge.CompanyID,
		&challenge.Title,
		&challenge.Description,
		&tags,
		&deadline,
		&status,
		&winner,
		&challenge.CreatedAt,
		&challenge.UpdatedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, pkgrepo.ErrNotFound
		}
		return nil, err
	}
	challenge.Status = ChallengeStatus(status)
	challenge.Deadline = deadline
	challenge.WinnerSolutionID = winner
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &challenge.Tags); err != nil {
			return nil, err
		}
	}
	return challenge, nil
}

func buildChallengeFilters(filters map[string]interface{}) (string, []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))
	if companyID, ok := filters["company_id"]; ok {
		clauses = append(clauses, "company_id = ?")
		args = append(args, companyID)
	}
	if status, ok := filters["status"]; ok {
		clauses = append(clauses, "status = ?")
		args = append(args, status)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func challengeCacheKey(challengeID string) string {
	return challengeCacheKeyPrefix + challengeID
}

func marshalChallenge(challenge *Challenge) string {
	if challenge == nil {
		return ""
	}
	data, err := json.Marshal(challenge)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalChallenge(data string) (*Challenge, error) {
	if data == "" || data == cache.NullCacheValue {
		return nil, nil
	}
	var challenge Challenge
	if err := json.Unmarshal([]byte(data), &challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}
