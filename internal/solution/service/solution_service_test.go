package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	challengerepo "skillforge/internal/challenge/repository"
	"skillforge/internal/common/cache"
	"skillforge/internal/common/db"
	"skillforge/internal/common/storage"
	identityrepo "skillforge/internal/identity/repository"
	"skillforge/internal/solution/repository"
	pkgerrors "skillforge/pkg/errors"
	pkgrepo "skillforge/pkg/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// fakeSolutionRepo is an in-memory SolutionRepository that mirrors the
// conditional-update semantics of the MySQL implementation: every lifecycle
// write re-checks the guard under the lock and reports ErrNotFound or
// ErrConflict exactly like a zero-row UPDATE would.
//
// When stale is set, GetByID serves that snapshot instead of the live row,
// imitating a cached read that lags behind a concurrent write. GetFresh
// always serves the live row.
type fakeSolutionRepo struct {
	mu    sync.Mutex
	byID  map[string]*repository.Solution
	order []string
	stale *repository.Solution
}

func newFakeSolutionRepo() *fakeSolutionRepo {
	return &fakeSolutionRepo{byID: make(map[string]*repository.Solution)}
}

func (f *fakeSolutionRepo) Create(ctx context.Context, tx db.Transaction, solution *repository.Solution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[solution.SolutionID]; ok {
		return pkgrepo.ErrAlreadyExists
	}
	stored := *solution
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.byID[solution.SolutionID] = &stored
	f.order = append(f.order, solution.SolutionID)
	return nil
}

func (f *fakeSolutionRepo) GetByID(ctx context.Context, tx db.Transaction, solutionID string) (*repository.Solution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stale != nil && f.stale.SolutionID == solutionID {
		copied := *f.stale
		return &copied, nil
	}
	stored, ok := f.byID[solutionID]
	if !ok {
		return nil, pkgrepo.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeSolutionRepo) GetFresh(ctx context.Context, solutionID string) (*repository.Solution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[solutionID]
	if !ok {
		return nil, pkgrepo.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeSolutionRepo) setStale(solution *repository.Solution) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stale = solution
}

func (f *fakeSolutionRepo) List(ctx context.Context, tx db.Transaction, opts pkgrepo.ListOptions) ([]*repository.Solution, int64, error) {
	if err := opts.Validate(); err != nil {
		return nil, 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	matched := make([]*repository.Solution, 0, len(f.order))
	for _, id := range f.order {
		stored := f.byID[id]
		if !matchesFilters(stored, opts.Filters) {
			continue
		}
		copied := *stored
		matched = append(matched, &copied)
	}

	total := int64(len(matched))
	start := opts.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + opts.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func matchesFilters(solution *repository.Solution, filters map[string]interface{}) bool {
	for field, value := range filters {
		switch field {
		case "student_id":
			if solution.StudentID != value.(string) {
				return false
			}
		case "challenge_id":
			if solution.ChallengeID != value.(string) {
				return false
			}
		case "reviewer_id":
			if solution.ReviewerID == nil || *solution.ReviewerID != value.(string) {
				return false
			}
		case "status":
			if string(solution.Status) != value.(string) {
				return false
			}
		}
	}
	return true
}

func (f *fakeSolutionRepo) UpdateContent(ctx context.Context, tx db.Transaction, solutionID, studentID string, patch repository.ContentPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[solutionID]
	if !ok {
		return pkgrepo.ErrNotFound
	}
	if stored.StudentID != studentID || stored.Status != repository.StatusSubmitted {
		return pkgrepo.ErrConflict
	}
	if patch.Title != nil {
		stored.Title = *patch.Title
	}
	if patch.Description != nil {
		stored.Description = *patch.Description
	}
	if patch.SubmissionURL != nil {
		stored.SubmissionURL = *patch.SubmissionURL
	}
	if patch.Tags != nil {
		stored.Tags = patch.Tags
	}
	stored.Revision++
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeSolutionRepo) Claim(ctx context.Context, tx db.Transaction, solutionID, architectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[solutionID]
	if !ok {
		return pkgrepo.ErrNotFound
	}
	if stored.Status != repository.StatusSubmitted || stored.ReviewerID != nil {
		return pkgrepo.ErrConflict
	}
	reviewer := architectID
	stored.Status = repository.StatusClaimed
	stored.ReviewerID = &reviewer
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeSolutionRepo) Review(ctx context.Context, tx db.Transaction, solutionID, architectID string, update repository.ReviewUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[solutionID]
	if !ok {
		return pkgrepo.ErrNotFound
	}
	if stored.Status != repository.StatusClaimed || stored.ReviewerID == nil || *stored.ReviewerID != architectID {
		return pkgrepo.ErrConflict
	}
	stored.Status = update.Outcome
	feedback := update.Feedback
	stored.Feedback = &feedback
	stored.Score = update.Score
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeSolutionRepo) Select(ctx context.Context, tx db.Transaction, solutionID string, update repository.SelectionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[solutionID]
	if !ok {
		return pkgrepo.ErrNotFound
	}
	if stored.Status != repository.StatusApproved {
		return pkgrepo.ErrConflict
	}
	stored.Status = repository.StatusSelected
	feedback := update.CompanyFeedback
	reason := update.SelectionReason
	stored.CompanyFeedback = &feedback
	stored.SelectionReason = &reason
	stored.UpdatedAt = time.Now()
	return nil
}

// fakeChallengeRepo mirrors the single-winner-slot guard of the MySQL
// implementation.
type fakeChallengeRepo struct {
	mu   sync.Mutex
	byID map[string]*challengerepo.Challenge
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{byID: make(map[string]*challengerepo.Challenge)}
}

func (f *fakeChallengeRepo) Create(ctx context.Context, tx db.Transaction, challenge *challengerepo.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[challenge.ChallengeID]; ok {
		return pkgrepo.ErrAlreadyExists
	}
	stored := *challenge
	f.byID[challenge.ChallengeID] = &stored
	return nil
}

func (f *fakeChallengeRepo) GetByID(ctx context.Context, tx db.Transaction, challengeID string) (*challengerepo.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[challengeID]
	if !ok {
		return nil, pkgrepo.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeChallengeRepo) List(ctx context.Context, tx db.Transaction, opts pkgrepo.ListOptions) ([]*challengerepo.Challenge, int64, error) {
	return nil, 0, nil
}

func (f *fakeChallengeRepo) SetWinner(ctx context.Context, tx db.Transaction, challengeID, solutionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[challengeID]
	if !ok {
		return pkgrepo.ErrNotFound
	}
	if stored.WinnerSolutionID != nil {
		return pkgrepo.ErrConflict
	}
	winner := solutionID
	stored.WinnerSolutionID = &winner
	stored.Status = challengerepo.ChallengeStatusClosed
	return nil
}

// fakeObjectStorage keeps archived objects in memory.
type fakeObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: make(map[string][]byte)}
}

func (f *fakeObjectStorage) PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+objectKey] = data
	return nil
}

func (f *fakeObjectStorage) GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+objectKey]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectKey)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStorage) StatObject(ctx context.Context, bucket, objectKey string) (storage.ObjectStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+objectKey]
	if !ok {
		return storage.ObjectStat{}, fmt.Errorf("object %s not found", objectKey)
	}
	return storage.ObjectStat{Size: int64(len(data)), ContentType: "application/json"}, nil
}

func (f *fakeObjectStorage) PresignGetObject(ctx context.Context, bucket, objectKey string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[bucket+"/"+objectKey]; !ok {
		return "", fmt.Errorf("object %s not found", objectKey)
	}
	return "https://storage.test/" + bucket + "/" + objectKey, nil
}

func (f *fakeObjectStorage) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	return keys
}

// fakeDatabase satisfies db.Database; Transaction just runs the function.
type fakeDatabase struct{}

func (fakeDatabase) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	return nil, nil
}
func (fakeDatabase) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	return nil
}
func (fakeDatabase) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	return nil, nil
}
func (fakeDatabase) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return fn(nil)
}
func (fakeDatabase) BeginTx(ctx context.Context, opts *db.TxOptions) (db.Transaction, error) {
	return nil, nil
}
func (fakeDatabase) Ping(ctx context.Context) error { return nil }
func (fakeDatabase) Close() error                   { return nil }

type testEnv struct {
	svc        *SolutionService
	solutions  *fakeSolutionRepo
	challenges *fakeChallengeRepo
	cache      cache.Cache
	redis      *miniredis.Miniredis
	storage    *fakeObjectStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("create redis cache: %v", err)
	}

	solutions := newFakeSolutionRepo()
	challenges := newFakeChallengeRepo()
	objectStore := newFakeObjectStorage()
	svc, err := NewSolutionService(Config{
		DB:            db.NewStaticProvider(fakeDatabase{}),
		Solutions:     solutions,
		Challenges:    challenges,
		Cache:         redisCache,
		Storage:       objectStore,
		ArchiveBucket: "archive",
		SubmitLimit:   100,
		SubmitWindow:  time.Minute,
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return &testEnv{svc: svc, solutions: solutions, challenges: challenges, cache: redisCache, redis: mr, storage: objectStore}
}

func (e *testEnv) openChallenge(t *testing.T, challengeID, companyID string) {
	t.Helper()
	err := e.challenges.Create(context.Background(), nil, &challengerepo.Challenge{
		ChallengeID: challengeID,
		CompanyID:   companyID,
		Title:       "build a cache",
		Status:      challengerepo.ChallengeStatusOpen,
	})
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
}

func (e *testEnv) submit(t *testing.T, studentID, challengeID string) *repository.Solution {
	t.Helper()
	solution, err := e.svc.Submit(context.Background(), SubmitInput{
		StudentID:     studentID,
		ChallengeID:   challengeID,
		Title:         "X",
		Description:   "my approach",
		SubmissionURL: "http://a",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return solution
}

func wantCode(t *testing.T, err error, code pkgerrors.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", code)
	}
	if got := pkgerrors.GetCode(err); got != code {
		t.Fatalf("expected error code %d, got %d (%v)", code, got, err)
	}
}

func TestSubmitCreatesSubmittedSolution(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")

	solution := env.submit(t, "stu-1", "ch-1")

	if solution.Status != repository.StatusSubmitted {
		t.Errorf("status = %q, want %q", solution.Status, repository.StatusSubmitted)
	}
	if solution.ReviewerID != nil {
		t.Errorf("reviewerID = %v, want nil", *solution.ReviewerID)
	}
	if solution.SolutionID == "" {
		t.Error("solutionID not assigned")
	}
}

func TestSubmitUnknownChallenge(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Submit(context.Background(), SubmitInput{
		StudentID:     "stu-1",
		ChallengeID:   "missing",
		Title:         "X",
		Description:   "d",
		SubmissionURL: "http://a",
	})
	wantCode(t, err, pkgerrors.ChallengeNotFound)
}

func TestSubmitClosedChallenge(t *testing.T) {
	env := newTestEnv(t)
	env.challenges.Create(context.Background(), nil, &challengerepo.Challenge{
		ChallengeID: "ch-closed",
		CompanyID:   "co-1",
		Status:      challengerepo.ChallengeStatusClosed,
	})

	_, err := env.svc.Submit(context.Background(), SubmitInput{
		StudentID:     "stu-1",
		ChallengeID:   "ch-closed",
		Title:         "X",
		Description:   "d",
		SubmissionURL: "http://a",
	})
	wantCode(t, err, pkgerrors.ChallengeClosed)
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")

	cases := []struct {
		name  string
		input SubmitInput
		code  pkgerrors.ErrorCode
	}{
		{
			name:  "empty title",
			input: SubmitInput{StudentID: "s", ChallengeID: "ch-1", Title: "  ", Description: "d", SubmissionURL: "http://a"},
			code:  pkgerrors.ValidationFailed,
		},
		{
			name:  "bad url scheme",
			input: SubmitInput{StudentID: "s", ChallengeID: "ch-1", Title: "t", Description: "d", SubmissionURL: "ftp://a"},
			code:  pkgerrors.ValidationFailed,
		},
		{
			name:  "missing url",
			input: SubmitInput{StudentID: "s", ChallengeID: "ch-1", Title: "t", Description: "d"},
			code:  pkgerrors.ValidationFailed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Submit(context.Background(), tc.input)
			wantCode(t, err, tc.code)
		})
	}
}

func TestSubmitIdempotencyKeyReturnsExisting(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")

	input := SubmitInput{
		StudentID:      "stu-1",
		ChallengeID:    "ch-1",
		Title:          "X",
		Description:    "d",
		SubmissionURL:  "http://a",
		IdempotencyKey: "retry-abc",
	}
	first, err := env.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := env.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.SolutionID != first.SolutionID {
		t.Errorf("retried submit created a new solution: %q vs %q", second.SolutionID, first.SolutionID)
	}
}

func TestSubmitRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	env.svc.submitLimit = 2

	env.submit(t, "stu-1", "ch-1")
	env.submit(t, "stu-1", "ch-1")

	_, err := env.svc.Submit(context.Background(), SubmitInput{
		StudentID:     "stu-1",
		ChallengeID:   "ch-1",
		Title:         "X",
		Description:   "d",
		SubmissionURL: "http://a",
	})
	wantCode(t, err, pkgerrors.SubmitTooFrequently)

	// A different student is not affected by stu-1's counter.
	env.submit(t, "stu-2", "ch-1")
}

func TestUpdateWhileSubmitted(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")

	title := "better title"
	updated, err := env.svc.Update(context.Background(), UpdateInput{
		SolutionID: solution.SolutionID,
		StudentID:  "stu-1",
		Title:      &title,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "better title" {
		t.Errorf("title = %q, want %q", updated.Title, "better title")
	}
	if updated.Description != "my approach" {
		t.Errorf("description changed on partial update: %q", updated.Description)
	}
}

func TestUpdateAfterClaimIsLocked(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")

	if _, err := env.svc.ClaimForReview(context.Background(), solution.SolutionID, "arch-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	title := "sneaky edit"
	_, err := env.svc.Update(context.Background(), UpdateInput{
		SolutionID: solution.SolutionID,
		StudentID:  "stu-1",
		Title:      &title,
	})
	wantCode(t, err, pkgerrors.SolutionLocked)

	current, _ := env.solutions.GetByID(context.Background(), nil, solution.SolutionID)
	if current.Title != "X" {
		t.Errorf("title changed despite lock: %q", current.Title)
	}
}

func TestUpdateByNonOwnerForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")

	title := "not mine"
	_, err := env.svc.Update(context.Background(), UpdateInput{
		SolutionID: solution.SolutionID,
		StudentID:  "stu-2",
		Title:      &title,
	})
	wantCode(t, err, pkgerrors.NotSolutionOwner)
}

func TestUpdateEmptyPatchChecksOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")
	ctx := context.Background()

	// A no-op update from a stranger must not leak the solution.
	_, err := env.svc.Update(ctx, UpdateInput{
		SolutionID: solution.SolutionID,
		StudentID:  "stu-2",
	})
	wantCode(t, err, pkgerrors.NotSolutionOwner)

	same, err := env.svc.Update(ctx, UpdateInput{
		SolutionID: solution.SolutionID,
		StudentID:  "stu-1",
	})
	if err != nil {
		t.Fatalf("owner no-op update: %v", err)
	}
	if same.Revision != solution.Revision {
		t.Errorf("revision = %d, want unchanged %d", same.Revision, solution.Revision)
	}
}

func TestClaimBindsReviewer(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")

	claimed, err := env.svc.ClaimForReview(context.Background(), solution.SolutionID, "arch-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != repository.StatusClaimed {
		t.Errorf("status = %q, want %q", claimed.Status, repository.StatusClaimed)
	}
	if claimed.ReviewerID == nil || *claimed.ReviewerID != "arch-1" {
		t.Errorf("reviewerID = %v, want arch-1", claimed.ReviewerID)
	}
}

func TestClaimConcurrentExactlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")

	const claimants = 8
	var wg sync.WaitGroup
	errs := make([]error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.ClaimForReview(context.Background(), solution.SolutionID, fmt.Sprintf("arch-%d", i))
		}(i)
	}
	wg.Wait()

	winners := 0
	var winner string
	for i, err := range errs {
		if err == nil {
			winners++
			winner = fmt.Sprintf("arch-%d", i)
			continue
		}
		wantCode(t, err, pkgerrors.AlreadyClaimed)
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}

	current, _ := env.solutions.GetByID(context.Background(), nil, solution.SolutionID)
	if current.ReviewerID == nil || *current.ReviewerID != winner {
		t.Errorf("final reviewerID = %v, want %q", current.ReviewerID, winner)
	}
}

func TestClaimConflictClassifiedFromPrimaryRead(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")
	ctx := context.Background()

	before, err := env.solutions.GetByID(ctx, nil, solution.SolutionID)
	if err != nil {
		t.Fatalf("snapshot before claim: %v", err)
	}

	if _, err := env.svc.ClaimForReview(ctx, solution.SolutionID, "arch-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Cached reads still show the pre-claim row; the losing claimant must be
	// classified from the primary store, not the stale snapshot.
	env.solutions.setStale(before)

	_, err = env.svc.ClaimForReview(ctx, solution.SolutionID, "arch-2")
	wantCode(t, err, pkgerrors.AlreadyClaimed)
}

func TestClaimTerminalStateInvalid(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")
	score := 50

	env.svc.ClaimForReview(context.Background(), solution.SolutionID, "arch-1")
	env.svc.Review(context.Background(), ReviewInput{
		SolutionID: solution.SolutionID, ArchitectID: "arch-1",
		Outcome: "rejected", Feedback: "no", Score: &score,
	})

	_, err := env.svc.ClaimForReview(context.Background(), solution.SolutionID, "arch-2")
	wantCode(t, err, pkgerrors.InvalidTransition)
}

func TestReviewByUnboundArchitectForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")
	env.svc.ClaimForReview(context.Background(), solution.SolutionID, "arch-1")

	score := 90
	_, err := env.svc.Review(context.Background(), ReviewInput{
		SolutionID:  solution.SolutionID,
		ArchitectID: "arch-2",
		Outcome:     "approved",
		Feedback:    "nice",
		Score:       &score,
	})
	wantCode(t, err, pkgerrors.NotAssignedReviewer)

	current, _ := env.solutions.GetByID(context.Background(), nil, solution.SolutionID)
	if current.Status != repository.StatusClaimed {
		t.Errorf("status = %q, want unchanged %q", current.Status, repository.StatusClaimed)
	}
	if current.ReviewerID == nil || *current.ReviewerID != "arch-1" {
		t.Errorf("reviewerID = %v, want unchanged arch-1", current.ReviewerID)
	}
}

func TestReviewApproveRequiresScore(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")
	env.svc.ClaimForReview(context.Background(), solution.SolutionID, "arch-1")

	_, err := env.svc.Review(context.Background(), ReviewInput{
		SolutionID:  solution.SolutionID,
		ArchitectID: "arch-1",
		Outcome:     "approved",
		Feedback:    "nice",
	})
	wantCode(t, err, pkgerrors.ScoreOutOfRange)

	tooHigh := 101
	_, err = env.svc.Review(context.Background(), ReviewInput{
		SolutionID:  solution.SolutionID,
		ArchitectID: "arch-1",
		Outcome:     "approved",
		Feedback:    "nice",
		Score:       &tooHigh,
	})
	wantCode(t, err, pkgerrors.ScoreOutOfRange)
}

func TestReviewWrongOutcome(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")
	env.svc.ClaimForReview(context.Background(), solution.SolutionID, "arch-1")

	_, err := env.svc.Review(context.Background(), ReviewInput{
		SolutionID:  solution.SolutionID,
		ArchitectID: "arch-1",
		Outcome:     "selected",
		Feedback:    "nope",
	})
	wantCode(t, err, pkgerrors.ReviewOutcomeWrong)
}

func TestLifecycleHappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	ctx := context.Background()

	solution := env.submit(t, "stu-A", "ch-1")
	if solution.Status != repository.StatusSubmitted {
		t.Fatalf("after submit: status = %q", solution.Status)
	}

	claimed, err := env.svc.ClaimForReview(ctx, solution.SolutionID, "arch-B")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != repository.StatusClaimed || *claimed.ReviewerID != "arch-B" {
		t.Fatalf("after claim: status=%q reviewer=%v", claimed.Status, claimed.ReviewerID)
	}

	_, err = env.svc.ClaimForReview(ctx, solution.SolutionID, "arch-D")
	wantCode(t, err, pkgerrors.AlreadyClaimed)

	score := 90
	reviewed, err := env.svc.Review(ctx, ReviewInput{
		SolutionID:  solution.SolutionID,
		ArchitectID: "arch-B",
		Outcome:     "APPROVED",
		Feedback:    "solid work",
		Score:       &score,
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != repository.StatusApproved || reviewed.Score == nil || *reviewed.Score != 90 {
		t.Fatalf("after review: status=%q score=%v", reviewed.Status, reviewed.Score)
	}

	selected, err := env.svc.SelectAsWinner(ctx, SelectInput{
		SolutionID:      solution.SolutionID,
		CompanyID:       "co-1",
		CompanyFeedback: "great",
		SelectionReason: "best score",
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if selected.Status != repository.StatusSelected {
		t.Fatalf("after select: status = %q", selected.Status)
	}

	challenge, _ := env.challenges.GetByID(ctx, nil, "ch-1")
	if challenge.WinnerSolutionID == nil || *challenge.WinnerSolutionID != solution.SolutionID {
		t.Errorf("challenge winner = %v, want %q", challenge.WinnerSolutionID, solution.SolutionID)
	}
	if challenge.Status != challengerepo.ChallengeStatusClosed {
		t.Errorf("challenge status = %q, want closed", challenge.Status)
	}
}

func TestRejectedCannotBeSelected(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	ctx := context.Background()

	solution := env.submit(t, "stu-A", "ch-1")
	env.svc.ClaimForReview(ctx, solution.SolutionID, "arch-B")

	rejected, err := env.svc.Review(ctx, ReviewInput{
		SolutionID:  solution.SolutionID,
		ArchitectID: "arch-B",
		Outcome:     "REJECTED",
		Feedback:    "does not meet the bar",
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if rejected.Status != repository.StatusRejected {
		t.Fatalf("status = %q, want rejected", rejected.Status)
	}

	_, err = env.svc.SelectAsWinner(ctx, SelectInput{
		SolutionID: solution.SolutionID,
		CompanyID:  "co-1",
	})
	wantCode(t, err, pkgerrors.InvalidTransition)
}

func TestSelectRequiresApproved(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	ctx := context.Background()

	submitted := env.submit(t, "stu-A", "ch-1")
	_, err := env.svc.SelectAsWinner(ctx, SelectInput{SolutionID: submitted.SolutionID, CompanyID: "co-1"})
	wantCode(t, err, pkgerrors.InvalidTransition)

	claimed := env.submit(t, "stu-B", "ch-1")
	env.svc.ClaimForReview(ctx, claimed.SolutionID, "arch-1")
	_, err = env.svc.SelectAsWinner(ctx, SelectInput{SolutionID: claimed.SolutionID, CompanyID: "co-1"})
	wantCode(t, err, pkgerrors.InvalidTransition)
}

func TestSelectByNonOwnerCompany(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	ctx := context.Background()

	solution := env.submit(t, "stu-A", "ch-1")
	env.svc.ClaimForReview(ctx, solution.SolutionID, "arch-B")
	score := 80
	env.svc.Review(ctx, ReviewInput{
		SolutionID: solution.SolutionID, ArchitectID: "arch-B",
		Outcome: "approved", Feedback: "ok", Score: &score,
	})

	_, err := env.svc.SelectAsWinner(ctx, SelectInput{SolutionID: solution.SolutionID, CompanyID: "co-other"})
	wantCode(t, err, pkgerrors.ChallengeAccessDenied)
}

func TestSelectSecondWinnerConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	ctx := context.Background()

	approve := func(studentID, architectID string) *repository.Solution {
		solution := env.submit(t, studentID, "ch-1")
		env.svc.ClaimForReview(ctx, solution.SolutionID, architectID)
		score := 85
		reviewed, err := env.svc.Review(ctx, ReviewInput{
			SolutionID: solution.SolutionID, ArchitectID: architectID,
			Outcome: "approved", Feedback: "ok", Score: &score,
		})
		if err != nil {
			t.Fatalf("approve %s: %v", studentID, err)
		}
		return reviewed
	}
	first := approve("stu-A", "arch-1")
	second := approve("stu-B", "arch-2")

	if _, err := env.svc.SelectAsWinner(ctx, SelectInput{SolutionID: first.SolutionID, CompanyID: "co-1"}); err != nil {
		t.Fatalf("first select: %v", err)
	}

	_, err := env.svc.SelectAsWinner(ctx, SelectInput{SolutionID: second.SolutionID, CompanyID: "co-1"})
	wantCode(t, err, pkgerrors.WinnerAlreadySelected)

	// The losing sibling keeps its approved status.
	sibling, _ := env.solutions.GetByID(ctx, nil, second.SolutionID)
	if sibling.Status != repository.StatusApproved {
		t.Errorf("sibling status = %q, want approved", sibling.Status)
	}
}

func TestArchiveSnapshotsPerLifecycleStep(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	ctx := context.Background()

	solution := env.submit(t, "stu-1", "ch-1")
	title := "second draft"
	if _, err := env.svc.Update(ctx, UpdateInput{SolutionID: solution.SolutionID, StudentID: "stu-1", Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := env.svc.ClaimForReview(ctx, solution.SolutionID, "arch-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	score := 90
	if _, err := env.svc.Review(ctx, ReviewInput{
		SolutionID: solution.SolutionID, ArchitectID: "arch-1",
		Outcome: "approved", Feedback: "solid", Score: &score,
	}); err != nil {
		t.Fatalf("review: %v", err)
	}
	if _, err := env.svc.SelectAsWinner(ctx, SelectInput{SolutionID: solution.SolutionID, CompanyID: "co-1"}); err != nil {
		t.Fatalf("select: %v", err)
	}

	wantKeys := []string{
		fmt.Sprintf("archive/solutions/%s/rev-00001-submitted.json", solution.SolutionID),
		fmt.Sprintf("archive/solutions/%s/rev-00002-submitted.json", solution.SolutionID),
		fmt.Sprintf("archive/solutions/%s/rev-00002-approved.json", solution.SolutionID),
		fmt.Sprintf("archive/solutions/%s/rev-00002-selected.json", solution.SolutionID),
	}
	got := env.storage.keys()
	if len(got) != len(wantKeys) {
		t.Fatalf("archived objects = %d (%v), want %d", len(got), got, len(wantKeys))
	}
	for _, want := range wantKeys {
		if _, err := env.storage.GetObject(ctx, "archive", strings.TrimPrefix(want, "archive/")); err != nil {
			t.Errorf("missing snapshot %s", want)
		}
	}
}

func TestArchiveDownloadURL(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")
	ctx := context.Background()

	url, err := env.svc.ArchiveDownloadURL(ctx, solution.SolutionID, Viewer{ProfileID: "stu-1", Role: identityrepo.RoleStudent})
	if err != nil {
		t.Fatalf("archive url: %v", err)
	}
	want := fmt.Sprintf("https://storage.test/archive/solutions/%s/rev-00001-submitted.json", solution.SolutionID)
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}

	// Same visibility rules as GetByID.
	_, err = env.svc.ArchiveDownloadURL(ctx, solution.SolutionID, Viewer{ProfileID: "stu-2", Role: identityrepo.RoleStudent})
	wantCode(t, err, pkgerrors.NotSolutionOwner)
}

func TestArchiveDownloadURLDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")

	bare, err := NewSolutionService(Config{
		DB:         db.NewStaticProvider(fakeDatabase{}),
		Solutions:  env.solutions,
		Challenges: env.challenges,
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	_, err = bare.ArchiveDownloadURL(context.Background(), solution.SolutionID, Viewer{ProfileID: "stu-1", Role: identityrepo.RoleStudent})
	wantCode(t, err, pkgerrors.NotFound)
}

func TestListForStudentPagination(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")

	for i := 0; i < 25; i++ {
		env.submit(t, "stu-1", "ch-1")
	}
	env.submit(t, "stu-2", "ch-1")

	result, err := env.svc.ListForStudent(context.Background(), "stu-1", ListQuery{Page: 2, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 10 {
		t.Errorf("items = %d, want 10", len(result.Items))
	}
	if result.Total != 25 {
		t.Errorf("total = %d, want 25", result.Total)
	}
	if result.TotalPages != 3 {
		t.Errorf("totalPages = %d, want 3", result.TotalPages)
	}
	if !result.HasNextPage {
		t.Error("hasNextPage = false, want true")
	}
	if !result.HasPrevPage {
		t.Error("hasPrevPage = false, want true")
	}
}

func TestListForStudentStatusFilter(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	ctx := context.Background()

	first := env.submit(t, "stu-1", "ch-1")
	env.submit(t, "stu-1", "ch-1")
	env.svc.ClaimForReview(ctx, first.SolutionID, "arch-1")

	result, err := env.svc.ListForStudent(ctx, "stu-1", ListQuery{Status: "CLAIMED"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].SolutionID != first.SolutionID {
		t.Errorf("filtered list = %d items, want only the claimed one", len(result.Items))
	}

	_, err = env.svc.ListForStudent(ctx, "stu-1", ListQuery{Status: "bogus"})
	wantCode(t, err, pkgerrors.ValidationFailed)
}

func TestListForChallengeVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	env.submit(t, "stu-1", "ch-1")
	ctx := context.Background()

	owner := Viewer{ProfileID: "co-1", Role: identityrepo.RoleCompany}
	if _, err := env.svc.ListForChallenge(ctx, "ch-1", owner, ListQuery{}); err != nil {
		t.Fatalf("owner list: %v", err)
	}

	stranger := Viewer{ProfileID: "co-2", Role: identityrepo.RoleCompany}
	_, err := env.svc.ListForChallenge(ctx, "ch-1", stranger, ListQuery{})
	wantCode(t, err, pkgerrors.ChallengeAccessDenied)

	architect := Viewer{ProfileID: "arch-1", Role: identityrepo.RoleArchitect}
	if _, err := env.svc.ListForChallenge(ctx, "ch-1", architect, ListQuery{}); err != nil {
		t.Fatalf("architect list: %v", err)
	}
}

func TestListForArchitectReturnsOnlyReviewed(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	ctx := context.Background()

	mine := env.submit(t, "stu-1", "ch-1")
	other := env.submit(t, "stu-2", "ch-1")
	env.svc.ClaimForReview(ctx, mine.SolutionID, "arch-1")
	env.svc.ClaimForReview(ctx, other.SolutionID, "arch-2")

	result, err := env.svc.ListForArchitect(ctx, "arch-1", ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].SolutionID != mine.SolutionID {
		t.Errorf("list = %d items, want only arch-1's claim", len(result.Items))
	}
}

func TestGetByIDVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.openChallenge(t, "ch-1", "co-1")
	solution := env.submit(t, "stu-1", "ch-1")
	ctx := context.Background()

	cases := []struct {
		name   string
		viewer Viewer
		code   pkgerrors.ErrorCode // zero means allowed
	}{
		{name: "owner", viewer: Viewer{ProfileID: "stu-1", Role: identityrepo.RoleStudent}},
		{name: "other student", viewer: Viewer{ProfileID: "stu-2", Role: identityrepo.RoleStudent}, code: pkgerrors.NotSolutionOwner},
		{name: "challenge owner", viewer: Viewer{ProfileID: "co-1", Role: identityrepo.RoleCompany}},
		{name: "other company", viewer: Viewer{ProfileID: "co-2", Role: identityrepo.RoleCompany}, code: pkgerrors.ChallengeAccessDenied},
		{name: "architect", viewer: Viewer{ProfileID: "arch-1", Role: identityrepo.RoleArchitect}},
		{name: "admin", viewer: Viewer{ProfileID: "adm-1", Role: identityrepo.RoleAdmin}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.GetByID(ctx, solution.SolutionID, tc.viewer)
			if tc.code == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			wantCode(t, err, tc.code)
		})
	}
}

func TestGetByIDNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.GetByID(context.Background(), "missing", Viewer{ProfileID: "adm", Role: identityrepo.RoleAdmin})
	wantCode(t, err, pkgerrors.SolutionNotFound)
}
