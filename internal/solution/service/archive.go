package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skillforge/internal/common/storage"
	"skillforge/internal/solution/repository"
	"skillforge/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultArchiveTTL = 15 * time.Minute

// contentArchiver writes immutable JSON snapshots of solution state to object
// storage, one object per (revision, status) step. Snapshots are audit
// material, not the source of truth, so failures are logged and do not fail
// the write path.
type contentArchiver struct {
	storage    storage.ObjectStorage
	bucket     string
	presignTTL time.Duration
}

type contentSnapshot struct {
	SolutionID    string                    `json:"solution_id"`
	ChallengeID   string                    `json:"challenge_id"`
	StudentID     string                    `json:"student_id"`
	Title         string                    `json:"title"`
	Description   string                    `json:"description"`
	SubmissionURL string                    `json:"submission_url"`
	Tags          []string                  `json:"tags,omitempty"`
	Status        repository.SolutionStatus `json:"status"`
	ReviewerID    *string                   `json:"reviewer_id,omitempty"`
	Feedback      *string                   `json:"feedback,omitempty"`
	Score         *int                      `json:"score,omitempty"`
	Revision      int                       `json:"revision"`
	ArchivedAt    time.Time                 `json:"archived_at"`
}

func newContentArchiver(objectStorage storage.ObjectStorage, bucket string, presignTTL time.Duration) *contentArchiver {
	if presignTTL <= 0 {
		presignTTL = defaultArchiveTTL
	}
	return &contentArchiver{storage: objectStorage, bucket: bucket, presignTTL: presignTTL}
}

func (a *contentArchiver) enabled() bool {
	return a != nil && a.storage != nil
}

func (a *contentArchiver) snapshot(ctx context.Context, solution *repository.Solution) {
	if !a.enabled() || solution == nil {
		return
	}

	snap := contentSnapshot{
		SolutionID:    solution.SolutionID,
		ChallengeID:   solution.ChallengeID,
		StudentID:     solution.StudentID,
		Title:         solution.Title,
		Description:   solution.Description,
		SubmissionURL: solution.SubmissionURL,
		Tags:          solution.Tags,
		Status:        solution.Status,
		ReviewerID:    solution.ReviewerID,
		Feedback:      solution.Feedback,
		Score:         solution.Score,
		Revision:      solution.Revision,
		ArchivedAt:    time.Now().UTC(),
	}

	body, err := json.Marshal(snap)
	if err != nil {
		logger.Error(ctx, "marshal solution snapshot failed", zap.Error(err))
		return
	}

	key := archiveKey(solution.SolutionID, solution.Revision, solution.Status)
	err = a.storage.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), "application/json")
	if err != nil {
		logger.Error(ctx, "archive solution snapshot failed",
			zap.Error(err),
			zap.String("solution_id", solution.SolutionID),
			zap.String("object_key", key),
		)
	}
}

// presignLatest returns a short-lived download URL for the solution's most
// recent snapshot.
func (a *contentArchiver) presignLatest(ctx context.Context, solution *repository.Solution) (string, error) {
	key := archiveKey(solution.SolutionID, solution.Revision, solution.Status)
	return a.storage.PresignGetObject(ctx, a.bucket, key, a.presignTTL)
}

func archiveKey(solutionID string, revision int, status repository.SolutionStatus) string {
	return fmt.Sprintf("solutions/%s/rev-%05d-%s.json", solutionID, revision, status)
}
