package controller

import (
	"context"
	"strconv"
	"strings"
	"time"

	identitymw "skillforge/internal/identity/middleware"
	identityrepo "skillforge/internal/identity/repository"
	"skillforge/internal/solution/repository"
	"skillforge/internal/solution/service"
	"skillforge/pkg/errors"
	pkgrepo "skillforge/pkg/repository"
	"skillforge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProfileResolver maps an authenticated user to its role-specific profile.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, userID int64, role identityrepo.Role) (*identityrepo.Profile, error)
}

// SolutionController handles solution lifecycle HTTP requests.
type SolutionController struct {
	solutions *service.SolutionService
	profiles  ProfileResolver
}

// NewSolutionController creates a solution controller.
func NewSolutionController(solutions *service.SolutionService, profiles ProfileResolver) *SolutionController {
	return &SolutionController{solutions: solutions, profiles: profiles}
}

// RegisterRoutes mounts the solution routes with per-route role gates.
func (ctl *SolutionController) RegisterRoutes(api *gin.RouterGroup, authn identitymw.Authenticator) {
	solutions := api.Group("/solutions")

	solutions.POST("", identitymw.AuthMiddleware(authn, identityrepo.RoleStudent), ctl.Submit)
	solutions.GET("/student", identitymw.AuthMiddleware(authn, identityrepo.RoleStudent), ctl.ListMine)
	solutions.GET("/architect", identitymw.AuthMiddleware(authn, identityrepo.RoleArchitect), ctl.ListReviewed)
	solutions.GET("/challenge/:challengeId",
		identitymw.AuthMiddleware(authn, identityrepo.RoleCompany, identityrepo.RoleArchitect, identityrepo.RoleAdmin),
		ctl.ListForChallenge)
	solutions.GET("/:id",
		identitymw.AuthMiddleware(authn, identityrepo.RoleStudent, identityrepo.RoleCompany, identityrepo.RoleArchitect, identityrepo.RoleAdmin),
		ctl.GetByID)
	solutions.GET("/:id/archive",
		identitymw.AuthMiddleware(authn, identityrepo.RoleStudent, identityrepo.RoleCompany, identityrepo.RoleArchitect, identityrepo.RoleAdmin),
		ctl.ArchiveLink)
	solutions.PUT("/:id", identitymw.AuthMiddleware(authn, identityrepo.RoleStudent), ctl.Update)
	solutions.PATCH("/:id/claim", identitymw.AuthMiddleware(authn, identityrepo.RoleArchitect), ctl.Claim)
	solutions.PATCH("/:id/review", identitymw.AuthMiddleware(authn, identityrepo.RoleArchitect), ctl.Review)
	solutions.PATCH("/:id/select", identitymw.AuthMiddleware(authn, identityrepo.RoleCompany), ctl.Select)
}

type submitRequest struct {
	ChallengeID   string   `json:"challengeId" binding:"required"`
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description" binding:"required"`
	SubmissionURL string   `json:"submissionUrl" binding:"required"`
	Tags          []string `json:"tags"`
}

type updateRequest struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	SubmissionURL *string  `json:"submissionUrl"`
	Tags          []string `json:"tags"`
}

type reviewRequest struct {
	Status   string `json:"status" binding:"required"`
	Feedback string `json:"feedback" binding:"required"`
	Score    *int   `json:"score"`
}

type selectRequest struct {
	CompanyFeedback string `json:"companyFeedback"`
	SelectionReason string `json:"selectionReason"`
}

type listQuery struct {
	Status    string `form:"status"`
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=10"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

type solutionView struct {
	ID              string    `json:"id"`
	ChallengeID     string    `json:"challengeId"`
	StudentID       string    `json:"studentId"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	SubmissionURL   string    `json:"submissionUrl"`
	Tags            []string  `json:"tags"`
	Status          string    `json:"status"`
	ReviewerID      *string   `json:"reviewerId,omitempty"`
	Feedback        *string   `json:"feedback,omitempty"`
	Score           *int      `json:"score,omitempty"`
	CompanyFeedback *string   `json:"companyFeedback,omitempty"`
	SelectionReason *string   `json:"selectionReason,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Submit handles POST /api/solutions.
func (ctl *SolutionController) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	profile, err := ctl.callerProfile(c, identityrepo.RoleStudent)
	if err != nil {
		response.Error(c, err)
		return
	}

	solution, err := ctl.solutions.Submit(c.Request.Context(), service.SubmitInput{
		StudentID:      profile.ProfileID,
		ChallengeID:    req.ChallengeID,
		Title:          req.Title,
		Description:    req.Description,
		SubmissionURL:  req.SubmissionURL,
		Tags:           req.Tags,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Solution submitted", toSolutionView(solution))
}

// ListMine handles GET /api/solutions/student.
func (ctl *SolutionController) ListMine(c *gin.Context) {
	query, ok := bindListQuery(c)
	if !ok {
		return
	}
	profile, err := ctl.callerProfile(c, identityrepo.RoleStudent)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := ctl.solutions.ListForStudent(c.Request.Context(), profile.ProfileID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendPage(c, result)
}

// ListReviewed handles GET /api/solutions/architect.
func (ctl *SolutionController) ListReviewed(c *gin.Context) {
	query, ok := bindListQuery(c)
	if !ok {
		return
	}
	profile, err := ctl.callerProfile(c, identityrepo.RoleArchitect)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := ctl.solutions.ListForArchitect(c.Request.Context(), profile.ProfileID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendPage(c, result)
}

// ListForChallenge handles GET /api/solutions/challenge/:challengeId.
func (ctl *SolutionController) ListForChallenge(c *gin.Context) {
	challengeID := c.Param("challengeId")
	query, ok := bindListQuery(c)
	if !ok {
		return
	}
	viewer, err := ctl.viewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := ctl.solutions.ListForChallenge(c.Request.Context(), challengeID, viewer, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendPage(c, result)
}

// GetByID handles GET /api/solutions/:id.
func (ctl *SolutionController) GetByID(c *gin.Context) {
	viewer, err := ctl.viewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	solution, err := ctl.solutions.GetByID(c.Request.Context(), c.Param("id"), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "", toSolutionView(solution))
}

// ArchiveLink handles GET /api/solutions/:id/archive. It returns a presigned
// download URL for the latest archived snapshot of the solution.
func (ctl *SolutionController) ArchiveLink(c *gin.Context) {
	viewer, err := ctl.viewer(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	downloadURL, err := ctl.solutions.ArchiveDownloadURL(c.Request.Context(), c.Param("id"), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "", gin.H{"url": downloadURL})
}

// Update handles PUT /api/solutions/:id.
func (ctl *SolutionController) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	profile, err := ctl.callerProfile(c, identityrepo.RoleStudent)
	if err != nil {
		response.Error(c, err)
		return
	}

	solution, err := ctl.solutions.Update(c.Request.Context(), service.UpdateInput{
		SolutionID:    c.Param("id"),
		StudentID:     profile.ProfileID,
		Title:         req.Title,
		Description:   req.Description,
		SubmissionURL: req.SubmissionURL,
		Tags:          req.Tags,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Solution updated", toSolutionView(solution))
}

// Claim handles PATCH /api/solutions/:id/claim.
func (ctl *SolutionController) Claim(c *gin.Context) {
	profile, err := ctl.callerProfile(c, identityrepo.RoleArchitect)
	if err != nil {
		response.Error(c, err)
		return
	}

	solution, err := ctl.solutions.ClaimForReview(c.Request.Context(), c.Param("id"), profile.ProfileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Solution claimed for review", toSolutionView(solution))
}

// Review handles PATCH /api/solutions/:id/review.
func (ctl *SolutionController) Review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	profile, err := ctl.callerProfile(c, identityrepo.RoleArchitect)
	if err != nil {
		response.Error(c, err)
		return
	}

	solution, err := ctl.solutions.Review(c.Request.Context(), service.ReviewInput{
		SolutionID:  c.Param("id"),
		ArchitectID: profile.ProfileID,
		Outcome:     req.Status,
		Feedback:    req.Feedback,
		Score:       req.Score,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Review recorded", toSolutionView(solution))
}

// Select handles PATCH /api/solutions/:id/select.
func (ctl *SolutionController) Select(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	profile, err := ctl.callerProfile(c, identityrepo.RoleCompany)
	if err != nil {
		response.Error(c, err)
		return
	}

	solution, err := ctl.solutions.SelectAsWinner(c.Request.Context(), service.SelectInput{
		SolutionID:      c.Param("id"),
		CompanyID:       profile.ProfileID,
		CompanyFeedback: req.CompanyFeedback,
		SelectionReason: req.SelectionReason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Winner selected", toSolutionView(solution))
}

// callerProfile resolves the authenticated user's profile for a fixed role.
func (ctl *SolutionController) callerProfile(c *gin.Context, role identityrepo.Role) (*identityrepo.Profile, error) {
	userID, ok := identitymw.CallerID(c)
	if !ok {
		return nil, errors.New(errors.Unauthorized)
	}
	return ctl.profiles.ResolveProfile(c.Request.Context(), userID, role)
}

// viewer resolves the caller's profile under whatever role it authenticated
// with, for read paths open to several roles.
func (ctl *SolutionController) viewer(c *gin.Context) (service.Viewer, error) {
	userID, ok := identitymw.CallerID(c)
	if !ok {
		return service.Viewer{}, errors.New(errors.Unauthorized)
	}
	role, ok := identitymw.CallerRole(c)
	if !ok {
		return service.Viewer{}, errors.New(errors.Unauthorized)
	}
	profile, err := ctl.profiles.ResolveProfile(c.Request.Context(), userID, role)
	if err != nil {
		return service.Viewer{}, err
	}
	return service.Viewer{ProfileID: profile.ProfileID, Role: role}, nil
}

func bindListQuery(c *gin.Context) (service.ListQuery, bool) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters: "+err.Error())
		return service.ListQuery{}, false
	}
	if q.Page < 1 {
		response.BadRequest(c, "page must be a positive integer, got "+strconv.Itoa(q.Page))
		return service.ListQuery{}, false
	}
	if q.Limit < 1 {
		response.BadRequest(c, "limit must be a positive integer, got "+strconv.Itoa(q.Limit))
		return service.ListQuery{}, false
	}
	return service.ListQuery{
		Status:   q.Status,
		Page:     q.Page,
		Limit:    q.Limit,
		SortBy:   q.SortBy,
		SortDesc: !strings.EqualFold(q.SortOrder, "asc"),
	}, true
}

func sendPage(c *gin.Context, result *pkgrepo.PaginationResult[repository.Solution]) {
	views := make([]solutionView, 0, len(result.Items))
	for _, solution := range result.Items {
		views = append(views, toSolutionView(solution))
	}
	response.SuccessWithPagination(c, "", views, result.Total, result.Page, result.Limit)
}

func toSolutionView(solution *repository.Solution) solutionView {
	return solutionView{
		ID:              solution.SolutionID,
		ChallengeID:     solution.ChallengeID,
		StudentID:       solution.StudentID,
		Title:           solution.Title,
		Description:     solution.Description,
		SubmissionURL:   solution.SubmissionURL,
		Tags:            solution.Tags,
		Status:          strings.ToUpper(string(solution.Status)),
		ReviewerID:      solution.ReviewerID,
		Feedback:        solution.Feedback,
		Score:           solution.Score,
		CompanyFeedback: solution.CompanyFeedback,
		SelectionReason: solution.SelectionReason,
		CreatedAt:       solution.CreatedAt,
		UpdatedAt:       solution.UpdatedAt,
	}
}
