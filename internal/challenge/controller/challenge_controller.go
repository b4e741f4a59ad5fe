package controller

import (
	"context"
	"strings"
	"time"

	"skillforge/internal/challenge/repository"
	"skillforge/internal/challenge/service"
	identitymw "skillforge/internal/identity/middleware"
	identityrepo "skillforge/internal/identity/repository"
	"skillforge/pkg/errors"
	pkgrepo "skillforge/pkg/repository"
	"skillforge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProfileResolver maps an authenticated user to its role-specific profile.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, userID int64, role identityrepo.Role) (*identityrepo.Profile, error)
}

// ChallengeController handles challenge HTTP requests.
type ChallengeController struct {
	challenges *service.ChallengeService
	profiles   ProfileResolver
}

// NewChallengeController creates a challenge controller.
func NewChallengeController(challenges *service.ChallengeService, profiles ProfileResolver) *ChallengeController {
	return &ChallengeController{challenges: challenges, profiles: profiles}
}

// RegisterRoutes mounts the challenge routes. Reads are open to any
// authenticated role; posting a challenge is company-only.
func (ctl *ChallengeController) RegisterRoutes(api *gin.RouterGroup, authn identitymw.Authenticator) {
	challenges := api.Group("/challenges")

	anyRole := identitymw.AuthMiddleware(authn,
		identityrepo.RoleStudent, identityrepo.RoleArchitect, identityrepo.RoleCompany, identityrepo.RoleAdmin)

	challenges.POST("", identitymw.AuthMiddleware(authn, identityrepo.RoleCompany), ctl.Create)
	challenges.GET("", anyRole, ctl.List)
	challenges.GET("/:id", anyRole, ctl.GetByID)
}

type createChallengeRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Deadline    *time.Time `json:"deadline"`
}

type challengeListQuery struct {
	CompanyID string `form:"companyId"`
	Status    string `form:"status"`
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=10"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

type challengeView struct {
	ID               string     `json:"id"`
	CompanyID        string     `json:"companyId"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Tags             []string   `json:"tags"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Status           string     `json:"status"`
	WinnerSolutionID *string    `json:"winnerSolutionId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Create handles POST /api/challenges.
func (ctl *ChallengeController) Create(c *gin.Context) {
	var req createChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, ok := identitymw.CallerID(c)
	if !ok {
		response.Error(c, errors.New(errors.Unauthorized))
		return
	}
	profile, err := ctl.profiles.ResolveProfile(c.Request.Context(), userID, identityrepo.RoleCompany)
	if err != nil {
		response.Error(c, err)
		return
	}

	challenge, err := ctl.challenges.Create(c.Request.Context(), service.CreateInput{
		CompanyID:   profile.ProfileID,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Deadline:    req.Deadline,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Challenge created", toChallengeView(challenge))
}

// List handles GET /api/challenges.
func (ctl *ChallengeController) List(c *gin.Context) {
	var q challengeListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	if q.Page < 1 || q.Limit < 1 {
		response.BadRequest(c, "page and limit must be positive integers")
		return
	}

	result, err := ctl.challenges.List(c.Request.Context(), service.ListQuery{
		CompanyID: q.CompanyID,
		Status:    q.Status,
		Page:      q.Page,
		Limit:     q.Limit,
		SortBy:    q.SortBy,
		SortDesc:  !strings.EqualFold(q.SortOrder, "asc"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	sendChallengePage(c, result)
}

// GetByID handles GET /api/challenges/:id.
func (ctl *ChallengeController) GetByID(c *gin.Context) {
	challenge, err := ctl.challenges.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "", toChallengeView(challenge))
}

func sendChallengePage(c *gin.Context, result *pkgrepo.PaginationResult[repository.Challenge]) {
	views := make([]challengeView, 0, len(result.Items))
	for _, challenge := range result.Items {
		views = append(views, toChallengeView(challenge))
	}
	response.SuccessWithPagination(c, "", views, result.Total, result.Page, result.Limit)
}

func toChallengeView(challenge *repository.Challenge) challengeView {
	return challengeView{
		ID:               challenge.ChallengeID,
		CompanyID:        challenge.CompanyID,
		Title:            challenge.Title,
		Description:      challenge.Description,
		Tags:             challenge.Tags,
		Deadline:         challenge.Deadline,
		Status:           strings.ToUpper(string(challenge.Status)),
		WinnerSolutionID: challenge.WinnerSolutionID,
		CreatedAt:        challenge.CreatedAt,
		UpdatedAt:        challenge.UpdatedAt,
	}
}
