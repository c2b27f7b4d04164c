package controller

import (
	"context"
	"time"

	"desorientado_backend/internal/progress"
	"desorientado_backend/internal/service"
	"desorientado_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type progressService interface {
	Get(ctx context.Context, userID uint) (service.ProgressView, error)
	CompleteLesson(ctx context.Context, userID uint, lessonID, today string) (service.MutationResult, error)
	SubmitQuiz(ctx context.Context, userID uint, lessonID string, score, total int, today string) (service.MutationResult, error)
	ToggleFavorite(ctx context.Context, userID uint, lessonID, today string) (service.MutationResult, error)
	History(ctx context.Context, userID uint) (progress.QuizHistory, error)
	Reviews(ctx context.Context, userID uint, today string, limit int) ([]progress.Suggestion, error)
	Reset(ctx context.Context, userID uint) (service.MutationResult, error)
}

const maxReviewLimit = 50

// ProgressController serves the learner's own record. Every mutation is
// dated with the learner's calendar, see util.RequestDate.
type ProgressController struct {
	ProgressService progressService
	Location        *time.Location
	now             func() time.Time
}

func NewProgressController(progressService progressService, loc *time.Location) *ProgressController {
	return &ProgressController{ProgressService: progressService, Location: loc, now: time.Now}
}

func (c *ProgressController) today(ctx *gin.Context) (string, bool) {
	today, err := util.RequestDate(ctx, c.now(), c.Location)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return "", false
	}
	return today, true
}

// GetProgress godoc
// @Summary Current learner progress
// @Description Returns the progress record and the level derived from XP
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Failure 401 {object} util.Response
// @Failure 503 {object} util.Response "store unavailable"
// @Router /api/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	view, err := c.ProgressService.Get(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// CompleteLesson godoc
// @Summary Mark a lesson completed
// @Description Idempotent: completing a lesson twice awards XP once
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "lesson id"
// @Param X-Local-Date header string false "learner's date, YYYY-MM-DD"
// @Param X-Timezone header string false "learner's IANA time zone"
// @Success 200 {object} util.Response{data=service.MutationResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response "unknown lesson"
// @Router /api/progress/lessons/{lessonId}/complete [post]
func (c *ProgressController) CompleteLesson(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	today, ok := c.today(ctx)
	if !ok {
		return
	}

	res, err := c.ProgressService.CompleteLesson(ctx.Request.Context(), userID, ctx.Param("lessonId"), today)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// swagger:model QuizRequest
type QuizRequest struct {
	Score *int `json:"score" binding:"required"`
	Total *int `json:"total" binding:"required"`
}

// SubmitQuiz godoc
// @Summary Submit a quiz result
// @Description Every submission awards XP by accuracy and is kept in the quiz history
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "lesson id"
// @Param body body QuizRequest true "score and total"
// @Param X-Local-Date header string false "learner's date, YYYY-MM-DD"
// @Success 200 {object} util.Response{data=service.MutationResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response "unknown lesson"
// @Router /api/progress/lessons/{lessonId}/quiz [post]
func (c *ProgressController) SubmitQuiz(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req QuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	today, ok := c.today(ctx)
	if !ok {
		return
	}

	res, err := c.ProgressService.SubmitQuiz(ctx.Request.Context(), userID, ctx.Param("lessonId"), *req.Score, *req.Total, today)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// ToggleFavorite godoc
// @Summary Toggle a favorite lesson
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "lesson id"
// @Success 200 {object} util.Response{data=service.MutationResult}
// @Failure 404 {object} util.Response "unknown lesson"
// @Router /api/progress/lessons/{lessonId}/favorite [post]
func (c *ProgressController) ToggleFavorite(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	today, ok := c.today(ctx)
	if !ok {
		return
	}

	res, err := c.ProgressService.ToggleFavorite(ctx.Request.Context(), userID, ctx.Param("lessonId"), today)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// GetHistory godoc
// @Summary Quiz attempt history
// @Description Last attempts per lesson, oldest first
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=progress.QuizHistory}
// @Router /api/progress/history [get]
func (c *ProgressController) GetHistory(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	h, err := c.ProgressService.History(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, h)
}

// GetReviews godoc
// @Summary Review suggestions
// @Description Lessons due for review today, most urgent first
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param limit query int false "max suggestions"
// @Param X-Local-Date header string false "learner's date, YYYY-MM-DD"
// @Success 200 {object} util.Response{data=[]progress.Suggestion}
// @Router /api/progress/reviews [get]
func (c *ProgressController) GetReviews(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	today, ok := c.today(ctx)
	if !ok {
		return
	}
	limit := util.ParseLimit(ctx.Query("limit"), 0, maxReviewLimit)

	reviews, err := c.ProgressService.Reviews(ctx.Request.Context(), userID, today, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"today": today, "reviews": reviews})
}
