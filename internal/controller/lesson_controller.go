package controller

import (
	"context"

	"desorientado_backend/internal/service"
	"desorientado_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type lessonService interface {
	Modules(ctx context.Context) ([]service.LessonModule, error)
}

type LessonController struct {
	LessonService lessonService
}

func NewLessonController(lessonService lessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

// ListLessons godoc
// @Summary Curriculum
// @Description Lessons grouped by module in teaching order
// @Tags lessons
// @Produce json
// @Success 200 {object} util.Response{data=[]service.LessonModule}
// @Router /api/lessons [get]
func (c *LessonController) ListLessons(ctx *gin.Context) {
	modules, err := c.LessonService.Modules(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}
