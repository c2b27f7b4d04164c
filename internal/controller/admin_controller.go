package controller

import (
	"context"

	"desorientado_backend/internal/service"
	"desorientado_backend/internal/util"
	"desorientado_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type exportService interface {
	Export(ctx context.Context) (*service.ExportResult, error)
}

// AdminController exposes learner records to administrators.
type AdminController struct {
	ProgressService progressService
	ExportService   exportService
}

func NewAdminController(progressService progressService, exportService exportService) *AdminController {
	return &AdminController{ProgressService: progressService, ExportService: exportService}
}

// GetUserProgress godoc
// @Summary A learner's progress
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "user id"
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Failure 400 {object} util.Response
// @Router /api/admin/users/{id}/progress [get]
func (c *AdminController) GetUserProgress(ctx *gin.Context) {
	userID, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	view, err := c.ProgressService.Get(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// ResetUserProgress godoc
// @Summary Reset a learner's progress
// @Description Replaces the record with an empty one and clears the quiz history. The only operation that lowers XP.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "user id"
// @Success 200 {object} util.Response{data=service.MutationResult}
// @Router /api/admin/users/{id}/progress/reset [post]
func (c *AdminController) ResetUserProgress(ctx *gin.Context) {
	userID, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "invalid user id")
		return
	}

	res, err := c.ProgressService.Reset(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if admin := util.GetUserFromContext(ctx); admin != nil {
		logger.Log.Info("Admin reset learner progress",
			zap.Uint("admin_id", admin.UserID),
			zap.Uint("user_id", userID))
	}
	util.Success(ctx, res)
}

// ExportProgress godoc
// @Summary Export all progress documents
// @Description Writes a JSON-lines snapshot to object storage
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 201 {object} util.Response{data=service.ExportResult}
// @Router /api/admin/export [post]
func (c *AdminController) ExportProgress(ctx *gin.Context) {
	res, err := c.ExportService.Export(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, res)
}
