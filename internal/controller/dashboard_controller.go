package controller

import (
	"context"
	"time"

	"desorientado_backend/internal/service"
	"desorientado_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type dashboardService interface {
	Get(ctx context.Context, today string) (*service.Dashboard, error)
}

type DashboardController struct {
	DashboardService dashboardService
	Location         *time.Location
}

func NewDashboardController(dashboardService dashboardService, loc *time.Location) *DashboardController {
	return &DashboardController{DashboardService: dashboardService, Location: loc}
}

// GetDashboard godoc
// @Summary Admin dashboard
// @Description User counts, active learners, XP totals, level distribution and recent activity
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Dashboard}
// @Failure 403 {object} util.Response
// @Router /api/admin/dashboard [get]
func (c *DashboardController) GetDashboard(ctx *gin.Context) {
	today, err := util.RequestDate(ctx, time.Now(), c.Location)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	dashboard, err := c.DashboardService.Get(ctx.Request.Context(), today)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, dashboard)
}
