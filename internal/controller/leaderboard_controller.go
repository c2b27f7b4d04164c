package controller

import (
	"context"

	"desorientado_backend/internal/service"
	"desorientado_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type leaderboardService interface {
	Top(ctx context.Context, limit int, viewerID uint) ([]service.LeaderboardEntry, error)
}

type LeaderboardController struct {
	LeaderboardService leaderboardService
}

func NewLeaderboardController(leaderboardService leaderboardService) *LeaderboardController {
	return &LeaderboardController{LeaderboardService: leaderboardService}
}

// GetLeaderboard godoc
// @Summary XP leaderboard
// @Description Public; with a token the caller's own row is flagged isMe
// @Tags leaderboard
// @Produce json
// @Param limit query int false "entries, 1..100" default(20)
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /api/leaderboard [get]
func (c *LeaderboardController) GetLeaderboard(ctx *gin.Context) {
	limit := util.ParseLimit(ctx.Query("limit"), service.DefaultLeaderboardLimit, service.MaxLeaderboardLimit)

	var viewer uint
	if user := util.GetUserFromContext(ctx); user != nil {
		viewer = user.UserID
	}

	entries, err := c.LeaderboardService.Top(ctx.Request.Context(), limit, viewer)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
