package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aviorian/monad-mindshare/internal/domain"
)

// Leaderboard is the part of services.LeaderboardService the API uses.
type Leaderboard interface {
	Snapshot() domain.LeaderboardSnapshot
	Refresh(ctx context.Context) (domain.LeaderboardSnapshot, error)
}

type LeaderboardController struct {
	leaderboard Leaderboard
}

func NewLeaderboardController(leaderboard Leaderboard) *LeaderboardController {
	return &LeaderboardController{leaderboard: leaderboard}
}

func (c *LeaderboardController) RegisterLeaderboardRoutes(rg *gin.RouterGroup) {
	rg.GET("/leaderboard", c.handleGetLeaderboard)
	rg.POST("/leaderboard/refresh", c.handleRefresh)
}

func (c *LeaderboardController) handleGetLeaderboard(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.leaderboard.Snapshot())
}

func (c *LeaderboardController) handleRefresh(ctx *gin.Context) {
	snap, err := c.leaderboard.Refresh(ctx.Request.Context())
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{
			"error":    err.Error(),
			"retry":    true,
			"snapshot": c.leaderboard.Snapshot(),
		})
		return
	}
	ctx.JSON(http.StatusOK, snap)
}
