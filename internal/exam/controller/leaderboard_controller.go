package controller

import (
	"examhall/internal/exam/service"
	"examhall/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// LeaderboardController serves the recomputed-on-read standings.
type LeaderboardController struct {
	leaderboard *service.LeaderboardService
}

// NewLeaderboardController creates a new LeaderboardController.
func NewLeaderboardController(leaderboard *service.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{leaderboard: leaderboard}
}

// Get returns the current leaderboard for the exam.
func (h *LeaderboardController) Get(c *gin.Context) {
	board, err := h.leaderboard.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, board)
}
