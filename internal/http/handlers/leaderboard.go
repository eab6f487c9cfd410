package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/nepq-coach-backend/internal/http/response"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/services"
)

type LeaderboardHandler struct {
	leaderboard services.LeaderboardService
}

func NewLeaderboardHandler(leaderboard services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// GET /api/leaderboard?period=week|month|all&teamId=&limit=
func (h *LeaderboardHandler) Get(c *gin.Context) {
	teamID, err := queryID(c, "teamId")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_team_id", err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
		return
	}
	board, err := h.leaderboard.Get(dbctx.Context{Ctx: c.Request.Context()}, services.LeaderboardQuery{
		TeamID: teamID,
		Period: c.Query("period"),
		Limit:  limit,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"leaderboard": board})
}
