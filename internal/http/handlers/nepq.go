package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/nepq-coach-backend/internal/http/response"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/nepq/analytics"
)

type NEPQHandler struct {
	scorer nepq.Scorer
}

func NewNEPQHandler(scorer nepq.Scorer) *NEPQHandler {
	return &NEPQHandler{scorer: scorer}
}

type stageView struct {
	nepq.StageInfo
	Color string `json:"color"`
}

func toStageView(info nepq.StageInfo) stageView {
	return stageView{StageInfo: info, Color: nepq.StageColor(info.Ordinal)}
}

// GET /api/nepq/stages
func (h *NEPQHandler) ListStages(c *gin.Context) {
	stages := nepq.Stages()
	out := make([]stageView, 0, len(stages))
	for _, s := range stages {
		out = append(out, toStageView(s))
	}
	response.RespondOK(c, gin.H{"stages": out})
}

// GET /api/nepq/stages/:ordinal
func (h *NEPQHandler) GetStage(c *gin.Context) {
	ordinal, err := strconv.Atoi(c.Param("ordinal"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_ordinal", err)
		return
	}
	info, err := nepq.LookupStage(ordinal)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"stage": toStageView(info)})
}

// POST /api/nepq/score
// body: { "breakdown": {...}, "transcript": { "turns": [...] } }
// With a transcript, talkRatio, fillerWords and questionRatio are measured
// from it instead of taken from the breakdown.
func (h *NEPQHandler) Score(c *gin.Context) {
	var req struct {
		Breakdown  nepq.ScoreBreakdown `json:"breakdown"`
		Transcript *nepq.Transcript    `json:"transcript"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	var turns []nepq.TranscriptTurn
	if req.Transcript != nil {
		turns = req.Transcript.Turns
	}
	res, err := analytics.Score(c.Request.Context(), h.scorer, req.Breakdown, turns)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}
