package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/nepq-coach-backend/internal/http/response"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
	"github.com/yungbote/nepq-coach-backend/internal/services"
)

type RecordingHandler struct {
	log        *logger.Logger
	recordings services.RecordingService
	comments   services.CommentService
	replay     services.TranscriptReplayService
}

func NewRecordingHandler(
	log *logger.Logger,
	recordings services.RecordingService,
	comments services.CommentService,
	replay services.TranscriptReplayService,
) *RecordingHandler {
	return &RecordingHandler{
		log:        log.With("handler", "RecordingHandler"),
		recordings: recordings,
		comments:   comments,
		replay:     replay,
	}
}

// GET /api/recordings?userId=&scenarioId=&bookmarked=&limit=&offset=
func (h *RecordingHandler) List(c *gin.Context) {
	var filter services.RecordingListFilter
	var err error
	if filter.UserID, err = queryID(c, "userId"); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	if filter.ScenarioID, err = queryID(c, "scenarioId"); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_scenario_id", err)
		return
	}
	if filter.Bookmarked, err = queryBool(c, "bookmarked"); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_offset", err)
		return
	}
	page, err := h.recordings.List(dbctx.Context{Ctx: c.Request.Context()}, filter)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"data": page.Recordings, "pagination": page.Pagination})
}

// POST /api/recordings
func (h *RecordingHandler) Create(c *gin.Context) {
	var req services.CreateRecordingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := h.recordings.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"recording": view})
}

// GET /api/recordings/:id
func (h *RecordingHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_recording_id")
	if !ok {
		return
	}
	view, err := h.recordings.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"recording": view})
}

// PUT /api/recordings/:id
// Stores the edits as a new version; the addressed version is left as is.
func (h *RecordingHandler) Revise(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_recording_id")
	if !ok {
		return
	}
	var req services.ReviseRecordingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := h.recordings.Revise(c.Request.Context(), id, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"recording": view})
}

// POST /api/recordings/:id/bookmark
func (h *RecordingHandler) ToggleBookmark(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_recording_id")
	if !ok {
		return
	}
	bookmarked, err := h.recordings.ToggleBookmark(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"isBookmarked": bookmarked})
}

// POST /api/recordings/:id/rescore
func (h *RecordingHandler) Rescore(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_recording_id")
	if !ok {
		return
	}
	view, changed, err := h.recordings.Rescore(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"recording": view, "changed": changed})
}

// GET /api/recordings/:id/comments
func (h *RecordingHandler) ListComments(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_recording_id")
	if !ok {
		return
	}
	threads, err := h.comments.List(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"data": threads})
}

// POST /api/recordings/:id/comments
func (h *RecordingHandler) AddComment(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_recording_id")
	if !ok {
		return
	}
	var req services.AddCommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	comment, err := h.comments.Add(c.Request.Context(), id, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"comment": comment})
}

// POST /api/comments/:id/reactions
// body: { "emoji": "👍" }
func (h *RecordingHandler) React(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_comment_id")
	if !ok {
		return
	}
	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Emoji) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissingField("emoji"))
		return
	}
	reactions, err := h.comments.React(c.Request.Context(), id, req.Emoji)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"reactions": reactions})
}

// GET /api/recordings/:id/transcript/stream?speed=
// Replays the stored turns as server-sent events at their original pace.
func (h *RecordingHandler) StreamTranscript(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_recording_id")
	if !ok {
		return
	}
	speed, err := queryFloat(c, "speed", services.DefaultReplaySpeed)
	if err != nil || speed < 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_speed", errMissingField("speed >= 0"))
		return
	}
	// Visibility is checked before the stream headers go out so a missing
	// recording still gets a JSON error.
	if _, err := h.recordings.Get(dbctx.Context{Ctx: c.Request.Context()}, id); err != nil {
		response.RespondErr(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	sent := 0
	err = h.replay.Replay(c.Request.Context(), id, speed, func(chunk services.StreamChunk) error {
		c.SSEvent(string(realtime.SSEEventTranscriptChunk), chunk)
		c.Writer.Flush()
		sent++
		return nil
	})
	if err != nil {
		h.log.Debug("Transcript replay ended early", "recording_id", id, "sent", sent, "error", err)
		return
	}
	c.SSEvent(string(realtime.SSEEventTranscriptDone), gin.H{"recordingId": id, "chunks": sent})
	c.Writer.Flush()
}
