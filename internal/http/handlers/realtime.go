package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/nepq-coach-backend/internal/http/response"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/ctxutil"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
	"github.com/yungbote/nepq-coach-backend/internal/services"
)

type RealtimeHandler struct {
	Log        *logger.Logger
	Hub        *realtime.SSEHub
	recordings services.RecordingService
	live       services.LiveSessionService

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.SSEClient // key: SessionID (UserToken.ID)
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, recordings services.RecordingService, live services.LiveSessionService) *RealtimeHandler {
	return &RealtimeHandler{
		Log:        log.With("handler", "RealtimeHandler"),
		Hub:        hub,
		recordings: recordings,
		live:       live,
		clients:    make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// GET /api/sse/stream
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", apierr.ErrUnauthorized)
		return
	}
	if rd.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "missing_session", apierr.ErrUnauthorized)
		return
	}
	h.Log.Info("SSEStream open", "user_id", rd.UserID.String(), "session_id", rd.SessionID.String())

	h.mu.Lock()
	// A session reconnecting replaces its previous stream.
	if existing, ok := h.clients[rd.SessionID]; ok {
		h.Hub.CloseClient(existing)
		delete(h.clients, rd.SessionID)
	}
	client := h.Hub.NewSSEClient(rd.UserID)
	h.clients[rd.SessionID] = client
	h.mu.Unlock()

	h.Hub.AddChannel(client, realtime.UserChannel(rd.UserID.String()))
	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[rd.SessionID] == client {
		delete(h.clients, rd.SessionID)
		h.Hub.CloseClient(client)
	}
	h.mu.Unlock()
}

// POST /api/sse/subscribe
func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
	client, channel, ok := h.resolve(c)
	if !ok {
		return
	}
	if err := h.authorize(c.Request.Context(), channel); err != nil {
		response.RespondErr(c, err)
		return
	}
	// The stream may have closed while the channel was being authorized.
	if !h.Hub.AddChannel(client, channel) {
		response.RespondError(c, http.StatusConflict, "no_stream", apierr.ErrConflict)
		return
	}
	response.RespondOK(c, gin.H{"message": "subscribed", "channel": channel})
}

// POST /api/sse/unsubscribe
func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
	client, channel, ok := h.resolve(c)
	if !ok {
		return
	}
	h.Hub.RemoveChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "unsubscribed", "channel": channel})
}

func (h *RealtimeHandler) resolve(c *gin.Context) (*realtime.SSEClient, string, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil || rd.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", apierr.ErrUnauthorized)
		return nil, "", false
	}
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Channel) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_channel", errMissingField("channel"))
		return nil, "", false
	}
	h.mu.RLock()
	client, exists := h.clients[rd.SessionID]
	h.mu.RUnlock()
	if !exists {
		response.RespondError(c, http.StatusConflict, "no_stream", apierr.ErrConflict)
		return nil, "", false
	}
	return client, strings.TrimSpace(req.Channel), true
}

// authorize allows the caller's own user channel and the channels of
// recordings, stored or live, the caller may see.
func (h *RealtimeHandler) authorize(ctx context.Context, channel string) error {
	rd := ctxutil.GetRequestData(ctx)
	if channel == realtime.UserChannel(rd.UserID.String()) {
		return nil
	}
	raw, ok := strings.CutPrefix(channel, realtime.RecordingChannel(""))
	if !ok {
		return apierr.Forbidden("channel_forbidden", "channel %q", channel)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return apierr.Invalid("invalid_channel", "channel %q", channel)
	}
	if h.recordings != nil {
		if _, err := h.recordings.Get(dbctx.Context{Ctx: ctx}, id); err == nil {
			return nil
		}
	}
	if h.live != nil {
		if _, err := h.live.Watch(ctx, id); err == nil {
			return nil
		}
	}
	return apierr.NotFound("recording_not_found", "recording %s", id)
}
