package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/nepq-coach-backend/internal/http/response"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/recorder"
	"github.com/yungbote/nepq-coach-backend/internal/services"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 64 << 10
)

type LiveHandler struct {
	log      *logger.Logger
	live     services.LiveSessionService
	upgrader websocket.Upgrader
}

// NewLiveHandler accepts websocket upgrades from allowedOrigins, or from any
// origin when the list is empty.
func NewLiveHandler(log *logger.Logger, live services.LiveSessionService, allowedOrigins []string) *LiveHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &LiveHandler{
		log:  log.With("handler", "LiveHandler"),
		live: live,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

func (h *LiveHandler) snapshot(c *gin.Context, snap recorder.Snapshot, err error) {
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": snap})
}

// POST /api/live/start
// body: { "scenarioId": "..." }
func (h *LiveHandler) Start(c *gin.Context) {
	var req struct {
		ScenarioID string `json:"scenarioId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	scenarioID, err := uuid.Parse(req.ScenarioID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_scenario_id", err)
		return
	}
	snap, err := h.live.Start(c.Request.Context(), scenarioID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"session": snap})
}

// POST /api/live/pause
func (h *LiveHandler) Pause(c *gin.Context) {
	snap, err := h.live.Pause(c.Request.Context())
	h.snapshot(c, snap, err)
}

// POST /api/live/resume
func (h *LiveHandler) Resume(c *gin.Context) {
	snap, err := h.live.Resume(c.Request.Context())
	h.snapshot(c, snap, err)
}

// POST /api/live/stop
func (h *LiveHandler) Stop(c *gin.Context) {
	snap, err := h.live.Stop(c.Request.Context())
	h.snapshot(c, snap, err)
}

// GET /api/live
func (h *LiveHandler) Snapshot(c *gin.Context) {
	snap, err := h.live.Snapshot(c.Request.Context())
	h.snapshot(c, snap, err)
}

// GET /api/live/:id/watch
func (h *LiveHandler) Watch(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_recording_id")
	if !ok {
		return
	}
	snap, err := h.live.Watch(c.Request.Context(), id)
	h.snapshot(c, snap, err)
}

// POST /api/live/stage
// body: { "stage": 3 }
func (h *LiveHandler) SetStage(c *gin.Context) {
	var req struct {
		Stage *int `json:"stage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Stage == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissingField("stage"))
		return
	}
	snap, err := h.live.SetStage(c.Request.Context(), *req.Stage)
	h.snapshot(c, snap, err)
}

// POST /api/live/turns
func (h *LiveHandler) AddTurn(c *gin.Context) {
	var turn nepq.TranscriptTurn
	if err := c.ShouldBindJSON(&turn); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	stored, err := h.live.AddTurn(c.Request.Context(), turn)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"turn": stored})
}

// PATCH /api/live/turns/:turnId
func (h *LiveHandler) UpdateTurn(c *gin.Context) {
	var patch recorder.TurnPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	turn, err := h.live.UpdateTurn(c.Request.Context(), c.Param("turnId"), patch)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"turn": turn})
}

// POST /api/live/violations
func (h *LiveHandler) Annotate(c *gin.Context) {
	var v nepq.Violation
	if err := c.ShouldBindJSON(&v); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.live.Annotate(c.Request.Context(), v); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"violation": v})
}

// POST /api/live/audio
// body: { "level": 0.4 }
func (h *LiveHandler) SetAudioLevel(c *gin.Context) {
	var req struct {
		Level *float64 `json:"level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Level == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissingField("level"))
		return
	}
	if err := h.live.SetAudioLevel(c.Request.Context(), *req.Level); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/live/device
// body: { "deviceId": "..." }
func (h *LiveHandler) SetDevice(c *gin.Context) {
	var req struct {
		DeviceID string `json:"deviceId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.live.SetDevice(c.Request.Context(), req.DeviceID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/live/finish
func (h *LiveHandler) Finish(c *gin.Context) {
	var req services.FinishLiveInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := h.live.Finish(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"recording": view})
}

// DELETE /api/live
func (h *LiveHandler) Discard(c *gin.Context) {
	if err := h.live.Discard(c.Request.Context()); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// wsCommand is one client frame on the live socket.
type wsCommand struct {
	Type      string               `json:"type"`
	Turn      *nepq.TranscriptTurn `json:"turn,omitempty"`
	TurnID    string               `json:"turnId,omitempty"`
	Patch     *recorder.TurnPatch  `json:"patch,omitempty"`
	Stage     int                  `json:"stage,omitempty"`
	Violation *nepq.Violation      `json:"violation,omitempty"`
	Level     float64              `json:"level,omitempty"`
	DeviceID  string               `json:"deviceId,omitempty"`
}

type wsReply struct {
	Type    string               `json:"type"`
	Op      string               `json:"op,omitempty"`
	Session *recorder.Snapshot   `json:"session,omitempty"`
	Turn    *nepq.TranscriptTurn `json:"turn,omitempty"`
	Error   *response.APIError   `json:"error,omitempty"`
}

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteJSON(v)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// GET /api/live/ws?token=
// Frames are applied to the caller's live session in arrival order, and
// each one is answered with an ack or an error frame.
func (h *LiveHandler) Socket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade live socket", "error", err)
		return
	}
	defer conn.Close()
	ctx := c.Request.Context()
	ws := &wsConn{conn: conn}

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := ws.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Live socket closed", "error", err)
			}
			return
		}
		var cmd wsCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			_ = ws.write(wsReply{Type: "error", Error: &response.APIError{Message: err.Error(), Code: "invalid_frame"}})
			continue
		}
		reply := h.apply(ctx, cmd)
		if err := ws.write(reply); err != nil {
			return
		}
	}
}

func (h *LiveHandler) apply(ctx context.Context, cmd wsCommand) wsReply {
	var (
		snap recorder.Snapshot
		turn nepq.TranscriptTurn
		err  error
	)
	withSnap, withTurn := false, false
	switch cmd.Type {
	case "turn":
		if cmd.Turn == nil {
			err = errMissingField("turn")
			break
		}
		turn, err = h.live.AddTurn(ctx, *cmd.Turn)
		withTurn = true
	case "updateTurn":
		if cmd.Patch == nil {
			err = errMissingField("patch")
			break
		}
		turn, err = h.live.UpdateTurn(ctx, cmd.TurnID, *cmd.Patch)
		withTurn = true
	case "stage":
		snap, err = h.live.SetStage(ctx, cmd.Stage)
		withSnap = true
	case "violation":
		if cmd.Violation == nil {
			err = errMissingField("violation")
			break
		}
		err = h.live.Annotate(ctx, *cmd.Violation)
	case "audio":
		err = h.live.SetAudioLevel(ctx, cmd.Level)
	case "device":
		err = h.live.SetDevice(ctx, cmd.DeviceID)
	case "pause":
		snap, err = h.live.Pause(ctx)
		withSnap = true
	case "resume":
		snap, err = h.live.Resume(ctx)
		withSnap = true
	case "snapshot":
		snap, err = h.live.Snapshot(ctx)
		withSnap = true
	default:
		err = fmt.Errorf("unknown frame type %q", cmd.Type)
	}
	if err != nil {
		_, code := response.Classify(err)
		return wsReply{Type: "error", Op: cmd.Type, Error: &response.APIError{Message: err.Error(), Code: code}}
	}
	reply := wsReply{Type: "ack", Op: cmd.Type}
	if withSnap {
		reply.Session = &snap
	}
	if withTurn {
		reply.Turn = &turn
	}
	return reply
}
