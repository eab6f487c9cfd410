package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/nepq-coach-backend/internal/http/response"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/services"
)

type ScenarioHandler struct {
	scenarios services.ScenarioService
}

func NewScenarioHandler(scenarios services.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{scenarios: scenarios}
}

// GET /api/scenarios?category=&difficulty=&personaId=&isActive=
func (h *ScenarioHandler) List(c *gin.Context) {
	personaID, err := queryID(c, "personaId")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_persona_id", err)
		return
	}
	active, err := queryBool(c, "isActive")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	views, err := h.scenarios.List(dbctx.Context{Ctx: c.Request.Context()}, services.ScenarioListFilter{
		Category:   c.Query("category"),
		Difficulty: c.Query("difficulty"),
		PersonaID:  personaID,
		IsActive:   active,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"data": views})
}

// GET /api/scenarios/:id
func (h *ScenarioHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_scenario_id")
	if !ok {
		return
	}
	view, err := h.scenarios.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"scenario": view})
}

// POST /api/scenarios
func (h *ScenarioHandler) Create(c *gin.Context) {
	var req services.CreateScenarioInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := h.scenarios.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"scenario": view})
}

// PATCH /api/scenarios/:id/active
// body: { "isActive": false }
func (h *ScenarioHandler) SetActive(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_scenario_id")
	if !ok {
		return
	}
	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissingField("isActive"))
		return
	}
	if err := h.scenarios.SetActive(c.Request.Context(), id, *req.IsActive); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "isActive": *req.IsActive})
}

type PersonaHandler struct {
	personas services.PersonaService
}

func NewPersonaHandler(personas services.PersonaService) *PersonaHandler {
	return &PersonaHandler{personas: personas}
}

// GET /api/personas
func (h *PersonaHandler) List(c *gin.Context) {
	rows, err := h.personas.List(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"data": rows})
}

// GET /api/personas/:id
func (h *PersonaHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_persona_id")
	if !ok {
		return
	}
	p, err := h.personas.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	traits, err := h.personas.Traits(p)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"persona": p, "traits": traits})
}
