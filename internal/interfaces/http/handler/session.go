package handler

import (
	"context"

	floatapp "github.com/fxoffice/backend/internal/application/float"
	identityapp "github.com/fxoffice/backend/internal/application/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler handles Cx session (float) endpoints
type SessionHandler struct {
	BaseHandler
	service *floatapp.SessionService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(service *floatapp.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

type sessionTransition func(ctx context.Context, tenantID, sessionID uuid.UUID, actor floatapp.Actor) (*floatapp.SessionResponse, error)

type stackCount func(ctx context.Context, tenantID, sessionID, stackID uuid.UUID, actor floatapp.Actor, req floatapp.CountRequest) (*floatapp.SessionResponse, error)

type stackConfirm func(ctx context.Context, tenantID, sessionID, stackID uuid.UUID, actor floatapp.Actor) (*floatapp.SessionResponse, error)

func actorOf(p *identityapp.Principal) floatapp.Actor {
	return floatapp.Actor{UserID: p.UserID, IsAdmin: p.IsAdmin()}
}

func (h *SessionHandler) transition(c *gin.Context, fn sessionTransition) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	session, err := fn(c.Request.Context(), p.TenantID, id, actorOf(p))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

func (h *SessionHandler) count(c *gin.Context, fn stackCount) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	stackID, ok := h.uuidParam(c, "stack_id")
	if !ok {
		return
	}
	var req floatapp.CountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	session, err := fn(c.Request.Context(), p.TenantID, id, stackID, actorOf(p), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

func (h *SessionHandler) confirm(c *gin.Context, fn stackConfirm) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	stackID, ok := h.uuidParam(c, "stack_id")
	if !ok {
		return
	}
	session, err := fn(c.Request.Context(), p.TenantID, id, stackID, actorOf(p))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// Create godoc
// @ID           createCxSession
// @Summary      Create a dormant Cx session
// @Description  At most one unclosed session may exist per repository
// @Tags         cx-sessions
// @Accept       json
// @Produce      json
// @Param        request body floatapp.CreateSessionRequest true "Repository"
// @Success      201 {object} APIResponse[floatapp.SessionResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cx-sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	var req floatapp.CreateSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	session, err := h.service.CreateSession(c.Request.Context(), p.TenantID, actorOf(p), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, session)
}

// List godoc
// @ID           listCxSessions
// @Summary      List Cx sessions
// @Tags         cx-sessions
// @Produce      json
// @Param        repository_id query string false "Repository ID" format(uuid)
// @Param        status query string false "Session status"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]floatapp.SessionResponse]
// @Security     BearerAuth
// @Router       /cx-sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	var filter floatapp.SessionListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	sessions, total, err := h.service.List(c.Request.Context(), p.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, sessions, total, filter.Page, filter.PageSize)
}

// ActiveForRepository godoc
// @ID           getActiveCxSession
// @Summary      Get the unclosed session of a repository
// @Tags         cx-sessions
// @Produce      json
// @Param        id path string true "Repository ID" format(uuid)
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /repositories/{id}/active-session [get]
func (h *SessionHandler) ActiveForRepository(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	repoID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	session, err := h.service.ActiveForRepository(c.Request.Context(), p.TenantID, repoID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// Get godoc
// @ID           getCxSession
// @Summary      Get a Cx session
// @Tags         cx-sessions
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cx-sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	session, err := h.service.GetByID(c.Request.Context(), p.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// Summary godoc
// @ID           getCxSessionSummary
// @Summary      Per-currency reconciliation of a session
// @Description  Opening, midday and closing totals with bought, sold, expected close and variance
// @Tags         cx-sessions
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} APIResponse[floatapp.SessionSummaryResponse]
// @Security     BearerAuth
// @Router       /cx-sessions/{id}/summary [get]
func (h *SessionHandler) Summary(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), p.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// StartOpen godoc
// @ID           startCxSessionOpen
// @Summary      Begin the opening float count
// @Tags         cx-sessions
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body floatapp.StartOpenRequest true "Currencies"
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cx-sessions/{id}/open/start [post]
func (h *SessionHandler) StartOpen(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req floatapp.StartOpenRequest
	if !h.bindJSON(c, &req) {
		return
	}
	session, err := h.service.StartOpen(c.Request.Context(), p.TenantID, id, actorOf(p), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// RecordOpenCount godoc
// @ID           recordCxSessionOpenCount
// @Summary      Record opening counts for a stack
// @Tags         cx-sessions
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        stack_id path string true "Stack ID" format(uuid)
// @Param        request body floatapp.CountRequest true "Counts per denomination"
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cx-sessions/{id}/stacks/{stack_id}/open-count [put]
func (h *SessionHandler) RecordOpenCount(c *gin.Context) {
	h.count(c, h.service.RecordOpenCount)
}

// ConfirmOpenStack godoc
// @ID           confirmCxSessionOpenStack
// @Summary      Confirm a stack's opening count
// @Tags         cx-sessions
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        stack_id path string true "Stack ID" format(uuid)
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Security     BearerAuth
// @Router       /cx-sessions/{id}/stacks/{stack_id}/open-confirm [post]
func (h *SessionHandler) ConfirmOpenStack(c *gin.Context) {
	h.confirm(c, h.service.ConfirmOpenStack)
}

// CompleteOpen godoc
// @ID           completeCxSessionOpen
// @Summary      Finish opening; the session starts trading
// @Tags         cx-sessions
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cx-sessions/{id}/open/complete [post]
func (h *SessionHandler) CompleteOpen(c *gin.Context) {
	h.transition(c, h.service.CompleteOpen)
}

// RecordMiddayCount godoc
// @ID           recordCxSessionMiddayCount
// @Summary      Record an informational midday count
// @Tags         cx-sessions
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        stack_id path string true "Stack ID" format(uuid)
// @Param        request body floatapp.CountRequest true "Counts per denomination"
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Security     BearerAuth
// @Router       /cx-sessions/{id}/stacks/{stack_id}/midday-count [put]
func (h *SessionHandler) RecordMiddayCount(c *gin.Context) {
	h.count(c, h.service.RecordMiddayCount)
}

// StartClose godoc
// @ID           startCxSessionClose
// @Summary      Begin the closing float count
// @Tags         cx-sessions
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cx-sessions/{id}/close/start [post]
func (h *SessionHandler) StartClose(c *gin.Context) {
	h.transition(c, h.service.StartClose)
}

// RecordCloseCount godoc
// @ID           recordCxSessionCloseCount
// @Summary      Record closing counts for a stack
// @Tags         cx-sessions
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        stack_id path string true "Stack ID" format(uuid)
// @Param        request body floatapp.CountRequest true "Counts per denomination"
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Security     BearerAuth
// @Router       /cx-sessions/{id}/stacks/{stack_id}/close-count [put]
func (h *SessionHandler) RecordCloseCount(c *gin.Context) {
	h.count(c, h.service.RecordCloseCount)
}

// ConfirmCloseStack godoc
// @ID           confirmCxSessionCloseStack
// @Summary      Confirm a stack's closing count
// @Tags         cx-sessions
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        stack_id path string true "Stack ID" format(uuid)
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Security     BearerAuth
// @Router       /cx-sessions/{id}/stacks/{stack_id}/close-confirm [post]
func (h *SessionHandler) ConfirmCloseStack(c *gin.Context) {
	h.confirm(c, h.service.ConfirmCloseStack)
}

// CancelClose godoc
// @ID           cancelCxSessionClose
// @Summary      Abort closing and resume trading
// @Tags         cx-sessions
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Security     BearerAuth
// @Router       /cx-sessions/{id}/close/cancel [post]
func (h *SessionHandler) CancelClose(c *gin.Context) {
	h.transition(c, h.service.CancelClose)
}

// CompleteClose godoc
// @ID           completeCxSessionClose
// @Summary      Finish closing the session
// @Tags         cx-sessions
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} APIResponse[floatapp.SessionResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cx-sessions/{id}/close/complete [post]
func (h *SessionHandler) CompleteClose(c *gin.Context) {
	h.transition(c, h.service.CompleteClose)
}
