package handler

import (
	tradeapp "github.com/fxoffice/backend/internal/application/trade"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NoteHandler handles free-text notes on orders, customers and sessions
type NoteHandler struct {
	BaseHandler
	service *tradeapp.NoteService
}

// NewNoteHandler creates a new NoteHandler
func NewNoteHandler(service *tradeapp.NoteService) *NoteHandler {
	return &NoteHandler{service: service}
}

// Create godoc
// @ID           createNote
// @Summary      Add a note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Param        request body tradeapp.CreateNoteRequest true "Note"
// @Success      201 {object} APIResponse[tradeapp.NoteResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	var req tradeapp.CreateNoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	note, err := h.service.AddNote(c.Request.Context(), p.TenantID, tradeActor(p), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, note)
}

// List godoc
// @ID           listNotes
// @Summary      List the notes of a subject
// @Tags         notes
// @Produce      json
// @Param        subject_type query string true "ORDER, CUSTOMER or SESSION"
// @Param        subject_id query string true "Subject ID" format(uuid)
// @Success      200 {object} APIResponse[[]tradeapp.NoteResponse]
// @Security     BearerAuth
// @Router       /notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	var filter tradeapp.NoteListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	notes, err := h.service.ListNotes(c.Request.Context(), p.TenantID, filter.SubjectType, uuid.MustParse(filter.SubjectID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, notes)
}

// Update godoc
// @ID           updateNote
// @Summary      Edit a note
// @Description  Only the author may edit a note
// @Tags         notes
// @Accept       json
// @Produce      json
// @Param        id path string true "Note ID" format(uuid)
// @Param        request body tradeapp.UpdateNoteRequest true "Body"
// @Success      200 {object} APIResponse[tradeapp.NoteResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notes/{id} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req tradeapp.UpdateNoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	note, err := h.service.UpdateNote(c.Request.Context(), p.TenantID, id, tradeActor(p), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, note)
}

// Delete godoc
// @ID           deleteNote
// @Summary      Delete a note
// @Description  The author or an admin may delete a note
// @Tags         notes
// @Param        id path string true "Note ID" format(uuid)
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteNote(c.Request.Context(), p.TenantID, id, tradeActor(p)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
