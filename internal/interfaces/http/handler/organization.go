package handler

import (
	identityapp "github.com/fxoffice/backend/internal/application/identity"
	"github.com/fxoffice/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrganizationHandler handles organization, membership and active-organization endpoints
type OrganizationHandler struct {
	BaseHandler
	service *identityapp.OrganizationService
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(service *identityapp.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

// ownOrganization parses :id and rejects organizations other than the caller's active one
func (h *OrganizationHandler) ownOrganization(c *gin.Context, adminOnly bool) (*identityapp.Principal, uuid.UUID, bool) {
	var (
		p  *identityapp.Principal
		ok bool
	)
	if adminOnly {
		p, ok = h.adminPrincipal(c)
	} else {
		p, ok = h.tenantPrincipal(c)
	}
	if !ok {
		return nil, uuid.Nil, false
	}
	orgID, ok := h.uuidParam(c, "id")
	if !ok {
		return nil, uuid.Nil, false
	}
	if orgID != p.TenantID {
		h.Forbidden(c, "Organization is not the active organization")
		return nil, uuid.Nil, false
	}
	return p, orgID, true
}

// Create godoc
// @ID           createOrganization
// @Summary      Create an organization
// @Description  Creates the organization at the identity provider and locally; the caller becomes admin
// @Tags         organizations
// @Accept       json
// @Produce      json
// @Param        request body identityapp.CreateOrganizationRequest true "Organization"
// @Success      201 {object} APIResponse[identityapp.OrganizationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /organizations [post]
func (h *OrganizationHandler) Create(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req identityapp.CreateOrganizationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	org, err := h.service.CreateOrganization(c.Request.Context(), p.UserID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, org)
}

// ListMine godoc
// @ID           listMyOrganizations
// @Summary      List the caller's organizations
// @Tags         organizations
// @Produce      json
// @Success      200 {object} APIResponse[[]identityapp.OrganizationResponse]
// @Security     BearerAuth
// @Router       /organizations [get]
func (h *OrganizationHandler) ListMine(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	orgs, err := h.service.ListOrganizationsForUser(c.Request.Context(), p.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orgs)
}

// Get godoc
// @ID           getOrganization
// @Summary      Get the active organization
// @Tags         organizations
// @Produce      json
// @Param        id path string true "Organization ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.OrganizationResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /organizations/{id} [get]
func (h *OrganizationHandler) Get(c *gin.Context) {
	_, orgID, ok := h.ownOrganization(c, false)
	if !ok {
		return
	}
	org, err := h.service.GetOrganization(c.Request.Context(), orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, org)
}

// Update godoc
// @ID           updateOrganization
// @Summary      Update the active organization
// @Tags         organizations
// @Accept       json
// @Produce      json
// @Param        id path string true "Organization ID" format(uuid)
// @Param        request body identityapp.UpdateOrganizationRequest true "Changes"
// @Success      200 {object} APIResponse[identityapp.OrganizationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /organizations/{id} [put]
func (h *OrganizationHandler) Update(c *gin.Context) {
	_, orgID, ok := h.ownOrganization(c, true)
	if !ok {
		return
	}
	var req identityapp.UpdateOrganizationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	org, err := h.service.UpdateOrganization(c.Request.Context(), orgID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, org)
}

// Delete godoc
// @ID           deleteOrganization
// @Summary      Delete the active organization
// @Tags         organizations
// @Param        id path string true "Organization ID" format(uuid)
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /organizations/{id} [delete]
func (h *OrganizationHandler) Delete(c *gin.Context) {
	_, orgID, ok := h.ownOrganization(c, true)
	if !ok {
		return
	}
	if err := h.service.DeleteOrganization(c.Request.Context(), orgID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListMembers godoc
// @ID           listOrganizationMembers
// @Summary      List members of the active organization
// @Tags         organizations
// @Produce      json
// @Param        id path string true "Organization ID" format(uuid)
// @Success      200 {object} APIResponse[[]identityapp.MemberResponse]
// @Security     BearerAuth
// @Router       /organizations/{id}/members [get]
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	_, orgID, ok := h.ownOrganization(c, false)
	if !ok {
		return
	}
	members, err := h.service.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, members)
}

// AddMember godoc
// @ID           addOrganizationMember
// @Summary      Add a member
// @Tags         organizations
// @Accept       json
// @Produce      json
// @Param        id path string true "Organization ID" format(uuid)
// @Param        request body identityapp.AddMemberRequest true "Member"
// @Success      201 {object} APIResponse[identityapp.MemberResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /organizations/{id}/members [post]
func (h *OrganizationHandler) AddMember(c *gin.Context) {
	_, orgID, ok := h.ownOrganization(c, true)
	if !ok {
		return
	}
	var req identityapp.AddMemberRequest
	if !h.bindJSON(c, &req) {
		return
	}
	member, err := h.service.AddMember(c.Request.Context(), orgID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, member)
}

// UpdateMemberRole godoc
// @ID           updateOrganizationMemberRole
// @Summary      Change a member's role
// @Tags         organizations
// @Accept       json
// @Produce      json
// @Param        id path string true "Organization ID" format(uuid)
// @Param        user_id path string true "User ID" format(uuid)
// @Param        request body identityapp.UpdateMemberRoleRequest true "Role"
// @Success      200 {object} APIResponse[identityapp.MemberResponse]
// @Security     BearerAuth
// @Router       /organizations/{id}/members/{user_id} [put]
func (h *OrganizationHandler) UpdateMemberRole(c *gin.Context) {
	_, orgID, ok := h.ownOrganization(c, true)
	if !ok {
		return
	}
	userID, ok := h.uuidParam(c, "user_id")
	if !ok {
		return
	}
	var req identityapp.UpdateMemberRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	member, err := h.service.UpdateMemberRole(c.Request.Context(), orgID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, member)
}

// RemoveMember godoc
// @ID           removeOrganizationMember
// @Summary      Remove a member
// @Tags         organizations
// @Param        id path string true "Organization ID" format(uuid)
// @Param        user_id path string true "User ID" format(uuid)
// @Success      204
// @Security     BearerAuth
// @Router       /organizations/{id}/members/{user_id} [delete]
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	_, orgID, ok := h.ownOrganization(c, true)
	if !ok {
		return
	}
	userID, ok := h.uuidParam(c, "user_id")
	if !ok {
		return
	}
	if err := h.service.RemoveMember(c.Request.Context(), orgID, userID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// SetActiveOrganization godoc
// @ID           setActiveOrganization
// @Summary      Switch the session's active organization
// @Tags         organizations
// @Accept       json
// @Produce      json
// @Param        request body identityapp.SetActiveOrganizationRequest true "Organization"
// @Success      200 {object} APIResponse[identityapp.OrganizationResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sessions/active-organization [put]
func (h *OrganizationHandler) SetActiveOrganization(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req identityapp.SetActiveOrganizationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	sessionID := ""
	if claims := middleware.GetJWTClaims(c); claims != nil {
		sessionID = claims.SessionID
	}
	if sessionID == "" {
		h.BadRequest(c, "Token carries no session")
		return
	}
	org, err := h.service.SetActiveOrganization(c.Request.Context(), p.UserID, sessionID, req.OrganizationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, org)
}
