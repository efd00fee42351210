package handler

import (
	vaultapp "github.com/fxoffice/backend/internal/application/vault"
	"github.com/gin-gonic/gin"
)

// RepositoryHandler handles cash and crypto repository endpoints
type RepositoryHandler struct {
	BaseHandler
	service *vaultapp.RepositoryService
}

// NewRepositoryHandler creates a new RepositoryHandler
func NewRepositoryHandler(service *vaultapp.RepositoryService) *RepositoryHandler {
	return &RepositoryHandler{service: service}
}

// Create godoc
// @ID           createRepository
// @Summary      Create a repository
// @Tags         repositories
// @Accept       json
// @Produce      json
// @Param        request body vaultapp.CreateRepositoryRequest true "Repository"
// @Success      201 {object} APIResponse[vaultapp.RepositoryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /repositories [post]
func (h *RepositoryHandler) Create(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	var req vaultapp.CreateRepositoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.CreatedBy = &p.UserID
	repo, err := h.service.Create(c.Request.Context(), p.TenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, repo)
}

// List godoc
// @ID           listRepositories
// @Summary      List repositories
// @Description  Admins see every repository; members see those they are authorized on
// @Tags         repositories
// @Produce      json
// @Param        search query string false "Search by key or name"
// @Param        status query string false "ACTIVE or INACTIVE"
// @Param        type query string false "CASH or CRYPTO"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]vaultapp.RepositoryResponse]
// @Security     BearerAuth
// @Router       /repositories [get]
func (h *RepositoryHandler) List(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	if !p.IsAdmin() {
		repos, err := h.service.ListForUser(c.Request.Context(), p.TenantID, p.UserID, false)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, repos)
		return
	}

	var filter vaultapp.RepositoryListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	repos, total, err := h.service.List(c.Request.Context(), p.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, repos, total, filter.Page, filter.PageSize)
}

// Get godoc
// @ID           getRepository
// @Summary      Get a repository
// @Tags         repositories
// @Produce      json
// @Param        id path string true "Repository ID" format(uuid)
// @Success      200 {object} APIResponse[vaultapp.RepositoryResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /repositories/{id} [get]
func (h *RepositoryHandler) Get(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	allowed, err := h.service.IsAuthorized(c.Request.Context(), p.TenantID, id, p.UserID, p.IsAdmin())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !allowed {
		h.Forbidden(c, "Not authorized on this repository")
		return
	}
	repo, err := h.service.GetByID(c.Request.Context(), p.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, repo)
}

// Update godoc
// @ID           updateRepository
// @Summary      Update a repository
// @Tags         repositories
// @Accept       json
// @Produce      json
// @Param        id path string true "Repository ID" format(uuid)
// @Param        request body vaultapp.UpdateRepositoryRequest true "Changes"
// @Success      200 {object} APIResponse[vaultapp.RepositoryResponse]
// @Security     BearerAuth
// @Router       /repositories/{id} [put]
func (h *RepositoryHandler) Update(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req vaultapp.UpdateRepositoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	repo, err := h.service.Update(c.Request.Context(), p.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, repo)
}

// Activate godoc
// @ID           activateRepository
// @Summary      Activate a repository
// @Tags         repositories
// @Produce      json
// @Param        id path string true "Repository ID" format(uuid)
// @Success      200 {object} APIResponse[vaultapp.RepositoryResponse]
// @Security     BearerAuth
// @Router       /repositories/{id}/activate [post]
func (h *RepositoryHandler) Activate(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	repo, err := h.service.Activate(c.Request.Context(), p.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, repo)
}

// Deactivate godoc
// @ID           deactivateRepository
// @Summary      Deactivate a repository
// @Description  Fails while a Cx session is open on the repository
// @Tags         repositories
// @Produce      json
// @Param        id path string true "Repository ID" format(uuid)
// @Success      200 {object} APIResponse[vaultapp.RepositoryResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /repositories/{id}/deactivate [post]
func (h *RepositoryHandler) Deactivate(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	repo, err := h.service.Deactivate(c.Request.Context(), p.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, repo)
}

// Delete godoc
// @ID           deleteRepository
// @Summary      Delete a repository
// @Tags         repositories
// @Param        id path string true "Repository ID" format(uuid)
// @Success      204
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /repositories/{id} [delete]
func (h *RepositoryHandler) Delete(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), p.TenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListAuthorizedUsers godoc
// @ID           listRepositoryAuthorizedUsers
// @Summary      List users authorized on a repository
// @Tags         repositories
// @Produce      json
// @Param        id path string true "Repository ID" format(uuid)
// @Success      200 {object} APIResponse[[]vaultapp.AuthorizedUserResponse]
// @Security     BearerAuth
// @Router       /repositories/{id}/authorized-users [get]
func (h *RepositoryHandler) ListAuthorizedUsers(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	users, err := h.service.ListAuthorizedUsers(c.Request.Context(), p.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, users)
}

// AuthorizeUser godoc
// @ID           authorizeRepositoryUser
// @Summary      Authorize a member on a repository
// @Tags         repositories
// @Accept       json
// @Produce      json
// @Param        id path string true "Repository ID" format(uuid)
// @Param        request body vaultapp.AuthorizeUserRequest true "User"
// @Success      200 {object} APIResponse[vaultapp.RepositoryResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /repositories/{id}/authorized-users [post]
func (h *RepositoryHandler) AuthorizeUser(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req vaultapp.AuthorizeUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	repo, err := h.service.AuthorizeUser(c.Request.Context(), p.TenantID, id, req.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, repo)
}

// RevokeUser godoc
// @ID           revokeRepositoryUser
// @Summary      Revoke a member's repository access
// @Tags         repositories
// @Produce      json
// @Param        id path string true "Repository ID" format(uuid)
// @Param        user_id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[vaultapp.RepositoryResponse]
// @Security     BearerAuth
// @Router       /repositories/{id}/authorized-users/{user_id} [delete]
func (h *RepositoryHandler) RevokeUser(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := h.uuidParam(c, "user_id")
	if !ok {
		return
	}
	repo, err := h.service.RevokeUser(c.Request.Context(), p.TenantID, id, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, repo)
}
