package handler

import (
	partnerapp "github.com/fxoffice/backend/internal/application/partner"
	"github.com/gin-gonic/gin"
)

// CustomerHandler handles customer, identification and KYC endpoints
type CustomerHandler struct {
	BaseHandler
	service *partnerapp.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(service *partnerapp.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: service}
}

// Create godoc
// @ID           createCustomer
// @Summary      Register a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        request body partnerapp.CreateCustomerRequest true "Customer"
// @Success      201 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	var req partnerapp.CreateCustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	customer, err := h.service.Create(c.Request.Context(), p.TenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, customer)
}

// List godoc
// @ID           listCustomers
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Param        search query string false "Search by name, email or phone"
// @Param        kyc_status query string false "KYC status"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]partnerapp.CustomerListResponse]
// @Security     BearerAuth
// @Router       /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	var filter partnerapp.CustomerListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	customers, total, err := h.service.List(c.Request.Context(), p.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, customers, total, filter.Page, filter.PageSize)
}

// KYCCounts godoc
// @ID           countCustomersByKYCStatus
// @Summary      Count customers per KYC status
// @Tags         customers
// @Produce      json
// @Success      200 {object} APIResponse[KYCStatusCounts]
// @Security     BearerAuth
// @Router       /customers/kyc-counts [get]
func (h *CustomerHandler) KYCCounts(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	counts, err := h.service.CountByKYCStatus(c.Request.Context(), p.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, KYCStatusCounts(counts))
}

// Get godoc
// @ID           getCustomer
// @Summary      Get a customer
// @Description  Identification numbers are masked unless the caller is an admin
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	customer, err := h.service.GetByID(c.Request.Context(), p.TenantID, id, p.IsAdmin())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// Update godoc
// @ID           updateCustomer
// @Summary      Update a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body partnerapp.UpdateCustomerRequest true "Changes"
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Security     BearerAuth
// @Router       /customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req partnerapp.UpdateCustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	customer, err := h.service.Update(c.Request.Context(), p.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// UpdateAddress godoc
// @ID           updateCustomerAddress
// @Summary      Replace a customer's address
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body partnerapp.AddressRequest true "Address"
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Security     BearerAuth
// @Router       /customers/{id}/address [put]
func (h *CustomerHandler) UpdateAddress(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req partnerapp.AddressRequest
	if !h.bindJSON(c, &req) {
		return
	}
	customer, err := h.service.UpdateAddress(c.Request.Context(), p.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// Delete godoc
// @ID           deleteCustomer
// @Summary      Delete a customer
// @Tags         customers
// @Param        id path string true "Customer ID" format(uuid)
// @Success      204
// @Security     BearerAuth
// @Router       /customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
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

// AddIdentification godoc
// @ID           addCustomerIdentification
// @Summary      Add an identification document
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body partnerapp.AddIdentificationRequest true "Identification"
// @Success      201 {object} APIResponse[partnerapp.IdentificationResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/identifications [post]
func (h *CustomerHandler) AddIdentification(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req partnerapp.AddIdentificationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ident, err := h.service.AddIdentification(c.Request.Context(), p.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ident)
}

// RemoveIdentification godoc
// @ID           removeCustomerIdentification
// @Summary      Remove an identification document
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        identification_id path string true "Identification ID" format(uuid)
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Security     BearerAuth
// @Router       /customers/{id}/identifications/{identification_id} [delete]
func (h *CustomerHandler) RemoveIdentification(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	identID, ok := h.uuidParam(c, "identification_id")
	if !ok {
		return
	}
	customer, err := h.service.RemoveIdentification(c.Request.Context(), p.TenantID, id, identID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// SetPrimaryIdentification godoc
// @ID           setCustomerPrimaryIdentification
// @Summary      Mark an identification as primary
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        identification_id path string true "Identification ID" format(uuid)
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Security     BearerAuth
// @Router       /customers/{id}/identifications/{identification_id}/primary [post]
func (h *CustomerHandler) SetPrimaryIdentification(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	identID, ok := h.uuidParam(c, "identification_id")
	if !ok {
		return
	}
	customer, err := h.service.SetPrimaryIdentification(c.Request.Context(), p.TenantID, id, identID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// DocumentUploadURL godoc
// @ID           createCustomerDocumentUploadURL
// @Summary      Presign an identification scan upload
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        identification_id path string true "Identification ID" format(uuid)
// @Param        request body partnerapp.DocumentUploadRequest true "Content type"
// @Success      200 {object} APIResponse[partnerapp.DocumentURLResponse]
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/identifications/{identification_id}/document/upload-url [post]
func (h *CustomerHandler) DocumentUploadURL(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	identID, ok := h.uuidParam(c, "identification_id")
	if !ok {
		return
	}
	var req partnerapp.DocumentUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	url, err := h.service.RequestDocumentUpload(c.Request.Context(), p.TenantID, id, identID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, url)
}

// DocumentDownloadURL godoc
// @ID           getCustomerDocumentDownloadURL
// @Summary      Presign an identification scan download
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        identification_id path string true "Identification ID" format(uuid)
// @Success      200 {object} APIResponse[partnerapp.DocumentURLResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/identifications/{identification_id}/document/download-url [get]
func (h *CustomerHandler) DocumentDownloadURL(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	identID, ok := h.uuidParam(c, "identification_id")
	if !ok {
		return
	}
	url, err := h.service.DocumentDownloadURL(c.Request.Context(), p.TenantID, id, identID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, url)
}

// Verify godoc
// @ID           verifyCustomer
// @Summary      Approve a customer's KYC
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body partnerapp.VerifyCustomerRequest true "Risk level"
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/verify [post]
func (h *CustomerHandler) Verify(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req partnerapp.VerifyCustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	customer, err := h.service.Verify(c.Request.Context(), p.TenantID, id, p.UserID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}

// Reject godoc
// @ID           rejectCustomer
// @Summary      Reject a customer's KYC
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Param        request body partnerapp.RejectCustomerRequest true "Reason"
// @Success      200 {object} APIResponse[partnerapp.CustomerResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /customers/{id}/reject [post]
func (h *CustomerHandler) Reject(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req partnerapp.RejectCustomerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	customer, err := h.service.Reject(c.Request.Context(), p.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, customer)
}
