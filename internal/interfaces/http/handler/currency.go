package handler

import (
	"net/http"

	vaultapp "github.com/fxoffice/backend/internal/application/vault"
	"github.com/gin-gonic/gin"
)

// CurrencyHandler handles currency, denomination and rate endpoints
type CurrencyHandler struct {
	BaseHandler
	service *vaultapp.CurrencyService
	rates   *vaultapp.RateService
}

// NewCurrencyHandler creates a new CurrencyHandler; rates may be nil when no feed is configured
func NewCurrencyHandler(service *vaultapp.CurrencyService, rates *vaultapp.RateService) *CurrencyHandler {
	return &CurrencyHandler{service: service, rates: rates}
}

// Create godoc
// @ID           createCurrency
// @Summary      Add a currency
// @Tags         currencies
// @Accept       json
// @Produce      json
// @Param        request body vaultapp.CreateCurrencyRequest true "Currency"
// @Success      201 {object} APIResponse[vaultapp.CurrencyResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /currencies [post]
func (h *CurrencyHandler) Create(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	var req vaultapp.CreateCurrencyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cur, err := h.service.Create(c.Request.Context(), p.TenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, cur)
}

// List godoc
// @ID           listCurrencies
// @Summary      List currencies
// @Tags         currencies
// @Produce      json
// @Param        search query string false "Search by code or name"
// @Param        status query string false "ACTIVE or INACTIVE"
// @Param        type query string false "FIAT or CRYPTO"
// @Param        rate_source query string false "MANUAL or FEED"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]vaultapp.CurrencyResponse]
// @Security     BearerAuth
// @Router       /currencies [get]
func (h *CurrencyHandler) List(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	var filter vaultapp.CurrencyListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	currencies, total, err := h.service.List(c.Request.Context(), p.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, currencies, total, filter.Page, filter.PageSize)
}

// Get godoc
// @ID           getCurrency
// @Summary      Get a currency
// @Tags         currencies
// @Produce      json
// @Param        id path string true "Currency ID" format(uuid)
// @Success      200 {object} APIResponse[vaultapp.CurrencyResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /currencies/{id} [get]
func (h *CurrencyHandler) Get(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	cur, err := h.service.GetByID(c.Request.Context(), p.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cur)
}

// GetByCode godoc
// @ID           getCurrencyByCode
// @Summary      Get a currency by code
// @Tags         currencies
// @Produce      json
// @Param        code path string true "Currency code"
// @Success      200 {object} APIResponse[vaultapp.CurrencyResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /currencies/code/{code} [get]
func (h *CurrencyHandler) GetByCode(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	cur, err := h.service.GetByCode(c.Request.Context(), p.TenantID, c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cur)
}

// Update godoc
// @ID           updateCurrency
// @Summary      Update a currency
// @Tags         currencies
// @Accept       json
// @Produce      json
// @Param        id path string true "Currency ID" format(uuid)
// @Param        request body vaultapp.UpdateCurrencyRequest true "Changes"
// @Success      200 {object} APIResponse[vaultapp.CurrencyResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /currencies/{id} [put]
func (h *CurrencyHandler) Update(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req vaultapp.UpdateCurrencyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cur, err := h.service.Update(c.Request.Context(), p.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cur)
}

// Delete godoc
// @ID           deleteCurrency
// @Summary      Delete a currency
// @Description  The base currency cannot be deleted
// @Tags         currencies
// @Param        id path string true "Currency ID" format(uuid)
// @Success      204
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /currencies/{id} [delete]
func (h *CurrencyHandler) Delete(c *gin.Context) {
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

// SetRate godoc
// @ID           setCurrencyRate
// @Summary      Set a manual rate
// @Description  Rate is units of this currency per one unit of the base currency
// @Tags         currencies
// @Accept       json
// @Produce      json
// @Param        id path string true "Currency ID" format(uuid)
// @Param        request body vaultapp.SetRateRequest true "Rate"
// @Success      200 {object} APIResponse[vaultapp.CurrencyResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /currencies/{id}/rate [put]
func (h *CurrencyHandler) SetRate(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req vaultapp.SetRateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cur, err := h.service.SetRate(c.Request.Context(), p.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cur)
}

// SetMargins godoc
// @ID           setCurrencyMargins
// @Summary      Set buy and sell margins
// @Tags         currencies
// @Accept       json
// @Produce      json
// @Param        id path string true "Currency ID" format(uuid)
// @Param        request body vaultapp.SetMarginsRequest true "Margins"
// @Success      200 {object} APIResponse[vaultapp.CurrencyResponse]
// @Security     BearerAuth
// @Router       /currencies/{id}/margins [put]
func (h *CurrencyHandler) SetMargins(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req vaultapp.SetMarginsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cur, err := h.service.SetMargins(c.Request.Context(), p.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cur)
}

// AddDenomination godoc
// @ID           addCurrencyDenomination
// @Summary      Add a denomination
// @Tags         currencies
// @Accept       json
// @Produce      json
// @Param        id path string true "Currency ID" format(uuid)
// @Param        request body vaultapp.AddDenominationRequest true "Denomination"
// @Success      201 {object} APIResponse[vaultapp.CurrencyResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /currencies/{id}/denominations [post]
func (h *CurrencyHandler) AddDenomination(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req vaultapp.AddDenominationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cur, err := h.service.AddDenomination(c.Request.Context(), p.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, cur)
}

// RemoveDenomination godoc
// @ID           removeCurrencyDenomination
// @Summary      Remove a denomination
// @Tags         currencies
// @Produce      json
// @Param        id path string true "Currency ID" format(uuid)
// @Param        denomination_id path string true "Denomination ID" format(uuid)
// @Success      200 {object} APIResponse[vaultapp.CurrencyResponse]
// @Security     BearerAuth
// @Router       /currencies/{id}/denominations/{denomination_id} [delete]
func (h *CurrencyHandler) RemoveDenomination(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	denomID, ok := h.uuidParam(c, "denomination_id")
	if !ok {
		return
	}
	cur, err := h.service.RemoveDenomination(c.Request.Context(), p.TenantID, id, denomID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cur)
}

// SetDenominationActive godoc
// @ID           setCurrencyDenominationActive
// @Summary      Enable or disable a denomination
// @Tags         currencies
// @Accept       json
// @Produce      json
// @Param        id path string true "Currency ID" format(uuid)
// @Param        denomination_id path string true "Denomination ID" format(uuid)
// @Param        request body vaultapp.SetDenominationActiveRequest true "State"
// @Success      200 {object} APIResponse[vaultapp.CurrencyResponse]
// @Security     BearerAuth
// @Router       /currencies/{id}/denominations/{denomination_id} [patch]
func (h *CurrencyHandler) SetDenominationActive(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	denomID, ok := h.uuidParam(c, "denomination_id")
	if !ok {
		return
	}
	var req vaultapp.SetDenominationActiveRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cur, err := h.service.SetDenominationActive(c.Request.Context(), p.TenantID, id, denomID, req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cur)
}

// RefreshRates godoc
// @ID           refreshCurrencyRates
// @Summary      Refresh feed rates now
// @Description  Fetches the latest rates for every FEED currency of the organization
// @Tags         currencies
// @Produce      json
// @Success      200 {object} APIResponse[vaultapp.RefreshResult]
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /currencies/rates/refresh [post]
func (h *CurrencyHandler) RefreshRates(c *gin.Context) {
	p, ok := h.adminPrincipal(c)
	if !ok {
		return
	}
	if h.rates == nil {
		h.Error(c, http.StatusServiceUnavailable, "RATE_FEED_DISABLED", "No rate feed is configured")
		return
	}
	result, err := h.rates.Refresh(c.Request.Context(), p.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
