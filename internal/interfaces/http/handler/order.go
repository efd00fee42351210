package handler

import (
	"fmt"
	"net/http"

	identityapp "github.com/fxoffice/backend/internal/application/identity"
	tradeapp "github.com/fxoffice/backend/internal/application/trade"
	"github.com/gin-gonic/gin"
)

// OrderHandler handles quote, order and receipt endpoints
type OrderHandler struct {
	BaseHandler
	service *tradeapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *tradeapp.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

func tradeActor(p *identityapp.Principal) tradeapp.Actor {
	return tradeapp.Actor{UserID: p.UserID, IsAdmin: p.IsAdmin()}
}

// CreateQuote godoc
// @ID           createOrderQuote
// @Summary      Quote an exchange
// @Description  Prices the exchange against the session's repository; the quote expires after the configured TTL
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body tradeapp.CreateQuoteRequest true "Quote"
// @Success      201 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) CreateQuote(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	var req tradeapp.CreateQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.service.CreateQuote(c.Request.Context(), p.TenantID, tradeActor(p), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// List godoc
// @ID           listOrders
// @Summary      List orders
// @Tags         orders
// @Produce      json
// @Param        search query string false "Search by order number"
// @Param        session_id query string false "Session ID" format(uuid)
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        status query string false "QUOTE, COMPLETED, CANCELLED or EXPIRED"
// @Param        side query string false "BUY, SELL or CROSS"
// @Param        from query string false "From date (YYYY-MM-DD)"
// @Param        to query string false "To date (YYYY-MM-DD)"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]tradeapp.OrderResponse]
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	var filter tradeapp.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	orders, total, err := h.service.List(c.Request.Context(), p.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// Get godoc
// @ID           getOrder
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.service.GetByID(c.Request.Context(), p.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Complete godoc
// @ID           completeOrder
// @Summary      Complete a quoted order
// @Description  Fails when the quote has expired or the session stopped trading
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/complete [post]
func (h *OrderHandler) Complete(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.service.CompleteOrder(c.Request.Context(), p.TenantID, id, tradeActor(p))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Cancel godoc
// @ID           cancelOrder
// @Summary      Cancel a quoted order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body tradeapp.CancelOrderRequest false "Reason"
// @Success      200 {object} APIResponse[tradeapp.OrderResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req tradeapp.CancelOrderRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	order, err := h.service.CancelOrder(c.Request.Context(), p.TenantID, id, tradeActor(p), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Receipt godoc
// @ID           getOrderReceipt
// @Summary      Download an order receipt
// @Tags         orders
// @Produce      text/html
// @Produce      application/pdf
// @Param        id path string true "Order ID" format(uuid)
// @Param        format query string false "html or pdf" default(html)
// @Param        download query bool false "Send as attachment"
// @Success      200 {file} file
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/receipt [get]
func (h *OrderHandler) Receipt(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	receipt, err := h.service.Receipt(c.Request.Context(), p.TenantID, id, c.Query("format"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	disposition := "inline"
	if c.Query("download") == "true" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, receipt.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, receipt.ContentType, receipt.Content)
}
