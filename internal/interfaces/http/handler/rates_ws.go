package handler

import (
	"net/http"

	"github.com/fxoffice/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RateStreamer serves a tenant's live rate feed over a websocket
type RateStreamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) error
}

// RateStreamHandler upgrades authenticated clients to the rate feed
type RateStreamHandler struct {
	BaseHandler
	hub RateStreamer
}

// NewRateStreamHandler creates a new RateStreamHandler
func NewRateStreamHandler(hub RateStreamer) *RateStreamHandler {
	return &RateStreamHandler{hub: hub}
}

// Stream godoc
// @ID           streamRates
// @Summary      Live rate updates
// @Description  Websocket; browsers pass the session token as ?token=. Each frame is a rates.updated event of the active organization.
// @Tags         currencies
// @Param        token query string false "Session token"
// @Success      101
// @Failure      401 {object} ErrorResponse
// @Router       /ws/rates [get]
func (h *RateStreamHandler) Stream(c *gin.Context) {
	p, ok := h.tenantPrincipal(c)
	if !ok {
		return
	}
	if err := h.hub.ServeWS(c.Writer, c.Request, p.TenantID); err != nil {
		// the upgrader has already answered the client
		logger.GetGinLogger(c).Debug("websocket upgrade failed", zap.Error(err))
	}
}
