package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	identityapp "github.com/fxoffice/backend/internal/application/identity"
	"github.com/fxoffice/backend/internal/infrastructure/logger"
	"github.com/fxoffice/backend/internal/infrastructure/webhook"
	"github.com/fxoffice/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody caps provider deliveries
const maxWebhookBody = 1 << 20

// WebhookSyncer applies verified identity provider events
type WebhookSyncer interface {
	SyncFromWebhook(ctx context.Context, event identityapp.WebhookEvent) error
}

// WebhookHandler receives identity provider deliveries
type WebhookHandler struct {
	BaseHandler
	verifier *webhook.Verifier
	syncer   WebhookSyncer
}

// NewWebhookHandler creates a WebhookHandler
func NewWebhookHandler(verifier *webhook.Verifier, syncer WebhookSyncer) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, syncer: syncer}
}

// IdentityWebhook godoc
// @ID           receiveIdentityWebhook
// @Summary      Identity provider webhook
// @Description  Verifies the svix signature and mirrors organizations, users, memberships and sessions
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /webhooks/identity [post]
func (h *WebhookHandler) IdentityWebhook(c *gin.Context) {
	log := logger.GetGinLogger(c)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookBody {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBadRequest, "Webhook payload too large")
		return
	}

	event, err := h.verifier.Verify(payload, c.Request.Header)
	if err != nil {
		log.Warn("webhook verification failed", zap.Error(err))
		switch {
		case errors.Is(err, webhook.ErrMissingHeaders), errors.Is(err, webhook.ErrInvalidTimestamp),
			errors.Is(err, webhook.ErrMalformedEnvelope):
			h.BadRequest(c, err.Error())
		default:
			h.Unauthorized(c, "Invalid webhook signature")
		}
		return
	}

	err = h.syncer.SyncFromWebhook(c.Request.Context(), identityapp.WebhookEvent{
		MessageID: event.MessageID,
		Type:      event.Type,
		Data:      []byte(event.Data.Raw),
	})
	if err != nil {
		log.Error("webhook sync failed",
			zap.String("message_id", event.MessageID),
			zap.String("type", event.Type),
			zap.Error(err))
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"message_id": event.MessageID})
}
