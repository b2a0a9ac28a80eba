// Package webhook ingests commerce platform events. Deliveries are
// authenticated with an HMAC signature over the raw body before any
// parsing happens.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/lifecycle"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/telemetry"
)

// maxRequestBodySize is the maximum size of a webhook request body (1MB).
const maxRequestBodySize = 1 << 20

// Handler processes authenticated webhook deliveries.
type Handler struct {
	verifier  *Verifier
	tracker   *lifecycle.Tracker
	telemetry *telemetry.Provider
	logger    logger.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(verifier *Verifier, tracker *lifecycle.Tracker, tel *telemetry.Provider, log logger.Logger) *Handler {
	return &Handler{
		verifier:  verifier,
		tracker:   tracker,
		telemetry: tel,
		logger:    log,
	}
}

// HandleEvent receives one webhook delivery: 401 for bad signatures,
// 422 for malformed payloads, 200 once the event is applied.
func (h *Handler) HandleEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBodySize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	if verifyErr := h.verifier.Verify(c.GetHeader(SignatureHeader), body); verifyErr != nil {
		h.telemetry.RecordWebhookRejection(c.Request.Context(), "invalid_signature")
		h.logger.Warn("Rejected webhook with invalid signature",
			logger.String("remote_addr", c.ClientIP()),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	payload, parseErr := parsePayload(body)
	if parseErr != nil {
		h.telemetry.RecordWebhookRejection(c.Request.Context(), "malformed_payload")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": parseErr.Error()})
		return
	}

	if processErr := h.process(c.Request.Context(), payload); processErr != nil {
		if errors.Is(processErr, domain.ErrValidation) {
			h.telemetry.RecordWebhookRejection(c.Request.Context(), "malformed_payload")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": processErr.Error()})
			return
		}
		h.logger.Error("Failed to process webhook event",
			logger.String("event_type", payload.EventType),
			logger.Error(processErr),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	h.telemetry.RecordWebhookEvent(c.Request.Context(), payload.EventType)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "event_type": payload.EventType})
}

func (h *Handler) process(ctx context.Context, payload *Payload) error {
	switch payload.EventType {
	case EventCartUpdated:
		return h.processCartUpdated(ctx, payload)
	case EventCheckoutCompleted:
		return h.processCheckoutCompleted(ctx, payload)
	case EventUserSignup:
		return h.processUserSignup(payload)
	default:
		return fmt.Errorf("%w: unknown event_type %q", domain.ErrValidation, payload.EventType)
	}
}

func (h *Handler) processCartUpdated(ctx context.Context, payload *Payload) error {
	cart, err := domain.NewCart(payload.CartID, payload.CustomerRef, payload.LineItems)
	if err != nil {
		return err
	}
	return h.tracker.RecordActivity(ctx, cart)
}

func (h *Handler) processCheckoutCompleted(ctx context.Context, payload *Payload) error {
	if payload.CartID == "" {
		return fmt.Errorf("%w: cart_id is required", domain.ErrValidation)
	}

	err := h.tracker.CompleteCheckout(ctx, payload.CartID)
	if errors.Is(err, domain.ErrNotFound) {
		// Checkout for a cart this service never saw. Nothing to recover.
		h.logger.Debug("Checkout completed for unknown cart",
			logger.String("cart_id", payload.CartID),
		)
		return nil
	}
	return err
}

func (h *Handler) processUserSignup(payload *Payload) error {
	if payload.CustomerRef == "" {
		return fmt.Errorf("%w: customer_ref is required", domain.ErrValidation)
	}

	// Signups carry no cart state; they are acknowledged and counted.
	h.logger.Info("Customer signup received",
		logger.String("customer_ref", payload.CustomerRef),
	)
	return nil
}
