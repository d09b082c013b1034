package controllers

import (
	"errors"
	"io"
	"net/http"

	apperrors "github.com/filipfilip1/instytut-saunowy/services/common/errors"
	"github.com/filipfilip1/instytut-saunowy/services/common/logger"
	"github.com/filipfilip1/instytut-saunowy/services/payment-service/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stripe events are a few KiB; anything larger is not from Stripe.
const maxWebhookBody = 64 << 10

type PaymentController struct {
	Verifier services.EventVerifier
	Handler  services.EventHandler
	Logger   *zap.Logger
}

// StripeWebhook verifies the raw body and hands the event to the reconciler.
// Any non-2xx response makes Stripe redeliver the event later.
func (pc *PaymentController) StripeWebhook(c *gin.Context) {
	log := logger.With(c, pc.Logger)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warn("Failed to read webhook body", zap.Error(err))
		apperrors.Respond(c, apperrors.Wrap(apperrors.ErrBadRequest, err))
		return
	}

	event, err := pc.Verifier.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWebhookSecretMissing):
			log.Error("Stripe webhook secret not configured")
			apperrors.Respond(c, apperrors.Wrap(apperrors.ErrWebhookNotConfigured, err))
		case errors.Is(err, services.ErrMissingSignature):
			log.Warn("Stripe webhook without signature header")
			apperrors.Respond(c, apperrors.Wrap(apperrors.ErrMissingSignature, err))
		default:
			log.Warn("Stripe webhook signature verification failed", zap.Error(err))
			apperrors.Respond(c, apperrors.Wrap(apperrors.ErrInvalidSignature, err))
		}
		return
	}

	result, err := pc.Handler.Handle(c.Request.Context(), event)
	if err != nil {
		if errors.Is(err, services.ErrDeliveryInProgress) {
			apperrors.Respond(c, apperrors.Wrap(apperrors.ErrDeliveryInProgress, err))
			return
		}
		log.Error("Webhook reconciliation failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		apperrors.Respond(c, apperrors.Wrap(apperrors.ErrReconcileFailed, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": result.Outcome})
}
