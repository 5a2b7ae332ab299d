package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/kafka"
	"github.com/kgoldpotera/spotted-avenue-boutique/models"
	"github.com/kgoldpotera/spotted-avenue-boutique/repository"
	"github.com/kgoldpotera/spotted-avenue-boutique/services"
)

const maxWebhookBody = 1 << 20

type WebhookController struct {
	Verifier  services.WebhookVerifier
	Orders    repository.OrderRepository
	Carts     repository.CartRepository
	Notifier  services.OrderNotifier
	Events    repository.ProcessedEventStore // optional
	Publisher kafka.PaymentEventPublisher    // optional
	Logger    *zap.Logger
}

// HandleStripeWebhook receives and dispatches signed payment events.
// Signature verification is the sole gate: an unverified request never
// touches order state.
func (wc *WebhookController) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	event, err := wc.Verifier.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		wc.Logger.Warn("Webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	wc.Logger.Info("Processing webhook event",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	switch event.Type {
	case "checkout.session.completed":
		if svcErr := wc.handleCheckoutCompleted(c.Request.Context(), event); svcErr != nil {
			c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
			return
		}
	default:
		// Other event types are acknowledged without action.
		wc.Logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleCheckoutCompleted applies the paid transition, then runs the
// best-effort side effects. Only a store failure on the transition
// itself surfaces an error, which makes the payment provider redeliver;
// redelivery is harmless because the transition is an unconditional
// set.
func (wc *WebhookController) handleCheckoutCompleted(ctx context.Context, event stripe.Event) *services.ServiceError {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		wc.Logger.Error("Failed to unmarshal checkout session", zap.Error(err))
		return nil
	}

	if wc.Events != nil {
		if seen, err := wc.Events.Seen(ctx, event.ID); err == nil && seen {
			wc.Logger.Info("Skipping already-processed event", zap.String("event_id", event.ID))
			return nil
		}
	}

	orderIDRaw := sess.Metadata["order_id"]
	if orderIDRaw == "" {
		// Event not tied to a domain order; acknowledge and move on.
		wc.Logger.Info("Checkout session without order metadata", zap.String("session_id", sess.ID))
		return nil
	}
	orderID, err := uuid.Parse(orderIDRaw)
	if err != nil {
		wc.Logger.Warn("Invalid order id in session metadata",
			zap.String("session_id", sess.ID),
			zap.String("order_id", orderIDRaw),
		)
		return nil
	}

	paymentIntentID := ""
	if sess.PaymentIntent != nil {
		paymentIntentID = sess.PaymentIntent.ID
	}

	if err := wc.Orders.MarkPaid(ctx, orderID, paymentIntentID); err != nil {
		wc.Logger.Error("Failed to mark order paid",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return &services.ServiceError{StatusCode: http.StatusInternalServerError, Message: "failed to update order"}
	}

	wc.Logger.Info("Order marked paid",
		zap.String("order_id", orderID.String()),
		zap.String("payment_intent_id", paymentIntentID),
	)

	wc.runSideEffects(ctx, orderID, sess)

	if wc.Events != nil {
		if _, err := wc.Events.MarkProcessed(ctx, event.ID); err != nil {
			wc.Logger.Warn("Failed to record processed event id", zap.Error(err))
		}
	}

	return nil
}

// runSideEffects clears the shopper's cart, sends the confirmation
// emails, and publishes the payment event. Each step tolerates the
// failure of the others; none may fail the webhook response.
func (wc *WebhookController) runSideEffects(ctx context.Context, orderID uuid.UUID, sess stripe.CheckoutSession) {
	order, err := wc.Orders.FindByID(ctx, orderID)
	if err != nil {
		wc.Logger.Error("Failed to fetch order for side effects",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return
	}

	if err := wc.Carts.ClearByUserID(ctx, order.UserID); err != nil {
		wc.Logger.Error("Failed to clear cart",
			zap.String("user_id", order.UserID.String()),
			zap.Error(err),
		)
	}

	if err := wc.Notifier.SendOrderConfirmation(ctx, order); err != nil {
		wc.Logger.Error("Failed to send confirmation emails",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}

	if wc.Publisher != nil {
		if err := wc.Publisher.PublishPaymentEvent(ctx, models.PaymentEvent{
			Type:      "payment_succeeded",
			OrderID:   order.ID.String(),
			UserID:    order.UserID.String(),
			SessionID: sess.ID,
			Amount:    order.Total,
			Currency:  string(sess.Currency),
			Timestamp: time.Now().UTC(),
		}); err != nil {
			wc.Logger.Error("Failed to publish payment event",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)
		}
	}
}
