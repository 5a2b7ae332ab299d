package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/controllers"
	"github.com/kgoldpotera/spotted-avenue-boutique/models"
	"github.com/kgoldpotera/spotted-avenue-boutique/routes"
	"github.com/kgoldpotera/spotted-avenue-boutique/sender"
	"github.com/kgoldpotera/spotted-avenue-boutique/services"
)

const (
	flowJWTSecret    = "flow-test-secret"
	flowServiceToken = "flow-service-token"
)

type flowOrderRepo struct {
	orders map[uuid.UUID]*models.Order
}

func (f *flowOrderRepo) Create(ctx context.Context, order *models.Order) error {
	order.ID = uuid.New()
	for i := range order.OrderItems {
		order.OrderItems[i].ID = uuid.New()
		order.OrderItems[i].OrderID = order.ID
	}
	f.orders[order.ID] = order
	return nil
}

func (f *flowOrderRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	return order, nil
}

func (f *flowOrderRepo) FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *flowOrderRepo) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (f *flowOrderRepo) AttachSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	if order, ok := f.orders[orderID]; ok {
		order.StripeSessionID = &sessionID
	}
	return nil
}

func (f *flowOrderRepo) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error {
	order, ok := f.orders[orderID]
	if !ok || order.Status == models.OrderStatusCancelled {
		return nil
	}
	order.Status = models.OrderStatusProcessing
	order.PaymentStatus = models.PaymentStatusPaid
	if paymentIntentID != "" {
		order.StripePaymentIntentID = &paymentIntentID
	}
	return nil
}

func (f *flowOrderRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	if order, ok := f.orders[orderID]; ok {
		order.Status = status
	}
	return nil
}

func (f *flowOrderRepo) CancelStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type flowCartRepo struct {
	items map[uuid.UUID][]models.CartItem
}

func (f *flowCartRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return f.items[userID], nil
}

func (f *flowCartRepo) Upsert(ctx context.Context, item *models.CartItem) error {
	item.ID = uuid.New()
	f.items[item.UserID] = append(f.items[item.UserID], *item)
	return nil
}

func (f *flowCartRepo) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	return nil
}

func (f *flowCartRepo) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	return nil
}

func (f *flowCartRepo) ClearByUserID(ctx context.Context, userID uuid.UUID) error {
	delete(f.items, userID)
	return nil
}

// flowGateway returns a canned session and remembers the metadata it
// was asked to attach, so the test can replay it as a webhook event.
type flowGateway struct {
	lastInput services.CheckoutSessionInput
}

func (g *flowGateway) CreateCheckoutSession(ctx context.Context, in services.CheckoutSessionInput) (*services.CheckoutSessionResult, error) {
	g.lastInput = in
	return &services.CheckoutSessionResult{
		ID:  "cs_flow_1",
		URL: "https://checkout.example/pay/cs_flow_1",
	}, nil
}

// flowVerifier trusts one signature and hands back whatever event the
// test staged, standing in for signature reconstruction.
type flowVerifier struct {
	event stripe.Event
}

func (v *flowVerifier) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	if sigHeader != "t=1,v1=good" {
		return stripe.Event{}, fmt.Errorf("signature mismatch")
	}
	return v.event, nil
}

type flowEmailSender struct {
	sent []struct {
		To      string
		Subject string
		Body    string
	}
}

func (f *flowEmailSender) SendEmail(ctx context.Context, to, subject, htmlBody string) (sender.SendResult, error) {
	f.sent = append(f.sent, struct {
		To      string
		Subject string
		Body    string
	}{to, subject, htmlBody})
	return sender.SendResult{MessageID: fmt.Sprintf("msg-%d", len(f.sent))}, nil
}

func signFlowToken(t *testing.T, userID uuid.UUID, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(flowJWTSecret))
	require.NoError(t, err)
	return signed
}

// TestCheckoutToPaidFlow walks a shopper's cart through checkout and
// the payment provider's completion event, asserting the order ends up
// processing/paid with the cart cleared and both emails dispatched.
func TestCheckoutToPaidFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	userID := uuid.New()
	orderRepo := &flowOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
	cartRepo := &flowCartRepo{items: map[uuid.UUID][]models.CartItem{
		userID: {
			{ID: uuid.New(), UserID: userID, ProductID: uuid.New(), Quantity: 2},
			{ID: uuid.New(), UserID: userID, ProductID: uuid.New(), Quantity: 1},
		},
	}}

	gateway := &flowGateway{}
	verifier := &flowVerifier{}
	emails := &flowEmailSender{}

	confirmation, err := services.NewConfirmationService(emails, "ops@spottedavenue.dev", logger)
	require.NoError(t, err)

	ctrl := routes.Controllers{
		Checkout: controllers.NewCheckoutController(
			services.NewCheckoutService(orderRepo, gateway, "usd", logger),
			"http://localhost:3000",
			logger,
		),
		Webhook: &controllers.WebhookController{
			Verifier: verifier,
			Orders:   orderRepo,
			Carts:    cartRepo,
			Notifier: confirmation,
			Logger:   logger,
		},
		Confirmation: &controllers.ConfirmationController{Notifier: confirmation, Logger: logger},
		Orders:       controllers.NewOrderController(services.NewOrderService(orderRepo, logger)),
		Cart:         controllers.NewCartController(cartRepo, logger),
		Products:     controllers.NewProductController(nil, logger),
		Roles:        controllers.NewRoleController(nil, logger),
	}

	r := gin.New()
	routes.RegisterRoutes(r, ctrl, flowJWTSecret, flowServiceToken)

	// Step 1: the shopper submits checkout for two cart lines.
	checkoutBody := map[string]interface{}{
		"cartItems": []map[string]interface{}{
			{
				"product_id":    uuid.New().String(),
				"product_name":  "Linen Blazer",
				"product_price": 10.00,
				"quantity":      2,
			},
			{
				"product_id":    uuid.New().String(),
				"product_name":  "Silk Scarf",
				"product_price": 5.50,
				"quantity":      1,
			},
		},
		"total":        25.50,
		"customerName": "Ada Lovelace",
		"shippingAddress": map[string]string{
			"line1": "1 Analytical Way",
			"city":  "London",
		},
	}
	body, err := json.Marshal(checkoutBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+signFlowToken(t, userID, "ada@example.com"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://shop.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var checkoutResp struct {
		URL     string    `json:"url"`
		OrderID uuid.UUID `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkoutResp))
	assert.Equal(t, "https://checkout.example/pay/cs_flow_1", checkoutResp.URL)

	order := orderRepo.orders[checkoutResp.OrderID]
	require.NotNil(t, order)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "https://shop.example/orders?session_id={CHECKOUT_SESSION_ID}", gateway.lastInput.SuccessURL)
	assert.Equal(t, checkoutResp.OrderID.String(), gateway.lastInput.OrderID)

	// Step 2: the payment provider reports the session completed,
	// carrying the metadata the gateway was given.
	raw, err := json.Marshal(map[string]interface{}{
		"id":             "cs_flow_1",
		"payment_intent": "pi_flow_1",
		"currency":       "usd",
		"metadata": map[string]string{
			"order_id": gateway.lastInput.OrderID,
			"user_id":  gateway.lastInput.UserID,
		},
	})
	require.NoError(t, err)
	verifier.event = stripe.Event{
		ID:   "evt_flow_1",
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	}

	req = httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"received": true}`, w.Body.String())

	// The order is paid, the cart is empty, and both the shopper and
	// the shop got an itemized email.
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	require.NotNil(t, order.StripePaymentIntentID)
	assert.Equal(t, "pi_flow_1", *order.StripePaymentIntentID)

	assert.Empty(t, cartRepo.items[userID])

	require.Len(t, emails.sent, 2)
	assert.Equal(t, "ada@example.com", emails.sent[0].To)
	assert.Equal(t, "ops@spottedavenue.dev", emails.sent[1].To)
	for _, e := range emails.sent {
		assert.True(t, strings.Contains(e.Body, "25.50"), "email should itemize the order total")
	}
}
