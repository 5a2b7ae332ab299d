package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/models"
)

type fakeOrderStore struct {
	orders      map[uuid.UUID]*models.Order
	markPaidErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[uuid.UUID]*models.Order)}
}

func (f *fakeOrderStore) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderStore) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, errors.New("record not found")
	}
	return order, nil
}

func (f *fakeOrderStore) FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderStore) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderStore) AttachSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	if order, ok := f.orders[orderID]; ok {
		order.StripeSessionID = &sessionID
	}
	return nil
}

func (f *fakeOrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error {
	if f.markPaidErr != nil {
		return f.markPaidErr
	}
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

func (f *fakeOrderStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	if order, ok := f.orders[orderID]; ok {
		order.Status = status
	}
	return nil
}

func (f *fakeOrderStore) CancelStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeCartStore struct {
	items map[uuid.UUID][]models.CartItem
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{items: make(map[uuid.UUID][]models.CartItem)}
}

func (f *fakeCartStore) FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return f.items[userID], nil
}

func (f *fakeCartStore) Upsert(ctx context.Context, item *models.CartItem) error {
	for i, existing := range f.items[item.UserID] {
		if existing.ProductID == item.ProductID {
			f.items[item.UserID][i].Quantity += item.Quantity
			return nil
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	f.items[item.UserID] = append(f.items[item.UserID], *item)
	return nil
}

func (f *fakeCartStore) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	for i, existing := range f.items[userID] {
		if existing.ID == itemID {
			f.items[userID][i].Quantity = quantity
			return nil
		}
	}
	return errors.New("record not found")
}

func (f *fakeCartStore) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	kept := f.items[userID][:0]
	for _, existing := range f.items[userID] {
		if existing.ID != itemID {
			kept = append(kept, existing)
		}
	}
	f.items[userID] = kept
	return nil
}

func (f *fakeCartStore) ClearByUserID(ctx context.Context, userID uuid.UUID) error {
	delete(f.items, userID)
	return nil
}

type fakeNotifier struct {
	notified []uuid.UUID
	err      error
}

func (f *fakeNotifier) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	f.notified = append(f.notified, order.ID)
	return f.err
}

// fakeVerifier accepts exactly one signature header and returns the
// configured event for it.
type fakeVerifier struct {
	signature string
	event     stripe.Event
}

func (f *fakeVerifier) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	if sigHeader != f.signature {
		return stripe.Event{}, errors.New("signature mismatch")
	}
	return f.event, nil
}

type recordedPublisher struct {
	events []models.PaymentEvent
}

func (p *recordedPublisher) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	p.events = append(p.events, event)
	return nil
}

// memoryEventStore mirrors the redis-backed store for tests.
type memoryEventStore struct {
	seen map[string]bool
}

func (s *memoryEventStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *memoryEventStore) Seen(ctx context.Context, eventID string) (bool, error) {
	return s.seen[eventID], nil
}

func checkoutCompletedEvent(t *testing.T, eventID string, metadata map[string]string) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":             "cs_test_123",
		"payment_intent": "pi_123",
		"currency":       "usd",
		"metadata":       metadata,
	})
	require.NoError(t, err)
	return stripe.Event{
		ID:   eventID,
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	}
}

func postWebhook(wc *WebhookController, body []byte, signature string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/stripe/webhook", wc.HandleStripeWebhook)

	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleStripeWebhook_InvalidSignature(t *testing.T) {
	orders := newFakeOrderStore()
	userID := uuid.New()
	order := &models.Order{
		UserID:        userID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, orders.Create(context.Background(), order))

	carts := newFakeCartStore()
	carts.items[userID] = []models.CartItem{{ID: uuid.New(), UserID: userID, Quantity: 1}}
	notifier := &fakeNotifier{}

	wc := &WebhookController{
		Verifier: &fakeVerifier{signature: "t=1,v1=good"},
		Orders:   orders,
		Carts:    carts,
		Notifier: notifier,
		Logger:   zap.NewNop(),
	}

	w := postWebhook(wc, []byte(`{}`), "t=1,v1=forged")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Len(t, carts.items[userID], 1)
	assert.Empty(t, notifier.notified)
}

func TestHandleStripeWebhook_CheckoutCompleted(t *testing.T) {
	orders := newFakeOrderStore()
	userID := uuid.New()
	order := &models.Order{
		UserID:        userID,
		Total:         25.50,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, orders.Create(context.Background(), order))

	otherUser := uuid.New()
	carts := newFakeCartStore()
	carts.items[userID] = []models.CartItem{{ID: uuid.New(), UserID: userID, Quantity: 2}}
	carts.items[otherUser] = []models.CartItem{{ID: uuid.New(), UserID: otherUser, Quantity: 1}}

	notifier := &fakeNotifier{}
	publisher := &recordedPublisher{}

	wc := &WebhookController{
		Verifier: &fakeVerifier{
			signature: "t=1,v1=good",
			event: checkoutCompletedEvent(t, "evt_1", map[string]string{
				"order_id": order.ID.String(),
				"user_id":  userID.String(),
			}),
		},
		Orders:    orders,
		Carts:     carts,
		Notifier:  notifier,
		Publisher: publisher,
		Logger:    zap.NewNop(),
	}

	w := postWebhook(wc, []byte(`{}`), "t=1,v1=good")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received": true}`, w.Body.String())

	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	require.NotNil(t, order.StripePaymentIntentID)
	assert.Equal(t, "pi_123", *order.StripePaymentIntentID)

	assert.Empty(t, carts.items[userID])
	assert.Len(t, carts.items[otherUser], 1, "other shoppers' carts must be untouched")

	assert.Equal(t, []uuid.UUID{order.ID}, notifier.notified)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "payment_succeeded", publisher.events[0].Type)
	assert.Equal(t, order.ID.String(), publisher.events[0].OrderID)
	assert.Equal(t, 25.50, publisher.events[0].Amount)
}

func TestHandleStripeWebhook_RedeliveryConverges(t *testing.T) {
	orders := newFakeOrderStore()
	userID := uuid.New()
	order := &models.Order{
		UserID:        userID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, orders.Create(context.Background(), order))

	carts := newFakeCartStore()
	notifier := &fakeNotifier{}
	events := &memoryEventStore{seen: make(map[string]bool)}

	wc := &WebhookController{
		Verifier: &fakeVerifier{
			signature: "t=1,v1=good",
			event: checkoutCompletedEvent(t, "evt_dup", map[string]string{
				"order_id": order.ID.String(),
			}),
		},
		Orders:   orders,
		Carts:    carts,
		Notifier: notifier,
		Events:   events,
		Logger:   zap.NewNop(),
	}

	first := postWebhook(wc, []byte(`{}`), "t=1,v1=good")
	second := postWebhook(wc, []byte(`{}`), "t=1,v1=good")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Len(t, notifier.notified, 1, "dedup store must suppress the second delivery's side effects")
}

func TestHandleStripeWebhook_MissingMetadata(t *testing.T) {
	orders := newFakeOrderStore()
	notifier := &fakeNotifier{}

	wc := &WebhookController{
		Verifier: &fakeVerifier{
			signature: "t=1,v1=good",
			event:     checkoutCompletedEvent(t, "evt_2", nil),
		},
		Orders:   orders,
		Carts:    newFakeCartStore(),
		Notifier: notifier,
		Logger:   zap.NewNop(),
	}

	w := postWebhook(wc, []byte(`{}`), "t=1,v1=good")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, notifier.notified)
}

func TestHandleStripeWebhook_MalformedOrderID(t *testing.T) {
	wc := &WebhookController{
		Verifier: &fakeVerifier{
			signature: "t=1,v1=good",
			event: checkoutCompletedEvent(t, "evt_3", map[string]string{
				"order_id": "not-a-uuid",
			}),
		},
		Orders:   newFakeOrderStore(),
		Carts:    newFakeCartStore(),
		Notifier: &fakeNotifier{},
		Logger:   zap.NewNop(),
	}

	w := postWebhook(wc, []byte(`{}`), "t=1,v1=good")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleStripeWebhook_MarkPaidFailure(t *testing.T) {
	orders := newFakeOrderStore()
	orders.markPaidErr = fmt.Errorf("connection refused")
	userID := uuid.New()
	order := &models.Order{
		UserID:        userID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	require.NoError(t, orders.Create(context.Background(), order))

	carts := newFakeCartStore()
	carts.items[userID] = []models.CartItem{{ID: uuid.New(), UserID: userID, Quantity: 1}}
	notifier := &fakeNotifier{}

	wc := &WebhookController{
		Verifier: &fakeVerifier{
			signature: "t=1,v1=good",
			event: checkoutCompletedEvent(t, "evt_4", map[string]string{
				"order_id": order.ID.String(),
			}),
		},
		Orders:   orders,
		Carts:    carts,
		Notifier: notifier,
		Logger:   zap.NewNop(),
	}

	w := postWebhook(wc, []byte(`{}`), "t=1,v1=good")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, carts.items[userID], 1, "side effects must not run when the transition fails")
	assert.Empty(t, notifier.notified)
}

func TestHandleStripeWebhook_IgnoredEventType(t *testing.T) {
	wc := &WebhookController{
		Verifier: &fakeVerifier{
			signature: "t=1,v1=good",
			event: stripe.Event{
				ID:   "evt_5",
				Type: "invoice.paid",
				Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
			},
		},
		Orders:   newFakeOrderStore(),
		Carts:    newFakeCartStore(),
		Notifier: &fakeNotifier{},
		Logger:   zap.NewNop(),
	}

	w := postWebhook(wc, []byte(`{}`), "t=1,v1=good")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received": true}`, w.Body.String())
}
