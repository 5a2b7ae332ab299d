package services

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/models"
	"github.com/kgoldpotera/spotted-avenue-boutique/repository"
)

type CheckoutItem struct {
	ProductID    uuid.UUID `json:"product_id" binding:"required"`
	ProductName  string    `json:"product_name" binding:"required"`
	ProductImage string    `json:"product_image"`
	ProductPrice float64   `json:"product_price"`
	Quantity     int       `json:"quantity" binding:"required,min=1"`
}

type CheckoutRequest struct {
	CartItems       []CheckoutItem  `json:"cartItems" binding:"required,dive"`
	Total           float64         `json:"total" binding:"required"`
	CustomerName    string          `json:"customerName"`
	ShippingAddress json.RawMessage `json:"shippingAddress"`
}

type CheckoutResult struct {
	URL     string    `json:"url"`
	OrderID uuid.UUID `json:"orderId"`
}

type CheckoutService struct {
	orderRepo repository.OrderRepository
	gateway   PaymentGateway
	currency  string
	logger    *zap.Logger
}

func NewCheckoutService(orderRepo repository.OrderRepository, gateway PaymentGateway, currency string, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		orderRepo: orderRepo,
		gateway:   gateway,
		currency:  currency,
		logger:    logger,
	}
}

// InitiateCheckout inserts a pending order with its price-snapshotted
// items, then requests a hosted checkout session carrying the order id
// in metadata. The order is inserted first so a gateway failure leaves
// a recoverable pending row instead of an orphaned payment session.
// customerEmail comes from the verified token, never from the request
// body.
func (s *CheckoutService) InitiateCheckout(ctx context.Context, userID uuid.UUID, customerEmail, origin string, req *CheckoutRequest) (*CheckoutResult, *ServiceError) {
	if len(req.CartItems) == 0 {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "cart is empty"}
	}
	for _, item := range req.CartItems {
		if item.ProductPrice < 0 {
			return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "invalid product price"}
		}
	}
	if customerEmail == "" {
		return nil, &ServiceError{StatusCode: http.StatusUnauthorized, Message: "user not authenticated"}
	}

	order := &models.Order{
		UserID:        userID,
		Total:         req.Total,
		CustomerName:  req.CustomerName,
		CustomerEmail: customerEmail,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	if len(req.ShippingAddress) > 0 {
		addr := string(req.ShippingAddress)
		order.ShippingAddress = &addr
	}
	for _, item := range req.CartItems {
		order.OrderItems = append(order.OrderItems, models.OrderItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.ProductPrice,
		})
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.logger.Error("Failed to create pending order", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "failed to create order"}
	}

	lineItems := make([]CheckoutLineItem, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		lineItems = append(lineItems, CheckoutLineItem{
			Name:       item.ProductName,
			ImageURL:   item.ProductImage,
			UnitAmount: MinorUnits(item.ProductPrice),
			Quantity:   int64(item.Quantity),
		})
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerEmail: customerEmail,
		Currency:      s.currency,
		LineItems:     lineItems,
		SuccessURL:    origin + "/orders?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     origin + "/cart",
		OrderID:       order.ID.String(),
		UserID:        userID.String(),
	})
	if err != nil {
		// The pending order remains; the reconciliation sweep reclaims it.
		s.logger.Error("Failed to create checkout session",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "failed to create checkout session"}
	}

	if err := s.orderRepo.AttachSession(ctx, order.ID, sess.ID); err != nil {
		// The shopper can still pay; the webhook resolves the order by
		// metadata, not by session id.
		s.logger.Warn("Failed to persist session id on order",
			zap.String("order_id", order.ID.String()),
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("Checkout session created",
		zap.String("order_id", order.ID.String()),
		zap.String("session_id", sess.ID),
	)

	return &CheckoutResult{URL: sess.URL, OrderID: order.ID}, nil
}
