package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/customer"
	"github.com/stripe/stripe-go/v80/webhook"
)

// CheckoutLineItem is one purchasable line passed to the hosted
// checkout. UnitAmount is in minor currency units.
type CheckoutLineItem struct {
	Name       string
	ImageURL   string
	UnitAmount int64
	Quantity   int64
}

type CheckoutSessionInput struct {
	CustomerEmail string
	Currency      string
	LineItems     []CheckoutLineItem
	SuccessURL    string
	CancelURL     string
	OrderID       string
	UserID        string
}

type CheckoutSessionResult struct {
	ID  string
	URL string
}

// PaymentGateway creates hosted checkout sessions.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSessionResult, error)
}

// WebhookVerifier authenticates inbound payment events against the
// shared webhook secret.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error)
}

type StripeService struct {
	secretKey     string
	webhookSecret string
}

func NewStripeService(secretKey, webhookSecret string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{secretKey: secretKey, webhookSecret: webhookSecret}
}

// CreateCheckoutSession builds a hosted payment session. An existing
// Stripe customer for the email is reused when present; the order and
// user ids travel in session metadata and are the only link back from
// the asynchronous payment event to the domain order.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSessionResult, error) {
	customerID := s.findCustomerByEmail(ctx, in.CustomerEmail)

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.LineItems))
	for _, item := range in.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{item.ImageURL})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(in.Currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		LineItems:  lineItems,
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	} else {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	params.AddMetadata("order_id", in.OrderID)
	params.AddMetadata("user_id", in.UserID)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSessionResult{ID: sess.ID, URL: sess.URL}, nil
}

// findCustomerByEmail returns the id of an existing customer with the
// given email, or empty. Lookup failures degrade to a fresh guest
// checkout rather than failing the request.
func (s *StripeService) findCustomerByEmail(ctx context.Context, email string) string {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := customer.List(params)
	if iter.Next() {
		return iter.Customer().ID
	}
	return ""
}

func (s *StripeService) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
}
