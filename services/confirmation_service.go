package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/models"
	"github.com/kgoldpotera/spotted-avenue-boutique/sender"
)

// OrderNotifier dispatches confirmation messages for a paid order.
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

const customerEmailTemplate = `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #333;">Order Confirmation</h1>
  <p>Dear {{.CustomerName}},</p>
  <p>Thank you for your order! Your payment has been confirmed.</p>

  <h2 style="color: #555; margin-top: 30px;">Order Details</h2>
  <p><strong>Order ID:</strong> {{.OrderID}}</p>
  <p><strong>Order Date:</strong> {{.OrderDate}}</p>

  <table style="width: 100%; margin-top: 20px; border-collapse: collapse;">
    <thead>
      <tr style="background-color: #f5f5f5;">
        <th style="padding: 10px; text-align: left;">Product</th>
        <th style="padding: 10px; text-align: center;">Quantity</th>
        <th style="padding: 10px; text-align: right;">Price</th>
      </tr>
    </thead>
    <tbody>
      {{range .Items}}
      <tr>
        <td style="padding: 10px; border-bottom: 1px solid #eee;">{{.Name}}</td>
        <td style="padding: 10px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
        <td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">${{.Price}}</td>
      </tr>
      {{end}}
    </tbody>
    <tfoot>
      <tr>
        <td colspan="2" style="padding: 15px; text-align: right; font-weight: bold;">Total:</td>
        <td style="padding: 15px; text-align: right; font-weight: bold; font-size: 18px;">${{.Total}}</td>
      </tr>
    </tfoot>
  </table>

  <p style="margin-top: 30px;">We'll send you another email when your order ships.</p>
  <p>Thank you for shopping with Spotted Avenue!</p>
</div>`

const adminEmailTemplate = `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #333;">New Order Received</h1>
  <p><strong>Order ID:</strong> {{.OrderID}}</p>
  <p><strong>Customer:</strong> {{.CustomerName}} ({{.CustomerEmail}})</p>
  <p><strong>Total:</strong> ${{.Total}}</p>

  <h2 style="color: #555; margin-top: 20px;">Items:</h2>
  <table style="width: 100%; margin-top: 10px; border-collapse: collapse;">
    <thead>
      <tr style="background-color: #f5f5f5;">
        <th style="padding: 10px; text-align: left;">Product</th>
        <th style="padding: 10px; text-align: center;">Quantity</th>
        <th style="padding: 10px; text-align: right;">Price</th>
      </tr>
    </thead>
    <tbody>
      {{range .Items}}
      <tr>
        <td style="padding: 10px; border-bottom: 1px solid #eee;">{{.Name}}</td>
        <td style="padding: 10px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
        <td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">${{.Price}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>

  {{if .ShippingAddress}}
  <h2 style="color: #555; margin-top: 20px;">Shipping Address:</h2>
  <p>{{.ShippingAddress}}</p>
  {{end}}
</div>`

type confirmationItem struct {
	Name     string
	Quantity int
	Price    string
}

type confirmationData struct {
	OrderID         string
	OrderDate       string
	CustomerName    string
	CustomerEmail   string
	Items           []confirmationItem
	Total           string
	ShippingAddress string
}

type ConfirmationService struct {
	emailSender sender.EmailSender
	adminEmail  string
	customerTpl *template.Template
	adminTpl    *template.Template
	logger      *zap.Logger
}

func NewConfirmationService(emailSender sender.EmailSender, adminEmail string, logger *zap.Logger) (*ConfirmationService, error) {
	customerTpl, err := template.New("customer").Parse(customerEmailTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse customer template: %w", err)
	}
	adminTpl, err := template.New("admin").Parse(adminEmailTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse admin template: %w", err)
	}
	return &ConfirmationService{
		emailSender: emailSender,
		adminEmail:  adminEmail,
		customerTpl: customerTpl,
		adminTpl:    adminTpl,
		logger:      logger,
	}, nil
}

// SendOrderConfirmation renders and dispatches the customer receipt and
// the internal ops notification. The two sends are isolated: a failure
// of one does not block the other, and the returned error aggregates
// whatever failed.
func (s *ConfirmationService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	data := buildConfirmationData(order)

	var customerBody, adminBody bytes.Buffer
	if err := s.customerTpl.Execute(&customerBody, data); err != nil {
		return fmt.Errorf("failed to render customer email: %w", err)
	}
	if err := s.adminTpl.Execute(&adminBody, data); err != nil {
		return fmt.Errorf("failed to render admin email: %w", err)
	}

	var errs []error

	if _, err := s.emailSender.SendEmail(ctx, order.CustomerEmail,
		"Order Confirmation - Spotted Avenue", customerBody.String()); err != nil {
		s.logger.Error("Failed to send customer confirmation",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("customer email: %w", err))
	}

	shortID := order.ID.String()
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	if _, err := s.emailSender.SendEmail(ctx, s.adminEmail,
		fmt.Sprintf("New Order #%s", shortID), adminBody.String()); err != nil {
		s.logger.Error("Failed to send admin notification",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("admin email: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Info("Confirmation emails sent", zap.String("order_id", order.ID.String()))
	return nil
}

func buildConfirmationData(order *models.Order) confirmationData {
	data := confirmationData{
		OrderID:       order.ID.String(),
		OrderDate:     order.CreatedAt.Format("January 2, 2006"),
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Total:         fmt.Sprintf("%.2f", order.Total),
	}
	if order.ShippingAddress != nil {
		data.ShippingAddress = *order.ShippingAddress
	}
	for _, item := range order.OrderItems {
		name := item.ProductID.String()
		if item.Product != nil {
			name = item.Product.Name
		}
		data.Items = append(data.Items, confirmationItem{
			Name:     name,
			Quantity: item.Quantity,
			Price:    fmt.Sprintf("%.2f", item.PriceAtPurchase),
		})
	}
	return data
}
