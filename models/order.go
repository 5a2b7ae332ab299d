package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fulfillment lifecycle. Payment state is tracked separately so a paid
// order can still move through shipping states.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

type Order struct {
	ID                    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID                uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Total                 float64   `gorm:"type:numeric(10,2);not null" json:"total"`
	CustomerName          string    `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail         string    `gorm:"type:varchar(255);not null" json:"customer_email"`
	ShippingAddress       *string   `gorm:"type:jsonb" json:"shipping_address,omitempty"`
	Status                string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentStatus         string    `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	StripeSessionID       *string   `gorm:"type:varchar(255);uniqueIndex" json:"stripe_session_id,omitempty"`
	StripePaymentIntentID *string   `gorm:"type:varchar(255)" json:"stripe_payment_intent_id,omitempty"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
	OrderItems            []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

// OrderItem snapshots the unit price at checkout time. PriceAtPurchase is
// written once and never re-read from the catalog.
type OrderItem struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID         uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	PriceAtPurchase float64   `gorm:"type:numeric(10,2);not null" json:"price_at_purchase"`
	Product         *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TerminalOrderStatuses are fulfillment states that accept no further
// transitions.
var TerminalOrderStatuses = map[string]bool{
	OrderStatusDelivered: true,
	OrderStatusCancelled: true,
}
