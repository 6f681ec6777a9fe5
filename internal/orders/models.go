package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses are externally driven by fulfillment; payment_status is
// driven by the payment reconciler.
const (
	StatusPending   = "pending"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCanceled  = "canceled"

	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

func validStatus(s string) bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

func validPaymentStatus(s string) bool {
	return s == PaymentStatusUnpaid || s == PaymentStatusPaid
}

// OrderItem is a deep copy of a cart line taken at checkout; product_name and
// unit_price are frozen so later catalog changes never alter a placed order.
type OrderItem struct {
	ID          int64           `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentRef      string          `json:"payment_ref,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Patch lists the only fields update may touch. Total and line items are
// immutable after creation.
type Patch struct {
	Status          *string `json:"status"`
	ShippingAddress *string `json:"shipping_address"`
	PaymentMethod   *string `json:"payment_method"`
	PaymentStatus   *string `json:"payment_status"`
}
