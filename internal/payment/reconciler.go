package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecommerce-backend/internal/orders"

	"github.com/shopspring/decimal"
)

// ErrAmountMismatch is returned when the client echoes an amount that differs
// from the order total. The charge amount is always derived server-side.
var ErrAmountMismatch = errors.New("amount does not match order total")

// OrderStore is the slice of the orders package the reconciler needs.
type OrderStore interface {
	GetOrder(ctx context.Context, userID, orderID string) (orders.Order, error)
	MarkPaid(ctx context.Context, orderID, paymentRef string) error
}

// Confirmation is the client-facing artifact of a successful capture. The
// client secret comes straight from the gateway and is not persisted.
type Confirmation struct {
	OrderID      string `json:"order_id"`
	Reference    string `json:"reference"`
	ClientSecret string `json:"client_secret"`
}

// Reconciler drives the unpaid -> paid transition against the gateway. No
// idempotency key is sent: two submissions that both observe the order as
// unpaid can charge twice. A failed attempt leaves the order unpaid and
// retryable.
type Reconciler struct {
	store          OrderStore
	gw             Gateway
	currency       string
	gatewayTimeout time.Duration
}

func NewReconciler(store OrderStore, gw Gateway, currency string) (*Reconciler, error) {
	if store == nil || gw == nil {
		return nil, fmt.Errorf("store and gateway are required")
	}
	if currency == "" {
		currency = "inr"
	}
	return &Reconciler{
		store:          store,
		gw:             gw,
		currency:       currency,
		gatewayTimeout: 30 * time.Second,
	}, nil
}

// Capture charges the order total for the given user's order. clientAmount,
// when non-nil, must equal the order total; it is never what gets charged.
func (r *Reconciler) Capture(ctx context.Context, userID, orderID, cardToken string, clientAmount *decimal.Decimal) (Confirmation, error) {
	order, err := r.store.GetOrder(ctx, userID, orderID)
	if err != nil {
		return Confirmation{}, err
	}
	if order.PaymentStatus == orders.PaymentStatusPaid {
		return Confirmation{}, orders.ErrAlreadyPaid
	}
	if clientAmount != nil && !clientAmount.Equal(order.Total) {
		return Confirmation{}, ErrAmountMismatch
	}

	// The remote calls run under their own timeout and hold no DB locks.
	gwCtx, cancel := context.WithTimeout(ctx, r.gatewayTimeout)
	defer cancel()

	if err := r.gw.ValidateToken(gwCtx, cardToken); err != nil {
		return Confirmation{}, err
	}

	result, err := r.gw.Charge(gwCtx, ChargeRequest{
		AmountMinor: order.Total.Shift(2).IntPart(),
		Currency:    r.currency,
		CardToken:   cardToken,
		Description: fmt.Sprintf("order %s", order.ID),
	})
	if err != nil {
		return Confirmation{}, err
	}

	// The charge has succeeded at this point. If recording it fails the
	// caller gets the reference back inside the error so the order can be
	// reconciled by hand.
	if err := r.store.MarkPaid(ctx, order.ID, result.Reference); err != nil {
		return Confirmation{}, fmt.Errorf("charge %s captured but order update failed: %w", result.Reference, err)
	}

	return Confirmation{
		OrderID:      order.ID,
		Reference:    result.Reference,
		ClientSecret: result.ClientSecret,
	}, nil
}
