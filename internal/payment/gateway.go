package payment

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken means the card token was rejected before any charge
	// was attempted.
	ErrInvalidToken = errors.New("invalid payment information")

	// ErrGatewayUnavailable covers transport failures and timeouts talking
	// to the gateway; callers may retry, the charge outcome is unknown.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// DeclineError is a hard decline from the gateway, carrying its reason when
// one was provided.
type DeclineError struct {
	Reason string
}

func (e *DeclineError) Error() string {
	if e.Reason == "" {
		return "payment declined"
	}
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

type ChargeRequest struct {
	// AmountMinor is the charge amount in the currency's smallest unit.
	AmountMinor int64
	Currency    string
	CardToken   string
	Description string
}

// ChargeResult carries the gateway's confirmation artifacts. The client
// secret is returned to the caller but never persisted.
type ChargeResult struct {
	Reference    string
	ClientSecret string
}

// Gateway abstracts the remote payment processor: token validation and a
// single charge call.
type Gateway interface {
	ValidateToken(ctx context.Context, token string) error
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}
