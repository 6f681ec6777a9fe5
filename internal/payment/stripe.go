package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/paymentmethod"
	"github.com/stripe/stripe-go/v81/token"
)

// StripeGateway charges through Stripe: the card token is verified, turned
// into a payment method, and captured with a confirmed PaymentIntent.
type StripeGateway struct{}

func NewStripeGateway(apiKey string) (*StripeGateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("stripe api key not provided")
	}
	stripe.Key = apiKey
	return &StripeGateway{}, nil
}

func (g *StripeGateway) ValidateToken(ctx context.Context, tok string) error {
	params := &stripe.TokenParams{Params: stripe.Params{Context: ctx}}
	if _, err := token.Get(tok, params); err != nil {
		return classify(err)
	}
	return nil
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	pmParams := &stripe.PaymentMethodParams{
		Params: stripe.Params{Context: ctx},
		Type:   stripe.String("card"),
		Card:   &stripe.PaymentMethodCardParams{Token: stripe.String(req.CardToken)},
	}
	pm, err := paymentmethod.New(pmParams)
	if err != nil {
		return ChargeResult{}, classify(err)
	}

	piParams := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(req.AmountMinor),
		Currency:           stripe.String(req.Currency),
		PaymentMethod:      stripe.String(pm.ID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
		Description:        stripe.String(req.Description),
	}
	intent, err := paymentintent.New(piParams)
	if err != nil {
		return ChargeResult{}, classify(err)
	}

	return ChargeResult{Reference: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// classify maps stripe errors onto the package taxonomy: card errors are
// declines, invalid-request errors mean a bad token, anything else (network,
// timeout) is a retryable gateway failure.
func classify(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	switch stripeErr.Type {
	case stripe.ErrorTypeCard:
		return &DeclineError{Reason: stripeErr.Msg}
	case stripe.ErrorTypeInvalidRequest:
		return ErrInvalidToken
	case stripe.ErrorTypeAPI:
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	default:
		return &DeclineError{Reason: stripeErr.Msg}
	}
}
