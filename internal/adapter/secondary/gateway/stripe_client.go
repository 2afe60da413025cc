package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/fooddelivery/payment-service/internal/port/output"
)

// Config carries the gateway credentials. The key is injected here rather
// than set on the stripe package global, so tests can build isolated
// clients per case.
type Config struct {
	SecretKey string
}

// StripeGateway is a secondary adapter that implements the PaymentGateway
// output port against Stripe.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a Stripe-backed gateway client.
func NewStripeGateway(cfg Config) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeGateway{api: api}
}

// CreateIntent creates a payment intent tagged with the order id as
// correlation metadata.
func (g *StripeGateway) CreateIntent(ctx context.Context, customerRef string, amountMinor int64, currency, orderID string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_id", orderID)
	params.AddMetadata("customer_id", customerRef)

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return "", wrapStripeErr("create intent", err)
	}
	return intent.ID, nil
}

// ConfirmIntent confirms the intent and reports the resulting state.
func (g *StripeGateway) ConfirmIntent(ctx context.Context, intentID string) (output.IntentState, error) {
	params := &stripe.PaymentIntentConfirmParams{
		Params: stripe.Params{Context: ctx},
	}
	params.AddExpand("latest_charge")

	intent, err := g.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return output.IntentState{}, wrapStripeErr("confirm intent", err)
	}
	return intentState(intent), nil
}

// RetrieveIntent reads the intent's current state without side effects.
func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (output.IntentState, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	}
	params.AddExpand("latest_charge")

	intent, err := g.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return output.IntentState{}, wrapStripeErr("retrieve intent", err)
	}
	return intentState(intent), nil
}

// CreateRefund refunds amountMinor against a captured charge. Stripe infers
// the currency from the charge; the parameter exists to satisfy the port
// contract for gateways that need it.
func (g *StripeGateway) CreateRefund(ctx context.Context, chargeID string, amountMinor int64, currency string) (string, error) {
	params := &stripe.RefundParams{
		Params: stripe.Params{Context: ctx},
		Charge: stripe.String(chargeID),
		Amount: stripe.Int64(amountMinor),
	}

	refund, err := g.api.Refunds.New(params)
	if err != nil {
		return "", wrapStripeErr("create refund", err)
	}
	return refund.ID, nil
}

// intentState maps Stripe's intent status into the port's closed outcome
// variant. Anything not terminal stays pending; the engine decides what
// pending means per operation.
func intentState(intent *stripe.PaymentIntent) output.IntentState {
	state := output.IntentState{}
	if intent.LatestCharge != nil {
		state.ChargeID = intent.LatestCharge.ID
	}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		state.Outcome = output.OutcomeSucceeded
	case stripe.PaymentIntentStatusCanceled:
		state.Outcome = output.OutcomeFailed
	default:
		state.Outcome = output.OutcomePending
	}
	return state
}

// wrapStripeErr keeps the original error in the chain so context timeouts
// and cancellations stay detectable with errors.Is upstream.
func wrapStripeErr(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("stripe %s failed with code %s: %w", op, stripeErr.Code, err)
	}
	return fmt.Errorf("stripe %s failed: %w", op, err)
}
