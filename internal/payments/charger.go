package payments

import (
	"context"
	"fmt"
	"math"

	"github.com/campusops/attendance-portal/pkg/config"
	"github.com/campusops/attendance-portal/pkg/logger"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// Charger collects an absentee fine. The ledger only flips penalty_paid
// after a successful charge.
type Charger interface {
	Charge(ctx context.Context, amount float64, description string) (receiptID string, err error)
}

// StripeCharger creates a PaymentIntent per fine. Amounts are converted to
// minor currency units.
type StripeCharger struct {
	currency string
}

func NewStripeCharger(cfg config.PaymentsConfig) *StripeCharger {
	stripe.Key = cfg.StripeSecretKey
	return &StripeCharger{currency: cfg.Currency}
}

func (c *StripeCharger) Charge(ctx context.Context, amount float64, description string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(int64(math.Round(amount * 100))),
		Currency:    stripe.String(c.currency),
		Description: stripe.String(description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe payment intent: %w", err)
	}
	return pi.ID, nil
}

// DevCharger settles fines without touching a payment provider, for local
// development and the cashier-collects-cash deployment.
type DevCharger struct{}

func NewDevCharger() *DevCharger { return &DevCharger{} }

func (c *DevCharger) Charge(ctx context.Context, amount float64, description string) (string, error) {
	logger.InfoContext(ctx, "[DEV PAYMENT] Fine collected", "amount", amount, "description", description)
	return "dev-receipt", nil
}

var (
	_ Charger = (*StripeCharger)(nil)
	_ Charger = (*DevCharger)(nil)
)
