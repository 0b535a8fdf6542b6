package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

// CheckoutSession is the external redirect target handed back to the client.
type CheckoutSession struct {
	ProviderID string
	URL        string
}

// CheckoutProvider hosts the external checkout page and reports completion.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, amountCents int64, description, reference string) (*CheckoutSession, error)
	VerifyCompleted(ctx context.Context, providerID string) (bool, error)
}

// StripeProvider creates Stripe Checkout sessions. The account key is set
// process-wide on stripe.Key at startup.
type StripeProvider struct {
	successURL string
	cancelURL  string
	dryRun     bool
	logger     *zap.Logger
}

func NewStripeProvider(successURL, cancelURL string, dryRun bool, logger *zap.Logger) *StripeProvider {
	return &StripeProvider{
		successURL: successURL,
		cancelURL:  cancelURL,
		dryRun:     dryRun,
		logger:     logger,
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, amountCents int64, description, reference string) (*CheckoutSession, error) {
	if p.dryRun {
		fakeID := "cs_dryrun_" + uuid.NewString()[:8]
		p.logger.Info("stripe dry run: skipping checkout session creation",
			zap.String("reference", reference),
			zap.Int64("amount_cents", amountCents),
		)
		return &CheckoutSession{
			ProviderID: fakeID,
			URL:        "https://checkout.stripe.com/dry-run/" + fakeID,
		}, nil
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
					UnitAmount: stripe.Int64(amountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(p.successURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(p.cancelURL),
		ClientReferenceID: stripe.String(reference),
	}
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe checkout session: %w", err)
	}

	return &CheckoutSession{ProviderID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) VerifyCompleted(ctx context.Context, providerID string) (bool, error) {
	if p.dryRun {
		return true, nil
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := checkoutsession.Get(providerID, params)
	if err != nil {
		return false, fmt.Errorf("fetch stripe checkout session: %w", err)
	}

	return sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}
