package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/balance"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

// ProviderName labels Stripe in logs and metrics.
const ProviderName = "stripe"

const orderIDMetadataKey = "order_id"

// SessionAPI is the slice of Stripe used for hosted checkout.
type SessionAPI interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Expire(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type sessionAPI struct{}

// NewSessionAPI wraps the package-level Stripe resources configured by NewClient.
func NewSessionAPI(client *Client) SessionAPI {
	if client == nil {
		return nil
	}
	return sessionAPI{}
}

func (sessionAPI) Create(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return session.New(params)
}

func (sessionAPI) Expire(ctx context.Context, id string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	_, err := session.Expire(id, params)
	return err
}

func (sessionAPI) Ping(ctx context.Context) error {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	_, err := balance.Get(params)
	return err
}

// CheckoutOptions configures redirect targets for the hosted page.
type CheckoutOptions struct {
	SuccessURL string
	CancelURL  string
}

// CheckoutGateway opens Stripe Checkout Sessions. Results arrive through the
// dispatcher once the webhook for the session is processed.
type CheckoutGateway struct {
	api        SessionAPI
	dispatcher *payments.Dispatcher
	loader     *payments.Loader
	opts       CheckoutOptions
	logg       *logger.Logger
}

// NewCheckoutGateway builds the gateway. The loader decides readiness.
func NewCheckoutGateway(api SessionAPI, dispatcher *payments.Dispatcher, loader *payments.Loader, opts CheckoutOptions, logg *logger.Logger) (*CheckoutGateway, error) {
	if api == nil {
		return nil, fmt.Errorf("stripe session api required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("payment dispatcher required")
	}
	if loader == nil {
		return nil, fmt.Errorf("gateway loader required")
	}
	if strings.TrimSpace(opts.SuccessURL) == "" || strings.TrimSpace(opts.CancelURL) == "" {
		return nil, fmt.Errorf("stripe success and cancel urls required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CheckoutGateway{api: api, dispatcher: dispatcher, loader: loader, opts: opts, logg: logg}, nil
}

// Warmup is handed to the loader.
func (g *CheckoutGateway) Warmup(ctx context.Context) error {
	return g.api.Ping(ctx)
}

func (g *CheckoutGateway) Name() string { return ProviderName }

func (g *CheckoutGateway) Ready() bool { return g.loader.Ready() }

func (g *CheckoutGateway) Configured() error { return nil }

func (g *CheckoutGateway) Open(ctx context.Context, req payments.Request) (*payments.Handle, error) {
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	ctx = g.logg.WithFields(ctx, map[string]any{"gateway": ProviderName, "order_id": req.OrderID})

	results := g.dispatcher.Register(req.OrderID)
	params := sessionParams(req, g.opts)
	g.logg.Info(g.logg.WithFields(ctx, map[string]any{
		"phase":        "request",
		"amount_minor": req.AmountMinor,
		"currency":     req.Currency.String(),
		"has_email":    req.CustomerEmail != "",
	}), "creating stripe checkout session")

	sess, err := g.api.Create(ctx, params)
	if err != nil {
		g.dispatcher.Forget(req.OrderID)
		g.logg.Error(g.logg.WithField(ctx, "phase", "error"), "stripe checkout session failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayFailure, err, "could not open stripe checkout")
	}
	g.dispatcher.Bind(sess.ID, req.OrderID)
	g.logg.Info(g.logg.WithFields(ctx, map[string]any{"phase": "response", "session_id": sess.ID}), "stripe checkout session created")

	return &payments.Handle{Reference: sess.ID, RedirectURL: sess.URL, Results: results}, nil
}

// Cancel expires the hosted session and drops the pending attempt.
func (g *CheckoutGateway) Cancel(ctx context.Context, reference string) error {
	if orderID, ok := g.dispatcher.OrderFor(reference); ok {
		g.dispatcher.Forget(orderID)
	}
	if err := g.api.Expire(ctx, reference); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire stripe checkout session")
	}
	return nil
}

func sessionParams(req payments.Request, opts CheckoutOptions) *stripe.CheckoutSessionParams {
	name := req.MerchantName
	if name == "" {
		name = "Order"
	}
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(name)}
	if req.Description != "" {
		product.Description = stripe.String(req.Description)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(opts.SuccessURL),
		CancelURL:         stripe.String(opts.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(strings.ToLower(req.Currency.String())),
				UnitAmount:  stripe.Int64(req.AmountMinor),
				ProductData: product,
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{orderIDMetadataKey: req.OrderID},
		},
	}
	if req.Description != "" {
		params.PaymentIntentData.Description = stripe.String(req.Description)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata(orderIDMetadataKey, req.OrderID)
	return params
}

// OrderIDFromMetadata reads the order id stamped on sessions and payment intents.
func OrderIDFromMetadata(metadata map[string]string) string {
	return strings.TrimSpace(metadata[orderIDMetadataKey])
}
