package square

import (
	"context"
	"fmt"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

// ProviderName labels Square in logs and metrics.
const ProviderName = "square"

// LinkAPI is the slice of the Square client used for hosted checkout.
type LinkAPI interface {
	CreatePaymentLink(ctx context.Context, params PaymentLinkParams) (*sq.PaymentLink, error)
	DeletePaymentLink(ctx context.Context, linkID string) error
	ListLocations(ctx context.Context) (int, error)
}

// PaymentLinkOptions configures the hosted page.
type PaymentLinkOptions struct {
	LocationID  string
	RedirectURL string
}

// PaymentLinkGateway opens Square quick-pay links. The Square order behind
// each link is bound to our order id so payment webhooks can find it.
type PaymentLinkGateway struct {
	api        LinkAPI
	dispatcher *payments.Dispatcher
	loader     *payments.Loader
	opts       PaymentLinkOptions
	logg       *logger.Logger
}

func NewPaymentLinkGateway(api LinkAPI, dispatcher *payments.Dispatcher, loader *payments.Loader, opts PaymentLinkOptions, logg *logger.Logger) (*PaymentLinkGateway, error) {
	if api == nil {
		return nil, fmt.Errorf("square link api required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("payment dispatcher required")
	}
	if loader == nil {
		return nil, fmt.Errorf("gateway loader required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &PaymentLinkGateway{api: api, dispatcher: dispatcher, loader: loader, opts: opts, logg: logg}, nil
}

// Warmup is handed to the loader.
func (g *PaymentLinkGateway) Warmup(ctx context.Context) error {
	n, err := g.api.ListLocations(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("square account has no locations")
	}
	return nil
}

func (g *PaymentLinkGateway) Name() string { return ProviderName }

func (g *PaymentLinkGateway) Ready() bool { return g.loader.Ready() }

func (g *PaymentLinkGateway) Configured() error {
	return payments.RequireCredential("square location id", g.opts.LocationID)
}

func (g *PaymentLinkGateway) Open(ctx context.Context, req payments.Request) (*payments.Handle, error) {
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	results := g.dispatcher.Register(req.OrderID)
	link, err := g.api.CreatePaymentLink(ctx, PaymentLinkParams{
		Name:           req.MerchantName,
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency.String(),
		LocationID:     g.opts.LocationID,
		ReferenceID:    req.OrderID,
		Description:    req.Description,
		RedirectURL:    g.opts.RedirectURL,
		BuyerEmail:     req.CustomerEmail,
		BuyerPhone:     req.CustomerPhone,
		IdempotencyKey: "lm-" + req.OrderID,
	})
	if err != nil {
		g.dispatcher.Forget(req.OrderID)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayFailure, err, "could not open square checkout")
	}

	linkID := stringValue(link.GetID())
	g.dispatcher.Bind(linkID, req.OrderID)
	g.dispatcher.Bind(stringValue(link.GetOrderID()), req.OrderID)
	return &payments.Handle{Reference: linkID, RedirectURL: stringValue(link.GetURL()), Results: results}, nil
}

// Cancel deletes the payment link and drops the pending attempt.
func (g *PaymentLinkGateway) Cancel(ctx context.Context, reference string) error {
	if orderID, ok := g.dispatcher.OrderFor(reference); ok {
		g.dispatcher.Forget(orderID)
	}
	return g.api.DeletePaymentLink(ctx, reference)
}
