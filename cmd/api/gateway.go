package main

import (
	"context"
	"net/http"

	webhookcontrollers "github.com/angelmondragon/littlemirai-storefront/api/controllers/webhooks"
	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	"github.com/angelmondragon/littlemirai-storefront/internal/webhooks"
	squarewebhook "github.com/angelmondragon/littlemirai-storefront/internal/webhooks/square"
	stripewebhook "github.com/angelmondragon/littlemirai-storefront/internal/webhooks/stripe"
	"github.com/angelmondragon/littlemirai-storefront/pkg/config"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	"github.com/angelmondragon/littlemirai-storefront/pkg/metrics"
	"github.com/angelmondragon/littlemirai-storefront/pkg/redis"
	pkgsquare "github.com/angelmondragon/littlemirai-storefront/pkg/square"
	pkgstripe "github.com/angelmondragon/littlemirai-storefront/pkg/stripe"
)

const (
	stripeWebhookScope = "webhook:stripe"
	squareWebhookScope = "webhook:square"
)

// paymentStack is the selected hosted gateway plus the webhook handler that
// completes its payments. Handlers stay nil for providers that are not active.
type paymentStack struct {
	gateway       payments.Gateway
	stripeWebhook http.HandlerFunc
	squareWebhook http.HandlerFunc
}

type gatewayDeps struct {
	cfg        *config.Config
	logg       *logger.Logger
	dispatcher *payments.Dispatcher
	store      redis.IdempotencyStore
	metrics    *metrics.StorefrontMetrics
}

// buildPaymentStack never fails: a provider with missing or placeholder
// credentials is replaced by an unconfigured gateway and COD stays usable.
func buildPaymentStack(ctx context.Context, deps gatewayDeps) paymentStack {
	provider := deps.cfg.Gateway.NormalizedProvider()
	ctx = deps.logg.WithField(ctx, "provider", provider)

	var (
		stack paymentStack
		err   error
	)
	switch provider {
	case config.GatewayStripe:
		stack, err = buildStripe(ctx, deps)
	case config.GatewaySquare:
		stack, err = buildSquare(ctx, deps)
	default:
		deps.logg.Warn(ctx, "unknown payment provider, gateway methods disabled")
		return paymentStack{gateway: payments.NewUnconfigured(provider, nil)}
	}
	if err != nil {
		deps.logg.Warn(deps.logg.WithField(ctx, "reason", err.Error()), "payment gateway unconfigured")
		return paymentStack{gateway: payments.NewUnconfigured(provider, err)}
	}
	return stack
}

func loaderOptions(cfg *config.Config) payments.LoaderOptions {
	return payments.LoaderOptions{
		BaseDelay: cfg.Gateway.LoadRetryDelay,
		MaxDelay:  cfg.Gateway.LoadMaxDelay,
	}
}

func buildStripe(ctx context.Context, deps gatewayDeps) (paymentStack, error) {
	client, err := pkgstripe.NewClient(ctx, deps.cfg.Stripe, deps.logg)
	if err != nil {
		return paymentStack{}, err
	}

	var gateway *pkgstripe.CheckoutGateway
	loader := payments.NewLoader(pkgstripe.ProviderName, func(ctx context.Context) error {
		return gateway.Warmup(ctx)
	}, loaderOptions(deps.cfg), deps.logg)

	gateway, err = pkgstripe.NewCheckoutGateway(pkgstripe.NewSessionAPI(client), deps.dispatcher, loader, pkgstripe.CheckoutOptions{
		SuccessURL: deps.cfg.Checkout.SuccessURL,
		CancelURL:  deps.cfg.Checkout.CancelURL,
	}, deps.logg)
	if err != nil {
		return paymentStack{}, err
	}

	svc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Resolver: deps.dispatcher,
		Observer: deps.metrics,
		Logger:   deps.logg,
	})
	if err != nil {
		return paymentStack{}, err
	}
	guard, err := webhooks.NewIdempotencyGuard(deps.store, deps.cfg.Idempotency.WebhookTTL, stripeWebhookScope)
	if err != nil {
		return paymentStack{}, err
	}

	loader.Start(ctx)
	return paymentStack{
		gateway:       gateway,
		stripeWebhook: webhookcontrollers.StripeWebhook(svc, client, guard, deps.logg),
	}, nil
}

func buildSquare(ctx context.Context, deps gatewayDeps) (paymentStack, error) {
	client, err := pkgsquare.NewClient(ctx, deps.cfg.Square, deps.logg)
	if err != nil {
		return paymentStack{}, err
	}

	var gateway *pkgsquare.PaymentLinkGateway
	loader := payments.NewLoader(pkgsquare.ProviderName, func(ctx context.Context) error {
		return gateway.Warmup(ctx)
	}, loaderOptions(deps.cfg), deps.logg)

	gateway, err = pkgsquare.NewPaymentLinkGateway(client, deps.dispatcher, loader, pkgsquare.PaymentLinkOptions{
		LocationID:  client.LocationID(),
		RedirectURL: deps.cfg.Checkout.SuccessURL,
	}, deps.logg)
	if err != nil {
		return paymentStack{}, err
	}

	svc, err := squarewebhook.NewService(squarewebhook.ServiceParams{
		Resolver: deps.dispatcher,
		Observer: deps.metrics,
		Logger:   deps.logg,
	})
	if err != nil {
		return paymentStack{}, err
	}
	guard, err := webhooks.NewIdempotencyGuard(deps.store, deps.cfg.Idempotency.WebhookTTL, squareWebhookScope)
	if err != nil {
		return paymentStack{}, err
	}

	loader.Start(ctx)
	return paymentStack{
		gateway:       gateway,
		squareWebhook: webhookcontrollers.SquareWebhook(svc, client, guard, deps.logg),
	}, nil
}
