package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/littlemirai-storefront/api/controllers"
	"github.com/angelmondragon/littlemirai-storefront/api/middleware"
	"github.com/angelmondragon/littlemirai-storefront/api/responses"
	"github.com/angelmondragon/littlemirai-storefront/internal/catalog"
	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	"github.com/angelmondragon/littlemirai-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	"github.com/angelmondragon/littlemirai-storefront/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Nil webhook handlers leave
// the corresponding route answering 503.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	Catalog     catalog.Service
	Shoppers    controllers.ShopperRegistry
	Gateway     payments.Gateway

	StripeWebhook http.HandlerFunc
	SquareWebhook http.HandlerFunc
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis, deps.Gateway))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", orUnconfigured(deps.StripeWebhook, logg))
		r.Post("/square", orUnconfigured(deps.SquareWebhook, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductsList(deps.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductGet(deps.Catalog, logg))
		r.Get("/payment-methods", controllers.PaymentMethods(deps.Gateway))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Shopper(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(deps.Shoppers, logg))
				r.Delete("/", controllers.CartClear(deps.Shoppers, logg))
				r.Post("/items", controllers.CartAddItem(deps.Shoppers, deps.Catalog, logg))
				r.Patch("/items", controllers.CartUpdateItem(deps.Shoppers, logg))
				r.Delete("/items", controllers.CartRemoveItem(deps.Shoppers, logg))
				r.Post("/open", controllers.CartOpen(deps.Shoppers, logg))
				r.Post("/close", controllers.CartClose(deps.Shoppers, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", controllers.CheckoutBegin(deps.Shoppers, logg))
				r.Get("/", controllers.CheckoutGet(deps.Shoppers, logg))
				r.Delete("/", controllers.CheckoutAbandon(deps.Shoppers, logg))
				r.Put("/shipping", controllers.CheckoutShipping(deps.Shoppers, logg))
				r.Put("/billing", controllers.CheckoutBilling(deps.Shoppers, logg))
				r.Put("/payment-method", controllers.CheckoutPaymentMethod(deps.Shoppers, logg))
				r.Post("/payment", controllers.CheckoutPayment(deps.Shoppers, logg))
				r.Post("/back", controllers.CheckoutBack(deps.Shoppers, logg))
				r.With(middleware.Idempotency(deps.Idempotency, cfg.Idempotency.ConfirmTTL, logg)).
					Post("/confirm", controllers.CheckoutConfirm(deps.Shoppers, logg))
				r.Post("/dismiss", controllers.CheckoutDismiss(deps.Shoppers, logg))
				r.Get("/payment/await", controllers.CheckoutAwait(deps.Shoppers, cfg.Checkout.AwaitMax, logg))
			})
		})
	})

	return r
}

func orUnconfigured(h http.HandlerFunc, logg *logger.Logger) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "webhook provider not enabled"))
	}
}
