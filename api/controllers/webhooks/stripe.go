package webhooks

import (
	"context"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/littlemirai-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

const stripeSignatureHeader = "Stripe-Signature"

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type SigningSecretProvider interface {
	SigningSecret() string
}

// StripeWebhook verifies and dispatches Stripe checkout events.
func StripeWebhook(svc StripeWebhookService, client SigningSecretProvider, guard EventGuard, logg *logger.Logger) http.HandlerFunc {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || client == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe webhooks not configured"))
			return
		}

		payload, err := readPayload(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		signature := r.Header.Get(stripeSignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}
		// Events are read field by field, so an account pinned to another
		// API version still decodes.
		event, err := webhook.ConstructEventWithOptions(payload, signature, client.SigningSecret(),
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature"))
			return
		}

		deliver(ctx, w, logg, guard, event.ID, func(ctx context.Context) error {
			return svc.HandleEvent(ctx, &event)
		})
	}
}
