package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/littlemirai-storefront/api/responses"
	"github.com/angelmondragon/littlemirai-storefront/api/validators"
	"github.com/angelmondragon/littlemirai-storefront/internal/checkout"
	"github.com/angelmondragon/littlemirai-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	"github.com/angelmondragon/littlemirai-storefront/pkg/types"
)

const defaultAwaitMax = 25 * time.Second

// CheckoutBegin starts a session or returns the one already in progress.
func CheckoutBegin(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shopper registry unavailable"))
			return
		}
		shopperID, err := shopperIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		flow, err := reg.BeginCheckout(r.Context(), shopperID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{Session: flow.Snapshot(), Totals: flow.Totals()})
	}
}

func CheckoutGet(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withFlow(reg, logg, func(w http.ResponseWriter, r *http.Request, flow *checkout.Flow) {
		writeSession(w, flow, flow.Snapshot())
	})
}

func CheckoutAbandon(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shopper registry unavailable"))
			return
		}
		shopperID, err := shopperIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !reg.AbandonCheckout(context.WithoutCancel(r.Context()), shopperID) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout session"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func CheckoutShipping(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withFlow(reg, logg, func(w http.ResponseWriter, r *http.Request, flow *checkout.Flow) {
		var payload types.Address
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := flow.SubmitShipping(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, flow, session)
	})
}

// CheckoutBilling either decouples billing with its own address or re-couples
// it to shipping.
func CheckoutBilling(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withFlow(reg, logg, func(w http.ResponseWriter, r *http.Request, flow *checkout.Flow) {
		var payload billingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			session checkout.Session
			err     error
		)
		if payload.SameAsShipping {
			session, err = flow.UseShippingForBilling()
		} else {
			session, err = flow.SetBillingAddress(*payload.Address)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, flow, session)
	})
}

func CheckoutPaymentMethod(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withFlow(reg, logg, func(w http.ResponseWriter, r *http.Request, flow *checkout.Flow) {
		var payload paymentMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := flow.SelectPaymentMethod(enums.PaymentMethod(payload.Method))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, flow, session)
	})
}

func CheckoutPayment(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withFlow(reg, logg, func(w http.ResponseWriter, r *http.Request, flow *checkout.Flow) {
		session, err := flow.SubmitPayment()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, flow, session)
	})
}

func CheckoutBack(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withFlow(reg, logg, func(w http.ResponseWriter, r *http.Request, flow *checkout.Flow) {
		session, err := flow.Back()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, flow, session)
	})
}

// CheckoutConfirm places the order. A gateway payment answers 202 with the
// hosted page URL; the result arrives later through the webhook.
func CheckoutConfirm(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withFlow(reg, logg, func(w http.ResponseWriter, r *http.Request, flow *checkout.Flow) {
		// The attempt outlives the request: its watcher logs and cancels with this ctx.
		outcome, err := flow.Confirm(context.WithoutCancel(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if outcome.Processing {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, confirmResponse{ConfirmOutcome: outcome, Totals: flow.Totals()})
	})
}

func CheckoutDismiss(reg ShopperRegistry, logg *logger.Logger) http.HandlerFunc {
	return withFlow(reg, logg, func(w http.ResponseWriter, r *http.Request, flow *checkout.Flow) {
		session, err := flow.Dismiss(context.WithoutCancel(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, flow, session)
	})
}

// CheckoutAwait long-polls the in-flight payment for at most awaitMax, or the
// shorter ?wait= seconds. A still-processing session is returned on expiry.
func CheckoutAwait(reg ShopperRegistry, awaitMax time.Duration, logg *logger.Logger) http.HandlerFunc {
	if awaitMax <= 0 {
		awaitMax = defaultAwaitMax
	}
	maxSeconds := int(awaitMax / time.Second)
	if maxSeconds < 1 {
		maxSeconds = 1
	}
	return withFlow(reg, logg, func(w http.ResponseWriter, r *http.Request, flow *checkout.Flow) {
		wait, err := validators.ParseQueryInt(r, "wait", maxSeconds, 1, maxSeconds)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(wait)*time.Second)
		defer cancel()

		session, err := flow.AwaitPayment(ctx)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, flow, session)
	})
}

type flowHandler func(w http.ResponseWriter, r *http.Request, flow *checkout.Flow)

func withFlow(reg ShopperRegistry, logg *logger.Logger, next flowHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shopper registry unavailable"))
			return
		}
		shopperID, err := shopperIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shopper, ok := reg.Get(shopperID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout session"))
			return
		}
		flow, ok := shopper.Checkout()
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout session"))
			return
		}
		next(w, r, flow)
	}
}

func writeSession(w http.ResponseWriter, flow *checkout.Flow, session checkout.Session) {
	responses.WriteSuccess(w, checkoutResponse{Session: session, Totals: flow.Totals()})
}
