package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	"github.com/angelmondragon/littlemirai-storefront/internal/webhooks"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	pkgstripe "github.com/angelmondragon/littlemirai-storefront/pkg/stripe"
	"github.com/stripe/stripe-go/v84"
)

const defaultFailureMessage = "Payment failed"

type ServiceParams struct {
	Resolver webhooks.Resolver
	Observer webhooks.Observer
	Logger   *logger.Logger
}

// Service turns Stripe checkout events into payment results.
type Service struct {
	resolver webhooks.Resolver
	observer webhooks.Observer
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment resolver required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{resolver: params.Resolver, observer: params.Observer, logg: params.Logger}, nil
}

// HandleEvent delivers the result carried by event. Events for attempts that
// are no longer waiting are acknowledged and dropped.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	outcome, err := s.route(event)
	if err != nil {
		return err
	}
	s.observe(outcome)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
		"result":     outcome,
	}), "stripe webhook handled")
	return nil
}

func (s *Service) route(event *stripe.Event) (string, error) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		sess, err := decodeSession(event)
		if err != nil {
			return "", err
		}
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			// Delayed methods settle later through async_payment_succeeded.
			return webhooks.ResultIgnored, nil
		}
		orderID := sessionOrderID(sess)
		return webhooks.Deliver(s.resolver, orderID, sess.ID, payments.Succeeded(orderID, paymentIntentID(sess), event.ID)), nil

	case stripe.EventTypeCheckoutSessionExpired:
		sess, err := decodeSession(event)
		if err != nil {
			return "", err
		}
		orderID := sessionOrderID(sess)
		return webhooks.Deliver(s.resolver, orderID, sess.ID, payments.Dismissed(orderID)), nil

	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		sess, err := decodeSession(event)
		if err != nil {
			return "", err
		}
		orderID := sessionOrderID(sess)
		return webhooks.Deliver(s.resolver, orderID, sess.ID, payments.Failed(orderID, defaultFailureMessage)), nil

	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		orderID := pkgstripe.OrderIDFromMetadata(intent.Metadata)
		if orderID == "" {
			return webhooks.ResultUnmatched, nil
		}
		return webhooks.Deliver(s.resolver, orderID, "", payments.Failed(orderID, failureMessage(&intent))), nil

	default:
		return webhooks.ResultIgnored, nil
	}
}

func (s *Service) observe(result string) {
	if s.observer != nil {
		s.observer.ObserveWebhook(pkgstripe.ProviderName, result)
	}
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("decode %s event", event.Type))
	}
	return &sess, nil
}

func sessionOrderID(sess *stripe.CheckoutSession) string {
	if sess.ClientReferenceID != "" {
		return sess.ClientReferenceID
	}
	return pkgstripe.OrderIDFromMetadata(sess.Metadata)
}

func paymentIntentID(sess *stripe.CheckoutSession) string {
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		return sess.PaymentIntent.ID
	}
	return sess.ID
}

func failureMessage(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return defaultFailureMessage
}
