package squarewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	"github.com/angelmondragon/littlemirai-storefront/internal/webhooks"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	pkgsquare "github.com/angelmondragon/littlemirai-storefront/pkg/square"
)

const eventPaymentUpdated = "payment.updated"

type ServiceParams struct {
	Resolver webhooks.Resolver
	Observer webhooks.Observer
	Logger   *logger.Logger
}

// Service turns Square payment events into payment results.
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

type SquareWebhookEvent struct {
	EventID string            `json:"event_id"`
	Type    string            `json:"type"`
	Data    SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *SquarePayment `json:"payment"`
}

type SquarePayment struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	OrderID    string `json:"order_id"`
	Note       string `json:"note"`
	ReceiptURL string `json:"receipt_url"`
}

// ParseEvent decodes a raw webhook body.
func ParseEvent(payload []byte) (*SquareWebhookEvent, error) {
	var event SquareWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode square event")
	}
	return &event, nil
}

// HandleEvent delivers terminal payment statuses. Intermediate statuses
// (APPROVED, PENDING) are acknowledged without effect.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	result := webhooks.ResultIgnored
	if event.Type == eventPaymentUpdated {
		payment := event.Data.Object.Payment
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "square payment missing from event")
		}
		if r, ok := resultFor(payment, event.EventID); ok {
			result = webhooks.Deliver(s.resolver, "", payment.OrderID, r)
		}
	}

	if s.observer != nil {
		s.observer.ObserveWebhook(pkgsquare.ProviderName, result)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.EventID,
		"event_type": event.Type,
		"result":     result,
	}), "square webhook handled")
	return nil
}

func resultFor(p *SquarePayment, eventID string) (payments.Result, bool) {
	switch strings.ToUpper(p.Status) {
	case "COMPLETED":
		return payments.Succeeded("", p.ID, eventID), true
	case "FAILED":
		return payments.Failed("", "Payment failed"), true
	case "CANCELED":
		return payments.Dismissed(""), true
	default:
		return payments.Result{}, false
	}
}
