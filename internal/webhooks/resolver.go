package webhooks

import "github.com/angelmondragon/littlemirai-storefront/internal/payments"

// Resolver hands terminal payment results to the waiting checkout attempt.
type Resolver interface {
	Resolve(orderID string, result payments.Result) bool
	ResolveRef(reference string, result payments.Result) bool
}

// Observer counts webhook outcomes.
type Observer interface {
	ObserveWebhook(provider, result string)
}

const (
	ResultDelivered = "delivered"
	ResultUnmatched = "unmatched"
	ResultIgnored   = "ignored"
)

// Deliver resolves by order id first, then by provider reference.
func Deliver(r Resolver, orderID, reference string, result payments.Result) string {
	if orderID != "" && r.Resolve(orderID, result) {
		return ResultDelivered
	}
	if reference != "" && r.ResolveRef(reference, result) {
		return ResultDelivered
	}
	return ResultUnmatched
}
