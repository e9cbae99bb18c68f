package payments

import (
	"context"
	"strings"

	"github.com/angelmondragon/littlemirai-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
)

// Request is everything a hosted payment page needs to collect one payment.
type Request struct {
	AmountMinor   int64
	Currency      enums.Currency
	OrderID       string
	MerchantName  string
	Description   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// Outcome classifies how a payment attempt ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeDismissed Outcome = "dismissed"
	OutcomeFailed    Outcome = "failed"
)

// Result is the single terminal report for a payment attempt.
type Result struct {
	Outcome     Outcome
	OrderID     string
	PaymentID   string
	Signature   string
	Description string
}

func Succeeded(orderID, paymentID, signature string) Result {
	return Result{Outcome: OutcomeSucceeded, OrderID: orderID, PaymentID: paymentID, Signature: signature}
}

func Dismissed(orderID string) Result {
	return Result{Outcome: OutcomeDismissed, OrderID: orderID}
}

func Failed(orderID, description string) Result {
	return Result{Outcome: OutcomeFailed, OrderID: orderID, Description: description}
}

// Handle is returned when the hosted page opens. Results yields exactly one value.
type Handle struct {
	Reference   string
	RedirectURL string
	Results     <-chan Result
}

// Gateway is the hosted payment provider seen from checkout.
type Gateway interface {
	Name() string
	// Ready reports whether the provider client finished loading.
	Ready() bool
	// Configured returns an error when credentials are missing or placeholders.
	Configured() error
	Open(ctx context.Context, req Request) (*Handle, error)
	// Cancel abandons the hosted session behind reference. Best effort.
	Cancel(ctx context.Context, reference string) error
}

var placeholderMarkers = []string{"your_key_here", "your-key-here", "replace_me", "changeme", "xxxx"}

// IsPlaceholder reports whether a credential is blank or an obvious template value.
func IsPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(v, marker) {
			return true
		}
	}
	return false
}

// RequireCredential returns a configuration error naming the credential when it is unusable.
func RequireCredential(name, value string) error {
	if IsPlaceholder(value) {
		return pkgerrors.New(pkgerrors.CodeConfiguration, name+" is missing or still a placeholder")
	}
	return nil
}
