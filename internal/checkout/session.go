package checkout

import (
	"time"

	"github.com/angelmondragon/littlemirai-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/types"
)

// Session is the state of one checkout.
type Session struct {
	Step                  enums.CheckoutStep  `json:"step"`
	PaymentMethod         enums.PaymentMethod `json:"payment_method,omitempty"`
	Shipping              types.Address       `json:"shipping"`
	Billing               types.Address       `json:"billing"`
	BillingSameAsShipping bool                `json:"billing_same_as_shipping"`
	Processing            bool                `json:"processing"`
	Completed             bool                `json:"completed"`
	OrderID               string              `json:"order_id,omitempty"`
	PaymentID             string              `json:"payment_id,omitempty"`
	AmountMinor           int64               `json:"amount_minor,omitempty"`
	RedirectURL           string              `json:"redirect_url,omitempty"`
	LastFailure           string              `json:"last_failure,omitempty"`
	LastErrorCode         pkgerrors.Code      `json:"last_error_code,omitempty"`
	StartedAt             time.Time           `json:"started_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

func newSession(now time.Time) Session {
	return Session{
		Step:                  enums.CheckoutStepShipping,
		BillingSameAsShipping: true,
		StartedAt:             now,
		UpdatedAt:             now,
	}
}

// BillingAddress resolves the effective billing address.
func (s Session) BillingAddress() types.Address {
	if s.BillingSameAsShipping {
		return s.Shipping
	}
	return s.Billing
}

var allowedSteps = map[enums.CheckoutStep][]enums.CheckoutStep{
	enums.CheckoutStepShipping: {enums.CheckoutStepPayment},
	enums.CheckoutStepPayment:  {enums.CheckoutStepShipping, enums.CheckoutStepReview},
	enums.CheckoutStepReview:   {enums.CheckoutStepPayment, enums.CheckoutStepShipping, enums.CheckoutStepPlaced},
	enums.CheckoutStepPlaced:   {},
}

// CanTransition reports whether the step graph allows from -> to.
func CanTransition(from, to enums.CheckoutStep) bool {
	for _, candidate := range allowedSteps[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Route tells the presentation layer where to send the shopper after confirm.
type Route string

const (
	RouteCatalog  Route = "catalog"
	RouteShipping Route = "shipping"
	RouteReview   Route = "review"
	RoutePayment  Route = "payment"
	RoutePlaced   Route = "placed"
)

// ConfirmOutcome is returned by a successful Confirm call.
type ConfirmOutcome struct {
	Session     Session `json:"session"`
	Processing  bool    `json:"processing"`
	RedirectURL string  `json:"redirect_url,omitempty"`
	Route       Route   `json:"route"`
}
