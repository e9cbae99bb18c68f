package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/littlemirai-storefront/internal/cart"
	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	"github.com/angelmondragon/littlemirai-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	"github.com/angelmondragon/littlemirai-storefront/pkg/types"
)

const cancelTimeout = 10 * time.Second

// Cart is the slice of the cart store checkout depends on.
type Cart interface {
	IsEmpty() bool
	Totals() cart.Totals
	Clear() cart.State
}

// Observer receives checkout outcomes, typically metrics.
type Observer interface {
	ObserveCheckoutOutcome(outcome string)
	ObservePaymentDuration(provider, outcome string, d time.Duration)
}

// Options configures a Flow.
type Options struct {
	PaymentTimeout time.Duration
	MerchantName   string
	Description    string
	Observer       Observer
	Now            func() time.Time
}

type attempt struct {
	orderID   string
	reference string
	startedAt time.Time
	results   <-chan payments.Result
	stop      chan struct{}
	done      chan struct{}
	err       error
}

// Flow drives one checkout session from shipping through placement. All
// transitions are serialized; a payment attempt in flight blocks every
// transition except Dismiss and Abandon.
type Flow struct {
	mu        sync.Mutex
	session   Session
	cart      Cart
	gateway   payments.Gateway
	issuer    payments.OrderIssuer
	logg      *logger.Logger
	opts      Options
	attempt   *attempt
	abandoned bool
}

// NewFlow starts a session at the shipping step.
func NewFlow(c Cart, gateway payments.Gateway, issuer payments.OrderIssuer, logg *logger.Logger, opts Options) (*Flow, error) {
	if c == nil {
		return nil, fmt.Errorf("cart required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("order issuer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 15 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Flow{
		session: newSession(opts.Now()),
		cart:    c,
		gateway: gateway,
		issuer:  issuer,
		logg:    logg,
		opts:    opts,
	}, nil
}

// Snapshot returns a copy of the session.
func (f *Flow) Snapshot() Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

// Totals always reflects the live cart.
func (f *Flow) Totals() cart.Totals {
	return f.cart.Totals()
}

// SubmitShipping stores a complete shipping address and moves to payment.
func (f *Flow) SubmitShipping(addr types.Address) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.guardLocked(enums.CheckoutStepShipping); err != nil {
		return f.session, err
	}
	if err := validateAddress("shipping", addr); err != nil {
		return f.session, err
	}

	f.session.Shipping = addr
	f.moveLocked(enums.CheckoutStepPayment)
	return f.session, nil
}

// SetBillingAddress decouples billing from shipping.
func (f *Flow) SetBillingAddress(addr types.Address) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.guardEditableLocked(); err != nil {
		return f.session, err
	}
	if err := validateAddress("billing", addr); err != nil {
		return f.session, err
	}
	f.session.Billing = addr
	f.session.BillingSameAsShipping = false
	f.touchLocked()
	return f.session, nil
}

// UseShippingForBilling re-couples billing to the shipping address.
func (f *Flow) UseShippingForBilling() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.guardEditableLocked(); err != nil {
		return f.session, err
	}
	f.session.Billing = types.Address{}
	f.session.BillingSameAsShipping = true
	f.touchLocked()
	return f.session, nil
}

// SelectPaymentMethod records the method. Gateway methods need a configured, loaded gateway.
func (f *Flow) SelectPaymentMethod(method enums.PaymentMethod) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.guardLocked(enums.CheckoutStepPayment); err != nil {
		return f.session, err
	}
	if !method.IsValid() {
		return f.session, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"payment_method": method.String()})
	}
	if method.IsGateway() {
		if err := f.gatewayAvailable(); err != nil {
			return f.session, err
		}
	}
	f.session.PaymentMethod = method
	f.touchLocked()
	return f.session, nil
}

// SubmitPayment advances to review once a method is chosen.
func (f *Flow) SubmitPayment() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.guardLocked(enums.CheckoutStepPayment); err != nil {
		return f.session, err
	}
	if f.session.PaymentMethod == "" {
		return f.session, pkgerrors.New(pkgerrors.CodeValidation, "select a payment method")
	}
	f.moveLocked(enums.CheckoutStepReview)
	return f.session, nil
}

// Back returns to the previous step, keeping everything entered so far.
func (f *Flow) Back() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.abandoned {
		return f.session, stateConflict("checkout abandoned", f.session.Step)
	}
	if f.session.Processing {
		return f.session, stateConflict("payment in progress", f.session.Step)
	}
	switch f.session.Step {
	case enums.CheckoutStepPayment:
		f.moveLocked(enums.CheckoutStepShipping)
	case enums.CheckoutStepReview:
		f.moveLocked(enums.CheckoutStepPayment)
	default:
		return f.session, stateConflict("no previous step", f.session.Step)
	}
	return f.session, nil
}

// Confirm places the order: cash on delivery finalizes immediately, gateway
// methods open the hosted payment page and resolve asynchronously.
func (f *Flow) Confirm(ctx context.Context) (ConfirmOutcome, error) {
	f.mu.Lock()

	if err := f.guardLocked(enums.CheckoutStepReview); err != nil {
		f.mu.Unlock()
		return ConfirmOutcome{Session: f.Snapshot()}, err
	}

	if f.cart.IsEmpty() {
		session := f.session
		f.mu.Unlock()
		return ConfirmOutcome{Session: session, Route: RouteCatalog},
			pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
				WithDetails(map[string]any{"route": RouteCatalog})
	}

	if err := f.validateAddressesLocked(); err != nil {
		f.moveLocked(enums.CheckoutStepShipping)
		session := f.session
		f.mu.Unlock()
		return ConfirmOutcome{Session: session, Route: RouteShipping}, err
	}

	f.session.Processing = true
	f.session.LastFailure = ""
	f.session.LastErrorCode = ""
	f.touchLocked()
	method := f.session.PaymentMethod
	shipping := f.session.Shipping
	f.mu.Unlock()

	orderID, err := f.issuer.IssueOrderID(ctx)
	if err != nil {
		return f.abortConfirm(pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue order id"))
	}
	ctx = f.logg.WithOrderID(ctx, orderID)

	if !method.IsGateway() {
		f.mu.Lock()
		if f.abandoned {
			return f.abandonedLocked()
		}
		f.session.OrderID = orderID
		f.finalizeLocked("")
		session := f.session
		f.mu.Unlock()
		f.logg.Info(ctx, "order placed with cash on delivery")
		f.observe(string(method))
		return ConfirmOutcome{Session: session, Route: RoutePlaced}, nil
	}

	if err := f.gatewayAvailable(); err != nil {
		return f.abortConfirm(err)
	}

	totals := f.cart.Totals()
	handle, err := f.gateway.Open(ctx, payments.Request{
		AmountMinor:   totals.MinorUnits(),
		Currency:      totals.Currency,
		OrderID:       orderID,
		MerchantName:  f.opts.MerchantName,
		Description:   f.opts.Description,
		CustomerName:  shipping.FullName(),
		CustomerEmail: shipping.Email,
		CustomerPhone: shipping.Phone,
	})
	if err != nil {
		f.logg.Error(ctx, "failed to open hosted payment", err)
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConfiguration {
			return f.abortConfirm(typed)
		}
		return f.abortConfirm(pkgerrors.Wrap(pkgerrors.CodeGatewayFailure, err, "could not open payment").
			WithDetails(map[string]any{"description": err.Error()}))
	}

	att := &attempt{
		orderID:   orderID,
		reference: handle.Reference,
		startedAt: f.opts.Now(),
		results:   handle.Results,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	f.mu.Lock()
	if f.abandoned {
		f.cancelHosted(ctx, handle.Reference)
		return f.abandonedLocked()
	}
	f.session.OrderID = orderID
	f.session.AmountMinor = totals.MinorUnits()
	f.session.RedirectURL = handle.RedirectURL
	f.attempt = att
	f.touchLocked()
	session := f.session
	f.mu.Unlock()

	go f.watch(ctx, att)

	f.logg.Info(ctx, "hosted payment opened")
	return ConfirmOutcome{
		Session:     session,
		Processing:  true,
		RedirectURL: handle.RedirectURL,
		Route:       RouteReview,
	}, nil
}

// Dismiss records that the shopper closed the hosted page without paying.
func (f *Flow) Dismiss(ctx context.Context) (Session, error) {
	f.mu.Lock()
	att := f.attempt
	f.mu.Unlock()
	if att == nil {
		return f.Snapshot(), stateConflict("no payment in progress", f.Snapshot().Step)
	}

	if f.settle(att, payments.Dismissed(att.orderID), nil) {
		f.cancelHosted(ctx, att.reference)
	}
	return f.Snapshot(), nil
}

// AwaitPayment blocks until the in-flight attempt resolves or ctx ends. It
// returns the failure or timeout error of the attempt, if any.
func (f *Flow) AwaitPayment(ctx context.Context) (Session, error) {
	f.mu.Lock()
	att := f.attempt
	f.mu.Unlock()
	if att == nil {
		return f.Snapshot(), nil
	}

	select {
	case <-att.done:
		return f.Snapshot(), att.err
	case <-ctx.Done():
		return f.Snapshot(), nil
	}
}

// Abandon tears the session down, cancelling any hosted page still open.
func (f *Flow) Abandon(ctx context.Context) {
	f.mu.Lock()
	f.abandoned = true
	att := f.attempt
	f.mu.Unlock()

	if att != nil && f.settle(att, payments.Dismissed(att.orderID), nil) {
		f.cancelHosted(ctx, att.reference)
	}
}

// Active reports whether the session still needs the shopper.
func (f *Flow) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.abandoned && !f.session.Completed
}

func (f *Flow) watch(ctx context.Context, att *attempt) {
	timer := time.NewTimer(f.opts.PaymentTimeout)
	defer timer.Stop()

	select {
	case result, ok := <-att.results:
		if !ok {
			result = payments.Failed(att.orderID, "payment channel closed")
		}
		// A declined page stays payable; expire it so a retry goes through a new Confirm.
		if f.settle(att, result, nil) && result.Outcome == payments.OutcomeFailed {
			f.cancelHosted(ctx, att.reference)
		}
	case <-timer.C:
		timeoutErr := pkgerrors.New(pkgerrors.CodePaymentTimeout, "payment timed out")
		if f.settle(att, payments.Result{OrderID: att.orderID}, timeoutErr) {
			f.logg.Warn(ctx, "hosted payment timed out")
			f.cancelHosted(ctx, att.reference)
		}
	case <-att.stop:
	}
}

// settle applies the terminal result of att. It reports false when att was
// already settled or superseded.
func (f *Flow) settle(att *attempt, result payments.Result, failure error) bool {
	f.mu.Lock()
	if f.attempt != att {
		f.mu.Unlock()
		return false
	}
	f.attempt = nil
	f.session.Processing = false
	f.session.RedirectURL = ""

	outcome := string(result.Outcome)
	switch {
	case failure != nil:
		f.session.LastErrorCode = pkgerrors.CodeOf(failure)
		att.err = failure
		outcome = "timeout"
	case result.Outcome == payments.OutcomeSucceeded:
		f.finalizeLocked(result.PaymentID)
	case result.Outcome == payments.OutcomeFailed:
		f.session.LastFailure = result.Description
		f.session.LastErrorCode = pkgerrors.CodeGatewayFailure
		att.err = pkgerrors.New(pkgerrors.CodeGatewayFailure, "payment failed").
			WithDetails(map[string]any{"description": result.Description})
	default:
		outcome = string(payments.OutcomeDismissed)
	}
	f.touchLocked()
	close(att.stop)
	close(att.done)
	f.mu.Unlock()

	if f.opts.Observer != nil {
		f.opts.Observer.ObservePaymentDuration(f.gateway.Name(), outcome, f.opts.Now().Sub(att.startedAt))
	}
	f.observe(outcome)
	return true
}

func (f *Flow) finalizeLocked(paymentID string) {
	if f.session.Completed {
		return
	}
	f.cart.Clear()
	f.session.PaymentID = paymentID
	f.session.Processing = false
	f.session.Completed = true
	f.moveLocked(enums.CheckoutStepPlaced)
}

// abandonedLocked releases f.mu after Abandon raced a Confirm in flight.
func (f *Flow) abandonedLocked() (ConfirmOutcome, error) {
	f.session.Processing = false
	f.touchLocked()
	session := f.session
	f.mu.Unlock()
	return ConfirmOutcome{Session: session}, stateConflict("checkout abandoned", session.Step)
}

func (f *Flow) abortConfirm(err error) (ConfirmOutcome, error) {
	f.mu.Lock()
	f.session.Processing = false
	f.session.LastErrorCode = pkgerrors.CodeOf(err)
	f.touchLocked()
	session := f.session
	f.mu.Unlock()
	f.observe(string(pkgerrors.CodeOf(err)))
	return ConfirmOutcome{Session: session, Route: RouteReview}, err
}

func (f *Flow) gatewayAvailable() error {
	if err := f.gateway.Configured(); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConfiguration {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "payment system is not configured")
	}
	if !f.gateway.Ready() {
		return pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "payment system is loading, please try again in a moment")
	}
	return nil
}

func (f *Flow) cancelHosted(ctx context.Context, reference string) {
	if reference == "" {
		return
	}
	go func() {
		cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
		defer cancel()
		if err := f.gateway.Cancel(cancelCtx, reference); err != nil {
			f.logg.Warn(f.logg.WithField(cancelCtx, "reference", reference), "failed to cancel hosted payment")
		}
	}()
}

func (f *Flow) observe(outcome string) {
	if f.opts.Observer != nil {
		f.opts.Observer.ObserveCheckoutOutcome(outcome)
	}
}

func (f *Flow) guardLocked(step enums.CheckoutStep) error {
	if f.abandoned {
		return stateConflict("checkout abandoned", f.session.Step)
	}
	if f.session.Step.IsTerminal() {
		return stateConflict("order already placed", f.session.Step)
	}
	if f.session.Processing {
		return pkgerrors.New(pkgerrors.CodeConflict, "payment already in progress")
	}
	if f.session.Step != step {
		return stateConflict(fmt.Sprintf("expected step %s", step), f.session.Step)
	}
	return nil
}

func (f *Flow) guardEditableLocked() error {
	if f.abandoned {
		return stateConflict("checkout abandoned", f.session.Step)
	}
	if f.session.Step.IsTerminal() {
		return stateConflict("order already placed", f.session.Step)
	}
	if f.session.Processing {
		return pkgerrors.New(pkgerrors.CodeConflict, "payment already in progress")
	}
	return nil
}

func (f *Flow) validateAddressesLocked() error {
	if err := validateAddress("shipping", f.session.Shipping); err != nil {
		return err
	}
	if !f.session.BillingSameAsShipping {
		return validateAddress("billing", f.session.Billing)
	}
	return nil
}

func (f *Flow) moveLocked(to enums.CheckoutStep) bool {
	if !CanTransition(f.session.Step, to) {
		return false
	}
	f.session.Step = to
	f.touchLocked()
	return true
}

func (f *Flow) touchLocked() {
	f.session.UpdatedAt = f.opts.Now()
}

func validateAddress(kind string, addr types.Address) error {
	missing := addr.Missing()
	if len(missing) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, kind+" address is incomplete").
		WithDetails(map[string]any{"address": kind, "missing": missing, "route": RouteShipping})
}

func stateConflict(msg string, step enums.CheckoutStep) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).
		WithDetails(map[string]any{"step": step})
}
