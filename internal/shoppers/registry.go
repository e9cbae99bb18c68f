package shoppers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/littlemirai-storefront/internal/cart"
	"github.com/angelmondragon/littlemirai-storefront/internal/checkout"
	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	"github.com/angelmondragon/littlemirai-storefront/pkg/metrics"
	"github.com/google/uuid"
)

const defaultIdleTTL = 2 * time.Hour

// Shopper owns one visitor's cart and, while checking out, their session.
type Shopper struct {
	ID   string
	Cart *cart.Store

	mu       sync.Mutex
	checkout *checkout.Flow
	lastSeen time.Time
}

// Checkout returns the current checkout session, if any.
func (s *Shopper) Checkout() (*checkout.Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout, s.checkout != nil
}

// PaymentPending reports whether a hosted payment is still outstanding. The
// cart is frozen while it is.
func (s *Shopper) PaymentPending() bool {
	s.mu.Lock()
	flow := s.checkout
	s.mu.Unlock()
	if flow == nil {
		return false
	}
	snap := flow.Snapshot()
	return snap.Processing
}

// Params configure a Registry.
type Params struct {
	Pricing  cart.Pricing
	Gateway  payments.Gateway
	Issuer   payments.OrderIssuer
	Logger   *logger.Logger
	Metrics  *metrics.StorefrontMetrics
	Checkout checkout.Options
	IdleTTL  time.Duration
	Now      func() time.Time
}

// Registry maps shopper ids to their in-memory state.
type Registry struct {
	mu       sync.Mutex
	shoppers map[string]*Shopper
	params   Params
}

// NewRegistry builds an empty registry.
func NewRegistry(params Params) (*Registry, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Issuer == nil {
		params.Issuer = payments.UUIDIssuer{}
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.IdleTTL <= 0 {
		params.IdleTTL = defaultIdleTTL
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.Checkout.Observer == nil && params.Metrics != nil {
		params.Checkout.Observer = params.Metrics
	}
	if params.Checkout.Now == nil {
		params.Checkout.Now = params.Now
	}
	return &Registry{shoppers: map[string]*Shopper{}, params: params}, nil
}

// NewShopperID issues an id for a visitor that did not send one.
func NewShopperID() string {
	return uuid.NewString()
}

// Get returns an existing shopper and marks them as seen.
func (r *Registry) Get(id string) (*Shopper, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shoppers[id]
	if ok {
		r.touchLocked(s)
	}
	return s, ok
}

// GetOrCreate returns the shopper for id, creating an empty cart on first sight.
func (r *Registry) GetOrCreate(id string) *Shopper {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.shoppers[id]; ok {
		r.touchLocked(s)
		return s
	}
	var opts []cart.Option
	if r.params.Metrics != nil {
		opts = append(opts, cart.WithObserver(r.params.Metrics))
	}
	s := &Shopper{ID: id, Cart: cart.NewStore(r.params.Pricing, opts...)}
	r.touchLocked(s)
	r.shoppers[id] = s
	r.params.Metrics.SetActiveShoppers(len(r.shoppers))
	return s
}

// BeginCheckout returns the shopper's live session or starts a new one. A
// placed or abandoned session is discarded first.
func (r *Registry) BeginCheckout(ctx context.Context, id string) (*checkout.Flow, error) {
	s := r.GetOrCreate(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout != nil && s.checkout.Active() {
		return s.checkout, nil
	}
	flow, err := checkout.NewFlow(s.Cart, r.params.Gateway, r.params.Issuer, r.params.Logger, r.params.Checkout)
	if err != nil {
		return nil, err
	}
	s.checkout = flow
	r.params.Logger.Info(r.params.Logger.WithShopperID(ctx, id), "checkout session started")
	return flow, nil
}

// AbandonCheckout discards the shopper's session, cancelling any open payment.
func (r *Registry) AbandonCheckout(ctx context.Context, id string) bool {
	s, ok := r.Get(id)
	if !ok {
		return false
	}
	s.mu.Lock()
	flow := s.checkout
	s.checkout = nil
	s.mu.Unlock()
	if flow == nil {
		return false
	}
	flow.Abandon(ctx)
	r.params.Logger.Info(r.params.Logger.WithShopperID(ctx, id), "checkout session abandoned")
	return true
}

// Sweep evicts shoppers idle past the TTL. Shoppers with a payment in flight
// are kept. It returns how many were evicted.
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	var stale []*Shopper
	for id, s := range r.shoppers {
		s.mu.Lock()
		idle := now.Sub(s.lastSeen) >= r.params.IdleTTL
		s.mu.Unlock()
		if !idle || s.PaymentPending() {
			continue
		}
		stale = append(stale, s)
		delete(r.shoppers, id)
	}
	r.params.Metrics.SetActiveShoppers(len(r.shoppers))
	r.mu.Unlock()

	for _, s := range stale {
		if flow, ok := s.Checkout(); ok {
			flow.Abandon(ctx)
		}
	}
	return len(stale)
}

// Len returns the number of tracked shoppers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shoppers)
}

func (r *Registry) touchLocked(s *Shopper) {
	s.mu.Lock()
	s.lastSeen = r.params.Now()
	s.mu.Unlock()
}
