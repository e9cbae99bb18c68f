package cart

import (
	"sync"

	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
)

// CommandObserver is notified after every applied command.
type CommandObserver interface {
	ObserveCartCommand(kind string)
}

// Option customizes a Store.
type Option func(*Store)

// WithObserver attaches a command observer, typically metrics.
func WithObserver(observer CommandObserver) Option {
	return func(s *Store) {
		s.observer = observer
	}
}

// Store owns one shopper's cart. Every mutation goes through Dispatch, which is
// serialized so concurrent requests for the same shopper cannot interleave.
type Store struct {
	mu       sync.Mutex
	state    State
	pricing  Pricing
	observer CommandObserver
}

// NewStore returns an empty, closed cart.
func NewStore(pricing Pricing, opts ...Option) *Store {
	s := &Store{
		state:   State{Items: []LineItem{}},
		pricing: pricing,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies cmd and returns a copy of the resulting state.
func (s *Store) Dispatch(cmd Command) (State, error) {
	if err := cmd.Validate(); err != nil {
		return s.Snapshot(), pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported cart command")
	}
	return s.apply(cmd), nil
}

func (s *Store) apply(cmd Command) State {
	s.mu.Lock()
	s.state = Reduce(s.state, cmd)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.ObserveCartCommand(string(cmd.Kind))
	}
	return snapshot
}

// AddItem merges into an existing row for the same variant or appends a new one,
// then opens the cart drawer. A non-positive quantity counts as 1.
func (s *Store) AddItem(item LineItemInput, quantity int) State {
	return s.apply(AddItem(item, quantity))
}

// RemoveItem deletes the row for key, if any.
func (s *Store) RemoveItem(key Key) State {
	return s.apply(RemoveItem(key))
}

// UpdateQuantity sets an absolute quantity; zero or less removes the row.
func (s *Store) UpdateQuantity(key Key, quantity int) State {
	return s.apply(UpdateQuantity(key, quantity))
}

// Clear empties the cart and closes the drawer.
func (s *Store) Clear() State {
	return s.apply(Clear())
}

func (s *Store) Open() State {
	return s.apply(Open())
}

func (s *Store) Close() State {
	return s.apply(Close())
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// IsEmpty reports whether the cart has no rows.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Items) == 0
}

// Totals computes totals from the live cart.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pricing.Compute(s.state.Items)
}

// View returns state and totals read under the same lock.
func (s *Store) View() (State, Totals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), s.pricing.Compute(s.state.Items)
}

func (s *Store) Pricing() Pricing {
	return s.pricing
}
