package payments

import "sync"

// Dispatcher routes provider callbacks to the attempt waiting on them. Each
// registered order receives at most one result.
type Dispatcher struct {
	mu      sync.Mutex
	pending map[string]chan Result
	refs    map[string]string
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		pending: map[string]chan Result{},
		refs:    map[string]string{},
	}
}

// Register opens a one-slot result channel for orderID, replacing any previous one.
func (d *Dispatcher) Register(orderID string) <-chan Result {
	ch := make(chan Result, 1)
	d.mu.Lock()
	d.pending[orderID] = ch
	d.mu.Unlock()
	return ch
}

// Bind records that a provider reference (session id, provider order id) belongs to orderID.
func (d *Dispatcher) Bind(reference, orderID string) {
	if reference == "" {
		return
	}
	d.mu.Lock()
	d.refs[reference] = orderID
	d.mu.Unlock()
}

// Resolve delivers result to orderID. It reports false when nothing is waiting,
// which covers duplicates and late callbacks for abandoned attempts.
func (d *Dispatcher) Resolve(orderID string, result Result) bool {
	d.mu.Lock()
	ch, ok := d.pending[orderID]
	if ok {
		delete(d.pending, orderID)
		d.dropRefsLocked(orderID)
	}
	d.mu.Unlock()
	if !ok {
		return false
	}
	if result.OrderID == "" {
		result.OrderID = orderID
	}
	ch <- result
	return true
}

// ResolveRef resolves through a provider reference bound earlier.
func (d *Dispatcher) ResolveRef(reference string, result Result) bool {
	d.mu.Lock()
	orderID, ok := d.refs[reference]
	d.mu.Unlock()
	if !ok {
		return false
	}
	return d.Resolve(orderID, result)
}

// OrderFor returns the order id bound to reference.
func (d *Dispatcher) OrderFor(reference string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	orderID, ok := d.refs[reference]
	return orderID, ok
}

// Forget drops a pending attempt without delivering anything.
func (d *Dispatcher) Forget(orderID string) {
	d.mu.Lock()
	delete(d.pending, orderID)
	d.dropRefsLocked(orderID)
	d.mu.Unlock()
}

// Pending returns the number of attempts still waiting.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Dispatcher) dropRefsLocked(orderID string) {
	for ref, id := range d.refs {
		if id == orderID {
			delete(d.refs, ref)
		}
	}
}
