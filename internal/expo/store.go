package expo

import (
	"sync"
)

// Store is the authoritative in-memory set of orders, keyed by order ID with
// a ticket-number index for display actions that only know the number.
// All mutation goes through Upsert with a complete next-state record; reads
// return copies so no caller ever observes a partial write.
type Store struct {
	mu      sync.RWMutex
	orders  map[string]*Order
	order   []string // insertion order of IDs
	byNum   map[string]string
}

// NewStore creates an empty order store.
func NewStore() *Store {
	return &Store{
		orders: make(map[string]*Order),
		byNum:  make(map[string]string),
	}
}

// Get returns a copy of the order with the given ID.
func (s *Store) Get(orderID string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return o.Clone(), true
}

// GetByNumber returns a copy of the order with the given ticket number.
func (s *Store) GetByNumber(number string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNum[number]
	if !ok {
		return Order{}, false
	}
	o, ok := s.orders[id]
	if !ok {
		return Order{}, false
	}
	return o.Clone(), true
}

// Upsert replaces the full record for the order's ID, creating it on first
// observation. This is the only write path.
func (s *Store) Upsert(order Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(order)
}

func (s *Store) upsertLocked(order Order) {
	existing, ok := s.orders[order.ID]
	if !ok {
		s.order = append(s.order, order.ID)
	} else if existing.Number != "" && existing.Number != order.Number {
		delete(s.byNum, existing.Number)
	}

	next := order.Clone()
	s.orders[order.ID] = &next
	if next.Number != "" {
		s.byNum[next.Number] = next.ID
	}
}

// Replace swaps the entire store content for the given snapshot, preserving
// the snapshot's order. Used when restoring from the persistence adapter.
func (s *Store) Replace(orders []Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make(map[string]*Order, len(orders))
	s.order = s.order[:0]
	s.byNum = make(map[string]string, len(orders))

	for _, o := range orders {
		if _, dup := s.orders[o.ID]; dup {
			continue
		}
		s.upsertLocked(o)
	}
}

// List returns copies of all orders in insertion order.
func (s *Store) List() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Order, 0, len(s.order))
	for _, id := range s.order {
		if o, ok := s.orders[id]; ok {
			result = append(result, o.Clone())
		}
	}
	return result
}

// Count returns the number of orders in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
