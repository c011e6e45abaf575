package store

import (
	"sync"

	"github.com/efreitasn/limitbook/internal/domain"
)

// OrderStore is a thread-safe in-memory registry of every order the engine
// has accepted, with a secondary index of the orders currently resting on a
// book (order_id → symbol) used to route cancellations.
//
// Ids are claimed with Reserve before an order reaches a book and the order
// becomes visible to Get only once Publish is called.
type OrderStore struct {
	mu      sync.RWMutex
	claimed map[uint64]struct{}      // every id ever reserved
	orders  map[uint64]*domain.Order // published orders
	resting map[uint64]string        // order_id → symbol, resting orders only
	nextID  uint64
}

// NewOrderStore creates an empty OrderStore. Engine-assigned ids start at
// firstID.
func NewOrderStore(firstID uint64) *OrderStore {
	if firstID == 0 {
		firstID = 1
	}
	return &OrderStore{
		claimed: make(map[uint64]struct{}),
		orders:  make(map[uint64]*domain.Order),
		resting: make(map[uint64]string),
		nextID:  firstID,
	}
}

// Reserve claims id for a new order. A zero id is replaced with the next
// unused engine-assigned id. It returns domain.ErrDuplicateOrderID if the
// id was ever claimed before, leaving the store unchanged.
func (s *OrderStore) Reserve(id uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 {
		for s.isClaimed(s.nextID) || s.nextID == 0 {
			s.nextID++
		}
		id = s.nextID
		s.nextID++
	} else if s.isClaimed(id) {
		return 0, domain.ErrDuplicateOrderID
	}

	s.claimed[id] = struct{}{}
	return id, nil
}

func (s *OrderStore) isClaimed(id uint64) bool {
	_, ok := s.claimed[id]
	return ok
}

// Publish makes an order with a reserved id visible to Get.
func (s *OrderStore) Publish(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.OrderID] = o
}

// Get retrieves a published order by ID. It returns domain.ErrOrderNotFound
// otherwise.
func (s *OrderStore) Get(id uint64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// Rest marks an order as resting on the book for symbol.
func (s *OrderStore) Rest(id uint64, symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resting[id] = symbol
}

// Retire removes orders from the resting index once they are filled or
// cancelled. Unknown ids are ignored.
func (s *OrderStore) Retire(ids ...uint64) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.resting, id)
	}
}

// Locate returns the symbol of the book an order is resting on.
func (s *OrderStore) Locate(id uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	symbol, ok := s.resting[id]
	return symbol, ok
}

// Len returns the number of published orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// RestingLen returns the number of orders currently resting across all books.
func (s *OrderStore) RestingLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.resting)
}
