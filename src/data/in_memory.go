package data

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

// InMemoryStore backs tests and local runs without a database. Saved values
// are deep-copied so callers cannot mutate "persisted" state in place.
type InMemoryStore struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]*models.Order
	orderIDs   map[string][]uuid.UUID
	portfolios map[string]*models.Portfolio
}

func cloneOrder(order *models.Order) *models.Order {
	clone := *order
	return &clone
}

func (s *InMemoryStore) SaveOrder(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.orders[order.ID]; !found {
		s.orderIDs[order.AccountID] = append(s.orderIDs[order.AccountID], order.ID)
	}

	s.orders[order.ID] = cloneOrder(order)

	return nil
}

func (s *InMemoryStore) LoadOrders(accountID string) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]*models.Order, 0, len(s.orderIDs[accountID]))
	for _, id := range s.orderIDs[accountID] {
		orders = append(orders, cloneOrder(s.orders[id]))
	}

	return orders, nil
}

func (s *InMemoryStore) LoadOrder(id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, found := s.orders[id]
	if !found {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}

	return cloneOrder(order), nil
}

func (s *InMemoryStore) SavePortfolio(portfolio *models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolios[portfolio.AccountID] = portfolio.Clone()

	return nil
}

func (s *InMemoryStore) LoadPortfolio(accountID string) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	portfolio, found := s.portfolios[accountID]
	if !found {
		return nil, nil
	}

	return portfolio.Clone(), nil
}

func (s *InMemoryStore) DeleteAccount(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.orderIDs[accountID] {
		delete(s.orders, id)
	}

	delete(s.orderIDs, accountID)
	delete(s.portfolios, accountID)

	return nil
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orders:     make(map[uuid.UUID]*models.Order),
		orderIDs:   make(map[string][]uuid.UUID),
		portfolios: make(map[string]*models.Portfolio),
	}
}
