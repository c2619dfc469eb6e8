package data

import (
	"github.com/google/uuid"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

// Store is the persistence boundary of the engine. The engine treats a write
// as durable only once the store confirms it; a store error aborts the
// in-progress mutation.
type Store interface {
	SaveOrder(order *models.Order) error
	LoadOrders(accountID string) ([]*models.Order, error)
	LoadOrder(id uuid.UUID) (*models.Order, error)
	SavePortfolio(portfolio *models.Portfolio) error
	LoadPortfolio(accountID string) (*models.Portfolio, error)
	DeleteAccount(accountID string) error
}
