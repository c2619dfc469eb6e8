package services

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

// account is the engine's in-memory view of one brokerage account. All
// mutation for an account happens under its mutex: the engine is single
// writer per account, while different accounts proceed in parallel.
type account struct {
	mutex     sync.Mutex
	portfolio *models.Portfolio
	orders    map[uuid.UUID]*models.Order
	orderIDs  []uuid.UUID
}

func (a *account) addOrder(order *models.Order) {
	if _, found := a.orders[order.ID]; !found {
		a.orderIDs = append(a.orderIDs, order.ID)
	}

	a.orders[order.ID] = order
}

func (a *account) removeOrder(id uuid.UUID) {
	if _, found := a.orders[id]; !found {
		return
	}

	delete(a.orders, id)
	for i, orderID := range a.orderIDs {
		if orderID == id {
			a.orderIDs = append(a.orderIDs[:i], a.orderIDs[i+1:]...)
			break
		}
	}
}

// orderList returns orders in submission order.
func (a *account) orderList() []*models.Order {
	orders := make([]*models.Order, 0, len(a.orderIDs))
	for _, id := range a.orderIDs {
		orders = append(orders, a.orders[id])
	}

	return orders
}

func newAccount(portfolio *models.Portfolio, orders []*models.Order) *account {
	a := &account{
		portfolio: portfolio,
		orders:    make(map[uuid.UUID]*models.Order),
	}

	for _, order := range orders {
		a.addOrder(order)
	}

	return a
}
