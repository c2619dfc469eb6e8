package services

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

// storeTxn makes a mutation atomic from the caller's perspective: the
// portfolio and every touched order are snapshotted before the change, and a
// failed store write rolls the in-memory state back so it never diverges from
// what the store confirmed.
type storeTxn struct {
	engine            *Engine
	acct              *account
	portfolioSnapshot *models.Portfolio
	orderSnapshots    map[uuid.UUID]models.Order
	saveOrder         []*models.Order
	createdIDs        []uuid.UUID
}

func (e *Engine) begin(acct *account) *storeTxn {
	return &storeTxn{
		engine:            e,
		acct:              acct,
		portfolioSnapshot: acct.portfolio.Clone(),
		orderSnapshots:    make(map[uuid.UUID]models.Order),
	}
}

// track registers an existing order that the mutation will touch.
func (t *storeTxn) track(order *models.Order) {
	if _, found := t.orderSnapshots[order.ID]; found {
		return
	}

	t.orderSnapshots[order.ID] = *order
	t.saveOrder = append(t.saveOrder, order)
}

// created registers an order born inside this mutation; rollback removes it
// from the account entirely.
func (t *storeTxn) created(order *models.Order) {
	t.createdIDs = append(t.createdIDs, order.ID)
	t.saveOrder = append(t.saveOrder, order)
}

func (t *storeTxn) rollback() {
	t.acct.portfolio = t.portfolioSnapshot

	for id, snapshot := range t.orderSnapshots {
		if order, found := t.acct.orders[id]; found {
			*order = snapshot
		}
	}

	for _, id := range t.createdIDs {
		t.acct.removeOrder(id)
	}
}

// commit persists every touched order and the portfolio. The first store
// error aborts the write and restores the pre-mutation state.
func (t *storeTxn) commit() error {
	for _, order := range t.saveOrder {
		if err := t.engine.store.SaveOrder(order); err != nil {
			log.Errorf("commit: failed to save order %s: %v", order.ID, err)
			t.rollback()
			return fmt.Errorf("persistence failure: %w", err)
		}
	}

	if err := t.engine.store.SavePortfolio(t.acct.portfolio); err != nil {
		log.Errorf("commit: failed to save portfolio %s: %v", t.acct.portfolio.AccountID, err)
		t.rollback()
		return fmt.Errorf("persistence failure: %w", err)
	}

	return nil
}
