package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/paper-trading/src/eventpubsub"
	"github.com/jiaming2012/paper-trading/src/papertrade/models"
	"github.com/jiaming2012/paper-trading/src/papertrade/pricing"
)

// reconcile is the pull-based risk monitor. It runs before every portfolio
// read, under the account lock: fill pending limit orders whose trigger is
// met, enforce stop-loss/take-profit on active orders, settle expired option
// contracts, then refresh position marks. Correctness never depends on how
// often it runs.
func (e *Engine) reconcile(ctx context.Context, acct *account) error {
	txn := e.begin(acct)

	e.fillPendingOrders(ctx, acct, txn)

	if err := e.applyRiskRules(ctx, acct, txn); err != nil {
		txn.rollback()
		return err
	}

	if err := e.settleExpired(ctx, acct, txn); err != nil {
		txn.rollback()
		return err
	}

	if err := txn.commit(); err != nil {
		return err
	}

	e.refreshMarks(ctx, acct)

	return nil
}

// fillPendingOrders executes resting limit orders whose condition is now
// met, at the limit price, through the same mutation path as an immediate
// fill. Orders whose funds or holdings no longer suffice stay pending.
func (e *Engine) fillPendingOrders(ctx context.Context, acct *account, txn *storeTxn) {
	for _, order := range acct.orderList() {
		if !order.Status.IsPending() {
			continue
		}

		if option, ok := order.Instrument.(models.Option); ok && option.IsExpired(e.now()) {
			txn.track(order)
			if err := order.Cancel(); err == nil {
				order.AnnotateReason("cancelled: contract expired before the limit was reached")
			}
			continue
		}

		if order.LimitPrice == nil {
			log.Errorf("fillPendingOrders: pending order %s has no limit price", order.ID)
			continue
		}

		reference, _, err := e.referencePrice(ctx, order.Instrument)
		if err != nil {
			log.Warnf("fillPendingOrders: no reference price for %s: %v", order.Instrument.Key(), err)
			continue
		}

		limit := *order.LimitPrice

		triggered := false
		switch order.Action {
		case models.OrderActionBuy:
			triggered = reference <= limit
		case models.OrderActionSell:
			triggered = reference >= limit
		}

		if !triggered {
			continue
		}

		if order.Action == models.OrderActionBuy {
			if order.Notional(limit) > acct.portfolio.CashBalance {
				log.Warnf("fillPendingOrders: order %s triggered but cash %.2f is short of %.2f, leaving pending", order.ID, acct.portfolio.CashBalance, order.Notional(limit))
				continue
			}
		} else {
			position, found := acct.portfolio.GetPosition(order.Instrument.Key())
			if !found || position.Quantity < order.Quantity {
				log.Warnf("fillPendingOrders: order %s triggered but holdings are short, leaving pending", order.ID)
				continue
			}
		}

		txn.track(order)
		if err := e.fillOrder(acct, txn, order, limit); err != nil {
			log.Errorf("fillPendingOrders: failed to fill order %s: %v", order.ID, err)
			continue
		}

		e.publishOrderEvent(eventpubsub.OrderFilledEvent, order, "limit order filled")
	}
}

// applyRiskRules auto-closes active orders whose stop-loss or take-profit
// threshold is crossed. Stop-loss is evaluated first: when both thresholds
// would trigger in the same pass, the adverse move is assumed to have
// happened first.
func (e *Engine) applyRiskRules(ctx context.Context, acct *account, txn *storeTxn) error {
	for _, order := range acct.orderList() {
		if !order.Status.IsActive() {
			continue
		}

		if order.StopLoss == nil && order.TakeProfit == nil {
			continue
		}

		if _, found := acct.portfolio.GetPosition(order.Instrument.Key()); !found {
			continue
		}

		reference, _, err := e.referencePrice(ctx, order.Instrument)
		if err != nil {
			log.Warnf("applyRiskRules: no reference price for %s: %v", order.Instrument.Key(), err)
			continue
		}

		var cause, topic string

		if order.Action == models.OrderActionBuy {
			if order.StopLoss != nil && reference <= *order.StopLoss {
				cause = fmt.Sprintf("stop loss triggered: price %.2f <= %.2f", reference, *order.StopLoss)
				topic = eventpubsub.StopLossEvent
			} else if order.TakeProfit != nil && reference >= *order.TakeProfit {
				cause = fmt.Sprintf("take profit triggered: price %.2f >= %.2f", reference, *order.TakeProfit)
				topic = eventpubsub.TakeProfitEvent
			}
		} else {
			// thresholds invert for sell-opened exposure
			if order.StopLoss != nil && reference >= *order.StopLoss {
				cause = fmt.Sprintf("stop loss triggered: price %.2f >= %.2f", reference, *order.StopLoss)
				topic = eventpubsub.StopLossEvent
			} else if order.TakeProfit != nil && reference <= *order.TakeProfit {
				cause = fmt.Sprintf("take profit triggered: price %.2f <= %.2f", reference, *order.TakeProfit)
				topic = eventpubsub.TakeProfitEvent
			}
		}

		if cause == "" {
			continue
		}

		txn.track(order)
		order.AnnotateReason("auto-closed: " + cause)

		if _, err := e.flatten(acct, txn, order, reference, cause); err != nil {
			return err
		}

		e.publishOrderEvent(topic, order, cause)
	}

	return nil
}

// settleExpired settles option positions whose expiration has passed, at the
// intrinsic value computed from the current underlying spot. Worthless
// contracts are removed; in-the-money contracts are auto-exercised for cash.
func (e *Engine) settleExpired(ctx context.Context, acct *account, txn *storeTxn) error {
	now := e.now()

	for _, position := range acct.portfolio.PositionList() {
		option, ok := position.Instrument.(models.Option)
		if !ok || !option.IsExpired(now) {
			continue
		}

		spot, err := e.resolver.Resolve(ctx, option.Underlying)
		if err != nil {
			log.Warnf("settleExpired: no spot price for %s, deferring settlement: %v", option.Underlying, err)
			continue
		}

		intrinsic := pricing.Intrinsic(spot, option.Strike, option.Type)
		key := option.Key()
		remaining := position.Quantity

		if intrinsic > 0 {
			if _, err := acct.portfolio.ApplySell(option, position.Quantity, intrinsic, now); err != nil {
				return err
			}
		} else {
			acct.portfolio.RemovePosition(key, now)
		}

		for _, order := range acct.orderList() {
			if !order.Status.IsActive() || order.Instrument.Key() != key {
				continue
			}

			// an order partially closed before expiration settles only the
			// quantity still held; earlier sells already realized the rest
			quantity := order.Quantity
			if quantity > remaining {
				quantity = remaining
			}
			remaining -= quantity

			txn.track(order)

			if quantity > 0 {
				pnl := (intrinsic - order.FillPrice) * quantity * option.Multiplier()
				if err := order.Close(&pnl, nil); err != nil {
					return err
				}
			} else if err := order.Close(nil, nil); err != nil {
				return err
			}

			if quantity == 0 {
				order.AnnotateReason("expired with no remaining exposure")
			} else if intrinsic > 0 {
				order.AnnotateReason(fmt.Sprintf("auto-exercised at expiration: settled at intrinsic value %.2f", intrinsic))
			} else {
				order.AnnotateReason("expired worthless")
			}

			e.publishOrderEvent(eventpubsub.OptionSettledEvent, order, order.Reasoning)
		}

		log.WithFields(log.Fields{
			"account":   acct.portfolio.AccountID,
			"contract":  key,
			"spot":      spot,
			"intrinsic": intrinsic,
		}).Info("option contract settled")
	}

	return nil
}

// refreshMarks re-prices every open position so derived market values and the
// portfolio total reflect current quotes. Marks are display state; they are
// not persisted on their own.
func (e *Engine) refreshMarks(ctx context.Context, acct *account) {
	for _, position := range acct.portfolio.Positions {
		price, greeks, err := e.referencePrice(ctx, position.Instrument)
		if err != nil {
			log.Warnf("refreshMarks: keeping stale mark for %s: %v", position.Instrument.Key(), err)
			continue
		}

		position.CurrentPrice = price
		position.Greeks = greeks
	}
}
