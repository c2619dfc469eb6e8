package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/paper-trading/src/data"
	"github.com/jiaming2012/paper-trading/src/eventpubsub"
	"github.com/jiaming2012/paper-trading/src/marketdata"
	"github.com/jiaming2012/paper-trading/src/papertrade/models"
	"github.com/jiaming2012/paper-trading/src/papertrade/pricing"
)

type Config struct {
	InitialBalance   float64 `yaml:"initial_balance"`
	Volatility       float64 `yaml:"volatility"`
	RiskFreeRate     float64 `yaml:"risk_free_rate"`
	ChainWidth       int     `yaml:"chain_width"`
	ChainExpirations int     `yaml:"chain_expirations"`
}

func DefaultConfig() Config {
	return Config{
		InitialBalance:   100000,
		Volatility:       pricing.DefaultVolatility,
		RiskFreeRate:     pricing.DefaultRiskFreeRate,
		ChainWidth:       10,
		ChainExpirations: 4,
	}
}

// Engine owns the virtual brokerage accounts: it prices instruments, executes
// simulated orders, and reconciles pending orders, risk rules and option
// expirations before every portfolio read. Dependencies are injected so tests
// run with fake quotes and a fake clock.
type Engine struct {
	store    data.Store
	resolver *marketdata.PriceResolver
	cfg      Config
	now      func() time.Time

	mu       sync.Mutex
	accounts map[string]*account
}

func NewEngine(store data.Store, resolver *marketdata.PriceResolver, cfg Config, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}

	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = DefaultConfig().InitialBalance
	}

	if cfg.ChainWidth <= 0 {
		cfg.ChainWidth = DefaultConfig().ChainWidth
	}

	if cfg.ChainExpirations <= 0 {
		cfg.ChainExpirations = DefaultConfig().ChainExpirations
	}

	return &Engine{
		store:    store,
		resolver: resolver,
		cfg:      cfg,
		now:      now,
		accounts: make(map[string]*account),
	}
}

func (e *Engine) loadAccount(accountID string) (*account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loadAccountLocked(accountID)
}

// loadAccountLocked requires e.mu to be held.
func (e *Engine) loadAccountLocked(accountID string) (*account, error) {
	if acct, found := e.accounts[accountID]; found {
		return acct, nil
	}

	portfolio, err := e.store.LoadPortfolio(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	if portfolio == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrPortfolioNotFound, accountID)
	}

	orders, err := e.store.LoadOrders(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	acct := newAccount(portfolio, orders)
	e.accounts[accountID] = acct

	return acct, nil
}

// InitializePortfolio seeds a new account at the configured starting balance.
// Re-initializing an existing account returns the existing portfolio
// untouched.
func (e *Engine) InitializePortfolio(ctx context.Context, accountID string) (*models.Portfolio, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}

	// the not-found check and the insert share one critical section so two
	// concurrent first-time initializations cannot both create the account
	e.mu.Lock()

	acct, err := e.loadAccountLocked(accountID)
	if err == nil {
		e.mu.Unlock()
		acct.mutex.Lock()
		defer acct.mutex.Unlock()
		return acct.portfolio.Clone(), nil
	}

	if !errors.Is(err, models.ErrPortfolioNotFound) {
		e.mu.Unlock()
		return nil, err
	}

	portfolio := models.NewPortfolio(accountID, e.cfg.InitialBalance, e.now())
	if err := e.store.SavePortfolio(portfolio); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("persistence failure: %w", err)
	}

	e.accounts[accountID] = newAccount(portfolio, nil)
	e.mu.Unlock()

	log.Infof("initialized portfolio for account %s with balance %.2f", accountID, e.cfg.InitialBalance)

	return portfolio.Clone(), nil
}

// GetPortfolio reconciles the account (pending fills, stop-loss/take-profit,
// expirations) and returns a consistent snapshot.
func (e *Engine) GetPortfolio(ctx context.Context, accountID string) (*models.Portfolio, error) {
	acct, err := e.loadAccount(accountID)
	if err != nil {
		return nil, err
	}

	acct.mutex.Lock()
	defer acct.mutex.Unlock()

	if err := e.reconcile(ctx, acct); err != nil {
		return nil, err
	}

	return acct.portfolio.Clone(), nil
}

// GetOrders returns the account's orders in submission order.
func (e *Engine) GetOrders(accountID string) ([]*models.Order, error) {
	acct, err := e.loadAccount(accountID)
	if err != nil {
		return nil, err
	}

	acct.mutex.Lock()
	defer acct.mutex.Unlock()

	orders := make([]*models.Order, 0, len(acct.orderIDs))
	for _, order := range acct.orderList() {
		clone := *order
		orders = append(orders, &clone)
	}

	return orders, nil
}

// referencePrice resolves the execution reference for an instrument: the spot
// price for equities, the model premium (from current spot) for options.
func (e *Engine) referencePrice(ctx context.Context, instrument models.Instrument) (float64, models.Greeks, error) {
	if option, ok := instrument.(models.Option); ok {
		spot, err := e.resolver.Resolve(ctx, option.Underlying)
		if err != nil {
			return 0, models.Greeks{}, err
		}

		price, greeks := pricing.Price(spot, option.Strike, option.YearsToExpiry(e.now()), e.cfg.Volatility, e.cfg.RiskFreeRate, option.Type)
		return price, greeks, nil
	}

	price, err := e.resolver.Resolve(ctx, models.StockSymbol(instrument.GetTicker()))
	return price, models.Greeks{}, err
}

// PlaceTrade validates and submits an order. Market orders and marketable
// limit orders fill immediately; other limit orders rest as pending until a
// reconciliation pass fills them. Validation failures never mutate state.
func (e *Engine) PlaceTrade(ctx context.Context, req *PlaceTradeRequest) (uuid.UUID, error) {
	if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}

	instrument, err := req.Instrument()
	if err != nil {
		return uuid.Nil, err
	}

	acct, err := e.loadAccount(req.AccountID)
	if err != nil {
		return uuid.Nil, err
	}

	acct.mutex.Lock()
	defer acct.mutex.Unlock()

	reference, _, err := e.referencePrice(ctx, instrument)
	if err != nil {
		return uuid.Nil, err
	}

	executeImmediately := true
	execPrice := reference

	if req.Type == models.OrderTypeLimit {
		limit := *req.LimitPrice

		switch req.Action {
		case models.OrderActionBuy:
			executeImmediately = limit >= reference
		case models.OrderActionSell:
			executeImmediately = limit <= reference
		}

		// a marketable limit order fills at its limit price
		execPrice = limit
	}

	order := models.NewOrder(req.AccountID, instrument, req.Action, req.Quantity, req.Type, req.LimitPrice, req.StopLoss, req.TakeProfit, req.Reasoning, e.now())

	// validate against the price that will actually be applied: the
	// execution price for immediate fills, the reference for resting orders
	checkPrice := reference
	if executeImmediately {
		checkPrice = execPrice
	}

	if req.Action == models.OrderActionBuy {
		if order.Notional(checkPrice) > acct.portfolio.CashBalance {
			return uuid.Nil, fmt.Errorf("%w: order requires %.2f, cash balance is %.2f", models.ErrInsufficientFunds, order.Notional(checkPrice), acct.portfolio.CashBalance)
		}
	} else {
		position, found := acct.portfolio.GetPosition(instrument.Key())
		if !found || position.Quantity < req.Quantity {
			held := 0.0
			if found {
				held = position.Quantity
			}
			return uuid.Nil, fmt.Errorf("%w: requested %f of %s, holding %f", models.ErrInsufficientHoldings, req.Quantity, instrument.Key(), held)
		}
	}

	txn := e.begin(acct)
	txn.created(order)

	if executeImmediately {
		if err := e.fillOrder(acct, txn, order, execPrice); err != nil {
			txn.rollback()
			return uuid.Nil, err
		}
	}

	acct.addOrder(order)

	if err := txn.commit(); err != nil {
		return uuid.Nil, err
	}

	e.publishOrderEvent(eventpubsub.OrderPlacedEvent, order, "")
	if executeImmediately {
		e.publishOrderEvent(eventpubsub.OrderFilledEvent, order, "")
	}

	log.WithFields(log.Fields{
		"account":   req.AccountID,
		"order":     order.ID,
		"contract":  instrument.Key(),
		"status":    order.Status,
		"reference": reference,
	}).Info("order placed")

	return order.ID, nil
}

// fillOrder applies an execution to the portfolio and the order under an
// already-held account lock. Buys open or increase a position; sells realize
// P&L and close the order, closing any active orders the flatten leaves
// without a position.
func (e *Engine) fillOrder(acct *account, txn *storeTxn, order *models.Order, price float64) error {
	now := e.now()

	if err := order.Fill(price, now); err != nil {
		return err
	}

	if order.Action == models.OrderActionBuy {
		acct.portfolio.ApplyBuy(order.Instrument, order.Quantity, price, now)
		return nil
	}

	realizedPnL, err := acct.portfolio.ApplySell(order.Instrument, order.Quantity, price, now)
	if err != nil {
		return err
	}

	if err := order.Close(&realizedPnL, nil); err != nil {
		return err
	}

	// a fully flattened contract leaves no exposure for its opening orders
	if _, stillHeld := acct.portfolio.GetPosition(order.Instrument.Key()); !stillHeld {
		for _, open := range acct.orderList() {
			if open.ID == order.ID || !open.Status.IsActive() {
				continue
			}

			if open.Instrument.Key() != order.Instrument.Key() {
				continue
			}

			txn.track(open)
			if err := open.Close(nil, &order.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

// CloseTrade flattens an active order by synthesizing an opposite-direction
// market order for the same instrument and quantity.
func (e *Engine) CloseTrade(ctx context.Context, orderID uuid.UUID) error {
	stored, err := e.store.LoadOrder(orderID)
	if err != nil {
		return err
	}

	acct, err := e.loadAccount(stored.AccountID)
	if err != nil {
		return err
	}

	acct.mutex.Lock()
	defer acct.mutex.Unlock()

	order, found := acct.orders[orderID]
	if !found {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, orderID)
	}

	if !order.Status.IsActive() {
		return fmt.Errorf("%w: order %s is %s", models.ErrOrderNotActionable, orderID, order.Status)
	}

	reference, _, err := e.referencePrice(ctx, order.Instrument)
	if err != nil {
		return err
	}

	txn := e.begin(acct)
	txn.track(order)

	if _, err := e.flatten(acct, txn, order, reference, fmt.Sprintf("close order %s", order.ID)); err != nil {
		txn.rollback()
		return err
	}

	if err := txn.commit(); err != nil {
		return err
	}

	e.publishOrderEvent(eventpubsub.OrderClosedEvent, order, "")

	return nil
}

// flatten synthesizes and fills the opposite-direction market order that
// closes the given active order, bounded by the quantity still held.
func (e *Engine) flatten(acct *account, txn *storeTxn, order *models.Order, price float64, reason string) (*models.Order, error) {
	quantity := order.Quantity
	if position, found := acct.portfolio.GetPosition(order.Instrument.Key()); found && position.Quantity < quantity {
		quantity = position.Quantity
	}

	closeOrder := models.NewOrder(order.AccountID, order.Instrument, order.Action.Opposite(), quantity, models.OrderTypeMarket, nil, nil, nil, reason, e.now())

	txn.created(closeOrder)

	if err := e.fillOrder(acct, txn, closeOrder, price); err != nil {
		return nil, err
	}

	acct.addOrder(closeOrder)

	// the flatten above may have already closed the original through the
	// zero-position sweep; only transition it if still active
	if order.Status.IsActive() {
		if err := order.Close(nil, &closeOrder.ID); err != nil {
			return nil, err
		}
	}

	order.ClosedByID = &closeOrder.ID

	return closeOrder, nil
}

// ResetPortfolio deletes every order and position for the account and seeds a
// fresh portfolio at the initial balance.
func (e *Engine) ResetPortfolio(ctx context.Context, accountID string) (*models.Portfolio, error) {
	if err := e.store.DeleteAccount(accountID); err != nil {
		return nil, fmt.Errorf("persistence failure: %w", err)
	}

	e.mu.Lock()
	delete(e.accounts, accountID)
	e.mu.Unlock()

	eventpubsub.Publish(eventpubsub.PortfolioResetEvent, eventpubsub.OrderEvent{
		Topic:     eventpubsub.PortfolioResetEvent,
		AccountID: accountID,
		Timestamp: e.now(),
	})

	return e.InitializePortfolio(ctx, accountID)
}

func (e *Engine) publishOrderEvent(topic string, order *models.Order, note string) {
	eventpubsub.Publish(topic, eventpubsub.OrderEvent{
		Topic:       topic,
		AccountID:   order.AccountID,
		OrderID:     order.ID,
		Symbol:      order.Instrument.GetTicker(),
		ContractKey: order.Instrument.Key(),
		Price:       order.FillPrice,
		Quantity:    order.Quantity,
		Note:        note,
		Timestamp:   e.now(),
	})
}
