package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/paper-trading/src/data"
	"github.com/jiaming2012/paper-trading/src/marketdata"
	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

type fakeQuotes struct {
	prices map[string]float64
}

func (f *fakeQuotes) GetPrice(ctx context.Context, symbol models.StockSymbol) (float64, error) {
	price, found := f.prices[symbol.String()]
	if !found {
		return 0, fmt.Errorf("no quote for %s", symbol)
	}

	return price, nil
}

func (f *fakeQuotes) set(symbol string, price float64) {
	f.prices[symbol] = price
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestEngine(prices map[string]float64) (*Engine, *fakeQuotes, *fakeClock) {
	quotes := &fakeQuotes{prices: prices}
	clock := &fakeClock{now: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)}
	resolver := marketdata.NewPriceResolver(nil, quotes)

	return NewEngine(data.NewInMemoryStore(), resolver, DefaultConfig(), clock.Now), quotes, clock
}

func f64(v float64) *float64 {
	return &v
}

func findOrder(t *testing.T, engine *Engine, accountID string, id uuid.UUID) *models.Order {
	t.Helper()

	orders, err := engine.GetOrders(accountID)
	require.NoError(t, err)

	for _, order := range orders {
		if order.ID == id {
			return order
		}
	}

	t.Fatalf("order %s not found for account %s", id, accountID)
	return nil
}

func assertTotalValueInvariant(t *testing.T, portfolio *models.Portfolio) {
	t.Helper()

	sum := portfolio.CashBalance
	for _, position := range portfolio.Positions {
		sum += position.MarketValue()
	}

	assert.InDelta(t, sum, portfolio.TotalValue(), 1e-6)
}

func TestInitializePortfolio(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(map[string]float64{})

	t.Run("seeds the starting balance", func(t *testing.T) {
		portfolio, err := engine.InitializePortfolio(ctx, "acct-1")
		require.NoError(t, err)

		assert.Equal(t, 100000.0, portfolio.CashBalance)
		assert.Equal(t, 100000.0, portfolio.InitialBalance)
		assert.Len(t, portfolio.Positions, 0)
	})

	t.Run("re-initializing is a no-op", func(t *testing.T) {
		first, err := engine.InitializePortfolio(ctx, "acct-2")
		require.NoError(t, err)

		second, err := engine.InitializePortfolio(ctx, "acct-2")
		require.NoError(t, err)

		assert.Equal(t, first.CreatedAt, second.CreatedAt)
		assert.Equal(t, first.CashBalance, second.CashBalance)
	})

	t.Run("unknown account is not found", func(t *testing.T) {
		_, err := engine.GetPortfolio(ctx, "never-created")
		assert.ErrorIs(t, err, models.ErrPortfolioNotFound)
	})

	t.Run("concurrent first-time initializations share one account", func(t *testing.T) {
		engine, _, _ := newTestEngine(map[string]float64{"AAPL": 150})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, err := engine.InitializePortfolio(ctx, "acct-3")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		// a trade placed after the race must land on the account every
		// initializer handed back
		_, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
			AccountID: "acct-3",
			Symbol:    "AAPL",
			Action:    models.OrderActionBuy,
			Quantity:  10,
			Type:      models.OrderTypeMarket,
		})
		require.NoError(t, err)

		portfolio, err := engine.GetPortfolio(ctx, "acct-3")
		require.NoError(t, err)
		assert.InDelta(t, 98500.0, portfolio.CashBalance, 1e-6)

		orders, err := engine.GetOrders("acct-3")
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})
}

func TestPlaceTradeMarketBuy(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(map[string]float64{"AAPL": 175.50})

	_, err := engine.InitializePortfolio(ctx, "acct-1")
	require.NoError(t, err)

	orderID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
		AccountID: "acct-1",
		Symbol:    "AAPL",
		Action:    models.OrderActionBuy,
		Quantity:  10,
		Type:      models.OrderTypeMarket,
	})
	require.NoError(t, err)

	portfolio, err := engine.GetPortfolio(ctx, "acct-1")
	require.NoError(t, err)

	assert.Equal(t, 98245.0, portfolio.CashBalance)

	position, found := portfolio.GetPosition("AAPL")
	require.True(t, found)
	assert.Equal(t, 10.0, position.Quantity)
	assert.Equal(t, 175.50, position.AvgCost)

	order := findOrder(t, engine, "acct-1", orderID)
	assert.Equal(t, models.OrderStatusActive, order.Status)
	assert.Equal(t, 175.50, order.FillPrice)

	assertTotalValueInvariant(t, portfolio)
}

func TestPlaceTradeRejections(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(map[string]float64{"AAPL": 175.50})

	_, err := engine.InitializePortfolio(ctx, "acct-1")
	require.NoError(t, err)

	t.Run("insufficient funds leaves the portfolio unchanged", func(t *testing.T) {
		_, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
			AccountID: "acct-1",
			Symbol:    "AAPL",
			Action:    models.OrderActionBuy,
			Quantity:  1000,
			Type:      models.OrderTypeMarket,
		})
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)

		portfolio, err := engine.GetPortfolio(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, 100000.0, portfolio.CashBalance)
		assert.Len(t, portfolio.Positions, 0)

		orders, err := engine.GetOrders("acct-1")
		require.NoError(t, err)
		assert.Len(t, orders, 0)
	})

	t.Run("selling more than held is rejected", func(t *testing.T) {
		_, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
			AccountID: "acct-1",
			Symbol:    "AAPL",
			Action:    models.OrderActionSell,
			Quantity:  5,
			Type:      models.OrderTypeMarket,
		})
		assert.ErrorIs(t, err, models.ErrInsufficientHoldings)
	})

	t.Run("partial option contract fields are rejected", func(t *testing.T) {
		_, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
			AccountID: "acct-1",
			Symbol:    "AAPL",
			Action:    models.OrderActionBuy,
			Quantity:  1,
			Type:      models.OrderTypeMarket,
			Strike:    f64(180),
		})
		assert.ErrorIs(t, err, models.ErrInvalidInstrument)
	})
}

func TestLimitOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("marketable buy limit fills immediately at the limit price", func(t *testing.T) {
		engine, _, _ := newTestEngine(map[string]float64{"AAPL": 150})

		_, err := engine.InitializePortfolio(ctx, "acct-1")
		require.NoError(t, err)

		orderID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
			AccountID:  "acct-1",
			Symbol:     "AAPL",
			Action:     models.OrderActionBuy,
			Quantity:   10,
			Type:       models.OrderTypeLimit,
			LimitPrice: f64(152),
		})
		require.NoError(t, err)

		order := findOrder(t, engine, "acct-1", orderID)
		assert.Equal(t, models.OrderStatusActive, order.Status)
		assert.Equal(t, 152.0, order.FillPrice)

		portfolio, err := engine.GetPortfolio(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, 100000.0-1520, portfolio.CashBalance)
	})

	t.Run("buy limit below spot rests pending and fills at the limit", func(t *testing.T) {
		engine, quotes, _ := newTestEngine(map[string]float64{"AAPL": 150})

		_, err := engine.InitializePortfolio(ctx, "acct-1")
		require.NoError(t, err)

		orderID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
			AccountID:  "acct-1",
			Symbol:     "AAPL",
			Action:     models.OrderActionBuy,
			Quantity:   10,
			Type:       models.OrderTypeLimit,
			LimitPrice: f64(140),
		})
		require.NoError(t, err)

		order := findOrder(t, engine, "acct-1", orderID)
		assert.Equal(t, models.OrderStatusPending, order.Status)

		// still pending while spot stays above the limit
		_, err = engine.GetPortfolio(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, findOrder(t, engine, "acct-1", orderID).Status)

		quotes.set("AAPL", 139)

		portfolio, err := engine.GetPortfolio(ctx, "acct-1")
		require.NoError(t, err)

		order = findOrder(t, engine, "acct-1", orderID)
		assert.Equal(t, models.OrderStatusActive, order.Status)
		assert.Equal(t, 140.0, order.FillPrice)
		assert.Equal(t, 100000.0-1400, portfolio.CashBalance)

		position, found := portfolio.GetPosition("AAPL")
		require.True(t, found)
		assert.Equal(t, 140.0, position.AvgCost)
	})
}

func TestGetPortfolioIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(map[string]float64{"AAPL": 150})

	_, err := engine.InitializePortfolio(ctx, "acct-1")
	require.NoError(t, err)

	_, err = engine.PlaceTrade(ctx, &PlaceTradeRequest{
		AccountID: "acct-1",
		Symbol:    "AAPL",
		Action:    models.OrderActionBuy,
		Quantity:  10,
		Type:      models.OrderTypeMarket,
	})
	require.NoError(t, err)

	first, err := engine.GetPortfolio(ctx, "acct-1")
	require.NoError(t, err)

	second, err := engine.GetPortfolio(ctx, "acct-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCloseTrade(t *testing.T) {
	ctx := context.Background()
	engine, quotes, _ := newTestEngine(map[string]float64{"AAPL": 150})

	_, err := engine.InitializePortfolio(ctx, "acct-1")
	require.NoError(t, err)

	orderID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
		AccountID: "acct-1",
		Symbol:    "AAPL",
		Action:    models.OrderActionBuy,
		Quantity:  10,
		Type:      models.OrderTypeMarket,
	})
	require.NoError(t, err)

	quotes.set("AAPL", 165)

	require.NoError(t, engine.CloseTrade(ctx, orderID))

	portfolio, err := engine.GetPortfolio(ctx, "acct-1")
	require.NoError(t, err)

	_, found := portfolio.GetPosition("AAPL")
	assert.False(t, found)
	assert.Equal(t, 100000.0+150, portfolio.CashBalance)

	order := findOrder(t, engine, "acct-1", orderID)
	assert.Equal(t, models.OrderStatusClosed, order.Status)
	require.NotNil(t, order.ClosedByID)

	closing := findOrder(t, engine, "acct-1", *order.ClosedByID)
	assert.Equal(t, models.OrderActionSell, closing.Action)
	assert.Equal(t, models.OrderStatusClosed, closing.Status)
	require.NotNil(t, closing.RealizedPnL)
	assert.InDelta(t, 150.0, *closing.RealizedPnL, 1e-6)

	t.Run("closing twice is not actionable", func(t *testing.T) {
		err := engine.CloseTrade(ctx, orderID)
		assert.ErrorIs(t, err, models.ErrOrderNotActionable)
	})

	t.Run("unknown order is not found", func(t *testing.T) {
		err := engine.CloseTrade(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrOrderNotFound)
	})
}

func TestStopLossAutoClose(t *testing.T) {
	ctx := context.Background()
	engine, quotes, _ := newTestEngine(map[string]float64{"AAPL": 100})

	_, err := engine.InitializePortfolio(ctx, "acct-1")
	require.NoError(t, err)

	orderID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
		AccountID: "acct-1",
		Symbol:    "AAPL",
		Action:    models.OrderActionBuy,
		Quantity:  10,
		Type:      models.OrderTypeMarket,
		StopLoss:  f64(90),
	})
	require.NoError(t, err)

	// above the stop, nothing happens
	quotes.set("AAPL", 95)
	_, err = engine.GetPortfolio(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusActive, findOrder(t, engine, "acct-1", orderID).Status)

	quotes.set("AAPL", 89)

	portfolio, err := engine.GetPortfolio(ctx, "acct-1")
	require.NoError(t, err)

	order := findOrder(t, engine, "acct-1", orderID)
	assert.Equal(t, models.OrderStatusClosed, order.Status)
	assert.Contains(t, order.Reasoning, "stop loss")
	require.NotNil(t, order.ClosedByID)

	closing := findOrder(t, engine, "acct-1", *order.ClosedByID)
	assert.Equal(t, models.OrderActionSell, closing.Action)
	assert.Equal(t, 10.0, closing.Quantity)
	require.NotNil(t, closing.RealizedPnL)
	assert.InDelta(t, -110.0, *closing.RealizedPnL, 1e-6)

	_, found := portfolio.GetPosition("AAPL")
	assert.False(t, found)
	assert.Equal(t, 100000.0-110, portfolio.CashBalance)
	assertTotalValueInvariant(t, portfolio)
}

func TestTakeProfitAutoClose(t *testing.T) {
	ctx := context.Background()
	engine, quotes, _ := newTestEngine(map[string]float64{"AAPL": 100})

	_, err := engine.InitializePortfolio(ctx, "acct-1")
	require.NoError(t, err)

	orderID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
		AccountID:  "acct-1",
		Symbol:     "AAPL",
		Action:     models.OrderActionBuy,
		Quantity:   10,
		Type:       models.OrderTypeMarket,
		TakeProfit: f64(110),
	})
	require.NoError(t, err)

	quotes.set("AAPL", 112)

	portfolio, err := engine.GetPortfolio(ctx, "acct-1")
	require.NoError(t, err)

	order := findOrder(t, engine, "acct-1", orderID)
	assert.Equal(t, models.OrderStatusClosed, order.Status)
	assert.Contains(t, order.Reasoning, "take profit")

	assert.Equal(t, 100000.0+120, portfolio.CashBalance)
}

func TestOptionExpirationSettlement(t *testing.T) {
	ctx := context.Background()

	expiry := time.Date(2024, 1, 19, 21, 0, 0, 0, time.UTC)
	optionCall := models.OptionTypeCall

	buyCall := func(t *testing.T, engine *Engine) (uuid.UUID, float64) {
		t.Helper()

		_, err := engine.InitializePortfolio(ctx, "acct-1")
		require.NoError(t, err)

		orderID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
			AccountID:  "acct-1",
			Symbol:     "AAPL",
			Action:     models.OrderActionBuy,
			Quantity:   1,
			Type:       models.OrderTypeMarket,
			OptionType: &optionCall,
			Strike:     f64(100),
			Expiration: &expiry,
		})
		require.NoError(t, err)

		return orderID, findOrder(t, engine, "acct-1", orderID).FillPrice
	}

	t.Run("in the money call settles at intrinsic value", func(t *testing.T) {
		engine, quotes, clock := newTestEngine(map[string]float64{"AAPL": 105})

		orderID, premium := buyCall(t, engine)

		cashAfterBuy := 100000.0 - premium*100

		quotes.set("AAPL", 110)
		clock.Advance(30 * 24 * time.Hour)

		portfolio, err := engine.GetPortfolio(ctx, "acct-1")
		require.NoError(t, err)

		_, found := portfolio.GetPosition(models.Option{Underlying: "AAPL", Type: optionCall, Strike: 100, Expiration: expiry}.Key())
		assert.False(t, found)

		assert.InDelta(t, cashAfterBuy+10*100, portfolio.CashBalance, 1e-6)

		order := findOrder(t, engine, "acct-1", orderID)
		assert.Equal(t, models.OrderStatusClosed, order.Status)
		assert.Contains(t, order.Reasoning, "auto-exercised")
		require.NotNil(t, order.RealizedPnL)
		assert.InDelta(t, (10-premium)*100, *order.RealizedPnL, 1e-6)
	})

	t.Run("out of the money call expires worthless", func(t *testing.T) {
		engine, quotes, clock := newTestEngine(map[string]float64{"AAPL": 105})

		orderID, premium := buyCall(t, engine)

		cashAfterBuy := 100000.0 - premium*100

		quotes.set("AAPL", 95)
		clock.Advance(30 * 24 * time.Hour)

		portfolio, err := engine.GetPortfolio(ctx, "acct-1")
		require.NoError(t, err)

		assert.Len(t, portfolio.Positions, 0)
		assert.InDelta(t, cashAfterBuy, portfolio.CashBalance, 1e-6)

		order := findOrder(t, engine, "acct-1", orderID)
		assert.Equal(t, models.OrderStatusClosed, order.Status)
		assert.Contains(t, order.Reasoning, "expired worthless")
		require.NotNil(t, order.RealizedPnL)
		assert.InDelta(t, -premium*100, *order.RealizedPnL, 1e-6)
	})

	t.Run("partially closed positions settle only the remaining quantity", func(t *testing.T) {
		engine, quotes, clock := newTestEngine(map[string]float64{"AAPL": 105})

		_, err := engine.InitializePortfolio(ctx, "acct-1")
		require.NoError(t, err)

		orderID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
			AccountID:  "acct-1",
			Symbol:     "AAPL",
			Action:     models.OrderActionBuy,
			Quantity:   2,
			Type:       models.OrderTypeMarket,
			OptionType: &optionCall,
			Strike:     f64(100),
			Expiration: &expiry,
		})
		require.NoError(t, err)

		premium := findOrder(t, engine, "acct-1", orderID).FillPrice

		// realize one contract before expiration
		sellID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
			AccountID:  "acct-1",
			Symbol:     "AAPL",
			Action:     models.OrderActionSell,
			Quantity:   1,
			Type:       models.OrderTypeMarket,
			OptionType: &optionCall,
			Strike:     f64(100),
			Expiration: &expiry,
		})
		require.NoError(t, err)

		quotes.set("AAPL", 110)
		clock.Advance(30 * 24 * time.Hour)

		portfolio, err := engine.GetPortfolio(ctx, "acct-1")
		require.NoError(t, err)

		// only the single remaining contract settles on the original order
		order := findOrder(t, engine, "acct-1", orderID)
		assert.Equal(t, models.OrderStatusClosed, order.Status)
		require.NotNil(t, order.RealizedPnL)
		assert.InDelta(t, (10-premium)*1*100, *order.RealizedPnL, 1e-6)

		sell := findOrder(t, engine, "acct-1", sellID)
		require.NotNil(t, sell.RealizedPnL)
		assert.InDelta(t, 0.0, *sell.RealizedPnL, 1e-6)

		assert.Len(t, portfolio.Positions, 0)
		assert.InDelta(t, 100000.0-premium*100+10*100, portfolio.CashBalance, 1e-6)
	})

	t.Run("expired pending limit order is cancelled", func(t *testing.T) {
		engine, _, clock := newTestEngine(map[string]float64{"AAPL": 105})

		_, err := engine.InitializePortfolio(ctx, "acct-1")
		require.NoError(t, err)

		orderID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
			AccountID:  "acct-1",
			Symbol:     "AAPL",
			Action:     models.OrderActionBuy,
			Quantity:   1,
			Type:       models.OrderTypeLimit,
			LimitPrice: f64(0.05),
			OptionType: &optionCall,
			Strike:     f64(100),
			Expiration: &expiry,
		})
		require.NoError(t, err)

		clock.Advance(30 * 24 * time.Hour)

		_, err = engine.GetPortfolio(ctx, "acct-1")
		require.NoError(t, err)

		order := findOrder(t, engine, "acct-1", orderID)
		assert.Equal(t, models.OrderStatusCancelled, order.Status)
	})
}

func TestResetPortfolio(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine(map[string]float64{"AAPL": 150})

	_, err := engine.InitializePortfolio(ctx, "acct-1")
	require.NoError(t, err)

	_, err = engine.PlaceTrade(ctx, &PlaceTradeRequest{
		AccountID: "acct-1",
		Symbol:    "AAPL",
		Action:    models.OrderActionBuy,
		Quantity:  10,
		Type:      models.OrderTypeMarket,
	})
	require.NoError(t, err)

	portfolio, err := engine.ResetPortfolio(ctx, "acct-1")
	require.NoError(t, err)

	assert.Equal(t, 100000.0, portfolio.CashBalance)
	assert.Len(t, portfolio.Positions, 0)

	orders, err := engine.GetOrders("acct-1")
	require.NoError(t, err)
	assert.Len(t, orders, 0)
}

func TestGetPerformanceMetrics(t *testing.T) {
	ctx := context.Background()
	engine, quotes, _ := newTestEngine(map[string]float64{"AAPL": 100, "MSFT": 200})

	_, err := engine.InitializePortfolio(ctx, "acct-1")
	require.NoError(t, err)

	winID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
		AccountID: "acct-1",
		Symbol:    "AAPL",
		Action:    models.OrderActionBuy,
		Quantity:  10,
		Type:      models.OrderTypeMarket,
	})
	require.NoError(t, err)

	lossID, err := engine.PlaceTrade(ctx, &PlaceTradeRequest{
		AccountID: "acct-1",
		Symbol:    "MSFT",
		Action:    models.OrderActionBuy,
		Quantity:  5,
		Type:      models.OrderTypeMarket,
	})
	require.NoError(t, err)

	quotes.set("AAPL", 120)
	require.NoError(t, engine.CloseTrade(ctx, winID))

	quotes.set("MSFT", 190)
	require.NoError(t, engine.CloseTrade(ctx, lossID))

	metrics, err := engine.GetPerformanceMetrics(ctx, "acct-1")
	require.NoError(t, err)

	// +200 on AAPL, -50 on MSFT
	assert.Equal(t, 2, metrics.TotalTrades)
	assert.InDelta(t, 50.0, metrics.WinRate, 1e-6)
	assert.InDelta(t, 200.0, metrics.AverageWin, 1e-6)
	assert.InDelta(t, -50.0, metrics.AverageLoss, 1e-6)
	assert.InDelta(t, 150.0, metrics.TotalReturn, 1e-6)
	assert.InDelta(t, 0.15, metrics.TotalReturnPercent, 1e-6)
}

func TestGetOptionsChain(t *testing.T) {
	ctx := context.Background()
	engine, _, clock := newTestEngine(map[string]float64{"AAPL": 150})

	t.Run("ladder is centered on spot", func(t *testing.T) {
		chain, err := engine.GetOptionsChain(ctx, "aapl", nil)
		require.NoError(t, err)

		assert.Equal(t, "AAPL", chain.Underlying)
		assert.Equal(t, 150.0, chain.UnderlyingPrice)
		assert.True(t, chain.Expiration.After(clock.Now()))

		require.Len(t, chain.Calls, 21)
		require.Len(t, chain.Puts, 21)

		assert.Equal(t, 100.0, chain.Calls[0].Strike)
		assert.Equal(t, 150.0, chain.Calls[10].Strike)
		assert.Equal(t, 200.0, chain.Calls[20].Strike)

		for _, quote := range chain.Calls {
			assert.GreaterOrEqual(t, quote.Ask, quote.Bid)
			assert.GreaterOrEqual(t, quote.Last, 0.01)
			assert.InDelta(t, quote.Last, quote.IntrinsicValue+quote.TimeValue, 0.011)
		}

		// deeper in the money carries more delta
		assert.Greater(t, chain.Calls[0].Greeks.Delta, chain.Calls[20].Greeks.Delta)
	})

	t.Run("repeated requests agree", func(t *testing.T) {
		first, err := engine.GetOptionsChain(ctx, "AAPL", nil)
		require.NoError(t, err)

		second, err := engine.GetOptionsChain(ctx, "AAPL", nil)
		require.NoError(t, err)

		assert.Equal(t, first.Calls, second.Calls)
		assert.Equal(t, first.Puts, second.Puts)
	})

	t.Run("past expiration is rejected", func(t *testing.T) {
		past := clock.Now().AddDate(0, 0, -1)
		_, err := engine.GetOptionsChain(ctx, "AAPL", &past)
		assert.ErrorIs(t, err, models.ErrInvalidInstrument)
	})

	t.Run("default request spans the configured expirations", func(t *testing.T) {
		chains, err := engine.GetOptionsChains(ctx, "AAPL")
		require.NoError(t, err)
		require.Len(t, chains, DefaultConfig().ChainExpirations)

		for i, chain := range chains {
			assert.Equal(t, time.Friday, chain.Expiration.Weekday())
			assert.True(t, chain.Expiration.After(clock.Now()))
			if i > 0 {
				assert.Equal(t, chains[i-1].Expiration.AddDate(0, 0, 7), chain.Expiration)
			}
		}
	})
}
