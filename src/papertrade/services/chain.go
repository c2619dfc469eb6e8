package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
	"github.com/jiaming2012/paper-trading/src/papertrade/pricing"
)

// GetOptionsChain generates a synthetic options chain for the underlying: a
// strike ladder centered on the current spot, priced with the configured
// volatility and rate. When expiration is nil the nearest upcoming Friday is
// used.
func (e *Engine) GetOptionsChain(ctx context.Context, symbol string, expiration *time.Time) (*models.OptionsChain, error) {
	ticker := models.NewStockSymbol(symbol)
	if ticker == "" {
		return nil, fmt.Errorf("%w: underlying symbol is required", models.ErrInvalidInstrument)
	}

	spot, err := e.resolver.Resolve(ctx, ticker)
	if err != nil {
		return nil, err
	}

	now := e.now()

	var expiry time.Time
	if expiration != nil {
		expiry = *expiration
	} else {
		expiry = nextFriday(now)
	}

	if !expiry.After(now) {
		return nil, fmt.Errorf("%w: expiration %s is not in the future", models.ErrInvalidInstrument, expiry.Format("2006-01-02"))
	}

	chain := &models.OptionsChain{
		Underlying:      string(ticker),
		UnderlyingPrice: spot,
		Expiration:      expiry,
		GeneratedAt:     now,
	}

	increment := strikeIncrement(spot)
	atm := math.Round(spot/increment) * increment
	yearsToExpiry := expiry.Sub(now).Hours() / (24 * 365)

	for i := -e.cfg.ChainWidth; i <= e.cfg.ChainWidth; i++ {
		strike := atm + float64(i)*increment
		if strike <= 0 {
			continue
		}

		chain.Calls = append(chain.Calls, e.contractQuote(ticker, models.OptionTypeCall, strike, expiry, spot, yearsToExpiry))
		chain.Puts = append(chain.Puts, e.contractQuote(ticker, models.OptionTypePut, strike, expiry, spot, yearsToExpiry))
	}

	return chain, nil
}

// GetOptionsChains generates one chain per upcoming weekly expiration,
// starting at the nearest Friday, for the configured number of expirations.
func (e *Engine) GetOptionsChains(ctx context.Context, symbol string) ([]*models.OptionsChain, error) {
	expiry := nextFriday(e.now())

	chains := make([]*models.OptionsChain, 0, e.cfg.ChainExpirations)
	for i := 0; i < e.cfg.ChainExpirations; i++ {
		chain, err := e.GetOptionsChain(ctx, symbol, &expiry)
		if err != nil {
			return nil, err
		}

		chains = append(chains, chain)
		expiry = expiry.AddDate(0, 0, 7)
	}

	return chains, nil
}

func (e *Engine) contractQuote(ticker models.StockSymbol, optionType models.OptionType, strike float64, expiry time.Time, spot, yearsToExpiry float64) models.OptionContractQuote {
	option := models.Option{
		Underlying: ticker,
		Type:       optionType,
		Strike:     strike,
		Expiration: expiry,
	}

	last, greeks := pricing.Price(spot, strike, yearsToExpiry, e.cfg.Volatility, e.cfg.RiskFreeRate, optionType)
	intrinsic := pricing.Intrinsic(spot, strike, optionType)

	// a fixed half-spread, floored so near-worthless contracts still quote
	// a two-sided market
	halfSpread := math.Max(last*0.02, 0.01)
	bid := math.Max(last-halfSpread, 0)

	return models.OptionContractQuote{
		Symbol:            option.Key(),
		Underlying:        string(ticker),
		Type:              optionType,
		Strike:            strike,
		Expiration:        expiry,
		Bid:               roundCents(bid),
		Ask:               roundCents(last + halfSpread),
		Last:              roundCents(last),
		Volume:            syntheticActivity(option.Key(), 5000),
		OpenInterest:      syntheticActivity(option.Key()+":oi", 20000),
		ImpliedVolatility: e.cfg.Volatility,
		Greeks:            greeks,
		IntrinsicValue:    roundCents(intrinsic),
		TimeValue:         roundCents(math.Max(last-intrinsic, 0)),
	}
}

// strikeIncrement mirrors listed-market conventions: tighter ladders for
// cheap underlyings, wider for expensive ones.
func strikeIncrement(spot float64) float64 {
	switch {
	case spot < 25:
		return 0.5
	case spot < 100:
		return 1
	case spot < 250:
		return 5
	default:
		return 10
	}
}

// syntheticActivity derives a stable pseudo volume or open interest figure
// from the contract key, so repeated chain requests agree with each other.
func syntheticActivity(key string, ceiling uint64) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64()%ceiling) + 1
}

func nextFriday(now time.Time) time.Time {
	days := (int(time.Friday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}

	candidate := now.AddDate(0, 0, days)
	return time.Date(candidate.Year(), candidate.Month(), candidate.Day(), 21, 0, 0, 0, time.UTC)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
