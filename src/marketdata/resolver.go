package marketdata

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

// PriceResolver applies one explicit primary/fallback order: the primary
// provider is asked first and any failure degrades to the fallback. A quote
// failure is logged, never surfaced; the engine sees a usable price or an
// error only when both providers fail.
type PriceResolver struct {
	primary  QuoteProvider
	fallback QuoteProvider
}

func (r *PriceResolver) Resolve(ctx context.Context, symbol models.StockSymbol) (float64, error) {
	if r.primary != nil {
		price, err := r.primary.GetPrice(ctx, symbol)
		if err == nil {
			return price, nil
		}

		log.Warnf("quote provider failed for %s, falling back to synthetic pricing: %v", symbol, err)
	}

	price, err := r.fallback.GetPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: fallback provider failed for %s: %v", models.ErrQuoteUnavailable, symbol, err)
	}

	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: fallback provider returned invalid price %f for %s", models.ErrQuoteUnavailable, price, symbol)
	}

	return price, nil
}

// NewPriceResolver builds a resolver. primary may be nil, in which case every
// lookup is served by the fallback provider.
func NewPriceResolver(primary, fallback QuoteProvider) *PriceResolver {
	if fallback == nil {
		panic("marketdata: fallback provider is required")
	}

	return &PriceResolver{
		primary:  primary,
		fallback: fallback,
	}
}
