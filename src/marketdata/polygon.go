package marketdata

import (
	"context"
	"fmt"
	"math"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	polygonmodels "github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

const DefaultQuoteTimeout = 3 * time.Second

// PolygonQuoteProvider fetches the previous close for a ticker from the
// Polygon REST API. Every call carries a timeout so a slow feed can never
// block a reconciliation pass.
type PolygonQuoteProvider struct {
	client  *polygon.Client
	timeout time.Duration
}

func (p *PolygonQuoteProvider) GetPrice(ctx context.Context, symbol models.StockSymbol) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := polygonmodels.GetPreviousCloseAggParams{
		Ticker: symbol.String(),
	}.WithAdjusted(true)

	log.Debugf("fetching polygon previous close for symbol %s", symbol)

	resp, err := p.client.GetPreviousCloseAgg(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("polygon previous close [%s]: %w", symbol, err)
	}

	if len(resp.Results) == 0 {
		return 0, fmt.Errorf("polygon previous close [%s]: %w: empty result set", symbol, models.ErrQuoteUnavailable)
	}

	price := resp.Results[0].Close
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("polygon previous close [%s]: %w: invalid price %f", symbol, models.ErrQuoteUnavailable, price)
	}

	return price, nil
}

func NewPolygonQuoteProvider(apiKey string, timeout time.Duration) *PolygonQuoteProvider {
	if timeout <= 0 {
		timeout = DefaultQuoteTimeout
	}

	return &PolygonQuoteProvider{
		client:  polygon.New(apiKey),
		timeout: timeout,
	}
}
