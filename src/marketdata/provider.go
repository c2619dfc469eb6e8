package marketdata

import (
	"context"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

// QuoteProvider resolves a current reference price for an underlying symbol.
// Implementations must return a positive, finite value or an error.
type QuoteProvider interface {
	GetPrice(ctx context.Context, symbol models.StockSymbol) (float64, error)
}
