package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

// SyntheticQuoteProvider generates a deterministic simulated price: a stable
// per-symbol base derived from a hash, plus a slow sinusoidal drift driven by
// the clock. Two calls with the same symbol and clock reading return the same
// price, which keeps reconciliation passes reproducible in tests.
type SyntheticQuoteProvider struct {
	now func() time.Time
}

func (s *SyntheticQuoteProvider) GetPrice(_ context.Context, symbol models.StockSymbol) (float64, error) {
	h := fnv.New64a()
	h.Write([]byte(symbol.String()))
	seed := h.Sum64()

	// base price in [20, 520)
	base := 20 + float64(seed%50000)/100

	// drift within +/-2% of base over a ~24h cycle
	hours := float64(s.now().Unix()) / 3600
	phase := float64(seed % 360)
	drift := math.Sin(hours/24*2*math.Pi+phase) * 0.02

	return math.Round(base*(1+drift)*100) / 100, nil
}

func NewSyntheticQuoteProvider(now func() time.Time) *SyntheticQuoteProvider {
	if now == nil {
		now = time.Now
	}

	return &SyntheticQuoteProvider{now: now}
}
