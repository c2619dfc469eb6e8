package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

func TestNormCDF(t *testing.T) {
	t.Run("Symmetry at zero", func(t *testing.T) {
		assert.InDelta(t, 0.5, normCDF(0), 1e-7)
	})

	t.Run("Known values", func(t *testing.T) {
		assert.InDelta(t, 0.8413447, normCDF(1), 1e-6)
		assert.InDelta(t, 0.9772499, normCDF(2), 1e-6)
		assert.InDelta(t, 0.0227501, normCDF(-2), 1e-6)
	})
}

func TestPrice(t *testing.T) {
	t.Run("Expired call returns intrinsic value with zero greeks", func(t *testing.T) {
		price, greeks := Price(110, 100, 0, DefaultVolatility, DefaultRiskFreeRate, models.OptionTypeCall)
		assert.Equal(t, 10.0, price)
		assert.Equal(t, models.Greeks{}, greeks)
	})

	t.Run("Expired out-of-the-money call is worthless", func(t *testing.T) {
		price, greeks := Price(95, 100, -0.01, DefaultVolatility, DefaultRiskFreeRate, models.OptionTypeCall)
		assert.Equal(t, 0.0, price)
		assert.Equal(t, models.Greeks{}, greeks)
	})

	t.Run("Expired put returns intrinsic value", func(t *testing.T) {
		price, _ := Price(90, 100, 0, DefaultVolatility, DefaultRiskFreeRate, models.OptionTypePut)
		assert.Equal(t, 10.0, price)
	})

	t.Run("At-the-money call matches closed form reference", func(t *testing.T) {
		// S=100, K=100, T=1, vol=20%, r=5% -> C = 10.4506
		price, greeks := Price(100, 100, 1, 0.20, 0.05, models.OptionTypeCall)
		assert.InDelta(t, 10.4506, price, 1e-3)
		assert.InDelta(t, 0.6368, greeks.Delta, 1e-3)
		assert.Greater(t, greeks.Gamma, 0.0)
		assert.Less(t, greeks.Theta, 0.0)
		assert.Greater(t, greeks.Vega, 0.0)
	})

	t.Run("At-the-money put matches closed form reference", func(t *testing.T) {
		// Same inputs -> P = 5.5735, delta = N(d1) - 1
		price, greeks := Price(100, 100, 1, 0.20, 0.05, models.OptionTypePut)
		assert.InDelta(t, 5.5735, price, 1e-3)
		assert.InDelta(t, -0.3632, greeks.Delta, 1e-3)
	})

	t.Run("Put-call parity", func(t *testing.T) {
		call, _ := Price(105, 100, 0.5, 0.3, 0.05, models.OptionTypeCall)
		put, _ := Price(105, 100, 0.5, 0.3, 0.05, models.OptionTypePut)

		// C - P = S - K*e^(-rT)
		parity := 105 - 100*math.Exp(-0.05*0.5)
		assert.InDelta(t, parity, call-put, 1e-6)
	})

	t.Run("Deep out-of-the-money premium is floored at the minimum tick", func(t *testing.T) {
		price, _ := Price(100, 500, 0.01, 0.1, 0.05, models.OptionTypeCall)
		assert.Equal(t, MinPremium, price)
	})

	t.Run("Defaults apply when volatility and rate are zero", func(t *testing.T) {
		withDefaults, _ := Price(100, 100, 1, 0, 0, models.OptionTypeCall)
		explicit, _ := Price(100, 100, 1, DefaultVolatility, DefaultRiskFreeRate, models.OptionTypeCall)
		assert.Equal(t, explicit, withDefaults)
	})
}
