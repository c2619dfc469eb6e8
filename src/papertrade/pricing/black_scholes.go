package pricing

import (
	"math"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

const (
	DefaultVolatility   = 0.25
	DefaultRiskFreeRate = 0.05

	// MinPremium floors the returned price so a zero or negative premium
	// never feeds downstream math.
	MinPremium = 0.01
)

// normCDF is the Abramowitz-Stegun rational approximation of the standard
// normal cumulative distribution. Absolute error is below 7.5e-8.
func normCDF(x float64) float64 {
	if x < 0 {
		return 1 - normCDF(-x)
	}

	k := 1 / (1 + 0.2316419*x)
	poly := k * (0.319381530 + k*(-0.356563782+k*(1.781477937+k*(-1.821255978+k*1.330274429))))

	return 1 - normPDF(x)*poly
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// Intrinsic is the in-the-money portion of the option's value if exercised
// now. It is also the settlement price at expiration.
func Intrinsic(spot, strike float64, optionType models.OptionType) float64 {
	if optionType == models.OptionTypePut {
		return math.Max(strike-spot, 0)
	}

	return math.Max(spot-strike, 0)
}

// Price values a European option with the Black-Scholes closed form and
// returns the premium alongside its Greeks. Theta is per calendar day and
// vega per 1% volatility move. Pass volatility or riskFreeRate <= 0 to use
// the simulation defaults. At or past expiry the intrinsic value is returned
// with all Greeks zero.
func Price(spot, strike, yearsToExpiry, volatility, riskFreeRate float64, optionType models.OptionType) (float64, models.Greeks) {
	if yearsToExpiry <= 0 {
		return Intrinsic(spot, strike, optionType), models.Greeks{}
	}

	if volatility <= 0 {
		volatility = DefaultVolatility
	}

	if riskFreeRate <= 0 {
		riskFreeRate = DefaultRiskFreeRate
	}

	sqrtT := math.Sqrt(yearsToExpiry)
	d1 := (math.Log(spot/strike) + (riskFreeRate+volatility*volatility/2)*yearsToExpiry) / (volatility * sqrtT)
	d2 := d1 - volatility*sqrtT

	discount := math.Exp(-riskFreeRate * yearsToExpiry)

	var price, delta float64
	if optionType == models.OptionTypePut {
		price = strike*discount*normCDF(-d2) - spot*normCDF(-d1)
		delta = normCDF(d1) - 1
	} else {
		price = spot*normCDF(d1) - strike*discount*normCDF(d2)
		delta = normCDF(d1)
	}

	gamma := normPDF(d1) / (spot * volatility * sqrtT)

	thetaAnnual := -spot*normPDF(d1)*volatility/(2*sqrtT) - riskFreeRate*strike*discount*normCDF(d2)
	if optionType == models.OptionTypePut {
		thetaAnnual = -spot*normPDF(d1)*volatility/(2*sqrtT) + riskFreeRate*strike*discount*normCDF(-d2)
	}

	greeks := models.Greeks{
		Delta: delta,
		Gamma: gamma,
		Theta: thetaAnnual / 365,
		Vega:  spot * normPDF(d1) * sqrtT / 100,
	}

	return math.Max(price, MinPremium), greeks
}
