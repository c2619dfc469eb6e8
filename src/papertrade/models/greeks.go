package models

// Greeks are the option price sensitivities last computed by the pricing
// model. Theta is quoted per calendar day, vega per 1% volatility move.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}
