package models

import "time"

// OptionContractQuote is a read-only pricing surface entry. Chains are
// generated on demand from the pricing model and are never authoritative
// state; positions and orders are.
type OptionContractQuote struct {
	Symbol            string     `json:"symbol"`
	Underlying        string     `json:"underlying"`
	Type              OptionType `json:"option_type"`
	Strike            float64    `json:"strike"`
	Expiration        time.Time  `json:"expiration"`
	Bid               float64    `json:"bid"`
	Ask               float64    `json:"ask"`
	Last              float64    `json:"last"`
	Volume            int64      `json:"volume"`
	OpenInterest      int64      `json:"open_interest"`
	ImpliedVolatility float64    `json:"implied_volatility"`
	Greeks            Greeks     `json:"greeks"`
	IntrinsicValue    float64    `json:"intrinsic_value"`
	TimeValue         float64    `json:"time_value"`
}

type OptionsChain struct {
	Underlying      string                `json:"underlying"`
	UnderlyingPrice float64               `json:"underlying_price"`
	Expiration      time.Time             `json:"expiration"`
	Calls           []OptionContractQuote `json:"calls"`
	Puts            []OptionContractQuote `json:"puts"`
	GeneratedAt     time.Time             `json:"generated_at"`
}
