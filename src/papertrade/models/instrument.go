package models

import (
	"fmt"
	"strings"
	"time"
)

// Instrument identifies a tradeable contract. Equities key on the ticker
// alone; options key on (underlying, type, strike, expiration) so that two
// contracts merge into one position only when all four components match.
type Instrument interface {
	GetTicker() string
	Key() string
	Multiplier() float64
	IsOption() bool
}

type StockSymbol string

func (s StockSymbol) String() string {
	return strings.ToUpper(string(s))
}

func NewStockSymbol(s string) StockSymbol {
	return StockSymbol(strings.ToUpper(s))
}

type Equity struct {
	Symbol StockSymbol `json:"symbol"`
}

func (e Equity) GetTicker() string {
	return e.Symbol.String()
}

func (e Equity) Key() string {
	return e.Symbol.String()
}

func (e Equity) Multiplier() float64 {
	return 1
}

func (e Equity) IsOption() bool {
	return false
}

func NewEquity(symbol StockSymbol) Equity {
	return Equity{Symbol: NewStockSymbol(string(symbol))}
}

type Option struct {
	Underlying StockSymbol `json:"underlying"`
	Type       OptionType  `json:"option_type"`
	Strike     float64     `json:"strike"`
	Expiration time.Time   `json:"expiration"`
}

func (o Option) GetTicker() string {
	return o.Underlying.String()
}

// Key formats the contract in the OCC style, e.g. AAPL240119C00150000.
func (o Option) Key() string {
	year := o.Expiration.Year() % 100
	month := int(o.Expiration.Month())
	day := o.Expiration.Day()

	strike := fmt.Sprintf("%08d", int(o.Strike*1000))

	return fmt.Sprintf("%s%02d%02d%02d%s%s", o.Underlying.String(), year, month, day, o.Type.Code(), strike)
}

func (o Option) Multiplier() float64 {
	return 100
}

func (o Option) IsOption() bool {
	return true
}

// Description renders a human-readable contract name, e.g. "AAPL Jan 19 2024 $150.00 Call".
func (o Option) Description() string {
	optionType := "Call"
	if o.Type == OptionTypePut {
		optionType = "Put"
	}

	return fmt.Sprintf("%s %s $%.2f %s", o.Underlying.String(), o.Expiration.Format("Jan 2 2006"), o.Strike, optionType)
}

// YearsToExpiry returns the time remaining until expiration as a year
// fraction. Expired contracts return a non-positive value.
func (o Option) YearsToExpiry(now time.Time) float64 {
	return o.Expiration.Sub(now).Hours() / (24 * 365)
}

func (o Option) IsExpired(now time.Time) bool {
	return !o.Expiration.After(now)
}

func NewOption(underlying StockSymbol, optionType OptionType, strike float64, expiration time.Time) (Option, error) {
	if err := optionType.Validate(); err != nil {
		return Option{}, err
	}

	if strike <= 0 {
		return Option{}, fmt.Errorf("%w: strike must be greater than 0", ErrInvalidInstrument)
	}

	if expiration.IsZero() {
		return Option{}, fmt.Errorf("%w: missing expiration", ErrInvalidInstrument)
	}

	return Option{
		Underlying: NewStockSymbol(string(underlying)),
		Type:       optionType,
		Strike:     strike,
		Expiration: expiration,
	}, nil
}
