package models

import "encoding/json"

type Position struct {
	Instrument   Instrument
	Quantity     float64
	AvgCost      float64
	CurrentPrice float64
	Greeks       Greeks
}

func (p *Position) MarketValue() float64 {
	return p.CurrentPrice * p.Quantity * p.Instrument.Multiplier()
}

func (p *Position) CostValue() float64 {
	return p.AvgCost * p.Quantity * p.Instrument.Multiplier()
}

func (p *Position) UnrealizedPnL() float64 {
	return p.MarketValue() - p.CostValue()
}

func (p *Position) UnrealizedPnLPercent() float64 {
	cost := p.CostValue()
	if cost == 0 {
		return 0
	}

	return p.UnrealizedPnL() / cost * 100
}

// AddFill merges a buy fill into the position, volume-weighting the cost
// basis.
func (p *Position) AddFill(quantity, price float64) {
	totalQuantity := p.Quantity + quantity
	p.AvgCost = (p.AvgCost*p.Quantity + price*quantity) / totalQuantity
	p.Quantity = totalQuantity
}

func (p *Position) Clone() *Position {
	clone := *p
	return &clone
}

type positionDTO struct {
	Symbol               string      `json:"symbol"`
	Class                string      `json:"class"`
	OptionType           *OptionType `json:"option_type,omitempty"`
	Strike               *float64    `json:"strike,omitempty"`
	Expiration           *string     `json:"expiration,omitempty"`
	Quantity             float64     `json:"quantity"`
	AvgCost              float64     `json:"avg_cost"`
	CurrentPrice         float64     `json:"current_price"`
	MarketValue          float64     `json:"market_value"`
	UnrealizedPnL        float64     `json:"unrealized_pnl"`
	UnrealizedPnLPercent float64     `json:"unrealized_pnl_percent"`
	Multiplier           float64     `json:"multiplier"`
	Greeks               *Greeks     `json:"greeks,omitempty"`
}

func (p *Position) MarshalJSON() ([]byte, error) {
	dto := positionDTO{
		Symbol:               p.Instrument.GetTicker(),
		Class:                "equity",
		Quantity:             p.Quantity,
		AvgCost:              p.AvgCost,
		CurrentPrice:         p.CurrentPrice,
		MarketValue:          p.MarketValue(),
		UnrealizedPnL:        p.UnrealizedPnL(),
		UnrealizedPnLPercent: p.UnrealizedPnLPercent(),
		Multiplier:           p.Instrument.Multiplier(),
	}

	if option, ok := p.Instrument.(Option); ok {
		expiration := option.Expiration.Format("2006-01-02")

		dto.Class = "option"
		dto.OptionType = &option.Type
		dto.Strike = &option.Strike
		dto.Expiration = &expiration
		dto.Greeks = &p.Greeks
	}

	return json.Marshal(dto)
}

func NewPosition(instrument Instrument, quantity, price float64) *Position {
	return &Position{
		Instrument:   instrument,
		Quantity:     quantity,
		AvgCost:      price,
		CurrentPrice: price,
	}
}
