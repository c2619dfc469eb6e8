package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

type Portfolio struct {
	AccountID      string
	InitialBalance float64
	CashBalance    float64
	Positions      map[string]*Position
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// roundCents keeps repeated cash mutations from accumulating float drift.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// TotalValue is always re-derived from cash and position market values,
// never stored independently of its inputs.
func (p *Portfolio) TotalValue() float64 {
	total := p.CashBalance
	for _, position := range p.Positions {
		total += position.MarketValue()
	}

	return total
}

func (p *Portfolio) GetPosition(key string) (*Position, bool) {
	position, found := p.Positions[key]
	return position, found
}

// PositionList returns positions ordered by contract key for stable output.
func (p *Portfolio) PositionList() []*Position {
	keys := make([]string, 0, len(p.Positions))
	for key := range p.Positions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	positions := make([]*Position, 0, len(keys))
	for _, key := range keys {
		positions = append(positions, p.Positions[key])
	}

	return positions
}

// ApplyBuy debits cash and opens or increases the position at a
// volume-weighted average cost. The caller performs the funds check.
func (p *Portfolio) ApplyBuy(instrument Instrument, quantity, price float64, at time.Time) {
	cost := price * quantity * instrument.Multiplier()
	p.CashBalance = roundCents(p.CashBalance - cost)

	key := instrument.Key()
	if position, found := p.Positions[key]; found {
		position.AddFill(quantity, price)
		position.CurrentPrice = price
	} else {
		p.Positions[key] = NewPosition(instrument, quantity, price)
	}

	p.UpdatedAt = at
}

// ApplySell credits cash, decreases or removes the position, and returns the
// realized P&L of the closed quantity. The caller validates holdings.
func (p *Portfolio) ApplySell(instrument Instrument, quantity, price float64, at time.Time) (float64, error) {
	key := instrument.Key()

	position, found := p.Positions[key]
	if !found || position.Quantity < quantity {
		return 0, fmt.Errorf("%w: %s", ErrInsufficientHoldings, key)
	}

	proceeds := price * quantity * instrument.Multiplier()
	p.CashBalance = roundCents(p.CashBalance + proceeds)

	realizedPnL := (price - position.AvgCost) * quantity * instrument.Multiplier()

	position.Quantity -= quantity
	position.CurrentPrice = price
	if position.Quantity == 0 {
		delete(p.Positions, key)
	}

	p.UpdatedAt = at

	return realizedPnL, nil
}

// RemovePosition drops a position without any cash movement. Used when an
// option expires worthless.
func (p *Portfolio) RemovePosition(key string, at time.Time) {
	delete(p.Positions, key)
	p.UpdatedAt = at
}

// Clone deep-copies the portfolio so a failed persistence write can roll the
// in-memory state back.
func (p *Portfolio) Clone() *Portfolio {
	positions := make(map[string]*Position, len(p.Positions))
	for key, position := range p.Positions {
		positions[key] = position.Clone()
	}

	clone := *p
	clone.Positions = positions

	return &clone
}

type portfolioDTO struct {
	AccountID      string      `json:"account_id"`
	InitialBalance float64     `json:"initial_balance"`
	CashBalance    float64     `json:"cash_balance"`
	TotalValue     float64     `json:"total_value"`
	Positions      []*Position `json:"positions"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (p *Portfolio) MarshalJSON() ([]byte, error) {
	return json.Marshal(portfolioDTO{
		AccountID:      p.AccountID,
		InitialBalance: p.InitialBalance,
		CashBalance:    p.CashBalance,
		TotalValue:     p.TotalValue(),
		Positions:      p.PositionList(),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	})
}

func NewPortfolio(accountID string, initialBalance float64, createdAt time.Time) *Portfolio {
	return &Portfolio{
		AccountID:      accountID,
		InitialBalance: initialBalance,
		CashBalance:    initialBalance,
		Positions:      make(map[string]*Position),
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}
