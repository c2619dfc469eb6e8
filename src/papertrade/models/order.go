package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID          uuid.UUID
	AccountID   string
	Instrument  Instrument
	Action      OrderAction
	Quantity    float64
	Type        OrderType
	LimitPrice  *float64
	StopLoss    *float64
	TakeProfit  *float64
	Reasoning   string
	Status      OrderStatus
	FillPrice   float64
	FilledAt    *time.Time
	RealizedPnL *float64
	ClosedByID  *uuid.UUID
	CreatedAt   time.Time
}

// SignedQuantity is positive for buys and negative for sells.
func (o *Order) SignedQuantity() float64 {
	if o.Action == OrderActionSell {
		return -o.Quantity
	}

	return o.Quantity
}

// Notional is the cash required to fill the order at the given price.
func (o *Order) Notional(price float64) float64 {
	return price * o.Quantity * o.Instrument.Multiplier()
}

func (o *Order) Fill(price float64, at time.Time) error {
	if !o.Status.IsPending() {
		return fmt.Errorf("%w: order %s is %s", ErrOrderNotActionable, o.ID, o.Status)
	}

	if price <= 0 {
		return fmt.Errorf("fill price must be greater than 0")
	}

	o.FillPrice = price
	o.FilledAt = &at
	o.Status = OrderStatusActive

	return nil
}

// Close transitions the order to its terminal closed state. realizedPnL is
// set only when this order itself carries the closing fill (a SELL fill or an
// expiration settlement); an order flattened by a separate closing order
// references it through closedBy instead.
func (o *Order) Close(realizedPnL *float64, closedBy *uuid.UUID) error {
	if o.Status.IsTerminal() {
		return fmt.Errorf("%w: order %s is %s", ErrOrderNotActionable, o.ID, o.Status)
	}

	if realizedPnL != nil {
		pnl := *realizedPnL
		o.RealizedPnL = &pnl
	}

	o.ClosedByID = closedBy
	o.Status = OrderStatusClosed

	return nil
}

func (o *Order) Cancel() error {
	if !o.Status.IsPending() {
		return fmt.Errorf("%w: only pending orders can be cancelled", ErrOrderNotActionable)
	}

	o.Status = OrderStatusCancelled

	return nil
}

// AnnotateReason appends an informational note, e.g. the cause of an
// automatic close, to the order's free-text reasoning.
func (o *Order) AnnotateReason(note string) {
	if o.Reasoning == "" {
		o.Reasoning = note
		return
	}

	o.Reasoning = fmt.Sprintf("%s | %s", o.Reasoning, note)
}

type orderDTO struct {
	ID          uuid.UUID   `json:"id"`
	AccountID   string      `json:"account_id"`
	Symbol      string      `json:"symbol"`
	Class       string      `json:"class"`
	OptionType  *OptionType `json:"option_type,omitempty"`
	Strike      *float64    `json:"strike,omitempty"`
	Expiration  *time.Time  `json:"expiration,omitempty"`
	Action      OrderAction `json:"action"`
	Quantity    float64     `json:"quantity"`
	Type        OrderType   `json:"type"`
	LimitPrice  *float64    `json:"limit_price,omitempty"`
	StopLoss    *float64    `json:"stop_loss,omitempty"`
	TakeProfit  *float64    `json:"take_profit,omitempty"`
	Reasoning   string      `json:"reasoning,omitempty"`
	Status      OrderStatus `json:"status"`
	FillPrice   float64     `json:"fill_price"`
	FilledAt    *time.Time  `json:"filled_at,omitempty"`
	RealizedPnL *float64    `json:"realized_pnl,omitempty"`
	ClosedByID  *uuid.UUID  `json:"closed_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Multiplier  float64     `json:"multiplier"`
}

func (o *Order) MarshalJSON() ([]byte, error) {
	dto := orderDTO{
		ID:          o.ID,
		AccountID:   o.AccountID,
		Symbol:      o.Instrument.GetTicker(),
		Class:       "equity",
		Action:      o.Action,
		Quantity:    o.Quantity,
		Type:        o.Type,
		LimitPrice:  o.LimitPrice,
		StopLoss:    o.StopLoss,
		TakeProfit:  o.TakeProfit,
		Reasoning:   o.Reasoning,
		Status:      o.Status,
		FillPrice:   o.FillPrice,
		FilledAt:    o.FilledAt,
		RealizedPnL: o.RealizedPnL,
		ClosedByID:  o.ClosedByID,
		CreatedAt:   o.CreatedAt,
		Multiplier:  o.Instrument.Multiplier(),
	}

	if option, ok := o.Instrument.(Option); ok {
		dto.Class = "option"
		dto.OptionType = &option.Type
		dto.Strike = &option.Strike
		dto.Expiration = &option.Expiration
	}

	return json.Marshal(dto)
}

func NewOrder(accountID string, instrument Instrument, action OrderAction, quantity float64, orderType OrderType, limitPrice, stopLoss, takeProfit *float64, reasoning string, createdAt time.Time) *Order {
	return &Order{
		ID:         uuid.New(),
		AccountID:  accountID,
		Instrument: instrument,
		Action:     action,
		Quantity:   quantity,
		Type:       orderType,
		LimitPrice: limitPrice,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Reasoning:  reasoning,
		Status:     OrderStatusPending,
		CreatedAt:  createdAt,
	}
}
