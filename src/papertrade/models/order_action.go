package models

import "fmt"

type OrderAction string

const (
	OrderActionBuy  OrderAction = "BUY"
	OrderActionSell OrderAction = "SELL"
)

// Opposite returns the action that flattens a fill of this action.
func (a OrderAction) Opposite() OrderAction {
	if a == OrderActionBuy {
		return OrderActionSell
	}

	return OrderActionBuy
}

func (a OrderAction) Validate() error {
	switch a {
	case OrderActionBuy, OrderActionSell:
		return nil
	default:
		return fmt.Errorf("invalid order action: %s", a)
	}
}
