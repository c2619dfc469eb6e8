package models

import "fmt"

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

func (t OrderType) Validate() error {
	switch t {
	case OrderTypeMarket, OrderTypeLimit:
		return nil
	default:
		return fmt.Errorf("invalid order type: %s", t)
	}
}
