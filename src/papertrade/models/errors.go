package models

import "fmt"

var (
	ErrInsufficientFunds    = fmt.Errorf("insufficient funds")
	ErrInsufficientHoldings = fmt.Errorf("insufficient holdings")
	ErrInvalidInstrument    = fmt.Errorf("invalid instrument")
	ErrOrderNotFound        = fmt.Errorf("order not found")
	ErrOrderNotActionable   = fmt.Errorf("order is not actionable")
	ErrQuoteUnavailable     = fmt.Errorf("quote unavailable")
	ErrPortfolioNotFound    = fmt.Errorf("portfolio not found")
)
