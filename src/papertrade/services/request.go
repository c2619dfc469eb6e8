package services

import (
	"fmt"
	"time"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

type PlaceTradeRequest struct {
	AccountID  string             `json:"account_id"`
	Symbol     string             `json:"symbol"`
	Action     models.OrderAction `json:"action"`
	Quantity   float64            `json:"quantity"`
	Type       models.OrderType   `json:"type"`
	LimitPrice *float64           `json:"limit_price,omitempty"`
	StopLoss   *float64           `json:"stop_loss,omitempty"`
	TakeProfit *float64           `json:"take_profit,omitempty"`
	Reasoning  string             `json:"reasoning,omitempty"`

	// option contract fields; all three are required together
	OptionType *models.OptionType `json:"option_type,omitempty"`
	Strike     *float64           `json:"strike,omitempty"`
	Expiration *time.Time         `json:"expiration,omitempty"`
}

func (r *PlaceTradeRequest) Validate() error {
	if r.AccountID == "" {
		return fmt.Errorf("account_id is required")
	}

	if r.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if err := r.Action.Validate(); err != nil {
		return err
	}

	if err := r.Type.Validate(); err != nil {
		return err
	}

	if r.Quantity <= 0 {
		return fmt.Errorf("quantity must be greater than 0")
	}

	if r.Type == models.OrderTypeLimit {
		if r.LimitPrice == nil || *r.LimitPrice <= 0 {
			return fmt.Errorf("limit orders require a positive limit_price")
		}
	}

	if r.OptionType != nil || r.Strike != nil || r.Expiration != nil {
		if r.OptionType == nil || r.Strike == nil || r.Expiration == nil {
			return fmt.Errorf("%w: option orders require option_type, strike and expiration", models.ErrInvalidInstrument)
		}
	}

	return nil
}

// Instrument builds the tagged instrument variant the request describes.
func (r *PlaceTradeRequest) Instrument() (models.Instrument, error) {
	if r.OptionType == nil && r.Strike == nil && r.Expiration == nil {
		return models.NewEquity(models.StockSymbol(r.Symbol)), nil
	}

	if r.OptionType == nil || r.Strike == nil || r.Expiration == nil {
		return nil, fmt.Errorf("%w: option orders require option_type, strike and expiration", models.ErrInvalidInstrument)
	}

	return models.NewOption(models.StockSymbol(r.Symbol), *r.OptionType, *r.Strike, *r.Expiration)
}
