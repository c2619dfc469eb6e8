package data

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

type OrderRecord struct {
	gorm.Model
	OrderID     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	AccountID   string     `gorm:"column:account_id;type:text;index;not null"`
	Symbol      string     `gorm:"column:symbol;type:text;not null"`
	Class       string     `gorm:"column:class;type:text;not null"`
	OptionType  *string    `gorm:"column:option_type;type:text"`
	Strike      *float64   `gorm:"column:strike;type:numeric"`
	Expiration  *time.Time `gorm:"column:expiration;type:timestamp"`
	Action      string     `gorm:"column:action;type:text;not null"`
	Quantity    float64    `gorm:"column:quantity;type:numeric;not null"`
	OrderType   string     `gorm:"column:order_type;type:text;not null"`
	LimitPrice  *float64   `gorm:"column:limit_price;type:numeric"`
	StopLoss    *float64   `gorm:"column:stop_loss;type:numeric"`
	TakeProfit  *float64   `gorm:"column:take_profit;type:numeric"`
	Reasoning   string     `gorm:"column:reasoning;type:text"`
	Status      string     `gorm:"column:status;type:text;not null"`
	FillPrice   float64    `gorm:"column:fill_price;type:numeric"`
	FilledAt    *time.Time `gorm:"column:filled_at;type:timestamp"`
	RealizedPnL *float64   `gorm:"column:realized_pnl;type:numeric"`
	ClosedByID  *uuid.UUID `gorm:"column:closed_by;type:uuid"`
	CreatedOn   time.Time  `gorm:"column:created_on;type:timestamp;not null"`
}

type PortfolioRecord struct {
	gorm.Model
	AccountID      string           `gorm:"column:account_id;type:text;uniqueIndex;not null"`
	InitialBalance float64          `gorm:"column:initial_balance;type:numeric;not null"`
	CashBalance    float64          `gorm:"column:cash_balance;type:numeric;not null"`
	CreatedOn      time.Time        `gorm:"column:created_on;type:timestamp;not null"`
	UpdatedOn      time.Time        `gorm:"column:updated_on;type:timestamp;not null"`
	Positions      []PositionRecord `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE"`
}

type PositionRecord struct {
	gorm.Model
	PortfolioID uint       `gorm:"index;not null"`
	ContractKey string     `gorm:"column:contract_key;type:text;not null"`
	Symbol      string     `gorm:"column:symbol;type:text;not null"`
	Class       string     `gorm:"column:class;type:text;not null"`
	OptionType  *string    `gorm:"column:option_type;type:text"`
	Strike      *float64   `gorm:"column:strike;type:numeric"`
	Expiration  *time.Time `gorm:"column:expiration;type:timestamp"`
	Quantity    float64    `gorm:"column:quantity;type:numeric;not null"`
	AvgCost     float64    `gorm:"column:avg_cost;type:numeric;not null"`
	LastPrice   float64    `gorm:"column:last_price;type:numeric;not null"`
}

const (
	classEquity = "equity"
	classOption = "option"
)

func instrumentToColumns(instrument models.Instrument) (class string, optionType *string, strike *float64, expiration *time.Time) {
	class = classEquity

	if option, ok := instrument.(models.Option); ok {
		class = classOption
		typeStr := string(option.Type)
		optionType = &typeStr
		strike = &option.Strike
		exp := option.Expiration
		expiration = &exp
	}

	return
}

func instrumentFromColumns(symbol, class string, optionType *string, strike *float64, expiration *time.Time) (models.Instrument, error) {
	if class == classEquity {
		return models.NewEquity(models.StockSymbol(symbol)), nil
	}

	if optionType == nil || strike == nil || expiration == nil {
		return nil, fmt.Errorf("%w: option row for %s is missing contract fields", models.ErrInvalidInstrument, symbol)
	}

	return models.NewOption(models.StockSymbol(symbol), models.OptionType(*optionType), *strike, *expiration)
}

func toOrderRecord(order *models.Order) *OrderRecord {
	class, optionType, strike, expiration := instrumentToColumns(order.Instrument)

	return &OrderRecord{
		OrderID:     order.ID,
		AccountID:   order.AccountID,
		Symbol:      order.Instrument.GetTicker(),
		Class:       class,
		OptionType:  optionType,
		Strike:      strike,
		Expiration:  expiration,
		Action:      string(order.Action),
		Quantity:    order.Quantity,
		OrderType:   string(order.Type),
		LimitPrice:  order.LimitPrice,
		StopLoss:    order.StopLoss,
		TakeProfit:  order.TakeProfit,
		Reasoning:   order.Reasoning,
		Status:      string(order.Status),
		FillPrice:   order.FillPrice,
		FilledAt:    order.FilledAt,
		RealizedPnL: order.RealizedPnL,
		ClosedByID:  order.ClosedByID,
		CreatedOn:   order.CreatedAt,
	}
}

func (rec *OrderRecord) ToOrder() (*models.Order, error) {
	instrument, err := instrumentFromColumns(rec.Symbol, rec.Class, rec.OptionType, rec.Strike, rec.Expiration)
	if err != nil {
		return nil, fmt.Errorf("order record %d: %w", rec.ID, err)
	}

	return &models.Order{
		ID:          rec.OrderID,
		AccountID:   rec.AccountID,
		Instrument:  instrument,
		Action:      models.OrderAction(rec.Action),
		Quantity:    rec.Quantity,
		Type:        models.OrderType(rec.OrderType),
		LimitPrice:  rec.LimitPrice,
		StopLoss:    rec.StopLoss,
		TakeProfit:  rec.TakeProfit,
		Reasoning:   rec.Reasoning,
		Status:      models.OrderStatus(rec.Status),
		FillPrice:   rec.FillPrice,
		FilledAt:    rec.FilledAt,
		RealizedPnL: rec.RealizedPnL,
		ClosedByID:  rec.ClosedByID,
		CreatedAt:   rec.CreatedOn,
	}, nil
}

func toPortfolioRecord(portfolio *models.Portfolio) *PortfolioRecord {
	rec := &PortfolioRecord{
		AccountID:      portfolio.AccountID,
		InitialBalance: portfolio.InitialBalance,
		CashBalance:    portfolio.CashBalance,
		CreatedOn:      portfolio.CreatedAt,
		UpdatedOn:      portfolio.UpdatedAt,
	}

	for _, position := range portfolio.PositionList() {
		class, optionType, strike, expiration := instrumentToColumns(position.Instrument)

		rec.Positions = append(rec.Positions, PositionRecord{
			ContractKey: position.Instrument.Key(),
			Symbol:      position.Instrument.GetTicker(),
			Class:       class,
			OptionType:  optionType,
			Strike:      strike,
			Expiration:  expiration,
			Quantity:    position.Quantity,
			AvgCost:     position.AvgCost,
			LastPrice:   position.CurrentPrice,
		})
	}

	return rec
}

func (rec *PortfolioRecord) ToPortfolio() (*models.Portfolio, error) {
	portfolio := models.NewPortfolio(rec.AccountID, rec.InitialBalance, rec.CreatedOn)
	portfolio.CashBalance = rec.CashBalance
	portfolio.UpdatedAt = rec.UpdatedOn

	for _, posRec := range rec.Positions {
		instrument, err := instrumentFromColumns(posRec.Symbol, posRec.Class, posRec.OptionType, posRec.Strike, posRec.Expiration)
		if err != nil {
			return nil, fmt.Errorf("position record %d: %w", posRec.ID, err)
		}

		position := models.NewPosition(instrument, posRec.Quantity, posRec.AvgCost)
		position.CurrentPrice = posRec.LastPrice
		portfolio.Positions[instrument.Key()] = position
	}

	return portfolio, nil
}
