package eventpubsub

const (
	OrderPlacedEvent    = "OrderPlacedEvent"
	OrderFilledEvent    = "OrderFilledEvent"
	OrderClosedEvent    = "OrderClosedEvent"
	StopLossEvent       = "StopLossEvent"
	TakeProfitEvent     = "TakeProfitEvent"
	OptionSettledEvent  = "OptionSettledEvent"
	PortfolioResetEvent = "PortfolioResetEvent"
)
