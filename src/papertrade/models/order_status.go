package models

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusActive    OrderStatus = "active"
	OrderStatusClosed    OrderStatus = "closed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether the order can no longer transition. No
// transition ever leaves closed or cancelled.
func (status OrderStatus) IsTerminal() bool {
	return status == OrderStatusClosed || status == OrderStatusCancelled
}

func (status OrderStatus) IsPending() bool {
	return status == OrderStatusPending
}

func (status OrderStatus) IsActive() bool {
	return status == OrderStatusActive
}
