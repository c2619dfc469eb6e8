package eventpubsub

import (
	"time"

	"github.com/google/uuid"
)

// OrderEvent is published on every order lifecycle transition. Payloads are
// small value copies so subscribers never race with the engine's state.
type OrderEvent struct {
	Topic       string    `json:"topic"`
	AccountID   string    `json:"account_id"`
	OrderID     uuid.UUID `json:"order_id"`
	Symbol      string    `json:"symbol"`
	ContractKey string    `json:"contract_key"`
	Price       float64   `json:"price"`
	Quantity    float64   `json:"quantity"`
	Note        string    `json:"note,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
