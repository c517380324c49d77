package domain

// OrderType distinguishes how an order is triggered against the market
// price.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// OrderSide indicates whether an order buys or sells shares.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus represents the lifecycle state of an order. An order
// transitions exactly once from pending to one terminal state.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

// Order is the lifecycle entity owned by the order engine until it
// reaches a terminal state, after which it is archived in history and
// never mutated again. Turn counters are used throughout: PlacedAt,
// ExpiresAt, and FilledAt are turn numbers, not wall-clock times.
type Order struct {
	ID             string
	Type           OrderType
	Side           OrderSide
	Ticker         string
	Quantity       int64
	FilledQuantity int64
	LimitPrice     *float64 // required for limit and stop_limit
	StopPrice      *float64 // required for stop and stop_limit
	Status         OrderStatus
	Triggered      bool // stop_limit armed by a stop touch; persists across turns
	PlacedAt       int
	ExpiresAt      int
	FillPrice      *float64
	FilledAt       *int
}

// Terminal reports whether the order has reached a final state.
func (o *Order) Terminal() bool {
	return o.Status != OrderStatusPending
}
