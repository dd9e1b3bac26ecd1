package trading

import "github.com/uljio/stratbench/internal/types"

type TradingSystem interface {
	// PlaceOrder places a single order
	PlaceOrder(order types.ExecuteOrder) error
	// PlaceMultipleOrders places multiple orders
	PlaceMultipleOrders(orders []types.ExecuteOrder) error
	// GetPositions returns the current positions
	GetPositions() ([]types.Position, error)
	// GetPosition returns the current position for a symbol
	GetPosition(symbol string) (types.Position, error)
	// ClosePosition closes the open position for a symbol with a market order
	ClosePosition(symbol string, reason string) error
	// CancelOrder cancels an order
	CancelOrder(orderID string) error
	// CancelAllOrders cancels all orders
	CancelAllOrders() error
	// GetOrderStatus returns the status of an order
	GetOrderStatus(orderID string) (types.OrderStatus, error)
	// GetBalance returns the available cash balance
	GetBalance() (float64, error)
	// GetEquity returns cash plus the value of open positions at the last close
	GetEquity() (float64, error)
	// PendingOrderCount returns the number of orders waiting to fill
	PendingOrderCount() (int, error)
	// GetMaxBuyQuantity returns the maximum quantity that can be bought at the
	// given price with the current balance after commission.
	GetMaxBuyQuantity(symbol string, price float64) (float64, error)
}
