package engine

import (
	"slices"

	"github.com/google/uuid"
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/uljio/stratbench/internal/trading"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/internal/utils"
	"github.com/uljio/stratbench/pkg/errors"
)

// pendingOrder is an order waiting for a price trigger. Orders sharing a
// non-empty ocoID cancel each other when one of them fills.
type pendingOrder struct {
	types.ExecuteOrder
	ocoID string
}

// BacktestTrading simulates a broker against historical bars. Market orders
// fill at the bar midpoint, limit and stop orders fill when the bar's range
// touches their price. All timestamps come from the current bar.
type BacktestTrading struct {
	state            *BacktestState
	balance          float64
	marketData       types.MarketData
	pending          []pendingOrder
	commission       commission_fee.CommissionFee
	decimalPrecision int
}

func NewBacktestTrading(state *BacktestState, initialBalance float64, commission commission_fee.CommissionFee, decimalPrecision int) *BacktestTrading {
	return &BacktestTrading{
		state:            state,
		balance:          initialBalance,
		commission:       commission,
		decimalPrecision: decimalPrecision,
	}
}

// compile-time check that the simulator satisfies the trading interface.
var _ trading.TradingSystem = (*BacktestTrading)(nil)

// UpdateCurrentMarketData advances the simulation to the given bar and fills
// any pending orders the bar triggers. Stop legs are checked before take
// profit legs so a bar that sweeps both levels realizes the loss.
func (b *BacktestTrading) UpdateCurrentMarketData(marketData types.MarketData) error {
	b.marketData = marketData

	if err := b.fillTriggered(func(p pendingOrder) bool { return p.isStopLeg() }); err != nil {
		return err
	}

	return b.fillTriggered(func(p pendingOrder) bool { return !p.isStopLeg() })
}

// Reset returns the simulator to its initial state for the next run.
func (b *BacktestTrading) Reset(initialBalance float64) {
	b.balance = initialBalance
	b.marketData = types.MarketData{}
	b.pending = nil
}

// PlaceOrder implements trading.TradingSystem.
// Market orders fill immediately at the bar midpoint. Limit orders fill
// immediately when the current bar already touches the limit price, otherwise
// they wait for a later bar. Attached stop loss and take profit legs become
// pending orders once the entry fills, linked so the first to fill cancels
// the other.
func (b *BacktestTrading) PlaceOrder(order types.ExecuteOrder) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	if err := order.Validate(); err != nil {
		return err
	}

	order.Quantity = utils.RoundToDecimalPrecision(order.Quantity, b.decimalPrecision)
	if order.Quantity <= 0 {
		return errors.New(errors.ErrCodeInvalidExecuteOrder, "order quantity rounds to zero at configured precision")
	}

	switch order.OrderType {
	case types.OrderTypeMarket:
		price := b.marketData.AveragePrice()
		if price <= 0 {
			return errors.Newf(errors.ErrCodeMarketDataMissing, "no market data to price order for %s", order.Symbol)
		}

		return b.fill(pendingOrder{ExecuteOrder: order}, price)

	case types.OrderTypeLimit:
		if err := b.checkOpeningPower(order, order.Price); err != nil {
			return err
		}

		p := pendingOrder{ExecuteOrder: order}
		if b.triggered(p) {
			return b.fill(p, order.Price)
		}

		b.pending = append(b.pending, p)

		return nil
	}

	return errors.Newf(errors.ErrCodeInvalidExecuteOrder, "unsupported order type %s", order.OrderType)
}

// PlaceMultipleOrders implements trading.TradingSystem.
func (b *BacktestTrading) PlaceMultipleOrders(orders []types.ExecuteOrder) error {
	for _, order := range orders {
		if err := b.PlaceOrder(order); err != nil {
			return err
		}
	}

	return nil
}

// ClosePosition implements trading.TradingSystem. It cancels the symbol's
// resting exit legs and flattens both directions with market orders.
func (b *BacktestTrading) ClosePosition(symbol string, reason string) error {
	b.pending = slices.DeleteFunc(b.pending, func(p pendingOrder) bool {
		return p.Symbol == symbol && p.ocoID != ""
	})

	position, err := b.state.GetPosition(symbol)
	if err != nil {
		return err
	}

	if position.IsFlat() {
		return nil
	}

	price := b.marketData.AveragePrice()
	if price <= 0 {
		return errors.Newf(errors.ErrCodeMarketDataMissing, "no market data to close position for %s", symbol)
	}

	if qty := position.LongQuantity(); qty > 0 {
		exit := b.exitOrder(symbol, types.PurchaseTypeSell, types.PositionTypeLong, qty, reason, position.StrategyName)
		if err := b.fill(pendingOrder{ExecuteOrder: exit}, price); err != nil {
			return err
		}
	}

	if qty := position.ShortQuantity(); qty > 0 {
		exit := b.exitOrder(symbol, types.PurchaseTypeBuy, types.PositionTypeShort, qty, reason, position.StrategyName)
		if err := b.fill(pendingOrder{ExecuteOrder: exit}, price); err != nil {
			return err
		}
	}

	return nil
}

// CancelOrder implements trading.TradingSystem.
func (b *BacktestTrading) CancelOrder(orderID string) error {
	b.pending = slices.DeleteFunc(b.pending, func(p pendingOrder) bool {
		return p.ID == orderID
	})

	return nil
}

// CancelAllOrders implements trading.TradingSystem.
func (b *BacktestTrading) CancelAllOrders() error {
	b.pending = nil

	return nil
}

// GetOrderStatus implements trading.TradingSystem.
func (b *BacktestTrading) GetOrderStatus(orderID string) (types.OrderStatus, error) {
	for _, p := range b.pending {
		if p.ID == orderID {
			return types.OrderStatusPending, nil
		}
	}

	order, err := b.state.GetOrderById(orderID)
	if err != nil {
		return types.OrderStatusFailed, err
	}

	if order.IsNone() {
		return types.OrderStatusFailed, errors.Newf(errors.ErrCodeOrderFailed, "order %s not found", orderID)
	}

	if order.Unwrap().IsCompleted {
		return types.OrderStatusFilled, nil
	}

	return types.OrderStatusCancelled, nil
}

// GetPosition implements trading.TradingSystem.
func (b *BacktestTrading) GetPosition(symbol string) (types.Position, error) {
	return b.state.GetPosition(symbol)
}

// GetPositions implements trading.TradingSystem.
func (b *BacktestTrading) GetPositions() ([]types.Position, error) {
	return b.state.GetAllPositions()
}

// GetBalance implements trading.TradingSystem.
func (b *BacktestTrading) GetBalance() (float64, error) {
	return b.balance, nil
}

// GetEquity implements trading.TradingSystem. Open positions are marked at
// the current bar's close.
func (b *BacktestTrading) GetEquity() (float64, error) {
	positions, err := b.state.GetAllPositions()
	if err != nil {
		return 0, err
	}

	equity := b.balance

	for _, position := range positions {
		mark := b.marketData.Close
		if position.Symbol != b.marketData.Symbol {
			last, err := b.state.lastTradePrice(position.Symbol)
			if err != nil {
				return 0, err
			}

			mark = last
		}

		equity += position.LongQuantity()*mark - position.ShortQuantity()*mark
	}

	return equity, nil
}

// PendingOrderCount implements trading.TradingSystem.
func (b *BacktestTrading) PendingOrderCount() (int, error) {
	return len(b.pending), nil
}

// GetMaxBuyQuantity implements trading.TradingSystem.
func (b *BacktestTrading) GetMaxBuyQuantity(_ string, price float64) (float64, error) {
	maxQty := utils.CalculateMaxQuantity(b.balance, price, b.commission)

	return utils.RoundToDecimalPrecision(maxQty, b.decimalPrecision), nil
}

// isStopLeg reports whether the pending order is a protective stop. Stops are
// market legs waiting on a trigger price; entries and take profits rest as
// limit orders.
func (p pendingOrder) isStopLeg() bool {
	return p.OrderType == types.OrderTypeMarket
}

// triggered reports whether the current bar's range reaches the order's price.
// Buy limits and long stops trigger from above (low <= price), sell limits and
// short stops trigger from below (high >= price).
func (b *BacktestTrading) triggered(p pendingOrder) bool {
	if p.Symbol != b.marketData.Symbol {
		return false
	}

	switch {
	case p.Side == types.PurchaseTypeBuy && p.OrderType == types.OrderTypeLimit:
		return b.marketData.Low <= p.Price
	case p.Side == types.PurchaseTypeSell && p.OrderType == types.OrderTypeLimit:
		return b.marketData.High >= p.Price
	case p.Side == types.PurchaseTypeSell && p.OrderType == types.OrderTypeMarket:
		return b.marketData.Low <= p.Price
	case p.Side == types.PurchaseTypeBuy && p.OrderType == types.OrderTypeMarket:
		return b.marketData.High >= p.Price
	}

	return false
}

// fillTriggered fills every pending order selected by match that the current
// bar triggers. Filling an order drops its OCO sibling before the sibling is
// evaluated.
func (b *BacktestTrading) fillTriggered(match func(pendingOrder) bool) error {
	for i := 0; i < len(b.pending); {
		p := b.pending[i]
		if !match(p) || !b.triggered(p) {
			i++

			continue
		}

		b.pending = slices.Delete(b.pending, i, i+1)

		if p.ocoID != "" {
			b.pending = slices.DeleteFunc(b.pending, func(other pendingOrder) bool {
				return other.ocoID == p.ocoID && other.ID != p.ID
			})
		}

		if err := b.fill(p, p.Price); err != nil {
			return err
		}

		// Deletions may have shifted later orders into slot i.
		i = 0
	}

	return nil
}

// fill executes the order at the given price, updates the cash balance and
// records the trade. Entry fills arm any attached bracket legs.
func (b *BacktestTrading) fill(p pendingOrder, price float64) error {
	order := p.ExecuteOrder

	quantity := order.Quantity
	if isClosing(order.Side, order.PositionType) {
		held, err := b.heldQuantity(order)
		if err != nil {
			return err
		}

		if held <= 0 {
			return errors.Newf(errors.ErrCodePositionNotFound, "no %s position to close for %s", order.PositionType, order.Symbol)
		}

		if quantity > held {
			quantity = held
		}
	} else if err := b.checkOpeningPower(order, price); err != nil {
		return err
	}

	fee := b.commission.Calculate(quantity, price)
	notional := quantity * price

	switch {
	case order.Side == types.PurchaseTypeBuy:
		b.balance -= notional + fee
	case order.Side == types.PurchaseTypeSell:
		b.balance += notional - fee
	}

	executed := types.Order{
		OrderID:      order.ID,
		Symbol:       order.Symbol,
		Side:         order.Side,
		Quantity:     quantity,
		Price:        price,
		Timestamp:    b.marketData.Time,
		IsCompleted:  true,
		Status:       types.OrderStatusFilled,
		Reason:       order.Reason,
		StrategyName: order.StrategyName,
		Fee:          fee,
		PositionType: order.PositionType,
	}

	if _, err := b.state.Update([]types.Order{executed}); err != nil {
		return err
	}

	if !isClosing(order.Side, order.PositionType) {
		b.armBrackets(order, quantity)
	}

	return nil
}

// armBrackets converts an entry's stop loss and take profit legs into pending
// orders linked by a fresh OCO id.
func (b *BacktestTrading) armBrackets(entry types.ExecuteOrder, quantity float64) {
	if entry.StopLoss.IsNone() && entry.TakeProfit.IsNone() {
		return
	}

	ocoID := uuid.NewString()

	if entry.StopLoss.IsSome() {
		leg := entry.StopLoss.Unwrap()
		b.pending = append(b.pending, pendingOrder{
			ExecuteOrder: b.legOrder(entry, leg, quantity, types.OrderReasonStopLoss),
			ocoID:        ocoID,
		})
	}

	if entry.TakeProfit.IsSome() {
		leg := entry.TakeProfit.Unwrap()
		b.pending = append(b.pending, pendingOrder{
			ExecuteOrder: b.legOrder(entry, leg, quantity, types.OrderReasonTakeProfit),
			ocoID:        ocoID,
		})
	}
}

func (b *BacktestTrading) legOrder(entry types.ExecuteOrder, leg types.ExecuteOrderBracket, quantity float64, reason string) types.ExecuteOrder {
	return types.ExecuteOrder{
		ID:           uuid.NewString(),
		Symbol:       entry.Symbol,
		Side:         leg.Side,
		OrderType:    leg.OrderType,
		Reason:       types.Reason{Reason: reason, Message: reason},
		Price:        leg.Price,
		StrategyName: entry.StrategyName,
		Quantity:     quantity,
		PositionType: entry.PositionType,
	}
}

func (b *BacktestTrading) exitOrder(symbol string, side types.PurchaseType, positionType types.PositionType, quantity float64, reason string, strategyName string) types.ExecuteOrder {
	return types.ExecuteOrder{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		Side:         side,
		OrderType:    types.OrderTypeMarket,
		Reason:       types.Reason{Reason: reason, Message: reason},
		Price:        b.marketData.AveragePrice(),
		StrategyName: strategyName,
		Quantity:     quantity,
		PositionType: positionType,
	}
}

// isClosing reports whether the side reduces the given position direction.
func isClosing(side types.PurchaseType, positionType types.PositionType) bool {
	return (side == types.PurchaseTypeSell && positionType == types.PositionTypeLong) ||
		(side == types.PurchaseTypeBuy && positionType == types.PositionTypeShort)
}

// checkOpeningPower rejects opening orders whose notional exceeds the cash
// balance. Short entries post the full notional as margin.
func (b *BacktestTrading) checkOpeningPower(order types.ExecuteOrder, price float64) error {
	if isClosing(order.Side, order.PositionType) {
		return nil
	}

	cost := order.Quantity*price + b.commission.Calculate(order.Quantity, price)
	if cost > b.balance {
		return errors.Newf(errors.ErrCodeOrderFailed,
			"order cost %.2f exceeds available balance %.2f", cost, b.balance)
	}

	return nil
}

// heldQuantity returns the open quantity in the direction the order closes.
func (b *BacktestTrading) heldQuantity(order types.ExecuteOrder) (float64, error) {
	position, err := b.state.GetPosition(order.Symbol)
	if err != nil {
		return 0, err
	}

	if order.PositionType == types.PositionTypeShort {
		return utils.RoundToDecimalPrecision(position.ShortQuantity(), b.decimalPrecision), nil
	}

	return utils.RoundToDecimalPrecision(position.LongQuantity(), b.decimalPrecision), nil
}
