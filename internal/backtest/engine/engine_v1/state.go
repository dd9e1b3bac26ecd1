package engine

import (
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/uljio/stratbench/internal/logger"
	"github.com/uljio/stratbench/internal/strategy"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
	"go.uber.org/zap"
)

// BacktestState tracks orders, trades and derived positions for one run in an
// in-memory DuckDB database.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open state database", err)
	}

	return &BacktestState{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize creates the tables for tracking orders and trades.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			position_type TEXT,
			quantity DOUBLE,
			price DOUBLE,
			timestamp TIMESTAMP,
			is_completed BOOLEAN,
			reason TEXT,
			message TEXT,
			strategy_name TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create orders table", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			order_id TEXT,
			symbol TEXT,
			side TEXT,
			position_type TEXT,
			quantity DOUBLE,
			price DOUBLE,
			timestamp TIMESTAMP,
			is_completed BOOLEAN,
			reason TEXT,
			message TEXT,
			strategy_name TEXT,
			executed_at TIMESTAMP,
			executed_qty DOUBLE,
			executed_price DOUBLE,
			commission DOUBLE,
			pnl DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create trades table", err)
	}

	return nil
}

// UpdateResult contains the results of processing an order.
type UpdateResult struct {
	Order         types.Order
	Trade         types.Trade
	IsNewPosition bool
}

// closingPnL returns the realized profit of a fill that reduces an open
// position, or zero for fills that open or add to one. Fees are deducted on
// the closing side; the opening fee is already part of the average entry price.
func closingPnL(order types.Order, position types.Position) float64 {
	quantity := decimal.NewFromFloat(order.Quantity)
	price := decimal.NewFromFloat(order.Price)
	fee := decimal.NewFromFloat(order.Fee)

	switch {
	case order.PositionType == types.PositionTypeLong && order.Side == types.PurchaseTypeSell && position.LongQuantity() > 0:
		entry := decimal.NewFromFloat(position.GetAverageLongEntryPrice())
		pnl, _ := quantity.Mul(price.Sub(entry)).Sub(fee).Float64()

		return pnl
	case order.PositionType == types.PositionTypeShort && order.Side == types.PurchaseTypeBuy && position.ShortQuantity() > 0:
		entry := decimal.NewFromFloat(position.GetAverageShortEntryPrice())
		pnl, _ := quantity.Mul(entry.Sub(price)).Sub(fee).Float64()

		return pnl
	default:
		return 0
	}
}

// isOpeningSide reports whether the fill opens or adds to a position.
func isOpeningSide(order types.Order) bool {
	if order.PositionType == types.PositionTypeShort {
		return order.Side == types.PurchaseTypeSell
	}

	return order.Side == types.PurchaseTypeBuy
}

// Update records executed orders and their trades.
func (b *BacktestState) Update(orders []types.Order) ([]UpdateResult, error) {
	results := make([]UpdateResult, 0, len(orders))

	for _, order := range orders {
		orderID := order.OrderID
		if orderID == "" {
			orderID = uuid.NewString()
		}

		currentPosition, err := b.GetPosition(order.Symbol)
		if err != nil {
			return nil, err
		}

		pnl := closingPnL(order, currentPosition)

		tx, err := b.db.Begin()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
		}

		insertOrder := b.sq.
			Insert("orders").
			Columns(
				"order_id", "symbol", "side", "position_type", "quantity", "price",
				"timestamp", "is_completed", "reason", "message", "strategy_name",
			).
			Values(
				orderID, order.Symbol, order.Side, order.PositionType, order.Quantity, order.Price,
				order.Timestamp, order.IsCompleted, order.Reason.Reason, order.Reason.Message,
				order.StrategyName,
			).
			RunWith(tx)

		if _, err = insertOrder.Exec(); err != nil {
			tx.Rollback()

			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert order", err)
		}

		order.OrderID = orderID
		trade := types.Trade{
			Order:         order,
			ExecutedAt:    order.Timestamp,
			ExecutedQty:   order.Quantity,
			ExecutedPrice: order.Price,
			Fee:           order.Fee,
			PnL:           pnl,
		}

		insertTrade := b.sq.
			Insert("trades").
			Columns(
				"order_id", "symbol", "side", "position_type", "quantity", "price",
				"timestamp", "is_completed", "reason", "message", "strategy_name",
				"executed_at", "executed_qty", "executed_price", "commission", "pnl",
			).
			Values(
				orderID, order.Symbol, order.Side, order.PositionType, order.Quantity, order.Price,
				order.Timestamp, order.IsCompleted, order.Reason.Reason, order.Reason.Message,
				order.StrategyName, trade.ExecutedAt, trade.ExecutedQty, trade.ExecutedPrice,
				trade.Fee, trade.PnL,
			).
			RunWith(tx)

		if _, err = insertTrade.Exec(); err != nil {
			tx.Rollback()

			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert trade", err)
		}

		if err = tx.Commit(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit transaction", err)
		}

		results = append(results, UpdateResult{
			Order:         order,
			Trade:         trade,
			IsNewPosition: isOpeningSide(order) && currentPosition.IsFlat(),
		})
	}

	return results, nil
}

const positionAggregates = `
	WITH long_in AS (
		SELECT
			symbol,
			SUM(executed_qty) AS qty,
			SUM(executed_qty * executed_price) AS amount,
			SUM(commission) AS fee,
			MIN(executed_at) AS first_trade_time,
			MAX(strategy_name) AS strategy_name
		FROM trades
		WHERE side = 'BUY' AND position_type = 'LONG'
		GROUP BY symbol
	),
	long_out AS (
		SELECT symbol, SUM(executed_qty) AS qty, SUM(executed_qty * executed_price) AS amount, SUM(commission) AS fee
		FROM trades
		WHERE side = 'SELL' AND position_type = 'LONG'
		GROUP BY symbol
	),
	short_in AS (
		SELECT
			symbol,
			SUM(executed_qty) AS qty,
			SUM(executed_qty * executed_price) AS amount,
			SUM(commission) AS fee,
			MIN(executed_at) AS first_trade_time,
			MAX(strategy_name) AS strategy_name
		FROM trades
		WHERE side = 'SELL' AND position_type = 'SHORT'
		GROUP BY symbol
	),
	short_out AS (
		SELECT symbol, SUM(executed_qty) AS qty, SUM(executed_qty * executed_price) AS amount, SUM(commission) AS fee
		FROM trades
		WHERE side = 'BUY' AND position_type = 'SHORT'
		GROUP BY symbol
	),
	symbols AS (
		SELECT DISTINCT symbol FROM trades
	)
	SELECT
		sym.symbol,
		COALESCE(li.qty, 0), COALESCE(lo.qty, 0), COALESCE(li.amount, 0), COALESCE(lo.amount, 0),
		COALESCE(si.qty, 0), COALESCE(so.qty, 0), COALESCE(si.amount, 0), COALESCE(so.amount, 0),
		COALESCE(li.fee, 0), COALESCE(lo.fee, 0), COALESCE(si.fee, 0), COALESCE(so.fee, 0),
		COALESCE(LEAST(li.first_trade_time, si.first_trade_time), COALESCE(li.first_trade_time, si.first_trade_time, CURRENT_TIMESTAMP)),
		COALESCE(li.strategy_name, si.strategy_name, '')
	FROM symbols sym
	LEFT JOIN long_in li ON li.symbol = sym.symbol
	LEFT JOIN long_out lo ON lo.symbol = sym.symbol
	LEFT JOIN short_in si ON si.symbol = sym.symbol
	LEFT JOIN short_out so ON so.symbol = sym.symbol
`

func scanPosition(scanner interface{ Scan(...interface{}) error }) (types.Position, error) {
	var position types.Position

	err := scanner.Scan(
		&position.Symbol,
		&position.TotalLongInQuantity,
		&position.TotalLongOutQuantity,
		&position.TotalLongInAmount,
		&position.TotalLongOutAmount,
		&position.TotalShortInQuantity,
		&position.TotalShortOutQuantity,
		&position.TotalShortInAmount,
		&position.TotalShortOutAmount,
		&position.TotalLongInFee,
		&position.TotalLongOutFee,
		&position.TotalShortInFee,
		&position.TotalShortOutFee,
		&position.OpenTimestamp,
		&position.StrategyName,
	)

	return position, err
}

// GetPosition derives the current position for a symbol from its trades.
func (b *BacktestState) GetPosition(symbol string) (types.Position, error) {
	row := b.db.QueryRow(positionAggregates+` WHERE sym.symbol = $1`, symbol)

	position, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return types.Position{Symbol: symbol}, nil
	}

	if err != nil {
		return types.Position{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query position", err)
	}

	return position, nil
}

// GetAllPositions returns every non-flat position derived from trades.
func (b *BacktestState) GetAllPositions() ([]types.Position, error) {
	rows, err := b.db.Query(positionAggregates + ` ORDER BY sym.symbol`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query positions", err)
	}
	defer rows.Close()

	var positions []types.Position

	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan position", err)
		}

		if !position.IsFlat() {
			positions = append(positions, position)
		}
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating positions", err)
	}

	return positions, nil
}

// GetAllTrades returns all trades in execution order.
func (b *BacktestState) GetAllTrades() ([]types.Trade, error) {
	selectQuery := b.sq.
		Select(
			"order_id", "symbol", "side", "position_type", "quantity", "price",
			"timestamp", "is_completed", "reason", "message", "strategy_name",
			"executed_at", "executed_qty", "executed_price", "commission", "pnl",
		).
		From("trades").
		OrderBy("executed_at ASC").
		RunWith(b.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var trade types.Trade

		err := rows.Scan(
			&trade.Order.OrderID,
			&trade.Order.Symbol,
			&trade.Order.Side,
			&trade.Order.PositionType,
			&trade.Order.Quantity,
			&trade.Order.Price,
			&trade.Order.Timestamp,
			&trade.Order.IsCompleted,
			&trade.Order.Reason.Reason,
			&trade.Order.Reason.Message,
			&trade.Order.StrategyName,
			&trade.ExecutedAt,
			&trade.ExecutedQty,
			&trade.ExecutedPrice,
			&trade.Fee,
			&trade.PnL,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating trades", err)
	}

	return trades, nil
}

// GetOrderById returns an order by its id, or None when it does not exist.
func (b *BacktestState) GetOrderById(orderID string) (optional.Option[types.Order], error) {
	query := b.sq.
		Select(
			"order_id", "symbol", "side", "position_type", "quantity", "price",
			"timestamp", "is_completed", "reason", "message", "strategy_name",
		).
		From("orders").
		Where(squirrel.Eq{"order_id": orderID}).
		RunWith(b.db)

	var order types.Order

	err := query.QueryRow().Scan(
		&order.OrderID,
		&order.Symbol,
		&order.Side,
		&order.PositionType,
		&order.Quantity,
		&order.Price,
		&order.Timestamp,
		&order.IsCompleted,
		&order.Reason.Reason,
		&order.Reason.Message,
		&order.StrategyName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return optional.None[types.Order](), nil
		}

		return optional.None[types.Order](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to get order by id", err)
	}

	return optional.Some(order), nil
}

// lastTradePrice returns the most recent execution price recorded for a
// symbol. Used to mark positions in symbols other than the current bar's.
func (b *BacktestState) lastTradePrice(symbol string) (float64, error) {
	var price float64

	err := b.sq.
		Select("executed_price").
		From("trades").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("executed_at DESC").
		Limit(1).
		RunWith(b.db).
		QueryRow().
		Scan(&price)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}

		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to get last trade price", err)
	}

	return price, nil
}

// Cleanup drops the run's tables and recreates them.
func (b *BacktestState) Cleanup() error {
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS orders;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop tables", err)
	}

	return b.Initialize()
}

// Close releases the underlying database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}

// Write exports orders and trades as Parquet files into the given directory.
func (b *BacktestState) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestReportError, "failed to create results directory", err)
	}

	tradesPath := filepath.Join(path, "trades.parquet")
	if _, err := b.db.Exec(`COPY trades TO '` + tradesPath + `' (FORMAT PARQUET)`); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestReportError, "failed to export trades", err)
	}

	ordersPath := filepath.Join(path, "orders.parquet")
	if _, err := b.db.Exec(`COPY orders TO '` + ordersPath + `' (FORMAT PARQUET)`); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestReportError, "failed to export orders", err)
	}

	b.logger.Debug("exported backtest results",
		zap.String("trades", tradesPath),
		zap.String("orders", ordersPath),
	)

	return nil
}

// calculateTradeResult aggregates win/loss counts for a symbol. Only closing
// fills carry a realized pnl, so opening fills are excluded from the counts.
func (b *BacktestState) calculateTradeResult(symbol string) (types.TradeResult, error) {
	query := `
		WITH closing_trades AS (
			SELECT pnl
			FROM trades
			WHERE symbol = $1
			  AND ((side = 'SELL' AND position_type = 'LONG') OR (side = 'BUY' AND position_type = 'SHORT'))
		)
		SELECT
			COUNT(*),
			SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END),
			CASE WHEN COUNT(*) > 0 THEN CAST(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END) AS DOUBLE) / COUNT(*) ELSE 0 END,
			COALESCE(CASE WHEN MIN(pnl) < 0 THEN ABS(MIN(pnl)) ELSE 0 END, 0)
		FROM closing_trades
	`

	var (
		result  types.TradeResult
		winning sql.NullInt64
		losing  sql.NullInt64
	)

	err := b.db.QueryRow(query, symbol).Scan(
		&result.NumberOfTrades,
		&winning,
		&losing,
		&result.WinRate,
		&result.MaxDrawdown,
	)
	if err != nil {
		return types.TradeResult{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to calculate trade result", err)
	}

	result.NumberOfWinningTrades = int(winning.Int64)
	result.NumberOfLosingTrades = int(losing.Int64)

	return result, nil
}

// calculateTradeHoldingTime pairs opening and closing fills by time to derive
// holding durations in hours.
func (b *BacktestState) calculateTradeHoldingTime(symbol string) (types.TradeHoldingTime, error) {
	query := `
		WITH opening AS (
			SELECT executed_at
			FROM trades
			WHERE symbol = $1
			  AND ((side = 'BUY' AND position_type = 'LONG') OR (side = 'SELL' AND position_type = 'SHORT'))
		),
		closing AS (
			SELECT executed_at
			FROM trades
			WHERE symbol = $2
			  AND ((side = 'SELL' AND position_type = 'LONG') OR (side = 'BUY' AND position_type = 'SHORT'))
		),
		durations AS (
			SELECT EXTRACT(EPOCH FROM (c.executed_at - o.executed_at)) / 3600 AS duration
			FROM opening o
			JOIN closing c ON c.executed_at > o.executed_at
		)
		SELECT
			COALESCE(MIN(duration), 0),
			COALESCE(MAX(duration), 0),
			COALESCE(AVG(duration), 0)
		FROM durations
	`

	var (
		holdingTime types.TradeHoldingTime
		minDuration float64
		maxDuration float64
		avgDuration float64
	)

	err := b.db.QueryRow(query, symbol, symbol).Scan(&minDuration, &maxDuration, &avgDuration)
	if err != nil {
		return types.TradeHoldingTime{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to calculate holding time", err)
	}

	holdingTime.Min = int(math.Round(minDuration))
	holdingTime.Max = int(math.Round(maxDuration))
	holdingTime.Avg = int(math.Round(avgDuration))

	return holdingTime, nil
}

func (b *BacktestState) calculateTotalFees(symbol string) (float64, error) {
	query := b.sq.
		Select("COALESCE(SUM(commission), 0)").
		From("trades").
		Where(squirrel.Eq{"symbol": symbol}).
		RunWith(b.db)

	var totalFees float64
	if err := query.QueryRow().Scan(&totalFees); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to calculate total fees", err)
	}

	return totalFees, nil
}

// unrealizedPnL values the open position against the last close.
func unrealizedPnL(position types.Position, lastClose float64) float64 {
	closeDec := decimal.NewFromFloat(lastClose)
	total := decimal.Zero

	if longQty := position.LongQuantity(); longQty > 0 {
		entry := decimal.NewFromFloat(position.GetAverageLongEntryPrice())
		total = total.Add(decimal.NewFromFloat(longQty).Mul(closeDec.Sub(entry)))
	}

	if shortQty := position.ShortQuantity(); shortQty > 0 {
		entry := decimal.NewFromFloat(position.GetAverageShortEntryPrice())
		total = total.Add(decimal.NewFromFloat(shortQty).Mul(entry.Sub(closeDec)))
	}

	pnl, _ := total.Float64()

	return pnl
}

// GetStats returns per-symbol statistics for the finished run.
func (b *BacktestState) GetStats(ctx strategy.RuntimeContext) ([]types.TradeStats, error) {
	selectQuery := b.sq.
		Select("DISTINCT symbol").
		From("trades").
		OrderBy("symbol").
		RunWith(b.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to get symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating symbols", err)
	}

	var stats []types.TradeStats

	for _, symbol := range symbols {
		tradeResult, err := b.calculateTradeResult(symbol)
		if err != nil {
			return nil, err
		}

		holdingTime, err := b.calculateTradeHoldingTime(symbol)
		if err != nil {
			return nil, err
		}

		totalFees, err := b.calculateTotalFees(symbol)
		if err != nil {
			return nil, err
		}

		position, err := b.GetPosition(symbol)
		if err != nil {
			return nil, err
		}

		lastData, err := ctx.DataSource.ReadLastData(symbol)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to get last market data for %s", symbol)
		}

		realizedQuery := b.sq.
			Select(
				"COALESCE(SUM(pnl), 0)",
				"COALESCE(MIN(pnl), 0)",
				"COALESCE(MAX(pnl), 0)",
			).
			From("trades").
			Where(squirrel.Eq{"symbol": symbol}).
			RunWith(b.db)

		var realized, maxLoss, maxProfit float64
		if err := realizedQuery.QueryRow().Scan(&realized, &maxLoss, &maxProfit); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to calculate pnl aggregates", err)
		}

		unrealized := unrealizedPnL(position, lastData.Close)

		stats = append(stats, types.TradeStats{
			Timestamp:        time.Now(),
			Symbol:           symbol,
			TradeResult:      tradeResult,
			TotalFees:        totalFees,
			TradeHoldingTime: holdingTime,
			TradePnl: types.TradePnl{
				RealizedPnL:   realized,
				UnrealizedPnL: unrealized,
				TotalPnL:      realized + unrealized,
				MaximumLoss:   maxLoss,
				MaximumProfit: maxProfit,
			},
		})
	}

	return stats, nil
}
