package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/uljio/stratbench/internal/logger"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
	"go.uber.org/zap"
)

const marketDataColumns = "time, symbol, open, high, low, close, volume, funding_rate"

type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	symbol string
}

// NewDataSource creates a new DuckDB data source instance with the specified database path.
// Pass an empty path for an in-memory database. This is distinct from Initialize()
// which loads market data into the database.
func NewDataSource(path string, logger *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements DataSource. It loads the CSV file at path into a raw
// table, inspects the detected columns, and exposes a canonical market_data
// view with normalized column names. Files exported by different tools vary in
// header casing, extra index columns and whether a funding rate column is
// present; all of that is resolved here so the rest of the engine only ever
// sees the canonical schema.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	escapedPath := strings.ReplaceAll(path, "'", "''")

	// Load the raw CSV as-is. read_csv_auto handles delimiter and type detection.
	query := fmt.Sprintf(`
		CREATE OR REPLACE TABLE market_data_raw AS
		SELECT * FROM read_csv_auto('%s', header=true);
	`, escapedPath)

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, fmt.Sprintf("failed to read csv file %s", path), err)
	}

	rawColumns, err := d.describeRawColumns()
	if err != nil {
		return err
	}

	// Map raw headers to canonical columns. First match wins when a file
	// carries duplicate headers after normalization.
	type rawColumn struct {
		name     string
		dataType string
	}

	canonical := make(map[string]rawColumn)

	for _, col := range rawColumns {
		name, ok := canonicalColumn(col.name)
		if !ok {
			continue
		}

		if _, exists := canonical[name]; !exists {
			canonical[name] = rawColumn{name: col.name, dataType: col.dataType}
		}
	}

	for _, required := range []string{"time", "open", "high", "low", "close", "volume"} {
		if _, ok := canonical[required]; !ok {
			return errors.Newf(errors.ErrCodeMissingColumn, "csv file %s is missing required column %q", path, required)
		}
	}

	timeCol := canonical["time"]
	timeExpr := fmt.Sprintf(`CAST("%s" AS TIMESTAMP)`, timeCol.name)

	// Numeric time columns are treated as unix epoch seconds.
	if isNumericType(timeCol.dataType) {
		timeExpr = fmt.Sprintf(`CAST(to_timestamp(CAST("%s" AS DOUBLE)) AS TIMESTAMP)`, timeCol.name)
	}

	fundingExpr := "CAST(NULL AS DOUBLE)"
	if fundingCol, ok := canonical["funding_rate"]; ok {
		fundingExpr = fmt.Sprintf(`CAST("%s" AS DOUBLE)`, fundingCol.name)
	}

	d.symbol = symbolFromPath(path)
	escapedSymbol := strings.ReplaceAll(d.symbol, "'", "''")

	viewQuery := fmt.Sprintf(`
		CREATE OR REPLACE VIEW market_data AS
		SELECT
			%s AS time,
			'%s' AS symbol,
			CAST("%s" AS DOUBLE) AS open,
			CAST("%s" AS DOUBLE) AS high,
			CAST("%s" AS DOUBLE) AS low,
			CAST("%s" AS DOUBLE) AS close,
			CAST("%s" AS DOUBLE) AS volume,
			%s AS funding_rate
		FROM market_data_raw
		WHERE %s IS NOT NULL;
	`, timeExpr, escapedSymbol,
		canonical["open"].name, canonical["high"].name, canonical["low"].name,
		canonical["close"].name, canonical["volume"].name,
		fundingExpr, timeExpr)

	if _, err := d.db.Exec(viewQuery); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create market data view", err)
	}

	return nil
}

type describedColumn struct {
	name     string
	dataType string
}

func (d *DuckDBDataSource) describeRawColumns() ([]describedColumn, error) {
	rows, err := d.db.Query(`
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = 'market_data_raw'
		ORDER BY ordinal_position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to describe raw columns: %w", err)
	}
	defer rows.Close()

	var columns []describedColumn

	for rows.Next() {
		var col describedColumn
		if err := rows.Scan(&col.name, &col.dataType); err != nil {
			return nil, fmt.Errorf("failed to scan column description: %w", err)
		}

		columns = append(columns, col)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column descriptions: %w", err)
	}

	return columns, nil
}

func isNumericType(dataType string) bool {
	upper := strings.ToUpper(dataType)

	for _, numeric := range []string{"INT", "DOUBLE", "FLOAT", "DECIMAL", "NUMERIC"} {
		if strings.Contains(upper, numeric) {
			return true
		}
	}

	return false
}

// scanMarketData scans one canonical market_data row.
func scanMarketData(scanner interface{ Scan(...interface{}) error }) (types.MarketData, error) {
	var (
		timestamp                      time.Time
		open, high, low, close, volume float64
		symbol                         string
		fundingRate                    sql.NullFloat64
	)

	err := scanner.Scan(&timestamp, &symbol, &open, &high, &low, &close, &volume, &fundingRate)
	if err != nil {
		return types.MarketData{}, err
	}

	data := types.MarketData{
		Symbol: symbol,
		Time:   timestamp,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}

	if fundingRate.Valid {
		data.FundingRate = optional.Some(fundingRate.Float64)
	}

	return data, nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	var count int

	query := "SELECT COUNT(*) FROM market_data"

	var params []interface{}

	paramCount := 0

	if start.IsSome() {
		paramCount++
		query += fmt.Sprintf(" WHERE time >= $%d", paramCount)
		params = append(params, start.Unwrap())
	}

	if end.IsSome() {
		paramCount++
		if paramCount == 1 {
			query += " WHERE"
		} else {
			query += " AND"
		}

		query += fmt.Sprintf(" time <= $%d", paramCount)

		params = append(params, end.Unwrap())
	}

	err := d.db.QueryRow(query, params...).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ReadAll implements DataSource. Rows are yielded in chronological order.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		d.logger.Debug("Reading all data from DuckDB")

		query := fmt.Sprintf("SELECT %s FROM market_data", marketDataColumns)

		var conditions []string

		var params []interface{}

		paramCount := 0

		if start.IsSome() {
			paramCount++
			conditions = append(conditions, fmt.Sprintf("time >= $%d", paramCount))
			params = append(params, start.Unwrap())
		}

		if end.IsSome() {
			paramCount++
			conditions = append(conditions, fmt.Sprintf("time <= $%d", paramCount))
			params = append(params, end.Unwrap())
		}

		if len(conditions) > 0 {
			query += " WHERE " + strings.Join(conditions, " AND ")
		}

		query += " ORDER BY time ASC"

		rows, err := d.db.Query(query, params...)
		if err != nil {
			yield(types.MarketData{}, err)

			return
		}
		defer rows.Close()

		for rows.Next() {
			data, err := scanMarketData(rows)
			if err != nil {
				yield(types.MarketData{}, err)

				return
			}

			if !yield(data, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.MarketData{}, err)
		}
	}
}

// GetRange implements DataSource. When an interval is provided the data is
// resampled into OHLCV buckets of that width.
func (d *DuckDBDataSource) GetRange(start time.Time, end time.Time, interval optional.Option[Interval]) ([]types.MarketData, error) {
	var intervalMinutes optional.Option[int] = optional.None[int]()

	if interval.IsSome() {
		minutes, err := getIntervalMinutes(interval.Unwrap())
		if err != nil {
			return nil, err
		}

		intervalMinutes = optional.Some(minutes)
	}

	query, args, err := d.buildGetRangeQuery(start, end, intervalMinutes)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query market data: %w", err)
	}
	defer rows.Close()

	result := make([]types.MarketData, 0, 1000)

	for rows.Next() {
		data, err := scanMarketData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		result = append(result, data)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// ExecuteSQL implements DataSource.
func (d *DuckDBDataSource) ExecuteSQL(query string, params ...interface{}) ([]SQLResult, error) {
	d.logger.Debug("Executing SQL query", zap.String("query", query))

	rows, err := d.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := make([]SQLResult, 0, 1000)

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))

		for i := range values {
			valuePtrs[i] = &values[i]
		}

		err := rows.Scan(valuePtrs...)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]interface{})
		for i, col := range columns {
			rowMap[col] = values[i]
		}

		result = append(result, SQLResult{Values: rowMap})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// ReadLastData implements DataSource.
func (d *DuckDBDataSource) ReadLastData(symbol string) (types.MarketData, error) {
	return d.readEdgeData(symbol, "DESC")
}

// ReadFirstData implements DataSource.
func (d *DuckDBDataSource) ReadFirstData(symbol string) (types.MarketData, error) {
	return d.readEdgeData(symbol, "ASC")
}

func (d *DuckDBDataSource) readEdgeData(symbol string, direction string) (types.MarketData, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM market_data
		WHERE symbol = $1
		ORDER BY time %s
		LIMIT 1
	`, marketDataColumns, direction)

	data, err := scanMarketData(d.db.QueryRow(query, symbol))
	if err != nil {
		if err == sql.ErrNoRows {
			return types.MarketData{}, errors.Newf(errors.ErrCodeDataNotFound, "no data found for symbol: %s", symbol)
		}

		return types.MarketData{}, fmt.Errorf("failed to scan row: %w", err)
	}

	return data, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}

// GetMarketData implements DataSource.
func (d *DuckDBDataSource) GetMarketData(symbol string, timestamp time.Time) (types.MarketData, error) {
	query, args, err := d.sq.
		Select("time", "symbol", "open", "high", "low", "close", "volume", "funding_rate").
		From("market_data").
		Where(squirrel.And{
			squirrel.Eq{"symbol": symbol},
			squirrel.Eq{"time": timestamp},
		}).
		ToSql()
	if err != nil {
		return types.MarketData{}, fmt.Errorf("failed to build query: %w", err)
	}

	data, err := scanMarketData(d.db.QueryRow(query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return types.MarketData{}, errors.Newf(errors.ErrCodeDataNotFound, "no market data found for symbol %s at time %v", symbol, timestamp)
		}

		return types.MarketData{}, fmt.Errorf("failed to get market data: %w", err)
	}

	return data, nil
}

// GetPreviousNumberOfDataPoints implements DataSource.
func (d *DuckDBDataSource) GetPreviousNumberOfDataPoints(end time.Time, symbol string, count int) ([]types.MarketData, error) {
	query, args, err := d.sq.
		Select("time", "symbol", "open", "high", "low", "close", "volume", "funding_rate").
		From("market_data").
		Where(squirrel.And{
			squirrel.Eq{"symbol": symbol},
			squirrel.LtOrEq{"time": end},
		}).
		OrderBy("time DESC").
		Limit(uint64(count)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query market data: %w", err)
	}
	defer rows.Close()

	result := make([]types.MarketData, 0, count)

	for rows.Next() {
		data, err := scanMarketData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		result = append(result, data)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	// Reverse the slice to get chronological order (oldest to newest)
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	if len(result) < count {
		return result, errors.NewInsufficientDataErrorf(count, len(result), symbol, "insufficient data points for symbol %s: requested %d, got %d", symbol, count, len(result))
	}

	return result, nil
}

// GetAllSymbols returns all distinct symbols from the market data.
func (d *DuckDBDataSource) GetAllSymbols() ([]string, error) {
	rows, err := d.db.Query("SELECT DISTINCT symbol FROM market_data ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to get symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}

		symbols = append(symbols, symbol)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// buildGetRangeQuery constructs the SQL query for GetRange.
func (d *DuckDBDataSource) buildGetRangeQuery(start time.Time, end time.Time, intervalMinutes optional.Option[int]) (string, []interface{}, error) {
	// Without an interval a plain squirrel query is enough
	if !intervalMinutes.IsSome() {
		query, args, err := d.sq.
			Select("time", "symbol", "open", "high", "low", "close", "volume", "funding_rate").
			From("market_data").
			Where(squirrel.And{
				squirrel.GtOrEq{"time": start},
				squirrel.LtOrEq{"time": end},
			}).
			OrderBy("time ASC").
			ToSql()
		if err != nil {
			return "", nil, fmt.Errorf("failed to build query: %w", err)
		}

		return query, args, nil
	}

	// Resampling needs window functions, which squirrel does not support
	minutes := intervalMinutes.Unwrap()
	query := fmt.Sprintf(`
		WITH time_buckets AS MATERIALIZED (
			SELECT
				time_bucket(INTERVAL '%d minutes', time) as bucket_time,
				symbol,
				FIRST_VALUE(open) OVER (PARTITION BY time_bucket(INTERVAL '%d minutes', time), symbol ORDER BY time) as open,
				MAX(high) OVER (PARTITION BY time_bucket(INTERVAL '%d minutes', time), symbol) as high,
				MIN(low) OVER (PARTITION BY time_bucket(INTERVAL '%d minutes', time), symbol) as low,
				LAST_VALUE(close) OVER (PARTITION BY time_bucket(INTERVAL '%d minutes', time), symbol ORDER BY time ROWS BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING) as close,
				SUM(volume) OVER (PARTITION BY time_bucket(INTERVAL '%d minutes', time), symbol) as volume,
				LAST_VALUE(funding_rate) OVER (PARTITION BY time_bucket(INTERVAL '%d minutes', time), symbol ORDER BY time ROWS BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING) as funding_rate
			FROM market_data
			WHERE time >= $1 AND time <= $2
		)
		SELECT DISTINCT
			bucket_time as time,
			symbol,
			open,
			high,
			low,
			close,
			volume,
			funding_rate
		FROM time_buckets
		ORDER BY bucket_time ASC
	`, minutes, minutes, minutes, minutes, minutes, minutes, minutes)

	return query, []interface{}{start, end}, nil
}
