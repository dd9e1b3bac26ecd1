package engine

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/uljio/stratbench/internal/logger"
	"github.com/uljio/stratbench/internal/marker"
	"github.com/uljio/stratbench/internal/types"
	"github.com/uljio/stratbench/pkg/errors"
	"go.uber.org/zap"
)

// BacktestMarker records strategy signals against the bars that produced
// them, in an in-memory DuckDB table exported alongside the run's results.
type BacktestMarker struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

var _ marker.Marker = (*BacktestMarker)(nil)

func NewBacktestMarker(logger *logger.Logger) (*BacktestMarker, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open marker database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to connect to marker database", err)
	}

	m := &BacktestMarker{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}

	if err := m.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return m, nil
}

func (m *BacktestMarker) initialize() error {
	if _, err := m.db.Exec(`CREATE SEQUENCE IF NOT EXISTS mark_id_seq`); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create mark sequence", err)
	}

	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS marks (
			id INTEGER PRIMARY KEY,
			market_data_id TEXT,
			symbol TEXT,
			time TIMESTAMP,
			signal_type TEXT,
			signal_name TEXT,
			title TEXT,
			message TEXT,
			category TEXT,
			color TEXT,
			shape TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create marks table", err)
	}

	return nil
}

// Mark implements marker.Marker. The signal type picks the mark's color so
// entries and exits are distinguishable on a chart.
func (m *BacktestMarker) Mark(marketData types.MarketData, signal types.Signal, reason string) error {
	var nextID int
	if err := m.db.QueryRow("SELECT nextval('mark_id_seq')").Scan(&nextID); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to get next mark id", err)
	}

	_, err := m.sq.
		Insert("marks").
		Columns(
			"id", "market_data_id", "symbol", "time", "signal_type",
			"signal_name", "title", "message", "category", "color", "shape",
		).
		Values(
			nextID, marketData.Id, marketData.Symbol, marketData.Time, string(signal.Type),
			signal.Name, signal.Name, reason, string(signal.Type),
			string(signalColor(signal.Type)), string(types.MarkShapeCircle),
		).
		RunWith(m.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert mark", err)
	}

	return nil
}

// GetMarkers implements marker.Marker.
func (m *BacktestMarker) GetMarkers() ([]types.Mark, error) {
	rows, err := m.sq.
		Select(
			"market_data_id", "symbol", "time", "signal_type",
			"signal_name", "title", "message", "category", "color", "shape",
		).
		From("marks").
		OrderBy("time ASC").
		RunWith(m.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query marks", err)
	}
	defer rows.Close()

	var marks []types.Mark

	for rows.Next() {
		var (
			mark       types.Mark
			signal     types.Signal
			signalType string
			color      string
			shape      string
		)

		err := rows.Scan(
			&mark.MarketDataId,
			&signal.Symbol,
			&signal.Time,
			&signalType,
			&signal.Name,
			&mark.Title,
			&mark.Message,
			&mark.Category,
			&color,
			&shape,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan mark", err)
		}

		signal.Type = types.SignalType(signalType)
		mark.Color = types.MarkColor(color)
		mark.Shape = types.MarkShape(shape)
		mark.Signal = optional.Some(signal)

		marks = append(marks, mark)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating marks", err)
	}

	return marks, nil
}

// Write exports the marks as a Parquet file into the given directory.
func (m *BacktestMarker) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestReportError, "failed to create results directory", err)
	}

	marksPath := filepath.Join(path, "marks.parquet")
	if _, err := m.db.Exec(`COPY marks TO '` + marksPath + `' (FORMAT PARQUET)`); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestReportError, "failed to export marks", err)
	}

	m.logger.Debug("exported marks", zap.String("marks", marksPath))

	return nil
}

// Cleanup drops and recreates the marks table for the next run.
func (m *BacktestMarker) Cleanup() error {
	_, err := m.db.Exec(`
		DROP TABLE IF EXISTS marks;
		DROP SEQUENCE IF EXISTS mark_id_seq;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop marks table", err)
	}

	return m.initialize()
}

// Close releases the underlying database.
func (m *BacktestMarker) Close() error {
	if m == nil || m.db == nil {
		return nil
	}

	return m.db.Close()
}

func signalColor(t types.SignalType) types.MarkColor {
	switch t {
	case types.SignalTypeBuyLong, types.SignalTypeBuyShort:
		return types.MarkColorGreen
	case types.SignalTypeSellLong, types.SignalTypeSellShort:
		return types.MarkColorRed
	case types.SignalTypeClosePosition:
		return types.MarkColorOrange
	default:
		return types.MarkColorBlue
	}
}
