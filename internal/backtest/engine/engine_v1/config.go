package engine

import (
	"encoding/json"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/uljio/stratbench/internal/version"
)

// BacktestEngineV1Config holds the engine level settings for a backtest run.
type BacktestEngineV1Config struct {
	// InitialCapital is the cash balance each run starts with
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial capital,default=10000"`
	// Broker selects the commission model
	Broker commission_fee.Broker `yaml:"broker" json:"broker" jsonschema:"title=Broker commission model,enum=zero_commission,enum=percentage,default=percentage"`
	// CommissionRate is the fee fraction of notional for the percentage broker.
	// Zero falls back to the broker default.
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate" jsonschema:"title=Commission rate,default=0.002"`
	// DecimalPrecision is the number of decimals order quantities are rounded to
	DecimalPrecision int `yaml:"decimal_precision" json:"decimal_precision" jsonschema:"title=Quantity decimal precision,default=1"`
	// StartTime limits the backtest to bars at or after this time
	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time,omitempty" jsonschema:"title=Start time"`
	// EndTime limits the backtest to bars at or before this time
	EndTime optional.Option[time.Time] `yaml:"end_time" json:"end_time,omitempty" jsonschema:"title=End time"`
	// SchemaVersion pins the engine version the config was written for.
	// Empty skips the compatibility check.
	SchemaVersion string `yaml:"schema_version" json:"schema_version,omitempty" jsonschema:"title=Config schema version"`
}

// EmptyConfig returns a config with the engine defaults.
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital:   0,
		Broker:           commission_fee.BrokerPercentage,
		CommissionRate:   0,
		DecimalPrecision: 1,
		StartTime:        optional.None[time.Time](),
		EndTime:          optional.None[time.Time](),
	}
}

// TestConfig returns a config for tests with a fixed time range and broker.
func TestConfig(startTime time.Time, endTime time.Time, broker commission_fee.Broker) BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital:   10000,
		Broker:           broker,
		CommissionRate:   0,
		DecimalPrecision: 1,
		StartTime:        optional.Some(startTime),
		EndTime:          optional.Some(endTime),
	}
}

// Validate checks the config against the running engine version.
func (c BacktestEngineV1Config) Validate() error {
	if c.SchemaVersion == "" {
		return nil
	}

	return version.CheckVersionCompatibility(version.GetVersion(), c.SchemaVersion)
}

// GenerateSchemaJSON returns the JSON schema of the engine configuration.
func (c BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(c)

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
