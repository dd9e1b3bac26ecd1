package strategy

import (
	"sort"

	"github.com/uljio/stratbench/pkg/errors"
)

// builders maps strategy names to their constructors.
var builders = map[string]func() StrategyRuntime{
	FundingCrossoverName:      NewFundingCrossover,
	ConfluentOversoldName:     NewConfluentOversold,
	OpportunisticMakerName:    NewOpportunisticMaker,
	NicheCostReversalName:     NewNicheCostReversal,
	CorrelativeReversionName:  NewCorrelativeReversion,
	HolisticDecompositionName: NewHolisticDecomposition,
}

// NewStrategy returns a fresh instance of the named strategy.
func NewStrategy(name string) (StrategyRuntime, error) {
	builder, ok := builders[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy: %s", name)
	}

	return builder(), nil
}

// ListStrategies returns the names of all built-in strategies, sorted.
func ListStrategies() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
