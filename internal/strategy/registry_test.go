package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uljio/stratbench/pkg/errors"
)

func TestNewStrategy(t *testing.T) {
	for _, name := range ListStrategies() {
		runtime, err := NewStrategy(name)
		assert.NoError(t, err)
		assert.Equal(t, name, runtime.Name())
	}
}

func TestNewStrategyUnknown(t *testing.T) {
	_, err := NewStrategy("no_such_strategy")
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownStrategy))
}

func TestListStrategies(t *testing.T) {
	names := ListStrategies()
	assert.Equal(t, []string{
		ConfluentOversoldName,
		CorrelativeReversionName,
		FundingCrossoverName,
		HolisticDecompositionName,
		NicheCostReversalName,
		OpportunisticMakerName,
	}, names)
}

func TestConfigSchemas(t *testing.T) {
	for _, name := range ListStrategies() {
		runtime, err := NewStrategy(name)
		assert.NoError(t, err)

		schema, err := runtime.GetConfigSchema()
		assert.NoError(t, err)
		assert.Contains(t, schema, "properties")
	}
}

func TestInitializeRejectsBadYaml(t *testing.T) {
	for _, name := range ListStrategies() {
		runtime, err := NewStrategy(name)
		assert.NoError(t, err)

		err = runtime.Initialize(":\n  not yaml")
		assert.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeStrategyConfigError))
	}
}
