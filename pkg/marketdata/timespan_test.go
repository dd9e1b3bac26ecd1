package marketdata

import (
	"testing"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/assert"
)

func TestTimespanMultiplier(t *testing.T) {
	assert.Equal(t, 1, TimespanOneMinute.Multiplier())
	assert.Equal(t, 15, TimespanFifteenMinutes.Multiplier())
	assert.Equal(t, 4, TimespanFourHours.Multiplier())
	assert.Equal(t, 3, TimespanThreeDays.Multiplier())
	assert.Equal(t, 1, TimespanOneMonth.Multiplier())
}

func TestTimespanTimespan(t *testing.T) {
	assert.Equal(t, models.Second, TimespanOneSecond.Timespan())
	assert.Equal(t, models.Minute, TimespanThirtyMinutes.Timespan())
	assert.Equal(t, models.Hour, TimespanEightHours.Timespan())
	assert.Equal(t, models.Day, TimespanThreeDays.Timespan())
	assert.Equal(t, models.Week, TimespanOneWeek.Timespan())
	assert.Equal(t, models.Month, TimespanOneMonth.Timespan())
}

func TestTimespanIsValid(t *testing.T) {
	assert.True(t, TimespanOneHour.IsValid())
	assert.True(t, TimespanOneMonth.IsValid())
	assert.False(t, Timespan("7m").IsValid())
	assert.False(t, Timespan("").IsValid())
}
