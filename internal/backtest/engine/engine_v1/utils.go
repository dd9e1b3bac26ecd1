package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/uljio/stratbench/internal/strategy"
)

// getResultFolder builds the per-run output directory as
// results/<strategy>/<config>/[<time range>/]<data file>.
func getResultFolder(configName string, dataPath string, b *BacktestEngineV1, strat strategy.StrategyRuntime) string {
	strategyFolder := filepath.Join(b.resultsFolder, strat.Name())
	configFolder := filepath.Join(strategyFolder, strings.TrimSuffix(filepath.Base(configName), filepath.Ext(configName)))

	dataFolder := configFolder

	if b.config.StartTime.IsSome() || b.config.EndTime.IsSome() {
		startTimeStr := "all"
		endTimeStr := "all"

		if b.config.StartTime.IsSome() {
			startTimeStr = b.config.StartTime.Unwrap().Format("20060102")
		}

		if b.config.EndTime.IsSome() {
			endTimeStr = b.config.EndTime.Unwrap().Format("20060102")
		}

		dataFolder = filepath.Join(configFolder, fmt.Sprintf("%s_%s", startTimeStr, endTimeStr))
	}

	dataFileName := strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath))

	return filepath.Join(dataFolder, dataFileName)
}
