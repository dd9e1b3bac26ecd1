package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	engine "github.com/uljio/stratbench/internal/backtest/engine"
	backtest "github.com/uljio/stratbench/internal/backtest/engine/engine_v1"
	"github.com/uljio/stratbench/internal/backtest/engine/engine_v1/datasource"
	"github.com/uljio/stratbench/internal/logger"
	"github.com/uljio/stratbench/internal/strategy"
)

// backtestAction runs every selected strategy against every strategy config
// and every data file matched by the data glob.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	strategyConfigGlob := cmd.String("strategy-config")
	dataGlob := cmd.String("data")
	output := cmd.String("output")
	selected := cmd.StringSlice("strategy")

	engineConfig, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read engine config: %w", err)
	}

	backtester := backtest.NewBacktestEngineV1()
	if err := backtester.Initialize(string(engineConfig)); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	names := strategy.ListStrategies()
	if len(selected) > 0 {
		for _, name := range selected {
			if !slices.Contains(names, name) {
				return fmt.Errorf("unknown strategy: %s (available: %v)", name, names)
			}
		}

		names = selected
	}

	for _, name := range names {
		strat, err := strategy.NewStrategy(name)
		if err != nil {
			return err
		}

		if err := backtester.LoadStrategy(strat); err != nil {
			return fmt.Errorf("failed to load strategy %s: %w", name, err)
		}
	}

	if err := backtester.SetConfigPath(strategyConfigGlob); err != nil {
		return fmt.Errorf("failed to set strategy config path: %w", err)
	}

	if err := backtester.SetDataPath(dataGlob); err != nil {
		return fmt.Errorf("failed to set data path: %w", err)
	}

	if err := backtester.SetResultsFolder(output); err != nil {
		return fmt.Errorf("failed to set results folder: %w", err)
	}

	l, err := logger.NewLogger()
	if err != nil {
		return err
	}

	source, err := datasource.NewDataSource("", l)
	if err != nil {
		return err
	}

	if err := backtester.SetDataSource(source); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	callbacks := engine.LifecycleCallbacks{
		OnBacktestStart: func(totalStrategies, totalConfigs, totalDataFiles int) error {
			fmt.Printf("Running %d strategies x %d configs x %d data files\n",
				totalStrategies, totalConfigs, totalDataFiles)

			return nil
		},
		OnRunStart: func(runID, strategyName, configName, dataFilePath string, totalDataPoints int) error {
			bar = progressbar.NewOptions(totalDataPoints,
				progressbar.OptionSetDescription(fmt.Sprintf("%s / %s / %s", strategyName, configName, dataFilePath)),
				progressbar.OptionShowCount())

			return nil
		},
		OnProcessData: func(current, total int) error {
			if bar != nil {
				bar.Set(current)
			}

			return nil
		},
		OnRunEnd: func(runID, resultFolderPath string) {
			if bar != nil {
				bar.Finish()
			}

			fmt.Printf("\nResults written to %s\n", resultFolderPath)
		},
	}

	return backtester.Run(ctx, callbacks)
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run the built-in strategies over historical data files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the engine yaml configuration",
				Value:    "config/backtest.yaml",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "strategy-config",
				Aliases:  []string{"C"},
				Usage:    "Glob of strategy yaml configuration files",
				Value:    "config/strategies/*.yaml",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Glob of CSV data files to backtest over",
				Value:    "data/*.csv",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Results output directory",
				Value:    "results",
				Required: false,
			},
			&cli.StringSliceFlag{
				Name:     "strategy",
				Aliases:  []string{"s"},
				Usage:    "Strategy to run (repeatable). Defaults to all built-in strategies.",
				Required: false,
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
