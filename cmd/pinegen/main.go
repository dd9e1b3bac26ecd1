package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	backtest "github.com/uljio/stratbench/internal/backtest/engine/engine_v1"
	"github.com/uljio/stratbench/internal/pine"
	"github.com/uljio/stratbench/internal/strategy"
)

// pinegenAction renders one Pine script per strategy. Strategy yaml files in
// the config directory override the default parameters; the file base name
// must match the strategy name (e.g. funding_crossover.yaml).
func pinegenAction(ctx context.Context, cmd *cli.Command) error {
	output := cmd.String("output")
	configDir := cmd.String("config")
	selected := cmd.StringSlice("strategy")

	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	names := strategy.ListStrategies()
	if len(selected) > 0 {
		names = selected
	}

	for _, name := range names {
		configYAML := ""

		if configDir != "" {
			content, err := os.ReadFile(filepath.Join(configDir, name+".yaml"))
			if err == nil {
				configYAML = string(content)
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("failed to read config for %s: %w", name, err)
			}
		}

		script, err := pine.Generate(name, configYAML)
		if err != nil {
			return err
		}

		scriptPath := filepath.Join(output, name+".pine")
		if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", scriptPath, err)
		}

		log.Printf("Generated %s", scriptPath)
	}

	return writeEngineSchema(cmd.String("schema-out"))
}

// writeEngineSchema emits the engine config JSON schema and a sample yaml
// config next to it (unless one already exists).
func writeEngineSchema(dir string) error {
	if dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create schema directory: %w", err)
	}

	config := backtest.EmptyConfig()

	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	schemaName := "backtest-engine-config.json"

	schemaPath := filepath.Join(dir, schemaName)
	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0o644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	log.Printf("Schema generated at %s", schemaPath)

	samplePath := filepath.Join(dir, "backtest.yaml")
	if _, err := os.Stat(samplePath); os.IsNotExist(err) {
		yamlBytes, err := yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal sample config: %w", err)
		}

		yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)

		if err := os.WriteFile(samplePath, yamlBytes, 0o644); err != nil {
			return fmt.Errorf("failed to write sample config: %w", err)
		}

		log.Printf("Sample config generated at %s", samplePath)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "pinegen",
		Usage: "Render the built-in strategies as Pine scripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Output directory for the generated scripts",
				Value:    "pine",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Directory of strategy yaml files overriding the defaults",
				Value:    "config/strategies",
				Required: false,
			},
			&cli.StringSliceFlag{
				Name:     "strategy",
				Aliases:  []string{"s"},
				Usage:    "Strategy to render (repeatable). Defaults to all built-in strategies.",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "schema-out",
				Usage:    "Directory to write the engine config JSON schema and sample yaml",
				Value:    "config",
				Required: false,
			},
		},
		Action: pinegenAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
