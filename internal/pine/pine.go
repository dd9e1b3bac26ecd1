// Package pine renders the built-in strategies as Pine v5 strategy() scripts
// so the same rules can be loaded on a charting platform. The scripts mirror
// the threshold logic; parameters become input defaults taken from the same
// yaml files the backtest consumes.
package pine

import (
	"bytes"
	"strconv"
	"text/template"

	"github.com/go-playground/validator/v10"
	"github.com/uljio/stratbench/internal/strategy"
	"github.com/uljio/stratbench/pkg/errors"
	"gopkg.in/yaml.v3"
)

var funcs = template.FuncMap{
	// num renders a float without trailing zeros, matching Pine literal style.
	"num": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
	"pct": func(v float64) string {
		return strconv.FormatFloat(v*100, 'f', -1, 64)
	},
}

// renderer parses a strategy's yaml parameters and executes its template.
type renderer func(configYAML string) (string, error)

var renderers = map[string]renderer{
	strategy.FundingCrossoverName: func(configYAML string) (string, error) {
		return render(fundingCrossoverTemplate, configYAML, strategy.DefaultFundingCrossoverConfig())
	},
	strategy.ConfluentOversoldName: func(configYAML string) (string, error) {
		return render(confluentOversoldTemplate, configYAML, strategy.DefaultConfluentOversoldConfig())
	},
	strategy.OpportunisticMakerName: func(configYAML string) (string, error) {
		return render(opportunisticMakerTemplate, configYAML, strategy.DefaultOpportunisticMakerConfig())
	},
	strategy.NicheCostReversalName: func(configYAML string) (string, error) {
		return render(nicheCostReversalTemplate, configYAML, strategy.DefaultNicheCostReversalConfig())
	},
	strategy.CorrelativeReversionName: func(configYAML string) (string, error) {
		return render(correlativeReversionTemplate, configYAML, strategy.DefaultCorrelativeReversionConfig())
	},
	strategy.HolisticDecompositionName: func(configYAML string) (string, error) {
		return render(holisticDecompositionTemplate, configYAML, strategy.DefaultHolisticDecompositionConfig())
	},
}

// Generate renders the named strategy as a Pine script. configYAML overrides
// the strategy's default parameters; pass "" to render the defaults.
func Generate(name string, configYAML string) (string, error) {
	r, ok := renderers[name]
	if !ok {
		return "", errors.Newf(errors.ErrCodeUnknownStrategy, "no pine template for strategy: %s", name)
	}

	return r(configYAML)
}

// GenerateAll renders every built-in strategy with its defaults, keyed by
// strategy name.
func GenerateAll() (map[string]string, error) {
	scripts := make(map[string]string, len(renderers))

	for _, name := range strategy.ListStrategies() {
		script, err := Generate(name, "")
		if err != nil {
			return nil, err
		}

		scripts[name] = script
	}

	return scripts, nil
}

func render[T any](tmplText string, configYAML string, cfg T) (string, error) {
	if configYAML != "" {
		if err := yaml.Unmarshal([]byte(configYAML), &cfg); err != nil {
			return "", errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse strategy config", err)
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return "", errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy config", err)
	}

	tmpl, err := template.New("pine").Funcs(funcs).Parse(tmplText)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to parse pine template", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return "", errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to render pine script", err)
	}

	return buf.String(), nil
}
