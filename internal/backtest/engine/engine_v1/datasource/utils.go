package datasource

import (
	"fmt"
	"path/filepath"
	"strings"
)

func getIntervalMinutes(interval Interval) (int, error) {
	var intervalMinutes int

	switch interval {
	case Interval1m:
		intervalMinutes = 1
	case Interval5m:
		intervalMinutes = 5
	case Interval15m:
		intervalMinutes = 15
	case Interval30m:
		intervalMinutes = 30
	case Interval1h:
		intervalMinutes = 60
	case Interval4h:
		intervalMinutes = 240
	case Interval6h:
		intervalMinutes = 360
	case Interval8h:
		intervalMinutes = 480
	case Interval12h:
		intervalMinutes = 720
	case Interval1d:
		intervalMinutes = 1440
	case Interval1w:
		intervalMinutes = 10080
	default:
		return 0, fmt.Errorf("unsupported interval: %s", interval)
	}

	return intervalMinutes, nil
}

// columnAliases maps normalized header names to their canonical column name.
var columnAliases = map[string]string{
	"time":         "time",
	"timestamp":    "time",
	"date":         "time",
	"datetime":     "time",
	"open_time":    "time",
	"open":         "open",
	"high":         "high",
	"low":          "low",
	"close":        "close",
	"volume":       "volume",
	"vol":          "volume",
	"funding_rate": "funding_rate",
	"fundingrate":  "funding_rate",
	"funding":      "funding_rate",
}

// normalizeColumnName lowercases a raw CSV header and collapses whitespace to underscores.
func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.ReplaceAll(name, " ", "_")

	return name
}

// canonicalColumn resolves a raw CSV header to its canonical column name.
// Returns false for headers that should be dropped, such as unnamed index
// columns written by dataframe exports.
func canonicalColumn(raw string) (string, bool) {
	normalized := normalizeColumnName(raw)
	if normalized == "" || strings.HasPrefix(normalized, "unnamed") {
		return "", false
	}

	canonical, ok := columnAliases[normalized]
	if !ok {
		return "", false
	}

	return canonical, true
}

// symbolFromPath derives the trading symbol from the data file name,
// e.g. "data/BTC-USD.csv" becomes "BTC-USD".
func symbolFromPath(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}
