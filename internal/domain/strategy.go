package domain

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Indicator names understood by the backend.
const (
	IndicatorRSI  = "RSI"
	IndicatorSMA  = "SMA"
	IndicatorMACD = "MACD"
)

// IndicatorNames lists the selectable indicators.
func IndicatorNames() []string {
	return []string{IndicatorRSI, IndicatorSMA, IndicatorMACD}
}

// Timeframe candlestick interval for historical data.
type Timeframe string

const (
	Timeframe1m Timeframe = "1m"
	Timeframe5m Timeframe = "5m"
	Timeframe1h Timeframe = "1h"
	Timeframe1d Timeframe = "1d"
)

// Timeframes lists the supported intervals.
func Timeframes() []Timeframe {
	return []Timeframe{Timeframe1m, Timeframe5m, Timeframe1h, Timeframe1d}
}

// IsValid reports whether the timeframe is one of the supported intervals.
func (t Timeframe) IsValid() bool {
	switch t {
	case Timeframe1m, Timeframe5m, Timeframe1h, Timeframe1d:
		return true
	}
	return false
}

// Thresholds upper and lower bands an indicator is compared against.
// Their semantics are indicator-specific and owned by the backend.
type Thresholds struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// MarshalJSON renders cleared threshold fields as null. encoding/json
// refuses NaN, and the backend already accepts null for unset bands.
func (t Thresholds) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"upper": nullableNumber(t.Upper),
		"lower": nullableNumber(t.Lower),
	})
}

// IndicatorConfig one indicator entry of a strategy. Options is open-keyed:
// the backend discovers parameters such as "period" from the map.
type IndicatorConfig struct {
	Name       string             `json:"name"`
	Options    map[string]float64 `json:"options"`
	Thresholds Thresholds         `json:"thresholds"`
}

// MarshalJSON renders cleared option values as null, same as Thresholds.
func (c IndicatorConfig) MarshalJSON() ([]byte, error) {
	options := make(map[string]any, len(c.Options))
	for k, v := range c.Options {
		options[k] = nullableNumber(v)
	}
	return json.Marshal(struct {
		Name       string         `json:"name"`
		Options    map[string]any `json:"options"`
		Thresholds Thresholds     `json:"thresholds"`
	}{c.Name, options, c.Thresholds})
}

// NewIndicatorConfig returns a fresh unnamed indicator with empty options
// and zeroed thresholds.
func NewIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{Options: make(map[string]float64)}
}

// Clone returns a deep copy.
func (c IndicatorConfig) Clone() IndicatorConfig {
	out := c
	out.Options = make(map[string]float64, len(c.Options))
	for k, v := range c.Options {
		out.Options[k] = v
	}
	return out
}

// HistoricalData window of candles the backend feeds into the indicators.
type HistoricalData struct {
	Timeframe  Timeframe `json:"timeframe"`
	DataPoints int       `json:"dataPoints"`
}

// StrategyConfig full description of an automated trading policy. It is
// assembled by the composer and submitted to the backend as a start request.
// A running strategy is identified by its base asset.
type StrategyConfig struct {
	BaseAsset      string            `json:"baseAsset"`
	QuoteAsset     string            `json:"quoteAsset"`
	Quantity       float64           `json:"quantity"`
	Indicators     []IndicatorConfig `json:"indicators"`
	HistoricalData HistoricalData    `json:"historicalData"`
}

// Clone returns a deep copy of the config.
func (s StrategyConfig) Clone() StrategyConfig {
	out := s
	out.Indicators = make([]IndicatorConfig, len(s.Indicators))
	for i, ind := range s.Indicators {
		out.Indicators[i] = ind.Clone()
	}
	return out
}

// Validate checks the config is sendable. The backend stays authoritative
// for everything exchange-specific (lot size, tick size, threshold bands);
// this only rejects drafts that cannot mean anything.
func (s StrategyConfig) Validate() error {
	if s.BaseAsset == "" || s.QuoteAsset == "" {
		return errors.New("base and quote assets must be set")
	}
	if s.BaseAsset == s.QuoteAsset {
		return errors.New("base and quote assets must differ")
	}
	if !(s.Quantity > 0) { // rejects zero, negatives and NaN
		return errors.New("quantity must be positive")
	}
	if len(s.Indicators) == 0 {
		return errors.New("at least one indicator is required")
	}
	for i, ind := range s.Indicators {
		if ind.Name == "" {
			return errors.Errorf("indicator %d has no name", i+1)
		}
	}
	if !s.HistoricalData.Timeframe.IsValid() {
		return errors.Errorf("unsupported timeframe %q", s.HistoricalData.Timeframe)
	}
	if s.HistoricalData.DataPoints <= 0 {
		return errors.New("data points must be positive")
	}
	return nil
}

// FormatNumber renders a numeric form field. NaN marks a cleared input and
// renders as the empty string, so clearing a field round-trips.
func FormatNumber(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// nullableNumber maps a cleared (NaN) field to JSON null.
func nullableNumber(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
