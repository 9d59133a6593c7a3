// Package composer assembles automated trading strategy configurations and
// drives their start/stop lifecycle against the backend.
package composer

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/martictl/internal/domain"
	"go.uber.org/zap"
)

// StrategyBackend starts and stops strategies on the panel backend.
type StrategyBackend interface {
	SubmitStrategy(ctx context.Context, cfg domain.StrategyConfig) error
	StopStrategy(ctx context.Context, baseAsset string) error
}

// Composer holds the strategy draft for the session. There is no running
// state on this side: once submitted, the strategy lives on the backend and
// is addressed by its base asset.
type Composer struct {
	mu      sync.Mutex
	backend StrategyBackend
	logger  *zap.Logger
	draft   domain.StrategyConfig
}

// New creates a composer with the default draft: BTC/USDT, quantity 0.01,
// no indicators, one hour candles, 100 data points.
func New(backend StrategyBackend, logger *zap.Logger) *Composer {
	return &Composer{
		backend: backend,
		logger:  logger,
		draft: domain.StrategyConfig{
			BaseAsset:  "BTC",
			QuoteAsset: "USDT",
			Quantity:   0.01,
			HistoricalData: domain.HistoricalData{
				Timeframe:  domain.Timeframe1h,
				DataPoints: 100,
			},
		},
	}
}

// Draft returns a deep copy of the current draft.
func (c *Composer) Draft() domain.StrategyConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// AddIndicator appends a fresh unnamed indicator.
func (c *Composer) AddIndicator() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Indicators = append(c.draft.Indicators, domain.NewIndicatorConfig())
}

// RemoveIndicator removes the indicator at the given position.
func (c *Composer) RemoveIndicator(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.draft.Indicators) {
		return errors.Errorf("no indicator at position %d", index)
	}
	c.draft.Indicators = append(c.draft.Indicators[:index], c.draft.Indicators[index+1:]...)
	return nil
}

// Apply writes one form field into the draft. Paths:
//
//	baseAsset, quoteAsset            string
//	quantity                         float
//	timeframe                        string, must be a supported interval
//	dataPoints                       integer
//	indicators.<i>.name              string
//	indicators.<i>.upper|lower       float, into thresholds
//	indicators.<i>.<anything else>   float, into options (e.g. period)
//
// Cleared numeric inputs are stored as NaN and render back as empty, so
// clearing a field round-trips.
func (c *Composer) Apply(path, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	parts := strings.Split(path, ".")
	if parts[0] == "indicators" {
		if len(parts) != 3 {
			return errors.Errorf("invalid indicator path %q", path)
		}
		index, err := strconv.Atoi(parts[1])
		if err != nil || index < 0 || index >= len(c.draft.Indicators) {
			return errors.Errorf("no indicator at path %q", path)
		}
		c.applyIndicator(&c.draft.Indicators[index], parts[2], value)
		return nil
	}

	switch path {
	case "baseAsset":
		c.draft.BaseAsset = value
	case "quoteAsset":
		c.draft.QuoteAsset = value
	case "quantity":
		c.draft.Quantity = parseFloat(value)
	case "timeframe":
		tf := domain.Timeframe(value)
		if !tf.IsValid() {
			return errors.Errorf("unsupported timeframe %q", value)
		}
		c.draft.HistoricalData.Timeframe = tf
	case "dataPoints":
		c.draft.HistoricalData.DataPoints = parseInt(value)
	default:
		return errors.Errorf("unknown field %q", path)
	}
	return nil
}

func (c *Composer) applyIndicator(ind *domain.IndicatorConfig, field, value string) {
	switch field {
	case "name":
		ind.Name = value
	case "upper":
		ind.Thresholds.Upper = parseFloat(value)
	case "lower":
		ind.Thresholds.Lower = parseFloat(value)
	default:
		if ind.Options == nil {
			ind.Options = make(map[string]float64)
		}
		ind.Options[field] = parseFloat(value)
	}
}

// Submit validates the draft and posts it to the strategy-start endpoint.
func (c *Composer) Submit(ctx context.Context) error {
	draft := c.Draft()
	if err := draft.Validate(); err != nil {
		return errors.Wrap(err, "strategy is not ready to submit")
	}

	if err := c.backend.SubmitStrategy(ctx, draft); err != nil {
		return err
	}
	c.logger.Info("strategy submitted",
		zap.String("pair", domain.Pair{Base: draft.BaseAsset, Quote: draft.QuoteAsset}.String()),
		zap.Int("indicators", len(draft.Indicators)))
	return nil
}

// Stop posts a stop request keyed by the draft's base asset.
func (c *Composer) Stop(ctx context.Context) error {
	base := c.Draft().BaseAsset
	if base == "" {
		return errors.New("base asset is not set")
	}

	if err := c.backend.StopStrategy(ctx, base); err != nil {
		return err
	}
	c.logger.Info("strategy stopped", zap.String("base_asset", base))
	return nil
}

// parseFloat mirrors the forgiving numeric-input semantics of the form:
// anything unparsable (including the empty string) becomes NaN.
func parseFloat(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// parseInt returns zero for unparsable input; zero renders back as an empty
// field and fails validation, matching the float NaN behavior as closely as
// an integer field can.
func parseInt(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}
