package panel

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/martictl/internal/clients"
	"github.com/vadiminshakov/martictl/internal/domain"
	"github.com/vadiminshakov/martictl/internal/events"
	"github.com/vadiminshakov/martictl/internal/services/composer"
	"github.com/vadiminshakov/martictl/internal/services/portfolio"
	"go.uber.org/zap"
)

type stubAssets struct {
	options []domain.AssetOption
	err     error
}

func (s *stubAssets) FetchAssets(ctx context.Context) ([]domain.AssetOption, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.options, nil
}

type stubBackend struct {
	balances []domain.Balance
	balErr   error
	calls    int

	buys     []domain.Pair
	sells    []domain.Pair
	orderErr error

	submitted []domain.StrategyConfig
	stopped   []string
}

func (s *stubBackend) Balances(ctx context.Context) ([]domain.Balance, error) {
	s.calls++
	if s.balErr != nil {
		return nil, s.balErr
	}
	return s.balances, nil
}

func (s *stubBackend) Buy(ctx context.Context, pair domain.Pair, quantity float64) error {
	if s.orderErr != nil {
		return s.orderErr
	}
	s.buys = append(s.buys, pair)
	return nil
}

func (s *stubBackend) Sell(ctx context.Context, pair domain.Pair, quantity float64) error {
	if s.orderErr != nil {
		return s.orderErr
	}
	s.sells = append(s.sells, pair)
	return nil
}

func (s *stubBackend) SubmitStrategy(ctx context.Context, cfg domain.StrategyConfig) error {
	s.submitted = append(s.submitted, cfg)
	return nil
}

func (s *stubBackend) StopStrategy(ctx context.Context, baseAsset string) error {
	s.stopped = append(s.stopped, baseAsset)
	return nil
}

func testOptions() []domain.AssetOption {
	return []domain.AssetOption{
		domain.NewAssetOption("ETHBTC", "ETH", "BTC"),
		domain.NewAssetOption("BTCUSDT", "BTC", "USDT"),
		domain.NewAssetOption("ETHUSDT", "ETH", "USDT"),
	}
}

func newTestPanel(assets *stubAssets, backend *stubBackend) *Panel {
	logger := zap.NewNop()
	bus := events.NewBroadcaster(16)
	store := portfolio.NewStore(backend, bus, logger)
	comp := composer.New(backend, logger)
	return New(assets, backend, store, comp, bus, logger)
}

func TestPanelOpenSelectsPreferredSymbol(t *testing.T) {
	backend := &stubBackend{balances: []domain.Balance{
		{Asset: "USDT", Free: decimal.NewFromInt(1000)},
	}}
	p := newTestPanel(&stubAssets{options: testOptions()}, backend)

	p.Open(context.Background())

	selected, ok := p.Selected()
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", selected.Symbol)
	assert.Len(t, p.Options(), 3)
	assert.Equal(t, "$1,000.00", p.Portfolio.QuoteBalance())
}

func TestPanelOpenSurvivesAssetListFailure(t *testing.T) {
	backend := &stubBackend{balances: []domain.Balance{
		{Asset: "USDT", Free: decimal.NewFromInt(500)},
		{Asset: "BTC", Free: decimal.RequireFromString("0.1")},
	}}
	p := newTestPanel(&stubAssets{err: errors.New("exchange info down")}, backend)

	p.Open(context.Background())

	// the selector stays empty but the portfolio still loads
	_, ok := p.Selected()
	assert.False(t, ok)
	assert.Empty(t, p.Options())
	assert.Equal(t, "Failed to fetch asset list", p.Message())
	assert.Len(t, p.Portfolio.Balances(), 2)
	assert.Equal(t, "$500.00", p.Portfolio.QuoteBalance())
}

func TestPanelOpenReportsBalanceFailure(t *testing.T) {
	backend := &stubBackend{balErr: errors.New("backend down")}
	p := newTestPanel(&stubAssets{options: testOptions()}, backend)

	p.Open(context.Background())

	assert.Equal(t, "Error getting balance", p.Message())
	selected, ok := p.Selected()
	require.True(t, ok, "balance failure must not break the selector")
	assert.Equal(t, "BTCUSDT", selected.Symbol)
}

func TestPanelPurchaseEventRefreshesPortfolioOnce(t *testing.T) {
	backend := &stubBackend{balances: []domain.Balance{
		{Asset: "USDT", Free: decimal.NewFromInt(1000)},
	}}
	p := newTestPanel(&stubAssets{options: testOptions()}, backend)
	p.Open(context.Background())

	backend.balances = []domain.Balance{
		{Asset: "BTC", Free: decimal.RequireFromString("0.001")},
		{Asset: "USDT", Free: decimal.NewFromInt(950)},
	}
	before := backend.calls

	p.OnAssetPurchase(context.Background(), domain.TransactionMessage{
		BaseAsset: "BTC", QuoteAsset: "USDT", Amount: 50, Quantity: 0.001,
	})

	assert.Equal(t, "Bought 0.001 BTC for 50 USDT", p.Transaction())
	assert.Equal(t, before+1, backend.calls, "each event triggers exactly one refresh")
	assert.Equal(t, "$950.00", p.Portfolio.QuoteBalance())
	assert.Len(t, p.Portfolio.Balances(), 2)
}

func TestPanelSaleEventSetsTransactionLine(t *testing.T) {
	backend := &stubBackend{}
	p := newTestPanel(&stubAssets{options: testOptions()}, backend)

	p.OnAssetSale(context.Background(), domain.TransactionMessage{
		BaseAsset: "ETH", QuoteAsset: "USDT", Amount: 120.5, Quantity: 0.05,
	})

	assert.Equal(t, "Sold 0.05 ETH for 120.5 USDT", p.Transaction())
}

func TestPanelOnMessageUpdatesMessageLine(t *testing.T) {
	p := newTestPanel(&stubAssets{options: testOptions()}, &stubBackend{})

	p.OnMessage(context.Background(), "strategy started for BTC")

	assert.Equal(t, "strategy started for BTC", p.Message())
}

func TestPanelBuyUsesSelectedPair(t *testing.T) {
	backend := &stubBackend{}
	p := newTestPanel(&stubAssets{options: testOptions()}, backend)
	p.Open(context.Background())
	require.NoError(t, p.Select("ETHUSDT"))

	require.NoError(t, p.Buy(context.Background(), 0.5))

	require.Len(t, backend.buys, 1)
	assert.Equal(t, domain.Pair{Base: "ETH", Quote: "USDT"}, backend.buys[0])
	assert.Equal(t, "Bought ETH successfully", p.Message())
}

func TestPanelSellFailurePrefersBackendMessage(t *testing.T) {
	backend := &stubBackend{orderErr: &clients.BackendError{
		StatusCode: 400, Message: "insufficient balance",
	}}
	p := newTestPanel(&stubAssets{options: testOptions()}, backend)
	p.Open(context.Background())

	require.Error(t, p.Sell(context.Background(), 100))

	assert.Equal(t, "insufficient balance", p.Message())
}

func TestPanelOrderWithoutSelection(t *testing.T) {
	p := newTestPanel(&stubAssets{options: nil}, &stubBackend{})
	p.Open(context.Background())

	assert.Error(t, p.Buy(context.Background(), 1))
	assert.Error(t, p.Sell(context.Background(), 1))
}

func TestPanelSelectUnknownSymbol(t *testing.T) {
	p := newTestPanel(&stubAssets{options: testOptions()}, &stubBackend{})
	p.Open(context.Background())

	assert.Error(t, p.Select("DOGEUSDT"))

	selected, ok := p.Selected()
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", selected.Symbol, "failed select must not change the selection")
}

func TestPanelSubmitStrategy(t *testing.T) {
	backend := &stubBackend{}
	p := newTestPanel(&stubAssets{options: testOptions()}, backend)
	p.Composer.AddIndicator()
	require.NoError(t, p.Composer.Apply("indicators.0.name", "RSI"))

	require.NoError(t, p.SubmitStrategy(context.Background()))

	require.Len(t, backend.submitted, 1)
	assert.Equal(t, "Strategy submitted successfully", p.Message())
}

func TestPanelSubmitInvalidStrategySetsMessage(t *testing.T) {
	backend := &stubBackend{}
	p := newTestPanel(&stubAssets{options: testOptions()}, backend)

	require.Error(t, p.SubmitStrategy(context.Background()))

	assert.Empty(t, backend.submitted)
	assert.Contains(t, p.Message(), "Failed to submit strategy")
}

func TestPanelStopStrategy(t *testing.T) {
	backend := &stubBackend{}
	p := newTestPanel(&stubAssets{options: testOptions()}, backend)

	require.NoError(t, p.StopStrategy(context.Background()))

	assert.Equal(t, []string{"BTC"}, backend.stopped)
	assert.Equal(t, "Strategy stopped successfully", p.Message())
}
