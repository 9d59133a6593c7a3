// Package panel wires the control-panel session: selector, portfolio,
// composer, message lines and the push-event reducer.
package panel

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/martictl/internal/clients"
	"github.com/vadiminshakov/martictl/internal/domain"
	"github.com/vadiminshakov/martictl/internal/events"
	"github.com/vadiminshakov/martictl/internal/services/composer"
	"github.com/vadiminshakov/martictl/internal/services/portfolio"
	"go.uber.org/zap"
)

// User-visible failure lines. Backend error strings take precedence via
// clients.UserMessage.
const (
	msgAssetListFailed = "Failed to fetch asset list"
	msgBalanceFailed   = "Error getting balance"
	msgBuyFailed       = "Error buying asset"
	msgSellFailed      = "Error selling asset"
	msgSubmitFailed    = "Failed to submit strategy"
	msgStopFailed      = "Failed to stop strategy"
	msgSubmitSucceeded = "Strategy submitted successfully"
	msgStopSucceeded   = "Strategy stopped successfully"
)

// AssetSource fetches the tradable symbols.
type AssetSource interface {
	FetchAssets(ctx context.Context) ([]domain.AssetOption, error)
}

// OrderBackend places manual orders.
type OrderBackend interface {
	Buy(ctx context.Context, pair domain.Pair, quantity float64) error
	Sell(ctx context.Context, pair domain.Pair, quantity float64) error
}

// Panel is the session aggregate. All state lives in memory for the lifetime
// of the process; nothing is persisted.
type Panel struct {
	logger    *zap.Logger
	assets    AssetSource
	orders    OrderBackend
	Portfolio *portfolio.Store
	Composer  *composer.Composer
	bus       *events.Broadcaster

	mu          sync.RWMutex
	options     []domain.AssetOption
	selected    domain.AssetOption
	hasSelected bool
	message     string
	transaction string
}

// New creates a panel session.
func New(assets AssetSource, orders OrderBackend, store *portfolio.Store,
	comp *composer.Composer, bus *events.Broadcaster, logger *zap.Logger) *Panel {
	return &Panel{
		logger:    logger,
		assets:    assets,
		orders:    orders,
		Portfolio: store,
		Composer:  comp,
		bus:       bus,
	}
}

// Open performs the mount sequence: fetch the asset list, pick the default
// selection, load the initial portfolio. Each step fails independently;
// a dead exchange-info endpoint must not take the portfolio down with it.
func (p *Panel) Open(ctx context.Context) {
	options, err := p.assets.FetchAssets(ctx)
	if err != nil {
		p.logger.Warn("failed to fetch asset list", zap.Error(err))
		p.SetMessage(msgAssetListFailed)
	} else {
		p.setOptions(options)
	}

	if err := p.Portfolio.Refresh(ctx); err != nil {
		p.logger.Warn("initial portfolio refresh failed", zap.Error(err))
		p.SetMessage(clients.UserMessage(err, msgBalanceFailed))
	}
}

func (p *Panel) setOptions(options []domain.AssetOption) {
	selected, preferred := domain.DefaultOption(options)
	if !preferred && len(options) > 0 {
		p.logger.Warn("preferred symbol not listed, selecting first trading symbol",
			zap.String("preferred", domain.PreferredSymbol),
			zap.String("selected", selected.Symbol))
	}

	p.mu.Lock()
	p.options = options
	p.selected = selected
	p.hasSelected = len(options) > 0
	p.mu.Unlock()
	p.bus.Publish(events.ChangeSelector)
}

// Options returns the selector entries.
func (p *Panel) Options() []domain.AssetOption {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.AssetOption, len(p.options))
	copy(out, p.options)
	return out
}

// Selected returns the current selection; ok is false while the selector
// is empty.
func (p *Panel) Selected() (domain.AssetOption, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selected, p.hasSelected
}

// Select switches the selection by symbol.
func (p *Panel) Select(symbol string) error {
	p.mu.Lock()
	for _, o := range p.options {
		if o.Symbol == symbol {
			p.selected = o
			p.hasSelected = true
			p.mu.Unlock()
			p.bus.Publish(events.ChangeSelector)
			return nil
		}
	}
	p.mu.Unlock()
	return errors.Errorf("symbol %s is not in the selector", symbol)
}

// Message returns the generic user-visible message line.
func (p *Panel) Message() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.message
}

// SetMessage replaces the message line.
func (p *Panel) SetMessage(text string) {
	p.mu.Lock()
	p.message = text
	p.mu.Unlock()
	p.bus.Publish(events.ChangeMessage)
}

// Transaction returns the last transaction line.
func (p *Panel) Transaction() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.transaction
}

func (p *Panel) setTransaction(text string) {
	p.mu.Lock()
	p.transaction = text
	p.mu.Unlock()
	p.bus.Publish(events.ChangeTransaction)
}

// Buy places a manual buy order for the selected pair.
func (p *Panel) Buy(ctx context.Context, quantity float64) error {
	option, ok := p.Selected()
	if !ok {
		return errors.New("no asset selected")
	}
	if err := p.orders.Buy(ctx, option.Pair(), quantity); err != nil {
		p.SetMessage(clients.UserMessage(err, msgBuyFailed))
		return err
	}
	p.SetMessage("Bought " + option.BaseAsset + " successfully")
	return nil
}

// Sell places a manual sell order for the selected pair.
func (p *Panel) Sell(ctx context.Context, quantity float64) error {
	option, ok := p.Selected()
	if !ok {
		return errors.New("no asset selected")
	}
	if err := p.orders.Sell(ctx, option.Pair(), quantity); err != nil {
		p.SetMessage(clients.UserMessage(err, msgSellFailed))
		return err
	}
	p.SetMessage("Sold " + option.BaseAsset + " successfully")
	return nil
}

// SubmitStrategy submits the composer draft.
func (p *Panel) SubmitStrategy(ctx context.Context) error {
	if err := p.Composer.Submit(ctx); err != nil {
		p.SetMessage(clients.UserMessage(err, msgSubmitFailed+": "+err.Error()))
		return err
	}
	p.SetMessage(msgSubmitSucceeded)
	return nil
}

// StopStrategy stops the strategy keyed by the draft's base asset.
func (p *Panel) StopStrategy(ctx context.Context) error {
	if err := p.Composer.Stop(ctx); err != nil {
		p.SetMessage(clients.UserMessage(err, msgStopFailed))
		return err
	}
	p.SetMessage(msgStopSucceeded)
	return nil
}

// OnAssetPurchase implements feed.Handler: record the transaction line and
// trigger exactly one portfolio refresh. The payload never touches balances
// directly; the refreshed backend response is authoritative.
func (p *Panel) OnAssetPurchase(ctx context.Context, m domain.TransactionMessage) {
	p.setTransaction(m.PurchaseText())
	p.refreshPortfolio(ctx)
}

// OnAssetSale implements feed.Handler for sale events.
func (p *Panel) OnAssetSale(ctx context.Context, m domain.TransactionMessage) {
	p.setTransaction(m.SaleText())
	p.refreshPortfolio(ctx)
}

// OnMessage implements feed.Handler for generic server messages.
func (p *Panel) OnMessage(_ context.Context, text string) {
	p.SetMessage(text)
}

func (p *Panel) refreshPortfolio(ctx context.Context) {
	if err := p.Portfolio.Refresh(ctx); err != nil {
		p.logger.Warn("event-triggered portfolio refresh failed", zap.Error(err))
		p.SetMessage(clients.UserMessage(err, msgBalanceFailed))
	}
}
