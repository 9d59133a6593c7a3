// Package portfolio maintains the session view of account balances.
package portfolio

import (
	"context"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/martictl/internal/domain"
	"github.com/vadiminshakov/martictl/internal/events"
	"go.uber.org/zap"
)

// QuoteAsset is the currency of the derived headline balance.
const QuoteAsset = "USDT"

const emptyQuoteBalance = "$0.00"

// BalanceSource fetches the authoritative balance list.
type BalanceSource interface {
	Balances(ctx context.Context) ([]domain.Balance, error)
}

// Store holds the displayed portfolio. The backend owns the truth: the store
// is only ever replaced wholesale by Refresh, never mutated by push payloads.
// HTTP completions and push-triggered refreshes race, so access is guarded.
type Store struct {
	mu       sync.RWMutex
	source   BalanceSource
	bus      *events.Broadcaster
	logger   *zap.Logger
	balances []domain.Balance
	quote    string
}

// NewStore creates an empty store reading from source.
func NewStore(source BalanceSource, bus *events.Broadcaster, logger *zap.Logger) *Store {
	return &Store{
		source: source,
		bus:    bus,
		logger: logger,
		quote:  emptyQuoteBalance,
	}
}

// Refresh replaces the balance list from the backend and recomputes the
// derived quote balance. On failure the previous balances are kept, so a
// transient backend error never blanks the display.
func (s *Store) Refresh(ctx context.Context) error {
	balances, err := s.source.Balances(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to refresh portfolio")
	}

	balances = domain.DedupeBalances(balances)
	quote := emptyQuoteBalance
	if usdt, ok := domain.FindBalance(balances, QuoteAsset); ok {
		quote = formatQuote(usdt)
	}

	s.mu.Lock()
	s.balances = balances
	s.quote = quote
	s.mu.Unlock()

	s.logger.Debug("portfolio refreshed",
		zap.Int("assets", len(balances)),
		zap.String("quote_balance", quote))
	s.bus.Publish(events.ChangePortfolio)
	return nil
}

// Balances returns a snapshot copy of the displayed list.
func (s *Store) Balances() []domain.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Balance, len(s.balances))
	copy(out, s.balances)
	return out
}

// QuoteBalance returns the formatted derived quote-currency balance.
func (s *Store) QuoteBalance() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quote
}

// formatQuote renders the USDT entry as en-US currency with two fraction
// digits, e.g. $12,345.68.
func formatQuote(b domain.Balance) string {
	free, _ := b.Free.Float64()
	return "$" + humanize.FormatFloat("#,###.##", free)
}
