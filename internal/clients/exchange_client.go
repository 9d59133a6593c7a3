package clients

import (
	"context"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/martictl/internal/domain"
)

const (
	statusTrading    = "TRADING"
	exchangeInfoPath = "/api/v3/exchangeInfo"
)

// ExchangeClient fetches tradable-symbol metadata from the public
// exchange-info endpoint. No credentials are needed.
type ExchangeClient struct {
	api *binance.Client
}

// NewExchangeClient creates a metadata client. When exchangeInfoURL is
// non-empty it overrides the default exchange REST endpoint, which keeps
// testnet and stub deployments configurable. Both the base URL and the
// full endpoint URL are accepted: the library appends the endpoint path
// itself, so a pasted full URL is normalized back to its base.
func NewExchangeClient(exchangeInfoURL string) *ExchangeClient {
	api := binance.NewClient("", "")
	if exchangeInfoURL != "" {
		base := strings.TrimRight(exchangeInfoURL, "/")
		api.BaseURL = strings.TrimSuffix(base, exchangeInfoPath)
	}
	return &ExchangeClient{api: api}
}

// FetchAssets returns the selectable asset options. Only symbols in TRADING
// status are kept; duplicate symbols are dropped so the selector invariant
// (unique symbol per entry) holds regardless of upstream data.
func (c *ExchangeClient) FetchAssets(ctx context.Context) ([]domain.AssetOption, error) {
	info, err := c.api.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch exchange info")
	}

	options := make([]domain.AssetOption, 0, len(info.Symbols))
	seen := make(map[string]struct{}, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != statusTrading {
			continue
		}
		if _, ok := seen[s.Symbol]; ok {
			continue
		}
		seen[s.Symbol] = struct{}{}
		options = append(options, domain.NewAssetOption(s.Symbol, s.BaseAsset, s.QuoteAsset))
	}
	return options, nil
}
