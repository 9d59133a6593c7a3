package domain

import "fmt"

// PreferredSymbol is the symbol selected by default when the exchange lists it.
const PreferredSymbol = "BTCUSDT"

// AssetOption one tradable symbol offered by the selector.
type AssetOption struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
	Label      string `json:"label"`
}

// NewAssetOption builds an option with the canonical label.
func NewAssetOption(symbol, baseAsset, quoteAsset string) AssetOption {
	return AssetOption{
		Symbol:     symbol,
		BaseAsset:  baseAsset,
		QuoteAsset: quoteAsset,
		Label:      fmt.Sprintf("%s (%s)", baseAsset, symbol),
	}
}

// Pair returns the trading pair of the option.
func (o AssetOption) Pair() Pair {
	return Pair{Base: o.BaseAsset, Quote: o.QuoteAsset}
}

// DefaultOption picks the default selection: PreferredSymbol when listed,
// otherwise the first option. The second return value reports whether the
// preferred symbol was found, so callers can log its absence.
func DefaultOption(options []AssetOption) (AssetOption, bool) {
	for _, o := range options {
		if o.Symbol == PreferredSymbol {
			return o, true
		}
	}
	if len(options) > 0 {
		return options[0], false
	}
	return AssetOption{}, false
}
