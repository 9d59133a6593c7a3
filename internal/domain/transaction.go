package domain

import "fmt"

// TransactionMessage push payload describing a filled order. Amount is in
// quote units, Quantity in base units.
type TransactionMessage struct {
	BaseAsset  string  `json:"baseAsset"`
	QuoteAsset string  `json:"quoteAsset"`
	Amount     float64 `json:"amount"`
	Quantity   float64 `json:"quantity"`
}

// PurchaseText renders the human-readable line for an asset purchase.
func (m TransactionMessage) PurchaseText() string {
	return fmt.Sprintf("Bought %s %s for %s %s",
		FormatNumber(m.Quantity), m.BaseAsset, FormatNumber(m.Amount), m.QuoteAsset)
}

// SaleText renders the human-readable line for an asset sale.
func (m TransactionMessage) SaleText() string {
	return fmt.Sprintf("Sold %s %s for %s %s",
		FormatNumber(m.Quantity), m.BaseAsset, FormatNumber(m.Amount), m.QuoteAsset)
}
