package domain

import "github.com/shopspring/decimal"

// Balance single account balance entry as returned by the backend.
// Free stays decimal to preserve exchange precision end to end.
type Balance struct {
	Asset string          `json:"asset"`
	Free  decimal.Decimal `json:"free"`
}

// DedupeBalances enforces the at-most-one-entry-per-asset invariant.
// Order of first appearance is kept, a later duplicate overwrites the earlier value.
func DedupeBalances(balances []Balance) []Balance {
	out := make([]Balance, 0, len(balances))
	index := make(map[string]int, len(balances))
	for _, b := range balances {
		if i, ok := index[b.Asset]; ok {
			out[i] = b
			continue
		}
		index[b.Asset] = len(out)
		out = append(out, b)
	}
	return out
}

// FindBalance returns the entry for the given asset.
func FindBalance(balances []Balance, asset string) (Balance, bool) {
	for _, b := range balances {
		if b.Asset == asset {
			return b, true
		}
	}
	return Balance{}, false
}
