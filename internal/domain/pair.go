// Package domain defines the data model shared by the control panel services.
package domain

import "fmt"

// Pair cryptocurrency trading pair.
type Pair struct {
	// Base asset symbol, the thing being bought or sold.
	Base string
	// Quote asset symbol, the currency used.
	Quote string
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.Base, p.Quote)
}

// Symbol returns the concatenated exchange symbol.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.Base, p.Quote)
}
