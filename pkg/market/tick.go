package market

import "time"

// Tick is one observed price of a symbol.
type Tick struct {
	Symbol string
	Price  Price
	At     time.Time
}
