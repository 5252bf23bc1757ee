package exception

import "errors"

// Ledger errors. Both indicate a stale identifier, retrying will not help.
var (
	ErrNoSuchOrder    = errors.New("ledger: no such order")
	ErrNoSuchPosition = errors.New("ledger: no such position")
)
