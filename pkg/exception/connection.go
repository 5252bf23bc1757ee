package exception

import "errors"

// Broker errors
var (
	ErrBrokerNotLoggedIn    = errors.New("broker: not logged in")
	ErrBrokerUnknownDeposit = errors.New("broker: unknown deposit")
	ErrBrokerSnapshot       = errors.New("broker: invalid snapshot")
)
