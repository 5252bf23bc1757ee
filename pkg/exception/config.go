package exception

import "errors"

// Config errors
var (
	ErrConfigInvalid = errors.New("config: invalid")
)
