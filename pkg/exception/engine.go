package exception

import "errors"

var (
	ErrInvalidState      = errors.New("engine: invalid state")
	ErrTickOverrun       = errors.New("engine: tick exceeded time step")
	ErrOpeningInShutdown = errors.New("engine: opening instruction during shutdown")
	ErrAlgorithmFault    = errors.New("engine: algorithm fault")
	ErrRiskDenied        = errors.New("engine: denied by risk gate")
	ErrUnknownAlgorithm  = errors.New("engine: unknown algorithm")
)
