package exception

import "errors"

// Module loading errors
var (
	// ErrIO is returned when a module path does not resolve to an existing entry.
	ErrIO = errors.New("module: io")

	// ErrModuleOpenFailed is returned when the dynamic library cannot be opened
	// or does not export the registration symbol.
	ErrModuleOpenFailed = errors.New("module: open failed")

	// ErrModuleFault is returned when reading the descriptor or constructing the
	// instance faulted inside the containment boundary.
	ErrModuleFault = errors.New("module: fault")

	// ErrMismatchedVersion is returned when the toolchain or utils version of a
	// module differs from the host build.
	ErrMismatchedVersion = errors.New("module: mismatched version")

	// ErrInvalidModuleConfig is returned when the descriptor data length bounds are invalid.
	ErrInvalidModuleConfig = errors.New("module: invalid config")

	// ErrDuplicateAlgorithm is returned when an algorithm name is already registered.
	ErrDuplicateAlgorithm = errors.New("module: duplicate algorithm")
)
