// Package sdk is the contract between the desk and an algorithm plugin.
//
// A plugin is a main package built with -buildmode=plugin that declares
//
//	var AlgorithmRegistration = sdk.Export("name", "description", sdk.Fixed(20), sdk.Variable(), newAlgorithm)
//
// The desk only loads plugins built by the same toolchain against the same
// UtilsVersion of this package, since every type that crosses the boundary is
// trusted to have the host's layout.
package sdk

import (
	"fmt"
	"runtime"

	"tradingdesk/pkg/exception"
)

// Symbol is the package-level variable the loader looks up in a plugin.
const Symbol = "AlgorithmRegistration"

// UtilsVersion is bumped on every change of a type exchanged with plugins.
const UtilsVersion = "0.4.0"

// ToolchainVersion is the Go release this binary was built with.
func ToolchainVersion() string {
	return runtime.Version()
}

// Factory creates a fresh algorithm instance.
type Factory func() Algorithm

// Registration is the descriptor a plugin exports. It is read once at load time.
type Registration struct {
	ToolchainVersion string
	UtilsVersion     string

	Name        string
	Description string

	MinDataLength DataLength
	MaxDataLength DataLength

	New Factory
}

// Export builds a Registration stamped with the versions of the building toolchain.
func Export(name, description string, minLength, maxLength DataLength, factory Factory) Registration {
	return Registration{
		ToolchainVersion: ToolchainVersion(),
		UtilsVersion:     UtilsVersion,
		Name:             name,
		Description:      description,
		MinDataLength:    minLength,
		MaxDataLength:    maxLength,
		New:              factory,
	}
}

// ExportUnbounded exports an algorithm without warm-up and without a history cap.
func ExportUnbounded(name, description string, factory Factory) Registration {
	return Export(name, description, Fixed(0), Variable(), factory)
}

// DataLength is either Fixed(n) or Variable.
type DataLength struct {
	n     uint64
	fixed bool
}

func Fixed(n uint64) DataLength {
	return DataLength{n: n, fixed: true}
}

func Variable() DataLength {
	return DataLength{}
}

func (l DataLength) IsVariable() bool {
	return !l.fixed
}

// Len returns the fixed length, false when Variable.
func (l DataLength) Len() (uint64, bool) {
	return l.n, l.fixed
}

// Min returns the length as a lower bound, Variable counts as zero.
func (l DataLength) Min() uint64 {
	if !l.fixed {
		return 0
	}
	return l.n
}

func (l DataLength) String() string {
	if !l.fixed {
		return "Variable"
	}
	return fmt.Sprintf("Fixed(%d)", l.n)
}

// CheckDataLength validates a min/max pair. A Fixed maximum must be positive
// and not below the minimum.
func CheckDataLength(minLength, maxLength DataLength) error {
	m, fixed := maxLength.Len()
	if !fixed {
		return nil
	}
	if m == 0 {
		return fmt.Errorf("%w: max data length %s must be greater than zero", exception.ErrInvalidModuleConfig, maxLength)
	}
	if m < minLength.Min() {
		return fmt.Errorf("%w: max data length %s is below min data length %s", exception.ErrInvalidModuleConfig, maxLength, minLength)
	}
	return nil
}
