package loader

import (
	"errors"
	"fmt"
	"time"

	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
	"tradingdesk/pkg/sdk"
)

// Algorithm is a loaded plugin instance. The library is kept with the
// instance and never handed out, so code from the plugin cannot outlive it.
//
// Calls are not synchronized, the owner serializes them.
type Algorithm struct {
	name        string
	description string
	minLength   sdk.DataLength
	maxLength   sdk.DataLength
	path        string

	instance sdk.Algorithm
	lib      Library
}

func (a *Algorithm) Name() string                  { return a.name }
func (a *Algorithm) Description() string           { return a.description }
func (a *Algorithm) MinDataLength() sdk.DataLength { return a.minLength }
func (a *Algorithm) MaxDataLength() sdk.DataLength { return a.maxLength }
func (a *Algorithm) Path() string                  { return a.path }

// Init forwards to the instance when it implements sdk.Initializer.
func (a *Algorithm) Init(derivative sdk.Derivative, timeStep time.Duration) error {
	in, ok := a.instance.(sdk.Initializer)
	if !ok {
		return nil
	}
	var err error
	if f := contain(func() { err = in.Init(derivative, timeStep) }); f != nil {
		return a.fault("init", f)
	}
	return err
}

// CollectPrices forwards the warm-up history when the instance implements sdk.Collector.
func (a *Algorithm) CollectPrices(prices []market.Price) error {
	c, ok := a.instance.(sdk.Collector)
	if !ok {
		return nil
	}
	var err error
	if f := contain(func() { err = c.CollectPrices(prices) }); f != nil {
		return a.fault("collect prices", f)
	}
	return err
}

func (a *Algorithm) Tick(positions []ledger.Position, prices []market.Price) ([]sdk.Instruction, error) {
	var (
		out []sdk.Instruction
		err error
	)
	if f := contain(func() { out, err = a.instance.Tick(positions, prices) }); f != nil {
		return nil, a.fault("tick", f)
	}
	return out, err
}

// Shutdown forwards to the instance when it implements sdk.Finalizer.
func (a *Algorithm) Shutdown(positions []ledger.Position, prices []market.Price) ([]sdk.Instruction, error) {
	fin, ok := a.instance.(sdk.Finalizer)
	if !ok {
		return nil, nil
	}
	var (
		out []sdk.Instruction
		err error
	)
	if f := contain(func() { out, err = fin.Shutdown(positions, prices) }); f != nil {
		return nil, a.fault("shutdown", f)
	}
	return out, err
}

func (a *Algorithm) fault(stage string, err error) error {
	return &Error{Kind: exception.ErrModuleFault, Path: a.path, Name: a.name, Detail: stage, Err: err}
}

func (a *Algorithm) String() string {
	return fmt.Sprintf("%s (%s) min=%s max=%s: %s", a.name, a.path, a.minLength, a.maxLength, a.description)
}

// Stack returns the goroutine stack captured with a recovered panic, if err carries one.
func Stack(err error) []byte {
	var f *fault
	if errors.As(err, &f) {
		return f.stack
	}
	return nil
}
