package loader

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/yanun0323/logs"

	"tradingdesk/internal/obs"
	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/sdk"
)

// Loader opens algorithm plugins and checks they are safe to call.
type Loader struct {
	open      Opener
	toolchain string
	utils     string
	metrics   *obs.Metrics
}

type Option func(*Loader)

// WithOpener replaces plugin.Open.
func WithOpener(open Opener) Option {
	return func(l *Loader) {
		if open != nil {
			l.open = open
		}
	}
}

// WithVersions pins the versions a plugin must carry.
func WithVersions(toolchain, utils string) Option {
	return func(l *Loader) {
		l.toolchain = toolchain
		l.utils = utils
	}
}

func WithMetrics(m *obs.Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

func New(opts ...Option) *Loader {
	l := &Loader{
		open:      OpenPlugin,
		toolchain: sdk.ToolchainVersion(),
		utils:     sdk.UtilsVersion,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var Default = New()

// Load opens the plugin at path with the default loader.
func Load(path string) (*Algorithm, error) {
	return Default.Load(path)
}

// Load opens the plugin at path and instantiates its algorithm.
func (l *Loader) Load(path string) (*Algorithm, error) {
	return l.LoadChecked(path, nil)
}

// LoadChecked is Load with a hook that may reject the descriptor name before
// the factory runs. The returned error becomes the Kind of the load error.
func (l *Loader) LoadChecked(path string, accept func(name string) error) (*Algorithm, error) {
	start := time.Now()
	algo, err := l.load(path, accept)
	l.metrics.ObserveLoad(time.Since(start), err)
	if err != nil {
		var f *fault
		if errors.As(err, &f) {
			logs.Errorf("load %s, err: %+v\n%s", path, err, f.stack)
		}
		return nil, err
	}

	logs.Infof("loaded algorithm %s from %s", algo.name, algo.path)
	return algo, nil
}

func (l *Loader) load(path string, accept func(name string) error) (*Algorithm, error) {
	canonical, err := canonicalize(path)
	if err != nil {
		return nil, &Error{Kind: exception.ErrIO, Path: path, Err: err}
	}

	var lib Library
	var openErr error
	if err := contain(func() { lib, openErr = l.open(canonical) }); err != nil {
		return nil, &Error{Kind: exception.ErrModuleFault, Path: canonical, Detail: "open", Err: err}
	}
	if openErr != nil {
		return nil, &Error{Kind: exception.ErrModuleOpenFailed, Path: canonical, Err: openErr}
	}
	if lib == nil {
		return nil, &Error{Kind: exception.ErrModuleOpenFailed, Path: canonical, Detail: "no library"}
	}

	sym, err := lib.Lookup(sdk.Symbol)
	if err != nil {
		return nil, &Error{Kind: exception.ErrModuleOpenFailed, Path: canonical, Detail: "missing symbol " + sdk.Symbol, Err: err}
	}

	var reg sdk.Registration
	var typed bool
	if err := contain(func() { reg, typed = readRegistration(sym) }); err != nil {
		return nil, &Error{Kind: exception.ErrModuleFault, Path: canonical, Detail: "read descriptor", Err: err}
	}
	if !typed {
		return nil, &Error{Kind: exception.ErrModuleFault, Path: canonical, Detail: "descriptor has an unexpected type"}
	}

	if reg.ToolchainVersion != l.toolchain {
		return nil, &Error{
			Kind: exception.ErrMismatchedVersion, Path: canonical, Name: reg.Name,
			Detail: "toolchain " + reg.ToolchainVersion + " != " + l.toolchain,
		}
	}
	if reg.UtilsVersion != l.utils {
		return nil, &Error{
			Kind: exception.ErrMismatchedVersion, Path: canonical, Name: reg.Name,
			Detail: "utils " + reg.UtilsVersion + " != " + l.utils,
		}
	}

	if err := sdk.CheckDataLength(reg.MinDataLength, reg.MaxDataLength); err != nil {
		return nil, &Error{
			Kind: exception.ErrInvalidModuleConfig, Path: canonical, Name: reg.Name, Err: err,
		}
	}

	if accept != nil {
		if err := accept(reg.Name); err != nil {
			return nil, &Error{Kind: err, Path: canonical, Name: reg.Name}
		}
	}

	if reg.New == nil {
		return nil, &Error{Kind: exception.ErrInvalidModuleConfig, Path: canonical, Name: reg.Name, Detail: "nil factory"}
	}

	var instance sdk.Algorithm
	if err := contain(func() { instance = reg.New() }); err != nil {
		return nil, &Error{Kind: exception.ErrModuleFault, Path: canonical, Name: reg.Name, Detail: "factory", Err: err}
	}
	if instance == nil {
		return nil, &Error{Kind: exception.ErrModuleFault, Path: canonical, Name: reg.Name, Detail: "factory returned nil"}
	}

	return &Algorithm{
		name:        reg.Name,
		description: reg.Description,
		minLength:   reg.MinDataLength,
		maxLength:   reg.MaxDataLength,
		path:        canonical,
		instance:    instance,
		lib:         lib,
	}, nil
}

// readRegistration copies the descriptor out of the plugin. Lookup returns a
// pointer to a package variable.
func readRegistration(sym any) (sdk.Registration, bool) {
	switch v := sym.(type) {
	case *sdk.Registration:
		if v == nil {
			return sdk.Registration{}, false
		}
		return *v, true
	case sdk.Registration:
		return v, true
	default:
		return sdk.Registration{}, false
	}
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
