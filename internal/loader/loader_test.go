package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingdesk/internal/obs"
	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
	"tradingdesk/pkg/sdk"
)

type fakeLibrary map[string]any

func (l fakeLibrary) Lookup(symbol string) (any, error) {
	sym, ok := l[symbol]
	if !ok {
		return nil, errors.New("symbol " + symbol + " not found")
	}
	return sym, nil
}

type stub struct {
	initCalls int
	ticks     int
}

func (s *stub) Tick([]ledger.Position, []market.Price) ([]sdk.Instruction, error) {
	s.ticks++
	return []sdk.Instruction{sdk.ClosePosition(1)}, nil
}

func (s *stub) Init(sdk.Derivative, time.Duration) error {
	s.initCalls++
	return nil
}

type panicky struct{}

func (panicky) Tick([]ledger.Position, []market.Price) ([]sdk.Instruction, error) {
	panic("boom")
}

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func openerOf(libs map[string]Library, openErr error) Opener {
	return func(path string) (Library, error) {
		if openErr != nil {
			return nil, openErr
		}
		return libs[filepath.Base(path)], nil
	}
}

func registration(name string, min, max sdk.DataLength, factory sdk.Factory) *sdk.Registration {
	reg := sdk.Export(name, name+" description", min, max, factory)
	return &reg
}

func TestLoadSuccess(t *testing.T) {
	path := touch(t, "sma.so")
	instance := &stub{}
	m := obs.NewMetrics()
	l := New(WithMetrics(m), WithOpener(openerOf(map[string]Library{
		"sma.so": fakeLibrary{sdk.Symbol: registration("sma", sdk.Fixed(3), sdk.Fixed(10), func() sdk.Algorithm { return instance })},
	}, nil)))

	algo, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sma", algo.Name())
	assert.Equal(t, "sma description", algo.Description())
	assert.Equal(t, "Fixed(3)", algo.MinDataLength().String())
	assert.Equal(t, "Fixed(10)", algo.MaxDataLength().String())
	assert.True(t, filepath.IsAbs(algo.Path()))
	assert.Contains(t, algo.String(), "sma")

	require.NoError(t, algo.Init(sdk.Derivative{Symbol: "AAPL"}, time.Second))
	assert.Equal(t, 1, instance.initCalls)

	out, err := algo.Tick(nil, []market.Price{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, out, 1)

	require.NoError(t, algo.CollectPrices([]market.Price{1}))
	out, err = algo.Shutdown(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.Loads)
	assert.Equal(t, uint64(0), snap.LoadFailures)
}

func TestLoadFailures(t *testing.T) {
	valid := func() sdk.Algorithm { return &stub{} }
	wrongUtils := registration("a", sdk.Fixed(1), sdk.Fixed(2), valid)
	wrongUtils.UtilsVersion = "0.4.1"
	wrongToolchain := registration("a", sdk.Fixed(1), sdk.Fixed(2), valid)
	wrongToolchain.ToolchainVersion += "x"

	testCases := []struct {
		desc    string
		lib     Library
		openErr error
		missing bool
		kind    error
	}{
		{desc: "missing file", missing: true, kind: exception.ErrIO},
		{desc: "open error", openErr: errors.New("invalid ELF header"), kind: exception.ErrModuleOpenFailed},
		{desc: "nil library", lib: nil, kind: exception.ErrModuleOpenFailed},
		{desc: "missing symbol", lib: fakeLibrary{}, kind: exception.ErrModuleOpenFailed},
		{desc: "wrong symbol type", lib: fakeLibrary{sdk.Symbol: new(int)}, kind: exception.ErrModuleFault},
		{desc: "utils mismatch", lib: fakeLibrary{sdk.Symbol: wrongUtils}, kind: exception.ErrMismatchedVersion},
		{desc: "toolchain mismatch", lib: fakeLibrary{sdk.Symbol: wrongToolchain}, kind: exception.ErrMismatchedVersion},
		{desc: "max below min", lib: fakeLibrary{sdk.Symbol: registration("a", sdk.Fixed(6), sdk.Fixed(5), valid)}, kind: exception.ErrInvalidModuleConfig},
		{desc: "zero max", lib: fakeLibrary{sdk.Symbol: registration("a", sdk.Fixed(0), sdk.Fixed(0), valid)}, kind: exception.ErrInvalidModuleConfig},
		{desc: "nil factory", lib: fakeLibrary{sdk.Symbol: registration("a", sdk.Fixed(0), sdk.Variable(), nil)}, kind: exception.ErrInvalidModuleConfig},
		{desc: "factory panics", lib: fakeLibrary{sdk.Symbol: registration("a", sdk.Fixed(0), sdk.Variable(), func() sdk.Algorithm { panic("init") })}, kind: exception.ErrModuleFault},
		{desc: "factory returns nil", lib: fakeLibrary{sdk.Symbol: registration("a", sdk.Fixed(0), sdk.Variable(), func() sdk.Algorithm { return nil })}, kind: exception.ErrModuleFault},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.so")
			if !tc.missing {
				path = touch(t, "algo.so")
			}
			m := obs.NewMetrics()
			l := New(WithMetrics(m), WithOpener(openerOf(map[string]Library{"algo.so": tc.lib}, tc.openErr)))

			algo, err := l.Load(path)
			require.ErrorIs(t, err, tc.kind)
			assert.Nil(t, algo)

			var loadErr *Error
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tc.kind, loadErr.Kind)
			assert.Equal(t, uint64(1), m.Snapshot().LoadFailures)
		})
	}
}

func TestLoadVersionMismatchSkipsFactory(t *testing.T) {
	calls := 0
	reg := registration("a", sdk.Fixed(1), sdk.Fixed(2), func() sdk.Algorithm {
		calls++
		return &stub{}
	})
	reg.UtilsVersion = sdk.UtilsVersion[:len(sdk.UtilsVersion)-1] + "9"

	path := touch(t, "algo.so")
	l := New(WithOpener(openerOf(map[string]Library{"algo.so": fakeLibrary{sdk.Symbol: reg}}, nil)))
	_, err := l.Load(path)
	require.ErrorIs(t, err, exception.ErrMismatchedVersion)
	assert.Equal(t, 0, calls)
}

func TestLoadPinnedVersions(t *testing.T) {
	reg := registration("a", sdk.Fixed(1), sdk.Fixed(2), func() sdk.Algorithm { return &stub{} })
	reg.ToolchainVersion = "go1.0"
	reg.UtilsVersion = "9.9.9"

	path := touch(t, "algo.so")
	opener := WithOpener(openerOf(map[string]Library{"algo.so": fakeLibrary{sdk.Symbol: reg}}, nil))

	_, err := New(opener, WithVersions("go1.0", "9.9.9")).Load(path)
	require.NoError(t, err)

	_, err = New(opener).Load(path)
	require.ErrorIs(t, err, exception.ErrMismatchedVersion)
}

func TestLoadDataLengthProperty(t *testing.T) {
	path := touch(t, "algo.so")
	for n := uint64(0); n < 8; n++ {
		for m := uint64(0); m < 8; m++ {
			reg := registration("a", sdk.Fixed(n), sdk.Fixed(m), func() sdk.Algorithm { return &stub{} })
			l := New(WithOpener(openerOf(map[string]Library{"algo.so": fakeLibrary{sdk.Symbol: reg}}, nil)))
			_, err := l.Load(path)
			if m >= n && m > 0 {
				assert.NoError(t, err, "min %d max %d", n, m)
			} else {
				assert.ErrorIs(t, err, exception.ErrInvalidModuleConfig, "min %d max %d", n, m)
			}
		}
	}
}

func TestLoadChecked(t *testing.T) {
	calls := 0
	reg := registration("dup", sdk.Fixed(0), sdk.Variable(), func() sdk.Algorithm {
		calls++
		return &stub{}
	})
	path := touch(t, "algo.so")
	l := New(WithOpener(openerOf(map[string]Library{"algo.so": fakeLibrary{sdk.Symbol: reg}}, nil)))

	_, err := l.LoadChecked(path, func(name string) error {
		assert.Equal(t, "dup", name)
		return exception.ErrDuplicateAlgorithm
	})
	require.ErrorIs(t, err, exception.ErrDuplicateAlgorithm)
	assert.Equal(t, 0, calls)
	assert.Contains(t, err.Error(), "name=dup")
}

func TestAlgorithmTickPanicIsContained(t *testing.T) {
	reg := registration("panicky", sdk.Fixed(0), sdk.Variable(), func() sdk.Algorithm { return panicky{} })
	path := touch(t, "algo.so")
	l := New(WithOpener(openerOf(map[string]Library{"algo.so": fakeLibrary{sdk.Symbol: reg}}, nil)))

	algo, err := l.Load(path)
	require.NoError(t, err)

	out, err := algo.Tick(nil, []market.Price{1})
	require.ErrorIs(t, err, exception.ErrModuleFault)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "panic: boom")
	assert.NotEmpty(t, Stack(err))
	assert.Nil(t, Stack(errors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: exception.ErrIO, Path: "/a.so", Detail: "x", Err: errors.New("cause")}
	assert.Equal(t, "module: io path=/a.so: x, err: cause", err.Error())
	assert.ErrorIs(t, err, exception.ErrIO)

	bare := &Error{Kind: exception.ErrModuleFault}
	assert.Equal(t, "module: fault", bare.Error())
	assert.Equal(t, []error{exception.ErrModuleFault}, bare.Unwrap())
}
