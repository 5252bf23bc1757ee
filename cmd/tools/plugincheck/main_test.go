package main

import (
	"go/constant"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingdesk/pkg/sdk"
)

func registrationType() types.Type {
	pkg := types.NewPackage(sdkPath, "sdk")
	name := types.NewTypeName(token.NoPos, pkg, "Registration", nil)
	return types.NewNamed(name, types.NewStruct(nil, nil), nil)
}

func pluginPackage(name string, decl func(pkg *types.Package) types.Object) *types.Package {
	pkg := types.NewPackage("example.com/algo", name)
	if decl != nil {
		pkg.Scope().Insert(decl(pkg))
	}
	return pkg
}

func variable(t types.Type) func(*types.Package) types.Object {
	return func(pkg *types.Package) types.Object {
		return types.NewVar(token.NoPos, pkg, sdk.Symbol, t)
	}
}

func TestCheck(t *testing.T) {
	reg := registrationType()
	other := types.NewNamed(types.NewTypeName(token.NoPos, types.NewPackage("example.com/sdk", "sdk"), "Registration", nil), types.NewStruct(nil, nil), nil)

	testCases := []struct {
		desc    string
		pkg     *types.Package
		wantErr string
	}{
		{"value", pluginPackage("main", variable(reg)), ""},
		{"pointer", pluginPackage("main", variable(types.NewPointer(reg))), ""},
		{"not main", pluginPackage("algo", variable(reg)), "plugins must be package main"},
		{"missing", pluginPackage("main", nil), "is not declared"},
		{
			"constant",
			pluginPackage("main", func(pkg *types.Package) types.Object {
				return types.NewConst(token.NoPos, pkg, sdk.Symbol, types.Typ[types.UntypedString], constant.MakeString("smacross"))
			}),
			"must be a package-level variable",
		},
		{"wrong type", pluginPackage("main", variable(types.Typ[types.String])), "want tradingdesk/pkg/sdk.Registration"},
		{"foreign registration", pluginPackage("main", variable(other)), "want tradingdesk/pkg/sdk.Registration"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := check(tc.pkg)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	require.Error(t, check(nil))
}
