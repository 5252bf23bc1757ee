// Command plugincheck reports whether packages can be built into algorithm
// plugins the desk will load.
package main

import (
	"errors"
	"flag"
	"fmt"
	"go/types"
	"os"
	"strings"

	"golang.org/x/tools/go/packages"

	"tradingdesk/pkg/sdk"
)

const sdkPath = "tradingdesk/pkg/sdk"

func main() {
	dir := flag.String("dir", ".", "directory the patterns are resolved from")
	flag.Parse()

	patterns := flag.Args()
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	if err := run(*dir, patterns); err != nil {
		fmt.Fprintf(os.Stderr, "plugincheck: %v\n", err)
		os.Exit(1)
	}
}

func run(dir string, patterns []string) error {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedFiles,
		Dir:  dir,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		return errors.New("no packages found")
	}

	var failed []string
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			failed = append(failed, fmt.Sprintf("%s: type check failed: %s", pkg.PkgPath, pkg.Errors[0]))
			continue
		}
		if err := check(pkg.Types); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", pkg.PkgPath, err))
			continue
		}
		fmt.Printf("ok %s\n", pkg.PkgPath)
	}
	if len(failed) > 0 {
		return errors.New(strings.Join(failed, "\n"))
	}
	return nil
}

// check verifies pkg is a main package exporting an sdk.Registration (or a
// pointer to one) under the name the loader looks up.
func check(pkg *types.Package) error {
	if pkg == nil {
		return errors.New("missing type information")
	}
	if pkg.Name() != "main" {
		return fmt.Errorf("package is %q, plugins must be package main", pkg.Name())
	}

	obj := pkg.Scope().Lookup(sdk.Symbol)
	if obj == nil {
		return fmt.Errorf("%s is not declared", sdk.Symbol)
	}
	v, ok := obj.(*types.Var)
	if !ok {
		return fmt.Errorf("%s must be a package-level variable", sdk.Symbol)
	}
	if !isRegistration(v.Type()) {
		return fmt.Errorf("%s has type %s, want %s.Registration", sdk.Symbol, v.Type(), sdkPath)
	}
	return nil
}

func isRegistration(t types.Type) bool {
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == sdkPath && obj.Name() == "Registration"
}
