// Command synclint checks that the syscall table package keys exactly the
// set of numbers defs declares (spec §4.9's fixed dispatch table, Design
// Note "two syscall tables... unify to one dispatcher"): every declared
// defs.SYS_* constant must appear once as a sysc table key, with a single
// named exception for SYS_SIGRETURN, which sysc.Entry special-cases
// outside the table rather than dispatching through it.
package main

import (
	"fmt"
	"go/ast"
	"go/types"
	"os"

	"golang.org/x/tools/go/packages"
)

// specialCased lists defs.Syscall constant names handled outside the
// table literal in sysc.Entry, and so are expected to be absent from it.
var specialCased = map[string]bool{
	"SYS_SIGRETURN": true,
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "synclint:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedSyntax,
	}
	pkgs, err := packages.Load(cfg, "coalos/defs", "coalos/sysc")
	if err != nil {
		return err
	}
	if packages.PrintErrors(pkgs) > 0 {
		return fmt.Errorf("package load errors")
	}

	var defsPkg, syscPkg *packages.Package
	for _, p := range pkgs {
		switch p.PkgPath {
		case "coalos/defs":
			defsPkg = p
		case "coalos/sysc":
			syscPkg = p
		}
	}
	if defsPkg == nil || syscPkg == nil {
		return fmt.Errorf("could not locate both coalos/defs and coalos/sysc")
	}

	declared := declaredSyscalls(defsPkg)
	tabled := tableKeys(syscPkg)

	var problems []string
	for name := range declared {
		if specialCased[name] {
			continue
		}
		if !tabled[name] {
			problems = append(problems, "missing from sysc table: "+name)
		}
	}
	for name := range tabled {
		if !declared[name] {
			problems = append(problems, "table key not declared in defs: "+name)
		}
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(os.Stderr, p)
		}
		return fmt.Errorf("%d inconsistencies", len(problems))
	}
	fmt.Printf("synclint: %d syscalls consistent\n", len(declared))
	return nil
}

// declaredSyscalls walks defs's type-checked object set for every
// package-level const of type defs.Syscall.
func declaredSyscalls(pkg *packages.Package) map[string]bool {
	out := make(map[string]bool)
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		obj := scope.Lookup(name)
		c, ok := obj.(*types.Const)
		if !ok {
			continue
		}
		named, ok := c.Type().(*types.Named)
		if !ok || named.Obj().Name() != "Syscall" {
			continue
		}
		out[name] = true
	}
	return out
}

// tableKeys walks sysc.go's package-level `table = map[defs.Syscall]Handler{...}`
// composite literal and collects the `defs.SYS_*` selector names used as
// its keys — inspecting the syntax directly since the map's value is built
// at init() time, not statically representable as a constant set.
func tableKeys(pkg *packages.Package) map[string]bool {
	out := make(map[string]bool)
	for _, file := range pkg.Syntax {
		ast.Inspect(file, func(n ast.Node) bool {
			cl, ok := n.(*ast.CompositeLit)
			if !ok {
				return true
			}
			for _, elt := range cl.Elts {
				kv, ok := elt.(*ast.KeyValueExpr)
				if !ok {
					continue
				}
				sel, ok := kv.Key.(*ast.SelectorExpr)
				if !ok {
					continue
				}
				out[sel.Sel.Name] = true
			}
			return true
		})
	}
	return out
}
