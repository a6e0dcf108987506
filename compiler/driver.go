// Package compiler's driver.go assembles the final textual module.
package compiler

import (
	"fmt"
	"strings"

	"github.com/KajizukaTaichi/mystia/ast"
)

// Build runs the full pipeline over a source program: parse, infer
// (side-registering functions/aliases/macros/imports), compile, and
// module assembly. It returns the textual WAT module and the entry
// block's inferred type (program_return).
func Build(source string) (string, *ast.Type, error) {
	block, err := ast.ParseBlock(source)
	if err != nil {
		return "", nil, err
	}

	ctx := NewContext()

	programReturn, err := ctx.InferBlock(block)
	if err != nil {
		return "", nil, ctx.Err
	}
	ctx.ProgramReturn = programReturn

	entryBody, _, err := ctx.CompileBlock(block)
	if err != nil {
		return "", nil, ctx.Err
	}

	module, err := ctx.assemble(entryBody, programReturn)
	if err != nil {
		return "", nil, err
	}
	return module, programReturn, nil
}

// assemble produces the module skeleton: import header, linear memory,
// the allocator global, the malloc bump-allocator helper, the data
// section, declared functions, module-level globals, and the `_start`
// entry point.
func (c *Context) assemble(entryBody string, programReturn *ast.Type) (string, error) {
	var b strings.Builder
	b.WriteString("(module\n")

	for _, imp := range c.ImportCode {
		fmt.Fprintf(&b, "  %s\n", imp)
	}

	b.WriteString(`  (memory $mem (export "mem") 64)` + "\n")
	fmt.Fprintf(&b, "  (global $allocator (export \"allocator\") (mut i32) (i32.const %d))\n", c.Allocator)
	b.WriteString("  (func (export \"malloc\") (param $size i32) (result i32)\n")
	b.WriteString("    (global.get $allocator)\n")
	b.WriteString("    (global.set $allocator (i32.add (global.get $allocator) (local.get $size))))\n")

	for _, data := range c.StaticData {
		fmt.Fprintf(&b, "  %s\n", data)
	}

	for _, decl := range c.DeclareCode {
		fmt.Fprintf(&b, "  %s\n", decl)
	}

	for pair := c.GlobalType.Oldest(); pair != nil; pair = pair.Next() {
		wt, err := WasmType(pair.Value)
		if err != nil {
			return "", fmt.Errorf("global %s: %w", pair.Key, err)
		}
		fmt.Fprintf(&b, "  (global $%s (mut %s) (%s.const 0))\n", pair.Key, wt, wt)
	}

	resultClause := ""
	if programReturn.Kind != ast.KindVoid {
		wt, err := WasmType(programReturn)
		if err != nil {
			return "", fmt.Errorf("entry result: %w", err)
		}
		resultClause = fmt.Sprintf(" (result %s)", wt)
	}

	var localParts []string
	for pair := c.VariableType.Oldest(); pair != nil; pair = pair.Next() {
		wt, err := WasmType(pair.Value)
		if err != nil {
			return "", fmt.Errorf("entry local %s: %w", pair.Key, err)
		}
		name := pair.Key
		if !strings.HasPrefix(name, "$") {
			name = "$" + name
		}
		localParts = append(localParts, fmt.Sprintf("(local %s %s)", name, wt))
	}

	fmt.Fprintf(&b, "  (func (export \"_start\")%s %s %s)\n",
		resultClause, strings.Join(localParts, " "), entryBody)

	b.WriteString(")")
	return b.String(), nil
}
