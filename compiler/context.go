// Package compiler implements Mystia's type checker and code emitter: the
// "infer+emit" pass that walks the ast package's pure-data trees against a
// single mutable Context. Unlike ast (which gives each node its own Parse
// function), compiler dispatches by type switch over ast.Expr/ast.Stmt,
// since ast must stay free of any dependency on compiler (Parse needs no
// Context) while compiler needs the full node set to thread one.
package compiler

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/KajizukaTaichi/mystia/ast"
	"github.com/KajizukaTaichi/mystia/macro"
)

// Function records a declared function's signature: its ordered
// parameters, inferred/declared return type, and the local variable
// environment captured at the point its body finished inferring (kept
// only for diagnostics; it plays no role once the function is emitted).
type Function struct {
	Arguments *orderedmap.OrderedMap[string, *ast.Type]
	Variables *orderedmap.OrderedMap[string, *ast.Type]
	Returns   *ast.Type
}

// AliasEntry is a registered "type NAME(params) = T" declaration.
type AliasEntry struct {
	Params []string
	Type   *ast.Type
}

// loopFrame names the WAT labels a break/next inside a while targets.
type loopFrame struct {
	outer string
	start string
}

// Context is Mystia's single mutable compilation context: the bump
// allocator cursor, the ordered emit buffers, the macro and alias tables,
// the function/variable/argument environments, and the single error slot.
// Every Infer/Compile function in this package takes a *Context
// explicitly; it is never a global or thread-local, so a caller can run
// independent compilations concurrently as long as each uses its own
// Context.
type Context struct {
	Allocator int32

	ImportCode  []string
	StaticData  []string
	DeclareCode []string
	declaredFn  map[string]bool // dedupes DeclareCode: at most one entry per function name
	declaredImp map[string]bool // dedupes ImportCode: a runtime extern is imported once

	Macros *macro.Table
	Alias  map[string]*AliasEntry

	VariableType *orderedmap.OrderedMap[string, *ast.Type]
	GlobalType   *orderedmap.OrderedMap[string, *ast.Type]
	ArgumentType *orderedmap.OrderedMap[string, *ast.Type]
	FunctionType map[string]*Function
	ExportType   map[string]*Function

	ProgramReturn *ast.Type

	// Err is the first error encountered by any Infer/Compile call during
	// this Context's lifetime; later errors are dropped so the first
	// failure's message wins. Every call in this package also returns the
	// same error through its ordinary (T, error) result; Err exists so the
	// driver can still report "the" compiler error after a deeply nested
	// call chain has already unwound.
	Err error

	loopStack    []loopFrame
	labelCounter int
}

// NewContext returns a freshly initialized, empty compilation context.
func NewContext() *Context {
	return &Context{
		declaredFn:   map[string]bool{},
		declaredImp:  map[string]bool{},
		Macros:       macro.NewTable(),
		Alias:        map[string]*AliasEntry{},
		VariableType: orderedmap.New[string, *ast.Type](),
		GlobalType:   orderedmap.New[string, *ast.Type](),
		ArgumentType: orderedmap.New[string, *ast.Type](),
		FunctionType: map[string]*Function{},
		ExportType:   map[string]*Function{},
	}
}

// fail records err in Err (first write wins) and returns it, so callers
// can write "return zero, ctx.fail(err)".
func (c *Context) fail(err error) error {
	if c.Err == nil {
		c.Err = err
	}
	return err
}

// reserve advances the bump allocator by n bytes and returns the address
// the reservation starts at.
func (c *Context) reserve(n int32) int32 {
	addr := c.Allocator
	c.Allocator += n
	return addr
}

// saveEnv/restoreEnv implement the save-and-restore discipline that scopes
// VariableType/ArgumentType to a single function body: the caller
// snapshots both maps, lets the nested traversal mutate the live ones
// freely, then writes the snapshot back.
type envSnapshot struct {
	vars *orderedmap.OrderedMap[string, *ast.Type]
	args *orderedmap.OrderedMap[string, *ast.Type]
}

func (c *Context) saveEnv() envSnapshot {
	return envSnapshot{vars: c.VariableType, args: c.ArgumentType}
}

func (c *Context) enterFunctionEnv() {
	c.VariableType = orderedmap.New[string, *ast.Type]()
	c.ArgumentType = orderedmap.New[string, *ast.Type]()
}

func (c *Context) restoreEnv(snap envSnapshot) {
	c.VariableType = snap.vars
	c.ArgumentType = snap.args
}

func (c *Context) pushLoop(outer, start string) { c.loopStack = append(c.loopStack, loopFrame{outer, start}) }
func (c *Context) popLoop()                     { c.loopStack = c.loopStack[:len(c.loopStack)-1] }
func (c *Context) currentLoop() (loopFrame, bool) {
	if len(c.loopStack) == 0 {
		return loopFrame{}, false
	}
	return c.loopStack[len(c.loopStack)-1], true
}

func (c *Context) newLabel(prefix string) string {
	c.labelCounter++
	return fmt.Sprintf("$%s_%d", prefix, c.labelCounter)
}

// newTempLocal declares a fresh compiler-internal i32 local (used by
// MemCpy to hold the destination address computed before $allocator is
// bumped) by registering it into VariableType under a name no source
// identifier can collide with, so it rides along with every other local
// when the function's LOCALS section is assembled.
func (c *Context) newTempLocal() string {
	c.labelCounter++
	name := fmt.Sprintf("$memcpy_%d", c.labelCounter)
	c.VariableType.Set(name, primitive(ast.KindInteger))
	return name
}

// ensureImport appends a host import declaration once per distinct
// function name ($name): the runtime externs ($concat, $strcmp, $to_str,
// $to_num, $strlen) and every signature of a "load" statement.
func (c *Context) ensureImport(name, wasmName, sig string) {
	if c.declaredImp[name] {
		return
	}
	c.declaredImp[name] = true
	c.ImportCode = append(c.ImportCode,
		fmt.Sprintf(`(import "env" %q (func $%s %s))`, wasmName, name, sig))
}
