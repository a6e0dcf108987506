// Package macro implements Mystia's macro table and the textual
// substitution step used to expand a macro call into inline code. A
// macro is a single named expression template: its definition is
// registered once, and each call site expands by inlining the compiled
// body and substituting the compiled form of each argument for its
// parameter's emitted local-get form.
package macro

import (
	"fmt"
	"strings"

	"github.com/KajizukaTaichi/mystia/ast"
)

// Def is one registered macro's parameter list and body expression.
type Def struct {
	Params []string
	Body   ast.Expr
}

// Table is the name-to-Def registry threaded through a compilation
// (Context.Macros).
type Table struct {
	defs map[string]Def
}

// NewTable returns an empty macro table.
func NewTable() *Table {
	return &Table{defs: map[string]Def{}}
}

// Define registers a macro, overwriting any prior definition of the same
// name (source-encounter order wins, matching every other registration
// table in Context).
func (t *Table) Define(name string, params []string, body ast.Expr) {
	t.defs[name] = Def{Params: params, Body: body}
}

// Lookup returns the macro named name, if any.
func (t *Table) Lookup(name string) (Def, bool) {
	d, ok := t.defs[name]
	return d, ok
}

// Expand replaces every occurrence of the emitted local-get form of a
// macro parameter with the caller-supplied replacement text. Substitution
// is purely textual over already-emitted WAT, run once per parameter
// after the macro body has been compiled against placeholder argument
// bindings — it is not hygienic against local-name collisions at the
// call site: callers must not shadow a macro's parameter names where it
// is expanded.
func Expand(body, param, replacement string) string {
	placeholder := fmt.Sprintf("(local.get $%s)", param)
	return strings.ReplaceAll(body, placeholder, replacement)
}
