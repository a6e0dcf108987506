package compiler

import (
	"fmt"
	"strings"

	"github.com/KajizukaTaichi/mystia/ast"
)

// InferBlock threads InferStmt across every statement in order and
// reports the last statement's type as the block's own: a block
// evaluates to its last statement's value.
func (c *Context) InferBlock(b *ast.Block) (*ast.Type, error) {
	last := primitive(ast.KindVoid)
	for _, s := range b.Stmts {
		t, err := c.InferStmt(s)
		if err != nil {
			return nil, err
		}
		last = t
	}
	return last, nil
}

// CompileBlock emits each statement in order, inserting a `drop` around
// any non-last statement whose result is non-Void, since only the final
// statement's value is kept. Declarations (Let function/type/macro/import
// registrations) emit no code of their own and are skipped rather than
// wrapped.
func (c *Context) CompileBlock(b *ast.Block) (string, *ast.Type, error) {
	lastType := primitive(ast.KindVoid)
	var parts []string
	for i, s := range b.Stmts {
		code, t, err := c.CompileStmt(s)
		if err != nil {
			return "", nil, err
		}
		lastType = t
		if code == "" {
			continue
		}
		if i != len(b.Stmts)-1 {
			resolved, err := c.ResolveType(t, nil)
			if err != nil {
				return "", nil, err
			}
			if resolved.Kind != ast.KindVoid {
				code = fmt.Sprintf("(drop %s)", code)
			}
		}
		parts = append(parts, code)
	}
	return strings.Join(parts, " "), lastType, nil
}
