package compiler

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/KajizukaTaichi/mystia/ast"
	"github.com/KajizukaTaichi/mystia/macro"
)

// InferExpr computes an expression's type under the current environments
// without emitting anything, dispatching by type switch over every Expr
// variant. Inference and emission are kept as two separate passes over
// the tree rather than interleaved.
func (c *Context) InferExpr(e ast.Expr) (*ast.Type, error) {
	switch n := e.(type) {
	case *ast.Value:
		return c.InferValue(n)

	case *ast.Variable:
		if t, ok := c.ArgumentType.Get(n.Name); ok {
			return t, nil
		}
		if t, ok := c.VariableType.Get(n.Name); ok {
			return t, nil
		}
		if t, ok := c.GlobalType.Get(n.Name); ok {
			return t, nil
		}
		return nil, c.fail(fmt.Errorf("undefined variable `%s`", n.Name))

	case *ast.Op:
		return c.InferOp(n)

	case *ast.Call:
		return c.inferCall(n)

	case *ast.Index:
		baseType, err := c.InferExpr(n.Base)
		if err != nil {
			return nil, err
		}
		resolved, err := c.ResolveType(baseType, nil)
		if err != nil {
			return nil, err
		}
		if resolved.Kind != ast.KindArray {
			return nil, c.fail(fmt.Errorf("can't index access to %s", c.formatType(resolved)))
		}
		if _, err := c.InferExpr(n.Index); err != nil {
			return nil, err
		}
		return resolved.Elem, nil

	case *ast.Field:
		baseType, err := c.InferExpr(n.Base)
		if err != nil {
			return nil, err
		}
		resolved, err := c.ResolveType(baseType, nil)
		if err != nil {
			return nil, err
		}
		if resolved.Kind != ast.KindDict {
			return nil, c.fail(fmt.Errorf("can't field access to %s", c.formatType(resolved)))
		}
		f, ok := resolved.Fields.Get(n.Name)
		if !ok {
			return nil, c.fail(fmt.Errorf("%s haven't field `%s`", c.formatType(resolved), n.Name))
		}
		return f.Type, nil

	case *ast.BlockExpr:
		return c.InferBlock(n.Block)

	case *ast.MemCpy:
		t, err := c.InferExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		resolved, err := c.ResolveType(t, nil)
		if err != nil {
			return nil, err
		}
		if !isReferenceType(resolved) {
			return nil, c.fail(fmt.Errorf("can't memory copy primitive typed value"))
		}
		return resolved, nil

	case *ast.MemLoad:
		if _, err := c.InferExpr(n.Address); err != nil {
			return nil, err
		}
		return c.ResolveType(n.Type, nil)

	case *ast.IfExpr:
		return c.inferIf(n)

	case *ast.WhileExpr:
		if _, err := c.InferExpr(n.Cond); err != nil {
			return nil, err
		}
		if _, err := c.InferExpr(n.Body); err != nil {
			return nil, err
		}
		return primitive(ast.KindVoid), nil
	}
	return nil, c.fail(fmt.Errorf("cannot infer type of unknown expression node"))
}

func (c *Context) inferCall(n *ast.Call) (*ast.Type, error) {
	if fn, ok := c.FunctionType[n.Name]; ok {
		if len(n.Args) != fn.Arguments.Len() {
			return nil, c.fail(fmt.Errorf(
				"arguments of function `%s` length should be %d, but passed %d values",
				n.Name, fn.Arguments.Len(), len(n.Args)))
		}
		pair := fn.Arguments.Oldest()
		for _, a := range n.Args {
			got, err := c.InferExpr(a)
			if err != nil {
				return nil, err
			}
			want, err := c.ResolveType(pair.Value, nil)
			if err != nil {
				return nil, err
			}
			gotResolved, err := c.ResolveType(got, nil)
			if err != nil {
				return nil, err
			}
			if !typesEqual(want, gotResolved) {
				return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(want), c.formatType(gotResolved)))
			}
			pair = pair.Next()
		}
		return fn.Returns, nil
	}

	if def, ok := c.Macros.Lookup(n.Name); ok {
		if len(n.Args) != len(def.Params) {
			return nil, c.fail(fmt.Errorf(
				"arguments of function `%s` length should be %d, but passed %d values",
				n.Name, len(def.Params), len(n.Args)))
		}
		orig := c.VariableType
		tmp := copyVarEnv(orig)
		for i, p := range def.Params {
			t, err := c.InferExpr(n.Args[i])
			if err != nil {
				c.VariableType = orig
				return nil, err
			}
			tmp.Set(p, t)
		}
		c.VariableType = tmp
		bodyType, err := c.InferExpr(def.Body)
		c.VariableType = orig
		return bodyType, err
	}

	return nil, c.fail(fmt.Errorf("function or macro `%s` is not defined", n.Name))
}

func (c *Context) inferIf(n *ast.IfExpr) (*ast.Type, error) {
	condType, err := c.InferExpr(n.Cond)
	if err != nil {
		return nil, err
	}
	if condType.Kind != ast.KindBool {
		return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(condType), "bool"))
	}
	thenType, err := c.InferExpr(n.Then)
	if err != nil {
		return nil, err
	}
	if n.Else == nil {
		return primitive(ast.KindVoid), nil
	}
	elseType, err := c.InferExpr(n.Else)
	if err != nil {
		return nil, err
	}
	rt, err := c.ResolveType(thenType, nil)
	if err != nil {
		return nil, err
	}
	re, err := c.ResolveType(elseType, nil)
	if err != nil {
		return nil, err
	}
	if !typesEqual(rt, re) {
		return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(thenType), c.formatType(elseType)))
	}
	return thenType, nil
}

func copyVarEnv(orig *orderedmap.OrderedMap[string, *ast.Type]) *orderedmap.OrderedMap[string, *ast.Type] {
	out := orderedmap.New[string, *ast.Type]()
	for pair := orig.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}

// CompileExpr emits an expression, dispatching by the same type switch as
// InferExpr.
func (c *Context) CompileExpr(e ast.Expr) (string, *ast.Type, error) {
	switch n := e.(type) {
	case *ast.Value:
		return c.CompileValue(n)

	case *ast.Variable:
		if t, ok := c.ArgumentType.Get(n.Name); ok {
			return fmt.Sprintf("(local.get $%s)", n.Name), t, nil
		}
		if t, ok := c.VariableType.Get(n.Name); ok {
			return fmt.Sprintf("(local.get $%s)", n.Name), t, nil
		}
		if t, ok := c.GlobalType.Get(n.Name); ok {
			return fmt.Sprintf("(global.get $%s)", n.Name), t, nil
		}
		return "", nil, c.fail(fmt.Errorf("undefined variable `%s`", n.Name))

	case *ast.Op:
		return c.CompileOp(n)

	case *ast.Call:
		return c.compileCall(n)

	case *ast.Index:
		return c.compileIndex(n)

	case *ast.Field:
		return c.compileField(n)

	case *ast.BlockExpr:
		return c.CompileBlock(n.Block)

	case *ast.MemCpy:
		return c.compileMemCpy(n)

	case *ast.MemLoad:
		addrCode, _, err := c.CompileExpr(n.Address)
		if err != nil {
			return "", nil, err
		}
		t, err := c.ResolveType(n.Type, nil)
		if err != nil {
			return "", nil, err
		}
		wt, err := WasmType(t)
		if err != nil {
			return "", nil, c.fail(err)
		}
		return fmt.Sprintf("(%s.load %s)", wt, addrCode), t, nil

	case *ast.IfExpr:
		return c.compileIf(n)

	case *ast.WhileExpr:
		return c.compileWhile(n)
	}
	return "", nil, c.fail(fmt.Errorf("cannot compile unknown expression node"))
}

func (c *Context) compileCall(n *ast.Call) (string, *ast.Type, error) {
	if fn, ok := c.FunctionType[n.Name]; ok {
		if len(n.Args) != fn.Arguments.Len() {
			return "", nil, c.fail(fmt.Errorf(
				"arguments of function `%s` length should be %d, but passed %d values",
				n.Name, fn.Arguments.Len(), len(n.Args)))
		}
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			code, _, err := c.CompileExpr(a)
			if err != nil {
				return "", nil, err
			}
			parts[i] = code
		}
		return fmt.Sprintf("(call $%s%s)", n.Name, joinArgs(parts)), fn.Returns, nil
	}

	if def, ok := c.Macros.Lookup(n.Name); ok {
		return c.expandMacro(n.Name, def, n.Args)
	}

	return "", nil, c.fail(fmt.Errorf("function or macro `%s` is not defined", n.Name))
}

func (c *Context) expandMacro(name string, def macro.Def, args []ast.Expr) (string, *ast.Type, error) {
	if len(args) != len(def.Params) {
		return "", nil, c.fail(fmt.Errorf(
			"arguments of function `%s` length should be %d, but passed %d values",
			name, len(def.Params), len(args)))
	}
	argCodes := make([]string, len(args))
	for i, a := range args {
		code, _, err := c.CompileExpr(a)
		if err != nil {
			return "", nil, err
		}
		argCodes[i] = code
	}

	orig := c.VariableType
	tmp := copyVarEnv(orig)
	for i, p := range def.Params {
		t, err := c.InferExpr(args[i])
		if err != nil {
			c.VariableType = orig
			return "", nil, err
		}
		tmp.Set(p, t)
	}
	c.VariableType = tmp
	bodyCode, bodyType, err := c.CompileExpr(def.Body)
	c.VariableType = orig
	if err != nil {
		return "", nil, err
	}

	for i, p := range def.Params {
		bodyCode = macro.Expand(bodyCode, p, argCodes[i])
	}
	return bodyCode, bodyType, nil
}

func joinArgs(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func (c *Context) compileIndex(n *ast.Index) (string, *ast.Type, error) {
	baseCode, baseType, err := c.CompileExpr(n.Base)
	if err != nil {
		return "", nil, err
	}
	resolved, err := c.ResolveType(baseType, nil)
	if err != nil {
		return "", nil, err
	}
	if resolved.Kind != ast.KindArray {
		return "", nil, c.fail(fmt.Errorf("can't index access to %s", c.formatType(resolved)))
	}
	elemType, err := c.ResolveType(resolved.Elem, nil)
	if err != nil {
		return "", nil, err
	}
	indexCode, _, err := c.CompileExpr(n.Index)
	if err != nil {
		return "", nil, err
	}

	addrExpr := indexAddr(baseCode, elemType, indexCode)

	wt, err := WasmType(elemType)
	if err != nil {
		return "", nil, c.fail(err)
	}
	return fmt.Sprintf("(%s.load %s)", wt, addrExpr), elemType, nil
}

// indexAddr computes the element address "4 + base + (i mod length)·W",
// loading the array's length word from offset 0 of base at runtime since
// it isn't known at compile time.
func indexAddr(baseCode string, elemType *ast.Type, indexCode string) string {
	w := PointerLen(elemType)
	lenExpr := fmt.Sprintf("(i32.load %s)", baseCode)
	modExpr := fmt.Sprintf("(i32.rem_s %s %s)", indexCode, lenExpr)
	offsetExpr := fmt.Sprintf("(i32.mul %s (i32.const %d))", modExpr, w)
	return fmt.Sprintf("(i32.add (i32.add (i32.const 4) %s) %s)", baseCode, offsetExpr)
}

func fieldAddr(baseCode string, offset int) string {
	return fmt.Sprintf("(i32.add %s (i32.const %d))", baseCode, offset)
}

func (c *Context) compileField(n *ast.Field) (string, *ast.Type, error) {
	baseCode, baseType, err := c.CompileExpr(n.Base)
	if err != nil {
		return "", nil, err
	}
	resolved, err := c.ResolveType(baseType, nil)
	if err != nil {
		return "", nil, err
	}
	if resolved.Kind != ast.KindDict {
		return "", nil, c.fail(fmt.Errorf("can't field access to %s", c.formatType(resolved)))
	}
	f, ok := resolved.Fields.Get(n.Name)
	if !ok {
		return "", nil, c.fail(fmt.Errorf("%s haven't field `%s`", c.formatType(resolved), n.Name))
	}
	wt, err := WasmType(f.Type)
	if err != nil {
		return "", nil, c.fail(err)
	}
	return fmt.Sprintf("(%s.load %s)", wt, fieldAddr(baseCode, f.Offset)), f.Type, nil
}

// compileMemCpy emits a runtime memory.copy for the memcpy intrinsic.
// Unlike literal aggregates (compiled entirely at compile time against
// Context.Allocator), the copy
// destination is the WAT-level runtime global $allocator: the size of a
// string or array copy is only known once the program runs, so the
// allocator bump itself has to happen in emitted code rather than in the
// Go-side bump-allocator cursor. A temp local captures the destination
// address before $allocator advances.
func (c *Context) compileMemCpy(n *ast.MemCpy) (string, *ast.Type, error) {
	operandCode, operandType, err := c.CompileExpr(n.Operand)
	if err != nil {
		return "", nil, err
	}
	resolved, err := c.ResolveType(operandType, nil)
	if err != nil {
		return "", nil, err
	}
	if !isReferenceType(resolved) {
		return "", nil, c.fail(fmt.Errorf("can't memory copy primitive typed value"))
	}

	var size string
	switch resolved.Kind {
	case ast.KindDict:
		size = fmt.Sprintf("(i32.const %d)", DictByteLen(resolved))
	case ast.KindArray:
		elemW := PointerLen(resolved.Elem)
		size = fmt.Sprintf("(i32.add (i32.mul (i32.load %s) (i32.const %d)) (i32.const 4))", operandCode, elemW)
	case ast.KindString:
		c.ensureImport("strlen", "strlen", "(param i32) (result i32)")
		size = fmt.Sprintf("(i32.add (call $strlen %s) (i32.const 1))", operandCode)
	}

	tmp := c.newTempLocal()
	instrs := []string{
		fmt.Sprintf("(local.set %s (global.get $allocator))", tmp),
		fmt.Sprintf("(memory.copy (global.get $allocator) %s %s)", operandCode, size),
		fmt.Sprintf("(global.set $allocator (i32.add (global.get $allocator) %s))", size),
	}
	return seqBlock(instrs, fmt.Sprintf("(local.get %s)", tmp)), resolved, nil
}

func (c *Context) compileIf(n *ast.IfExpr) (string, *ast.Type, error) {
	condCode, condType, err := c.CompileExpr(n.Cond)
	if err != nil {
		return "", nil, err
	}
	if condType.Kind != ast.KindBool {
		return "", nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(condType), "bool"))
	}
	thenCode, thenType, err := c.CompileExpr(n.Then)
	if err != nil {
		return "", nil, err
	}

	resultType := primitive(ast.KindVoid)
	elseSuffix := ""
	if n.Else != nil {
		elseCode, elseType, err := c.CompileExpr(n.Else)
		if err != nil {
			return "", nil, err
		}
		rt, _ := c.ResolveType(thenType, nil)
		re, _ := c.ResolveType(elseType, nil)
		if !typesEqual(rt, re) {
			return "", nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(thenType), c.formatType(elseType)))
		}
		resultType = thenType
		elseSuffix = fmt.Sprintf(" (else %s)", elseCode)
	}

	resultAnnot := ""
	if resultType.Kind != ast.KindVoid {
		wt, err := WasmType(resultType)
		if err != nil {
			return "", nil, c.fail(err)
		}
		resultAnnot = fmt.Sprintf("(result %s) ", wt)
	}
	code := fmt.Sprintf("(if %s%s (then %s)%s)", resultAnnot, condCode, thenCode, elseSuffix)
	return code, resultType, nil
}

func (c *Context) compileWhile(n *ast.WhileExpr) (string, *ast.Type, error) {
	outer := c.newLabel("outer")
	start := c.newLabel("while_start")
	c.pushLoop(outer, start)
	condCode, condType, err := c.CompileExpr(n.Cond)
	if err != nil {
		c.popLoop()
		return "", nil, err
	}
	if condType.Kind != ast.KindBool {
		c.popLoop()
		return "", nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(condType), "bool"))
	}
	bodyCode, _, err := c.CompileExpr(n.Body)
	c.popLoop()
	if err != nil {
		return "", nil, err
	}
	code := fmt.Sprintf("(block %s (loop %s (br_if %s (i32.eqz %s)) %s (br %s)))",
		outer, start, outer, condCode, bodyCode, start)
	return code, primitive(ast.KindVoid), nil
}
