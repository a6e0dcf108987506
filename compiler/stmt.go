package compiler

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/KajizukaTaichi/mystia/ast"
)

// InferStmt computes a statement's result type (Void for anything but a
// bare expression or a return with a value) and side-registers any function, alias,
// macro, or import it declares into the Context.
func (c *Context) InferStmt(s ast.Stmt) (*ast.Type, error) {
	switch n := s.(type) {
	case *ast.Let:
		return c.inferLet(n)
	case *ast.TypeDecl:
		c.RegisterAlias(n.Name, n.Params, n.Type)
		return primitive(ast.KindVoid), nil
	case *ast.MacroDef:
		c.Macros.Define(n.Name, n.Params, n.Body)
		return primitive(ast.KindVoid), nil
	case *ast.Import:
		return c.inferImport(n)
	case *ast.ExprStmt:
		return c.InferExpr(n.Expr)
	case *ast.ReturnStmt:
		if n.Value == nil {
			return primitive(ast.KindVoid), nil
		}
		return c.InferExpr(n.Value)
	case *ast.NextStmt, *ast.BreakStmt:
		return primitive(ast.KindVoid), nil
	}
	return nil, c.fail(fmt.Errorf("cannot infer type of unknown statement"))
}

// asFunctionDef recognizes a Let's LHS as a function-definition pattern:
// a bare Call (the parameter list) or a Cast-wrapped Call carrying an
// explicit return-type annotation.
func asFunctionDef(lhs ast.Expr) (call *ast.Call, explicitReturn *ast.Type, ok bool) {
	if call, ok := lhs.(*ast.Call); ok {
		return call, nil, true
	}
	if op, ok := lhs.(*ast.Op); ok && op.Kind == ast.OpCast {
		if call, ok2 := op.LHS.(*ast.Call); ok2 {
			return call, op.Type, true
		}
	}
	return nil, nil, false
}

// extractParams reads a function-definition Call's argument list, each
// of which must be a "name: Type" cast expression.
func extractParams(call *ast.Call) (names []string, types []*ast.Type, err error) {
	for _, a := range call.Args {
		op, ok := a.(*ast.Op)
		if !ok || op.Kind != ast.OpCast || op.Type == nil {
			return nil, nil, fmt.Errorf("function parameter must be annotated as 'name: Type'")
		}
		v, ok := op.LHS.(*ast.Variable)
		if !ok {
			return nil, nil, fmt.Errorf("function parameter must be annotated as 'name: Type'")
		}
		names = append(names, v.Name)
		types = append(types, op.Type)
	}
	return names, types, nil
}

func (c *Context) inferLet(n *ast.Let) (*ast.Type, error) {
	if call, explicitReturn, ok := asFunctionDef(n.LHS); ok {
		return c.inferFunctionDef(n.Scope, call, explicitReturn, n.RHS)
	}

	switch lhs := n.LHS.(type) {
	case *ast.Variable:
		t, err := c.InferExpr(n.RHS)
		if err != nil {
			return nil, err
		}
		if n.Scope == ast.ScopeGlobal {
			c.GlobalType.Set(lhs.Name, t)
		} else if _, isArg := c.ArgumentType.Get(lhs.Name); !isArg {
			c.VariableType.Set(lhs.Name, t)
		}
		return primitive(ast.KindVoid), nil

	case *ast.Op:
		v, ok := lhs.LHS.(*ast.Variable)
		if lhs.Kind != ast.OpCast || !ok {
			return nil, c.fail(fmt.Errorf("invalid assignment target"))
		}
		return c.inferAnnotatedVariable(n.Scope, v, lhs.Type, n.RHS)

	case *ast.Index:
		elemType, err := c.inferIndexTarget(lhs)
		if err != nil {
			return nil, err
		}
		rhsType, err := c.InferExpr(n.RHS)
		if err != nil {
			return nil, err
		}
		re, err := c.ResolveType(rhsType, nil)
		if err != nil {
			return nil, err
		}
		rElem, err := c.ResolveType(elemType, nil)
		if err != nil {
			return nil, err
		}
		if !typesEqual(rElem, re) {
			return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(elemType), c.formatType(rhsType)))
		}
		return primitive(ast.KindVoid), nil

	case *ast.Field:
		fieldType, err := c.inferFieldTarget(lhs)
		if err != nil {
			return nil, err
		}
		rhsType, err := c.InferExpr(n.RHS)
		if err != nil {
			return nil, err
		}
		re, err := c.ResolveType(rhsType, nil)
		if err != nil {
			return nil, err
		}
		rField, err := c.ResolveType(fieldType, nil)
		if err != nil {
			return nil, err
		}
		if !typesEqual(rField, re) {
			return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(fieldType), c.formatType(rhsType)))
		}
		return primitive(ast.KindVoid), nil
	}

	return nil, c.fail(fmt.Errorf("invalid assignment target"))
}

// inferAnnotatedVariable handles "let name: Type = rhs": the declared
// type wins over whatever the initializer's own value would otherwise
// infer to, after checking the initializer is assignable to it.
func (c *Context) inferAnnotatedVariable(scope ast.Scope, v *ast.Variable, annotation *ast.Type, rhs ast.Expr) (*ast.Type, error) {
	target, err := c.ResolveType(annotation, nil)
	if err != nil {
		return nil, err
	}
	rhsType, err := c.InferExpr(rhs)
	if err != nil {
		return nil, err
	}
	resolvedRhs, err := c.ResolveType(rhsType, nil)
	if err != nil {
		return nil, err
	}
	if !typeAssignable(target, resolvedRhs) {
		return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(target), c.formatType(rhsType)))
	}
	if scope == ast.ScopeGlobal {
		c.GlobalType.Set(v.Name, target)
	} else if _, isArg := c.ArgumentType.Get(v.Name); !isArg {
		c.VariableType.Set(v.Name, target)
	}
	return primitive(ast.KindVoid), nil
}

func (c *Context) inferIndexTarget(lhs *ast.Index) (*ast.Type, error) {
	baseType, err := c.InferExpr(lhs.Base)
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
	if _, err := c.InferExpr(lhs.Index); err != nil {
		return nil, err
	}
	return resolved.Elem, nil
}

func (c *Context) inferFieldTarget(lhs *ast.Field) (*ast.Type, error) {
	baseType, err := c.InferExpr(lhs.Base)
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
	f, ok := resolved.Fields.Get(lhs.Name)
	if !ok {
		return nil, c.fail(fmt.Errorf("%s haven't field `%s`", c.formatType(resolved), lhs.Name))
	}
	return f.Type, nil
}

func (c *Context) inferFunctionDef(scope ast.Scope, call *ast.Call, explicitReturn *ast.Type, rhs ast.Expr) (*ast.Type, error) {
	names, types, err := extractParams(call)
	if err != nil {
		return nil, c.fail(err)
	}

	snap := c.saveEnv()
	c.enterFunctionEnv()

	args := orderedmap.New[string, *ast.Type]()
	for i, name := range names {
		rt, err := c.ResolveType(types[i], nil)
		if err != nil {
			c.restoreEnv(snap)
			return nil, err
		}
		c.ArgumentType.Set(name, rt)
		args.Set(name, rt)
	}

	var returns *ast.Type
	if explicitReturn != nil {
		rt, err := c.ResolveType(explicitReturn, nil)
		if err != nil {
			c.restoreEnv(snap)
			return nil, err
		}
		returns = rt
		// Registered before the body is inferred so a recursive call resolves.
		c.FunctionType[call.Name] = &Function{Arguments: args, Variables: orderedmap.New[string, *ast.Type](), Returns: rt}
	}

	bodyType, err := c.InferExpr(rhs)
	if err != nil {
		c.restoreEnv(snap)
		return nil, err
	}
	if returns == nil {
		returns = bodyType
	}

	fn := &Function{Arguments: args, Variables: copyVarEnv(c.VariableType), Returns: returns}
	c.FunctionType[call.Name] = fn
	if scope == ast.ScopeGlobal {
		c.ExportType[call.Name] = fn
	}

	c.restoreEnv(snap)
	return primitive(ast.KindVoid), nil
}

func (c *Context) inferImport(n *ast.Import) (*ast.Type, error) {
	for _, sig := range n.Sigs {
		args := orderedmap.New[string, *ast.Type]()
		for i, p := range sig.Params {
			rt, err := c.ResolveType(p, nil)
			if err != nil {
				return nil, err
			}
			args.Set(fmt.Sprintf("_%d", i), rt)
		}
		ret := primitive(ast.KindVoid)
		if sig.Return != nil {
			rt, err := c.ResolveType(sig.Return, nil)
			if err != nil {
				return nil, err
			}
			ret = rt
		}
		c.FunctionType[sig.Alias] = &Function{Arguments: args, Variables: orderedmap.New[string, *ast.Type](), Returns: ret}
	}
	return primitive(ast.KindVoid), nil
}

// CompileStmt emits a statement, dispatching by its concrete type.
func (c *Context) CompileStmt(s ast.Stmt) (string, *ast.Type, error) {
	switch n := s.(type) {
	case *ast.Let:
		return c.compileLet(n)
	case *ast.TypeDecl:
		return "", primitive(ast.KindVoid), nil
	case *ast.MacroDef:
		return "", primitive(ast.KindVoid), nil
	case *ast.Import:
		return c.compileImport(n)
	case *ast.ExprStmt:
		return c.CompileExpr(n.Expr)
	case *ast.ReturnStmt:
		if n.Value == nil {
			return "(return)", primitive(ast.KindVoid), nil
		}
		code, t, err := c.CompileExpr(n.Value)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(return %s)", code), t, nil
	case *ast.NextStmt:
		loop, ok := c.currentLoop()
		if !ok {
			return "", nil, c.fail(fmt.Errorf("'next' outside a while loop"))
		}
		return fmt.Sprintf("(br %s)", loop.start), primitive(ast.KindVoid), nil
	case *ast.BreakStmt:
		loop, ok := c.currentLoop()
		if !ok {
			return "", nil, c.fail(fmt.Errorf("'break' outside a while loop"))
		}
		return fmt.Sprintf("(br %s)", loop.outer), primitive(ast.KindVoid), nil
	}
	return "", nil, c.fail(fmt.Errorf("cannot compile unknown statement"))
}

func (c *Context) compileLet(n *ast.Let) (string, *ast.Type, error) {
	if call, explicitReturn, ok := asFunctionDef(n.LHS); ok {
		return c.compileFunctionDef(n.Scope, call, explicitReturn, n.RHS)
	}

	switch lhs := n.LHS.(type) {
	case *ast.Variable:
		rhsCode, rhsType, err := c.CompileExpr(n.RHS)
		if err != nil {
			return "", nil, err
		}
		if n.Scope == ast.ScopeGlobal {
			c.GlobalType.Set(lhs.Name, rhsType)
			return fmt.Sprintf("(global.set $%s %s)", lhs.Name, rhsCode), primitive(ast.KindVoid), nil
		}
		if _, isArg := c.ArgumentType.Get(lhs.Name); !isArg {
			c.VariableType.Set(lhs.Name, rhsType)
		}
		return fmt.Sprintf("(local.set $%s %s)", lhs.Name, rhsCode), primitive(ast.KindVoid), nil

	case *ast.Op:
		v, ok := lhs.LHS.(*ast.Variable)
		if lhs.Kind != ast.OpCast || !ok {
			return "", nil, c.fail(fmt.Errorf("invalid assignment target"))
		}
		return c.compileAnnotatedVariable(n.Scope, v, lhs.Type, n.RHS)

	case *ast.Index:
		return c.compileIndexStore(lhs, n.RHS)

	case *ast.Field:
		return c.compileFieldStore(lhs, n.RHS)
	}

	return "", nil, c.fail(fmt.Errorf("invalid assignment target"))
}

// compileAnnotatedVariable mirrors inferAnnotatedVariable for emission:
// the declared type (not the initializer's own type) is what gets
// registered, so later references see the annotation.
func (c *Context) compileAnnotatedVariable(scope ast.Scope, v *ast.Variable, annotation *ast.Type, rhs ast.Expr) (string, *ast.Type, error) {
	target, err := c.ResolveType(annotation, nil)
	if err != nil {
		return "", nil, err
	}
	rhsCode, _, err := c.CompileExpr(rhs)
	if err != nil {
		return "", nil, err
	}
	if scope == ast.ScopeGlobal {
		c.GlobalType.Set(v.Name, target)
		return fmt.Sprintf("(global.set $%s %s)", v.Name, rhsCode), primitive(ast.KindVoid), nil
	}
	if _, isArg := c.ArgumentType.Get(v.Name); !isArg {
		c.VariableType.Set(v.Name, target)
	}
	return fmt.Sprintf("(local.set $%s %s)", v.Name, rhsCode), primitive(ast.KindVoid), nil
}

func (c *Context) compileIndexStore(lhs *ast.Index, rhs ast.Expr) (string, *ast.Type, error) {
	baseCode, baseType, err := c.CompileExpr(lhs.Base)
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
	indexCode, _, err := c.CompileExpr(lhs.Index)
	if err != nil {
		return "", nil, err
	}
	rhsCode, rhsType, err := c.CompileExpr(rhs)
	if err != nil {
		return "", nil, err
	}
	re, err := c.ResolveType(rhsType, nil)
	if err != nil {
		return "", nil, err
	}
	if !typesEqual(elemType, re) {
		return "", nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(elemType), c.formatType(rhsType)))
	}

	wt, err := WasmType(elemType)
	if err != nil {
		return "", nil, c.fail(err)
	}
	addr := indexAddr(baseCode, elemType, indexCode)
	return fmt.Sprintf("(%s.store %s %s)", wt, addr, rhsCode), primitive(ast.KindVoid), nil
}

func (c *Context) compileFieldStore(lhs *ast.Field, rhs ast.Expr) (string, *ast.Type, error) {
	baseCode, baseType, err := c.CompileExpr(lhs.Base)
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
	f, ok := resolved.Fields.Get(lhs.Name)
	if !ok {
		return "", nil, c.fail(fmt.Errorf("%s haven't field `%s`", c.formatType(resolved), lhs.Name))
	}
	rhsCode, rhsType, err := c.CompileExpr(rhs)
	if err != nil {
		return "", nil, err
	}
	re, err := c.ResolveType(rhsType, nil)
	if err != nil {
		return "", nil, err
	}
	rField, err := c.ResolveType(f.Type, nil)
	if err != nil {
		return "", nil, err
	}
	if !typesEqual(rField, re) {
		return "", nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(f.Type), c.formatType(rhsType)))
	}

	wt, err := WasmType(f.Type)
	if err != nil {
		return "", nil, c.fail(err)
	}
	return fmt.Sprintf("(%s.store %s %s)", wt, fieldAddr(baseCode, f.Offset), rhsCode), primitive(ast.KindVoid), nil
}

func (c *Context) compileFunctionDef(scope ast.Scope, call *ast.Call, explicitReturn *ast.Type, rhs ast.Expr) (string, *ast.Type, error) {
	names, types, err := extractParams(call)
	if err != nil {
		return "", nil, c.fail(err)
	}

	snap := c.saveEnv()
	c.enterFunctionEnv()

	args := orderedmap.New[string, *ast.Type]()
	var paramParts []string
	for i, name := range names {
		rt, err := c.ResolveType(types[i], nil)
		if err != nil {
			c.restoreEnv(snap)
			return "", nil, err
		}
		c.ArgumentType.Set(name, rt)
		args.Set(name, rt)
		wt, err := WasmType(rt)
		if err != nil {
			c.restoreEnv(snap)
			return "", nil, c.fail(err)
		}
		paramParts = append(paramParts, fmt.Sprintf("(param $%s %s)", name, wt))
	}

	bodyCode, bodyType, err := c.CompileExpr(rhs)
	if err != nil {
		c.restoreEnv(snap)
		return "", nil, err
	}

	returns := bodyType
	if explicitReturn != nil {
		rt, err := c.ResolveType(explicitReturn, nil)
		if err != nil {
			c.restoreEnv(snap)
			return "", nil, err
		}
		returns = rt
	}

	var localParts []string
	for pair := c.VariableType.Oldest(); pair != nil; pair = pair.Next() {
		wt, err := WasmType(pair.Value)
		if err != nil {
			c.restoreEnv(snap)
			return "", nil, c.fail(err)
		}
		name := pair.Key
		if !strings.HasPrefix(name, "$") {
			name = "$" + name
		}
		localParts = append(localParts, fmt.Sprintf("(local %s %s)", name, wt))
	}

	pieces := []string{"$" + call.Name}
	if scope == ast.ScopeGlobal {
		pieces = append(pieces, fmt.Sprintf(`(export "%s")`, call.Name))
	}
	pieces = append(pieces, paramParts...)
	if returns.Kind != ast.KindVoid {
		wt, err := WasmType(returns)
		if err != nil {
			c.restoreEnv(snap)
			return "", nil, c.fail(err)
		}
		pieces = append(pieces, fmt.Sprintf("(result %s)", wt))
	}
	pieces = append(pieces, localParts...)
	pieces = append(pieces, bodyCode)

	if !c.declaredFn[call.Name] {
		c.declaredFn[call.Name] = true
		c.DeclareCode = append(c.DeclareCode, "(func "+strings.Join(pieces, " ")+")")
	}

	fn := &Function{Arguments: args, Variables: copyVarEnv(c.VariableType), Returns: returns}
	c.FunctionType[call.Name] = fn
	if scope == ast.ScopeGlobal {
		c.ExportType[call.Name] = fn
	}

	c.restoreEnv(snap)
	return "", primitive(ast.KindVoid), nil
}

// compileImport emits one host import per signature, named "ModName.fn"
// when namespaced or bare "fn" otherwise, and registers each into
// FunctionType with an empty local environment so calls to it type-check
// like any other function.
func (c *Context) compileImport(n *ast.Import) (string, *ast.Type, error) {
	for _, sig := range n.Sigs {
		wasmName := sig.Name
		if n.Module != "" {
			wasmName = n.Module + "." + sig.Name
		}

		var paramParts []string
		args := orderedmap.New[string, *ast.Type]()
		for i, p := range sig.Params {
			rt, err := c.ResolveType(p, nil)
			if err != nil {
				return "", nil, err
			}
			wt, err := WasmType(rt)
			if err != nil {
				return "", nil, c.fail(err)
			}
			paramParts = append(paramParts, wt)
			args.Set(fmt.Sprintf("_%d", i), rt)
		}

		ret := primitive(ast.KindVoid)
		resultClause := ""
		if sig.Return != nil {
			rt, err := c.ResolveType(sig.Return, nil)
			if err != nil {
				return "", nil, err
			}
			ret = rt
			wt, err := WasmType(rt)
			if err != nil {
				return "", nil, c.fail(err)
			}
			resultClause = fmt.Sprintf(" (result %s)", wt)
		}

		paramClause := ""
		if len(paramParts) > 0 {
			paramClause = fmt.Sprintf(" (param %s)", strings.Join(paramParts, " "))
		}

		c.ensureImport(sig.Alias, wasmName, strings.TrimSpace(paramClause+resultClause))
		c.FunctionType[sig.Alias] = &Function{Arguments: args, Variables: orderedmap.New[string, *ast.Type](), Returns: ret}
	}
	return "", primitive(ast.KindVoid), nil
}
