package compiler

import (
	"fmt"

	"github.com/KajizukaTaichi/mystia/ast"
)

func isNumeric(t *ast.Type) bool { return t.Kind == ast.KindInteger || t.Kind == ast.KindNumber }

// InferOp computes an Op node's result type: arithmetic requires matching
// numeric sides (and yields that type, with String additionally allowed
// on `+`); equality allows primitives, Enum, and String; comparisons
// yield Bool.
func (c *Context) InferOp(o *ast.Op) (*ast.Type, error) {
	switch o.Kind {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod,
		ast.OpShr, ast.OpShl, ast.OpBAnd, ast.OpBOr, ast.OpXor:
		lt, rt, err := c.inferPair(o.LHS, o.RHS)
		if err != nil {
			return nil, err
		}
		if o.Kind == ast.OpAdd && lt.Kind == ast.KindString && rt.Kind == ast.KindString {
			return lt, nil
		}
		if !isNumeric(lt) || !isNumeric(rt) {
			return nil, c.fail(fmt.Errorf("can't mathematical operation between %s and %s", c.formatType(lt), c.formatType(rt)))
		}
		if !typesEqual(lt, rt) {
			return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(lt), c.formatType(rt)))
		}
		return lt, nil

	case ast.OpEq, ast.OpNeq:
		lt, rt, err := c.inferPair(o.LHS, o.RHS)
		if err != nil {
			return nil, err
		}
		if !typesEqual(lt, rt) {
			return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(lt), c.formatType(rt)))
		}
		if lt.Kind == ast.KindArray || lt.Kind == ast.KindDict {
			return nil, c.fail(fmt.Errorf("can't compare %s values for equality", c.formatType(lt)))
		}
		return primitive(ast.KindBool), nil

	case ast.OpLt, ast.OpGt, ast.OpLtEq, ast.OpGtEq:
		lt, rt, err := c.inferPair(o.LHS, o.RHS)
		if err != nil {
			return nil, err
		}
		if !isNumeric(lt) || !isNumeric(rt) {
			return nil, c.fail(fmt.Errorf("can't mathematical operation between %s and %s", c.formatType(lt), c.formatType(rt)))
		}
		if !typesEqual(lt, rt) {
			return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(lt), c.formatType(rt)))
		}
		return primitive(ast.KindBool), nil

	case ast.OpBNot:
		t, err := c.InferExpr(o.LHS)
		if err != nil {
			return nil, err
		}
		if t.Kind != ast.KindInteger {
			return nil, c.fail(fmt.Errorf("can't mathematical operation between %s and %s", c.formatType(t), c.formatType(t)))
		}
		return t, nil

	case ast.OpLAnd, ast.OpLOr:
		lt, rt, err := c.inferPair(o.LHS, o.RHS)
		if err != nil {
			return nil, err
		}
		if lt.Kind != ast.KindBool || rt.Kind != ast.KindBool {
			return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(lt), c.formatType(rt)))
		}
		return primitive(ast.KindBool), nil

	case ast.OpLNot:
		t, err := c.InferExpr(o.LHS)
		if err != nil {
			return nil, err
		}
		if t.Kind != ast.KindBool {
			return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(t), "bool"))
		}
		return t, nil

	case ast.OpNeg:
		t, err := c.InferExpr(o.LHS)
		if err != nil {
			return nil, err
		}
		if !isNumeric(t) {
			return nil, c.fail(fmt.Errorf("can't mathematical operation between %s and %s", c.formatType(t), c.formatType(t)))
		}
		return t, nil

	case ast.OpCast:
		return c.ResolveType(o.Type, nil)

	case ast.OpNullCheck:
		if _, err := c.InferExpr(o.LHS); err != nil {
			return nil, err
		}
		return primitive(ast.KindBool), nil

	case ast.OpNullable:
		return c.ResolveType(o.Type, nil)

	case ast.OpTransmute:
		return c.ResolveType(o.Type, nil)
	}
	return nil, c.fail(fmt.Errorf("unknown operator kind"))
}

func (c *Context) inferPair(lhs, rhs ast.Expr) (*ast.Type, *ast.Type, error) {
	lt, err := c.InferExpr(lhs)
	if err != nil {
		return nil, nil, err
	}
	rt, err := c.InferExpr(rhs)
	if err != nil {
		return nil, nil, err
	}
	lt, err = c.ResolveType(lt, nil)
	if err != nil {
		return nil, nil, err
	}
	rt, err = c.ResolveType(rt, nil)
	if err != nil {
		return nil, nil, err
	}
	return lt, rt, nil
}

// CompileOp emits an Op, dispatching on its kind.
func (c *Context) CompileOp(o *ast.Op) (string, *ast.Type, error) {
	switch o.Kind {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod,
		ast.OpShr, ast.OpShl, ast.OpBAnd, ast.OpBOr, ast.OpXor:
		return c.compileArith(o)

	case ast.OpEq, ast.OpNeq:
		return c.compileEquality(o)

	case ast.OpLt, ast.OpGt, ast.OpLtEq, ast.OpGtEq:
		return c.compileCompare(o)

	case ast.OpBNot:
		l, _, err := c.CompileExpr(o.LHS)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(i32.xor %s (i32.const -1))", l), primitive(ast.KindInteger), nil

	case ast.OpLAnd:
		l, _, err := c.CompileExpr(o.LHS)
		if err != nil {
			return "", nil, err
		}
		r, _, err := c.CompileExpr(o.RHS)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(i32.and %s %s)", l, r), primitive(ast.KindBool), nil

	case ast.OpLOr:
		l, _, err := c.CompileExpr(o.LHS)
		if err != nil {
			return "", nil, err
		}
		r, _, err := c.CompileExpr(o.RHS)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(i32.or %s %s)", l, r), primitive(ast.KindBool), nil

	case ast.OpLNot:
		l, _, err := c.CompileExpr(o.LHS)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(i32.eqz %s)", l), primitive(ast.KindBool), nil

	case ast.OpNeg:
		l, t, err := c.CompileExpr(o.LHS)
		if err != nil {
			return "", nil, err
		}
		if t.Kind == ast.KindNumber {
			return fmt.Sprintf("(f64.sub (f64.const 0) %s)", l), t, nil
		}
		return fmt.Sprintf("(i32.sub (i32.const 0) %s)", l), t, nil

	case ast.OpCast:
		return c.compileCast(o)

	case ast.OpNullCheck:
		l, _, err := c.CompileExpr(o.LHS)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("(i32.ne %s (i32.const -1))", l), primitive(ast.KindBool), nil

	case ast.OpNullable:
		t, err := c.ResolveType(o.Type, nil)
		if err != nil {
			return "", nil, err
		}
		return "(i32.const -1)", t, nil

	case ast.OpTransmute:
		l, _, err := c.CompileExpr(o.LHS)
		if err != nil {
			return "", nil, err
		}
		t, err := c.ResolveType(o.Type, nil)
		if err != nil {
			return "", nil, err
		}
		return l, t, nil
	}
	return "", nil, c.fail(fmt.Errorf("unknown operator kind"))
}

func (c *Context) compileArith(o *ast.Op) (string, *ast.Type, error) {
	l, lt, err := c.CompileExpr(o.LHS)
	if err != nil {
		return "", nil, err
	}
	r, rt, err := c.CompileExpr(o.RHS)
	if err != nil {
		return "", nil, err
	}

	if o.Kind == ast.OpAdd && lt.Kind == ast.KindString && rt.Kind == ast.KindString {
		c.ensureImport("concat", "concat", "(param i32 i32) (result i32)")
		return fmt.Sprintf("(call $concat %s %s)", l, r), lt, nil
	}
	if !isNumeric(lt) || !isNumeric(rt) {
		return "", nil, c.fail(fmt.Errorf("can't mathematical operation between %s and %s", c.formatType(lt), c.formatType(rt)))
	}
	if !typesEqual(lt, rt) {
		return "", nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(lt), c.formatType(rt)))
	}

	wt, _ := WasmType(lt)
	if o.Kind == ast.OpMod {
		if lt.Kind == ast.KindInteger {
			return fmt.Sprintf("(i32.rem_s (i32.add (i32.rem_s %s %s) %s) %s)", l, r, r, r), lt, nil
		}
		return fmt.Sprintf("(f64.sub %s (f64.mul (f64.floor (f64.div %s %s)) %s))", l, l, r, r), lt, nil
	}

	opName := map[ast.OpKind]string{
		ast.OpAdd: "add", ast.OpSub: "sub", ast.OpMul: "mul",
		ast.OpBAnd: "and", ast.OpBOr: "or", ast.OpXor: "xor",
	}
	if name, ok := opName[o.Kind]; ok {
		return fmt.Sprintf("(%s.%s %s %s)", wt, name, l, r), lt, nil
	}
	switch o.Kind {
	case ast.OpDiv:
		if lt.Kind == ast.KindInteger {
			return fmt.Sprintf("(i32.div_s %s %s)", l, r), lt, nil
		}
		return fmt.Sprintf("(f64.div %s %s)", l, r), lt, nil
	case ast.OpShr:
		return fmt.Sprintf("(i32.shr_s %s %s)", l, r), lt, nil
	case ast.OpShl:
		return fmt.Sprintf("(i32.shl %s %s)", l, r), lt, nil
	}
	return "", nil, c.fail(fmt.Errorf("unknown arithmetic operator"))
}

func (c *Context) compileEquality(o *ast.Op) (string, *ast.Type, error) {
	l, lt, err := c.CompileExpr(o.LHS)
	if err != nil {
		return "", nil, err
	}
	r, rt, err := c.CompileExpr(o.RHS)
	if err != nil {
		return "", nil, err
	}
	if !typesEqual(lt, rt) {
		return "", nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(lt), c.formatType(rt)))
	}

	if lt.Kind == ast.KindString {
		c.ensureImport("strcmp", "strcmp", "(param i32 i32) (result i32)")
		cmp := fmt.Sprintf("(call $strcmp %s %s)", l, r)
		if o.Kind == ast.OpNeq {
			return fmt.Sprintf("(i32.eqz %s)", cmp), primitive(ast.KindBool), nil
		}
		return cmp, primitive(ast.KindBool), nil
	}

	wt, _ := WasmType(lt)
	name := "eq"
	if o.Kind == ast.OpNeq {
		name = "ne"
	}
	return fmt.Sprintf("(%s.%s %s %s)", wt, name, l, r), primitive(ast.KindBool), nil
}

func (c *Context) compileCompare(o *ast.Op) (string, *ast.Type, error) {
	l, lt, err := c.CompileExpr(o.LHS)
	if err != nil {
		return "", nil, err
	}
	r, rt, err := c.CompileExpr(o.RHS)
	if err != nil {
		return "", nil, err
	}
	if !isNumeric(lt) || !isNumeric(rt) {
		return "", nil, c.fail(fmt.Errorf("can't mathematical operation between %s and %s", c.formatType(lt), c.formatType(rt)))
	}
	if !typesEqual(lt, rt) {
		return "", nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(lt), c.formatType(rt)))
	}

	signed := map[ast.OpKind]string{
		ast.OpLt: "lt_s", ast.OpGt: "gt_s", ast.OpLtEq: "le_s", ast.OpGtEq: "ge_s",
	}
	unsigned := map[ast.OpKind]string{
		ast.OpLt: "lt", ast.OpGt: "gt", ast.OpLtEq: "le", ast.OpGtEq: "ge",
	}
	if lt.Kind == ast.KindInteger {
		return fmt.Sprintf("(i32.%s %s %s)", signed[o.Kind], l, r), primitive(ast.KindBool), nil
	}
	return fmt.Sprintf("(f64.%s %s %s)", unsigned[o.Kind], l, r), primitive(ast.KindBool), nil
}

// compileCast emits a numeric/string conversion. Number is represented as
// f64 throughout, so an int<->num cast uses f64.convert_i32_s /
// i32.trunc_f64_s.
func (c *Context) compileCast(o *ast.Op) (string, *ast.Type, error) {
	l, lt, err := c.CompileExpr(o.LHS)
	if err != nil {
		return "", nil, err
	}
	target, err := c.ResolveType(o.Type, nil)
	if err != nil {
		return "", nil, err
	}

	if typesEqual(lt, target) || lt.Kind == ast.KindAny || target.Kind == ast.KindAny {
		return l, target, nil
	}

	switch {
	case lt.Kind == ast.KindInteger && target.Kind == ast.KindNumber:
		return fmt.Sprintf("(f64.convert_i32_s %s)", l), target, nil
	case lt.Kind == ast.KindNumber && target.Kind == ast.KindInteger:
		return fmt.Sprintf("(i32.trunc_f64_s %s)", l), target, nil
	case lt.Kind == ast.KindInteger && target.Kind == ast.KindString:
		c.ensureImport("to_str", "to_str", "(param i32) (result i32)")
		return fmt.Sprintf("(call $to_str %s)", l), target, nil
	case lt.Kind == ast.KindNumber && target.Kind == ast.KindString:
		c.ensureImport("to_str", "to_str", "(param i32) (result i32)")
		return fmt.Sprintf("(call $to_str (i32.trunc_f64_s %s))", l), target, nil
	case lt.Kind == ast.KindString && target.Kind == ast.KindInteger:
		c.ensureImport("to_num", "to_num", "(param i32) (result i32)")
		return fmt.Sprintf("(call $to_num %s)", l), target, nil
	case lt.Kind == ast.KindString && target.Kind == ast.KindNumber:
		c.ensureImport("to_num", "to_num", "(param i32) (result i32)")
		return fmt.Sprintf("(f64.convert_i32_s (call $to_num %s))", l), target, nil
	}
	return "", nil, c.fail(fmt.Errorf("type %s can't convert to %s", c.formatType(lt), c.formatType(target)))
}
