package ast

import (
	"fmt"
	"strings"

	"github.com/KajizukaTaichi/mystia/lexer"
)

// Expr is implemented by every expression node: Value, Variable, Op,
// Call, Index, Field, BlockExpr, MemCpy, MemLoad, IfExpr, WhileExpr.
type Expr interface {
	exprNode()
}

// Variable is a bare name reference, resolved against locals, arguments,
// or globals at compile time.
type Variable struct {
	Name string
}

func (*Variable) exprNode() {}

// Call is a function or macro invocation. A one-argument "memcpy(...)"
// call is parsed as MemCpy instead, not as a Call.
type Call struct {
	Name string
	Args []Expr
}

func (*Call) exprNode() {}

// Index is an array element access: Base[IndexExpr].
type Index struct {
	Base  Expr
	Index Expr
}

func (*Index) exprNode() {}

// Field is a record field access: Base.Name.
type Field struct {
	Base Expr
	Name string
}

func (*Field) exprNode() {}

// BlockExpr embeds a brace-delimited block used in expression position.
type BlockExpr struct {
	Block *Block
}

func (*BlockExpr) exprNode() {}

// MemCpy is the memcpy(expr) intrinsic: copies a reference-typed value's
// backing bytes into a freshly bump-allocated region and yields the new
// address.
type MemCpy struct {
	Operand Expr
}

func (*MemCpy) exprNode() {}

// MemLoad is the low-level typed-load intrinsic: loads a value of Type
// from the address Address evaluates to.
type MemLoad struct {
	Address Expr
	Type    *Type
}

func (*MemLoad) exprNode() {}

// ParseExpr parses source as an expression, trying in order: operator
// expressions (anything that tokenizes to two or more tokens), then
// literals, parenthesized groups, block expressions, calls (including
// the memcpy intrinsic and method-call sugar), index/field access, and
// finally a bare variable reference.
func ParseExpr(source string) (Expr, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty expression")
	}

	if op, ok, err := ParseOp(source); err != nil {
		return nil, err
	} else if ok {
		return op, nil
	}

	if v, ok, err := ParseValue(source); err != nil {
		return nil, err
	} else if ok {
		return v, nil
	}

	if strings.HasPrefix(source, "(") && strings.HasSuffix(source, ")") {
		return ParseExpr(source[1 : len(source)-1])
	}

	if strings.HasPrefix(source, "{") && strings.HasSuffix(source, "}") {
		block, err := ParseBlock(source[1 : len(source)-1])
		if err != nil {
			return nil, fmt.Errorf("block expression: %w", err)
		}
		return &BlockExpr{Block: block}, nil
	}

	if idx := strings.LastIndex(source, "("); idx >= 0 && strings.HasSuffix(source, ")") {
		head := source[:idx]
		argSrc := source[idx+1 : len(source)-1]

		if recv, method, ok := splitMethodCall(head); ok {
			recvExpr, err := ParseExpr(recv)
			if err == nil {
				args, err := parseArgs(argSrc)
				if err == nil {
					return &Call{Name: method, Args: append([]Expr{recvExpr}, args...)}, nil
				}
			}
		}

		if lexer.IsIdentifier(head) {
			if head == "transmute" {
				return parseTransmute(argSrc)
			}
			args, err := parseArgs(argSrc)
			if err != nil {
				return nil, err
			}
			if head == "memcpy" && len(args) == 1 {
				return &MemCpy{Operand: args[0]}, nil
			}
			return &Call{Name: head, Args: args}, nil
		}
	}

	if base, field, ok := splitFieldAccess(source); ok {
		baseExpr, err := ParseExpr(base)
		if err != nil {
			return nil, fmt.Errorf("field access base: %w", err)
		}
		return &Field{Base: baseExpr, Name: field}, nil
	}

	if base, indexSrc, ok := splitIndexAccess(source); ok {
		baseExpr, err := ParseExpr(base)
		if err != nil {
			return nil, fmt.Errorf("index base: %w", err)
		}
		indexExpr, err := ParseExpr(indexSrc)
		if err != nil {
			return nil, fmt.Errorf("index expression: %w", err)
		}
		return &Index{Base: baseExpr, Index: indexExpr}, nil
	}

	if lexer.IsIdentifier(source) {
		return &Variable{Name: source}, nil
	}

	return nil, fmt.Errorf("cannot parse expression %q", source)
}

// parseTransmute parses the "transmute(expr, Type)" intrinsic: reads the
// bit pattern of expr as if it were Type, with no conversion emitted.
func parseTransmute(argSrc string) (Expr, error) {
	parts, err := lexer.Tokenize(argSrc, []string{","}, false, true, false)
	if err != nil {
		return nil, fmt.Errorf("transmute arguments: %w", err)
	}
	if len(parts) != 2 {
		return nil, fmt.Errorf("transmute expects exactly 2 arguments, got %d", len(parts))
	}
	operand, err := ParseExpr(parts[0])
	if err != nil {
		return nil, fmt.Errorf("transmute operand: %w", err)
	}
	target, err := ParseType(parts[1])
	if err != nil {
		return nil, fmt.Errorf("transmute target type: %w", err)
	}
	return &Op{Kind: OpTransmute, LHS: operand, Type: target}, nil
}

func parseArgs(argSrc string) ([]Expr, error) {
	argSrc = strings.TrimSpace(argSrc)
	if argSrc == "" {
		return nil, nil
	}
	parts, err := lexer.Tokenize(argSrc, []string{","}, false, true, false)
	if err != nil {
		return nil, fmt.Errorf("argument list: %w", err)
	}
	args := make([]Expr, 0, len(parts))
	for _, p := range parts {
		e, err := ParseExpr(p)
		if err != nil {
			return nil, fmt.Errorf("argument: %w", err)
		}
		args = append(args, e)
	}
	return args, nil
}

// splitMethodCall recognizes "receiver.method" heads, desugared by the
// caller into Call{method, receiver, args...}.
func splitMethodCall(head string) (receiver, method string, ok bool) {
	idx := strings.LastIndex(head, ".")
	if idx < 0 {
		return "", "", false
	}
	receiver = head[:idx]
	method = head[idx+1:]
	if !lexer.IsIdentifier(method) {
		return "", "", false
	}
	return receiver, method, true
}

func splitFieldAccess(source string) (base, field string, ok bool) {
	idx := strings.LastIndex(source, ".")
	if idx < 0 {
		return "", "", false
	}
	base = source[:idx]
	field = source[idx+1:]
	if !lexer.IsIdentifier(field) {
		return "", "", false
	}
	return base, field, true
}

func splitIndexAccess(source string) (base, index string, ok bool) {
	if !strings.HasSuffix(source, "]") {
		return "", "", false
	}
	depth := 0
	for i := len(source) - 1; i >= 0; i-- {
		switch source[i] {
		case ']':
			depth++
		case '[':
			depth--
			if depth == 0 {
				return source[:i], source[i+1 : len(source)-1], true
			}
		}
	}
	return "", "", false
}
