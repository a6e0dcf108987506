package ast

import (
	"fmt"
	"strings"

	"github.com/KajizukaTaichi/mystia/lexer"
)

// Scope distinguishes a Let binding's storage class.
type Scope int

const (
	ScopeLocal Scope = iota
	ScopeGlobal
)

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
}

// Let covers every assignment shape the grammar conflates under "let":
// a plain variable/global binding (LHS is *Variable), an indexed or
// field store (LHS is *Index or *Field), and function definition,
// discovered when LHS is a *Call (the parameter list) or an *Op{Kind:
// OpCast} wrapping a *Call (an explicitly annotated return type).
type Let struct {
	Scope Scope
	LHS   Expr
	RHS   Expr
}

func (*Let) stmtNode() {}

// TypeDecl registers a nominal alias, optionally parameterized
// ("type Box(T) = @{ value: T }").
type TypeDecl struct {
	Name   string
	Params []string
	Type   *Type
}

func (*TypeDecl) stmtNode() {}

// ImportSig is one function signature inside a load statement.
type ImportSig struct {
	Name   string
	Params []*Type
	Return *Type
	Alias  string
}

// Import is a host function import, optionally namespaced under a
// module ("load mod::{ fn():T, fn2():T as alias }") or bare
// ("load fn():T").
type Import struct {
	Module string
	Sigs   []*ImportSig
}

func (*Import) stmtNode() {}

// MacroDef registers a named expression template, expanded by textual
// substitution at each call site.
type MacroDef struct {
	Name   string
	Params []string
	Body   Expr
}

func (*MacroDef) stmtNode() {}

// ExprStmt is a bare expression evaluated for its value (if it is the
// last statement of a block) or its side effect (otherwise, in which
// case a non-Void result is dropped).
type ExprStmt struct {
	Expr Expr
}

func (*ExprStmt) stmtNode() {}

// ReturnStmt is "return EXPR" or a bare "return".
type ReturnStmt struct {
	Value Expr // nil for a bare return
}

func (*ReturnStmt) stmtNode() {}

// NextStmt is "next": branch to the innermost enclosing while's test.
type NextStmt struct{}

func (*NextStmt) stmtNode() {}

// BreakStmt is "break": branch past the innermost enclosing while.
type BreakStmt struct{}

func (*BreakStmt) stmtNode() {}

// ParseStmt parses one semicolon-delimited statement, dispatching on its
// leading keyword: if/while (reachable here only through the bare
// expression-statement fallback, since they are Expr nodes), let
// (optionally preceded by pub), type, macro, load, return, next, break.
func ParseStmt(source string) (Stmt, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty statement")
	}

	words, err := lexer.Tokenize(source, lexer.Space, false, true, false)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("empty statement")
	}

	switch words[0] {
	case "pub":
		rest := strings.TrimSpace(strings.TrimPrefix(source, "pub"))
		if !strings.HasPrefix(rest, "let") {
			return nil, fmt.Errorf("'pub' must be followed by 'let'")
		}
		return parseLet(strings.TrimSpace(strings.TrimPrefix(rest, "let")), ScopeGlobal)

	case "let":
		return parseLet(strings.TrimSpace(strings.TrimPrefix(source, "let")), ScopeLocal)

	case "type":
		return parseTypeDecl(strings.TrimSpace(strings.TrimPrefix(source, "type")))

	case "macro":
		return parseMacroDef(strings.TrimSpace(strings.TrimPrefix(source, "macro")))

	case "load":
		return parseImport(strings.TrimSpace(strings.TrimPrefix(source, "load")))

	case "return":
		rest := strings.TrimSpace(strings.TrimPrefix(source, "return"))
		if rest == "" {
			return &ReturnStmt{}, nil
		}
		val, err := parseControlOrExpr(rest)
		if err != nil {
			return nil, fmt.Errorf("return value: %w", err)
		}
		return &ReturnStmt{Value: val}, nil

	case "next":
		if strings.TrimSpace(strings.TrimPrefix(source, "next")) != "" {
			return nil, fmt.Errorf("unexpected tokens after 'next'")
		}
		return &NextStmt{}, nil

	case "break":
		if strings.TrimSpace(strings.TrimPrefix(source, "break")) != "" {
			return nil, fmt.Errorf("unexpected tokens after 'break'")
		}
		return &BreakStmt{}, nil
	}

	expr, err := parseControlOrExpr(source)
	if err != nil {
		return nil, fmt.Errorf("statement: %w", err)
	}
	return &ExprStmt{Expr: expr}, nil
}

// parseLet splits "lhs = rhs" at the first top-level "=" (scanned in
// operator mode so "==" is never mistaken for it), or, when no "=" is
// present, treats the whole thing as compound-assignment sugar: a bare
// "x + 1" becomes Let{LHS: x, RHS: x + 1}.
func parseLet(source string, scope Scope) (Stmt, error) {
	tokens, err := lexer.Tokenize(source, nil, true, true, false)
	if err != nil {
		return nil, fmt.Errorf("let statement: %w", err)
	}
	eqIdx := -1
	for i, tok := range tokens {
		if tok == "=" {
			eqIdx = i
			break
		}
	}

	if eqIdx < 0 {
		expr, err := ParseExpr(source)
		if err != nil {
			return nil, fmt.Errorf("let statement: %w", err)
		}
		op, ok := expr.(*Op)
		if !ok || !isCompoundAssignOp(op.Kind) {
			return nil, fmt.Errorf("let statement without '=' must be a compound assignment")
		}
		return &Let{Scope: scope, LHS: op.LHS, RHS: op}, nil
	}

	lhsSrc := strings.Join(tokens[:eqIdx], " ")
	rhsSrc := strings.Join(tokens[eqIdx+1:], " ")

	lhs, err := ParseExpr(lhsSrc)
	if err != nil {
		return nil, fmt.Errorf("let target: %w", err)
	}
	rhs, err := parseControlOrExpr(rhsSrc)
	if err != nil {
		return nil, fmt.Errorf("let value: %w", err)
	}
	return &Let{Scope: scope, LHS: lhs, RHS: rhs}, nil
}

func isCompoundAssignOp(kind OpKind) bool {
	switch kind {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// parseTypeDecl parses "name = typeexpr" or "name(params) = typeexpr".
func parseTypeDecl(source string) (Stmt, error) {
	name, typeSrc, ok := strings.Cut(source, "=")
	if !ok {
		return nil, fmt.Errorf("type declaration needs '='")
	}
	name = strings.TrimSpace(name)

	var params []string
	if idx := strings.Index(name, "("); idx >= 0 && strings.HasSuffix(name, ")") {
		paramSrc := name[idx+1 : len(name)-1]
		name = strings.TrimSpace(name[:idx])
		parts, err := lexer.Tokenize(paramSrc, []string{","}, false, true, false)
		if err != nil {
			return nil, fmt.Errorf("type parameters: %w", err)
		}
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if !lexer.IsIdentifier(p) {
				return nil, fmt.Errorf("invalid type parameter %q", p)
			}
			params = append(params, p)
		}
	}
	if !lexer.IsIdentifier(name) {
		return nil, fmt.Errorf("invalid type alias name %q", name)
	}

	typ, err := ParseType(typeSrc)
	if err != nil {
		return nil, fmt.Errorf("type declaration: %w", err)
	}
	return &TypeDecl{Name: name, Params: params, Type: typ}, nil
}

// parseMacroDef parses "name(params) = body".
func parseMacroDef(source string) (Stmt, error) {
	idx := strings.Index(source, "(")
	if idx < 0 {
		return nil, fmt.Errorf("macro declaration needs a parameter list")
	}
	name := strings.TrimSpace(source[:idx])
	if !lexer.IsIdentifier(name) {
		return nil, fmt.Errorf("invalid macro name %q", name)
	}
	rest := source[idx+1:]
	closeIdx := strings.Index(rest, ")")
	if closeIdx < 0 {
		return nil, fmt.Errorf("macro %q: unterminated parameter list", name)
	}
	paramSrc := rest[:closeIdx]
	after := strings.TrimSpace(rest[closeIdx+1:])

	var params []string
	if strings.TrimSpace(paramSrc) != "" {
		parts, err := lexer.Tokenize(paramSrc, []string{","}, false, true, false)
		if err != nil {
			return nil, fmt.Errorf("macro %q parameters: %w", name, err)
		}
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if !lexer.IsIdentifier(p) {
				return nil, fmt.Errorf("macro %q: invalid parameter %q", name, p)
			}
			params = append(params, p)
		}
	}

	bodySrc := strings.TrimPrefix(after, "=")
	body, err := ParseExpr(strings.TrimSpace(bodySrc))
	if err != nil {
		return nil, fmt.Errorf("macro %q body: %w", name, err)
	}
	return &MacroDef{Name: name, Params: params, Body: body}, nil
}

// parseImport parses either a single "fn(T,...):R [as alias]" signature
// or a module-qualified block "mod::{ sig, sig as alias, ... }".
func parseImport(source string) (Stmt, error) {
	if idx := strings.Index(source, "::{"); idx >= 0 && strings.HasSuffix(strings.TrimSpace(source), "}") {
		module := strings.TrimSpace(source[:idx])
		if !lexer.IsIdentifier(module) {
			return nil, fmt.Errorf("invalid module name %q", module)
		}
		trimmed := strings.TrimSpace(source)
		body := trimmed[idx+3 : len(trimmed)-1]
		parts, err := lexer.Tokenize(body, []string{","}, false, true, false)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", module, err)
		}
		sigs := make([]*ImportSig, 0, len(parts))
		for _, p := range parts {
			sig, err := parseImportSig(p)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", module, err)
			}
			sigs = append(sigs, sig)
		}
		return &Import{Module: module, Sigs: sigs}, nil
	}

	sig, err := parseImportSig(source)
	if err != nil {
		return nil, fmt.Errorf("load statement: %w", err)
	}
	return &Import{Sigs: []*ImportSig{sig}}, nil
}

// parseImportSig parses one "fn(T, ...):R" or "fn(T, ...):R as alias".
func parseImportSig(source string) (*ImportSig, error) {
	source = strings.TrimSpace(source)

	alias := ""
	words, err := lexer.Tokenize(source, lexer.Space, false, true, false)
	if err == nil {
		if asIdx := indexOfWord(words, "as", 0); asIdx >= 0 && asIdx == len(words)-2 {
			alias = words[asIdx+1]
			source = strings.TrimSpace(strings.Join(words[:asIdx], " "))
		}
	}

	openIdx := strings.Index(source, "(")
	closeIdx := strings.Index(source, ")")
	if openIdx < 0 || closeIdx < openIdx {
		return nil, fmt.Errorf("signature %q needs a parameter list", source)
	}
	name := strings.TrimSpace(source[:openIdx])
	if !lexer.IsIdentifier(name) {
		return nil, fmt.Errorf("invalid function name %q", name)
	}

	paramSrc := source[openIdx+1 : closeIdx]
	var params []*Type
	if strings.TrimSpace(paramSrc) != "" {
		parts, err := lexer.Tokenize(paramSrc, []string{","}, false, true, false)
		if err != nil {
			return nil, fmt.Errorf("signature %q parameters: %w", name, err)
		}
		for _, p := range parts {
			t, err := ParseType(p)
			if err != nil {
				return nil, fmt.Errorf("signature %q parameter: %w", name, err)
			}
			params = append(params, t)
		}
	}

	var ret *Type
	rest := strings.TrimSpace(source[closeIdx+1:])
	if rest != "" {
		rest = strings.TrimPrefix(rest, ":")
		ret, err = ParseType(rest)
		if err != nil {
			return nil, fmt.Errorf("signature %q return type: %w", name, err)
		}
	}

	if alias == "" {
		alias = name
	}
	return &ImportSig{Name: name, Params: params, Return: ret, Alias: alias}, nil
}
