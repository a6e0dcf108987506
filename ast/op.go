package ast

import (
	"strings"

	"github.com/KajizukaTaichi/mystia/lexer"
)

// OpKind tags the variant of an Op node.
type OpKind int

const (
	OpAdd OpKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShr
	OpShl
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLtEq
	OpGtEq
	OpBAnd
	OpBOr
	OpBNot
	OpXor
	OpLAnd
	OpLOr
	OpLNot
	OpNeg
	OpCast
	OpNullCheck
	OpNullable
	OpTransmute
)

// binaryTable lists every literal binary operator token, flattened for
// lookup by token string. precedenceTiers groups those same tokens into
// bands, ordered loosest-binding first; op.rs itself scans the whole
// token list as one flat band (equal precedence throughout, resolved
// only by right-to-left scan direction), but that grouping evaluates
// `1 + 2 * 3` as `(1 + 2) * 3`. Tiering the scan — lowest precedence
// first, still right-to-left within a tier — keeps op.rs's
// left-associative scan-direction trick while giving `*`/`/`/`%` the
// conventional tighter bind than `+`/`-`.
var binaryTable = []struct {
	token string
	kind  OpKind
}{
	{"+", OpAdd}, {"-", OpSub}, {"*", OpMul}, {"/", OpDiv}, {"%", OpMod},
	{">>", OpShr}, {"<<", OpShl},
	{"==", OpEq}, {"!=", OpNeq},
	{"<", OpLt}, {">", OpGt}, {">=", OpGtEq}, {"<=", OpLtEq},
	{"&", OpBAnd}, {"|", OpBOr}, {"^", OpXor},
	{"&&", OpLAnd}, {"||", OpLOr},
	{":", OpCast},
}

var precedenceTiers = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", ">", "<=", ">="},
	{">>", "<<"},
	{"+", "-"},
	{"*", "/", "%"},
	{":"},
}

// Op is a unary, binary, cast, or suffix operator expression.
type Op struct {
	Kind OpKind
	LHS  Expr
	RHS  Expr  // nil for unary prefix/suffix forms
	Type *Type // Cast/Transmute/Nullable target type
}

func (*Op) exprNode() {}

// ParseOp attempts to parse source as an operator expression. It returns
// ok=false when the token list has fewer than two tokens (no operator
// could possibly apply), not an error, so the caller falls through to
// Value/Call/Variable parsing.
func ParseOp(source string) (*Op, bool, error) {
	tokens, err := lexer.Tokenize(strings.TrimSpace(source), lexer.Space, true, true, false)
	if err != nil {
		return nil, false, err
	}
	if len(tokens) < 2 {
		return nil, false, nil
	}

	if op, ok, err := parseUnaryPrefix(tokens); ok || err != nil {
		return op, ok, err
	}
	if op, ok, err := parseSuffix(tokens); ok || err != nil {
		return op, ok, err
	}

	// "as" is the word-form alias for the ":" cast operator; check it
	// ahead of the tiered scan since it never appears in binaryTable
	// (that table holds operator-alphabet tokens, and "as" is an
	// ordinary identifier-shaped word).
	for i := len(tokens) - 2; i >= 1; i-- {
		if tokens[i] != "as" {
			continue
		}
		lhs, err := ParseExpr(strings.Join(tokens[:i], " "))
		if err != nil {
			continue
		}
		typ, err := ParseType(strings.Join(tokens[i+1:], " "))
		if err != nil {
			continue
		}
		return &Op{Kind: OpCast, LHS: lhs, Type: typ}, true, nil
	}

	for _, tier := range precedenceTiers {
		for i := len(tokens) - 2; i >= 1; i-- {
			tok := tokens[i]
			if !containsToken(tier, tok) {
				continue
			}

			for _, cand := range binaryTable {
				if tok != cand.token {
					continue
				}
				lhs, err := ParseExpr(strings.Join(tokens[:i], " "))
				if err != nil {
					continue
				}
				kind := cand.kind
				if kind == OpCast {
					typ, terr := ParseType(strings.Join(tokens[i+1:], " "))
					if terr != nil {
						continue
					}
					return &Op{Kind: kind, LHS: lhs, Type: typ}, true, nil
				}
				rhs, err := ParseExpr(strings.Join(tokens[i+1:], " "))
				if err != nil {
					continue
				}
				return &Op{Kind: kind, LHS: lhs, RHS: rhs}, true, nil
			}
		}
	}

	return nil, false, nil
}

func containsToken(tier []string, tok string) bool {
	for _, t := range tier {
		if t == tok {
			return true
		}
	}
	return false
}

func parseUnaryPrefix(tokens []string) (*Op, bool, error) {
	if len(tokens) < 2 {
		return nil, false, nil
	}
	oper := tokens[0]
	rest := strings.Join(tokens[1:], " ")
	var kind OpKind
	switch oper {
	case "~":
		kind = OpBNot
	case "!":
		kind = OpLNot
	case "-":
		kind = OpNeg
	default:
		return nil, false, nil
	}
	operand, err := ParseExpr(rest)
	if err != nil {
		return nil, false, nil
	}
	return &Op{Kind: kind, LHS: operand}, true, nil
}

func parseSuffix(tokens []string) (*Op, bool, error) {
	if len(tokens) < 2 {
		return nil, false, nil
	}
	last := tokens[len(tokens)-1]
	head := strings.Join(tokens[:len(tokens)-1], " ")
	switch last {
	case "?":
		operand, err := ParseExpr(head)
		if err != nil {
			return nil, false, nil
		}
		return &Op{Kind: OpNullCheck, LHS: operand}, true, nil
	case "!":
		typ, err := ParseType(head)
		if err != nil {
			return nil, false, nil
		}
		return &Op{Kind: OpNullable, Type: typ}, true, nil
	}
	return nil, false, nil
}
