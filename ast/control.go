package ast

import (
	"fmt"
	"strings"

	"github.com/KajizukaTaichi/mystia/lexer"
)

// IfExpr is a value-producing conditional: "if COND then THEN else ELSE".
// Else is nil when the branch is absent, in which case the expression's
// type is Void and it is only legal in statement (effect) position.
type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (*IfExpr) exprNode() {}

// WhileExpr is "while COND loop BODY". Like IfExpr it is Void-typed and
// only legal in statement position; Break/Next inside Body target it.
type WhileExpr struct {
	Cond Expr
	Body Expr
}

func (*WhileExpr) exprNode() {}

// parseControlOrExpr is the entry point used everywhere a value-producing
// position may hold either a control-flow form (if/while) or an ordinary
// expression: a let-binding's right-hand side, an if/while branch body,
// and a block statement in value position. It is deliberately NOT wired
// into ParseExpr's own dispatch chain, since a bare "if" or "while"
// appearing as an operand to ParseOp's right-to-left operator scan would
// otherwise be mis-split (the scan has no notion of then/else/loop
// keywords bounding its reach). Keeping if/while reachable only from this
// narrow set of callers keeps ordinary arithmetic parsing unaffected
// while still letting "let f(n: int): int = if ...
// else ...;" parse as intended.
func parseControlOrExpr(source string) (Expr, error) {
	source = strings.TrimSpace(source)
	words, err := lexer.Tokenize(source, lexer.Space, false, true, false)
	if err == nil && len(words) > 0 {
		switch words[0] {
		case "if":
			return parseIfExpr(words)
		case "while":
			return parseWhileExpr(words)
		}
	}
	return ParseExpr(source)
}

func parseIfExpr(words []string) (Expr, error) {
	thenIdx := indexOfWord(words, "then", 1)
	if thenIdx < 0 {
		return nil, fmt.Errorf("if statement missing 'then'")
	}
	cond, err := ParseExpr(strings.Join(words[1:thenIdx], " "))
	if err != nil {
		return nil, fmt.Errorf("if condition: %w", err)
	}

	elseIdx := indexOfWord(words, "else", thenIdx+1)
	var thenSrc, elseSrc string
	if elseIdx >= 0 {
		thenSrc = strings.Join(words[thenIdx+1:elseIdx], " ")
		elseSrc = strings.Join(words[elseIdx+1:], " ")
	} else {
		thenSrc = strings.Join(words[thenIdx+1:], " ")
	}
	if strings.TrimSpace(thenSrc) == "" {
		return nil, fmt.Errorf("if statement missing 'then' branch")
	}

	then, err := parseControlOrExpr(thenSrc)
	if err != nil {
		return nil, fmt.Errorf("then branch: %w", err)
	}
	var elseExpr Expr
	if elseIdx >= 0 {
		elseExpr, err = parseControlOrExpr(elseSrc)
		if err != nil {
			return nil, fmt.Errorf("else branch: %w", err)
		}
	}
	return &IfExpr{Cond: cond, Then: then, Else: elseExpr}, nil
}

func parseWhileExpr(words []string) (Expr, error) {
	loopIdx := indexOfWord(words, "loop", 1)
	if loopIdx < 0 {
		return nil, fmt.Errorf("while statement missing 'loop'")
	}
	cond, err := ParseExpr(strings.Join(words[1:loopIdx], " "))
	if err != nil {
		return nil, fmt.Errorf("while condition: %w", err)
	}
	bodySrc := strings.Join(words[loopIdx+1:], " ")
	if strings.TrimSpace(bodySrc) == "" {
		return nil, fmt.Errorf("while statement missing loop body")
	}
	body, err := parseControlOrExpr(bodySrc)
	if err != nil {
		return nil, fmt.Errorf("while body: %w", err)
	}
	return &WhileExpr{Cond: cond, Body: body}, nil
}

func indexOfWord(words []string, target string, from int) int {
	for i := from; i < len(words); i++ {
		if words[i] == target {
			return i
		}
	}
	return -1
}
