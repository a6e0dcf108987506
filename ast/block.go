package ast

import (
	"fmt"
	"strings"

	"github.com/KajizukaTaichi/mystia/lexer"
)

// Block is an ordered sequence of statements. A block used in expression
// position evaluates to its last statement's value; every earlier
// statement's non-Void result is dropped.
type Block struct {
	Stmts []Stmt
}

// ParseBlock splits source on top-level ";" (the lexer's bracket/quote
// tracking keeps nested "{ ... }" bodies intact) and parses each piece
// as a Stmt.
func ParseBlock(source string) (*Block, error) {
	parts, err := lexer.Tokenize(source, []string{";"}, false, true, false)
	if err != nil {
		return nil, fmt.Errorf("block: %w", err)
	}

	block := &Block{}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		stmt, err := ParseStmt(part)
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	return block, nil
}
