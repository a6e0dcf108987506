package ast

import "testing"

func TestParseBlockSplitsOnTopLevelSemicolons(t *testing.T) {
	block, err := ParseBlock("let x = 1; let y = x + 1; y;")
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if len(block.Stmts) != 3 {
		t.Fatalf("len(Stmts) = %d, want 3", len(block.Stmts))
	}
	if _, ok := block.Stmts[2].(*ExprStmt); !ok {
		t.Fatalf("last statement = %T, want *ExprStmt", block.Stmts[2])
	}
}

func TestParseBlockIgnoresSemicolonsInsideBraces(t *testing.T) {
	block, err := ParseBlock("let f(x: int): int = { let y = x; y; }; f(1);")
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if len(block.Stmts) != 2 {
		t.Fatalf("len(Stmts) = %d, want 2, got %+v", len(block.Stmts), block.Stmts)
	}
}

func TestParseBlockSkipsBlankStatements(t *testing.T) {
	block, err := ParseBlock("let x = 1;; x;")
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if len(block.Stmts) != 2 {
		t.Fatalf("len(Stmts) = %d, want 2 (blank statement between ';;' skipped)", len(block.Stmts))
	}
}

func TestParseBlockPropagatesStmtError(t *testing.T) {
	if _, err := ParseBlock("let x ="); err == nil {
		t.Fatalf("expected an error for an incomplete statement")
	}
}
