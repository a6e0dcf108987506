package ast

import "testing"

func TestParseControlOrExprIfWithElse(t *testing.T) {
	expr, err := parseControlOrExpr("if x == 0 then 1 else 2")
	if err != nil {
		t.Fatalf("parseControlOrExpr: %v", err)
	}
	ifExpr, ok := expr.(*IfExpr)
	if !ok {
		t.Fatalf("parseControlOrExpr = %T, want *IfExpr", expr)
	}
	if ifExpr.Else == nil {
		t.Fatalf("Else branch should be present")
	}
	if _, ok := ifExpr.Cond.(*Op); !ok {
		t.Fatalf("Cond = %T, want *Op", ifExpr.Cond)
	}
}

func TestParseControlOrExprIfWithoutElse(t *testing.T) {
	expr, err := parseControlOrExpr("if x then 1")
	if err != nil {
		t.Fatalf("parseControlOrExpr: %v", err)
	}
	ifExpr := expr.(*IfExpr)
	if ifExpr.Else != nil {
		t.Fatalf("Else should be nil when the branch is absent")
	}
}

func TestParseControlOrExprMissingThenErrors(t *testing.T) {
	if _, err := parseControlOrExpr("if x 1"); err == nil {
		t.Fatalf("expected error for missing 'then'")
	}
}

func TestParseControlOrExprNestedIfDanglingElseBindsOutermost(t *testing.T) {
	// "if a then if b then 1 else 2": elseIdx is searched over the whole
	// remaining word list starting right after the outer "then", so the
	// single "else" present is claimed by the OUTER if, leaving its
	// Then span ("if b then 1") to parse as an inner if with no else
	// of its own.
	expr, err := parseControlOrExpr("if a then if b then 1 else 2")
	if err != nil {
		t.Fatalf("parseControlOrExpr: %v", err)
	}
	outer := expr.(*IfExpr)
	if outer.Else == nil {
		t.Fatalf("outer if should claim the only 'else' in the expression")
	}
	inner, ok := outer.Then.(*IfExpr)
	if !ok {
		t.Fatalf("outer.Then = %T, want *IfExpr", outer.Then)
	}
	if inner.Else != nil {
		t.Fatalf("inner if should have no else of its own")
	}
}

func TestParseControlOrExprWhile(t *testing.T) {
	expr, err := parseControlOrExpr("while x loop 1")
	if err != nil {
		t.Fatalf("parseControlOrExpr: %v", err)
	}
	while, ok := expr.(*WhileExpr)
	if !ok {
		t.Fatalf("parseControlOrExpr = %T, want *WhileExpr", expr)
	}
	if while.Body == nil {
		t.Fatalf("Body should not be nil")
	}
}

func TestParseControlOrExprWhileMissingLoopErrors(t *testing.T) {
	if _, err := parseControlOrExpr("while x"); err == nil {
		t.Fatalf("expected error for missing 'loop'")
	}
}

func TestParseControlOrExprFallsThroughToExpr(t *testing.T) {
	expr, err := parseControlOrExpr("1 + 2")
	if err != nil {
		t.Fatalf("parseControlOrExpr: %v", err)
	}
	if _, ok := expr.(*Op); !ok {
		t.Fatalf("parseControlOrExpr(1 + 2) = %T, want *Op", expr)
	}
}
