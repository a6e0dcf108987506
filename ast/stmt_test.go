package ast

import "testing"

func TestParseStmtLetShapes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain binding", input: "let x = 1"},
		{name: "pub binding", input: "pub let x = 1"},
		{name: "annotated binding", input: "let x: int = 1"},
		{name: "function def", input: "let f(x: int): int = x"},
		{name: "compound assignment sugar", input: "let x + 1"},
		{name: "pub without let errors", input: "pub x = 1", wantErr: true},
		{name: "non-compound let without equals errors", input: "let x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := ParseStmt(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseStmt(%q): expected error, got %#v", tt.input, stmt)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStmt(%q): %v", tt.input, err)
			}
			let, ok := stmt.(*Let)
			if !ok {
				t.Fatalf("ParseStmt(%q) = %T, want *Let", tt.input, stmt)
			}
			if let.LHS == nil || let.RHS == nil {
				t.Fatalf("ParseStmt(%q): Let has nil LHS/RHS", tt.input)
			}
		})
	}
}

func TestParseStmtPubSetsGlobalScope(t *testing.T) {
	stmt, err := ParseStmt("pub let x = 1")
	if err != nil {
		t.Fatalf("ParseStmt: %v", err)
	}
	let := stmt.(*Let)
	if let.Scope != ScopeGlobal {
		t.Fatalf("Scope = %v, want ScopeGlobal", let.Scope)
	}
}

func TestParseStmtLetCompoundAssignTarget(t *testing.T) {
	stmt, err := ParseStmt("let x + 1")
	if err != nil {
		t.Fatalf("ParseStmt: %v", err)
	}
	let := stmt.(*Let)
	v, ok := let.LHS.(*Variable)
	if !ok || v.Name != "x" {
		t.Fatalf("LHS = %#v, want Variable(x)", let.LHS)
	}
	op, ok := let.RHS.(*Op)
	if !ok || op.Kind != OpAdd {
		t.Fatalf("RHS = %#v, want Op{OpAdd}", let.RHS)
	}
}

func TestParseStmtTypeDecl(t *testing.T) {
	stmt, err := ParseStmt("type Box(T) = @{ value: T }")
	if err != nil {
		t.Fatalf("ParseStmt: %v", err)
	}
	decl, ok := stmt.(*TypeDecl)
	if !ok {
		t.Fatalf("ParseStmt = %T, want *TypeDecl", stmt)
	}
	if decl.Name != "Box" {
		t.Fatalf("Name = %q, want Box", decl.Name)
	}
	if len(decl.Params) != 1 || decl.Params[0] != "T" {
		t.Fatalf("Params = %v, want [T]", decl.Params)
	}
	if decl.Type.Kind != KindDict {
		t.Fatalf("Type.Kind = %v, want KindDict", decl.Type.Kind)
	}
}

func TestParseStmtMacroDef(t *testing.T) {
	stmt, err := ParseStmt("macro twice(x) = x + x")
	if err != nil {
		t.Fatalf("ParseStmt: %v", err)
	}
	def, ok := stmt.(*MacroDef)
	if !ok {
		t.Fatalf("ParseStmt = %T, want *MacroDef", stmt)
	}
	if def.Name != "twice" || len(def.Params) != 1 || def.Params[0] != "x" {
		t.Fatalf("unexpected macro signature: %+v", def)
	}
}

func TestParseStmtImportBareSignature(t *testing.T) {
	stmt, err := ParseStmt("load print(str): void")
	if err != nil {
		t.Fatalf("ParseStmt: %v", err)
	}
	imp, ok := stmt.(*Import)
	if !ok {
		t.Fatalf("ParseStmt = %T, want *Import", stmt)
	}
	if imp.Module != "" {
		t.Fatalf("Module = %q, want empty for a bare import", imp.Module)
	}
	if len(imp.Sigs) != 1 || imp.Sigs[0].Name != "print" || imp.Sigs[0].Alias != "print" {
		t.Fatalf("unexpected signature: %+v", imp.Sigs)
	}
}

func TestParseStmtImportModuleBlockWithAlias(t *testing.T) {
	stmt, err := ParseStmt("load env::{ log(str): void as trace, abort(): void }")
	if err != nil {
		t.Fatalf("ParseStmt: %v", err)
	}
	imp := stmt.(*Import)
	if imp.Module != "env" {
		t.Fatalf("Module = %q, want env", imp.Module)
	}
	if len(imp.Sigs) != 2 {
		t.Fatalf("Sigs = %+v, want 2 entries", imp.Sigs)
	}
	if imp.Sigs[0].Name != "log" || imp.Sigs[0].Alias != "trace" {
		t.Fatalf("first signature = %+v, want log aliased to trace", imp.Sigs[0])
	}
	if imp.Sigs[1].Name != "abort" || imp.Sigs[1].Alias != "abort" {
		t.Fatalf("second signature = %+v, want abort aliased to itself", imp.Sigs[1])
	}
}

func TestParseStmtReturnNextBreak(t *testing.T) {
	if stmt, err := ParseStmt("return"); err != nil {
		t.Fatalf("ParseStmt(return): %v", err)
	} else if ret, ok := stmt.(*ReturnStmt); !ok || ret.Value != nil {
		t.Fatalf("ParseStmt(return) = %#v, want bare ReturnStmt", stmt)
	}

	if stmt, err := ParseStmt("return x + 1"); err != nil {
		t.Fatalf("ParseStmt(return x + 1): %v", err)
	} else if ret, ok := stmt.(*ReturnStmt); !ok || ret.Value == nil {
		t.Fatalf("ParseStmt(return x + 1) = %#v, want ReturnStmt with a value", stmt)
	}

	if stmt, err := ParseStmt("next"); err != nil {
		t.Fatalf("ParseStmt(next): %v", err)
	} else if _, ok := stmt.(*NextStmt); !ok {
		t.Fatalf("ParseStmt(next) = %T, want *NextStmt", stmt)
	}

	if stmt, err := ParseStmt("break"); err != nil {
		t.Fatalf("ParseStmt(break): %v", err)
	} else if _, ok := stmt.(*BreakStmt); !ok {
		t.Fatalf("ParseStmt(break) = %T, want *BreakStmt", stmt)
	}

	if _, err := ParseStmt("next now"); err == nil {
		t.Fatalf("expected error for trailing tokens after 'next'")
	}
}

func TestParseStmtBareExpressionFallback(t *testing.T) {
	stmt, err := ParseStmt("1 + 2")
	if err != nil {
		t.Fatalf("ParseStmt: %v", err)
	}
	if _, ok := stmt.(*ExprStmt); !ok {
		t.Fatalf("ParseStmt(1 + 2) = %T, want *ExprStmt", stmt)
	}
}

func TestParseStmtEmptyErrors(t *testing.T) {
	if _, err := ParseStmt(""); err == nil {
		t.Fatalf("expected error for empty statement")
	}
	if _, err := ParseStmt("   "); err == nil {
		t.Fatalf("expected error for blank statement")
	}
}
