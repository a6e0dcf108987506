package macro

import "testing"

func TestTableDefineLookup(t *testing.T) {
	tbl := NewTable()
	if _, ok := tbl.Lookup("twice"); ok {
		t.Fatalf("expected no definition before Define")
	}
	tbl.Define("twice", []string{"x"}, nil)
	def, ok := tbl.Lookup("twice")
	if !ok {
		t.Fatalf("expected definition after Define")
	}
	if len(def.Params) != 1 || def.Params[0] != "x" {
		t.Fatalf("unexpected params: %v", def.Params)
	}
}

func TestTableRedefineOverwrites(t *testing.T) {
	tbl := NewTable()
	tbl.Define("m", []string{"a"}, nil)
	tbl.Define("m", []string{"a", "b"}, nil)
	def, _ := tbl.Lookup("m")
	if len(def.Params) != 2 {
		t.Fatalf("expected redefinition to overwrite, got params %v", def.Params)
	}
}

func TestExpandSubstitutesLocalGet(t *testing.T) {
	body := "(i32.add (local.get $x) (local.get $x))"
	got := Expand(body, "x", "(i32.const 3)")
	want := "(i32.add (i32.const 3) (i32.const 3))"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExpandLeavesOtherNamesAlone(t *testing.T) {
	body := "(i32.add (local.get $x) (local.get $y))"
	got := Expand(body, "x", "(i32.const 3)")
	want := "(i32.add (i32.const 3) (local.get $y))"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
