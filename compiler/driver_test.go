package compiler

import (
	"strings"
	"testing"
)

func TestBuildArithmeticPrecedence(t *testing.T) {
	module, ret, err := Build("1 + 2 * 3 - 10;")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "(i32.sub (i32.add (i32.const 1) (i32.mul (i32.const 2) (i32.const 3))) (i32.const 10))"
	if !strings.Contains(module, want) {
		t.Fatalf("entry body missing %q in module:\n%s", want, module)
	}
	if ret.Kind.String() != "int" {
		t.Fatalf("entry result type = %s, want int", ret.Kind.String())
	}
}

func TestBuildRecursiveFactorial(t *testing.T) {
	module, _, err := Build("let fact(n: int): int = if n == 0 then 1 else fact(n - 1) * n; fact(5);")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(module, "(func $fact") {
		t.Fatalf("declares section missing fact:\n%s", module)
	}
	if !strings.Contains(module, "(call $fact") {
		t.Fatalf("entry body missing recursive call:\n%s", module)
	}
}

func TestBuildArrayAllocatorAndIndex(t *testing.T) {
	module, _, err := Build("let xs = [10, 20, 30]; xs[1];")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(module, "(global $allocator (export \"allocator\") (mut i32) (i32.const 16))") {
		t.Fatalf("allocator should have advanced by 16:\n%s", module)
	}
	want := "(i32.load (i32.add (i32.add (i32.const 4) (local.get $xs)) " +
		"(i32.mul (i32.rem_s (i32.const 1) (i32.load (local.get $xs))) (i32.const 4))))"
	if !strings.Contains(module, want) {
		t.Fatalf("index address should take a runtime mod against the array's stored length:\n%s", module)
	}
}

func TestBuildRecordFieldOffset(t *testing.T) {
	module, _, err := Build("type P = @{x: int, y: int}; let p = @{x: 3, y: 4}; p.y;")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(module, "(global $allocator (export \"allocator\") (mut i32) (i32.const 8))") {
		t.Fatalf("allocator should reserve 8 bytes for the record:\n%s", module)
	}
	if !strings.Contains(module, "(i32.load (i32.add (local.get $p) (i32.const 4)))") {
		t.Fatalf("field y should load at offset 4:\n%s", module)
	}
}

func TestBuildStringConcat(t *testing.T) {
	module, _, err := Build(`let s = "hi" + " there"; s;`)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(module, "(call $concat (i32.const 0) (i32.const 3))") {
		t.Fatalf("entry body missing concat call:\n%s", module)
	}
	if !strings.Contains(module, `(data (i32.const 0) "hi\00")`) {
		t.Fatalf("static data missing first literal:\n%s", module)
	}
	if !strings.Contains(module, `(data (i32.const 3) " there\00")`) {
		t.Fatalf("static data missing second literal:\n%s", module)
	}
}

func TestBuildExportedFunction(t *testing.T) {
	module, _, err := Build("pub let inc(x: int): int = x + 1;")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := `(func $inc (export "inc") (param $x i32) (result i32) (i32.add (local.get $x) (i32.const 1)))`
	if !strings.Contains(module, want) {
		t.Fatalf("declares section missing exported func, got:\n%s", module)
	}
}

func TestBuildFunctionScopingShadowsGlobal(t *testing.T) {
	module, _, err := Build(
		"pub let x = 10; let f(x: int): int = x; let g(x: int): int = x + f(x); g(3);")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(module, "(func $f") || !strings.Contains(module, "(func $g") {
		t.Fatalf("both functions should be declared:\n%s", module)
	}
	if !strings.Contains(module, "(call $f (local.get $x))") {
		t.Fatalf("g should call f with its own local x:\n%s", module)
	}
}

func TestBuildMacroSubstitutionMatchesInlineArithmetic(t *testing.T) {
	macroModule, _, err := Build("macro twice(x) = x + x; twice(3);")
	if err != nil {
		t.Fatalf("Build (macro): %v", err)
	}
	inlineModule, _, err := Build("3 + 3;")
	if err != nil {
		t.Fatalf("Build (inline): %v", err)
	}

	extractEntryBody := func(module string) string {
		idx := strings.Index(module, `(func (export "_start")`)
		if idx < 0 {
			t.Fatalf("module missing _start: %s", module)
		}
		return module[idx:]
	}
	if extractEntryBody(macroModule) != extractEntryBody(inlineModule) {
		t.Fatalf("macro expansion diverged from inline arithmetic:\nmacro: %s\ninline: %s",
			extractEntryBody(macroModule), extractEntryBody(inlineModule))
	}
}

func TestBuildAllocatorMonotonicity(t *testing.T) {
	// Two 3-byte strings (len 2 + nul) then a 3-element array (4 + 3*4 = 16).
	module, _, err := Build(`let a = "hi"; let b = "yo"; let xs = [1, 2, 3]; xs;`)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(module, "(global $allocator (export \"allocator\") (mut i32) (i32.const 22))") {
		t.Fatalf("allocator should land at 3+3+16=22:\n%s", module)
	}
}

func TestBuildAliasCycleTerminates(t *testing.T) {
	module, ret, err := Build("type L = @{ next: L }; let x: L = @{ next: null };")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ret == nil {
		t.Fatalf("expected a program return type")
	}
	_ = module
}

func TestBuildUndefinedVariableError(t *testing.T) {
	_, _, err := Build("y;")
	if err == nil {
		t.Fatalf("expected an error for undefined variable")
	}
	if !strings.Contains(err.Error(), "undefined variable") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestBuildArityMismatchError(t *testing.T) {
	_, _, err := Build("let f(x: int): int = x; f(1, 2);")
	if err == nil {
		t.Fatalf("expected an arity mismatch error")
	}
	if !strings.Contains(err.Error(), "length should be") {
		t.Fatalf("unexpected error message: %v", err)
	}
}
