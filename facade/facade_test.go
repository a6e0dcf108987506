package facade

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/KajizukaTaichi/mystia/ast"
)

func TestFormatReturnTypePrimitives(t *testing.T) {
	tests := []struct {
		kind ast.Kind
		want string
	}{
		{ast.KindInteger, `"int"`},
		{ast.KindNumber, `"num"`},
		{ast.KindBool, `"bool"`},
		{ast.KindString, `"str"`},
		{ast.KindAny, `"any"`},
		{ast.KindVoid, `null`},
	}
	for _, tt := range tests {
		got, err := FormatReturnType(&ast.Type{Kind: tt.kind})
		if err != nil {
			t.Fatalf("FormatReturnType(%v): %v", tt.kind, err)
		}
		if got != tt.want {
			t.Errorf("FormatReturnType(%v) = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestFormatReturnTypeArray(t *testing.T) {
	got, err := FormatReturnType(&ast.Type{Kind: ast.KindArray, Elem: &ast.Type{Kind: ast.KindInteger}})
	if err != nil {
		t.Fatalf("FormatReturnType: %v", err)
	}
	if !strings.Contains(got, `"type":"array"`) || !strings.Contains(got, `"element":"int"`) {
		t.Fatalf("unexpected array encoding: %s", got)
	}
}

func TestFormatReturnTypeAlias(t *testing.T) {
	got, err := FormatReturnType(&ast.Type{Kind: ast.KindAlias, Name: "Point"})
	if err != nil {
		t.Fatalf("FormatReturnType: %v", err)
	}
	if !strings.Contains(got, `"type":"alias"`) || !strings.Contains(got, `"name":"Point"`) {
		t.Fatalf("unexpected alias encoding: %s", got)
	}
}

func TestFormatReturnTypeEnum(t *testing.T) {
	got, err := FormatReturnType(&ast.Type{Kind: ast.KindEnum, Variants: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("FormatReturnType: %v", err)
	}
	if !strings.Contains(got, `"type":"enum"`) || !strings.Contains(got, `"enum":["a","b"]`) {
		t.Fatalf("unexpected enum encoding: %s", got)
	}
}

func TestMystiaEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("wat2wasm"); err != nil {
		t.Skip("wat2wasm not available on PATH")
	}

	result, err := Mystia("1 + 1;")
	if err != nil {
		t.Fatalf("Mystia: %v", err)
	}
	if len(result.Bytecode) == 0 {
		t.Fatalf("expected non-empty bytecode")
	}
	if result.ReturnType != `"int"` {
		t.Fatalf("ReturnType = %s, want \"int\"", result.ReturnType)
	}
}

func TestMystiaPropagatesCompileError(t *testing.T) {
	_, err := Mystia("y;")
	if err == nil {
		t.Fatalf("expected an error for undefined variable y")
	}
}
