// Package facade is the embedding-host entry point into Mystia: one
// function taking source text and returning an assembled wasm binary
// plus a JSON description of the program's inferred return type, the
// shape a scripting host needs to unmarshal a wasm call result without
// re-running the compiler.
package facade

import (
	"encoding/json"
	"fmt"

	"github.com/KajizukaTaichi/mystia/assemble"
	"github.com/KajizukaTaichi/mystia/ast"
	"github.com/KajizukaTaichi/mystia/compiler"
)

// Result is what Mystia returns on success: the wasm binary ready to
// hand to WebAssembly.instantiate, and return_type, a JSON string
// describing the shape of the entry point's result value.
type Result struct {
	Bytecode   []byte `json:"bytecode"`
	ReturnType string `json:"return_type"`
}

// Mystia compiles source end to end: parse, infer, emit WAT, assemble to
// wasm. Any failure at any stage is returned as an error carrying the
// stage's own message, a single error string at the FFI boundary.
func Mystia(source string) (*Result, error) {
	module, programReturn, err := compiler.Build(source)
	if err != nil {
		return nil, fmt.Errorf("mystia: %w", err)
	}

	bytecode, err := assemble.WatToWasm(module)
	if err != nil {
		return nil, fmt.Errorf("mystia: %w", err)
	}

	returnType, err := FormatReturnType(programReturn)
	if err != nil {
		return nil, fmt.Errorf("mystia: %w", err)
	}

	return &Result{Bytecode: bytecode, ReturnType: returnType}, nil
}

// FormatReturnType renders t as a JSON return_type description:
// primitives as bare JSON strings ("int", "num", "bool", "str", "any"),
// Void as JSON null, and the three aggregate kinds as tagged objects
// ({"type":"array","element":...}, {"type":"dict",
// "fields":{name:{"type":...,"offset":N}}}, {"type":"enum","enum":[...]}),
// plus unresolved aliases as {"type":"alias","name":N}.
func FormatReturnType(t *ast.Type) (string, error) {
	encoded, err := json.Marshal(returnTypeValue(t))
	if err != nil {
		return "", fmt.Errorf("format return type: %w", err)
	}
	return string(encoded), nil
}

func returnTypeValue(t *ast.Type) any {
	switch t.Kind {
	case ast.KindInteger:
		return "int"
	case ast.KindNumber:
		return "num"
	case ast.KindBool:
		return "bool"
	case ast.KindString:
		return "str"
	case ast.KindAny:
		return "any"
	case ast.KindVoid:
		return nil
	case ast.KindArray:
		return map[string]any{"type": "array", "element": returnTypeValue(t.Elem)}
	case ast.KindDict:
		fields := map[string]any{}
		for pair := t.Fields.Oldest(); pair != nil; pair = pair.Next() {
			fields[pair.Key] = map[string]any{
				"type":   returnTypeValue(pair.Value.Type),
				"offset": pair.Value.Offset,
			}
		}
		return map[string]any{"type": "dict", "fields": fields}
	case ast.KindEnum:
		return map[string]any{"type": "enum", "enum": t.Variants}
	case ast.KindAlias:
		return map[string]any{"type": "alias", "name": t.Name}
	default:
		return nil
	}
}
