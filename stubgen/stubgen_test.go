package stubgen

import (
	"strings"
	"testing"
)

func TestExtractSignaturesBareLoad(t *testing.T) {
	sigs := ExtractSignatures(`load print(str): void; print("hi");`)
	if len(sigs) != 1 {
		t.Fatalf("len(sigs) = %d, want 1: %+v", len(sigs), sigs)
	}
	sig := sigs[0]
	if sig.Name != "print" || sig.Alias != "print" || sig.Module != "" {
		t.Fatalf("unexpected signature: %+v", sig)
	}
	if len(sig.Params) != 1 || sig.Params[0] != "str" {
		t.Fatalf("Params = %v, want [str]", sig.Params)
	}
	if sig.Return != "void" {
		t.Fatalf("Return = %q, want void", sig.Return)
	}
	if sig.WasmName() != "print" {
		t.Fatalf("WasmName() = %q, want print", sig.WasmName())
	}
}

func TestExtractSignaturesBareLoadWithAlias(t *testing.T) {
	sigs := ExtractSignatures(`load abort(): void as halt;`)
	if len(sigs) != 1 {
		t.Fatalf("len(sigs) = %d, want 1", len(sigs))
	}
	if sigs[0].Alias != "halt" {
		t.Fatalf("Alias = %q, want halt", sigs[0].Alias)
	}
}

func TestExtractSignaturesModuleBlock(t *testing.T) {
	source := `load env::{ log(str): void, abort(): void as halt }; log("x");`
	sigs := ExtractSignatures(source)
	if len(sigs) != 2 {
		t.Fatalf("len(sigs) = %d, want 2: %+v", len(sigs), sigs)
	}
	if sigs[0].Module != "env" || sigs[0].WasmName() != "env.log" {
		t.Fatalf("first signature = %+v", sigs[0])
	}
	if sigs[1].Alias != "halt" || sigs[1].WasmName() != "env.abort" {
		t.Fatalf("second signature = %+v", sigs[1])
	}
}

func TestExtractSignaturesMixedBlockAndBare(t *testing.T) {
	source := `load math::{ sqrt(num): num }; load print(str): void; print("x");`
	sigs := ExtractSignatures(source)
	if len(sigs) != 2 {
		t.Fatalf("len(sigs) = %d, want 2: %+v", len(sigs), sigs)
	}
	if sigs[0].Module != "math" {
		t.Fatalf("first signature should belong to the module block: %+v", sigs[0])
	}
	if sigs[1].Module != "" || sigs[1].Name != "print" {
		t.Fatalf("second signature should be the bare load: %+v", sigs[1])
	}
}

func TestExtractSignaturesIgnoresNonLoadCode(t *testing.T) {
	sigs := ExtractSignatures(`let f(x: int): int = x; f(1);`)
	if len(sigs) != 0 {
		t.Fatalf("len(sigs) = %d, want 0: %+v", len(sigs), sigs)
	}
}

func TestGenerateStubRendersOneEntryPerSignature(t *testing.T) {
	sigs := ExtractSignatures(`load env::{ log(str): void, sqrt(num): num as fastsqrt };`)
	output := GenerateStub(sigs)

	if !strings.Contains(output, `"env.log"(arg0) {`) {
		t.Fatalf("missing dotted-key stub for env.log:\n%s", output)
	}
	if !strings.Contains(output, `"env.sqrt"(arg0) {`) {
		t.Fatalf("missing dotted-key stub for env.sqrt:\n%s", output)
	}
	if !strings.Contains(output, "unimplemented import: env.log") {
		t.Fatalf("missing throw message for env.log:\n%s", output)
	}
}

func TestGenerateStubBareNameUsesPlainKey(t *testing.T) {
	sigs := ExtractSignatures(`load print(str): void;`)
	output := GenerateStub(sigs)
	if !strings.Contains(output, "print(arg0) {") {
		t.Fatalf("bare import should use an unquoted key:\n%s", output)
	}
}

func TestGenerateStubEmptyInputProducesEmptyObject(t *testing.T) {
	output := GenerateStub(nil)
	if !strings.Contains(output, "export const imports = {") || !strings.Contains(output, "};") {
		t.Fatalf("unexpected output for no signatures:\n%s", output)
	}
}
