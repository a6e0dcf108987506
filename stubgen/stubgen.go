// Package stubgen generates host-side JavaScript import bindings from a
// Mystia source file's "load" statements, without running the full
// lexer/parser pipeline over it. It reads a Mystia source file as text
// and pattern-matches the two "load" shapes (bare and module-qualified)
// directly, since gen-stub is meant to run on a source file that does
// not necessarily type-check yet.
package stubgen

import (
	"fmt"
	"regexp"
	"strings"
)

// Signature is one host function Mystia expects to find in the "env"
// import object at instantiation time.
type Signature struct {
	Module string // "" for a bare (unnamespaced) load
	Name   string
	Alias  string
	Params []string
	Return string // "" for void
}

// WasmName is the string used as both the wasm import's field name and
// the host import object's key, matching compiler.compileImport's
// "ModName.fn" / bare "fn" naming rule.
func (s Signature) WasmName() string {
	if s.Module == "" {
		return s.Name
	}
	return s.Module + "." + s.Name
}

var (
	loadBlockRe  = regexp.MustCompile(`load\s+(\w+)::\{([^}]*)\}`)
	loadSingleRe = regexp.MustCompile(`load\s+(\w+\s*\([^)]*\)\s*(?::\s*\w+)?\s*(?:as\s+\w+)?)`)
	sigRe        = regexp.MustCompile(`^(\w+)\s*\(([^)]*)\)\s*(?::\s*(\w+))?\s*(?:as\s+(\w+))?$`)
)

// ExtractSignatures scans source for "load" statements and returns one
// Signature per imported function: first every module-block signature, in
// source order, then every bare load, in source order. It tolerates a
// source file that does not fully parse elsewhere, since only the "load"
// lines themselves are matched.
func ExtractSignatures(source string) []Signature {
	var sigs []Signature

	rest := source
	for _, m := range loadBlockRe.FindAllStringSubmatch(source, -1) {
		module := m[1]
		for _, piece := range strings.Split(m[2], ",") {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			if sig, ok := parseSig(piece); ok {
				sig.Module = module
				sigs = append(sigs, sig)
			}
		}
		rest = strings.Replace(rest, m[0], "", 1)
	}

	for _, m := range loadSingleRe.FindAllStringSubmatch(rest, -1) {
		if sig, ok := parseSig(strings.TrimSpace(m[1])); ok {
			sigs = append(sigs, sig)
		}
	}

	return sigs
}

func parseSig(s string) (Signature, bool) {
	m := sigRe.FindStringSubmatch(s)
	if m == nil {
		return Signature{}, false
	}
	name, paramSrc, ret, alias := m[1], m[2], m[3], m[4]

	var params []string
	if strings.TrimSpace(paramSrc) != "" {
		for _, p := range strings.Split(paramSrc, ",") {
			if p = strings.TrimSpace(p); p != "" {
				params = append(params, p)
			}
		}
	}
	if alias == "" {
		alias = name
	}
	return Signature{Name: name, Alias: alias, Params: params, Return: ret}, true
}

// zeroValue is the placeholder return literal named in a stub's TODO
// comment, picked by Mystia type. The generated stub body itself throws;
// it does not return this value.
func zeroValue(mystiaType string) string {
	switch mystiaType {
	case "int", "num":
		return "0"
	case "bool":
		return "false"
	case "str":
		return `""`
	default:
		return "undefined"
	}
}

// GenerateStub renders a CommonJS-free ES module exposing one
// "env"-namespaced import object suitable for
// `WebAssembly.instantiate(module, { env: imports })`. Each binding is a
// throwing placeholder labeled with its Mystia signature, emitted in the
// order of sigs (for ExtractSignatures output: module blocks first, then
// bare loads).
func GenerateStub(sigs []Signature) string {
	var b strings.Builder
	b.WriteString("// Code generated by `mystia gen-stub`. DO NOT EDIT.\n")
	b.WriteString("export const imports = {\n")

	for _, sig := range sigs {
		params := make([]string, len(sig.Params))
		for i := range sig.Params {
			params[i] = fmt.Sprintf("arg%d", i)
		}
		wasmName := sig.WasmName()
		key := wasmName
		if strings.Contains(key, ".") {
			key = fmt.Sprintf("%q", key)
		}
		fmt.Fprintf(&b, "  %s(%s) {\n", key, strings.Join(params, ", "))
		fmt.Fprintf(&b, "    // TODO: implement %s(%s)%s\n", sig.Name,
			strings.Join(sig.Params, ", "), returnAnnotation(sig.Return))
		fmt.Fprintf(&b, "    throw new Error(%q);\n", "unimplemented import: "+wasmName)
		b.WriteString("  },\n")
	}

	b.WriteString("};\n")
	return b.String()
}

func returnAnnotation(ret string) string {
	if ret == "" {
		return ""
	}
	return ": " + ret + " (placeholder return " + zeroValue(ret) + ")"
}
