package compiler

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/KajizukaTaichi/mystia/ast"
)

// RegisterAlias records a "type NAME(params) = T" declaration.
// Re-declaring a name overwrites the previous entry, matching every
// other registration table in Context.
func (c *Context) RegisterAlias(name string, params []string, t *ast.Type) {
	c.Alias[name] = &AliasEntry{Params: params, Type: t}
}

// ResolveType recursively resolves ast.KindAlias references through
// Context.Alias, decompressing nested alias occurrences inside array
// elements and record field types into their structural form, and
// recomputes record field offsets from each field's true pointer length
// (ast.ParseType can't know this: it assigns a naive 4-byte stride before
// aliases are resolvable).
//
// xpct is the cycle-breaking ledger: the chain of alias names already
// being expanded on this path. Encountering a name already in xpct stops
// the expansion and returns the bare Alias reference instead of
// recursing forever, which is exactly what a self-referential alias like
// "type L = @{ next: L }" needs — the inner "next" field resolves to
// Alias("L") rather than an infinite Dict nesting.
func (c *Context) ResolveType(t *ast.Type, xpct []string) (*ast.Type, error) {
	switch t.Kind {
	case ast.KindAlias:
		for _, seen := range xpct {
			if seen == t.Name {
				return &ast.Type{Kind: ast.KindAlias, Name: t.Name, Args: t.Args}, nil
			}
		}
		entry, ok := c.Alias[t.Name]
		if !ok {
			return nil, c.fail(fmt.Errorf("undefined type alias `%s`", t.Name))
		}
		body := entry.Type
		if len(entry.Params) > 0 {
			if len(entry.Params) != len(t.Args) {
				return nil, c.fail(fmt.Errorf(
					"alias `%s` expects %d type argument(s), got %d", t.Name, len(entry.Params), len(t.Args)))
			}
			subst := map[string]*ast.Type{}
			for i, p := range entry.Params {
				subst[p] = t.Args[i]
			}
			body = substituteAliasParams(body, subst)
		}
		return c.ResolveType(body, append(xpct, t.Name))

	case ast.KindArray:
		elem, err := c.ResolveType(t.Elem, xpct)
		if err != nil {
			return nil, err
		}
		return &ast.Type{Kind: ast.KindArray, Elem: elem}, nil

	case ast.KindDict:
		fields := orderedmap.New[string, *ast.Field]()
		var offset int32
		for pair := t.Fields.Oldest(); pair != nil; pair = pair.Next() {
			fieldType, err := c.ResolveType(pair.Value.Type, xpct)
			if err != nil {
				return nil, err
			}
			fields.Set(pair.Key, &ast.Field{Offset: int(offset), Type: fieldType})
			offset += PointerLen(fieldType)
		}
		return &ast.Type{Kind: ast.KindDict, Fields: fields}, nil

	default:
		return t, nil
	}
}

// substituteAliasParams replaces every Alias(name) in t whose name is a
// key of subst with the bound type argument, positionally, before
// structural resolution.
func substituteAliasParams(t *ast.Type, subst map[string]*ast.Type) *ast.Type {
	switch t.Kind {
	case ast.KindAlias:
		if len(t.Args) == 0 {
			if bound, ok := subst[t.Name]; ok {
				return bound
			}
		}
		return t
	case ast.KindArray:
		return &ast.Type{Kind: ast.KindArray, Elem: substituteAliasParams(t.Elem, subst)}
	case ast.KindDict:
		fields := orderedmap.New[string, *ast.Field]()
		for pair := t.Fields.Oldest(); pair != nil; pair = pair.Next() {
			fields.Set(pair.Key, &ast.Field{
				Offset: pair.Value.Offset,
				Type:   substituteAliasParams(pair.Value.Type, subst),
			})
		}
		return &ast.Type{Kind: ast.KindDict, Fields: fields}
	default:
		return t
	}
}

// PointerLen is the in-memory slot width of a (already-resolved) type:
// 8 for Number, 0 for Void, 4 for everything else — integers, bools,
// strings/arrays/records/enums (all address- or tag-sized references).
func PointerLen(t *ast.Type) int32 {
	switch t.Kind {
	case ast.KindNumber:
		return 8
	case ast.KindVoid:
		return 0
	default:
		return 4
	}
}

// WasmType returns the WAT value-type opcode prefix for a resolved type:
// "f64" for Number and "i32" for everything else, including Any (the type
// of null). Void has no wasm representation and is reported as an error.
func WasmType(t *ast.Type) (string, error) {
	switch t.Kind {
	case ast.KindNumber:
		return "f64", nil
	case ast.KindVoid:
		return "", fmt.Errorf("void has no wasm representation")
	case ast.KindAny:
		return "i32", nil
	default:
		return "i32", nil
	}
}

// DictByteLen is the memcpy byte-length of a resolved record: one
// pointer-length slot (4 bytes) per field.
func DictByteLen(t *ast.Type) int32 {
	return int32(t.Fields.Len()) * 4
}

// typesEqual reports whether two resolved types are structurally
// identical, ignoring record field offsets. Both sides are expected to
// have gone through ResolveType already. It is the exact-match check used
// for operands, call arguments, index/field stores, array elements and
// if branches.
func typesEqual(a, b *ast.Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ast.KindArray:
		return typesEqual(a.Elem, b.Elem)
	case ast.KindDict:
		if a.Fields.Len() != b.Fields.Len() {
			return false
		}
		pa, pb := a.Fields.Oldest(), b.Fields.Oldest()
		for pa != nil {
			if pb == nil || pa.Key != pb.Key || !typesEqual(pa.Value.Type, pb.Value.Type) {
				return false
			}
			pa, pb = pa.Next(), pb.Next()
		}
		return true
	case ast.KindEnum:
		if len(a.Variants) != len(b.Variants) {
			return false
		}
		for i := range a.Variants {
			if a.Variants[i] != b.Variants[i] {
				return false
			}
		}
		return true
	case ast.KindAlias:
		return a.Name == b.Name
	default:
		return true
	}
}

// typeAssignable reports whether a value of type actual may be stored
// where target is declared. It is typesEqual loosened to treat Any —
// the type of a bare `null` literal — as compatible with anything at any
// nesting depth: the null sentinel (-1) is a valid bit pattern for every
// referenceable type. A self-referential field that ResolveType's
// cycle-breaking stops at stays Alias(name) and matches by name.
func typeAssignable(target, actual *ast.Type) bool {
	if target.Kind == ast.KindAny || actual.Kind == ast.KindAny {
		return true
	}
	if target.Kind != actual.Kind {
		return false
	}
	switch target.Kind {
	case ast.KindArray:
		return typeAssignable(target.Elem, actual.Elem)
	case ast.KindDict:
		if target.Fields.Len() != actual.Fields.Len() {
			return false
		}
		pt, pa := target.Fields.Oldest(), actual.Fields.Oldest()
		for pt != nil {
			if pa == nil || pt.Key != pa.Key || !typeAssignable(pt.Value.Type, pa.Value.Type) {
				return false
			}
			pt, pa = pt.Next(), pa.Next()
		}
		return true
	case ast.KindAlias:
		return target.Name == actual.Name
	default:
		return typesEqual(target, actual)
	}
}

// isReferenceType reports whether t's value is an address into linear
// memory (the memcpy-eligible kinds).
func isReferenceType(t *ast.Type) bool {
	switch t.Kind {
	case ast.KindString, ast.KindArray, ast.KindDict:
		return true
	default:
		return false
	}
}

// formatType renders t as source syntax for a diagnostic, preferring a
// registered alias's name over t's own fully expanded structural shape
// whenever t matches an alias's resolved body exactly. Without this, an
// error against a self-referential alias like "type L = @{ next: L }"
// would print its infinitely-flattened structural expansion instead of
// the name the programmer wrote.
func (c *Context) formatType(t *ast.Type) string {
	if t.Kind != ast.KindAlias {
		for name, entry := range c.Alias {
			if len(entry.Params) != 0 {
				continue
			}
			resolved, err := c.ResolveType(entry.Type, nil)
			if err != nil {
				continue
			}
			if typesEqual(resolved, t) {
				return name
			}
		}
	}
	return t.Format()
}
