package compiler

import (
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/KajizukaTaichi/mystia/ast"
)

func primitive(k ast.Kind) *ast.Type { return &ast.Type{Kind: k} }

// InferValue computes a literal's type without emitting anything. Arrays
// unify on their first element's type; records compute per-field types;
// enum literals validate the variant name against the aliased enum's
// declared variants.
func (c *Context) InferValue(v *ast.Value) (*ast.Type, error) {
	switch v.Kind {
	case ast.KindInteger:
		return primitive(ast.KindInteger), nil
	case ast.KindNumber:
		return primitive(ast.KindNumber), nil
	case ast.KindBool:
		return primitive(ast.KindBool), nil
	case ast.KindString:
		return primitive(ast.KindString), nil
	case ast.KindArray:
		if len(v.Elems) == 0 {
			return &ast.Type{Kind: ast.KindArray, Elem: primitive(ast.KindAny)}, nil
		}
		elemType, err := c.InferExpr(v.Elems[0])
		if err != nil {
			return nil, err
		}
		resolvedElem, err := c.ResolveType(elemType, nil)
		if err != nil {
			return nil, err
		}
		for _, e := range v.Elems[1:] {
			t, err := c.InferExpr(e)
			if err != nil {
				return nil, err
			}
			rt, err := c.ResolveType(t, nil)
			if err != nil {
				return nil, err
			}
			if !typesEqual(resolvedElem, rt) {
				return nil, c.fail(fmt.Errorf("type mismatch between %s and %s", c.formatType(elemType), c.formatType(t)))
			}
		}
		return &ast.Type{Kind: ast.KindArray, Elem: elemType}, nil
	case ast.KindDict:
		fields := orderedmap.New[string, *ast.Field]()
		for pair := v.Fields.Oldest(); pair != nil; pair = pair.Next() {
			t, err := c.InferExpr(pair.Value)
			if err != nil {
				return nil, err
			}
			fields.Set(pair.Key, &ast.Field{Type: t})
		}
		return c.layoutDict(fields)
	case ast.KindEnum:
		resolved, err := c.ResolveType(v.Enum, nil)
		if err != nil {
			return nil, err
		}
		if resolved.Kind != ast.KindEnum {
			return nil, c.fail(fmt.Errorf("type mismatch between %s and enum", c.formatType(resolved)))
		}
		if indexOfString(resolved.Variants, v.Variant) < 0 {
			return nil, c.fail(fmt.Errorf("`%s` is invalid variant of %s", v.Variant, c.formatType(v.Enum)))
		}
		return v.Enum, nil
	default: // Null
		return primitive(ast.KindAny), nil
	}
}

// CompileValue emits a literal. Primitives emit a direct const
// instruction. Strings, arrays, and records reserve a static region and
// return its address. Aggregates use a two-phase emission policy: every
// element expression is compiled first (which may itself recursively
// bump-allocate), and only once all of them have finished is the
// parent's own base address reserved and the store instructions emitted
// — preserving a contiguous parent region even when children interleave
// allocations of their own.
func (c *Context) CompileValue(v *ast.Value) (string, *ast.Type, error) {
	switch v.Kind {
	case ast.KindInteger:
		return fmt.Sprintf("(i32.const %d)", v.Int), primitive(ast.KindInteger), nil
	case ast.KindNumber:
		return fmt.Sprintf("(f64.const %s)", strconv.FormatFloat(v.Num, 'g', -1, 64)), primitive(ast.KindNumber), nil
	case ast.KindBool:
		n := 0
		if v.Bool {
			n = 1
		}
		return fmt.Sprintf("(i32.const %d)", n), primitive(ast.KindBool), nil
	case ast.KindString:
		data := v.Str + "\x00"
		addr := c.reserve(int32(len(data)))
		c.StaticData = append(c.StaticData, fmt.Sprintf(`(data (i32.const %d) "%s")`, addr, escapeWat(data)))
		return fmt.Sprintf("(i32.const %d)", addr), primitive(ast.KindString), nil
	case ast.KindArray:
		return c.compileArray(v)
	case ast.KindDict:
		return c.compileDict(v)
	case ast.KindEnum:
		resolved, err := c.ResolveType(v.Enum, nil)
		if err != nil {
			return "", nil, err
		}
		idx := indexOfString(resolved.Variants, v.Variant)
		if idx < 0 {
			return "", nil, c.fail(fmt.Errorf("`%s` is invalid variant of %s", v.Variant, c.formatType(v.Enum)))
		}
		return fmt.Sprintf("(i32.const %d)", idx), v.Enum, nil
	default: // Null
		return "(i32.const -1)", primitive(ast.KindAny), nil
	}
}

func (c *Context) compileArray(v *ast.Value) (string, *ast.Type, error) {
	elemCodes := make([]string, len(v.Elems))
	var elemType *ast.Type
	for i, e := range v.Elems {
		code, t, err := c.CompileExpr(e)
		if err != nil {
			return "", nil, err
		}
		if i == 0 {
			elemType = t
		}
		elemCodes[i] = code
	}
	if elemType == nil {
		elemType = primitive(ast.KindAny)
	}
	w := PointerLen(elemType)
	n := int32(len(v.Elems))
	base := c.reserve(4 + n*w)

	wt, err := WasmType(elemType)
	if err != nil {
		return "", nil, c.fail(err)
	}
	instrs := []string{fmt.Sprintf("(i32.store (i32.const %d) (i32.const %d))", base, n)}
	for i, code := range elemCodes {
		offset := base + 4 + int32(i)*w
		instrs = append(instrs, fmt.Sprintf("(%s.store (i32.const %d) %s)", wt, offset, code))
	}
	return seqBlock(instrs, fmt.Sprintf("(i32.const %d)", base)), &ast.Type{Kind: ast.KindArray, Elem: elemType}, nil
}

func (c *Context) compileDict(v *ast.Value) (string, *ast.Type, error) {
	type fieldCode struct {
		name string
		code string
		typ  *ast.Type
	}
	codes := make([]fieldCode, 0, v.Fields.Len())
	for pair := v.Fields.Oldest(); pair != nil; pair = pair.Next() {
		code, t, err := c.CompileExpr(pair.Value)
		if err != nil {
			return "", nil, err
		}
		codes = append(codes, fieldCode{name: pair.Key, code: code, typ: t})
	}

	fields := orderedmap.New[string, *ast.Field]()
	for _, fc := range codes {
		fields.Set(fc.name, &ast.Field{Type: fc.typ})
	}
	dictType, err := c.layoutDict(fields)
	if err != nil {
		return "", nil, err
	}

	base := c.reserve(DictByteLen(dictType))
	var instrs []string
	for _, fc := range codes {
		f, _ := dictType.Fields.Get(fc.name)
		wt, err := WasmType(f.Type)
		if err != nil {
			return "", nil, c.fail(err)
		}
		instrs = append(instrs, fmt.Sprintf("(%s.store (i32.const %d) %s)", wt, base+int32(f.Offset), fc.code))
	}
	return seqBlock(instrs, fmt.Sprintf("(i32.const %d)", base)), dictType, nil
}

// layoutDict resolves each field's type and recomputes offsets from each
// field's true pointer length, since ast.ParseType's naive offsets don't
// know Number's 8-byte width.
func (c *Context) layoutDict(fields *orderedmap.OrderedMap[string, *ast.Field]) (*ast.Type, error) {
	out := orderedmap.New[string, *ast.Field]()
	var offset int32
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		resolved, err := c.ResolveType(pair.Value.Type, nil)
		if err != nil {
			return nil, err
		}
		out.Set(pair.Key, &ast.Field{Offset: int(offset), Type: resolved})
		offset += PointerLen(resolved)
	}
	return &ast.Type{Kind: ast.KindDict, Fields: out}, nil
}

func seqBlock(instrs []string, final string) string {
	if len(instrs) == 0 {
		return final
	}
	return "(block (result i32) " + strings.Join(instrs, " ") + " " + final + ")"
}

func indexOfString(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func escapeWat(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '"' || ch == '\\':
			fmt.Fprintf(&b, "\\%02x", ch)
		case ch >= 0x20 && ch < 0x7f:
			b.WriteByte(ch)
		default:
			fmt.Fprintf(&b, "\\%02x", ch)
		}
	}
	return b.String()
}
