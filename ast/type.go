// Package ast holds Mystia's abstract syntax: pure data, parsed directly
// out of source text with no compiler context involved. Type inference
// and code emission live in the compiler package, which walks these trees
// with a single mutable Context threaded through type-switch dispatch,
// keeping ast itself free of any dependency on compiler.
package ast

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/KajizukaTaichi/mystia/lexer"
)

// Kind tags the variant of a Type.
type Kind int

const (
	KindInteger Kind = iota
	KindNumber
	KindBool
	KindString
	KindArray
	KindDict
	KindEnum
	KindAlias
	KindVoid
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "int"
	case KindNumber:
		return "num"
	case KindBool:
		return "bool"
	case KindString:
		return "str"
	case KindArray:
		return "array"
	case KindDict:
		return "dict"
	case KindEnum:
		return "enum"
	case KindAlias:
		return "alias"
	case KindVoid:
		return "void"
	case KindAny:
		return "any"
	}
	return "unknown"
}

// Field is one named slot of a Dict (record) type. Offset is the byte
// offset of the field within the record's memory layout; ParseType fills
// it with a provisional 4-byte stride, and the compiler recomputes it once
// alias resolution makes the true pointer-length of every field known.
type Field struct {
	Offset int
	Type   *Type
}

// Type is Mystia's tagged type representation: Integer, Number, Bool,
// String, Array(Elem), Dict(Fields), Enum(Variants), Alias(Name, Args),
// Void, Any.
type Type struct {
	Kind     Kind
	Elem     *Type                                    // Array
	Fields   *orderedmap.OrderedMap[string, *Field]    // Dict
	Variants []string                                 // Enum
	Name     string                                    // Alias
	Args     []*Type                                   // Alias generic arguments
}

func primitive(k Kind) *Type { return &Type{Kind: k} }

// ParseType parses a type expression: a primitive keyword, "[T]" array,
// "@{ name: T, ... }" record, "( a | b | ... )" enum, or a bare
// identifier naming a (possibly parameterized) alias.
func ParseType(source string) (*Type, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty type expression")
	}

	switch source {
	case "int":
		return primitive(KindInteger), nil
	case "num":
		return primitive(KindNumber), nil
	case "bool":
		return primitive(KindBool), nil
	case "str":
		return primitive(KindString), nil
	case "void":
		return primitive(KindVoid), nil
	case "any":
		return primitive(KindAny), nil
	}

	if strings.HasPrefix(source, "[") && strings.HasSuffix(source, "]") {
		elem, err := ParseType(source[1 : len(source)-1])
		if err != nil {
			return nil, fmt.Errorf("array type: %w", err)
		}
		return &Type{Kind: KindArray, Elem: elem}, nil
	}

	if strings.HasPrefix(source, "@{") && strings.HasSuffix(source, "}") {
		body := source[2 : len(source)-1]
		fields := orderedmap.New[string, *Field]()
		parts, err := lexer.Tokenize(body, []string{","}, false, true, false)
		if err != nil {
			return nil, fmt.Errorf("record type: %w", err)
		}
		offset := 0
		for _, part := range parts {
			name, typeStr, ok := strings.Cut(part, ":")
			if !ok {
				return nil, fmt.Errorf("record field %q needs a type annotation", part)
			}
			name = strings.TrimSpace(name)
			if !lexer.IsIdentifier(name) {
				return nil, fmt.Errorf("invalid record field name %q", name)
			}
			fieldType, err := ParseType(typeStr)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			fields.Set(name, &Field{Offset: offset, Type: fieldType})
			offset += 4
		}
		return &Type{Kind: KindDict, Fields: fields}, nil
	}

	if strings.HasPrefix(source, "(") && strings.HasSuffix(source, ")") && strings.Contains(source, "|") {
		body := source[1 : len(source)-1]
		parts, err := lexer.Tokenize(body, []string{"|"}, false, true, false)
		if err != nil {
			return nil, fmt.Errorf("enum type: %w", err)
		}
		variants := make([]string, 0, len(parts))
		for _, p := range parts {
			name := strings.TrimSpace(p)
			if !lexer.IsIdentifier(name) {
				return nil, fmt.Errorf("invalid enum variant %q", name)
			}
			variants = append(variants, name)
		}
		return &Type{Kind: KindEnum, Variants: variants}, nil
	}

	if idx := strings.Index(source, "("); idx >= 0 && strings.HasSuffix(source, ")") {
		name := strings.TrimSpace(source[:idx])
		if lexer.IsIdentifier(name) {
			argParts, err := lexer.Tokenize(source[idx+1:len(source)-1], []string{","}, false, true, false)
			if err != nil {
				return nil, fmt.Errorf("alias arguments: %w", err)
			}
			args := make([]*Type, 0, len(argParts))
			for _, a := range argParts {
				t, err := ParseType(a)
				if err != nil {
					return nil, fmt.Errorf("alias argument: %w", err)
				}
				args = append(args, t)
			}
			return &Type{Kind: KindAlias, Name: name, Args: args}, nil
		}
	}

	if lexer.IsIdentifier(source) {
		return &Type{Kind: KindAlias, Name: source}, nil
	}

	return nil, fmt.Errorf("cannot parse type expression %q", source)
}

// Format renders a Type the way diagnostics quote it: "@{ x: int }",
// "( a | b )", "[int]", a bare alias name, or a primitive keyword.
func (t *Type) Format() string {
	switch t.Kind {
	case KindArray:
		return "[" + t.Elem.Format() + "]"
	case KindDict:
		var b strings.Builder
		b.WriteString("@{ ")
		first := true
		for pair := t.Fields.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				b.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&b, "%s: %s", pair.Key, pair.Value.Type.Format())
		}
		b.WriteString(" }")
		return b.String()
	case KindEnum:
		return "( " + strings.Join(t.Variants, " | ") + " )"
	case KindAlias:
		if len(t.Args) == 0 {
			return t.Name
		}
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.Format()
		}
		return t.Name + "(" + strings.Join(parts, ", ") + ")"
	default:
		return t.Kind.String()
	}
}
