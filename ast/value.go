package ast

import (
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/KajizukaTaichi/mystia/lexer"
)

// Value is a literal: a primitive constant, an array/record aggregate
// built from element expressions, an enum variant tag, or null.
type Value struct {
	Kind    Kind
	Int     int32
	Num     float64
	Bool    bool
	Str     string
	Elems   []Expr
	Fields  *orderedmap.OrderedMap[string, Expr]
	Enum    *Type
	Variant string
	Null    bool
}

func (*Value) exprNode() {}

// ParseValue attempts to read source as a literal. It returns ok=false
// (not an error) when source simply isn't a literal, so callers can fall
// through to the other expression forms.
func ParseValue(source string) (*Value, bool, error) {
	source = strings.TrimSpace(source)

	if source == "null" {
		return &Value{Kind: KindAny, Null: true}, true, nil
	}
	if source == "true" {
		return &Value{Kind: KindBool, Bool: true}, true, nil
	}
	if source == "false" {
		return &Value{Kind: KindBool, Bool: false}, true, nil
	}

	if n, err := strconv.ParseInt(source, 10, 32); err == nil {
		return &Value{Kind: KindInteger, Int: int32(n)}, true, nil
	}
	if f, err := strconv.ParseFloat(source, 64); err == nil {
		return &Value{Kind: KindNumber, Num: f}, true, nil
	}

	if strings.HasPrefix(source, `"`) && strings.HasSuffix(source, `"`) && len(source) >= 2 {
		unescaped, err := unescapeString(source[1 : len(source)-1])
		if err != nil {
			return nil, false, err
		}
		return &Value{Kind: KindString, Str: unescaped}, true, nil
	}

	if strings.HasPrefix(source, "[") && strings.HasSuffix(source, "]") {
		body := source[1 : len(source)-1]
		parts, err := lexer.Tokenize(body, []string{","}, false, true, false)
		if err != nil {
			return nil, false, fmt.Errorf("array literal: %w", err)
		}
		elems := make([]Expr, 0, len(parts))
		for _, p := range parts {
			e, err := ParseExpr(p)
			if err != nil {
				return nil, false, fmt.Errorf("array element: %w", err)
			}
			elems = append(elems, e)
		}
		return &Value{Kind: KindArray, Elems: elems}, true, nil
	}

	if strings.HasPrefix(source, "@{") && strings.HasSuffix(source, "}") {
		body := source[2 : len(source)-1]
		parts, err := lexer.Tokenize(body, []string{","}, false, true, false)
		if err != nil {
			return nil, false, fmt.Errorf("record literal: %w", err)
		}
		fields := orderedmap.New[string, Expr]()
		for _, p := range parts {
			name, valStr, ok := strings.Cut(p, ":")
			if !ok {
				return nil, false, fmt.Errorf("record field %q needs a value", p)
			}
			name = strings.TrimSpace(name)
			if !lexer.IsIdentifier(name) {
				return nil, false, fmt.Errorf("invalid record field name %q", name)
			}
			val, err := ParseExpr(valStr)
			if err != nil {
				return nil, false, fmt.Errorf("field %q: %w", name, err)
			}
			fields.Set(name, val)
		}
		return &Value{Kind: KindDict, Fields: fields}, true, nil
	}

	if idx := strings.Index(source, "#"); idx > 0 {
		typeName := strings.TrimSpace(source[:idx])
		variant := strings.TrimSpace(source[idx+1:])
		if lexer.IsIdentifier(typeName) && lexer.IsIdentifier(variant) {
			return &Value{
				Kind:    KindEnum,
				Enum:    &Type{Kind: KindAlias, Name: typeName},
				Variant: variant,
			}, true, nil
		}
	}

	return nil, false, nil
}

func unescapeString(s string) (string, error) {
	var b strings.Builder
	escape := false
	for _, r := range s {
		if escape {
			switch r {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			default:
				b.WriteRune(r)
			}
			escape = false
			continue
		}
		if r == '\\' {
			escape = true
			continue
		}
		b.WriteRune(r)
	}
	if escape {
		return "", fmt.Errorf("dangling escape in string literal")
	}
	return b.String(), nil
}
