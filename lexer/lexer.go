package lexer

import (
	"fmt"
	"strings"
	"unicode"
)

// Tokenize splits input into a slice of tokens. Its behavior is governed
// by four independent policies rather than a fixed grammar, since the
// same tokenizer is reused for expression scanning, statement splitting
// (on ";"), call-argument splitting (on ","), and signature-block
// splitting (on ","):
//
//   - delimiters: the set of substrings that split the input when
//     exprMode is false. Ignored when exprMode is true.
//   - exprMode: when true, the operator alphabet (Operator, in priority
//     order) is scanned instead of delimiters, and a matched operator is
//     emitted as its own token rather than merely splitting on it.
//   - trimEmpty: when true, a trailing empty token is dropped.
//   - splitBrackets: when true, a top-level opening bracket flushes the
//     token accumulated so far and starts the bracketed region as part of
//     the same token; this is only meaningful to callers that want
//     brackets to not be silently absorbed into an identifier.
//
// Nested parentheses/brackets/braces, double-quoted strings (with
// backslash escapes), and "~~"-delimited comment regions are tracked
// throughout and make delimiters and operators inert while they are
// open. Unbalanced brackets, an unterminated string, or a trailing
// escape character are reported as errors.
func Tokenize(input string, delimiters []string, exprMode, trimEmpty, splitBrackets bool) ([]string, error) {
	var tokens []string
	var current strings.Builder

	depth := 0
	inQuote := false
	isEscape := false
	inComment := false

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		rest := string(runes[i:])

		if isEscape {
			current.WriteRune(ch)
			isEscape = false
			continue
		}

		if !inQuote && strings.HasPrefix(rest, "~~") {
			inComment = !inComment
			i++
			continue
		}
		if inComment {
			continue
		}

		if inQuote {
			switch ch {
			case '\\':
				isEscape = true
			case '"':
				inQuote = false
				current.WriteRune(ch)
			default:
				current.WriteRune(ch)
			}
			continue
		}

		switch ch {
		case '"':
			inQuote = true
			current.WriteRune(ch)
			continue
		case '(', '[', '{':
			depth++
			if splitBrackets && depth == 1 {
				if current.Len() > 0 {
					tokens = append(tokens, current.String())
					current.Reset()
				}
			}
			current.WriteRune(ch)
			continue
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced brackets in %q", input)
			}
			current.WriteRune(ch)
			continue
		}

		if depth == 0 {
			if exprMode {
				// In expression mode the operator alphabet is scanned
				// instead of an explicit delimiter set, but plain
				// whitespace between operands still has to separate
				// tokens rather than being swallowed into one: it is
				// always an inert, non-emitted boundary here, unlike
				// the caller-supplied delimiter set used below.
				if unicode.IsSpace(ch) {
					if current.Len() > 0 {
						tokens = append(tokens, current.String())
						current.Reset()
					}
					continue
				}
				if matched, ok := matchAt(rest, Operator); ok {
					if current.Len() > 0 {
						tokens = append(tokens, current.String())
						current.Reset()
					}
					tokens = append(tokens, matched)
					i += len([]rune(matched)) - 1
					continue
				}
			} else {
				if matched, ok := matchAt(rest, delimiters); ok {
					if current.Len() > 0 {
						tokens = append(tokens, current.String())
						current.Reset()
					}
					i += len([]rune(matched)) - 1
					continue
				}
			}
		}

		current.WriteRune(ch)
	}

	if isEscape || inQuote || depth != 0 {
		return nil, fmt.Errorf("unterminated token in %q", input)
	}

	if current.Len() > 0 || !trimEmpty {
		tokens = append(tokens, current.String())
	}

	return tokens, nil
}

// matchAt returns the first candidate in candidates (in order) that is a
// prefix of s, longest-match-by-list-order: the caller controls priority
// by the order of candidates, not by length.
func matchAt(s string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if strings.HasPrefix(s, c) {
			return c, true
		}
	}
	return "", false
}
