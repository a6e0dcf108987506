package lexer

// Space lists the characters treated as insignificant whitespace when a
// caller asks Tokenize to split on whitespace (finding the leading keyword
// of a statement, the then/else/loop words of if/while, and the "as" of an
// import signature).
var Space = []string{" ", "　", "\n", "\t", "\r"}

// Operator lists the operator alphabet in longest-match-by-position
// priority order. Expression-mode lexing (Tokenize with exprMode=true)
// scans this list, in this exact order, at every depth-0 position outside
// a quote, and splits on the first entry that matches at the current
// position. The order matters: a two-character operator sharing a prefix
// with a one-character one must precede it, and this table is the only
// place that ordering is encoded.
var Operator = []string{
	"+", "-", "*", "/", "%",
	"==", "=", "!=",
	"<<", ">>", "<=", ">=", "<", ">",
	"&&", "||", "&", "|", "^",
	":", "!", "?", "~",
}

// Reserved lists words that Parse functions must reject as variable,
// function, macro, or alias names.
var Reserved = []string{
	"pub", "let", "type", "macro", "if", "then", "else",
	"while", "loop", "break", "next", "return", "load",
	"as", "try", "catch", "use",
}

// IsIdentifier reports whether name is usable as a variable, function,
// type, or macro name: non-empty, ASCII, not a reserved word, and not
// itself an operator token.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r > 127 {
			return false
		}
	}
	for _, kw := range Reserved {
		if name == kw {
			return false
		}
	}
	for _, op := range Operator {
		if name == op {
			return false
		}
	}
	return true
}
